package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "speccov.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	opts := Default()

	assert.Equal(t, []string{"html"}, opts.Format)
	assert.Equal(t, []string{"src", "lib"}, opts.Whitelist)
	assert.Equal(t, []string{"vendor", "spec"}, opts.Blacklist)
	assert.Empty(t, opts.WhitelistFiles)
	assert.Empty(t, opts.BlacklistFiles)
	assert.Equal(t, "coverage", opts.OutputDir)
	assert.Equal(t, map[string]string{
		"clover": "coverage.xml",
		"php":    "coverage.php",
		"text":   "coverage.txt",
	}, opts.OutputFiles)
	assert.True(t, opts.ShowUncoveredFiles)
	assert.Equal(t, 35, opts.LowerUpperBound)
	assert.Equal(t, 70, opts.HighLowerBound)
	assert.True(t, opts.ShowColors)
	assert.False(t, opts.StrictFormats)
	assert.NoError(t, opts.Validate())
}

func TestLoad_Success(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
code_coverage:
  format: [text, clover]
  whitelist: [src]
  blacklist: []
  output_dir: build/cov
  output_files:
    clover: clover.xml
  lower_upper_bound: 50
  high_lower_bound: 90
`)

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"text", "clover"}, opts.Format)
	assert.Equal(t, []string{"src"}, opts.Whitelist)
	assert.Empty(t, opts.Blacklist)
	assert.Equal(t, "build/cov", opts.OutputDir)
	assert.Equal(t, 50, opts.LowerUpperBound)
	assert.Equal(t, 90, opts.HighLowerBound)

	// User values win key by key; untouched defaults survive.
	assert.Equal(t, "clover.xml", opts.OutputFiles["clover"])
	assert.Equal(t, "coverage.php", opts.OutputFiles["php"])
	assert.True(t, opts.ShowUncoveredFiles)
}

func TestLoad_ScalarFormat(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "code_coverage:\n  format: Clover\n")

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"clover"}, opts.Format)
}

func TestLoad_FileNotExists(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "code_coverage: test\n  format: oops")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_SearchFallsBackToDefaults(t *testing.T) {
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(oldWd) })

	opts, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), opts)
}

func TestLoad_SearchFindsConfigsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0755))
	writeConfig(t, filepath.Join(dir, "configs"), "code_coverage:\n  output_dir: out\n")

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })

	opts, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "out", opts.OutputDir)
}

func TestFromMap(t *testing.T) {
	opts, err := FromMap(map[string]interface{}{
		"format":               []string{"text", "TEXT", " clover "},
		"show_uncovered_files": false,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"text", "clover"}, opts.Format)
	assert.False(t, opts.ShowUncoveredFiles)
	assert.Equal(t, []string{"src", "lib"}, opts.Whitelist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
		key    string
	}{
		{"no formats", func(o *Options) { o.Format = nil }, "format"},
		{"empty output dir", func(o *Options) { o.OutputDir = " " }, "output_dir"},
		{"lower out of range", func(o *Options) { o.LowerUpperBound = -1 }, "lower_upper_bound"},
		{"upper out of range", func(o *Options) { o.HighLowerBound = 101 }, "high_lower_bound"},
		{"inverted bounds", func(o *Options) { o.LowerUpperBound, o.HighLowerBound = 70, 35 }, "lower_upper_bound"},
		{"equal bounds", func(o *Options) { o.LowerUpperBound, o.HighLowerBound = 50, 50 }, "lower_upper_bound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Default()
			tt.mutate(opts)

			err := opts.Validate()
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))

			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.key, ce.Key)
		})
	}
}

func TestOutputFile(t *testing.T) {
	opts := Default()
	assert.Equal(t, filepath.Join("coverage", "coverage.xml"), opts.OutputFile("clover"))
	assert.Equal(t, "", opts.OutputFile("html"))
}

func TestYAML(t *testing.T) {
	out, err := Default().YAML()
	require.NoError(t, err)

	var doc map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "coverage", doc[Section]["output_dir"])
	assert.Equal(t, []interface{}{"html"}, doc[Section]["format"])
}
