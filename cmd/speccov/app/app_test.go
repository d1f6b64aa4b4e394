package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/speccov/internal/coverage"
	"github.com/zjy-dev/speccov/internal/report"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func writeConfig(t *testing.T, outputDir string, formats string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speccov.yaml")
	writeFile(t, path, fmt.Sprintf(`code_coverage:
  format: [%s]
  whitelist: [src]
  blacklist: [vendor]
  output_dir: %s
  show_colors: false
`, formats, outputDir))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewSpeccovCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestCollect_EndToEnd(t *testing.T) {
	profiles := t.TempDir()
	writeFile(t, filepath.Join(profiles, "it_adds.out"), `mode: set
example.com/calc/src/calc.go:1.1,1.20 1 1
example.com/calc/src/calc.go:2.1,2.20 1 0
example.com/calc/vendor/dep.go:1.1,1.20 1 1
`)
	writeFile(t, filepath.Join(profiles, "it_subtracts.out"), `mode: set
example.com/calc/src/calc.go:1.1,1.20 1 0
example.com/calc/src/calc.go:2.1,2.20 1 1
`)
	outputDir := filepath.Join(t.TempDir(), "coverage")
	cfg := writeConfig(t, outputDir, "text, clover, php")

	out, err := execute(t, "collect", profiles, "--config", cfg, "--spec", "CalcSpec", "--source-prefix", "example.com/calc")
	require.NoError(t, err)

	assert.Contains(t, out, "Generating code coverage report in text format ...")
	assert.Contains(t, out, "src/calc.go\n  Methods: 100.00% (0/0)  Lines: 100.00% (2/2)")
	assert.NotContains(t, out, "vendor/dep.go")

	_, err = os.Stat(filepath.Join(outputDir, "coverage.xml"))
	assert.NoError(t, err)

	model, err := report.LoadSnapshot(filepath.Join(outputDir, "coverage.php"))
	require.NoError(t, err)
	assert.Equal(t, []string{"CalcSpec::it_adds", "CalcSpec::it_subtracts"}, model.Tests)
	assert.Equal(t, []string{"CalcSpec::it_subtracts"}, model.Files["src/calc.go"].Lines[2])
}

func TestCollect_FlagsOverrideConfig(t *testing.T) {
	profiles := filepath.Join(t.TempDir(), "CalcSpec")
	writeFile(t, filepath.Join(profiles, "it_adds.out"), "mode: set\nsrc/calc.go:1.1,1.20 1 1\n")
	outputDir := filepath.Join(t.TempDir(), "override")
	cfg := writeConfig(t, filepath.Join(t.TempDir(), "unused"), "html")

	out, err := execute(t, "collect", profiles, "--config", cfg, "--format", "text,php", "--output-dir", outputDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Generating code coverage report in php format ...")
	assert.NotContains(t, out, "html format")

	model, err := report.LoadSnapshot(filepath.Join(outputDir, "coverage.php"))
	require.NoError(t, err)
	assert.Equal(t, []string{"CalcSpec::it_adds"}, model.Tests)
}

func TestCollect_BrokenProfileAbortsSuite(t *testing.T) {
	profiles := t.TempDir()
	writeFile(t, filepath.Join(profiles, "a_good.out"), "mode: set\nsrc/calc.go:1.1,1.20 1 1\n")
	writeFile(t, filepath.Join(profiles, "b_broken.out"), "mode: set\nthis is not a profile line\n")
	outputDir := filepath.Join(t.TempDir(), "coverage")
	cfg := writeConfig(t, outputDir, "text")

	out, err := execute(t, "collect", profiles, "--config", cfg, "--spec", "S")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suite aborted")
	assert.Contains(t, out, "Code coverage is partial: suite aborted (failed to record S::b_broken)")
	assert.Contains(t, out, "Lines: 100.00% (1/1)")
}

func TestCollect_NoProfiles(t *testing.T) {
	cfg := writeConfig(t, filepath.Join(t.TempDir(), "coverage"), "text")
	_, err := execute(t, "collect", t.TempDir(), "--config", cfg)
	assert.ErrorContains(t, err, "no cover profiles")
}

func TestCollect_InvalidConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speccov.yaml")
	writeFile(t, path, "code_coverage:\n  lower_upper_bound: 90\n")
	profiles := t.TempDir()
	writeFile(t, filepath.Join(profiles, "x.out"), "mode: set\nsrc/calc.go:1.1,1.20 1 1\n")

	_, err := execute(t, "collect", profiles, "--config", path)
	assert.ErrorContains(t, err, "lower_upper_bound")
}

func TestCollect_PrintConfig(t *testing.T) {
	cfg := writeConfig(t, "coverage", "html")
	out, err := execute(t, "collect", "--print-config", "--config", cfg, "--format", "text,clover")
	require.NoError(t, err)
	assert.Contains(t, out, "code_coverage:")
	assert.Contains(t, out, "- clover")
	assert.Contains(t, out, "show_colors: false")
}

func writeSnapshot(t *testing.T, session string, line int) string {
	t.Helper()
	hits := coverage.NewHits()
	hits.Declare("src/a.go", 1)
	hits.Declare("src/a.go", 2)
	hits.Hit("src/a.go", line)
	m := coverage.NewModel()
	m.Append(session, hits)

	path := filepath.Join(t.TempDir(), "coverage.php")
	_, err := (&report.SnapshotGenerator{}).Process(m, path)
	require.NoError(t, err)
	return path
}

func TestMergeThenReport(t *testing.T) {
	first := writeSnapshot(t, "A::one", 1)
	second := writeSnapshot(t, "B::two", 2)
	merged := filepath.Join(t.TempDir(), "all", "coverage.php")

	out, err := execute(t, "merge", "-o", merged, first, second)
	require.NoError(t, err)
	assert.Contains(t, out, "Merged 2 snapshot(s): 2 tests, 2/2 lines")

	outputDir := filepath.Join(t.TempDir(), "report")
	cfg := writeConfig(t, outputDir, "text, clover")
	metricsFile := filepath.Join(t.TempDir(), "speccov.prom")
	out, err = execute(t, "report", merged, "--config", cfg, "--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "src/a.go\n  Methods: 100.00% (0/0)  Lines: 100.00% (2/2)")

	_, err = os.Stat(filepath.Join(outputDir, "coverage.xml"))
	assert.NoError(t, err)
	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `speccov_reports_total{format="clover",result="success"} 1`)
}

func TestMerge_ReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "merge", "-o", filepath.Join(dir, "out.php"),
		filepath.Join(dir, "missing1.php"), filepath.Join(dir, "missing2.php"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing1.php")
	assert.Contains(t, err.Error(), "missing2.php")
}

func TestMerge_RequiresOutput(t *testing.T) {
	_, err := execute(t, "merge", writeSnapshot(t, "A::one", 1))
	assert.ErrorContains(t, err, "output")
}
