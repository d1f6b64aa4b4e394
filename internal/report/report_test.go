package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/speccov/internal/config"
	"github.com/zjy-dev/speccov/internal/coverage"
)

// twoLineModel has src/a.go with line 1 run by A::one and line 2 by B::two,
// plus src/b.go with nothing executed.
func twoLineModel() *coverage.Model {
	m := coverage.NewModel()
	h := coverage.NewHits()
	h.Hit("src/a.go", 1)
	h.Declare("src/a.go", 2)
	h.Declare("src/b.go", 1)
	h.DeclareFunction("src/a.go", coverage.Function{Name: "first", StartLine: 1, EndLine: 1})
	m.Append("A::one", h)

	h = coverage.NewHits()
	h.Hit("src/a.go", 2)
	m.Append("B::two", h)
	return m
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatHTML, FormatText, FormatClover, FormatPHP} {
		got, ok := ParseFormat(f.String())
		assert.True(t, ok)
		assert.Equal(t, f, got)
	}
	got, ok := ParseFormat(" Clover ")
	assert.True(t, ok)
	assert.Equal(t, FormatClover, got)

	got, ok = ParseFormat("pdf")
	assert.False(t, ok)
	assert.Equal(t, FormatHTML, got)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		p    float64
		want Band
	}{
		{0, BandLow},
		{34, BandLow},
		{34.99, BandLow},
		{35, BandMedium},
		{69, BandMedium},
		{69.99, BandMedium},
		{70, BandHigh},
		{100, BandHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.p, 35, 70), "%v%%", tt.p)
	}
}

func TestDescriptors_DeclaredOrderAndDestinations(t *testing.T) {
	opts := config.Default()
	opts.Format = []string{"text", "clover", "php", "html"}
	opts.OutputDir = "out"

	ds, err := Descriptors(opts)
	require.NoError(t, err)
	require.Len(t, ds, 4)

	assert.Equal(t, "text", ds[0].Name)
	assert.True(t, ds[0].ToConsole())
	assert.Equal(t, "", ds[0].Destination)
	assert.IsType(t, &TextGenerator{}, ds[0].Generator)

	assert.Equal(t, filepath.Join("out", "coverage.xml"), ds[1].Destination)
	assert.IsType(t, &CloverGenerator{}, ds[1].Generator)

	assert.Equal(t, filepath.Join("out", "coverage.php"), ds[2].Destination)
	assert.IsType(t, &SnapshotGenerator{}, ds[2].Generator)

	assert.Equal(t, "out", ds[3].Destination)
	assert.IsType(t, &HTMLGenerator{}, ds[3].Generator)
}

func TestDescriptors_MissingOutputFileFallsBack(t *testing.T) {
	opts := config.Default()
	opts.Format = []string{"clover"}
	opts.OutputFiles = map[string]string{}

	ds, err := Descriptors(opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("coverage", "coverage.xml"), ds[0].Destination)
}

func TestDescriptors_UnknownFormatFallsBackToHTML(t *testing.T) {
	opts := config.Default()
	opts.Format = []string{"pdf"}

	ds, err := Descriptors(opts)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "pdf", ds[0].Name)
	assert.Equal(t, FormatHTML, ds[0].Format)
	assert.Equal(t, "coverage", ds[0].Destination)
}

func TestDescriptors_StrictFormats(t *testing.T) {
	opts := config.Default()
	opts.Format = []string{"text", "pdf"}
	opts.StrictFormats = true

	_, err := Descriptors(opts)
	require.Error(t, err)
	assert.True(t, config.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "pdf")
}

func TestDescriptors_InvalidThresholds(t *testing.T) {
	opts := config.Default()
	opts.LowerUpperBound = 80

	_, err := Descriptors(opts)
	assert.True(t, config.IsConfigurationError(err))
}

func TestNew_TextUsesOptions(t *testing.T) {
	opts := config.Default()
	opts.LowerUpperBound = 10
	opts.HighLowerBound = 20
	opts.ShowUncoveredFiles = false

	g, ok := New(FormatText, opts).(*TextGenerator)
	require.True(t, ok)
	assert.Equal(t, 10, g.LowerBound)
	assert.Equal(t, 20, g.UpperBound)
	assert.False(t, g.ShowUncoveredFiles)
}
