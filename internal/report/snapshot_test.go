package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTripAndMerge(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "coverage.php")
	m := twoLineModel()

	_, err := (&SnapshotGenerator{}).Process(m, dest)
	require.NoError(t, err)

	loaded, err := LoadSnapshot(dest)
	require.NoError(t, err)
	assert.Equal(t, m.Tests, loaded.Tests)
	assert.Equal(t, m.FileNames(), loaded.FileNames())
	assert.Equal(t, m.Summary(), loaded.Summary())
	assert.Equal(t, []string{"A::one"}, loaded.Files["src/a.go"].Lines[1])

	// Merging a run with itself changes nothing.
	loaded.Merge(m)
	assert.Equal(t, m.Summary(), loaded.Summary())
	assert.Equal(t, []string{"A::one"}, loaded.Files["src/a.go"].Lines[1])
}

func TestSnapshot_Idempotent(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "coverage.php")
	m := twoLineModel()
	g := &SnapshotGenerator{}

	_, err := g.Process(m, dest)
	require.NoError(t, err)
	first, err := os.ReadFile(dest)
	require.NoError(t, err)

	_, err = g.Process(m, dest)
	require.NoError(t, err)
	second, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadSnapshot_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSnapshot(filepath.Join(dir, "missing.php"))
	assert.ErrorContains(t, err, "failed to read snapshot")

	bad := filepath.Join(dir, "bad.php")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = LoadSnapshot(bad)
	assert.ErrorContains(t, err, "failed to parse snapshot")

	future := filepath.Join(dir, "future.php")
	require.NoError(t, os.WriteFile(future, []byte(`{"version": 99, "model": {}}`), 0644))
	_, err = LoadSnapshot(future)
	assert.ErrorContains(t, err, "unsupported snapshot version 99")
}

func TestSnapshotGenerator_WriteFailure(t *testing.T) {
	dest := t.TempDir() // a directory cannot be written as a file

	_, err := (&SnapshotGenerator{}).Process(twoLineModel(), dest)
	var rwe *ReportWriteError
	require.True(t, errors.As(err, &rwe))
	assert.Equal(t, "php", rwe.Format)
}
