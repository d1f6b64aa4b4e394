package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zjy-dev/speccov/internal/coverage"
)

// SnapshotVersion is the current snapshot layout.
const SnapshotVersion = 1

// Snapshot is the serialized form of a coverage model, written by the php
// format and read back for merging and re-rendering.
type Snapshot struct {
	Version int             `json:"version"`
	Model   *coverage.Model `json:"model"`
}

// SnapshotGenerator dumps the full model to a file.
type SnapshotGenerator struct{}

// Process implements Generator; dest is the snapshot file path.
func (g *SnapshotGenerator) Process(m *coverage.Model, dest string) (string, error) {
	data, err := json.MarshalIndent(Snapshot{Version: SnapshotVersion, Model: m}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := writeFile(dest, append(data, '\n')); err != nil {
		return "", &ReportWriteError{Format: FormatPHP.String(), Destination: dest, Err: err}
	}
	return "", nil
}

// LoadSnapshot reads a snapshot written by SnapshotGenerator.
func LoadSnapshot(path string) (*coverage.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d in %s", snap.Version, path)
	}

	// Normalize through Merge so nil maps from hand-edited files are filled.
	m := coverage.NewModel()
	m.Merge(snap.Model)
	return m, nil
}
