// Package report renders a coverage model into the supported output formats.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zjy-dev/speccov/internal/config"
	"github.com/zjy-dev/speccov/internal/coverage"
	"github.com/zjy-dev/speccov/internal/logger"
)

// Format identifies a report kind.
type Format int

const (
	FormatHTML Format = iota
	FormatText
	FormatClover
	FormatPHP
)

var formatNames = map[Format]string{
	FormatHTML:   "html",
	FormatText:   "text",
	FormatClover: "clover",
	FormatPHP:    "php",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat maps a configured name to a Format. ok is false for unknown
// names.
func ParseFormat(name string) (Format, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range formatNames {
		if n == name {
			return f, true
		}
	}
	return FormatHTML, false
}

// Generator renders a model. dest is a file or directory depending on the
// format; the text generator ignores it and returns the report instead.
type Generator interface {
	Process(m *coverage.Model, dest string) (string, error)
}

// ReportWriteError reports a generator that could not write its destination.
type ReportWriteError struct {
	Format      string
	Destination string
	Err         error
}

func (e *ReportWriteError) Error() string {
	return fmt.Sprintf("failed to write %s report to %s: %v", e.Format, e.Destination, e.Err)
}

func (e *ReportWriteError) Unwrap() error { return e.Err }

// Descriptor binds a declared format name to its generator and destination.
// An empty Destination means the console.
type Descriptor struct {
	Name        string
	Format      Format
	Generator   Generator
	Destination string
}

// ToConsole reports whether the output goes to the console.
func (d Descriptor) ToConsole() bool {
	return d.Format == FormatText
}

var defaultFiles = map[Format]string{
	FormatClover: "coverage.xml",
	FormatPHP:    "coverage.php",
}

// Descriptors builds one descriptor per configured format, in declared
// order. Unknown names fall back to html unless StrictFormats is set, in
// which case they are a *config.ConfigurationError.
func Descriptors(opts *config.Options) ([]Descriptor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	out := make([]Descriptor, 0, len(opts.Format))
	for _, name := range opts.Format {
		f, ok := ParseFormat(name)
		if !ok {
			if opts.StrictFormats {
				return nil, &config.ConfigurationError{Key: "format", Reason: fmt.Sprintf("unknown report format %q", name)}
			}
			logger.Warn("report: unknown format %q, falling back to html", name)
		}

		d := Descriptor{Name: name, Format: f, Generator: New(f, opts)}
		switch f {
		case FormatText:
		case FormatClover, FormatPHP:
			d.Destination = opts.OutputFile(name)
			if d.Destination == "" {
				d.Destination = filepath.Join(opts.OutputDir, defaultFiles[f])
			}
		default:
			d.Destination = opts.OutputDir
		}
		out = append(out, d)
	}
	return out, nil
}

// New creates the generator for f configured from opts.
func New(f Format, opts *config.Options) Generator {
	switch f {
	case FormatText:
		return &TextGenerator{
			LowerBound:         opts.LowerUpperBound,
			UpperBound:         opts.HighLowerBound,
			ShowUncoveredFiles: opts.ShowUncoveredFiles,
			ShowColors:         opts.ShowColors,
		}
	case FormatClover:
		return &CloverGenerator{}
	case FormatPHP:
		return &SnapshotGenerator{}
	default:
		return &HTMLGenerator{
			LowerBound: opts.LowerUpperBound,
			UpperBound: opts.HighLowerBound,
		}
	}
}

// Band is the coverage classification used for coloring.
type Band int

const (
	BandLow Band = iota
	BandMedium
	BandHigh
)

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMedium:
		return "medium"
	default:
		return "high"
	}
}

// Classify returns low when p < lower, high when p >= upper and medium
// otherwise.
func Classify(p float64, lower, upper int) Band {
	switch {
	case p < float64(lower):
		return BandLow
	case p >= float64(upper):
		return BandHigh
	default:
		return BandMedium
	}
}
