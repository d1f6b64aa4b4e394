package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjy-dev/speccov/internal/coverage"
)

// CloverGenerator writes a Clover XML summary to a file.
type CloverGenerator struct {
	// Name is the project name attribute; defaults to "speccov".
	Name string
	// Now supplies the generated timestamp; defaults to time.Now.
	Now func() time.Time
}

type cloverCoverage struct {
	XMLName   xml.Name      `xml:"coverage"`
	Generated int64         `xml:"generated,attr"`
	Project   cloverProject `xml:"project"`
}

type cloverProject struct {
	Timestamp int64         `xml:"timestamp,attr"`
	Name      string        `xml:"name,attr"`
	Files     []cloverFile  `xml:"file"`
	Metrics   cloverMetrics `xml:"metrics"`
}

type cloverFile struct {
	Name    string        `xml:"name,attr"`
	Lines   []cloverLine  `xml:"line"`
	Metrics cloverMetrics `xml:"metrics"`
}

type cloverLine struct {
	Num   int    `xml:"num,attr"`
	Type  string `xml:"type,attr"`
	Name  string `xml:"name,attr,omitempty"`
	Count int    `xml:"count,attr"`
}

type cloverMetrics struct {
	Files             int `xml:"files,attr,omitempty"`
	LOC               int `xml:"loc,attr"`
	NCLOC             int `xml:"ncloc,attr"`
	Methods           int `xml:"methods,attr"`
	CoveredMethods    int `xml:"coveredmethods,attr"`
	Statements        int `xml:"statements,attr"`
	CoveredStatements int `xml:"coveredstatements,attr"`
	Elements          int `xml:"elements,attr"`
	CoveredElements   int `xml:"coveredelements,attr"`
}

func metricsOf(s coverage.Summary, loc int) cloverMetrics {
	return cloverMetrics{
		LOC:               loc,
		NCLOC:             loc,
		Methods:           s.Functions,
		CoveredMethods:    s.TestedFunctions,
		Statements:        s.ExecutableLines,
		CoveredStatements: s.ExecutedLines,
		Elements:          s.Functions + s.ExecutableLines,
		CoveredElements:   s.TestedFunctions + s.ExecutedLines,
	}
}

// Process implements Generator; dest is the XML file path.
func (g *CloverGenerator) Process(m *coverage.Model, dest string) (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	name := g.Name
	if name == "" {
		name = "speccov"
	}
	ts := now().Unix()

	doc := cloverCoverage{
		Generated: ts,
		Project:   cloverProject{Timestamp: ts, Name: name},
	}

	var total coverage.Summary
	totalLOC := 0
	for _, fname := range m.FileNames() {
		fc := m.Files[fname]
		f := cloverFile{Name: fname}

		byLine := make(map[int][]coverage.Function)
		for _, fn := range fc.SortedFunctions() {
			byLine[fn.StartLine] = append(byLine[fn.StartLine], fn)
		}
		loc := 0
		for _, l := range fc.SortedLines() {
			for _, fn := range byLine[l] {
				f.Lines = append(f.Lines, cloverLine{Num: l, Type: "method", Name: fn.Name, Count: functionCount(fc, fn)})
			}
			delete(byLine, l)
			f.Lines = append(f.Lines, cloverLine{Num: l, Type: "stmt", Count: len(fc.Lines[l])})
			if l > loc {
				loc = l
			}
		}
		// Functions that start on a non-executable line.
		for _, fn := range fc.SortedFunctions() {
			if _, pending := byLine[fn.StartLine]; pending {
				f.Lines = append(f.Lines, cloverLine{Num: fn.StartLine, Type: "method", Name: fn.Name, Count: functionCount(fc, fn)})
			}
		}

		s := fc.Summary()
		f.Metrics = metricsOf(s, loc)
		total.ExecutableLines += s.ExecutableLines
		total.ExecutedLines += s.ExecutedLines
		total.Functions += s.Functions
		total.TestedFunctions += s.TestedFunctions
		totalLOC += loc
		doc.Project.Files = append(doc.Project.Files, f)
	}
	doc.Project.Metrics = metricsOf(total, totalLOC)
	doc.Project.Metrics.Files = len(doc.Project.Files)

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal clover report: %w", err)
	}
	data := append([]byte(xml.Header), out...)
	data = append(data, '\n')

	if err := writeFile(dest, data); err != nil {
		return "", &ReportWriteError{Format: FormatClover.String(), Destination: dest, Err: err}
	}
	return "", nil
}

// functionCount is the number of distinct sessions that executed any line
// of fn.
func functionCount(fc *coverage.FileCoverage, fn coverage.Function) int {
	seen := make(map[string]bool)
	for l, tests := range fc.Lines {
		if l < fn.StartLine || l > fn.EndLine {
			continue
		}
		for _, t := range tests {
			seen[t] = true
		}
	}
	return len(seen)
}

// writeFile creates the parent directory and writes data.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
