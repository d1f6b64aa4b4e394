package report

import (
	"bufio"
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjy-dev/speccov/internal/coverage"
)

// HTMLGenerator writes a browsable report: index.html plus one page per
// source file, mirroring the source tree under the destination directory.
type HTMLGenerator struct {
	LowerBound int
	UpperBound int
	// SourceRoot is where source files are read from; "" means the working
	// directory. Unreadable sources render line numbers only.
	SourceRoot string
	// Now supplies the footer timestamp; defaults to time.Now.
	Now func() time.Time
}

type htmlFileRow struct {
	Name    string
	Link    string
	Summary coverage.Summary
	Percent float64
	Band    string
}

type htmlIndex struct {
	Generated string
	Total     htmlFileRow
	Files     []htmlFileRow
	Tests     []string
}

type htmlLine struct {
	Num   int
	Code  string
	Class string
	Tests []string
}

type htmlFunction struct {
	Name    string
	Line    int
	Percent float64
	Band    string
}

type htmlPage struct {
	Generated string
	Index     string
	Style     string
	File      htmlFileRow
	Functions []htmlFunction
	Lines     []htmlLine
}

const htmlStyle = `body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { padding: 2px 8px; text-align: left; }
.low { background: #f2dede; }
.medium { background: #fcf8e3; }
.high { background: #dff0d8; }
.covered { background: #dff0d8; }
.uncovered { background: #f2dede; }
pre { margin: 0; }
footer { margin-top: 2em; color: #777; font-size: small; }
`

var htmlIndexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Code Coverage</title>
<link rel="stylesheet" href="style.css">
</head>
<body>
<h1>Code Coverage</h1>
<table>
<tr><th>File</th><th>Lines</th><th>%</th><th>Functions</th></tr>
<tr class="{{.Total.Band}}"><td><strong>Total</strong></td><td>{{.Total.Summary.ExecutedLines}} / {{.Total.Summary.ExecutableLines}}</td><td>{{printf "%.2f" .Total.Percent}}%</td><td>{{.Total.Summary.TestedFunctions}} / {{.Total.Summary.Functions}}</td></tr>
{{- range .Files}}
<tr class="{{.Band}}"><td><a href="{{.Link}}">{{.Name}}</a></td><td>{{.Summary.ExecutedLines}} / {{.Summary.ExecutableLines}}</td><td>{{printf "%.2f" .Percent}}%</td><td>{{.Summary.TestedFunctions}} / {{.Summary.Functions}}</td></tr>
{{- end}}
</table>
<h2>Tests</h2>
<ul>
{{- range .Tests}}
<li>{{.}}</li>
{{- end}}
</ul>
<footer>Generated by speccov at {{.Generated}}</footer>
</body>
</html>
`))

var htmlFileTemplate = template.Must(template.New("file").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.File.Name}} - Code Coverage</title>
<link rel="stylesheet" href="{{.Style}}">
</head>
<body>
<p><a href="{{.Index}}">Index</a></p>
<h1>{{.File.Name}}</h1>
<p class="{{.File.Band}}">Lines: {{.File.Summary.ExecutedLines}} / {{.File.Summary.ExecutableLines}} ({{printf "%.2f" .File.Percent}}%)</p>
{{- if .Functions}}
<table>
<tr><th>Function</th><th>Line</th><th>%</th></tr>
{{- range .Functions}}
<tr class="{{.Band}}"><td><a href="#L{{.Line}}">{{.Name}}</a></td><td>{{.Line}}</td><td>{{printf "%.2f" .Percent}}%</td></tr>
{{- end}}
</table>
{{- end}}
<table>
{{- range .Lines}}
<tr id="L{{.Num}}" class="{{.Class}}"{{if .Tests}} title="{{range $i, $t := .Tests}}{{if $i}}, {{end}}{{$t}}{{end}}"{{end}}><td>{{.Num}}</td><td><pre>{{.Code}}</pre></td></tr>
{{- end}}
</table>
<footer>Generated by speccov at {{.Generated}}</footer>
</body>
</html>
`))

// Process implements Generator; dest is the output directory, created if
// absent.
func (g *HTMLGenerator) Process(m *coverage.Model, dest string) (string, error) {
	wrap := func(err error) error {
		return &ReportWriteError{Format: FormatHTML.String(), Destination: dest, Err: err}
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", wrap(err)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	generated := now().UTC().Format(time.RFC3339)

	index := htmlIndex{
		Generated: generated,
		Total:     g.row("Total", "", m.Summary()),
		Tests:     m.Tests,
	}
	for _, name := range m.FileNames() {
		fc := m.Files[name]
		rel := pagePath(name)
		row := g.row(name, rel, fc.Summary())
		index.Files = append(index.Files, row)

		if err := g.writePage(dest, rel, generated, row, fc); err != nil {
			return "", wrap(err)
		}
	}

	if err := renderTo(filepath.Join(dest, "index.html"), htmlIndexTemplate, index); err != nil {
		return "", wrap(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "style.css"), []byte(htmlStyle), 0644); err != nil {
		return "", wrap(err)
	}
	return "", nil
}

func (g *HTMLGenerator) row(name, link string, s coverage.Summary) htmlFileRow {
	p := s.LinePercent()
	return htmlFileRow{
		Name:    name,
		Link:    link,
		Summary: s,
		Percent: p,
		Band:    Classify(p, g.LowerBound, g.UpperBound).String(),
	}
}

func (g *HTMLGenerator) writePage(dest, rel, generated string, row htmlFileRow, fc *coverage.FileCoverage) error {
	up := strings.Repeat("../", strings.Count(rel, "/"))
	page := htmlPage{
		Generated: generated,
		Index:     up + "index.html",
		Style:     up + "style.css",
		File:      row,
	}
	for _, fn := range fc.SortedFunctions() {
		executable, executed := fc.FunctionSummary(fn)
		p := coverage.Percent(executed, executable)
		page.Functions = append(page.Functions, htmlFunction{
			Name:    fn.Name,
			Line:    fn.StartLine,
			Percent: p,
			Band:    Classify(p, g.LowerBound, g.UpperBound).String(),
		})
	}

	source := g.readSource(row.Name)
	last := len(source)
	if lines := fc.SortedLines(); len(lines) > 0 && lines[len(lines)-1] > last {
		last = lines[len(lines)-1]
	}
	for n := 1; n <= last; n++ {
		l := htmlLine{Num: n}
		if n <= len(source) {
			l.Code = source[n-1]
		}
		if tests, ok := fc.Lines[n]; ok {
			l.Class = "uncovered"
			if len(tests) > 0 {
				l.Class = "covered"
				l.Tests = tests
			}
		}
		page.Lines = append(page.Lines, l)
	}

	target := filepath.Join(dest, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return renderTo(target, htmlFileTemplate, page)
}

func (g *HTMLGenerator) readSource(name string) []string {
	p := name
	if g.SourceRoot != "" && !filepath.IsAbs(name) {
		p = filepath.Join(g.SourceRoot, name)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// pagePath maps a source path to a slash-separated page path inside the
// report directory. Rooting the path before cleaning drops any leading
// parent segments, so every page stays below the destination.
func pagePath(name string) string {
	clean := path.Clean("/" + filepath.ToSlash(name))
	return strings.TrimPrefix(clean, "/") + ".html"
}

func renderTo(file string, t *template.Template, data interface{}) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return os.WriteFile(file, buf.Bytes(), 0644)
}
