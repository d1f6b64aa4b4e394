package coverage

import (
	"fmt"
	"sort"
)

// LineID uniquely identifies a line of code.
type LineID struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// String returns a string representation of LineID.
func (l LineID) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Function is a named line range reported by the driver.
type Function struct {
	Name      string `json:"name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// FileCoverage is the accumulated state of one source file.
type FileCoverage struct {
	// Lines maps every executable line to the sessions that executed it.
	// An empty list means executable but never executed.
	Lines map[int][]string `json:"lines"`

	// Functions is keyed by function name.
	Functions map[string]Function `json:"functions,omitempty"`
}

func newFileCoverage() *FileCoverage {
	return &FileCoverage{
		Lines:     make(map[int][]string),
		Functions: make(map[string]Function),
	}
}

// Summary holds line and function counts.
type Summary struct {
	ExecutableLines int
	ExecutedLines   int
	Functions       int
	TestedFunctions int
}

// LinePercent returns the executed-line percentage. A file without executable
// lines counts as fully covered.
func (s Summary) LinePercent() float64 {
	return Percent(s.ExecutedLines, s.ExecutableLines)
}

// FunctionPercent returns the tested-function percentage.
func (s Summary) FunctionPercent() float64 {
	return Percent(s.TestedFunctions, s.Functions)
}

func (s *Summary) add(o Summary) {
	s.ExecutableLines += o.ExecutableLines
	s.ExecutedLines += o.ExecutedLines
	s.Functions += o.Functions
	s.TestedFunctions += o.TestedFunctions
}

// Percent returns part/total as a percentage, or 100 when total is zero.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(part) / float64(total) * 100
}

// Executed reports whether line was executed by at least one session.
func (fc *FileCoverage) Executed(line int) bool {
	return len(fc.Lines[line]) > 0
}

// SortedLines returns the executable line numbers in ascending order.
func (fc *FileCoverage) SortedLines() []int {
	lines := make([]int, 0, len(fc.Lines))
	for l := range fc.Lines {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// SortedFunctions returns the functions ordered by start line, then name.
func (fc *FileCoverage) SortedFunctions() []Function {
	fns := make([]Function, 0, len(fc.Functions))
	for _, fn := range fc.Functions {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool {
		if fns[i].StartLine != fns[j].StartLine {
			return fns[i].StartLine < fns[j].StartLine
		}
		return fns[i].Name < fns[j].Name
	})
	return fns
}

// FunctionSummary returns the executable and executed line counts inside fn.
func (fc *FileCoverage) FunctionSummary(fn Function) (executable, executed int) {
	for l, tests := range fc.Lines {
		if l < fn.StartLine || l > fn.EndLine {
			continue
		}
		executable++
		if len(tests) > 0 {
			executed++
		}
	}
	return executable, executed
}

// Summary computes the file's counts. A function is tested when every
// executable line inside it was executed.
func (fc *FileCoverage) Summary() Summary {
	var s Summary
	for _, tests := range fc.Lines {
		s.ExecutableLines++
		if len(tests) > 0 {
			s.ExecutedLines++
		}
	}
	for _, fn := range fc.Functions {
		s.Functions++
		executable, executed := fc.FunctionSummary(fn)
		if executable > 0 && executable == executed {
			s.TestedFunctions++
		}
	}
	return s
}

func (fc *FileCoverage) attribute(line int, test string) {
	tests := fc.Lines[line]
	for _, t := range tests {
		if t == test {
			return
		}
	}
	fc.Lines[line] = append(tests, test)
}

func (fc *FileCoverage) declare(line int) {
	if _, ok := fc.Lines[line]; !ok {
		fc.Lines[line] = []string{}
	}
}

// Model is the suite-wide accumulation of every completed session. It only
// grows: there is no operation removing lines or attributions.
type Model struct {
	Files map[string]*FileCoverage `json:"files"`

	// Tests lists session names in order of first appearance.
	Tests []string `json:"tests"`
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Files: make(map[string]*FileCoverage),
		Tests: []string{},
	}
}

func (m *Model) file(name string) *FileCoverage {
	fc, ok := m.Files[name]
	if !ok {
		fc = newFileCoverage()
		m.Files[name] = fc
	}
	if fc.Lines == nil {
		fc.Lines = make(map[int][]string)
	}
	if fc.Functions == nil {
		fc.Functions = make(map[string]Function)
	}
	return fc
}

func (m *Model) addTest(name string) {
	for _, t := range m.Tests {
		if t == name {
			return
		}
	}
	m.Tests = append(m.Tests, name)
}

// Append merges one session's hits, attributing executed lines to session.
func (m *Model) Append(session string, hits *Hits) {
	m.addTest(session)
	if hits == nil {
		return
	}
	for file, lines := range hits.Lines {
		fc := m.file(file)
		for line, executed := range lines {
			if executed {
				fc.attribute(line, session)
			} else {
				fc.declare(line)
			}
		}
	}
	for file, fns := range hits.Functions {
		fc := m.file(file)
		for _, fn := range fns {
			fc.Functions[fn.Name] = fn
		}
	}
}

// Merge folds other into m. The operation is a union: executed lines and
// attributions from both sides are kept, so merging is commutative and
// associative up to attribution order.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	for _, t := range other.Tests {
		m.addTest(t)
	}
	for name, ofc := range other.Files {
		if ofc == nil {
			continue
		}
		fc := m.file(name)
		for line, tests := range ofc.Lines {
			fc.declare(line)
			for _, t := range tests {
				fc.attribute(line, t)
			}
		}
		for fname, fn := range ofc.Functions {
			fc.Functions[fname] = fn
		}
	}
}

// FileNames returns the file paths in ascending order.
func (m *Model) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary aggregates every file.
func (m *Model) Summary() Summary {
	var s Summary
	for _, fc := range m.Files {
		s.add(fc.Summary())
	}
	return s
}

// TestsForLine returns the sessions that executed the given line.
func (m *Model) TestsForLine(id LineID) []string {
	fc, ok := m.Files[id.File]
	if !ok {
		return nil
	}
	return fc.Lines[id.Line]
}

// Clone returns a deep copy of m.
func (m *Model) Clone() *Model {
	out := NewModel()
	out.Merge(m)
	return out
}
