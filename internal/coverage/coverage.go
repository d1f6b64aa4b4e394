// Package coverage records per-test line coverage and accumulates it into a
// suite-wide model.
package coverage

// Driver is the instrumentation primitive. Start begins collecting line hits
// for the named session; Stop ends collection and returns what was seen.
type Driver interface {
	Start(name string) error
	Stop() (*Hits, error)
}

// Hits is the raw output of one session: for every file, the executable
// lines the driver knows about and whether each one ran.
type Hits struct {
	Lines     map[string]map[int]bool
	Functions map[string][]Function
}

// NewHits returns an empty Hits.
func NewHits() *Hits {
	return &Hits{
		Lines:     make(map[string]map[int]bool),
		Functions: make(map[string][]Function),
	}
}

func (h *Hits) lines(file string) map[int]bool {
	lines, ok := h.Lines[file]
	if !ok {
		lines = make(map[int]bool)
		h.Lines[file] = lines
	}
	return lines
}

// Declare marks line as executable without executing it.
func (h *Hits) Declare(file string, line int) {
	lines := h.lines(file)
	if _, ok := lines[line]; !ok {
		lines[line] = false
	}
}

// Hit marks line as executed.
func (h *Hits) Hit(file string, line int) {
	h.lines(file)[line] = true
}

// DeclareFunction records a function range in file.
func (h *Hits) DeclareFunction(file string, fn Function) {
	h.Functions[file] = append(h.Functions[file], fn)
}

// Executed returns the number of executed lines across all files.
func (h *Hits) Executed() int {
	n := 0
	for _, lines := range h.Lines {
		for _, ok := range lines {
			if ok {
				n++
			}
		}
	}
	return n
}

// Filter returns a copy of h restricted to files for which allow is true.
func (h *Hits) Filter(allow func(file string) bool) *Hits {
	out := NewHits()
	for file, lines := range h.Lines {
		if !allow(file) {
			continue
		}
		dst := out.lines(file)
		for l, ok := range lines {
			dst[l] = ok
		}
	}
	for file, fns := range h.Functions {
		if allow(file) {
			out.Functions[file] = append([]Function(nil), fns...)
		}
	}
	return out
}
