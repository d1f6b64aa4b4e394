package coverage

import (
	"fmt"
	"sync"
)

// Probe is an in-process Driver. Instrumented code reports executed lines
// through Hit; executable lines and functions are declared once and carried
// into every session so never-executed lines still show up in reports.
type Probe struct {
	mu       sync.Mutex
	declared *Hits
	session  *Hits
	name     string
}

// NewProbe returns a probe with nothing declared.
func NewProbe() *Probe {
	return &Probe{declared: NewHits()}
}

// Declare marks lines of file as executable.
func (p *Probe) Declare(file string, lines ...int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range lines {
		p.declared.Declare(file, l)
	}
}

// DeclareFunction records a function spanning start..end in file.
func (p *Probe) DeclareFunction(file, name string, start, end int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.declared.DeclareFunction(file, Function{Name: name, StartLine: start, EndLine: end})
}

// Hit records an executed line. Hits outside a session are dropped.
func (p *Probe) Hit(file string, line int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.declared.Declare(file, line)
	if p.session == nil {
		return
	}
	p.session.Hit(file, line)
}

// Start implements Driver.
func (p *Probe) Start(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return fmt.Errorf("probe already collecting for %q", p.name)
	}
	p.session = NewHits()
	p.name = name
	return nil
}

// Stop implements Driver.
func (p *Probe) Stop() (*Hits, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil, fmt.Errorf("probe is not collecting")
	}
	out := NewHits()
	for file, lines := range p.declared.Lines {
		for l := range lines {
			out.Declare(file, l)
		}
	}
	for file, fns := range p.declared.Functions {
		for _, fn := range fns {
			out.DeclareFunction(file, fn)
		}
	}
	for file, lines := range p.session.Lines {
		for l, ok := range lines {
			if ok {
				out.Hit(file, l)
			}
		}
	}
	p.session = nil
	p.name = ""
	return out, nil
}
