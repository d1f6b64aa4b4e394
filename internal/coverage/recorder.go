package coverage

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/zjy-dev/speccov/internal/filter"
	"github.com/zjy-dev/speccov/internal/logger"
)

// Recorder brackets sessions around a Driver and owns the suite's Model.
// At most one session is active at a time.
type Recorder struct {
	mu     sync.Mutex
	driver Driver
	filter *filter.Filter
	model  *Model
	active string
	inUse  bool
}

// NewRecorder creates a recorder. A nil filter admits every file.
func NewRecorder(driver Driver, f *filter.Filter) *Recorder {
	if f == nil {
		f = filter.New()
	}
	return &Recorder{
		driver: driver,
		filter: f,
		model:  NewModel(),
	}
}

// Filter returns the rule set consulted on Stop.
func (r *Recorder) Filter() *filter.Filter {
	return r.filter
}

// Start begins a session. It fails with *InvalidStateError when another
// session is active.
func (r *Recorder) Start(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inUse {
		return &InvalidStateError{Op: "start", Reason: fmt.Sprintf("session %q is still active", r.active)}
	}
	r.filter.Freeze()
	if err := r.driver.Start(name); err != nil {
		return fmt.Errorf("failed to start session %q: %w", name, err)
	}
	r.active = name
	r.inUse = true
	logger.Debug("coverage: started session %s", name)
	return nil
}

// Stop ends the active session and merges its hits into the model. It fails
// with *InvalidStateError, leaving the model untouched, when no session is
// active. The session is cleared even if the driver fails.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inUse {
		return &InvalidStateError{Op: "stop", Reason: "no session is active"}
	}
	name := r.active
	r.active = ""
	r.inUse = false

	hits, err := r.driver.Stop()
	if err != nil {
		return fmt.Errorf("failed to stop session %q: %w", name, err)
	}
	kept := hits.Filter(r.filter.Allows)
	r.model.Append(name, kept)
	logger.Debug("coverage: stopped session %s (%d executed lines in %d files)", name, kept.Executed(), len(kept.Lines))
	return nil
}

// Active returns the name of the running session, if any.
func (r *Recorder) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.inUse
}

// Run records fn as session name. Stop runs on every exit path; a panic in
// fn is recovered and returned as an error after the session is closed.
func (r *Recorder) Run(name string, fn func() error) (err error) {
	if err := r.Start(name); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			err = multierr.Append(err, fmt.Errorf("session %q panicked: %v", name, p))
		}
		err = multierr.Append(err, r.Stop())
	}()
	return fn()
}

// Model returns the accumulated coverage. Callers must not mutate it.
func (r *Recorder) Model() *Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model
}
