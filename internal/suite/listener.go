// Package suite drives coverage recording from a test suite's lifecycle:
// the filter is configured once, every example is bracketed by a recording
// session, and all configured reports are generated when the suite ends.
package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"

	"github.com/zjy-dev/speccov/internal/config"
	"github.com/zjy-dev/speccov/internal/coverage"
	"github.com/zjy-dev/speccov/internal/logger"
	"github.com/zjy-dev/speccov/internal/metrics"
	"github.com/zjy-dev/speccov/internal/report"
)

// ErrSuiteAborted is returned by OnSuiteEnd when the suite was aborted.
// Reports are still generated but only cover the examples that ran.
var ErrSuiteAborted = errors.New("suite aborted, coverage is partial")

// State is the listener's position in the suite lifecycle.
type State int

const (
	StateIdle State = iota
	StateSuiteConfigured
	StateExampleRecording
	StateReportsGenerated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSuiteConfigured:
		return "suite configured"
	case StateExampleRecording:
		return "example recording"
	case StateReportsGenerated:
		return "reports generated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Example identifies one example of a specification.
type Example struct {
	Specification string
	Name          string
}

// SessionName returns the recording session name, "<Specification>::<Name>".
func (e Example) SessionName() string {
	return e.Specification + "::" + e.Name
}

// Listener is the suite lifecycle state machine. It is driven by direct
// calls in the order OnSuiteStart, (OnExampleStart, OnExampleEnd)*,
// OnSuiteEnd. Out-of-order calls fail with *coverage.InvalidStateError.
type Listener struct {
	opts     *config.Options
	recorder *coverage.Recorder
	console  Console
	metrics  *metrics.Metrics

	state       State
	descriptors []report.Descriptor
	current     string
	startedAt   time.Time
	aborted     bool
	abortReason string
}

// NewListener creates a listener. A nil opts uses the defaults and a nil
// console discards output.
func NewListener(opts *config.Options, recorder *coverage.Recorder, console Console) *Listener {
	if opts == nil {
		opts = config.Default()
	}
	if console == nil {
		console = nopConsole{}
	}
	return &Listener{
		opts:     opts,
		recorder: recorder,
		console:  console,
		metrics:  metrics.New(),
	}
}

// State returns the current lifecycle state.
func (l *Listener) State() State { return l.state }

// Aborted reports whether Abort was called.
func (l *Listener) Aborted() bool { return l.aborted }

// Metrics returns the suite's collectors.
func (l *Listener) Metrics() *metrics.Metrics { return l.metrics }

// Descriptors returns the reports that OnSuiteEnd will generate.
func (l *Listener) Descriptors() []report.Descriptor { return l.descriptors }

func (l *Listener) invalid(op string) error {
	return &coverage.InvalidStateError{Op: op, Reason: fmt.Sprintf("listener is in state %q", l.state)}
}

// OnSuiteStart validates the options, resolves the report descriptors and
// registers the filter rules. Configuration errors leave the listener idle.
func (l *Listener) OnSuiteStart() error {
	if l.state != StateIdle {
		return l.invalid("start suite")
	}

	descriptors, err := report.Descriptors(l.opts)
	if err != nil {
		return err
	}
	l.descriptors = descriptors

	f := l.recorder.Filter()
	for _, dir := range l.opts.Whitelist {
		f.IncludeDirectory(dir)
	}
	for _, dir := range l.opts.Blacklist {
		f.ExcludeDirectory(dir)
	}
	for _, file := range l.opts.WhitelistFiles {
		f.IncludeFile(file)
	}
	for _, file := range l.opts.BlacklistFiles {
		f.ExcludeFile(file)
	}

	l.state = StateSuiteConfigured
	logger.Debug("suite: configured %d report format(s), output dir %s", len(descriptors), l.opts.OutputDir)
	return nil
}

// OnExampleStart begins recording ex.
func (l *Listener) OnExampleStart(ex Example) error {
	if l.state != StateSuiteConfigured {
		return l.invalid("start example")
	}
	if l.aborted {
		return &coverage.InvalidStateError{Op: "start example", Reason: "suite was aborted"}
	}

	name := ex.SessionName()
	if err := l.recorder.Start(name); err != nil {
		return err
	}
	l.current = name
	l.startedAt = time.Now()
	l.state = StateExampleRecording
	l.metrics.SessionStarted()
	return nil
}

// OnExampleEnd stops the active session. The listener returns to
// StateSuiteConfigured even if the recorder fails.
func (l *Listener) OnExampleEnd() error {
	if l.state != StateExampleRecording {
		return l.invalid("end example")
	}
	l.state = StateSuiteConfigured
	l.current = ""
	l.metrics.SessionStopped(time.Since(l.startedAt))
	return l.recorder.Stop()
}

// RunExample brackets fn with OnExampleStart and OnExampleEnd. The session
// is closed on every exit path of fn, including a panic, which is
// recovered and returned as an error.
func (l *Listener) RunExample(ex Example, fn func() error) (err error) {
	if err := l.OnExampleStart(ex); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			err = multierr.Append(err, fmt.Errorf("example %s panicked: %v", ex.SessionName(), p))
		}
		err = multierr.Append(err, l.OnExampleEnd())
	}()
	return fn()
}

// Abort marks the suite as cut short, closing the active session if there
// is one. OnSuiteEnd still generates reports but flags them as partial.
func (l *Listener) Abort(reason string) error {
	if l.state != StateSuiteConfigured && l.state != StateExampleRecording {
		return l.invalid("abort suite")
	}

	var err error
	if l.state == StateExampleRecording {
		logger.Warn("suite: aborting while %s is recording", l.current)
		err = l.OnExampleEnd()
	}
	l.aborted = true
	l.abortReason = reason
	logger.Warn("suite: aborted: %s", reason)
	return err
}

// OnSuiteEnd creates the output directory and generates every configured
// report in declared order. A failing format is reported and does not stop
// the others; all failures are returned combined. ctx is checked between
// formats.
func (l *Listener) OnSuiteEnd(ctx context.Context) error {
	if l.state != StateSuiteConfigured {
		return l.invalid("end suite")
	}
	l.state = StateReportsGenerated

	var errs error
	if err := os.MkdirAll(l.opts.OutputDir, 0755); err != nil {
		logger.Error("suite: failed to create output directory %s: %v", l.opts.OutputDir, err)
		errs = multierr.Append(errs, fmt.Errorf("failed to create output directory: %w", err))
	}

	if l.aborted {
		l.console.WriteLine("")
		l.console.WriteLine(fmt.Sprintf("Code coverage is partial: suite aborted (%s)", l.abortReason))
	}

	model := l.recorder.Model()
	total := model.Summary()
	l.metrics.SetLines(total.ExecutableLines, total.ExecutedLines)
	l.metrics.SetAborted(l.aborted)

	errs = multierr.Append(errs, Generate(ctx, l.descriptors, model, l.console, l.metrics))

	if l.opts.MetricsFile != "" {
		if err := l.metrics.WriteTextfile(l.opts.MetricsFile); err != nil {
			logger.Error("suite: %v", err)
			errs = multierr.Append(errs, err)
		}
	}

	if l.aborted {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrSuiteAborted, l.abortReason))
	}
	return errs
}
