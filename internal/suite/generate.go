package suite

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/zjy-dev/speccov/internal/coverage"
	"github.com/zjy-dev/speccov/internal/logger"
	"github.com/zjy-dev/speccov/internal/metrics"
	"github.com/zjy-dev/speccov/internal/report"
)

// Generate runs every descriptor against model in order, announcing each
// format on console. Text output goes to console, the other formats to their
// destinations. A failing format is reported and the rest still run; the
// combined failures are returned. Generation stops early once ctx is done.
// console and m may be nil.
func Generate(ctx context.Context, descriptors []report.Descriptor, model *coverage.Model, console Console, m *metrics.Metrics) error {
	if console == nil {
		console = nopConsole{}
	}

	var errs error
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("report generation interrupted: %w", err))
			break
		}

		console.WriteLine("")
		console.WriteLine(fmt.Sprintf("Generating code coverage report in %s format ...", d.Name))

		out, err := d.Generator.Process(model, d.Destination)
		m.ReportGenerated(d.Format.String(), err)
		if err != nil {
			logger.Error("suite: %v", err)
			console.WriteLine(fmt.Sprintf("Failed to generate %s report: %v", d.Name, err))
			errs = multierr.Append(errs, err)
			continue
		}
		if d.ToConsole() {
			console.WriteLine(out)
		}
		logger.Debug("suite: generated %s report", d.Name)
	}
	return errs
}
