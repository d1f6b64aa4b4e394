package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/zjy-dev/speccov/internal/metrics"
	"github.com/zjy-dev/speccov/internal/report"
	"github.com/zjy-dev/speccov/internal/suite"
)

// NewReportCommand creates the "report" subcommand.
func NewReportCommand(g *globalOptions) *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report <snapshot>",
		Short: "Render reports from a coverage snapshot.",
		Long: `Render the configured report formats from a php-format snapshot, for
example one produced by "speccov merge".

Examples:
  speccov report coverage/all.php --format html,clover`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.loadOptions(cmd, g)
			if err != nil {
				return err
			}
			descriptors, err := report.Descriptors(opts)
			if err != nil {
				return err
			}
			model, err := report.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			m := metrics.New()
			s := model.Summary()
			m.SetLines(s.ExecutableLines, s.ExecutedLines)
			errs := suite.Generate(cmd.Context(), descriptors, model, suite.NewWriterConsole(cmd.OutOrStdout()), m)
			if opts.MetricsFile != "" {
				errs = multierr.Append(errs, m.WriteTextfile(opts.MetricsFile))
			}
			return errs
		},
	}

	flags.register(cmd)

	return cmd
}
