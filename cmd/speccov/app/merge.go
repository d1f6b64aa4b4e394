package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/zjy-dev/speccov/internal/coverage"
	"github.com/zjy-dev/speccov/internal/report"
)

// NewMergeCommand creates the "merge" subcommand.
func NewMergeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <snapshot>...",
		Short: "Merge coverage snapshots from several runs.",
		Long: `Merge php-format coverage snapshots into one.

Executed lines and per-test attribution are united, so snapshots from
parallel workers or separate runs can be combined before rendering.

Examples:
  speccov merge -o coverage/all.php worker1/coverage.php worker2/coverage.php`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := mergeSnapshots(args)
			if err != nil {
				return err
			}
			if _, err := (&report.SnapshotGenerator{}).Process(merged, output); err != nil {
				return err
			}
			s := merged.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d snapshot(s): %d tests, %d/%d lines into %s\n",
				len(args), len(merged.Tests), s.ExecutedLines, s.ExecutableLines, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Merged snapshot path")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// mergeSnapshots loads every path and unites them. All load failures are
// reported together.
func mergeSnapshots(paths []string) (*coverage.Model, error) {
	merged := coverage.NewModel()
	var errs error
	for _, p := range paths {
		m, err := report.LoadSnapshot(p)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		merged.Merge(m)
	}
	if errs != nil {
		return nil, errs
	}
	return merged, nil
}
