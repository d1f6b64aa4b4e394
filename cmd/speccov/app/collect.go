package app

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/zjy-dev/speccov/internal/config"
	"github.com/zjy-dev/speccov/internal/coverage"
	"github.com/zjy-dev/speccov/internal/logger"
	"github.com/zjy-dev/speccov/internal/suite"
)

// NewCollectCommand creates the "collect" subcommand.
func NewCollectCommand(g *globalOptions) *cobra.Command {
	var (
		flags        reportFlags
		spec         string
		sourcePrefix string
		printConfig  bool
	)

	cmd := &cobra.Command{
		Use:   "collect <profiles-dir>",
		Short: "Build coverage reports from per-example cover profiles.",
		Long: `Build coverage reports from a directory of per-example Go cover profiles.

Every <Example>.out file in the directory is one example of the suite; its
lines are attributed to the session "<spec>::<Example>". The suite runs
through the full lifecycle: the filter is configured from the whitelist and
blacklist, each profile is recorded as a session, and every configured
report format is generated at the end.

Configuration:
  Defaults are loaded from speccov.yaml under the 'code_coverage' section.
  Command line flags override the config file values.

Examples:
  # Collect with the configured formats
  speccov collect profiles/ --spec CalculatorSpec

  # Strip the module path and print a text summary
  speccov collect profiles/ --source-prefix example.com/calc --format text

  # Show the effective configuration
  speccov collect --print-config`,
		Args: func(cmd *cobra.Command, args []string) error {
			if printConfig {
				return cobra.MaximumNArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.loadOptions(cmd, g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("source-prefix") {
				opts.SourcePrefix = sourcePrefix
			}

			if printConfig {
				out, err := opts.YAML()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			dir := args[0]
			if spec == "" {
				spec = filepath.Base(filepath.Clean(dir))
			}
			return runCollect(cmd, opts, dir, spec)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&spec, "spec", "", "Specification identifier used in session names (default: directory name)")
	cmd.Flags().StringVar(&sourcePrefix, "source-prefix", "", "Import path prefix stripped from profile file names")
	cmd.Flags().BoolVar(&printConfig, "print-config", false, "Print the effective configuration and exit")

	return cmd
}

// profileExamples lists the examples of dir, keyed by session name, in file
// name order.
func profileExamples(dir, spec string) ([]suite.Example, map[string]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.out"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no cover profiles (*.out) found in %s", dir)
	}

	examples := make([]suite.Example, 0, len(files))
	paths := make(map[string]string, len(files))
	for _, f := range files {
		ex := suite.Example{
			Specification: spec,
			Name:          strings.TrimSuffix(filepath.Base(f), ".out"),
		}
		examples = append(examples, ex)
		paths[ex.SessionName()] = f
	}
	return examples, paths, nil
}

func runCollect(cmd *cobra.Command, opts *config.Options, dir, spec string) error {
	examples, paths, err := profileExamples(dir, spec)
	if err != nil {
		return err
	}

	resolve := func(session string) (string, error) {
		p, ok := paths[session]
		if !ok {
			return "", fmt.Errorf("no profile recorded for %s", session)
		}
		return p, nil
	}
	driver := coverage.NewProfileDriver(resolve, opts.SourcePrefix)
	recorder := coverage.NewRecorder(driver, nil)
	listener := suite.NewListener(opts, recorder, suite.NewWriterConsole(cmd.OutOrStdout()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := listener.OnSuiteStart(); err != nil {
		return err
	}
	logger.Info("[Collect] %d example(s) of %s", len(examples), spec)

	var errs error
	for _, ex := range examples {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, listener.Abort("interrupted"))
			break
		}
		// The example already ran; its session replays the recorded profile.
		if err := listener.RunExample(ex, func() error { return nil }); err != nil {
			logger.Error("[Collect] %s: %v", ex.SessionName(), err)
			errs = multierr.Append(errs, err)
			errs = multierr.Append(errs, listener.Abort(fmt.Sprintf("failed to record %s", ex.SessionName())))
			break
		}
	}

	return multierr.Append(errs, listener.OnSuiteEnd(ctx))
}
