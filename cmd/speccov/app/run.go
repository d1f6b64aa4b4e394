package app

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/zjy-dev/speccov/internal/config"
	"github.com/zjy-dev/speccov/internal/coverage"
	"github.com/zjy-dev/speccov/internal/exec"
	"github.com/zjy-dev/speccov/internal/logger"
	"github.com/zjy-dev/speccov/internal/suite"
)

// NewRunCommand creates the "run" subcommand.
func NewRunCommand(g *globalOptions) *cobra.Command {
	var (
		flags        reportFlags
		dir          string
		sourcePrefix string
		coverPkg     string
		goBin        string
	)

	cmd := &cobra.Command{
		Use:   "run [package]",
		Short: "Run a Go package's tests one by one and report per-test coverage.",
		Long: `Run every test and example of a Go package as a separate example of the
suite. Each test is executed with its own cover profile, so every covered
line is attributed to the tests that executed it.

A failing test does not stop the suite; its coverage is still recorded.

Examples:
  # Run the tests of ./calc, stripping the module path from file names
  speccov run ./calc --source-prefix example.com/calc --format text,html

  # Measure coverage of every package while running one package's tests
  speccov run ./calc --coverpkg ./...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.loadOptions(cmd, g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("source-prefix") {
				opts.SourcePrefix = sourcePrefix
			}

			pkg := "."
			if len(args) == 1 {
				pkg = args[0]
			}
			runner := &exec.GoTest{
				Exec:     exec.NewCommandExecutor(),
				Dir:      dir,
				Package:  pkg,
				GoBin:    goBin,
				CoverPkg: coverPkg,
			}
			return runTests(cmd, opts, runner)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to run go test in (default: working directory)")
	cmd.Flags().StringVar(&sourcePrefix, "source-prefix", "", "Import path prefix stripped from profile file names")
	cmd.Flags().StringVar(&coverPkg, "coverpkg", "", "Packages to instrument, passed to go test -coverpkg")
	cmd.Flags().StringVar(&goBin, "go", "go", "Go command used to run the tests")

	return cmd
}

func runTests(cmd *cobra.Command, opts *config.Options, runner *exec.GoTest) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	names, err := runner.List(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no tests found in %s", runner.Package)
	}

	profiles, err := os.MkdirTemp("", "speccov-profiles-")
	if err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	defer os.RemoveAll(profiles)

	paths := make(map[string]string, len(names))
	resolve := func(session string) (string, error) {
		p, ok := paths[session]
		if !ok {
			return "", fmt.Errorf("no profile recorded for %s", session)
		}
		return p, nil
	}
	recorder := coverage.NewRecorder(coverage.NewProfileDriver(resolve, opts.SourcePrefix), nil)
	listener := suite.NewListener(opts, recorder, suite.NewWriterConsole(cmd.OutOrStdout()))

	if err := listener.OnSuiteStart(); err != nil {
		return err
	}
	logger.Info("[Run] %d test(s) in %s", len(names), runner.Package)

	var errs error
	failed := 0
	for i, name := range names {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, listener.Abort("interrupted"))
			break
		}

		ex := suite.Example{Specification: runner.Package, Name: name}
		profile := filepath.Join(profiles, fmt.Sprintf("%04d.out", i))
		paths[ex.SessionName()] = profile

		err := listener.RunExample(ex, func() error {
			res, err := runner.Run(ctx, name, profile)
			if err != nil {
				return err
			}
			if res.ExitCode != 0 {
				failed++
				logger.Warn("[Run] %s failed (exit %d)", name, res.ExitCode)
			}
			return nil
		})
		if err != nil {
			logger.Error("[Run] %s: %v", ex.SessionName(), err)
			errs = multierr.Append(errs, err)
			errs = multierr.Append(errs, listener.Abort(fmt.Sprintf("failed to record %s", ex.SessionName())))
			break
		}
	}

	errs = multierr.Append(errs, listener.OnSuiteEnd(ctx))
	if failed > 0 {
		logger.Warn("[Run] %d of %d test(s) failed", failed, len(names))
	}
	return errs
}
