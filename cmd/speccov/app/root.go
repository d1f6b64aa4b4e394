package app

import (
	"github.com/spf13/cobra"

	"github.com/zjy-dev/speccov/internal/config"
	"github.com/zjy-dev/speccov/internal/logger"
)

type globalOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

// NewSpeccovCommand creates the root command for the speccov tool.
func NewSpeccovCommand() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "speccov",
		Short: "Per-example code coverage for specification suites.",
		Long: `speccov records code coverage per example of a specification suite and
renders it as text, Clover XML, HTML or a mergeable snapshot.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(g.logLevel)
			logger.SetLevel(g.logLevel)
			logger.SetColorEnable(!g.noColor)
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to the configuration file (default: speccov.yaml in . or configs)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored log output")

	cmd.AddCommand(NewCollectCommand(g))
	cmd.AddCommand(NewRunCommand(g))
	cmd.AddCommand(NewMergeCommand())
	cmd.AddCommand(NewReportCommand(g))

	return cmd
}

// reportFlags are the output flags shared by collect and report.
type reportFlags struct {
	formats     []string
	outputDir   string
	metricsFile string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.formats, "format", nil, "Report formats (text, clover, php, html)")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Directory receiving file reports")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
}

// loadOptions reads the configuration, then applies the flags the user set.
func (f *reportFlags) loadOptions(cmd *cobra.Command, g *globalOptions) (*config.Options, error) {
	opts, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("format") {
		opts.Format = f.formats
	}
	if cmd.Flags().Changed("output-dir") {
		opts.OutputDir = f.outputDir
	}
	if cmd.Flags().Changed("metrics-file") {
		opts.MetricsFile = f.metricsFile
	}
	return opts, nil
}
