// Package config loads the code_coverage options with viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Section is the top-level key holding the coverage options.
const Section = "code_coverage"

// Defaults applied when the user leaves a key unset.
const (
	DefaultFormat     = "html"
	DefaultOutputDir  = "coverage"
	DefaultLowerBound = 35
	DefaultUpperBound = 70
)

// Options holds the coverage configuration. Defaults are merged with user
// values key by key; user values win.
type Options struct {
	Format             []string          `mapstructure:"-" yaml:"format"`
	Whitelist          []string          `mapstructure:"whitelist" yaml:"whitelist"`
	Blacklist          []string          `mapstructure:"blacklist" yaml:"blacklist"`
	WhitelistFiles     []string          `mapstructure:"whitelist_files" yaml:"whitelist_files"`
	BlacklistFiles     []string          `mapstructure:"blacklist_files" yaml:"blacklist_files"`
	OutputDir          string            `mapstructure:"output_dir" yaml:"output_dir"`
	OutputFiles        map[string]string `mapstructure:"output_files" yaml:"output_files"`
	ShowUncoveredFiles bool              `mapstructure:"show_uncovered_files" yaml:"show_uncovered_files"`
	LowerUpperBound    int               `mapstructure:"lower_upper_bound" yaml:"lower_upper_bound"`
	HighLowerBound     int               `mapstructure:"high_lower_bound" yaml:"high_lower_bound"`

	// ShowColors enables ANSI color banding in the text report.
	ShowColors bool `mapstructure:"show_colors" yaml:"show_colors"`
	// StrictFormats turns unknown format names into a ConfigurationError
	// instead of falling back to html.
	StrictFormats bool `mapstructure:"strict_formats" yaml:"strict_formats"`
	// MetricsFile, when set, receives suite metrics in the Prometheus text format.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`
	// SourcePrefix is stripped from profile file names (usually the module path).
	SourcePrefix string `mapstructure:"source_prefix" yaml:"source_prefix,omitempty"`
}

// ConfigurationError reports an invalid option. It is raised before any
// example runs.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid coverage configuration %q: %s", e.Key, e.Reason)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func key(k string) string { return Section + "." + k }

func setDefaults(v *viper.Viper) {
	v.SetDefault(key("format"), DefaultFormat)
	v.SetDefault(key("whitelist"), []string{"src", "lib"})
	v.SetDefault(key("blacklist"), []string{"vendor", "spec"})
	v.SetDefault(key("whitelist_files"), []string{})
	v.SetDefault(key("blacklist_files"), []string{})
	v.SetDefault(key("output_dir"), DefaultOutputDir)
	v.SetDefault(key("output_files.clover"), "coverage.xml")
	v.SetDefault(key("output_files.php"), "coverage.php")
	v.SetDefault(key("output_files.text"), "coverage.txt")
	v.SetDefault(key("show_uncovered_files"), true)
	v.SetDefault(key("lower_upper_bound"), DefaultLowerBound)
	v.SetDefault(key("high_lower_bound"), DefaultUpperBound)
	v.SetDefault(key("show_colors"), true)
	v.SetDefault(key("strict_formats"), false)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	return v
}

// Default returns the options used when no configuration is supplied.
func Default() *Options {
	opts, err := decode(newViper())
	if err != nil {
		panic(err) // static defaults always decode
	}
	return opts
}

// Load reads the options from a YAML file. When path is empty, a file named
// "speccov.yaml" is searched in the working directory and in "configs";
// a missing file then yields the defaults.
func Load(path string) (*Options, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return decode(v)
	}

	v.SetConfigName("speccov")
	v.AddConfigPath(".")
	v.AddConfigPath("configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return decode(v)
}

// FromMap builds options from an in-memory record shaped like the
// code_coverage section, merged over the defaults.
func FromMap(values map[string]interface{}) (*Options, error) {
	v := newViper()
	if err := v.MergeConfigMap(map[string]interface{}{Section: values}); err != nil {
		return nil, fmt.Errorf("failed to merge config values: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Options, error) {
	// Unmarshal walks every leaf key, so nested defaults such as
	// output_files.php survive a user map that only sets output_files.clover.
	var doc struct {
		Options Options `mapstructure:"code_coverage"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	opts := doc.Options

	formats, err := cast.ToStringSliceE(v.Get(key("format")))
	if err != nil {
		return nil, &ConfigurationError{Key: "format", Reason: err.Error()}
	}
	opts.Format = normalizeFormats(formats)

	if opts.OutputFiles == nil {
		opts.OutputFiles = map[string]string{}
	}
	return &opts, nil
}

// normalizeFormats lower-cases names and drops blanks and repeats while
// preserving the declared order.
func normalizeFormats(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Validate checks the options that must hold before recording begins.
func (o *Options) Validate() error {
	if len(o.Format) == 0 {
		return &ConfigurationError{Key: "format", Reason: "at least one report format is required"}
	}
	if strings.TrimSpace(o.OutputDir) == "" {
		return &ConfigurationError{Key: "output_dir", Reason: "must not be empty"}
	}
	if o.LowerUpperBound < 0 || o.LowerUpperBound > 100 {
		return &ConfigurationError{Key: "lower_upper_bound", Reason: fmt.Sprintf("%d is outside 0..100", o.LowerUpperBound)}
	}
	if o.HighLowerBound < 0 || o.HighLowerBound > 100 {
		return &ConfigurationError{Key: "high_lower_bound", Reason: fmt.Sprintf("%d is outside 0..100", o.HighLowerBound)}
	}
	if o.LowerUpperBound >= o.HighLowerBound {
		return &ConfigurationError{
			Key:    "lower_upper_bound",
			Reason: fmt.Sprintf("must be lower than high_lower_bound (%d >= %d)", o.LowerUpperBound, o.HighLowerBound),
		}
	}
	return nil
}

// OutputFile returns the destination file for a single-file format, or an
// empty string when no file name is configured for it.
func (o *Options) OutputFile(format string) string {
	name := o.OutputFiles[format]
	if name == "" {
		return ""
	}
	return filepath.Join(o.OutputDir, name)
}

// YAML renders the effective options as a code_coverage document.
func (o *Options) YAML() ([]byte, error) {
	out, err := yaml.Marshal(map[string]*Options{Section: o})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal options: %w", err)
	}
	return out, nil
}
