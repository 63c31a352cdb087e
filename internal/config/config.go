// Package config handles loading wgslcheck configuration from files.
//
// Configuration can be specified in a JSON file named wgslcheck.json or
// .wgslcheckrc. The config file is searched for in the input's directory and
// its parent directories.
package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/internal/validator"
)

// Config represents the configuration file structure.
// All fields are optional and will use default values if not specified.
type Config struct {
	// Extensions are enabled for every checked program, in addition to
	// the program's own enable directives.
	Extensions []string `json:"extensions,omitempty"`

	// AllowedExtensions restricts which extensions programs may enable.
	// Empty allows all of them.
	AllowedExtensions []string `json:"allowedExtensions,omitempty"`

	// MaxErrors stops reporting after that many errors per program
	MaxErrors *int `json:"maxErrors,omitempty"`

	// Format of the diagnostics output: "text" or "json"
	Format string `json:"format,omitempty"`

	// Color controls colored output: "auto", "always" or "never"
	Color string `json:"color,omitempty"`

	// LogLevel is one of "debug", "info", "warn" or "error"
	LogLevel string `json:"logLevel,omitempty"`

	// MinProgramVersion is a semver constraint that program documents
	// must satisfy, e.g. ">= 1.1.0"
	MinProgramVersion string `json:"minProgramVersion,omitempty"`
}

// ConfigFileNames are the names searched for config files, in order of preference.
var ConfigFileNames = []string{
	"wgslcheck.json",
	".wgslcheckrc",
	".wgslcheckrc.json",
}

// Options is the resolved configuration of a check run.
type Options struct {
	Validator         validator.Options
	Format            string
	Color             string
	LogLevel          slog.Level
	MinProgramVersion string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Format:   "text",
		Color:    "auto",
		LogLevel: slog.LevelWarn,
	}
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, no config found
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}

	return &cfg, nil
}

// ToOptions converts a Config to Options, using defaults for unset fields.
// A nil Config yields the defaults.
func (c *Config) ToOptions() (Options, error) {
	opts := DefaultOptions()
	if c == nil {
		return opts, nil
	}

	var err error
	if opts.Validator.Extensions, err = parseExtensions(c.Extensions); err != nil {
		return opts, errors.Wrap(err, "extensions")
	}
	if opts.Validator.Allowed, err = parseExtensions(c.AllowedExtensions); err != nil {
		return opts, errors.Wrap(err, "allowedExtensions")
	}
	if c.MaxErrors != nil {
		if *c.MaxErrors < 0 {
			return opts, errors.Errorf("maxErrors must not be negative, got %d", *c.MaxErrors)
		}
		opts.Validator.MaxErrors = *c.MaxErrors
	}
	if err := opts.apply(c.Format, c.Color, c.LogLevel, c.MinProgramVersion); err != nil {
		return opts, err
	}
	return opts, nil
}

// MergeOptions holds the CLI flags that override config file values.
type MergeOptions struct {
	// CLI flags (zero values mean not specified on CLI)
	Extensions        []string
	MaxErrors         *int
	Format            string
	Color             string
	LogLevel          string
	MinProgramVersion string
}

// Merge merges CLI options with config file options.
// CLI options override config file options when specified.
func (c *Config) Merge(cli MergeOptions) (Options, error) {
	opts, err := c.ToOptions()
	if err != nil {
		return opts, err
	}

	if len(cli.Extensions) > 0 {
		// CLI extensions add to the configured ones
		exts, err := parseExtensions(cli.Extensions)
		if err != nil {
			return opts, errors.Wrap(err, "--enable")
		}
		opts.Validator.Extensions = opts.Validator.Extensions.Union(exts)
	}
	if cli.MaxErrors != nil {
		if *cli.MaxErrors < 0 {
			return opts, errors.Errorf("--max-errors must not be negative, got %d", *cli.MaxErrors)
		}
		opts.Validator.MaxErrors = *cli.MaxErrors
	}
	if err := opts.apply(cli.Format, cli.Color, cli.LogLevel, cli.MinProgramVersion); err != nil {
		return opts, err
	}
	return opts, nil
}

// apply overrides the string options that are set.
func (o *Options) apply(format, color, logLevel, minVersion string) error {
	switch format {
	case "":
	case "text", "json":
		o.Format = format
	default:
		return errors.Errorf("unknown format %q, expected text or json", format)
	}

	switch color {
	case "":
	case "auto", "always", "never":
		o.Color = color
	default:
		return errors.Errorf("unknown color mode %q, expected auto, always or never", color)
	}

	if logLevel != "" {
		if err := o.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return errors.Wrapf(err, "log level %q", logLevel)
		}
	}

	if minVersion != "" {
		if _, err := semver.NewConstraint(minVersion); err != nil {
			return errors.Wrapf(err, "minProgramVersion %q", minVersion)
		}
		o.MinProgramVersion = minVersion
	}
	return nil
}

func parseExtensions(names []string) (extension.Set, error) {
	set := extension.NewSet()
	for _, name := range names {
		ext := extension.Parse(strings.TrimSpace(name))
		if ext == extension.Undefined {
			return nil, errors.Errorf("unknown extension %q", name)
		}
		set.Add(ext)
	}
	return set, nil
}
