package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/HugoDaniel/wgslcheck/internal/config"
	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/pkg/api"
)

// configFlags are shared by the commands that read programs.
type configFlags struct {
	configFile string
	noConfig   bool
	verbose    bool
	minVersion string
}

func (f *configFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.configFile, "config", "", "use a specific config `file`")
	flags.BoolVar(&f.noConfig, "no-config", false, "ignore config files")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "log debug output to stderr")
	flags.StringVar(&f.minVersion, "min-program-version", "", "semver `constraint` program documents must satisfy")
}

// load finds the config for the first input and merges cli into it. Output
// and logging settings come from this config.
func (f *configFlags) load(firstInput string, cli config.MergeOptions) (config.Options, error) {
	opts, path, err := f.resolve(firstInput, cli)
	if err != nil {
		return opts, err
	}
	setupLogging(opts.LogLevel)
	if path != "" {
		slog.Debug("wgslcheck: using config", "path", path)
	}
	return opts, nil
}

// resolve merges cli into the config that applies to input: the --config
// file if given, else the nearest one above the input.
func (f *configFlags) resolve(input string, cli config.MergeOptions) (config.Options, string, error) {
	var (
		cfg  *config.Config
		path string
	)
	if !f.noConfig {
		var err error
		if f.configFile != "" {
			cfg, err = config.LoadFile(f.configFile)
			path = f.configFile
		} else {
			startDir, _ := os.Getwd()
			if input != "" {
				startDir = filepath.Dir(input)
			}
			cfg, path, err = config.Load(startDir)
		}
		if err != nil {
			return config.Options{}, "", errors.Wrap(err, "loading config")
		}
	}

	if f.verbose {
		cli.LogLevel = "debug"
	}
	if f.minVersion != "" {
		cli.MinProgramVersion = f.minVersion
	}
	opts, err := cfg.Merge(cli)
	return opts, path, err
}

// fileOptions resolves the checker options of every input from the config
// nearest to it, so inputs in different directories may differ.
func (f *configFlags) fileOptions(paths []string, cli config.MergeOptions) ([]api.Options, error) {
	out := make([]api.Options, len(paths))
	for i, p := range paths {
		opts, path, err := f.resolve(p, cli)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", p)
		}
		slog.Debug("wgslcheck: program config", "program", p, "config", path)
		out[i] = apiOptions(opts)
	}
	return out, nil
}

// setupLogging installs a text handler on stderr as the default logger and
// routes checker debug output to it.
func setupLogging(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	api.SetLogger(logger)
}

// apiOptions converts resolved options for pkg/api.
func apiOptions(o config.Options) api.Options {
	return api.Options{
		Extensions:        extensionNames(o.Validator.Extensions),
		AllowedExtensions: extensionNames(o.Validator.Allowed),
		MaxErrors:         o.Validator.MaxErrors,
		MinProgramVersion: o.MinProgramVersion,
	}
}

func extensionNames(set extension.Set) []string {
	var names []string
	for _, e := range set.Sorted() {
		names = append(names, e.String())
	}
	return names
}

func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
