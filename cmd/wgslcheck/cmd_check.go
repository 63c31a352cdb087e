package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/HugoDaniel/wgslcheck/internal/config"
	"github.com/HugoDaniel/wgslcheck/internal/term"
	"github.com/HugoDaniel/wgslcheck/pkg/api"
)

type cmdCheck struct {
	configFlags
	format     string
	color      string
	extensions []string
	maxErrors  int
	watch      bool

	fs *pflag.FlagSet
}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check [options] PROGRAM.json...",
		summary: "Validate address spaces, layouts and pointer aliasing",
		long: `Validate address spaces, layouts and pointer aliasing.

Each program is checked with the config nearest to it, found by walking up
from the program's directory. --config applies one file to every program.
Output format, color and logging come from the first program's config.`,
		args: cobra.MinimumNArgs(1),
	}
}

func (cmd *cmdCheck) flags(flags *pflag.FlagSet) {
	cmd.fs = flags
	cmd.configFlags.register(flags)
	flags.StringVarP(&cmd.format, "format", "f", "", "output `format`: text or json")
	flags.StringVar(&cmd.color, "color", "", "colored output: auto, always or never")
	flags.StringSliceVar(&cmd.extensions, "enable", nil, "enable an `extension` for every program")
	flags.IntVar(&cmd.maxErrors, "max-errors", 0, "stop after `n` errors per program")
	flags.BoolVarP(&cmd.watch, "watch", "w", false, "re-check programs when they change")
}

// checked is the outcome of checking one file.
type checked struct {
	path   string
	result *api.CheckResult
	err    error
}

func (cmd *cmdCheck) run(ctx context.Context, argv []string) int {
	cli := config.MergeOptions{
		Extensions: cmd.extensions,
		Format:     cmd.format,
		Color:      cmd.color,
	}
	if cmd.fs.Changed("max-errors") {
		cli.MaxErrors = &cmd.maxErrors
	}

	opts, err := cmd.load(argv[0], cli)
	if err != nil {
		errorf("%v", err)
		return 1
	}

	fileOpts, err := cmd.fileOptions(argv, cli)
	if err != nil {
		errorf("%v", err)
		return 1
	}

	failed := cmd.report(os.Stdout, opts, checkAll(ctx, argv, fileOpts))
	if !cmd.watch {
		if failed {
			return 1
		}
		return 0
	}

	if err := cmd.watchFiles(ctx, argv, opts, fileOpts); err != nil {
		errorf("%v", err)
		return 1
	}
	return 0
}

// checkAll checks every file concurrently with its options in opts. Results
// keep the input order.
func checkAll(ctx context.Context, paths []string, opts []api.Options) []checked {
	results := make([]checked, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = checked{path: path, err: err}
				return nil
			}
			res, err := api.CheckFile(path, opts[i])
			results[i] = checked{path: path, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// report writes the results and returns true if any file failed.
func (cmd *cmdCheck) report(w io.Writer, opts config.Options, results []checked) bool {
	failed := false
	for _, r := range results {
		if r.err != nil || !r.result.Valid {
			failed = true
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(w, results); err != nil {
			errorf("%v", err)
			return true
		}
		return failed
	}

	color := term.UseColor(opts.Color, os.Stdout)
	for _, r := range results {
		if r.err != nil {
			errorf("%v", r.err)
			continue
		}
		if err := r.result.WriteText(w, r.path, color); err != nil {
			errorf("%v", err)
			return true
		}
	}
	return failed
}

type jsonReport struct {
	File        string           `json:"file"`
	Valid       bool             `json:"valid"`
	Error       string           `json:"error,omitempty"`
	Diagnostics []api.Diagnostic `json:"diagnostics"`
}

func writeJSON(w io.Writer, results []checked) error {
	out := make([]jsonReport, 0, len(results))
	for _, r := range results {
		rep := jsonReport{File: r.path, Diagnostics: []api.Diagnostic{}}
		if r.err != nil {
			rep.Error = r.err.Error()
		} else {
			rep.Valid = r.result.Valid
			for _, d := range r.result.Diagnostics {
				d.File = r.path
				rep.Diagnostics = append(rep.Diagnostics, d)
			}
		}
		out = append(out, rep)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(out), "encoding report")
}

// watchFiles re-checks a program whenever it is written. Directories are
// watched rather than files so that editors replacing the file by rename
// are picked up.
func (cmd *cmdCheck) watchFiles(ctx context.Context, paths []string, opts config.Options, fileOpts []api.Options) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer w.Close()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", p)
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return errors.Wrapf(err, "watching %s", dir)
			}
			dirs[dir] = true
		}
	}

	slog.Info("wgslcheck: watching for changes", "files", len(paths))
	byAbs := make(map[string]int, len(paths))
	for i, p := range paths {
		abs, _ := filepath.Abs(p)
		byAbs[abs] = i
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !watched[abs] {
				continue
			}
			slog.Debug("wgslcheck: program changed", "path", ev.Name, "op", ev.Op.String())
			i := byAbs[abs]
			cmd.report(os.Stdout, opts, checkAll(ctx, paths[i:i+1], fileOpts[i:i+1]))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("wgslcheck: watcher error", "err", err)
		}
	}
}
