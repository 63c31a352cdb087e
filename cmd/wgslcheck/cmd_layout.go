package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/HugoDaniel/wgslcheck/internal/config"
	"github.com/HugoDaniel/wgslcheck/pkg/api"
)

type cmdLayout struct {
	configFlags
	json       bool
	structName string
}

func (*cmdLayout) help() *commandHelp {
	return &commandHelp{
		usage:   "layout [options] PROGRAM.json",
		summary: "Print struct memory layouts and bindings",
		args:    cobra.ExactArgs(1),
	}
}

func (cmd *cmdLayout) flags(flags *pflag.FlagSet) {
	cmd.configFlags.register(flags)
	flags.BoolVar(&cmd.json, "json", false, "print layouts and bindings as JSON")
	flags.StringVarP(&cmd.structName, "struct", "s", "", "only print the struct `name`")
}

func (cmd *cmdLayout) run(ctx context.Context, argv []string) int {
	opts, err := cmd.load(argv[0], config.MergeOptions{})
	if err != nil {
		errorf("%v", err)
		return 1
	}

	result, err := api.LayoutFile(argv[0], apiOptions(opts))
	if err != nil {
		errorf("%v", err)
		return 1
	}
	if len(result.Diagnostics) > 0 {
		for _, d := range result.Diagnostics {
			fmt.Fprintf(os.Stderr, "%s:%d:%d %s: %s\n", argv[0], d.Line, d.Column, d.Severity, d.Message)
		}
		return 1
	}

	structs := result.Structs
	if cmd.structName != "" {
		structs = nil
		for _, s := range result.Structs {
			if s.Name == cmd.structName {
				structs = append(structs, s)
			}
		}
		if len(structs) == 0 {
			errorf("no struct named '%s' in %s", cmd.structName, argv[0])
			return 1
		}
	}

	if cmd.json {
		err = writeLayoutJSON(os.Stdout, structs, result.Reflection, cmd.structName == "")
	} else {
		err = writeDiagrams(os.Stdout, structs)
	}
	if err != nil {
		errorf("%v", err)
		return 1
	}
	return 0
}

func writeDiagrams(w io.Writer, structs []api.StructDiagram) error {
	for i, s := range structs {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, s.Diagram); err != nil {
			return err
		}
	}
	return nil
}

func writeLayoutJSON(w io.Writer, structs []api.StructDiagram, refl api.ReflectResult, withBindings bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	layouts := make([]api.StructLayout, 0, len(structs))
	for _, s := range structs {
		layouts = append(layouts, s.Layout)
	}
	if !withBindings {
		return enc.Encode(layouts)
	}
	return enc.Encode(struct {
		Structs     []api.StructLayout   `json:"structs"`
		Bindings    []api.BindingInfo    `json:"bindings"`
		EntryPoints []api.EntryPointInfo `json:"entryPoints"`
	}{layouts, refl.Bindings, refl.EntryPoints})
}
