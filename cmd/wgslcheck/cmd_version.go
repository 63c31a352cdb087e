package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/HugoDaniel/wgslcheck/internal/program"
)

type cmdVersion struct{}

func (*cmdVersion) help() *commandHelp {
	return &commandHelp{
		usage:   "version",
		summary: "Print version information",
		args:    cobra.NoArgs,
	}
}

func (*cmdVersion) flags(*pflag.FlagSet) {}

func (*cmdVersion) run(context.Context, []string) int {
	fmt.Printf("wgslcheck v%s (%s)\n", version, commit)
	fmt.Printf("program documents %s\n", program.Compatible)
	return 0
}
