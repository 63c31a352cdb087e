// Command wgslcheck validates WGSL programs given as JSON program documents.
//
// Usage:
//
//	wgslcheck check [options] <program.json>...
//	wgslcheck layout [options] <program.json>
//	wgslcheck version
//
// Config file:
//
//	wgslcheck looks for wgslcheck.json or .wgslcheckrc in the input's
//	directory and its parents. Config file options are overridden by CLI
//	flags.
//
// Example wgslcheck.json:
//
//	{
//	    "extensions": ["f16"],
//	    "maxErrors": 10,
//	    "color": "never"
//	}
package main

import (
	"context"
	stdflag "flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
	long    string
	args    cobra.PositionalArgs
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "wgslcheck [options] COMMAND",
		Short: "Check WGSL memory layouts, address spaces and pointer aliasing",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, rootCmd.UsageString())
		os.Exit(1)
		return nil
	}

	commands := []command{
		&cmdCheck{},
		&cmdLayout{},
		&cmdVersion{},
	}
	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			Long:  help.long,
			Args:  help.args,
			RunE: func(_ *cobra.Command, args []string) error {
				code := cmd.run(ctx, args)
				stop()
				os.Exit(code)
				return nil
			},
		}
		rootCmd.AddCommand(cobraCmd)
		cmd.flags(cobraCmd.Flags())
	}

	rootCmd.PersistentFlags().AddGoFlagSet(stdflag.CommandLine)
	if _, err := rootCmd.ExecuteContextC(ctx); err != nil {
		os.Exit(1)
	}
}
