package main

import (
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ksco/sboxld/pkg/linker"
	"github.com/ksco/sboxld/pkg/utils"
)

var version = "dev"

func main() {
	ctx := linker.NewContext()
	cmd := newRootCommand(ctx, afero.NewOsFs())

	if err := cmd.Execute(); err != nil {
		level.Debug(ctx.Logger).Log("msg", "composition failed", "err", fmt.Sprintf("%+v", err))
		utils.Fatal(err)
	}
}

func newLogger(w io.Writer, verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}

func newRootCommand(ctx *linker.Context, fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sboxld [options] <module> <host> [file...]",
		Short: "Embed a module's segments into an isolated address window of a host shared object",
		Long: `sboxld appends the PT_LOAD segments of <module> to <host> at a fresh,
page-aligned virtual address window past the host's highest address. The window
is surrounded by guard regions and spans 4 GiB from the module's base. New
segments take the PT_NULL slots of the host's program-header table.`,
		Version:       version,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx.Arg.Inputs = args
			ctx.Logger = newLogger(cmd.ErrOrStderr(), ctx.Arg.Verbose)
			defer ctx.Close()

			if ctx.Arg.Verbose {
				fmt.Fprintln(cmd.OutOrStdout(), "Verbose mode enabled")
			}

			if err := linker.Link(ctx, fs); err != nil {
				return err
			}

			if ctx.Arg.Verbose {
				linker.WriteLayout(cmd.OutOrStdout(), ctx)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Modified ELF written to %s\n", ctx.Arg.Output)
			return nil
		},
	}

	addFlags(cmd.Flags(), &ctx.Arg)
	cmd.AddCommand(newGenSymCommand(fs))
	return cmd
}

func newGenSymCommand(fs afero.Fs) *cobra.Command {
	var prefix, output string
	cmd := &cobra.Command{
		Use:   "gen-sym [options]",
		Short: "Write C declarations for the symbols marking the module window",
		Long: `gen-sym writes a C file declaring <prefix>_base, <prefix>_end and
<prefix>_entry, which host code uses to refer to the embedded module.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := linker.GenerateSymbolStubs(fs, output, prefix); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Symbol declarations written to %s\n", output)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&prefix, "prefix", linker.DefaultSymbolPrefix, "Library name to prefix on all symbols")
	flags.StringVarP(&output, "output", "o", "lib.c", "Output `file`")
	return cmd
}

func addFlags(flags *pflag.FlagSet, arg *linker.ContextArg) {
	flags.StringVarP(&arg.Output, "output", "o", arg.Output, "Output `file`")
	flags.BoolVarP(&arg.Verbose, "verbose", "V", arg.Verbose, "Verbose output")
}
