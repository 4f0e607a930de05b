// Command hpoextend extends phenotype annotation files with the term name and
// top-level category of every annotated HPO term.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
	appName = "hpoextend"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "hpoextend <hp.obo> <annotations.tab> <out.csv>",
		Short: "Extend phenotype annotations with HPO categories",
		Long: `hpoextend reads an HPO ontology in OBO format and a tab-separated
annotation file whose fifth column is an HPO term id. For every category
(direct child of the category root, HP:0000118 by default) the term falls
under, one CSV row is written: the first five input fields, the term name,
the category id and name, then the remaining input fields.

Lines whose term falls under no category are dropped. An unknown term id or
a line with fewer than five fields aborts the run.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtend(cmd, opts, args[0], args[1], args[2])
		},
	}

	opts.register(cmd)

	cmd.AddCommand(
		newNamesCmd(opts),
		newServeCmd(opts),
		newBrowseCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}
