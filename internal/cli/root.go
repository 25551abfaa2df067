// Package cli implements recordctl, the command-line client for recordd.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"

	"github.com/dreamware/tuplestore/internal/api"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Addr   string // recordd base URL
	Shard  int    // shard number
	Format string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for recordctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "recordctl",
		Short: "recordctl - tuplestore client",
		Long:  "Insert, fetch, update, remove and filter records held by a recordd node.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flags",
					fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Shard < 0 {
				return WrapExitError(ExitCommandError, "invalid flags",
					fmt.Errorf("shard must not be negative, got %d", opts.Shard))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "http://127.0.0.1:8081", "recordd base URL")
	cmd.PersistentFlags().IntVar(&opts.Shard, "shard", 0, "shard number")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewPruneCommand(opts))
	cmd.AddCommand(NewFilterCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))

	return cmd
}

func (o *RootOptions) client() *api.Client {
	return api.NewClient(o.Addr, o.Shard)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
