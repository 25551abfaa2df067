package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dreamware/tuplestore/internal/api"
	"github.com/dreamware/tuplestore/internal/query"
	"github.com/dreamware/tuplestore/internal/storage"
)

// NewInsertCommand creates the insert command.
func NewInsertCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <first> <second> <third>",
		Short: "Insert a record and print its ID",
		Example: `  recordctl insert 0 a 1
  recordctl --shard 2 insert 4 "hello world" 5`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFields(args)
			if err != nil {
				return err
			}

			id, err := opts.client().Insert(cmd.Context(), f)
			if err != nil {
				return WrapExitError(ExitFailure, "insert failed", err)
			}
			return opts.formatter(cmd).Success(api.InsertResponse{ID: id}, strconv.FormatInt(int64(id), 10))
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			f, err := opts.client().Get(cmd.Context(), id)
			if err != nil {
				return WrapExitError(ExitFailure, "get failed", err)
			}
			return opts.formatter(cmd).Success(api.RecordResponse{ID: id, Fields: f}, formatFields(id, f))
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <first> <second> <third>",
		Short: "Replace the fields of a live record",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := parseFields(args[1:])
			if err != nil {
				return err
			}

			if err := opts.client().Update(cmd.Context(), id, f); err != nil {
				return WrapExitError(ExitFailure, "update failed", err)
			}
			return opts.formatter(cmd).Success(api.RecordResponse{ID: id, Fields: f}, formatFields(id, f))
		},
	}
}

// RemoveResult is the JSON payload of the remove command.
// Removal is idempotent, so it names the ID without claiming a record existed.
type RemoveResult struct {
	RemovedID storage.ID `json:"removed_id"`
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a record (unknown IDs are ignored)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := opts.client().Remove(cmd.Context(), id); err != nil {
				return WrapExitError(ExitFailure, "remove failed", err)
			}
			return opts.formatter(cmd).Success(RemoveResult{RemovedID: id}, fmt.Sprintf("removed %d", id))
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var from, to int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print live IDs in ascending order",
		Example: `  recordctl list
  recordctl list --from 100 --to 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids []storage.ID
			var err error
			if cmd.Flags().Changed("from") || cmd.Flags().Changed("to") {
				ids, err = opts.client().ListRange(cmd.Context(), storage.ID(from), storage.ID(to))
			} else {
				ids, err = opts.client().List(cmd.Context())
			}
			if err != nil {
				return WrapExitError(ExitFailure, "list failed", err)
			}
			return opts.formatter(cmd).Success(api.IDsResponse{IDs: ids, Count: len(ids)}, fmt.Sprint(ids))
		},
	}
	cmd.Flags().Int64Var(&from, "from", 0, "first ID of the range (inclusive)")
	cmd.Flags().Int64Var(&to, "to", math.MaxInt64, "end of the range (exclusive)")
	return cmd
}

// NewPruneCommand creates the prune command.
func NewPruneCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune <from> <to>",
		Short: "Remove every record with an ID in [from, to)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseID(args[0])
			if err != nil {
				return err
			}
			to, err := parseID(args[1])
			if err != nil {
				return err
			}

			n, err := opts.client().RemoveRange(cmd.Context(), from, to)
			if err != nil {
				return WrapExitError(ExitFailure, "prune failed", err)
			}
			return opts.formatter(cmd).Success(api.RemoveRangeResponse{Removed: n}, fmt.Sprintf("removed %d records", n))
		},
	}
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [condition...]",
		Short: "Print IDs of records matching all conditions",
		Long: `Print, in ascending order, the IDs of live records matching every condition.

A condition has the form field[%mod]<op>value where field is id, first,
second or third and op is one of == != < <= > >= ^= (prefix) ~= (contains).
With no conditions every live ID is printed.`,
		Example: `  recordctl filter 'first%4==0'
  recordctl filter 'id>=10' 'second^=ab'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conds, err := query.ParseConditions(args)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid condition", err)
			}

			ids, err := opts.client().Filter(cmd.Context(), conds)
			if err != nil {
				return WrapExitError(ExitFailure, "filter failed", err)
			}
			return opts.formatter(cmd).Success(api.IDsResponse{IDs: ids, Count: len(ids)}, fmt.Sprint(ids))
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print shard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := opts.client().Stats(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "stats failed", err)
			}
			text := fmt.Sprintf("shard %d: live=%d next_id=%d retired=%d inserts=%d gets=%d updates=%d removes=%d filters=%d",
				stats.ShardID, stats.Storage.Live, stats.Storage.NextID, stats.Storage.Retired,
				stats.Ops.Inserts, stats.Ops.Gets, stats.Ops.Updates, stats.Ops.Removes, stats.Ops.Filters)
			return opts.formatter(cmd).Success(stats, text)
		},
	}
}

func parseID(s string) (storage.ID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid id", err)
	}
	return storage.ID(id), nil
}

func parseFields(args []string) (api.Fields, error) {
	first, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return api.Fields{}, WrapExitError(ExitCommandError, "invalid first field", err)
	}
	third, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return api.Fields{}, WrapExitError(ExitCommandError, "invalid third field", err)
	}
	return api.Fields{First: first, Second: args[1], Third: third}, nil
}

func formatFields(id storage.ID, f api.Fields) string {
	return fmt.Sprintf("%d: (%d, %q, %d)", id, f.First, f.Second, f.Third)
}
