package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dreamware/tuplestore/internal/query"
	"github.com/dreamware/tuplestore/internal/storage"
)

// DemoStep is one operation of the demo walkthrough.
// IDs is set only on filter steps, where an empty result encodes as [].
type DemoStep struct {
	Op     string        `json:"op"`
	Args   string        `json:"args"`
	ID     *storage.ID   `json:"id,omitempty"`
	IDs    *[]storage.ID `json:"ids,omitempty"`
	Error  string        `json:"error,omitempty"`
	Output string        `json:"-"`
}

// NewDemoCommand creates the demo command, which runs the reference
// insert/remove/filter walkthrough against an in-process table.
func NewDemoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the insert/remove/filter walkthrough locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := RunDemo()
			if err != nil {
				return WrapExitError(ExitFailure, "demo failed", err)
			}

			f := opts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(steps, "")
			}
			for _, s := range steps {
				if err := f.Success(nil, s.Output); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// RunDemo executes the walkthrough and returns its steps.
func RunDemo() ([]DemoStep, error) {
	db := storage.NewTable[int64, string, int64]()
	var steps []DemoStep

	insert := func(a int64, b string, c int64) {
		id := db.Insert(a, b, c)
		args := fmt.Sprintf("(%d, %q, %d)", a, b, c)
		steps = append(steps, DemoStep{
			Op: "insert", Args: args, ID: &id,
			Output: fmt.Sprintf("insert %s -> %d", args, id),
		})
	}
	remove := func(id storage.ID) {
		db.Remove(id)
		steps = append(steps, DemoStep{
			Op: "remove", Args: fmt.Sprint(id),
			Output: fmt.Sprintf("remove %d", id),
		})
	}
	get := func(id storage.ID) {
		s := DemoStep{Op: "get", Args: fmt.Sprint(id)}
		rec, err := db.Get(id)
		if err != nil {
			s.Error = err.Error()
			s.Output = fmt.Sprintf("get %d -> error: %v", id, err)
		} else {
			s.ID = &id
			s.Output = fmt.Sprintf("get %d -> (%d, %q, %d)", id, rec.First, rec.Second, rec.Third)
		}
		steps = append(steps, s)
	}
	filter := func(expr string) error {
		c, err := query.ParseCondition(expr)
		if err != nil {
			return err
		}
		pred, err := query.Compile([]query.Condition{c})
		if err != nil {
			return err
		}
		ids := db.Filter(pred)
		steps = append(steps, DemoStep{
			Op: "filter", Args: expr, IDs: &ids,
			Output: fmt.Sprintf("filter %s -> %v", expr, ids),
		})
		return nil
	}

	insert(0, "a", 1)
	insert(2, "b", 3)
	insert(4, "c", 5)
	get(0)
	remove(1)
	get(1)
	get(100)
	insert(6, "d", 7)
	remove(3)
	insert(8, "e", 9)
	get(4)
	if err := filter("first%4==0"); err != nil {
		return nil, err
	}
	if err := filter("id%2==1"); err != nil {
		return nil, err
	}
	return steps, nil
}
