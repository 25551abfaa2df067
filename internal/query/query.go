// Package query turns declarative filter conditions into predicates over
// records of shape (int64, string, int64).
//
// Conditions exist so that a filter can cross a process boundary: a Go
// closure cannot be sent to recordd, but a list of Conditions can.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dreamware/tuplestore/internal/storage"
)

var (
	// ErrUnknownField is returned for a field other than id, first, second or third
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownOp is returned for an unsupported comparison operator
	ErrUnknownOp = errors.New("unknown operator")
	// ErrInvalidValue is returned when a value does not fit the field type
	ErrInvalidValue = errors.New("invalid value")
)

// Row is the record shape served by recordd
type Row = storage.Record[int64, string, int64]

// Predicate matches a record by ID and value
type Predicate func(storage.ID, Row) bool

// Field names
const (
	FieldID     = "id"
	FieldFirst  = "first"
	FieldSecond = "second"
	FieldThird  = "third"
)

// Operators
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpLt       = "lt"
	OpLe       = "le"
	OpGt       = "gt"
	OpGe       = "ge"
	OpPrefix   = "prefix"
	OpContains = "contains"
)

var (
	numericOps = []string{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe}
	stringOps  = []string{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpPrefix, OpContains}
)

// Condition is one filter clause.
// For numeric fields a non-zero Mod reduces the field modulo Mod before the
// comparison, so {first, eq, 0, mod 4} means first % 4 == 0.
type Condition struct {
	Field string `json:"field" yaml:"field"`
	Op    string `json:"op" yaml:"op"`
	Value string `json:"value" yaml:"value"`
	Mod   int64  `json:"mod,omitempty" yaml:"mod,omitempty"`
}

func (c Condition) String() string {
	field := c.Field
	if c.Mod != 0 {
		field = fmt.Sprintf("%s%%%d", c.Field, c.Mod)
	}
	return fmt.Sprintf("%s %s %q", field, c.Op, c.Value)
}

// Compile validates conds and returns a predicate matching records that
// satisfy all of them. An empty list matches every record.
func Compile(conds []Condition) (Predicate, error) {
	preds := make([]Predicate, 0, len(conds))
	for _, c := range conds {
		p, err := compileOne(c)
		if err != nil {
			return nil, fmt.Errorf("condition %s: %w", c, err)
		}
		preds = append(preds, p)
	}

	return func(id storage.ID, r Row) bool {
		for _, p := range preds {
			if !p(id, r) {
				return false
			}
		}
		return true
	}, nil
}

func compileOne(c Condition) (Predicate, error) {
	switch c.Field {
	case FieldID, FieldFirst, FieldThird:
		return compileNumeric(c)
	case FieldSecond:
		return compileString(c)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, c.Field)
	}
}

func compileNumeric(c Condition) (Predicate, error) {
	if !slices.Contains(numericOps, c.Op) {
		return nil, fmt.Errorf("%w: %q on numeric field", ErrUnknownOp, c.Op)
	}
	want, err := strconv.ParseInt(c.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, c.Value)
	}
	if c.Mod < 0 {
		return nil, fmt.Errorf("%w: negative modulus %d", ErrInvalidValue, c.Mod)
	}

	var get func(storage.ID, Row) int64
	switch c.Field {
	case FieldID:
		get = func(id storage.ID, _ Row) int64 { return int64(id) }
	case FieldFirst:
		get = func(_ storage.ID, r Row) int64 { return r.First }
	default:
		get = func(_ storage.ID, r Row) int64 { return r.Third }
	}

	mod := c.Mod
	cmp := compareInts(c.Op)
	return func(id storage.ID, r Row) bool {
		v := get(id, r)
		if mod != 0 {
			v %= mod
		}
		return cmp(v, want)
	}, nil
}

func compileString(c Condition) (Predicate, error) {
	if !slices.Contains(stringOps, c.Op) {
		return nil, fmt.Errorf("%w: %q on string field", ErrUnknownOp, c.Op)
	}
	if c.Mod != 0 {
		return nil, fmt.Errorf("%w: mod is not valid on %s", ErrInvalidValue, c.Field)
	}

	want := c.Value
	switch c.Op {
	case OpPrefix:
		return func(_ storage.ID, r Row) bool { return strings.HasPrefix(r.Second, want) }, nil
	case OpContains:
		return func(_ storage.ID, r Row) bool { return strings.Contains(r.Second, want) }, nil
	}

	cmp := compareStrings(c.Op)
	return func(_ storage.ID, r Row) bool { return cmp(r.Second, want) }, nil
}

func compareInts(op string) func(a, b int64) bool {
	switch op {
	case OpNe:
		return func(a, b int64) bool { return a != b }
	case OpLt:
		return func(a, b int64) bool { return a < b }
	case OpLe:
		return func(a, b int64) bool { return a <= b }
	case OpGt:
		return func(a, b int64) bool { return a > b }
	case OpGe:
		return func(a, b int64) bool { return a >= b }
	}
	return func(a, b int64) bool { return a == b }
}

func compareStrings(op string) func(a, b string) bool {
	switch op {
	case OpNe:
		return func(a, b string) bool { return a != b }
	case OpLt:
		return func(a, b string) bool { return a < b }
	case OpLe:
		return func(a, b string) bool { return a <= b }
	case OpGt:
		return func(a, b string) bool { return a > b }
	case OpGe:
		return func(a, b string) bool { return a >= b }
	}
	return func(a, b string) bool { return a == b }
}
