package query

import (
	"fmt"
	"strconv"
	"strings"
)

// symbolic operators, longest first so "<=" wins over "<"
var symbols = []struct {
	sym string
	op  string
}{
	{"==", OpEq},
	{"!=", OpNe},
	{"<=", OpLe},
	{">=", OpGe},
	{"^=", OpPrefix},
	{"~=", OpContains},
	{"<", OpLt},
	{">", OpGt},
}

// ParseCondition parses the compact form used on the command line:
//
//	field[%mod]<op>value
//
// where op is one of == != < <= > >= ^= (prefix) ~= (contains).
// Whitespace around the parts is ignored and the value may be double-quoted.
// Examples: "first%4==0", "id<10", `second^="ab"`.
func ParseCondition(s string) (Condition, error) {
	opAt, sym, op := -1, "", ""
	for i := 0; i < len(s) && opAt < 0; i++ {
		for _, cand := range symbols {
			if strings.HasPrefix(s[i:], cand.sym) {
				opAt, sym, op = i, cand.sym, cand.op
				break
			}
		}
	}
	if opAt < 0 {
		return Condition{}, fmt.Errorf("%w: no operator in %q", ErrUnknownOp, s)
	}

	lhs := strings.TrimSpace(s[:opAt])
	value := strings.TrimSpace(s[opAt+len(sym):])
	if unq, err := strconv.Unquote(value); err == nil {
		value = unq
	}

	c := Condition{Field: lhs, Op: op, Value: value}
	if field, mod, ok := strings.Cut(lhs, "%"); ok {
		m, err := strconv.ParseInt(strings.TrimSpace(mod), 10, 64)
		if err != nil || m <= 0 {
			return Condition{}, fmt.Errorf("%w: bad modulus in %q", ErrInvalidValue, s)
		}
		c.Field = strings.TrimSpace(field)
		c.Mod = m
	}

	if _, err := compileOne(c); err != nil {
		return Condition{}, err
	}
	return c, nil
}

// ParseConditions parses each string with ParseCondition
func ParseConditions(ss []string) ([]Condition, error) {
	conds := make([]Condition, 0, len(ss))
	for _, s := range ss {
		c, err := ParseCondition(s)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}
