package dataset

import (
	"propscore/internal/score"
	"propscore/internal/score/value"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// Mode is a record selection mode.
type Mode string

const (
	// ModeAll selects every record with an identifier.
	ModeAll Mode = "all"
	// ModeIDs selects records whose identifier is in an explicit list.
	ModeIDs Mode = "ids"
	// ModeExpr selects records for which a CEL expression holds.
	ModeExpr Mode = "expr"
)

// Selector picks the records of a scoring run. Selection keeps source order.
type Selector struct {
	mode    Mode
	ids     map[string]struct{}
	program cel.Program
}

// All selects every record with a non-empty identifier.
func All() *Selector {
	return &Selector{mode: ModeAll}
}

// IDs selects records whose identifier equals one of ids, compared as
// strings after trimming.
func IDs(ids ...string) *Selector {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return &Selector{mode: ModeIDs, ids: set}
}

// ParseIDs splits a comma-delimited identifier list such as "1, 2,3".
func ParseIDs(list string) []string {
	var ids []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// NewSelectionEnv declares the variables selection expressions can use:
// id (string) and record (map of column name to cell, numbers as double).
func NewSelectionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
}

// Expression selects records for which expr evaluates to true, e.g.
//
//	record["家賃"] <= 9.0 && record["間取り"].contains("LDK")
//
// Syntax and type errors are returned. A record whose evaluation fails, for
// instance on a missing column, is not selected.
func Expression(expr string) (*Selector, error) {
	env, err := NewSelectionEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create selection environment")
	}

	ast, iss := env.Parse(expr)
	if iss.Err() != nil {
		return nil, errors.Wrap(iss.Err(), "failed to parse selection expression")
	}
	checked, iss := env.Check(ast)
	if iss.Err() != nil {
		return nil, errors.Wrap(iss.Err(), "failed to check selection expression")
	}
	if out := checked.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, errors.Errorf("selection expression must be boolean, got %s", out)
	}

	program, err := env.Program(checked)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build selection program")
	}
	return &Selector{mode: ModeExpr, program: program}, nil
}

// Mode returns the selection mode.
func (s *Selector) Mode() Mode {
	return s.mode
}

// Select filters records. Records without an identifier are never selected.
func (s *Selector) Select(records []score.Record) []score.Record {
	selected := make([]score.Record, 0, len(records))
	for _, rec := range records {
		if rec.ID != "" && s.Match(rec) {
			selected = append(selected, rec)
		}
	}
	return selected
}

// Match reports whether rec is selected, ignoring the identifier check.
func (s *Selector) Match(rec score.Record) bool {
	switch s.mode {
	case ModeIDs:
		_, ok := s.ids[rec.ID]
		return ok
	case ModeExpr:
		result, _, err := s.program.Eval(map[string]any{
			"id":     rec.ID,
			"record": activation(rec.Fields),
		})
		if err != nil {
			return false
		}
		matched, ok := result.Value().(bool)
		return ok && matched
	default:
		return true
	}
}

// activation exposes cells to CEL: numeric text as double, other text as
// string.
func activation(fields map[string]value.Value) map[string]any {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		if v.Kind() == value.KindString {
			v = value.Parse(v.String())
		}
		if !v.IsNone() {
			out[name] = v.Any()
		}
	}
	return out
}
