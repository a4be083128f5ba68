package pm

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// FilterSet holds compiled operator-supplied veto expressions. Each
// expression sees the candidate equipment as a map named `equipment` and
// must evaluate to a boolean; true withholds the equipment from scheduling.
//
//	equipment.location.startsWith("Annex")
//	equipment.status != "Active" || equipment.number == "BFM-0107"
type FilterSet struct {
	programs []cel.Program
	sources  []string
}

// CompileFilters compiles veto expressions into a FilterSet. A nil set is
// returned for an empty list so callers can skip the rule entirely.
func CompileFilters(exprs []string) (*FilterSet, error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("equipment", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating filter environment: %w", err)
	}

	fs := &FilterSet{}
	for _, expr := range exprs {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compiling filter %q: %w", expr, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("filter %q must evaluate to a boolean", expr)
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("building filter program: %w", err)
		}
		fs.programs = append(fs.programs, program)
		fs.sources = append(fs.sources, expr)
	}

	return fs, nil
}

// Len returns the number of compiled expressions.
func (fs *FilterSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.programs)
}

// Vetoed evaluates the expressions against the equipment. Evaluation errors
// veto the candidate; a filter that cannot be trusted must not let work
// through.
func (fs *FilterSet) Vetoed(eq *Equipment) (bool, error) {
	vars := map[string]any{
		"equipment": map[string]any{
			"number":      eq.Number,
			"description": eq.Description,
			"location":    eq.Location,
			"status":      eq.Status,
			"monthly":     eq.Monthly,
			"six_month":   eq.SixMonth,
			"annual":      eq.Annual,
		},
	}

	for i, program := range fs.programs {
		result, _, err := program.Eval(vars)
		if err != nil {
			return true, fmt.Errorf("evaluating filter %q: %w", fs.sources[i], err)
		}
		vetoed, ok := result.Value().(bool)
		if !ok {
			return true, fmt.Errorf("filter %q did not return a boolean", fs.sources[i])
		}
		if vetoed {
			return true, nil
		}
	}

	return false, nil
}
