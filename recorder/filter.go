package recorder

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/arloliu/go-nxrec/document"
)

// PlanFilter decides which runs are recorded, from their start document.
//
// A run is accepted when its plan name is in the allow-list (an empty list allows every
// plan) and, if set, the boolean expression evaluates to true. The expression sees
//
//	plan_name   string
//	scan_id     int
//	uid         string
//	detectors   []string
//	positioners []string
//	md          map[string]any  (every start field)
type PlanFilter struct {
	plans   map[string]struct{}
	names   []string
	rawExpr string
	program *vm.Program
}

// NewPlanFilter creates a PlanFilter. An empty expression is not evaluated.
func NewPlanFilter(plans []string, expression string) (*PlanFilter, error) {
	f := &PlanFilter{plans: map[string]struct{}{}, rawExpr: expression}
	for _, p := range plans {
		if _, ok := f.plans[p]; ok || p == "" {
			continue
		}
		f.plans[p] = struct{}{}
		f.names = append(f.names, p)
	}

	if expression == "" {
		return f, nil
	}

	program, err := expr.Compile(expression, expr.Env(filterEnv(&document.Start{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	f.program = program

	return f, nil
}

// AllowPlans creates a PlanFilter from an allow-list only.
func AllowPlans(plans ...string) *PlanFilter {
	f, _ := NewPlanFilter(plans, "")
	return f
}

// Plans returns the allow-list in the given order.
func (f *PlanFilter) Plans() []string {
	return append([]string{}, f.names...)
}

// Expression returns the filter expression source.
func (f *PlanFilter) Expression() string {
	return f.rawExpr
}

// Allow reports whether the run opened by start should be recorded. An expression that
// fails at evaluation time refuses the run and returns the error.
func (f *PlanFilter) Allow(start *document.Start) (bool, error) {
	if f == nil {
		return true, nil
	}
	if len(f.plans) > 0 {
		if _, ok := f.plans[start.PlanName]; !ok {
			return false, nil
		}
	}
	if f.program == nil {
		return true, nil
	}

	out, err := expr.Run(f.program, filterEnv(start))
	if err != nil {
		return false, fmt.Errorf("evaluate plan filter: %w", err)
	}
	ok, _ := out.(bool)

	return ok, nil
}

func filterEnv(start *document.Start) map[string]any {
	md := start.Fields
	if md == nil {
		md = map[string]any{}
	}

	return map[string]any{
		"plan_name":   start.PlanName,
		"scan_id":     int(start.ScanID),
		"uid":         start.UID,
		"detectors":   append([]string{}, start.Detectors...),
		"positioners": append([]string{}, start.Positioners...),
		"md":          md,
	}
}
