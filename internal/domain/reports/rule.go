package reports

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/types"
)

// DefaultLowStockRule flags ingredients below one kilogram.
const DefaultLowStockRule = "quantity < 1000.0"

// LowStockRule is a compiled CEL predicate over an ingredient's quantity and cost_per_unit.
type LowStockRule struct {
	expr    string
	program cel.Program
}

// NewLowStockRule compiles expr. An empty expr selects DefaultLowStockRule.
func NewLowStockRule(expr string) (*LowStockRule, error) {
	if expr == "" {
		expr = DefaultLowStockRule
	}

	env, err := cel.NewEnv(
		cel.Variable("quantity", cel.DoubleType),
		cel.Variable("cost_per_unit", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid low-stock rule").WithCause(iss.Err()).WithDetail("rule", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("low-stock rule must evaluate to bool").WithDetail("rule", expr)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build cel program: %w", err)
	}
	return &LowStockRule{expr: expr, program: program}, nil
}

// String returns the source expression.
func (r *LowStockRule) String() string { return r.expr }

// Match evaluates the rule for one ingredient.
func (r *LowStockRule) Match(quantity types.Quantity, costPerUnit types.Money) (bool, error) {
	q, _ := quantity.Float64()
	c, _ := costPerUnit.Float64()

	out, _, err := r.program.Eval(map[string]any{
		"quantity":      q,
		"cost_per_unit": c,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate low-stock rule: %w", err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("low-stock rule returned %T", out.Value())
	}
	return matched, nil
}
