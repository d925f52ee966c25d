package tool

import (
	"fmt"

	"github.com/loomrt/loom/pkg/schema"
)

// NewCalculatorTool builds the add/sub/mul/div calculator used in the
// spec's S2 end-to-end scenario. It is pure and side-effect-free, so
// the executor is free to run it concurrently with other pure tools.
func NewCalculatorTool() Tool {
	sch := schema.ToolSchema{Parameters: []schema.ParameterSchema{
		{Name: "operation", Type: schema.TypeString, Required: true,
			Enum: []any{"add", "subtract", "multiply", "divide"}},
		{Name: "a", Type: schema.TypeNumber, Required: true},
		{Name: "b", Type: schema.TypeNumber, Required: true},
	}}
	return NewFunc("calculator", "Performs basic arithmetic (add, subtract, multiply, divide).", sch, true,
		func(ctx Context, args map[string]any) (any, error) {
			op, _ := args["operation"].(string)
			a, _ := asFloat(args["a"])
			b, _ := asFloat(args["b"])
			var result float64
			switch op {
			case "add":
				result = a + b
			case "subtract":
				result = a - b
			case "multiply":
				result = a * b
			case "divide":
				if b == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				result = a / b
			default:
				return nil, fmt.Errorf("unknown operation %q", op)
			}
			return map[string]any{"result": result}, nil
		})
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
