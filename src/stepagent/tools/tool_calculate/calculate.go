package tool_calculate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/stepagent/toolsutil"
	"github.com/expr-lang/expr"
)

// Tool name constant
const Name = "calculate"

const calculatePrompt = `Computes the result of a mathematical expression and returns it as a string.

HOW TO USE:
- Pass the whole expression in the expression argument, for example "12*7" or "sqrt(16) + 2 ** 3"
- Operators: + - * / % and ** or ^ for exponentiation, unary minus and parentheses
- Functions: abs, sqrt, pow, exp, log, log10, log2, sin, cos, tan, floor, ceil, round, min, max
- Constants: pi, e

NOTES:
- Integer arithmetic stays integral, division always yields a decimal
- Only numeric results are returned, anything else is an error`

// CalculateInput represents the parameters for calculate
type CalculateInput struct {
	Expression string `json:"expression" required:"true" validate:"required" description:"The arithmetic expression to evaluate"`
}

// Tool returns the calculate tool definition using GenericTool
func Tool() (agent.Tool, error) {
	return agent.NewGenericTool(Name, calculatePrompt, calculateHandler, agent.WithStrict(), agent.WithUnsafe())
}

func calculateHandler(ctx context.Context, input CalculateInput) (string, error) {
	result, err := Evaluate(input.Expression)
	if err != nil {
		return "", err
	}
	toolsutil.GetLogger().Debug("evaluated expression", "expression", input.Expression, "result", result)
	return result, nil
}

var constants = map[string]any{
	"pi": math.Pi,
	"e":  math.E,
}

var options = buildOptions()

func buildOptions() []expr.Option {
	opts := []expr.Option{
		expr.Env(constants),
		expr.DisableAllBuiltins(),
	}

	unary := map[string]func(float64) float64{
		"sqrt":  math.Sqrt,
		"exp":   math.Exp,
		"log":   math.Log,
		"log10": math.Log10,
		"log2":  math.Log2,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"round": math.Round,
	}
	for name, fn := range unary {
		fn := fn
		opts = append(opts, expr.Function(name, floatFunc(name, 1, func(args []float64) float64 {
			return fn(args[0])
		})))
	}

	opts = append(opts,
		expr.Function("pow", floatFunc("pow", 2, func(args []float64) float64 {
			return math.Pow(args[0], args[1])
		})),
		expr.Function("abs", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("abs expects 1 argument, got %d", len(params))
			}
			if i, ok := params[0].(int); ok {
				if i < 0 {
					return -i, nil
				}
				return i, nil
			}
			f, err := toFloat(params[0])
			if err != nil {
				return nil, err
			}
			return math.Abs(f), nil
		}),
		expr.Function("min", extremum("min", func(a, b float64) bool { return a < b })),
		expr.Function("max", extremum("max", func(a, b float64) bool { return a > b })),
	)
	return opts
}

// floatFunc adapts a float64 function with a fixed arity.
func floatFunc(name string, arity int, fn func([]float64) float64) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) != arity {
			return nil, fmt.Errorf("%s expects %d argument(s), got %d", name, arity, len(params))
		}
		args := make([]float64, len(params))
		for i, p := range params {
			f, err := toFloat(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			args[i] = f
		}
		return fn(args), nil
	}
}

// extremum returns the first argument that wins against all others, keeping
// its original type.
func extremum(name string, better func(a, b float64) bool) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) == 0 {
			return nil, fmt.Errorf("%s expects at least 1 argument", name)
		}
		best := params[0]
		bestF, err := toFloat(best)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, p := range params[1:] {
			f, err := toFloat(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if better(f, bestF) {
				best, bestF = p, f
			}
		}
		return best, nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %v is not a number", toolsutil.ErrInvalidParams, v)
	}
}

// Evaluate computes expression and formats the numeric result. Integers are
// printed without a fraction, floats in their shortest form.
func Evaluate(expression string) (string, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", fmt.Errorf("%w: empty expression", toolsutil.ErrInvalidParams)
	}

	program, err := expr.Compile(expression, options...)
	if err != nil {
		return "", fmt.Errorf("invalid expression: %w", err)
	}

	out, err := expr.Run(program, constants)
	if err != nil {
		return "", fmt.Errorf("evaluation failed: %w", err)
	}

	switch v := out.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	default:
		f, err := toFloat(out)
		if err != nil {
			return "", fmt.Errorf("expression did not produce a number: %v", out)
		}
		return formatFloat(f)
	}
}

func formatFloat(f float64) (string, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("result is not a finite number: %v", f)
	}
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-4 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
