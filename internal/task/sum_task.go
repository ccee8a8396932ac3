package task

import (
	"context"
	"fmt"
	"math"

	"github.com/phrazzld/tasker-api/internal/config"
)

// validateSumParams enforces the sum kind's input rules: both operands
// present, numeric, finite, and within the configured magnitude ceiling
// (rejecting overflow-inducing inputs before they are accepted).
func validateSumParams(cfg config.TasksConfig) ValidateFunc {
	return func(params map[string]any) error {
		for _, name := range []string{"a", "b"} {
			if _, ok := params[name]; !ok {
				return fmt.Errorf("parameter '%s' is required for sum task", name)
			}

			value, ok := numberParam(params, name)
			if !ok {
				return fmt.Errorf("parameter '%s' must be a number", name)
			}

			if math.IsNaN(value) || math.IsInf(value, 0) {
				return fmt.Errorf("parameter '%s' must be a finite number", name)
			}

			if math.Abs(value) > cfg.MaxNumberValue {
				return fmt.Errorf("parameter '%s' exceeds maximum allowed value of %g", name, cfg.MaxNumberValue)
			}
		}

		return nil
	}
}

// executeSum is the sum kind's execution body.
func executeSum(ctx context.Context, params map[string]any) (map[string]any, error) {
	a, ok := numberParam(params, "a")
	if !ok {
		return nil, Permanentf("parameter 'a' must be numeric")
	}

	b, ok := numberParam(params, "b")
	if !ok {
		return nil, Permanentf("parameter 'b' must be numeric")
	}

	return map[string]any{
		"operation": "sum",
		"a":         a,
		"b":         b,
		"result":    a + b,
	}, nil
}
