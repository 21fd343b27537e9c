package tools

import (
	"encoding/json"
	"fmt"
)

// ClampArguments pulls out-of-range numeric arguments back to the bounds
// declared on the tool's parameters. It returns a fresh mapping; the input
// is not mutated.
func ClampArguments(tool Tool, arguments map[string]any) map[string]any {
	clamped := make(map[string]any, len(arguments))
	for key, value := range arguments {
		clamped[key] = value

		parameter, ok := tool.Parameters[key]
		if !ok {
			continue
		}
		number, ok := toFloat(value)
		if !ok {
			continue
		}
		if parameter.Minimum != nil && number < *parameter.Minimum {
			number = *parameter.Minimum
		}
		if parameter.Maximum != nil && number > *parameter.Maximum {
			number = *parameter.Maximum
		}
		clamped[key] = number
	}
	return clamped
}

// ValidateArguments checks a clamped argument mapping against the tool's
// compiled schema. A failure here means clamping could not make the call
// well-formed.
func ValidateArguments(tool Tool, arguments map[string]any) error {
	if tool.schema == nil {
		return nil
	}

	raw, err := json.Marshal(arguments)
	if err != nil {
		return fmt.Errorf("failed to encode arguments: %w", err)
	}

	result := tool.schema.ValidateJSON(raw)
	if !result.IsValid() {
		return fmt.Errorf("schema validation failed: %v", result.Errors)
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		number, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return number, true
	}
	return 0, false
}
