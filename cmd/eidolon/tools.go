package main

import (
	"fmt"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/tools"
)

// builtinTools is the demo capability set. Heavy tools stand in for avatar
// actuation and log what they would have done; light tools answer
// immediately.
func builtinTools() []tools.Tool {
	intensityMin, intensityMax := 0.0, 1.0

	return []tools.Tool{
		tools.NewTool(
			"perform_gesture",
			"Perform a visible body gesture on the avatar",
			map[string]tools.ParameterBase{
				"name": {
					Type:        "string",
					Description: "Gesture to perform",
					Enum:        []any{"wave", "nod", "shrug", "point", "bow"},
				},
				"intensity": {
					Type:        "number",
					Description: "How pronounced the gesture is",
					Minimum:     &intensityMin,
					Maximum:     &intensityMax,
				},
			},
			func(args struct {
				Name      string  `json:"name"`
				Intensity float64 `json:"intensity"`
			}) (string, error) {
				return fmt.Sprintf("performed gesture %q at intensity %.2f", args.Name, args.Intensity), nil
			},
			tools.WithHeavy(),
		),

		tools.NewTool(
			"set_expression",
			"Change the avatar's facial expression",
			map[string]tools.ParameterBase{
				"expression": {
					Type:        "string",
					Description: "Target facial expression",
					Enum:        []any{"neutral", "happy", "surprised", "thoughtful", "sad"},
				},
			},
			func(args struct {
				Expression string `json:"expression"`
			}) (string, error) {
				return fmt.Sprintf("expression set to %q", args.Expression), nil
			},
			tools.WithHeavy(),
		),

		tools.NewTool(
			"current_time",
			"Get the current local time",
			nil,
			func(struct{}) (string, error) {
				return time.Now().Format(time.RFC1123), nil
			},
		),
	}
}
