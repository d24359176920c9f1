package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ollama/ollama/api"
)

// StringArg returns a string argument, empty when absent or null.
func StringArg(params api.ToolCallFunctionArguments, name string) string {
	v, ok := params[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// RequiredStringArg fails when the argument is missing or blank.
func RequiredStringArg(params api.ToolCallFunctionArguments, name string) (string, error) {
	s := StringArg(params, name)
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("missing required argument '%s'", name)
	}
	return s, nil
}

// IntArg returns an optional integer argument. Models send numbers as JSON
// numbers or numeric strings; both are accepted.
func IntArg(params api.ToolCallFunctionArguments, name string) (*int, error) {
	v, ok := params[name]
	if !ok || v == nil {
		return nil, nil
	}

	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("argument '%s' must be an integer, got %v", name, x)
		}
		n = int(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("argument '%s' must be an integer: %w", name, err)
		}
		n = int(i)
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("argument '%s' must be an integer: %w", name, err)
		}
		n = i
	default:
		return nil, fmt.Errorf("argument '%s' must be an integer, got %T", name, v)
	}
	return &n, nil
}

// formatArguments renders arguments for progress events.
func formatArguments(params api.ToolCallFunctionArguments) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = fmt.Sprint(v)
	}
	return out
}
