package tools

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ArgumentError is returned when call arguments cannot be bound to a tool's
// parameters
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// Tool is the interface that all tools must implement
type Tool interface {
	// Name returns the tool name
	Name() string

	// Description returns a description of what the tool does
	Description() string

	// Parameters returns the JSON schema for the tool's parameters
	Parameters() map[string]interface{}

	// Execute runs the tool with the given parameters. The result must be
	// JSON-serializable.
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// checkArguments rejects keys the schema does not declare and required keys
// that are absent
func checkArguments(schema, params map[string]interface{}) error {
	props, _ := schema["properties"].(map[string]interface{})

	var unexpected []string
	for key := range params {
		if _, ok := props[key]; !ok {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return &ArgumentError{Message: fmt.Sprintf("unexpected argument(s): %s", strings.Join(unexpected, ", "))}
	}

	required, _ := schema["required"].([]string)
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return &ArgumentError{Message: fmt.Sprintf("missing required argument %q", key)}
		}
	}
	return nil
}

// stringArg returns params[key] as a string. Absent keys give "".
func stringArg(params map[string]interface{}, key string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", &ArgumentError{Message: fmt.Sprintf("%s must be a string", key)}
	}
	return s, nil
}

// intArg returns params[key] as an int, accepting JSON numbers and numeric
// strings. Absent keys give def.
func intArg(params map[string]interface{}, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, &ArgumentError{Message: fmt.Sprintf("%s must be an integer", key)}
		}
		return int(v), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &ArgumentError{Message: fmt.Sprintf("%s must be an integer", key)}
		}
		return i, nil
	default:
		return 0, &ArgumentError{Message: fmt.Sprintf("%s must be an integer", key)}
	}
}
