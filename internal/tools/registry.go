package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/llmtypes"
	"github.com/user/trialchat/internal/logging"
)

// Registry is a fixed, ordered set of tools. It is built once and never
// changes afterwards.
type Registry struct {
	tools  []Tool
	index  map[string]Tool
	logger *logging.Logger
}

// NewRegistry creates a registry. Tool names must be unique.
func NewRegistry(logger *logging.Logger, tools ...Tool) (*Registry, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Registry{index: make(map[string]Tool, len(tools)), logger: logger.Named("tools")}
	for _, t := range tools {
		if _, dup := r.index[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", t.Name())
		}
		r.index[t.Name()] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// Get returns the tool registered under name
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.index[name]
	return t, ok
}

// Tools returns the registered tools in registration order
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns the registered tool names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.tools)
}

// Definitions returns the function schemas sent to the model
func (r *Registry) Definitions() []llmtypes.FunctionDefinition {
	defs := make([]llmtypes.FunctionDefinition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = llmtypes.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return defs
}

// Dispatch resolves name, parses the serialized arguments, binds them and
// runs the tool. Every failure is returned as *errors.FunctionDispatchError.
func (r *Registry) Dispatch(ctx context.Context, name, arguments string) (interface{}, error) {
	tool, ok := r.index[name]
	if !ok {
		return nil, errors.NewFunctionDispatchError(name, fmt.Errorf("unknown function %q", name))
	}

	params, err := ParseArguments(arguments)
	if err != nil {
		return nil, errors.NewFunctionDispatchError(name, err)
	}
	if err := checkArguments(tool.Parameters(), params); err != nil {
		return nil, errors.NewFunctionDispatchError(name, err)
	}

	r.logger.Debug("dispatching function",
		logging.String("function", name),
		logging.String("arguments", arguments),
	)

	result, err := tool.Execute(ctx, params)
	if err != nil {
		return nil, errors.NewFunctionDispatchError(name, err)
	}
	return result, nil
}

// ParseArguments decodes serialized call arguments into a key-value map.
// Blank text is an empty map.
func ParseArguments(arguments string) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	if strings.TrimSpace(arguments) == "" {
		return params, nil
	}
	dec := json.NewDecoder(strings.NewReader(arguments))
	if err := dec.Decode(&params); err != nil {
		return nil, &ArgumentError{Message: fmt.Sprintf("invalid arguments: %v", err)}
	}
	if params == nil {
		return nil, &ArgumentError{Message: "invalid arguments: expected a JSON object"}
	}
	if dec.More() {
		return nil, &ArgumentError{Message: "invalid arguments: trailing data"}
	}
	return params, nil
}

// EncodeResult serializes a function result the way it is handed back to
// the model. HTML characters are left unescaped.
func EncodeResult(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
