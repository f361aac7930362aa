// Package tools exposes mailbox operations as agent-callable actions. Every
// tool validates its own inputs and then calls the same in.Mailbox port the
// HTTP handlers use, so an agent action and a clicked button converge on
// identical state mutations.
package tools

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool is one callable agent action.
type Tool interface {
	Name() string
	Description() string
	Parameters() []ParameterSpec
	Execute(ctx context.Context, args map[string]any) (*Result, error)
}

// ParameterSpec defines a tool parameter.
type ParameterSpec struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, boolean, array
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Result is the outcome of a tool execution.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Call is a tool invocation parsed from an LLM tool call.
type Call struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// OpenAIDefinition converts a tool into the OpenAI function-calling format.
func OpenAIDefinition(t Tool) openai.Tool {
	properties := make(map[string]jsonschema.Definition)
	var required []string

	for _, p := range t.Parameters() {
		def := jsonschema.Definition{
			Type:        jsonschema.DataType(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
		}
		if p.Type == "array" {
			def.Items = &jsonschema.Definition{Type: jsonschema.String}
		}
		properties[p.Name] = def
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: properties,
				Required:   required,
			},
		},
	}
}

// Argument extraction helpers. Tool args arrive as decoded JSON, so numbers
// are float64 and arrays are []any.

func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, name string) (bool, bool) {
	v, ok := args[name].(bool)
	return v, ok
}

func stringSliceArg(args map[string]any, name string) []string {
	raw, ok := args[name].([]any)
	if !ok {
		if s := stringArg(args, name); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
