package tools

import (
	"context"
	"time"

	"webmail_client/pkg/logger"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
)

// Executor runs tool calls coming out of an LLM turn against the registry.
type Executor struct {
	registry *Registry
	log      *logger.Logger
}

// NewExecutor creates an executor over a registry.
func NewExecutor(registry *Registry, log *logger.Logger) *Executor {
	return &Executor{registry: registry, log: log}
}

// Registry exposes the underlying registry (for definitions).
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs a single parsed call.
func (e *Executor) Execute(ctx context.Context, call Call) (*Result, error) {
	start := time.Now()
	res, err := e.registry.Execute(ctx, call)
	elapsed := time.Since(start)

	if err != nil {
		e.log.WithField("tool", call.Name).WithError(err).Error("tool execution failed")
		return nil, err
	}
	e.log.WithField("tool", call.Name).
		WithField("success", res.Success).
		WithField("duration_ms", elapsed.Milliseconds()).
		Info("tool executed")
	return res, nil
}

// ExecuteOpenAICall decodes an OpenAI tool call's JSON arguments and runs it.
// A malformed argument payload is a tool failure, not a transport error.
func (e *Executor) ExecuteOpenAICall(ctx context.Context, tc openai.ToolCall) (*Result, error) {
	args := map[string]any{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			e.log.WithField("tool", tc.Function.Name).WithError(err).Warn("malformed tool arguments")
			return &Result{Success: false, Error: "malformed tool arguments: " + err.Error()}, nil
		}
	}
	return e.Execute(ctx, Call{ID: tc.ID, Name: tc.Function.Name, Args: args})
}
