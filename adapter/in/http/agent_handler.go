package http

import (
	"context"

	"webmail_client/core/agent"
	"webmail_client/core/agent/tools"
	"webmail_client/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// AgentRunner is the instruction entry point. Nil when no LLM key is
// configured; the tool endpoints still work without one.
type AgentRunner interface {
	Execute(ctx context.Context, instruction string) (*agent.Reply, error)
}

// AgentHandler exposes the agent bridge: natural-language instructions and
// direct tool execution.
type AgentHandler struct {
	runner   AgentRunner
	executor *tools.Executor
}

// NewAgentHandler creates the agent handler.
func NewAgentHandler(runner AgentRunner, executor *tools.Executor) *AgentHandler {
	return &AgentHandler{runner: runner, executor: executor}
}

// Register registers agent routes.
func (h *AgentHandler) Register(app fiber.Router) {
	ag := app.Group("/agent")
	ag.Post("/instruct", h.Instruct)
	ag.Get("/tools", h.ListTools)
	ag.Post("/tools/:name", h.ExecuteTool)
}

type instructRequest struct {
	Instruction string `json:"instruction"`
}

// Instruct runs a natural-language instruction through the LLM loop.
func (h *AgentHandler) Instruct(c *fiber.Ctx) error {
	if h.runner == nil {
		return ErrorResponse(c, 503, apperr.CodeStateError, "agent is not configured")
	}

	var req instructRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrorResponse(c, 400, apperr.CodeInvalidInput, "malformed request body")
	}
	if req.Instruction == "" {
		return ErrorResponse(c, 400, apperr.CodeMissingField, "missing instruction")
	}

	reply, err := h.runner.Execute(c.Context(), req.Instruction)
	if err != nil {
		return InternalErrorResponse(c, err, "agent instruction")
	}
	return SuccessResponse(c, reply)
}

// ListTools returns the available tool definitions.
func (h *AgentHandler) ListTools(c *fiber.Ctx) error {
	return SuccessResponse(c, h.executor.Registry().OpenAIDefinitions())
}

// ExecuteTool runs a single named tool directly, without the LLM. Used by
// the UI for scripted shortcuts and by tests.
func (h *AgentHandler) ExecuteTool(c *fiber.Ctx) error {
	args := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&args); err != nil {
			return ErrorResponse(c, 400, apperr.CodeInvalidInput, "malformed arguments")
		}
	}

	result, err := h.executor.Execute(c.Context(), tools.Call{
		Name: c.Params("name"),
		Args: args,
	})
	if err != nil {
		return ErrorResponse(c, 404, apperr.CodeNotFound, err.Error())
	}
	return SuccessResponse(c, result)
}
