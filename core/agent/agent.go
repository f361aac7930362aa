// Package agent turns natural-language instructions into mailbox actions via
// OpenAI function calling.
package agent

import (
	"context"
	"fmt"
	"time"

	"webmail_client/core/agent/tools"
	"webmail_client/pkg/logger"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds how many tool-call rounds a single instruction may
// trigger before the loop is cut off.
const maxToolRounds = 5

const systemPrompt = `You are an email assistant operating a webmail client.
You act on the user's mailbox through the provided tools. Prefer reading
state (list_emails, open_email) before acting on it. Never send an email the
user did not ask you to send. When you open a draft, tell the user what it
contains instead of sending it unprompted.`

// ActionRecord is one executed tool call, reported back to the UI so the
// user can see what the agent did.
type ActionRecord struct {
	Tool    string `json:"tool"`
	Args    string `json:"args"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Reply is the outcome of one instruction.
type Reply struct {
	Text    string         `json:"text"`
	Actions []ActionRecord `json:"actions,omitempty"`
}

// Agent drives the instruction -> tool call -> result loop.
type Agent struct {
	client   *openai.Client
	executor *tools.Executor
	model    string
	log      *logger.Logger
}

// New creates an agent over a tool executor.
func New(apiKey, model string, executor *tools.Executor, log *logger.Logger) *Agent {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Agent{
		client:   openai.NewClient(apiKey),
		executor: executor,
		model:    model,
		log:      log.WithField("component", "agent"),
	}
}

// Execute runs one instruction to completion: the model may request tool
// calls across several rounds; each executed call is fed back as a tool
// message until the model answers in plain text or the round limit is hit.
func (a *Agent) Execute(ctx context.Context, instruction string) (*Reply, error) {
	if instruction == "" {
		return nil, fmt.Errorf("empty instruction")
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: instruction},
	}
	definitions := a.executor.Registry().OpenAIDefinitions()

	var actions []ActionRecord
	start := time.Now()

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
			Tools:    definitions,
		})
		if err != nil {
			return nil, fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion returned no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			a.log.WithField("rounds", round).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Info("instruction completed")
			return &Reply{Text: msg.Content, Actions: actions}, nil
		}

		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			result, err := a.executor.ExecuteOpenAICall(ctx, tc)
			if err != nil {
				// Unknown tool: tell the model rather than abort the turn.
				result = &tools.Result{Success: false, Error: err.Error()}
			}

			record := ActionRecord{
				Tool:    tc.Function.Name,
				Args:    tc.Function.Arguments,
				Success: result.Success,
				Message: result.Message,
				Error:   result.Error,
			}
			actions = append(actions, record)

			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"success":false,"error":"failed to encode tool result"}`)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: tc.ID,
				Content:    string(payload),
			})
		}
	}

	a.log.Warn("instruction hit the tool round limit")
	return &Reply{
		Text:    "I stopped after too many actions. Here is what I did so far.",
		Actions: actions,
	}, nil
}
