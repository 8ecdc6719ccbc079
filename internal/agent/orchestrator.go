package agent

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/shopagent/internal/llm"
)

// ErrUpstream is returned when the completion service fails; callers surface
// a generic failure to the shopper and keep the detail in server logs.
var ErrUpstream = errors.New("completion service unavailable")

// Orchestrator drives one bounded decide / execute / summarize cycle per
// user turn: at most one round of tool execution, then a final completion
// with tools disabled. It is deliberately not a recursive agent loop.
type Orchestrator struct {
	completions llm.CompletionService
	executor    *Executor
	log         *zap.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(completions llm.CompletionService, executor *Executor, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		completions: completions,
		executor:    executor,
		log:         log,
	}
}

// Respond handles one chat turn for the identity and returns the user-facing
// answer.
func (o *Orchestrator) Respond(ctx context.Context, ownerID string, history []llm.Message, userMessage string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	resp, err := o.completions.Complete(ctx, llm.Request{
		Messages: messages,
		Tools:    Definitions(),
	})
	if err != nil {
		o.log.Error("completion call failed", zap.Error(err))
		return "", errors.Wrap(ErrUpstream, err.Error())
	}

	if len(resp.Message.ToolCalls) == 0 {
		return resp.Message.Content, nil
	}

	messages = append(messages, resp.Message)

	// Execute sequentially in call order: later calls may depend on cart
	// state earlier calls just mutated. One result message per call,
	// keyed to its call ID.
	for _, call := range resp.Message.ToolCalls {
		o.log.Info("executing tool",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.String("owner_id", ownerID),
		)
		result := o.executor.Execute(ctx, call.Name, call.Arguments, ownerID)

		payload, err := json.Marshal(result)
		if err != nil {
			// ToolResult is always marshalable in practice; guard anyway so
			// the conversation can continue.
			payload = []byte(`{"success":false,"error":"internal","message":"tool result could not be encoded"}`)
			o.log.Error("tool result encoding failed", zap.String("tool", call.Name), zap.Error(err))
		}
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Content:    string(payload),
		})
	}

	// Final completion with tools disabled bounds the loop to exactly one
	// resolution round.
	final, err := o.completions.Complete(ctx, llm.Request{Messages: messages})
	if err != nil {
		o.log.Error("final completion call failed", zap.Error(err))
		return "", errors.Wrap(ErrUpstream, err.Error())
	}

	return final.Message.Content, nil
}
