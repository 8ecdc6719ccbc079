// Package llm defines the completion-service port and a chat-completions
// HTTP client implementing it.
package llm

import (
	"context"
	"encoding/json"
)

// Message roles as the completion API expects them.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool-result message back to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a structured request from the model to execute a named tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes a callable tool: name, description, and a JSON-schema
// parameter definition exposed verbatim to the model.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Request is one completion round trip. A nil Tools slice disables tool use
// for the call.
type Request struct {
	Messages []Message
	Tools    []Tool
}

// Response carries the assistant message the model produced.
type Response struct {
	Message Message
}

// CompletionService is the port for a text-completion provider that supports
// tool calling.
type CompletionService interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
