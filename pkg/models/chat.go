package models

import (
	"context"
	"encoding/json"
	"strings"
)

// ToolDef describes one callable tool advertised to the model. InputSchema is
// a JSON Schema object exactly as reported by the owning tool server.
type ToolDef struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Response is a single model completion.
type Response struct {
	Blocks     []Block
	StopReason string
}

// Text concatenates the text blocks of the response in order.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var parts []string
	for _, b := range r.Blocks {
		if tb, ok := b.(TextBlock); ok && strings.TrimSpace(tb.Text) != "" {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the tool-use blocks of the response in order.
func (r *Response) ToolUses() []ToolUseBlock {
	if r == nil {
		return nil
	}
	var uses []ToolUseBlock
	for _, b := range r.Blocks {
		if tu, ok := b.(ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// Turn converts the response into an assistant turn so it can be replayed to
// the model on the second phase of a tool round.
func (r *Response) Turn() Turn {
	if r == nil {
		return Turn{Role: RoleAssistant}
	}
	return Turn{Role: RoleAssistant, Blocks: r.Blocks}
}

// Chat is the model surface the orchestrator depends on. Implementations must
// be safe for concurrent use.
type Chat interface {
	// Complete runs one model call over the given turns. system may be
	// empty; tools may be nil to disable tool use for the call.
	Complete(ctx context.Context, system string, turns []Turn, tools []ToolDef) (*Response, error)
}
