// Package models defines the chat model abstraction used by the DoctHER
// runtime. A conversation is a sequence of turns whose content is a tagged
// list of blocks, mirroring the Anthropic Messages content model so that
// tool-use rounds can be replayed verbatim to the provider.
package models

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Block is one content part of a turn. Implementations are TextBlock,
// ToolUseBlock and ToolResultBlock.
type Block interface {
	isBlock()
}

// TextBlock is plain assistant or user text.
type TextBlock struct {
	Text string
}

// ToolUseBlock is a model request to invoke a named tool. ID correlates the
// request with the tool result returned on the follow-up turn.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResultBlock carries the outcome of a tool invocation back to the model.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (TextBlock) isBlock()       {}
func (ToolUseBlock) isBlock()    {}
func (ToolResultBlock) isBlock() {}

// Turn is a single conversation entry.
type Turn struct {
	Role   Role
	Blocks []Block
}

// UserText builds a user turn containing a single text block.
func UserText(text string) Turn {
	return Turn{Role: RoleUser, Blocks: []Block{TextBlock{Text: text}}}
}

// AssistantText builds an assistant turn containing a single text block.
func AssistantText(text string) Turn {
	return Turn{Role: RoleAssistant, Blocks: []Block{TextBlock{Text: text}}}
}

// ToolResults builds the synthetic user turn that answers a batch of tool-use
// blocks on the second phase of a tool round.
func ToolResults(results []ToolResultBlock) Turn {
	blocks := make([]Block, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, r)
	}
	return Turn{Role: RoleUser, Blocks: blocks}
}

// Text concatenates the text blocks of the turn.
func (t Turn) Text() string {
	var parts []string
	for _, b := range t.Blocks {
		if tb, ok := b.(TextBlock); ok && strings.TrimSpace(tb.Text) != "" {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "\n")
}
