package models

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestResponseTextAndToolUses(t *testing.T) {
	resp := &Response{Blocks: []Block{
		TextBlock{Text: "Looking that up."},
		ToolUseBlock{ID: "tu_1", Name: "search_pubmed", Input: json.RawMessage(`{"query":"amh"}`)},
		TextBlock{Text: "One moment."},
		ToolUseBlock{ID: "tu_2", Name: "predict_ivf_success"},
	}}

	if got, want := resp.Text(), "Looking that up.\nOne moment."; got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}

	uses := resp.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("expected 2 tool uses, got %d", len(uses))
	}
	if uses[0].ID != "tu_1" || uses[1].ID != "tu_2" {
		t.Fatalf("tool uses out of order: %#v", uses)
	}
}

func TestToolResultsTurn(t *testing.T) {
	turn := ToolResults([]ToolResultBlock{
		{ToolUseID: "tu_1", Content: "ok"},
		{ToolUseID: "tu_2", Content: "Tool not available", IsError: true},
	})
	if turn.Role != RoleUser {
		t.Fatalf("tool results must form a user turn, got %q", turn.Role)
	}
	if len(turn.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(turn.Blocks))
	}
	second, ok := turn.Blocks[1].(ToolResultBlock)
	if !ok || !second.IsError {
		t.Fatalf("expected error tool result, got %#v", turn.Blocks[1])
	}
}

func TestScriptedChatPlaysInOrder(t *testing.T) {
	chat := NewScriptedChat(
		&Response{Blocks: []Block{TextBlock{Text: "first"}}},
		&Response{Blocks: []Block{TextBlock{Text: "second"}}},
	)

	ctx := context.Background()
	turns := []Turn{UserText("hello")}

	resp, err := chat.Complete(ctx, "sys", turns, nil)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Text() != "first" {
		t.Fatalf("unexpected first response: %q", resp.Text())
	}

	resp, err = chat.Complete(ctx, "sys", turns, nil)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Text() != "second" {
		t.Fatalf("unexpected second response: %q", resp.Text())
	}

	if _, err := chat.Complete(ctx, "sys", turns, nil); err == nil {
		t.Fatal("expected error once the script is exhausted")
	}

	if got := chat.CallCount(); got != 3 {
		t.Fatalf("CallCount() = %d, want 3", got)
	}
	if chat.Calls()[0].System != "sys" {
		t.Fatalf("system prompt not recorded: %#v", chat.Calls()[0])
	}
}

func TestScriptedChatQueuedError(t *testing.T) {
	chat := NewScriptedChat()
	boom := errors.New("model offline")
	chat.QueueError(boom)

	_, err := chat.Complete(context.Background(), "", []Turn{UserText("hi")}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected queued error, got %v", err)
	}
}

func TestNewAnthropicChatRequiresKey(t *testing.T) {
	if _, err := NewAnthropicChat(AnthropicOptions{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	chat, err := NewAnthropicChat(AnthropicOptions{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicChat error: %v", err)
	}
	if chat.maxTokens != defaultMaxTokens {
		t.Fatalf("maxTokens = %d, want default %d", chat.maxTokens, defaultMaxTokens)
	}
	if chat.temperature != defaultTemperature {
		t.Fatalf("temperature = %v, want default %v", chat.temperature, defaultTemperature)
	}
}
