package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func noopHandler(context.Context, json.RawMessage) (*ToolResult, error) {
	return TextResult("ok"), nil
}

func TestServerRegisterRejectsDuplicates(t *testing.T) {
	server := NewServer("calc", "1", quietLogger())

	if err := server.Register(ToolDefinition{Name: "assess_ovarian_reserve"}, noopHandler); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := server.Register(ToolDefinition{Name: "assess_ovarian_reserve"}, noopHandler); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := server.Register(ToolDefinition{Name: ""}, noopHandler); err == nil {
		t.Fatal("expected empty name to fail")
	}
	if err := server.Register(ToolDefinition{Name: "x"}, nil); err == nil {
		t.Fatal("expected nil handler to fail")
	}
}

func TestServerToolsPreserveRegistrationOrder(t *testing.T) {
	server := NewServer("calc", "1", quietLogger())
	names := []string{"predict_ivf_success", "assess_ovarian_reserve", "predict_menopause_timing"}
	for _, name := range names {
		if err := server.Register(ToolDefinition{Name: name}, noopHandler); err != nil {
			t.Fatalf("Register(%s) error: %v", name, err)
		}
	}

	defs := server.Tools()
	if len(defs) != len(names) {
		t.Fatalf("got %d tools, want %d", len(defs), len(names))
	}
	for i, def := range defs {
		if def.Name != names[i] {
			t.Fatalf("tools out of order: %#v", defs)
		}
	}
}

func TestServeReturnsOnEndOfStream(t *testing.T) {
	server := NewServer("calc", "1", quietLogger())

	var out bytes.Buffer
	if err := server.Serve(context.Background(), strings.NewReader(""), &out); err != nil {
		t.Fatalf("Serve error on EOF: %v", err)
	}
}
