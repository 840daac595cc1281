package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// startPair wires a client and server together over in-process pipes and
// performs the initialize handshake.
func startPair(t *testing.T, ctx context.Context, server *Server) *Client {
	t.Helper()

	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()
	transport := NewStreamTransport(clientWrite, clientRead)

	go func() {
		_ = server.Serve(ctx, serverRead, serverWrite)
	}()

	client, err := NewClient(Options{Name: server.info.Name, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if err := client.ConnectTransport(ctx, transport); err != nil {
		t.Fatalf("ConnectTransport error: %v", err)
	}
	return client
}

func TestClientListAndCall(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := NewServer("mock-server", "1.0.0", quietLogger())
	err := server.Register(ToolDefinition{
		Name:        "echo",
		Description: "Echoes the provided input",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"input":{"type":"string"}}}`),
	}, func(_ context.Context, args json.RawMessage) (*ToolResult, error) {
		var payload struct {
			Input string `json:"input"`
		}
		if err := json.Unmarshal(args, &payload); err != nil {
			return nil, err
		}
		return TextResult("echo:" + payload.Input), nil
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	client := startPair(t, ctx, server)
	defer client.Close(ctx)

	if got := client.Server().Name; got != "mock-server" {
		t.Fatalf("server info name = %q", got)
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("unexpected tools: %#v", tools)
	}

	result, err := client.CallTool(ctx, "echo", map[string]any{"input": "hello"})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %#v", result)
	}
	if got := result.Text(); got != "echo:hello" {
		t.Fatalf("unexpected result: %s", got)
	}
}

func TestCallToolFailureIsResultNotError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := NewServer("mock", "1", quietLogger())
	err := server.Register(ToolDefinition{Name: "broken"}, func(context.Context, json.RawMessage) (*ToolResult, error) {
		return nil, errors.New("out of follicles")
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	client := startPair(t, ctx, server)
	defer client.Close(ctx)

	result, err := client.CallTool(ctx, "broken", nil)
	if err != nil {
		t.Fatalf("CallTool returned transport error: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result, got %#v", result)
	}
	if !strings.Contains(result.Text(), "out of follicles") {
		t.Fatalf("error text missing cause: %q", result.Text())
	}
}

func TestCallUnknownToolIsErrorResult(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := startPair(t, ctx, NewServer("mock", "1", quietLogger()))
	defer client.Close(ctx)

	result, err := client.CallTool(ctx, "does_not_exist", nil)
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Text(), "unknown tool") {
		t.Fatalf("expected unknown-tool result, got %#v", result)
	}
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := startPair(t, ctx, NewServer("mock", "1", quietLogger()))
	defer client.Close(ctx)

	err := client.call(ctx, "resources/list", map[string]any{}, nil)
	if !errors.Is(err, ErrMethodNotFound) {
		t.Fatalf("expected ErrMethodNotFound, got %v", err)
	}
}

func TestCloseBeforeConnect(t *testing.T) {
	client, err := NewClient(Options{Name: "never-started", Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	ctx := context.Background()
	client.Close(ctx)
	client.Close(ctx) // idempotent

	if _, err := client.ListTools(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestCallsBeforeConnect(t *testing.T) {
	client, err := NewClient(Options{Name: "pending", Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if _, err := client.ListTools(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnectMissingBinary(t *testing.T) {
	client, err := NewClient(Options{
		Command: "/nonexistent/docther-tool-server",
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected Connect to fail for a missing binary")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error for empty options")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		cmd     string
		args    []string
		wantErr bool
	}{
		{name: "simple", line: "calcserver", cmd: "calcserver"},
		{name: "args", line: "python3 server.py --debug", cmd: "python3", args: []string{"server.py", "--debug"}},
		{name: "double quotes", line: `node "my server.js"`, cmd: "node", args: []string{"my server.js"}},
		{name: "single quotes", line: `sh -c 'echo hi'`, cmd: "sh", args: []string{"-c", "echo hi"}},
		{name: "escaped space", line: `run my\ tool`, cmd: "run", args: []string{"my tool"}},
		{name: "empty quoted arg", line: `cmd ""`, cmd: "cmd", args: []string{""}},
		{name: "empty", line: "   ", wantErr: true},
		{name: "unterminated quote", line: `cmd "oops`, wantErr: true},
		{name: "trailing backslash", line: `cmd oops\`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := ParseCommand(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.line)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand(%q) error: %v", tt.line, err)
			}
			if cmd != tt.cmd {
				t.Fatalf("cmd = %q, want %q", cmd, tt.cmd)
			}
			if len(args) != len(tt.args) {
				t.Fatalf("args = %#v, want %#v", args, tt.args)
			}
			for i := range args {
				if args[i] != tt.args[i] {
					t.Fatalf("args[%d] = %q, want %q", i, args[i], tt.args[i])
				}
			}
		})
	}
}
