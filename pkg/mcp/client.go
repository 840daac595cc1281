// Package mcp implements both halves of the Model Context Protocol tooling
// surface: a client that owns one stdio tool server subprocess, and a server
// loop for exposing Go tools to any MCP client. Messages are JSON-RPC 2.0
// framed with Content-Length headers.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ClientInfo describes the calling application during the initialize
// handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo is the metadata a server reports during the initialize
// handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolDefinition mirrors the subset of the MCP tool schema the runtime needs.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// Content is a single content part of a tool result.
type Content struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
}

// ToolResult is the structured output of a tool invocation. IsError marks a
// failure reported by the tool itself, as opposed to a transport failure.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// TextResult builds a plain-text tool result.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []Content{{Type: "text", Text: text}}}
}

// ErrorResult builds a tool result flagged as failed.
func ErrorResult(text string) *ToolResult {
	return &ToolResult{IsError: true, Content: []Content{{Type: "text", Text: text}}}
}

// Text concatenates the text parts of the result, newline separated.
func (r *ToolResult) Text() string {
	if r == nil {
		return ""
	}
	var segments []string
	for _, part := range r.Content {
		if part.Type != "text" {
			continue
		}
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, "\n")
}

// JSON returns the first JSON payload embedded in the result, pretty printed.
func (r *ToolResult) JSON() string {
	if r == nil {
		return ""
	}
	for _, part := range r.Content {
		if part.Type != "json" || len(part.Data) == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, part.Data, "", "  "); err != nil {
			return string(part.Data)
		}
		return buf.String()
	}
	return ""
}

// PrimaryText prefers the aggregated text segments and falls back to the JSON
// payload.
func (r *ToolResult) PrimaryText() string {
	if txt := r.Text(); txt != "" {
		return txt
	}
	return r.JSON()
}

// Options configure a Client. Command is the executable of the tool server to
// spawn; Name is the logical server name used in logs and defaults to the
// command's base name.
type Options struct {
	Name    string
	Command string
	Args    []string
	Dir     string
	Env     []string

	// Stderr receives the server's standard error stream. Defaults to
	// os.Stderr so server-side diagnostics stay visible.
	Stderr io.Writer

	ClientInfo      ClientInfo
	ProtocolVersion string
	Logger          *log.Logger
}

// Client owns a single MCP tool server session. The zero value is not usable;
// construct with NewClient. Methods are safe for concurrent use.
type Client struct {
	opts   Options
	logger *log.Logger

	idCounter atomic.Uint64

	// rpcMu serializes request/response exchanges on the transport.
	rpcMu sync.Mutex

	mu         sync.Mutex
	transport  Transport
	cmd        *exec.Cmd
	procDone   chan struct{}
	connected  bool
	closed     bool
	serverInfo ServerInfo
}

// NewClient validates the options without performing any I/O. The subprocess
// is spawned by Connect.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Command) == "" && strings.TrimSpace(opts.Name) == "" {
		return nil, errors.New("mcp: server command is required")
	}
	if strings.TrimSpace(opts.ClientInfo.Name) == "" {
		opts.ClientInfo.Name = "docther"
	}
	if strings.TrimSpace(opts.ClientInfo.Version) == "" {
		opts.ClientInfo.Version = "dev"
	}
	if strings.TrimSpace(opts.ProtocolVersion) == "" {
		opts.ProtocolVersion = defaultProtocolVersion
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{opts: opts, logger: logger}, nil
}

// Name returns the logical server name.
func (c *Client) Name() string {
	if c == nil {
		return ""
	}
	if strings.TrimSpace(c.opts.Name) != "" {
		return c.opts.Name
	}
	return filepath.Base(c.opts.Command)
}

// Server returns the metadata captured during the initialize handshake.
func (c *Client) Server() ServerInfo {
	if c == nil {
		return ServerInfo{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// Connect spawns the configured command, binds its stdio pipes and performs
// the initialize handshake followed by the initialized notification. The
// subprocess is stopped again if any step fails.
func (c *Client) Connect(ctx context.Context) error {
	if c == nil {
		return errors.New("mcp: client is nil")
	}
	if strings.TrimSpace(c.opts.Command) == "" {
		return errors.New("mcp: stdio command is required")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.connected {
		c.mu.Unlock()
		return fmt.Errorf("mcp: %s: already connected", c.Name())
	}
	c.mu.Unlock()

	cmd := exec.CommandContext(ctx, c.opts.Command, c.opts.Args...)
	cmd.Dir = c.opts.Dir
	if len(c.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), c.opts.Env...)
	}
	if c.opts.Stderr != nil {
		cmd.Stderr = c.opts.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("mcp: %s: stdout pipe: %w", c.Name(), err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("mcp: %s: stdin pipe: %w", c.Name(), err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("mcp: %s: start: %w", c.Name(), err)
	}

	transport := NewStreamTransport(stdin, stdout)
	procDone := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(procDone)
		// Unblocks any pending Receive once the process is gone.
		_ = transport.Close()
	}()

	if err := c.attach(ctx, transport, cmd, procDone); err != nil {
		_ = transport.Close()
		_ = cmd.Process.Kill()
		<-procDone
		return err
	}
	return nil
}

// ConnectTransport binds the client to an already established transport, for
// servers running in-process. The initialize handshake is performed as with
// Connect.
func (c *Client) ConnectTransport(ctx context.Context, transport Transport) error {
	if c == nil {
		return errors.New("mcp: client is nil")
	}
	if transport == nil {
		return errors.New("mcp: transport is nil")
	}
	if err := c.attach(ctx, transport, nil, nil); err != nil {
		_ = transport.Close()
		return err
	}
	return nil
}

func (c *Client) attach(ctx context.Context, transport Transport, cmd *exec.Cmd, procDone chan struct{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.connected {
		c.mu.Unlock()
		return fmt.Errorf("mcp: %s: already connected", c.Name())
	}
	c.transport = transport
	c.cmd = cmd
	c.procDone = procDone
	c.connected = true
	c.mu.Unlock()

	info, err := c.handshake(ctx)
	if err != nil {
		c.mu.Lock()
		c.transport = nil
		c.cmd = nil
		c.procDone = nil
		c.connected = false
		c.mu.Unlock()
		return fmt.Errorf("mcp: %s: handshake: %w", c.Name(), err)
	}

	c.mu.Lock()
	c.serverInfo = info
	c.mu.Unlock()
	return nil
}

func (c *Client) handshake(ctx context.Context) (ServerInfo, error) {
	params := map[string]any{
		"protocolVersion": c.opts.ProtocolVersion,
		"clientInfo":      c.opts.ClientInfo,
		"capabilities": map[string]any{
			"tools": map[string]bool{"list": true, "call": true},
		},
	}

	var resp struct {
		ProtocolVersion string     `json:"protocolVersion"`
		ServerInfo      ServerInfo `json:"serverInfo"`
	}
	if err := c.call(ctx, "initialize", params, &resp); err != nil {
		return ServerInfo{}, err
	}
	if err := c.notify(ctx, "notifications/initialized", nil); err != nil {
		return ServerInfo{}, err
	}
	return resp.ServerInfo, nil
}

// ListTools retrieves the tools exposed by the server, following pagination
// cursors when the server paginates.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	var (
		cursor string
		tools  []ToolDefinition
	)
	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var resp struct {
			Tools      []ToolDefinition `json:"tools"`
			NextCursor string           `json:"nextCursor,omitempty"`
		}
		if err := c.call(ctx, "tools/list", params, &resp); err != nil {
			return nil, err
		}

		tools = append(tools, resp.Tools...)
		if strings.TrimSpace(resp.NextCursor) == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return tools, nil
}

// CallTool invokes a named tool. A result with IsError set is returned with a
// nil error: the tool ran and reported failure, which callers relay to the
// model rather than abort on. A non-nil error means the invocation itself
// failed at the transport or protocol level.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*ToolResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("mcp: tool name is required")
	}

	params := map[string]any{"name": name}
	if len(arguments) > 0 {
		params["arguments"] = arguments
	}

	var result ToolResult
	if err := c.call(ctx, "tools/call", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close tears the session down: best-effort shutdown request and exit
// notification, transport close, then process kill if it has not exited
// within a grace period. Close is idempotent, safe on a never-connected
// client, and never returns teardown failures; they are logged instead.
func (c *Client) Close(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	transport := c.transport
	cmd := c.cmd
	procDone := c.procDone
	c.transport = nil
	c.cmd = nil
	c.procDone = nil
	c.connected = false
	c.mu.Unlock()

	if transport == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.shutdownExchange(sctx, transport); err != nil {
			c.logger.Printf("mcp: %s: shutdown request: %v", c.Name(), err)
			return
		}
		exit := request{JSONRPC: "2.0", Method: "exit"}
		if payload, err := marshalFrame(exit); err == nil {
			if err := transport.Send(sctx, payload); err != nil {
				c.logger.Printf("mcp: %s: exit notification: %v", c.Name(), err)
			}
		}
	}()
	select {
	case <-done:
	case <-sctx.Done():
		c.logger.Printf("mcp: %s: shutdown timed out", c.Name())
	}

	// Closing the transport also unblocks the shutdown goroutine if it is
	// still stuck on the stream.
	if err := transport.Close(); err != nil {
		c.logger.Printf("mcp: %s: close transport: %v", c.Name(), err)
	}

	if cmd == nil || procDone == nil {
		return
	}
	select {
	case <-procDone:
	case <-time.After(2 * time.Second):
		c.logger.Printf("mcp: %s: server did not exit, killing", c.Name())
		if err := cmd.Process.Kill(); err != nil {
			c.logger.Printf("mcp: %s: kill: %v", c.Name(), err)
		}
		<-procDone
	}
}

// shutdownExchange performs a full shutdown round trip so well-behaved
// servers can clean up before the exit notification arrives.
func (c *Client) shutdownExchange(ctx context.Context, transport Transport) error {
	req := c.newRequest("shutdown", nil)
	if err := c.send(ctx, transport, req); err != nil {
		return err
	}
	for {
		msg, err := transport.Receive(ctx)
		if err != nil {
			return err
		}
		var env responseEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			continue
		}
		if env.Method == "" && env.ID != nil && *env.ID == *req.ID {
			return nil
		}
	}
}

func (c *Client) currentTransport() (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if !c.connected || c.transport == nil {
		return nil, ErrNotConnected
	}
	return c.transport, nil
}

func (c *Client) newRequest(method string, params any) request {
	id := strconv.FormatUint(c.idCounter.Add(1), 10)
	req := request{JSONRPC: "2.0", ID: &id, Method: method}
	if params != nil {
		if raw, err := json.Marshal(params); err == nil {
			req.Params = raw
		}
	}
	return req
}

func (c *Client) send(ctx context.Context, transport Transport, req request) error {
	payload, err := marshalFrame(req)
	if err != nil {
		return err
	}
	return transport.Send(ctx, payload)
}

func (c *Client) notify(ctx context.Context, method string, params any) error {
	transport, err := c.currentTransport()
	if err != nil {
		return err
	}
	req := request{JSONRPC: "2.0", Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("mcp: marshal params: %w", err)
		}
		req.Params = raw
	}
	payload, err := marshalFrame(req)
	if err != nil {
		return err
	}
	return transport.Send(ctx, payload)
}

// call performs one request/response exchange. Server notifications and
// responses to other ids encountered on the stream are skipped.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	transport, err := c.currentTransport()
	if err != nil {
		return err
	}

	req := c.newRequest(method, params)

	c.rpcMu.Lock()
	defer c.rpcMu.Unlock()

	if err := c.send(ctx, transport, req); err != nil {
		return err
	}

	for {
		msg, err := transport.Receive(ctx)
		if err != nil {
			return err
		}

		var env responseEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			return fmt.Errorf("mcp: decode response: %w", err)
		}

		if env.Method != "" {
			// Server-initiated notification; not ours to answer.
			continue
		}
		if env.ID == nil || *env.ID != *req.ID {
			continue
		}

		if env.Error != nil {
			if env.Error.Code == codeMethodNotFound {
				return fmt.Errorf("%w: %s", ErrMethodNotFound, env.Error.Message)
			}
			return env.Error
		}
		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return fmt.Errorf("mcp: decode result: %w", err)
			}
		}
		return nil
	}
}
