package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// ToolHandler executes one tool invocation. Returning an error produces a
// failed tool result for the caller; it does not terminate the session.
type ToolHandler func(ctx context.Context, args json.RawMessage) (*ToolResult, error)

type serverTool struct {
	def     ToolDefinition
	handler ToolHandler
}

// Server answers the MCP tooling methods over a framed stream. Tools are
// registered before Serve; registration order is preserved in listings.
type Server struct {
	info   ServerInfo
	logger *log.Logger

	mu    sync.RWMutex
	tools map[string]serverTool
	order []string
}

// NewServer builds a server that reports the given identity during the
// initialize handshake.
func NewServer(name, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		info:   ServerInfo{Name: name, Version: version},
		logger: logger,
		tools:  make(map[string]serverTool),
	}
}

// Register adds a tool. Duplicate names are rejected so a server never
// advertises an ambiguous catalog.
func (s *Server) Register(def ToolDefinition, handler ToolHandler) error {
	if strings.TrimSpace(def.Name) == "" {
		return errors.New("mcp: tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("mcp: tool %s has no handler", def.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[def.Name]; exists {
		return fmt.Errorf("mcp: tool %s already registered", def.Name)
	}
	s.tools[def.Name] = serverTool{def: def, handler: handler}
	s.order = append(s.order, def.Name)
	return nil
}

// Tools returns the registered tool definitions in registration order.
func (s *Server) Tools() []ToolDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(s.order))
	for _, name := range s.order {
		defs = append(defs, s.tools[name].def)
	}
	return defs
}

// Serve processes requests from r and writes responses to w until the stream
// ends, the context is cancelled, or the client sends exit. A clean end of
// stream returns nil.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	var writeMu sync.Mutex

	respond := func(env responseEnvelope) {
		env.JSONRPC = "2.0"
		payload, err := marshalFrame(env)
		if err != nil {
			s.logger.Printf("mcp server %s: encode response: %v", s.info.Name, err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := writeFrame(w, payload); err != nil {
			s.logger.Printf("mcp server %s: write response: %v", s.info.Name, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := readFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("mcp: read request: %w", err)
		}

		var req request
		if err := json.Unmarshal(payload, &req); err != nil {
			respond(responseEnvelope{Error: &rpcError{Code: codeParseError, Message: err.Error()}})
			continue
		}

		if req.Method == "exit" {
			return nil
		}
		if req.isNotification() {
			// initialized and other notifications need no reply.
			continue
		}

		result, rpcErr := s.dispatch(ctx, req)
		if rpcErr != nil {
			respond(responseEnvelope{ID: req.ID, Error: rpcErr})
			continue
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			respond(responseEnvelope{ID: req.ID, Error: &rpcError{Code: codeInternalError, Message: err.Error()}})
			continue
		}
		respond(responseEnvelope{ID: req.ID, Result: encoded})
	}
}

func (s *Server) dispatch(ctx context.Context, req request) (any, *rpcError) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": defaultProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      s.info,
		}, nil
	case "ping", "shutdown":
		return map[string]any{}, nil
	case "tools/list":
		return map[string]any{"tools": s.Tools()}, nil
	case "tools/call":
		return s.callTool(ctx, req.Params), nil
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) *ToolResult {
	var payload struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &payload); err != nil {
		return ErrorResult(fmt.Sprintf("invalid tool call parameters: %v", err))
	}

	s.mu.RLock()
	tool, ok := s.tools[payload.Name]
	s.mu.RUnlock()
	if !ok {
		return ErrorResult(fmt.Sprintf("unknown tool: %s", payload.Name))
	}

	result, err := tool.handler(ctx, payload.Arguments)
	if err != nil {
		s.logger.Printf("mcp server %s: tool %s: %v", s.info.Name, payload.Name, err)
		return ErrorResult(fmt.Sprintf("Tool execution failed: %v", err))
	}
	if result == nil {
		return TextResult("")
	}
	return result
}
