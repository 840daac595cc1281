package docther

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/docther/docther/pkg/models"
)

const (
	// DefaultHistoryWindow bounds how many prior turns are replayed to the
	// model on each request.
	DefaultHistoryWindow = 20

	defaultMaxParallelTools = 4

	// errorAnswer is recorded as the assistant turn when the model itself
	// is unreachable, so every user turn still gets exactly one reply.
	errorAnswer = "❌ Error processing request. Please try again."
)

// Options configure an Orchestrator.
type Options struct {
	Chat         models.Chat
	Registry     *Registry
	SystemPrompt string

	// HistoryWindow is the number of most recent turns sent to the model.
	// Zero selects DefaultHistoryWindow; negative disables truncation.
	HistoryWindow int

	// MaxParallelTools bounds concurrent tool dispatch within one turn.
	MaxParallelTools int

	Logger *log.Logger
}

// ToolCall records one tool invocation performed during a turn.
type ToolCall struct {
	Server   string
	Tool     string
	Input    json.RawMessage
	Output   string
	IsError  bool
	Duration time.Duration
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	Answer    string
	ToolCalls []ToolCall
}

// Orchestrator drives the two-phase tool-use loop: one model call with the
// aggregated tool definitions, concurrent dispatch of any requested tools,
// then a second call carrying the tool results back for the final answer.
type Orchestrator struct {
	chat        models.Chat
	registry    *Registry
	system      string
	window      int
	maxParallel int
	logger      *log.Logger
}

// NewOrchestrator validates the options. Registry may be empty, in which case
// every turn is a plain single-call completion.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Chat == nil {
		return nil, errors.New("docther: chat model is required")
	}
	registry := opts.Registry
	if registry == nil {
		registry = &Registry{}
	}
	window := opts.HistoryWindow
	if window == 0 {
		window = DefaultHistoryWindow
	}
	maxParallel := opts.MaxParallelTools
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallelTools
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		chat:        opts.Chat,
		registry:    registry,
		system:      opts.SystemPrompt,
		window:      window,
		maxParallel: maxParallel,
		logger:      logger,
	}, nil
}

// Respond processes one user message against the conversation. The user turn
// and the final assistant turn are appended to conv; intermediate tool-use
// and tool-result blocks stay within the turn. Model failures are degraded to
// an error answer rather than an aborted turn, so the returned error is
// reserved for invalid input.
func (o *Orchestrator) Respond(ctx context.Context, conv *Conversation, userText string) (*TurnResult, error) {
	if conv == nil {
		return nil, errors.New("docther: conversation is required")
	}
	if strings.TrimSpace(userText) == "" {
		return nil, errors.New("docther: empty user message")
	}

	conv.Append(models.UserText(userText))
	turns := conv.Window(o.window)

	resp, err := o.chat.Complete(ctx, o.system, turns, o.registry.Defs())
	if err != nil {
		o.logger.Printf("orchestrator: model call failed: %v", err)
		conv.Append(models.AssistantText(errorAnswer))
		return &TurnResult{Answer: errorAnswer}, nil
	}

	uses := resp.ToolUses()
	if len(uses) == 0 {
		answer := resp.Text()
		conv.Append(models.AssistantText(answer))
		return &TurnResult{Answer: answer}, nil
	}

	results, records := o.dispatch(ctx, uses)

	followUp := append(turns, resp.Turn(), models.ToolResults(results))
	final, err := o.chat.Complete(ctx, o.system, followUp, nil)

	var answer string
	if err != nil {
		o.logger.Printf("orchestrator: follow-up model call failed: %v", err)
		answer = errorAnswer
	} else {
		answer = final.Text()
	}

	conv.Append(models.AssistantText(answer))
	return &TurnResult{Answer: answer, ToolCalls: records}, nil
}

// dispatch runs the requested tools concurrently, bounded by maxParallel.
// Result order matches the order of the tool-use blocks regardless of
// completion order.
func (o *Orchestrator) dispatch(ctx context.Context, uses []models.ToolUseBlock) ([]models.ToolResultBlock, []ToolCall) {
	results := make([]models.ToolResultBlock, len(uses))
	records := make([]ToolCall, len(uses))

	sem := make(chan struct{}, o.maxParallel)
	var wg sync.WaitGroup
	for i, use := range uses {
		wg.Add(1)
		go func(i int, use models.ToolUseBlock) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], records[i] = o.invoke(ctx, use)
		}(i, use)
	}
	wg.Wait()
	return results, records
}

func (o *Orchestrator) invoke(ctx context.Context, use models.ToolUseBlock) (models.ToolResultBlock, ToolCall) {
	start := time.Now()
	record := ToolCall{Tool: use.Name, Input: use.Input}

	fail := func(message string) (models.ToolResultBlock, ToolCall) {
		record.Output = message
		record.IsError = true
		record.Duration = time.Since(start)
		return models.ToolResultBlock{ToolUseID: use.ID, Content: message, IsError: true}, record
	}

	server, ok := o.registry.Lookup(use.Name)
	if !ok {
		o.logger.Printf("orchestrator: tool %s is not in the registry", use.Name)
		return fail("Tool not available")
	}
	record.Server = server.Name()

	var args map[string]any
	if len(use.Input) > 0 {
		if err := json.Unmarshal(use.Input, &args); err != nil {
			o.logger.Printf("orchestrator: tool %s: decoding input: %v", use.Name, err)
			return fail(fmt.Sprintf("Tool execution failed: invalid input: %v", err))
		}
	}

	result, err := server.CallTool(ctx, use.Name, args)
	if err != nil {
		o.logger.Printf("orchestrator: tool %s on %s: %v", use.Name, server.Name(), err)
		return fail(fmt.Sprintf("Tool execution failed: %v", err))
	}

	record.Output = result.PrimaryText()
	record.IsError = result.IsError
	record.Duration = time.Since(start)
	return models.ToolResultBlock{
		ToolUseID: use.ID,
		Content:   result.PrimaryText(),
		IsError:   result.IsError,
	}, record
}
