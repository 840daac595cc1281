package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultAnthropicModel balances latency and quality for the chat loop.
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"

	defaultMaxTokens   = 4000
	defaultTemperature = 0.1
)

// AnthropicOptions configure the Anthropic-backed Chat implementation.
type AnthropicOptions struct {
	APIKey string
	Model  string

	// MaxTokens caps the completion length. Zero selects the default.
	MaxTokens int

	// Temperature defaults to a low value suitable for clinical answers
	// when nil.
	Temperature *float64
}

// AnthropicChat implements Chat on top of the Anthropic Messages API,
// including the tool-use content blocks required by the orchestration loop.
type AnthropicChat struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

var _ Chat = (*AnthropicChat)(nil)

// NewAnthropicChat validates the options and builds the client. No network
// traffic happens until Complete is called.
func NewAnthropicChat(opts AnthropicOptions) (*AnthropicChat, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("models: anthropic api key is required")
	}

	model := opts.Model
	if strings.TrimSpace(model) == "" {
		model = DefaultAnthropicModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	return &AnthropicChat{
		client:      anthropic.NewClient(option.WithAPIKey(opts.APIKey)),
		model:       anthropic.Model(model),
		maxTokens:   int64(maxTokens),
		temperature: temperature,
	}, nil
}

// Complete runs one Messages call, translating between the runtime's block
// representation and the SDK's content unions.
func (a *AnthropicChat) Complete(ctx context.Context, system string, turns []Turn, tools []ToolDef) (*Response, error) {
	if a == nil {
		return nil, errors.New("models: anthropic chat is nil")
	}
	if len(turns) == 0 {
		return nil, errors.New("models: at least one turn is required")
	}

	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(a.temperature),
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	for _, turn := range turns {
		msg, err := toMessageParam(turn)
		if err != nil {
			return nil, err
		}
		params.Messages = append(params.Messages, msg)
	}

	for _, def := range tools {
		params.Tools = append(params.Tools, toToolParam(def))
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("models: anthropic completion: %w", err)
	}

	resp := &Response{StopReason: string(msg.StopReason)}
	for _, blk := range msg.Content {
		switch b := blk.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Blocks = append(resp.Blocks, TextBlock{Text: b.Text})
		case anthropic.ToolUseBlock:
			resp.Blocks = append(resp.Blocks, ToolUseBlock{
				ID:    b.ID,
				Name:  b.Name,
				Input: json.RawMessage(b.Input),
			})
		}
	}
	return resp, nil
}

func toMessageParam(turn Turn) (anthropic.MessageParam, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Blocks))
	for _, b := range turn.Blocks {
		switch block := b.(type) {
		case TextBlock:
			blocks = append(blocks, anthropic.NewTextBlock(block.Text))
		case ToolUseBlock:
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				},
			})
		case ToolResultBlock:
			blocks = append(blocks, anthropic.NewToolResultBlock(block.ToolUseID, block.Content, block.IsError))
		default:
			return anthropic.MessageParam{}, fmt.Errorf("models: unsupported block type %T", b)
		}
	}

	switch turn.Role {
	case RoleUser:
		return anthropic.NewUserMessage(blocks...), nil
	case RoleAssistant:
		return anthropic.NewAssistantMessage(blocks...), nil
	default:
		return anthropic.MessageParam{}, fmt.Errorf("models: unsupported role %q", turn.Role)
	}
}

func toToolParam(def ToolDef) anthropic.ToolUnionParam {
	var schema struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if len(def.InputSchema) > 0 {
		// A malformed schema degrades to an empty one; the server still
		// validates arguments on invocation.
		_ = json.Unmarshal(def.InputSchema, &schema)
	}

	tool := anthropic.ToolParam{
		Name: def.Name,
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: schema.Properties,
			Required:   schema.Required,
		},
	}
	if def.Description != "" {
		tool.Description = anthropic.String(def.Description)
	}
	return anthropic.ToolUnionParam{OfTool: &tool}
}
