package model

import (
	"context"
	"fmt"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/schema"
)

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Retry        RetryPolicy
}

// AnthropicProvider implements Provider against Anthropic's Messages
// API, grounded on the teacher pack's own Claude integration style:
// build MessageNewParams from the conversation, run it through the SDK
// client, and fold content blocks back into the Provider contract's
// plain-string surface.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	retry  RetryPolicy
}

// NewAnthropicProvider builds an AnthropicProvider from cfg.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, loomerr.New(loomerr.Validation, "model.NewAnthropicProvider", fmt.Errorf("api key is required"))
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
		retry:  retry,
	}, nil
}

func (p *AnthropicProvider) ModelID() string                 { return p.model }
func (p *AnthropicProvider) SupportsFunctionCalling() bool    { return true }

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return p.GenerateWithMessages(ctx, []schema.Message{schema.NewUser(prompt)}, opts)
}

func (p *AnthropicProvider) GenerateWithMessages(ctx context.Context, messages []schema.Message, opts Options) (string, error) {
	params, err := p.buildParams(messages, nil, opts)
	if err != nil {
		return "", err
	}
	var text string
	err = WithRetry(ctx, p.retry, func() error {
		msg, callErr := p.client.Messages.New(ctx, params)
		if callErr != nil {
			return classifyAnthropicError(callErr)
		}
		text = extractText(msg.Content)
		return nil
	})
	return text, err
}

func (p *AnthropicProvider) GenerateStream(ctx context.Context, prompt string, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params, err := p.buildParams([]schema.Message{schema.NewUser(prompt)}, nil, opts)
		if err != nil {
			yield("", err)
			return
		}
		stream := p.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			if ctx.Err() != nil {
				return
			}
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text := delta.Delta.Text; text != "" {
					if !yield(text, nil) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield("", classifyAnthropicError(err))
		}
	}
}

func (p *AnthropicProvider) GenerateWithFunctions(ctx context.Context, messages []schema.Message, functions []schema.ToolSchema, toolChoice string, opts Options) (FunctionResult, error) {
	params, err := p.buildParams(messages, functions, opts)
	if err != nil {
		return FunctionResult{}, err
	}
	var result FunctionResult
	err = WithRetry(ctx, p.retry, func() error {
		msg, callErr := p.client.Messages.New(ctx, params)
		if callErr != nil {
			return classifyAnthropicError(callErr)
		}
		result = FunctionResult{
			Content:      extractText(msg.Content),
			FinishReason: string(msg.StopReason),
		}
		for _, block := range msg.Content {
			if tu := block.AsToolUse(); tu.ID != "" {
				args, _ := tu.Input.(map[string]any)
				result.FunctionCalls = append(result.FunctionCalls, FunctionCall{
					ID:        tu.ID,
					Name:      tu.Name,
					Arguments: args,
				})
			}
		}
		return nil
	})
	return result, err
}

func (p *AnthropicProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, loomerr.New(loomerr.Validation, "model.AnthropicProvider.Embed", fmt.Errorf("anthropic does not expose an embeddings endpoint"))
}

func (p *AnthropicProvider) buildParams(messages []schema.Message, tools []schema.ToolSchema, opts Options) (anthropic.MessageNewParams, error) {
	model := p.model
	if opts.ModelOverride != "" {
		model = opts.ModelOverride
	}
	maxTokens := int64(4096)
	if opts.MaxTokens != nil {
		maxTokens = int64(*opts.MaxTokens)
	}

	var systemBlocks []anthropic.TextBlockParam
	var msgParams []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case schema.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: m.Content})
		case schema.RoleAssistant:
			msgParams = append(msgParams, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case schema.RoleTool:
			msgParams = append(msgParams, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID(), m.Content, false),
			))
		default:
			msgParams = append(msgParams, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgParams,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	if len(opts.Stop) > 0 {
		params.StopSequences = opts.Stop
	}
	for _, t := range tools {
		if t.IsRaw() {
			continue
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        toolNameOf(t),
				InputSchema: jsonSchemaParam(t.ToJSONSchema()),
			},
		})
	}
	return params, nil
}

func toolNameOf(t schema.ToolSchema) string {
	if name, ok := t.Raw["name"].(string); ok {
		return name
	}
	return ""
}

func jsonSchemaParam(js map[string]any) anthropic.ToolInputSchemaParam {
	props, _ := js["properties"].(map[string]any)
	var required []string
	if req, ok := js["required"].([]string); ok {
		required = req
	}
	return anthropic.ToolInputSchemaParam{Properties: props, Required: required}
}

func extractText(blocks []anthropic.ContentBlockUnion) string {
	var out string
	for _, b := range blocks {
		if t := b.AsText(); t.Text != "" {
			out += t.Text
		}
	}
	return out
}

func classifyAnthropicError(err error) error {
	if err == nil {
		return nil
	}
	// The SDK distinguishes status-code families; without the concrete
	// APIError type in scope here we conservatively classify as
	// Network so the retry policy still applies, which is the safer
	// default for transient upstream failures.
	return loomerr.New(loomerr.Network, "model.anthropic", err)
}
