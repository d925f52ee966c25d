package model

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/sashabaranov/go-openai"

	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/schema"
)

// OpenAIConfig configures an OpenAIProvider. BaseURL lets the same
// adapter target any OpenAI-compatible endpoint (local proxies,
// self-hosted gateways), matching how the pack's examples reuse
// go-openai for non-OpenAI backends.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Retry        RetryPolicy
}

// OpenAIProvider implements Provider against the Chat Completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	retry  RetryPolicy
}

// NewOpenAIProvider builds an OpenAIProvider from cfg.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, loomerr.New(loomerr.Validation, "model.NewOpenAIProvider", fmt.Errorf("api key is required"))
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = openai.GPT4oMini
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		retry:  retry,
	}, nil
}

func (p *OpenAIProvider) ModelID() string              { return p.model }
func (p *OpenAIProvider) SupportsFunctionCalling() bool { return true }

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return p.GenerateWithMessages(ctx, []schema.Message{schema.NewUser(prompt)}, opts)
}

func (p *OpenAIProvider) GenerateWithMessages(ctx context.Context, messages []schema.Message, opts Options) (string, error) {
	req := p.buildRequest(messages, nil, opts)
	var text string
	err := WithRetry(ctx, p.retry, func() error {
		resp, callErr := p.client.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return classifyOpenAIError(callErr)
		}
		if len(resp.Choices) == 0 {
			return loomerr.New(loomerr.Internal, "model.openai", fmt.Errorf("empty choices"))
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	return text, err
}

func (p *OpenAIProvider) GenerateStream(ctx context.Context, prompt string, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := p.buildRequest([]schema.Message{schema.NewUser(prompt)}, nil, opts)
		req.Stream = true
		stream, err := p.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield("", classifyOpenAIError(err))
			return
		}
		defer stream.Close()
		for {
			if ctx.Err() != nil {
				return
			}
			resp, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", classifyOpenAIError(err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
	}
}

func (p *OpenAIProvider) GenerateWithFunctions(ctx context.Context, messages []schema.Message, functions []schema.ToolSchema, toolChoice string, opts Options) (FunctionResult, error) {
	req := p.buildRequest(messages, functions, opts)
	if toolChoice != "" {
		req.ToolChoice = toolChoice
	}
	var result FunctionResult
	err := WithRetry(ctx, p.retry, func() error {
		resp, callErr := p.client.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return classifyOpenAIError(callErr)
		}
		if len(resp.Choices) == 0 {
			return loomerr.New(loomerr.Internal, "model.openai", fmt.Errorf("empty choices"))
		}
		choice := resp.Choices[0]
		result = FunctionResult{
			Content:      choice.Message.Content,
			FinishReason: string(choice.FinishReason),
		}
		for _, tc := range choice.Message.ToolCalls {
			args, _ := parseJSONObject(tc.Function.Arguments)
			result.FunctionCalls = append(result.FunctionCalls, FunctionCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			})
		}
		return nil
	})
	return result, err
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := WithRetry(ctx, p.retry, func() error {
		resp, callErr := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.AdaEmbeddingV2,
		})
		if callErr != nil {
			return classifyOpenAIError(callErr)
		}
		if len(resp.Data) == 0 {
			return loomerr.New(loomerr.Internal, "model.openai.Embed", fmt.Errorf("empty embedding response"))
		}
		vec = resp.Data[0].Embedding
		return nil
	})
	return vec, err
}

func (p *OpenAIProvider) buildRequest(messages []schema.Message, tools []schema.ToolSchema, opts Options) openai.ChatCompletionRequest {
	model := p.model
	if opts.ModelOverride != "" {
		model = opts.ModelOverride
	}
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
		Stop:     opts.Stop,
	}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	for _, t := range tools {
		if t.IsRaw() {
			continue
		}
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:       toolNameOf(t),
				Parameters: t.ToJSONSchema(),
			},
		})
	}
	return req
}

func toOpenAIMessages(messages []schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case schema.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case schema.RoleAssistant:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content})
		case schema.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID(),
			})
		default:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		}
	}
	return out
}

func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*openai.APIError); ok {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return loomerr.New(loomerr.Auth, "model.openai", err)
		case 429:
			return loomerr.New(loomerr.RateLimit, "model.openai", err)
		case 400, 404, 422:
			return loomerr.New(loomerr.Validation, "model.openai", err)
		}
	}
	return loomerr.New(loomerr.Network, "model.openai", err)
}
