// Package generation is the client side of the external text-generation
// collaborator: providers built on langchaingo, a shared sliding-window
// rate limiter, and a Client that falls back to a second provider and then
// to a canned reply so a conversation turn never fails outright.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/HendryAvila/specwright/internal/model"
)

// Supported provider kinds.
const (
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindOllama    = "ollama"
)

// Request is one generation call.
type Request struct {
	System      string
	Messages    []model.Message
	MaxTokens   int
	Temperature float64
}

// Provider sends a request to a language model. onChunk, when non-nil,
// receives the reply incrementally; the full text is returned either way.
type Provider interface {
	Name() string
	Send(ctx context.Context, req Request, onChunk func(string)) (string, error)
}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Kind    string
	Model   string
	APIKey  string
	BaseURL string
}

// LangChainProvider adapts a langchaingo model.
type LangChainProvider struct {
	name string
	llm  llms.Model
}

var _ Provider = (*LangChainProvider)(nil)

// NewLangChainProvider wraps an already constructed langchaingo model.
func NewLangChainProvider(name string, llm llms.Model) *LangChainProvider {
	return &LangChainProvider{name: name, llm: llm}
}

// NewProvider creates a provider based on configuration.
func NewProvider(cfg ProviderConfig) (*LangChainProvider, error) {
	var llm llms.Model
	var err error

	switch strings.ToLower(cfg.Kind) {
	case KindOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case KindOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case KindAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		llm, err = anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Kind)
	}

	name := strings.ToLower(cfg.Kind)
	if cfg.Model != "" {
		name += "/" + cfg.Model
	}
	return NewLangChainProvider(name, llm), nil
}

// Name identifies the provider in logs and replies.
func (p *LangChainProvider) Name() string { return p.name }

// Send implements Provider.
func (p *LangChainProvider) Send(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if onChunk != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			onChunk(string(chunk))
			return nil
		}))
	}

	resp, err := p.llm.GenerateContent(ctx, toMessageContent(req), opts...)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate with %s: no response choices", p.name)
	}
	return resp.Choices[0].Content, nil
}

func toMessageContent(req Request) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, m := range req.Messages {
		out = append(out, llms.TextParts(chatType(m.Role), m.Content))
	}
	return out
}

func chatType(r model.Role) llms.ChatMessageType {
	switch r {
	case model.RoleAssistant:
		return llms.ChatMessageTypeAI
	case model.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}
