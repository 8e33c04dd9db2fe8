package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/model"
)

// fakeProvider returns a fixed reply or error and counts calls.
type fakeProvider struct {
	name    string
	reply   string
	partial string // streamed before err is returned
	err     error
	block   bool

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Send(ctx context.Context, _ Request, onChunk func(string)) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		if onChunk != nil && f.partial != "" {
			onChunk(f.partial)
		}
		return "", f.err
	}
	if onChunk != nil {
		onChunk(f.reply)
	}
	return f.reply, nil
}

// screen is a Stream that behaves like a redrawable display.
type screen struct {
	text   strings.Builder
	resets int
}

func (s *screen) Write(chunk string) { s.text.WriteString(chunk) }

func (s *screen) Reset() {
	s.resets++
	s.text.Reset()
}

// ─── Client ──────────────────────────────────────────────────────────────────

func TestClient_PrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "p", reply: "hello"}
	fallback := &fakeProvider{name: "f", reply: "unused"}
	c := NewClient(primary, WithFallback(fallback))

	var out screen
	r := c.Generate(context.Background(), "s1", Request{}, &out)

	assert.Equal(t, Reply{Text: "hello", Provider: "p"}, r)
	assert.Equal(t, "hello", out.text.String())
	assert.Zero(t, out.resets)
	assert.Zero(t, fallback.calls)
}

func TestClient_FallbackAfterPartialStreamResets(t *testing.T) {
	primary := &fakeProvider{name: "p", partial: "Partial answer from prim", err: errors.New("connection reset")}
	fallback := &fakeProvider{name: "f", reply: "Full fallback answer."}
	c := NewClient(primary, WithFallback(fallback))

	var out screen
	r := c.Generate(context.Background(), "s1", Request{}, &out)

	assert.Equal(t, "Full fallback answer.", r.Text)
	assert.Equal(t, 1, out.resets)
	assert.Equal(t, "Full fallback answer.", out.text.String())
}

func TestClient_DegradedReplyIsStreamed(t *testing.T) {
	primary := &fakeProvider{name: "p", partial: "Half", err: errors.New("503")}
	fallback := &fakeProvider{name: "f", err: errors.New("429")}
	c := NewClient(primary, WithFallback(fallback))

	var out screen
	r := c.Generate(context.Background(), "s1", Request{}, &out)

	assert.True(t, r.Degraded)
	assert.Equal(t, apperr.DegradedReply, out.text.String())
	assert.Equal(t, 1, out.resets)
}

func TestClient_FallsBackOnce(t *testing.T) {
	primary := &fakeProvider{name: "p", err: errors.New("503")}
	fallback := &fakeProvider{name: "f", reply: "from fallback"}
	c := NewClient(primary, WithFallback(fallback))

	r := c.Generate(context.Background(), "s1", Request{}, nil)
	assert.False(t, r.Degraded)
	assert.Equal(t, "from fallback", r.Text)
	assert.Equal(t, "f", r.Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestClient_DegradesWhenAllFail(t *testing.T) {
	tests := []struct {
		name     string
		primary  Provider
		fallback Provider
	}{
		{"both fail", &fakeProvider{name: "p", err: errors.New("503")}, &fakeProvider{name: "f", err: errors.New("429")}},
		{"no fallback", &fakeProvider{name: "p", err: errors.New("503")}, nil},
		{"no providers", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []ClientOption
			if tt.fallback != nil {
				opts = append(opts, WithFallback(tt.fallback))
			}
			r := NewClient(tt.primary, opts...).Generate(context.Background(), "s1", Request{}, nil)
			assert.True(t, r.Degraded)
			assert.Equal(t, apperr.DegradedReply, r.Text)
			require.Error(t, r.Err)
			assert.Equal(t, apperr.KindGenerationProvider, apperr.KindOf(r.Err))
		})
	}
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	primary := &fakeProvider{name: "p", block: true}
	c := NewClient(primary, WithTimeout(10*time.Millisecond))

	r := c.Generate(context.Background(), "s1", Request{}, nil)
	assert.True(t, r.Degraded)
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(r.Err))
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
}

func TestClient_RateLimited(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiterWithClock(time.Minute, 0, 1, func() time.Time { return now })
	primary := &fakeProvider{name: "p", reply: "ok"}
	c := NewClient(primary, WithRateLimiter(limiter))

	assert.False(t, c.Generate(context.Background(), "s1", Request{}, nil).Degraded)
	r := c.Generate(context.Background(), "s1", Request{}, nil)
	assert.True(t, r.Degraded)
	assert.ErrorIs(t, r.Err, ErrRateLimited)
	assert.Equal(t, 1, primary.calls)

	assert.False(t, c.Generate(context.Background(), "s2", Request{}, nil).Degraded)
}

// ─── RateLimiter ─────────────────────────────────────────────────────────────

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiterWithClock(time.Minute, 3, 2, func() time.Time { return now })

	ok, _ := l.Allow("a")
	assert.True(t, ok)
	now = now.Add(10 * time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok)

	ok, wait := l.Allow("a")
	assert.False(t, ok, "per-session limit")
	assert.Equal(t, 50*time.Second, wait)

	ok, _ = l.Allow("b")
	assert.True(t, ok)
	ok, wait = l.Allow("c")
	assert.False(t, ok, "global limit")
	assert.Equal(t, 50*time.Second, wait)

	now = now.Add(51 * time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok, "oldest call left the window")
}

func TestRateLimiter_ZeroDisables(t *testing.T) {
	l := NewRateLimiter(time.Minute, 0, 0)
	for i := 0; i < 100; i++ {
		ok, _ := l.Allow("a")
		require.True(t, ok)
	}
}

func TestRateLimiter_ConcurrentSessions(t *testing.T) {
	l := NewRateLimiter(time.Hour, 50, 0)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if ok, _ := l.Allow(string(rune('a' + i%10))); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

// ─── LangChainProvider ───────────────────────────────────────────────────────

// fakeLLM records what it was sent and streams its reply in two chunks.
type fakeLLM struct {
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.opts.StreamingFunc != nil {
		half := len(f.reply) / 2
		_ = f.opts.StreamingFunc(ctx, []byte(f.reply[:half]))
		_ = f.opts.StreamingFunc(ctx, []byte(f.reply[half:]))
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainProvider_Send(t *testing.T) {
	llm := &fakeLLM{reply: "What problem does it solve?"}
	p := NewLangChainProvider("fake", llm)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var chunks []string
	text, err := p.Send(context.Background(), Request{
		System:      "You are an analyst.",
		Messages:    []model.Message{model.NewMessage(model.RoleUser, "I want an app", at), model.NewMessage(model.RoleAssistant, "Tell me more", at)},
		MaxTokens:   256,
		Temperature: 0.3,
	}, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)

	assert.Equal(t, "What problem does it solve?", text)
	assert.Equal(t, text, strings.Join(chunks, ""))
	require.Len(t, llm.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, llm.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, llm.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, llm.messages[2].Role)
	assert.Equal(t, 256, llm.opts.MaxTokens)
	assert.Equal(t, 0.3, llm.opts.Temperature)
}

func TestLangChainProvider_Errors(t *testing.T) {
	p := NewLangChainProvider("fake", &fakeLLM{err: errors.New("boom")})
	_, err := p.Send(context.Background(), Request{}, nil)
	assert.ErrorContains(t, err, "generate with fake: boom")

	empty := &fakeEmptyLLM{}
	_, err = NewLangChainProvider("empty", empty).Send(context.Background(), Request{}, nil)
	assert.ErrorContains(t, err, "no response choices")
}

type fakeEmptyLLM struct{ fakeLLM }

func (f *fakeEmptyLLM) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantErr string
		want    string
	}{
		{"openai without key", ProviderConfig{Kind: KindOpenAI, Model: "gpt-4o-mini"}, "API key required", ""},
		{"anthropic without key", ProviderConfig{Kind: KindAnthropic, Model: "claude"}, "API key required", ""},
		{"unknown", ProviderConfig{Kind: "cohere"}, "unsupported LLM provider", ""},
		{"openai", ProviderConfig{Kind: "OpenAI", Model: "gpt-4o-mini", APIKey: "sk-test"}, "", "openai/gpt-4o-mini"},
		{"anthropic", ProviderConfig{Kind: KindAnthropic, Model: "claude-x", APIKey: "k", BaseURL: "http://localhost:1"}, "", "anthropic/claude-x"},
		{"ollama", ProviderConfig{Kind: KindOllama, Model: "llama3", BaseURL: "http://localhost:11434"}, "", "ollama/llama3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}
