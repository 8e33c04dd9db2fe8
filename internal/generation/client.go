package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HendryAvila/specwright/internal/apperr"
)

// ErrRateLimited is the cause of a reply refused by the rate limiter.
var ErrRateLimited = errors.New("generation rate limit exceeded")

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 60 * time.Second

// Reply is the outcome of a generation attempt. Text is always usable:
// when Degraded is set it holds the canned reply and Err the failure that
// caused it.
type Reply struct {
	Text     string
	Provider string
	Degraded bool
	Err      error
}

// Stream receives reply text while it is generated.
type Stream interface {
	// Write receives the next piece of the reply.
	Write(chunk string)
	// Reset discards everything written since the previous Reset. The client
	// calls it when a provider fails after streaming part of a reply, before
	// the next provider starts.
	Reset()
}

// Client calls a primary provider, retries once on a fallback provider and
// degrades to apperr.DegradedReply when both fail.
type Client struct {
	primary  Provider
	fallback Provider
	limiter  *RateLimiter
	timeout  time.Duration
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithFallback sets the provider tried after the primary fails.
func WithFallback(p Provider) ClientOption {
	return func(c *Client) { c.fallback = p }
}

// WithRateLimiter shares a rate limiter with the client.
func WithRateLimiter(l *RateLimiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. primary may be nil, in which case every
// reply is degraded.
func NewClient(primary Provider, opts ...ClientOption) *Client {
	c := &Client{primary: primary, timeout: DefaultTimeout, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate produces the assistant reply for sessionID. It never returns an
// error; failures are reported through Reply.Err. stream may be nil; when
// set it receives the reply as it is produced, the canned reply included.
func (c *Client) Generate(ctx context.Context, sessionID string, req Request, stream Stream) Reply {
	if c.limiter != nil {
		if ok, wait := c.limiter.Allow(sessionID); !ok {
			err := apperr.Generation("generation.generate", fmt.Errorf("%w, retry in %s", ErrRateLimited, wait.Round(time.Second)))
			c.logger.Warn("generation rate limited", "session_id", sessionID, "retry_after", wait)
			return degraded(err, stream)
		}
	}

	var errs []error
	for _, p := range []Provider{c.primary, c.fallback} {
		if p == nil {
			continue
		}
		streamed := false
		var onChunk func(string)
		if stream != nil {
			onChunk = func(chunk string) {
				streamed = true
				stream.Write(chunk)
			}
		}
		text, err := c.send(ctx, p, req, onChunk)
		if err == nil {
			return Reply{Text: text, Provider: p.Name()}
		}
		if streamed {
			stream.Reset()
		}
		c.logger.Warn("generation provider failed", "session_id", sessionID, "provider", p.Name(), "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		return degraded(apperr.Generation("generation.generate", errors.New("no provider configured")), stream)
	}
	return degraded(errors.Join(errs...), stream)
}

func (c *Client) send(ctx context.Context, p Provider, req Request, onChunk func(string)) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	text, err := p.Send(callCtx, req, onChunk)
	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "", apperr.Network("generation."+p.Name(), err)
	default:
		return "", apperr.Generation("generation."+p.Name(), err)
	}
}

func degraded(err error, stream Stream) Reply {
	if stream != nil {
		stream.Write(apperr.DegradedReply)
	}
	return Reply{Text: apperr.DegradedReply, Degraded: true, Err: err}
}
