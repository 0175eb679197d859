// Package llm provides a multi-provider chat-completion client with
// round-robin selection and per-provider daily quotas. When every provider
// is exhausted or failing, callers fall back to heuristic decisions.
package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrProvidersExhausted is returned when no provider has quota left or all
// configured providers failed for this request.
var ErrProvidersExhausted = errors.New("llm: all providers exhausted")

// Role constants for chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Response is a completed chat turn plus the provider that produced it.
type Response struct {
	Content  string
	Provider string
}

// Client is anything that can answer a chat request.
type Client interface {
	Chat(ctx context.Context, messages []Message, opts Options) (*Response, error)
}

// Provider is one upstream completion API with a daily request budget.
type Provider interface {
	Name() string
	DailyLimit() int
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Router round-robins across providers, skipping any that hit their daily
// quota. Quotas reset at UTC midnight.
type Router struct {
	mu        sync.Mutex
	providers []Provider
	next      int
	used      map[string]int
	day       string
}

// NewRouter builds a router over the given providers, in preference order.
func NewRouter(providers ...Provider) *Router {
	return &Router{
		providers: providers,
		used:      make(map[string]int),
		day:       dayStamp(time.Now()),
	}
}

// Chat tries each provider starting from the round-robin cursor until one
// succeeds. A provider failure is logged and charged against its quota.
func (r *Router) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	n := len(r.providers)
	if n == 0 {
		return nil, ErrProvidersExhausted
	}

	var lastErr error
	for i := 0; i < n; i++ {
		p := r.reserve()
		if p == nil {
			break
		}
		content, err := p.Complete(ctx, messages, opts)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("provider", p.Name()).Msg("llm provider failed")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		return &Response{Content: content, Provider: p.Name()}, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrProvidersExhausted
}

// reserve picks the next provider with quota remaining and charges one
// request to it. Returns nil when everyone is spent.
func (r *Router) reserve() Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	if today := dayStamp(time.Now()); today != r.day {
		r.day = today
		r.used = make(map[string]int)
	}

	n := len(r.providers)
	for i := 0; i < n; i++ {
		p := r.providers[(r.next+i)%n]
		if limit := p.DailyLimit(); limit > 0 && r.used[p.Name()] >= limit {
			continue
		}
		r.used[p.Name()]++
		r.next = (r.next + i + 1) % n
		return p
	}
	return nil
}

// Remaining reports quota left for a provider today, for diagnostics.
func (r *Router) Remaining(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.Name() == name {
			if p.DailyLimit() <= 0 {
				return -1
			}
			return p.DailyLimit() - r.used[name]
		}
	}
	return 0
}

func dayStamp(t time.Time) string { return t.UTC().Format("2006-01-02") }
