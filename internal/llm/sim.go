package llm

import (
	"context"
	"sync"
)

// SimClient is a deterministic offline stand-in for the provider router.
// It replays scripted responses in order, then repeats the last one. With
// no script at all it returns ErrProvidersExhausted so callers exercise
// their heuristic fallback paths.
type SimClient struct {
	mu        sync.Mutex
	responses []string
	next      int
}

// NewSimClient builds a scripted client.
func NewSimClient(responses ...string) *SimClient {
	return &SimClient{responses: responses}
}

// Chat returns the next scripted response.
func (c *SimClient) Chat(_ context.Context, _ []Message, _ Options) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.responses) == 0 {
		return nil, ErrProvidersExhausted
	}
	content := c.responses[c.next]
	if c.next < len(c.responses)-1 {
		c.next++
	}
	return &Response{Content: content, Provider: "sim"}, nil
}
