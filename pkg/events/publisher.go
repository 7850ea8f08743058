package events

import (
	"log/slog"
	"sync"
)

// Publisher collects rendered progress lines in completion order and mirrors
// each payload to the structured log. Safe for concurrent use: fan-out
// runners publish from their own goroutines.
//
// A nil *Publisher is valid and drops events, so deep call paths can
// publish unconditionally.
type Publisher struct {
	mu       sync.Mutex
	messages []string
	log      *slog.Logger
}

// NewPublisher creates a publisher logging through the given logger
// (slog.Default() when nil).
func NewPublisher(log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{log: log}
}

// Publish records one payload.
func (p *Publisher) Publish(payload Payload) {
	if p == nil {
		return
	}
	line := payload.Render()

	p.mu.Lock()
	p.messages = append(p.messages, line)
	p.mu.Unlock()

	p.log.Info("Progress event", "kind", payload.Kind(), "message", line)
}

// Messages returns a snapshot of all rendered lines in publication order.
func (p *Publisher) Messages() []string {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	copy(out, p.messages)
	return out
}

// Drain returns all accumulated lines and clears the buffer. The pipeline
// calls this when folding progress into the outer message stream.
func (p *Publisher) Drain() []string {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.messages
	p.messages = nil
	return out
}
