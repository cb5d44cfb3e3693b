package memory

import (
	"context"
	"sync"

	"eduslide-live/internal/domain"
)

// Channel is an in-process app.Channel. Tests and the replay command push
// server events with Inject and read back what the client sent with Emitted.
type Channel struct {
	events chan domain.Event
	done   chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	emitMu  sync.Mutex
	emitted []domain.Outbound
}

func NewChannel(buffer int) *Channel {
	return &Channel{
		events: make(chan domain.Event, buffer),
		done:   make(chan struct{}),
	}
}

func (c *Channel) Events() <-chan domain.Event {
	return c.events
}

// Inject delivers ev as if the server had sent it.
func (c *Channel) Inject(ctx context.Context, ev domain.Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return domain.ErrClosed
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return domain.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) Emit(_ context.Context, msg domain.Outbound) error {
	select {
	case <-c.done:
		return domain.ErrClosed
	default:
	}
	c.emitMu.Lock()
	c.emitted = append(c.emitted, msg)
	c.emitMu.Unlock()
	return nil
}

// Emitted returns a copy of everything sent so far.
func (c *Channel) Emitted() []domain.Outbound {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	return append([]domain.Outbound(nil), c.emitted...)
}

// Close ends the event stream. Events already buffered are still delivered.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		close(c.events)
		c.mu.Unlock()
	})
	return nil
}
