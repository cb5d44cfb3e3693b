package app

import (
	"context"

	"eduslide-live/internal/domain"
)

// Channel is the persistent bidirectional event stream to the session server.
// Events is closed when the channel shuts down for good. Transports synthesize
// "connect" and "disconnect" events around each underlying connection.
type Channel interface {
	Events() <-chan domain.Event
	Emit(ctx context.Context, msg domain.Outbound) error
	Close() error
}

// PresentationRepository resolves a session code to the deck it is running.
type PresentationRepository interface {
	GetPresentation(ctx context.Context, sessionCode string) (domain.Presentation, error)
}
