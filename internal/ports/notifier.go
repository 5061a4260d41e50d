package ports

import (
	"context"
	"time"
)

// Event is the flat payload handed to outbound notification channels.
type Event struct {
	Type       string         `json:"event_type"`
	EntityID   string         `json:"entity_id"`
	Fields     map[string]any `json:"fields,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notifier delivers events. Errors are reported to the caller, which decides
// whether to swallow them.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
