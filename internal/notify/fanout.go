package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Notifier delivers an event to one user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) error
}

// Fanout calls every notifier and joins their errors.
type Fanout []Notifier

// Notify delivers to all notifiers even when one fails.
func (f Fanout) Notify(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, userID, eventType, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
