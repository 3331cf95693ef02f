package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentsCollaborator executes money movements with the payment provider.
type PaymentsCollaborator interface {
	// ExecuteRefund refunds amount against a captured payment and returns the provider's refund reference.
	// idempotencyKey is stable across retries of the same refund request.
	ExecuteRefund(ctx context.Context, paymentRef string, amount decimal.Decimal, currency, idempotencyKey string) (string, error)
}

// Notifier delivers an event to one user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) error
}

// EventPublisher publishes domain events for other services.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, data interface{}) error
}

// Locker hands out exclusive locks keyed by name.
type Locker interface {
	// Acquire blocks for at most wait. The returned func releases the lock.
	Acquire(ctx context.Context, key string, wait time.Duration) (func(), error)
}

// Transactor runs fn inside one database transaction carried by the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
