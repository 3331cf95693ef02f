package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows reservation listings.
type ListFilter struct {
	SeekerID   *uuid.UUID
	HostID     *uuid.UUID
	ResourceID *uuid.UUID
	Status     *Status
	// CreatedBefore selects reservations older than this instant, used to find stale pending holds.
	CreatedBefore *time.Time
}

// ReservationRepository defines the persistence contract for reservation aggregates.
type ReservationRepository interface {
	// FindByID retrieves a reservation by its internal identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// FindByReference retrieves a reservation by its external reference.
	FindByReference(ctx context.Context, reference string) (*Reservation, error)

	// List retrieves reservations matching filter, newest first.
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*Reservation, int64, error)

	// CountByStatus returns reservation counts grouped by status.
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// ExistsOverlapping reports whether a slot-holding reservation on resourceID intersects [start, end).
	ExistsOverlapping(ctx context.Context, resourceID uuid.UUID, start, end time.Time) (bool, error)

	// FindDueForAutoCheckout returns active, checked-in, not checked-out reservations
	// whose check-in is at or before checkedInBy, leaving out the excluded ids.
	FindDueForAutoCheckout(ctx context.Context, checkedInBy time.Time, exclude []uuid.UUID, limit int) ([]*Reservation, error)

	// FindDueForNoShow returns confirmed reservations without check-in whose start is
	// at or before startedBy, leaving out the excluded ids.
	FindDueForNoShow(ctx context.Context, startedBy time.Time, exclude []uuid.UUID, limit int) ([]*Reservation, error)

	// Save persists a new reservation.
	Save(ctx context.Context, r *Reservation) error

	// Update persists changes with optimistic locking on version.
	Update(ctx context.Context, r *Reservation) error
}
