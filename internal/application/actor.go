package application

import (
	"github.com/google/uuid"

	"github.com/parkwise/service-reservation/internal/platform/auth"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   uuid.UUID
	Role auth.Role
}

// IsAdmin reports whether the actor may decide refunds and run operator actions.
func (a Actor) IsAdmin() bool {
	return a.Role == auth.RoleAdmin
}

// SystemActor is the identity recorded for scheduler-driven transitions.
var SystemActor = Actor{ID: uuid.Nil, Role: auth.RoleAdmin}
