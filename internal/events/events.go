// Package events re-exports the platform event bus and defines the domain
// events shared between modules.
package events

import (
	platformevents "accounts_backend/platform/events"
	"accounts_backend/platform/logger"

	"github.com/google/uuid"
)

// Bus is a type alias to the platform event bus interface.
type Bus = platformevents.Bus

// Event is a type alias to the platform event interface.
type Event = platformevents.Event

// InMemoryBus is a type alias to the platform InMemoryBus.
type InMemoryBus = platformevents.InMemoryBus

// BaseEvent is a type alias to the platform base event.
type BaseEvent = platformevents.BaseEvent

// NewBaseEvent creates a new base event with the current timestamp.
func NewBaseEvent() BaseEvent {
	return platformevents.NewBaseEvent()
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

// Event names for the accounts context.
const (
	UserCreatedName         = "accounts.user.created"
	OrganizationCreatedName = "accounts.organization.created"
	UserDeletedName         = "accounts.user.deleted"
)

// UserCreated is published after a creation saga commits a new user.
type UserCreated struct {
	BaseEvent
	UserID         uuid.UUID `json:"userId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Merged         bool      `json:"merged"`
}

// EventName returns the event identifier.
func (UserCreated) EventName() string { return UserCreatedName }

// OrganizationCreated is published after a creation saga commits a new
// organization.
type OrganizationCreated struct {
	BaseEvent
	OrganizationID uuid.UUID `json:"organizationId"`
	OwnerUserID    uuid.UUID `json:"ownerUserId"`
}

// EventName returns the event identifier.
func (OrganizationCreated) EventName() string { return OrganizationCreatedName }

// UserDeleted is published after a logical delete.
type UserDeleted struct {
	BaseEvent
	UserID     uuid.UUID `json:"userId"`
	StatusCode int       `json:"statusCode"`
}

// EventName returns the event identifier.
func (UserDeleted) EventName() string { return UserDeletedName }
