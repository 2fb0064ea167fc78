package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
)

// Event types published for generation sessions.
const (
	TypeSessionOpened = "generation.session_opened"
	TypeStatusChanged = "generation.status_changed"
	TypeSessionClosed = "generation.session_closed"
)

// Event is implemented by everything published on the bus.
type Event interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
}

// BaseEvent carries the fields common to all events.
type BaseEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateUUID uuid.UUID `json:"aggregate_id"`
}

// EventID returns the unique identifier for this event instance.
func (e BaseEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type name of the event.
func (e BaseEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the session the event belongs to.
func (e BaseEvent) AggregateID() uuid.UUID {
	return e.AggregateUUID
}

// NewBaseEvent creates a new BaseEvent.
func NewBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggregateUUID: aggregateID,
	}
}

// SessionOpened is published when a session is created.
type SessionOpened struct {
	BaseEvent
	Kind generation.Kind `json:"kind"`
}

// NewSessionOpened creates a SessionOpened event.
func NewSessionOpened(id uuid.UUID, kind generation.Kind) *SessionOpened {
	return &SessionOpened{BaseEvent: NewBaseEvent(TypeSessionOpened, id), Kind: kind}
}

// StatusChanged is published on every state change of a session.
type StatusChanged struct {
	BaseEvent
	Snapshot generation.Snapshot `json:"snapshot"`
}

// NewStatusChanged creates a StatusChanged event.
func NewStatusChanged(snap generation.Snapshot) *StatusChanged {
	return &StatusChanged{BaseEvent: NewBaseEvent(TypeStatusChanged, snap.SessionID), Snapshot: snap}
}

// SessionClosed is published when a session is torn down.
type SessionClosed struct {
	BaseEvent
	Kind   generation.Kind `json:"kind"`
	Reason string          `json:"reason"`
}

// NewSessionClosed creates a SessionClosed event.
func NewSessionClosed(id uuid.UUID, kind generation.Kind, reason string) *SessionClosed {
	return &SessionClosed{BaseEvent: NewBaseEvent(TypeSessionClosed, id), Kind: kind, Reason: reason}
}
