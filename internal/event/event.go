package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeQueryUpdated         Type = "query.updated"
	TypeBookingStepChanged   Type = "booking.step_changed"
	TypeBookingPaymentFailed Type = "booking.payment_failed"
	TypeBookingConfirmed     Type = "booking.confirmed"
	TypeBookingAbandoned     Type = "booking.abandoned"
	TypeListingCreated       Type = "listing.created"
	TypeListingUpdated       Type = "listing.updated"
	TypeListingDeleted       Type = "listing.deleted"
	TypeSessionStarted       Type = "session.started"
	TypeSessionEnded         Type = "session.ended"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"` // browser session the event belongs to; empty means everyone
}

func New(t Type, actorID string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
