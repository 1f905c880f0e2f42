package booking

import (
	"time"

	"go-stay-portal/internal/payment"
)

type Step int

const (
	StepGuestDetails Step = iota + 1
	StepPayment
	StepProcessing
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepGuestDetails:
		return "guest-details"
	case StepPayment:
		return "payment"
	case StepProcessing:
		return "processing"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// State is one of GuestDetails, Payment, Processing or Confirmed.
type State interface {
	Step() Step
	isState()
}

type GuestDetails struct{}

// Payment carries the message of the last rejected attempt, if any.
type Payment struct {
	LastError string `json:"lastError,omitempty"`
}

type Processing struct {
	StartedAt time.Time `json:"startedAt"`
}

type Confirmed struct {
	Reference    string         `json:"reference"`
	ConfirmedAt  time.Time      `json:"confirmedAt"`
	Status       payment.Status `json:"status"`
	Provider     string         `json:"provider"`
	Instructions string         `json:"instructions,omitempty"`
}

func (GuestDetails) Step() Step { return StepGuestDetails }
func (Payment) Step() Step      { return StepPayment }
func (Processing) Step() Step   { return StepProcessing }
func (Confirmed) Step() Step    { return StepConfirmed }

func (GuestDetails) isState() {}
func (Payment) isState()      {}
func (Processing) isState()   {}
func (Confirmed) isState()    {}
