// Package payment holds the collaborators that charge a confirmed booking.
// The wizard only sees Processor; the concrete backend is chosen per method.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Method string

const (
	MethodCard Method = "card"
	MethodBank Method = "bank"
)

// ParseMethod accepts the values the checkout form sends.
func ParseMethod(raw string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "card", "credit-card", "debit-card":
		return MethodCard, nil
	case "bank", "bank-transfer", "transfer":
		return MethodBank, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, raw)
	}
}

type Status string

const (
	StatusSucceeded Status = "confirmed"
	StatusPending   Status = "pending"
)

var (
	ErrDeclined          = errors.New("payment declined")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
)

// DeclineError carries a reason that is safe to show to the guest.
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string { return "payment declined: " + e.Reason }

func (e *DeclineError) Is(target error) bool { return target == ErrDeclined }

func Decline(reason string) error { return &DeclineError{Reason: reason} }

// Charge is everything a processor needs for one attempt. DraftID and
// Attempt together identify the attempt to processors that deduplicate.
type Charge struct {
	DraftID         string
	// Attempt numbers the submissions of one draft, starting at 1.
	Attempt         int
	Method          Method
	Amount          int64
	Currency        string
	Description     string
	Email           string
	CardHolder      string
	CardNumber      string
	PaymentMethodID string
	BankName        string
	AccountName     string
}

type Receipt struct {
	Reference    string    `json:"reference"`
	Provider     string    `json:"provider"`
	Status       Status    `json:"status"`
	Instructions string    `json:"instructions,omitempty"`
	ProcessedAt  time.Time `json:"processedAt"`
}

type Processor interface {
	Pay(ctx context.Context, charge Charge) (Receipt, error)
}

type ProcessorFunc func(ctx context.Context, charge Charge) (Receipt, error)

func (f ProcessorFunc) Pay(ctx context.Context, charge Charge) (Receipt, error) {
	return f(ctx, charge)
}

// Router dispatches a charge to the processor registered for its method.
type Router struct {
	processors map[Method]Processor
}

func NewRouter() *Router {
	return &Router{processors: map[Method]Processor{}}
}

func (r *Router) Handle(method Method, p Processor) *Router {
	r.processors[method] = p
	return r
}

func (r *Router) Pay(ctx context.Context, charge Charge) (Receipt, error) {
	p, ok := r.processors[charge.Method]
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, charge.Method)
	}
	return p.Pay(ctx, charge)
}

// NewReference returns a short human-friendly booking reference.
func NewReference(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id[:10]
}

// UserMessage turns a processor error into text the guest can act on.
func UserMessage(err error) string {
	var decline *DeclineError
	switch {
	case errors.As(err, &decline):
		return decline.Reason
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Payment was interrupted. Please try again."
	case errors.Is(err, ErrUnsupportedMethod):
		return "This payment method is not available. Please choose another."
	default:
		return "We could not process your payment. Please try again."
	}
}
