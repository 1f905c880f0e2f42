// Package booking drives the multi-step checkout of one room for one guest:
// guest details, payment, processing and confirmation.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-stay-portal/internal/payment"
	"go-stay-portal/internal/pricing"
	"go-stay-portal/internal/util"
)

type EventKind string

const (
	EventStepChanged   EventKind = "booking.step_changed"
	EventPaymentFailed EventKind = "booking.payment_failed"
	EventConfirmed     EventKind = "booking.confirmed"
)

type Event struct {
	Kind      EventKind `json:"kind"`
	DraftID   string    `json:"draftId"`
	Step      Step      `json:"step"`
	Message   string    `json:"message,omitempty"`
	Reference string    `json:"reference,omitempty"`
	At        time.Time `json:"at"`
}

type Observer func(Event)

type Guest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

type PaymentDetails struct {
	Method          payment.Method `json:"method"`
	CardHolder      string         `json:"cardHolder,omitempty"`
	CardNumber      string         `json:"-"`
	CardLast4       string         `json:"cardLast4,omitempty"`
	Expiry          string         `json:"expiry,omitempty"`
	PaymentMethodID string         `json:"-"`
	BankName        string         `json:"bankName,omitempty"`
	AccountName     string         `json:"accountName,omitempty"`
}

type Room struct {
	HotelID     string `json:"hotelId"`
	HotelName   string `json:"hotelName"`
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName"`
	NightlyRate int64  `json:"nightlyRate"`
}

// Draft is the in-progress booking. It lives only as long as the wizard.
type Draft struct {
	ID            string            `json:"id"`
	OwnerID       string            `json:"-"`
	Room          Room              `json:"room"`
	Stay          pricing.DateRange `json:"stay"`
	Guest         Guest             `json:"guest"`
	Payment       PaymentDetails    `json:"payment"`
	AgreedToTerms bool              `json:"agreedToTerms"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type Options struct {
	// RequireGuestFields makes Continue reject missing first name, last
	// name, email or phone.
	RequireGuestFields bool
	Rules              pricing.Rules
	Currency           string
	Observer           Observer
	Logger             *slog.Logger
	Now                func() time.Time
}

type Wizard struct {
	mu       sync.Mutex
	draft    Draft
	state    State
	payer    payment.Processor
	opts     Options
	attempts int
}

func NewWizard(draft Draft, payer payment.Processor, opts Options) *Wizard {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rules == (pricing.Rules{}) {
		opts.Rules = pricing.DefaultRules()
	}
	if opts.Currency == "" {
		opts.Currency = "NGN"
	}
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = opts.Now()
	}
	if draft.Payment.Method == "" {
		draft.Payment.Method = payment.MethodCard
	}

	return &Wizard{draft: draft, state: GuestDetails{}, payer: payer, opts: opts}
}

func (w *Wizard) ID() string { return w.draft.ID }

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Quote prices the current room and stay. It is recomputed on every call.
func (w *Wizard) Quote() pricing.Breakdown {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quoteLocked()
}

func (w *Wizard) quoteLocked() pricing.Breakdown {
	return w.opts.Rules.Quote(w.draft.Room.NightlyRate, w.draft.Stay)
}

func (w *Wizard) UpdateGuest(guest Guest) error {
	return w.edit(func(d *Draft) {
		d.Guest = Guest{
			FirstName:       util.SanitizeName(guest.FirstName),
			LastName:        util.SanitizeName(guest.LastName),
			Email:           util.NormalizeEmail(guest.Email),
			Phone:           util.NormalizePhone(guest.Phone),
			SpecialRequests: util.SanitizeText(guest.SpecialRequests, 500),
		}
	})
}

func (w *Wizard) UpdatePayment(details PaymentDetails) error {
	return w.edit(func(d *Draft) {
		if details.Method == "" {
			details.Method = d.Payment.Method
		}
		details.CardHolder = util.SanitizeName(details.CardHolder)
		details.BankName = util.SanitizeName(details.BankName)
		details.AccountName = util.SanitizeName(details.AccountName)
		details.CardLast4 = util.CardLast4(details.CardNumber)
		d.Payment = details
	})
}

func (w *Wizard) SetPaymentMethod(method payment.Method) error {
	return w.edit(func(d *Draft) { d.Payment.Method = method })
}

func (w *Wizard) AgreeToTerms(agreed bool) error {
	return w.edit(func(d *Draft) { d.AgreedToTerms = agreed })
}

func (w *Wizard) SetDateRange(stay pricing.DateRange) error {
	return w.edit(func(d *Draft) { d.Stay = stay })
}

func (w *Wizard) SelectRoom(room Room) error {
	return w.edit(func(d *Draft) { d.Room = room })
}

// edit applies fn unless the draft is locked by a submission.
func (w *Wizard) edit(fn func(*Draft)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state.(type) {
	case Processing:
		return ErrSubmissionInProgress
	case Confirmed:
		return fmt.Errorf("%w: booking is already confirmed", ErrIllegalTransition)
	}

	fn(&w.draft)
	return nil
}

// Continue moves from guest details to payment.
func (w *Wizard) Continue() error {
	w.mu.Lock()
	if _, ok := w.state.(GuestDetails); !ok {
		step := w.state.Step()
		w.mu.Unlock()
		return fmt.Errorf("%w: cannot continue from %s", ErrIllegalTransition, step)
	}

	if w.opts.RequireGuestFields {
		if err := validateGuest(w.draft.Guest); err != nil {
			w.mu.Unlock()
			return err
		}
	}

	w.state = Payment{}
	w.mu.Unlock()

	w.emit(Event{Kind: EventStepChanged, Step: StepPayment})
	return nil
}

// Back returns from payment to guest details.
func (w *Wizard) Back() error {
	w.mu.Lock()
	if _, ok := w.state.(Payment); !ok {
		step := w.state.Step()
		w.mu.Unlock()
		return fmt.Errorf("%w: cannot go back from %s", ErrIllegalTransition, step)
	}

	w.state = GuestDetails{}
	w.mu.Unlock()

	w.emit(Event{Kind: EventStepChanged, Step: StepGuestDetails})
	return nil
}

// Submit charges the draft. Without agreement to the terms it returns a
// ValidationError and neither the state changes nor the processor is called.
// While the charge is in flight further submissions get
// ErrSubmissionInProgress. A rejected charge puts the wizard back on the
// payment step with the reason in Payment.LastError; nothing is retried.
func (w *Wizard) Submit(ctx context.Context) (Confirmed, error) {
	w.mu.Lock()
	switch w.state.(type) {
	case Payment:
	case Processing:
		w.mu.Unlock()
		return Confirmed{}, ErrSubmissionInProgress
	default:
		step := w.state.Step()
		w.mu.Unlock()
		return Confirmed{}, fmt.Errorf("%w: cannot submit from %s", ErrIllegalTransition, step)
	}

	if !w.draft.AgreedToTerms {
		w.mu.Unlock()
		return Confirmed{}, &ValidationError{
			Message: "Please agree to the terms and conditions before booking.",
			Fields:  map[string]string{"agreedToTerms": "must be accepted"},
		}
	}

	if err := validatePayment(w.draft.Payment); err != nil {
		w.mu.Unlock()
		return Confirmed{}, err
	}

	quote := w.quoteLocked()
	if quote.Nights <= 0 {
		w.mu.Unlock()
		return Confirmed{}, &ValidationError{
			Message: "Check-out must be after check-in.",
			Fields:  map[string]string{"stay": "invalid date range"},
		}
	}

	w.attempts++
	charge := w.chargeLocked(quote)
	w.state = Processing{StartedAt: w.opts.Now()}
	w.mu.Unlock()

	w.emit(Event{Kind: EventStepChanged, Step: StepProcessing})

	receipt, err := w.payer.Pay(ctx, charge)

	w.mu.Lock()
	if err != nil {
		message := payment.UserMessage(err)
		w.state = Payment{LastError: message}
		w.mu.Unlock()

		w.opts.Logger.Warn("booking payment rejected", "draft_id", w.draft.ID, "error", err)
		w.emit(Event{Kind: EventPaymentFailed, Step: StepPayment, Message: message})
		return Confirmed{}, &PaymentError{Message: message, Err: err}
	}

	confirmed := Confirmed{
		Reference:    receipt.Reference,
		ConfirmedAt:  w.opts.Now(),
		Status:       receipt.Status,
		Provider:     receipt.Provider,
		Instructions: receipt.Instructions,
	}
	w.state = confirmed
	w.mu.Unlock()

	w.opts.Logger.Info("booking confirmed", "draft_id", w.draft.ID, "reference", confirmed.Reference, "status", confirmed.Status)
	w.emit(Event{Kind: EventConfirmed, Step: StepConfirmed, Reference: confirmed.Reference})
	return confirmed, nil
}

func (w *Wizard) chargeLocked(quote pricing.Breakdown) payment.Charge {
	d := w.draft
	return payment.Charge{
		DraftID:         d.ID,
		Attempt:         w.attempts,
		Method:          d.Payment.Method,
		Amount:          quote.Total,
		Currency:        w.opts.Currency,
		Description:     fmt.Sprintf("%s, %s (%d nights)", d.Room.HotelName, d.Room.RoomName, quote.Nights),
		Email:           d.Guest.Email,
		CardHolder:      d.Payment.CardHolder,
		CardNumber:      d.Payment.CardNumber,
		PaymentMethodID: d.Payment.PaymentMethodID,
		BankName:        d.Payment.BankName,
		AccountName:     d.Payment.AccountName,
	}
}

func (w *Wizard) emit(e Event) {
	if w.opts.Observer == nil {
		return
	}
	e.DraftID = w.draft.ID
	e.At = w.opts.Now()
	w.opts.Observer(e)
}

func validateGuest(g Guest) error {
	fields := map[string]string{}
	if g.FirstName == "" {
		fields["firstName"] = "is required"
	}
	if g.LastName == "" {
		fields["lastName"] = "is required"
	}
	if !util.IsValidEmail(g.Email) {
		fields["email"] = "must be a valid email address"
	}
	if !util.IsValidPhone(g.Phone) {
		fields["phone"] = "must be a valid phone number"
	}

	if len(fields) > 0 {
		return &ValidationError{Message: "Please complete your guest details.", Fields: fields}
	}
	return nil
}

func validatePayment(p PaymentDetails) error {
	if p.Method != payment.MethodCard {
		return nil
	}
	if p.CardHolder == "" {
		return &ValidationError{
			Message: "Please enter the name on the card.",
			Fields:  map[string]string{"cardHolder": "is required"},
		}
	}
	return nil
}
