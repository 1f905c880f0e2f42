package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go-stay-portal/internal/booking"
	"go-stay-portal/internal/event"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/payment"
	"go-stay-portal/internal/pricing"
	"go-stay-portal/internal/receipt"
	"go-stay-portal/pkg/apierror"
)

const maxOpenDrafts = 5

type BookingOptions struct {
	RequireGuestFields bool
	Rules              pricing.Rules
	Currency           string
}

type DraftView struct {
	Draft booking.Draft     `json:"draft"`
	Step  booking.Step      `json:"step"`
	State booking.State     `json:"state"`
	Quote pricing.Breakdown `json:"quote"`
}

type draftEntry struct {
	browserID string
	wizard    *booking.Wizard
	// orphaned marks a draft whose browser went away mid-payment; it is
	// dropped as soon as the charge settles.
	orphaned bool
}

// BookingService holds the open booking drafts of every browser. Drafts live
// in memory only and are discarded with the browser.
type BookingService struct {
	catalog *CatalogService
	payer   payment.Processor
	bus     event.Bus
	opts    BookingOptions
	now     func() time.Time

	mu     sync.Mutex
	drafts map[string]*draftEntry
}

func NewBookingService(catalog *CatalogService, payer payment.Processor, bus event.Bus, opts BookingOptions) *BookingService {
	return &BookingService{
		catalog: catalog,
		payer:   payer,
		bus:     bus,
		opts:    opts,
		now:     time.Now,
		drafts:  map[string]*draftEntry{},
	}
}

// Create opens a draft for one room of a hotel. Guest details start from the
// signed-in user's profile.
func (s *BookingService) Create(ctx context.Context, browserID string, sess model.Session, req model.CreateDraftRequest) (DraftView, error) {
	stay := pricing.DateRange{From: req.From, To: req.To}
	if err := validateStay(stay); err != nil {
		return DraftView{}, err
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if stay.From.Before(today) {
		return DraftView{}, apierror.New("BAD_REQUEST", "check-in cannot be in the past", "from", http.StatusBadRequest)
	}

	hotel, err := s.catalog.Hotel(ctx, strings.TrimSpace(req.HotelID))
	if err != nil {
		return DraftView{}, err
	}
	room, ok := hotel.Room(strings.TrimSpace(req.RoomID))
	if !ok {
		return DraftView{}, model.ErrRoomNotFound
	}
	if !room.Available {
		return DraftView{}, apierror.New("CONFLICT", "this room is not available", room.ID, http.StatusConflict)
	}

	if s.openDrafts(browserID) >= maxOpenDrafts {
		return DraftView{}, apierror.New("RATE_LIMITED", "too many bookings in progress", "", http.StatusTooManyRequests)
	}

	draft := booking.Draft{
		OwnerID: sess.User.ID,
		Room: booking.Room{
			HotelID:     hotel.ID,
			HotelName:   hotel.Name,
			RoomID:      room.ID,
			RoomName:    room.Name,
			NightlyRate: room.NightlyRate,
		},
		Stay: stay,
		Guest: booking.Guest{
			FirstName: sess.User.FirstName,
			LastName:  sess.User.LastName,
			Email:     sess.User.Email,
		},
	}

	w := booking.NewWizard(draft, s.payer, booking.Options{
		RequireGuestFields: s.opts.RequireGuestFields,
		Rules:              s.opts.Rules,
		Currency:           s.opts.Currency,
		Observer:           s.observer(browserID),
		Logger:             slog.Default().With("browser", shortBrowserID(browserID)),
	})

	s.mu.Lock()
	s.drafts[w.ID()] = &draftEntry{browserID: browserID, wizard: w}
	s.mu.Unlock()

	slog.InfoContext(ctx, "booking draft opened", "draft_id", w.ID(), "hotel_id", hotel.ID, "room_id", room.ID)
	return view(w), nil
}

func (s *BookingService) Get(browserID, id string) (DraftView, error) {
	w, err := s.wizard(browserID, id)
	if err != nil {
		return DraftView{}, err
	}
	return view(w), nil
}

func (s *BookingService) UpdateGuest(browserID, id string, req model.GuestRequest) (DraftView, error) {
	return s.apply(browserID, id, func(w *booking.Wizard) error {
		return w.UpdateGuest(booking.Guest{
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Email:           req.Email,
			Phone:           req.Phone,
			SpecialRequests: req.SpecialRequests,
		})
	})
}

func (s *BookingService) Continue(browserID, id string) (DraftView, error) {
	return s.apply(browserID, id, func(w *booking.Wizard) error { return w.Continue() })
}

func (s *BookingService) Back(browserID, id string) (DraftView, error) {
	return s.apply(browserID, id, func(w *booking.Wizard) error { return w.Back() })
}

func (s *BookingService) UpdatePayment(browserID, id string, req model.PaymentRequest) (DraftView, error) {
	method, err := payment.ParseMethod(req.Method)
	if err != nil {
		return DraftView{}, apierror.New("VALIDATION_ERROR", "choose card or bank transfer", "method", http.StatusBadRequest)
	}

	return s.apply(browserID, id, func(w *booking.Wizard) error {
		if err := w.UpdatePayment(booking.PaymentDetails{
			Method:          method,
			CardHolder:      req.CardHolder,
			CardNumber:      payment.NormalizeCardNumber(req.CardNumber),
			Expiry:          strings.TrimSpace(req.Expiry),
			PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
			BankName:        req.BankName,
			AccountName:     req.AccountName,
		}); err != nil {
			return err
		}
		return w.AgreeToTerms(req.AgreedToTerms)
	})
}

// Submit charges the draft. The charge is not abandoned when the caller goes
// away; the outcome is still pushed to the browser's feed.
func (s *BookingService) Submit(ctx context.Context, browserID, id string) (DraftView, error) {
	w, err := s.wizard(browserID, id)
	if err != nil {
		return DraftView{}, err
	}

	_, err = w.Submit(context.WithoutCancel(ctx))

	s.mu.Lock()
	if entry, ok := s.drafts[id]; ok && entry.orphaned {
		delete(s.drafts, id)
	}
	s.mu.Unlock()

	return view(w), err
}

// Abandon discards a draft. A draft being charged cannot be abandoned.
func (s *BookingService) Abandon(browserID, id string) error {
	w, err := s.wizard(browserID, id)
	if err != nil {
		return err
	}
	if _, processing := w.State().(booking.Processing); processing {
		return booking.ErrSubmissionInProgress
	}

	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()

	s.publish(event.New(event.TypeBookingAbandoned, browserID, map[string]string{"draftId": id}))
	return nil
}

// Receipt renders the PDF confirmation of a confirmed draft.
func (s *BookingService) Receipt(browserID, id string, out io.Writer) error {
	w, err := s.wizard(browserID, id)
	if err != nil {
		return err
	}

	data, err := receipt.FromWizard(w)
	if err != nil {
		return err
	}
	return receipt.Render(out, data)
}

// Forget discards every draft of the browser. Drafts in the middle of a
// charge are kept until it settles.
func (s *BookingService) Forget(browserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.drafts {
		if entry.browserID != browserID {
			continue
		}
		if _, processing := entry.wizard.State().(booking.Processing); processing {
			entry.orphaned = true
			continue
		}
		delete(s.drafts, id)
	}
}

func (s *BookingService) apply(browserID, id string, fn func(*booking.Wizard) error) (DraftView, error) {
	w, err := s.wizard(browserID, id)
	if err != nil {
		return DraftView{}, err
	}
	if err := fn(w); err != nil {
		return view(w), err
	}
	return view(w), nil
}

// wizard returns the draft only to the browser that opened it.
func (s *BookingService) wizard(browserID, id string) (*booking.Wizard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok || entry.browserID != browserID || entry.orphaned {
		return nil, model.ErrDraftNotFound
	}
	return entry.wizard, nil
}

// openDrafts counts the drafts of a browser that have not been confirmed.
// Confirmed drafts stay around for their receipt but no longer count.
func (s *BookingService) openDrafts(browserID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, entry := range s.drafts {
		if entry.browserID != browserID {
			continue
		}
		if _, done := entry.wizard.State().(booking.Confirmed); !done {
			n++
		}
	}
	return n
}

func (s *BookingService) observer(browserID string) booking.Observer {
	return func(e booking.Event) {
		s.publish(event.New(event.Type(e.Kind), browserID, e))
	}
}

func (s *BookingService) publish(e event.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

func view(w *booking.Wizard) DraftView {
	state := w.State()
	return DraftView{
		Draft: w.Draft(),
		Step:  state.Step(),
		State: state,
		Quote: w.Quote(),
	}
}

func shortBrowserID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
