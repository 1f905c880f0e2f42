package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-stay-portal/internal/booking"
	"go-stay-portal/internal/event"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/payment"
	"go-stay-portal/internal/pricing"
	"go-stay-portal/internal/query"
	"go-stay-portal/internal/refdata"
	"go-stay-portal/internal/session"
	"go-stay-portal/internal/storage"
	"go-stay-portal/internal/transport"
	"go-stay-portal/pkg/apierror"
)

var errUpstreamDown = errors.New("connection refused")

type mockUpstream struct {
	mock.Mock
}

func (m *mockUpstream) Get(ctx context.Context, path string, params any, out any) error {
	return m.Called(path, out).Error(0)
}

func (m *mockUpstream) Post(ctx context.Context, path string, body any, out any) error {
	return m.Called(path, body, out).Error(0)
}

func (m *mockUpstream) Put(ctx context.Context, path string, body any, out any) error {
	return m.Called(path, body, out).Error(0)
}

func (m *mockUpstream) Delete(ctx context.Context, path string) error {
	return m.Called(path).Error(0)
}

// fill copies value into the out argument at index i, the way a decoded
// upstream response would.
func fill(i int, value any) func(mock.Arguments) {
	return func(args mock.Arguments) {
		raw, _ := json.Marshal(value)
		_ = json.Unmarshal(raw, args.Get(i))
	}
}

func downUpstream() *mockUpstream {
	up := &mockUpstream{}
	up.On("Get", mock.Anything, mock.Anything).Return(errUpstreamDown).Maybe()
	return up
}

func validToken(t *testing.T) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestCatalogBrowseServesSamplesWhenUpstreamFails(t *testing.T) {
	t.Parallel()

	catalog := NewCatalogService(downUpstream(), pricing.DefaultRules(), 0, nil)
	catalog.Start()
	defer catalog.Stop()

	state, err := catalog.Browse(context.Background(), model.HotelFilter{State: "lagos"})
	require.NoError(t, err)

	assert.Equal(t, query.SourceFallback, state.Source)
	require.NotEmpty(t, state.Data)
	for _, hotel := range state.Data {
		assert.Equal(t, "Lagos", hotel.State)
	}
}

func TestCatalogBrowseFresh(t *testing.T) {
	t.Parallel()

	hotels := []model.Hotel{
		{ID: "h1", State: "Lagos", Rooms: []model.Room{{ID: "r1", NightlyRate: 40000}}},
		{ID: "h2", State: "Lagos", Rooms: []model.Room{{ID: "r1", NightlyRate: 140000}}},
	}
	up := &mockUpstream{}
	up.On("Get", "/hotels", mock.Anything).Run(fill(1, hotels)).Return(nil)

	catalog := NewCatalogService(up, pricing.DefaultRules(), 0, nil)
	catalog.Start()
	defer catalog.Stop()

	state, err := catalog.Browse(context.Background(), model.HotelFilter{MaxPrice: 100000})
	require.NoError(t, err)

	assert.True(t, state.Fresh())
	require.Len(t, state.Data, 1)
	assert.Equal(t, "h1", state.Data[0].ID)
}

func TestCatalogBrowseRejectsInvertedPriceRange(t *testing.T) {
	t.Parallel()

	catalog := NewCatalogService(downUpstream(), pricing.DefaultRules(), 0, nil)

	_, err := catalog.Browse(context.Background(), model.HotelFilter{MinPrice: 9, MaxPrice: 1})

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestCatalogQuote(t *testing.T) {
	t.Parallel()

	up := &mockUpstream{}
	up.On("Get", "/hotels/h1", mock.Anything).
		Run(fill(1, model.Hotel{ID: "h1", Rooms: []model.Room{{ID: "deluxe", NightlyRate: 100000}}})).
		Return(nil)
	up.On("Get", "/hotels/missing", mock.Anything).
		Return(apierror.FromStatus(404, "Hotel not found"))

	catalog := NewCatalogService(up, pricing.DefaultRules(), 0, nil)
	ctx := context.Background()
	from := time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC)
	stay := pricing.DateRange{From: from, To: from.AddDate(0, 0, 2)}

	quote, err := catalog.Quote(ctx, "h1", "deluxe", stay)
	require.NoError(t, err)
	assert.Equal(t, pricing.Breakdown{Nights: 2, Base: 200000, Taxes: 15000, ServiceFee: 5000, Total: 220000}, quote)

	_, err = catalog.Quote(ctx, "h1", "suite", stay)
	require.ErrorIs(t, err, model.ErrRoomNotFound)

	_, err = catalog.Quote(ctx, "missing", "deluxe", stay)
	require.ErrorIs(t, err, model.ErrHotelNotFound)

	_, err = catalog.Quote(ctx, "h1", "deluxe", pricing.DateRange{From: from, To: from})
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestAuthLoginPersistsNormalizedSession(t *testing.T) {
	t.Parallel()

	token := validToken(t)
	result := model.LoginResult{Token: token}
	result.User.ID = "owner-7"
	result.User.Role = "HOTEL_OWNER"
	result.User.FirstName = "Ada"

	up := &mockUpstream{}
	up.On("Post", "/auth/login", model.LoginRequest{Email: "ada@example.com", Password: "secret"}, mock.Anything).
		Run(fill(2, result)).
		Return(nil)

	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	store := session.NewStore(storage.NewMemory())
	auth := NewAuthService(up, bus, nil)

	view, err := auth.Login(context.Background(), "browser-1", store, model.LoginRequest{Email: " ADA@example.com ", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, model.RoleHotelOwner, view.User.Role)
	assert.Equal(t, "/owner/dashboard", view.Home)

	stored, ok := store.Read(context.Background())
	require.True(t, ok)
	assert.Equal(t, token, stored.Token)

	started := <-events
	assert.Equal(t, event.TypeSessionStarted, started.Type)
	assert.Equal(t, "browser-1", started.ActorID)
}

func TestAuthLoginRejectsBadInputWithoutCallingUpstream(t *testing.T) {
	t.Parallel()

	up := &mockUpstream{}
	auth := NewAuthService(up, nil, nil)
	store := session.NewStore(storage.NewMemory())

	_, err := auth.Login(context.Background(), "b", store, model.LoginRequest{Email: "not-an-email", Password: "x"})
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "email", apiErr.Details)

	_, err = auth.Login(context.Background(), "b", store, model.LoginRequest{Email: "a@example.com"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "password", apiErr.Details)

	up.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthLoginSurfacesUpstreamMessage(t *testing.T) {
	t.Parallel()

	up := &mockUpstream{}
	up.On("Post", "/auth/login", mock.Anything, mock.Anything).
		Return(apierror.FromStatus(401, "Invalid email or password"))

	store := session.NewStore(storage.NewMemory())
	_, err := NewAuthService(up, nil, nil).Login(context.Background(), "b", store, model.LoginRequest{Email: "a@example.com", Password: "x"})

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid email or password", apiErr.Message)

	_, ok := store.Read(context.Background())
	assert.False(t, ok)
}

func TestAuthLogoutClearsAndReleases(t *testing.T) {
	t.Parallel()

	store := session.NewStore(storage.NewMemory())
	require.NoError(t, store.Write(context.Background(), model.Session{
		Token: validToken(t),
		User:  model.SessionUser{ID: "u1", Role: model.RoleGuestUser},
	}))

	var released []string
	auth := NewAuthService(&mockUpstream{}, nil, func(id string) { released = append(released, id) })

	require.NoError(t, auth.Logout(context.Background(), "browser-1", store))
	require.NoError(t, auth.Logout(context.Background(), "browser-1", store))

	_, err := auth.Me(context.Background(), store)
	require.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, []string{"browser-1", "browser-1"}, released)
}

func TestDashboardServesFallbackAndForgets(t *testing.T) {
	t.Parallel()

	up := downUpstream()
	catalog := NewCatalogService(up, pricing.DefaultRules(), 0, nil)
	dashboard := NewDashboardService(func(transport.TokenSource) Upstream { return up }, catalog, nil, DashboardIntervals{})

	sess := model.Session{Token: "t", User: model.SessionUser{ID: "sample-owner-1", Role: model.RoleHotelOwner}}
	tokens := transport.TokenFunc(func(context.Context) string { return "t" })

	view := dashboard.Dashboard(context.Background(), "browser-1", tokens, sess)
	assert.Equal(t, query.SourceFallback, view.Stats.Source)
	assert.Equal(t, refdata.SampleStats(model.RoleHotelOwner), view.Stats.Data)
	assert.Equal(t, refdata.SampleNotifications(), view.Notifications.Data)

	listings := dashboard.OwnerListings(context.Background(), "browser-1", tokens, sess)
	require.NotEmpty(t, listings.Data)
	for _, hotel := range listings.Data {
		assert.Equal(t, "sample-owner-1", hotel.OwnerID)
	}

	qs := dashboard.browsers["browser-1"]
	require.NotNil(t, qs)
	assert.True(t, qs.stats.Mounted())

	dashboard.Forget("browser-1")
	assert.False(t, qs.stats.Mounted())
	assert.False(t, qs.listings.Mounted())
	assert.Empty(t, dashboard.browsers)
}

func TestDashboardRebuildsQueriesForNewUser(t *testing.T) {
	t.Parallel()

	up := downUpstream()
	dashboard := NewDashboardService(func(transport.TokenSource) Upstream { return up }, NewCatalogService(up, pricing.DefaultRules(), 0, nil), nil, DashboardIntervals{})
	tokens := transport.TokenFunc(func(context.Context) string { return "t" })

	dashboard.Dashboard(context.Background(), "b", tokens, model.Session{User: model.SessionUser{ID: "u1", Role: model.RoleGuestUser}})
	first := dashboard.browsers["b"]

	dashboard.Dashboard(context.Background(), "b", tokens, model.Session{User: model.SessionUser{ID: "u2", Role: model.RoleSuperAdmin}})
	second := dashboard.browsers["b"]

	assert.NotSame(t, first, second)
	assert.False(t, first.stats.Mounted())
	assert.Equal(t, "u2", second.userID)
	dashboard.Stop()
}

func TestCreateListingValidatesBeforeUpstream(t *testing.T) {
	t.Parallel()

	up := downUpstream()
	dashboard := NewDashboardService(func(transport.TokenSource) Upstream { return up }, NewCatalogService(up, pricing.DefaultRules(), 0, nil), nil, DashboardIntervals{})
	sess := model.Session{User: model.SessionUser{ID: "o1", Role: model.RoleHotelOwner}}

	_, err := dashboard.CreateListing(context.Background(), "b", nil, sess, model.ListingInput{Name: "Haven", State: "Lagos", City: "Kano"})

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "city", apiErr.Details)
	up.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}

func newBookingFixture(t *testing.T, payer payment.Processor) (*BookingService, *event.InMemoryBus) {
	t.Helper()

	bus := event.NewBus()
	catalog := NewCatalogService(downUpstream(), pricing.DefaultRules(), 0, nil)
	return NewBookingService(catalog, payer, bus, BookingOptions{RequireGuestFields: true, Rules: pricing.DefaultRules(), Currency: "NGN"}), bus
}

func futureStay() (time.Time, time.Time) {
	from := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 7)
	return from, from.AddDate(0, 0, 2)
}

func TestBookingHappyPath(t *testing.T) {
	t.Parallel()

	payer := payment.ProcessorFunc(func(ctx context.Context, charge payment.Charge) (payment.Receipt, error) {
		assert.Equal(t, int64(209250), charge.Amount)
		return payment.Receipt{Reference: "PAY-1", Provider: "test", Status: payment.StatusSucceeded}, nil
	})
	bookings, bus := newBookingFixture(t, payer)
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	sess := model.Session{User: model.SessionUser{ID: "g1", Role: model.RoleGuestUser, FirstName: "Ada", Email: "ada@example.com"}}
	from, to := futureStay()

	draft, err := bookings.Create(context.Background(), "browser-1", sess, model.CreateDraftRequest{HotelID: "sample-eko-signature", RoomID: "deluxe", From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, booking.StepGuestDetails, draft.Step)
	assert.Equal(t, "Ada", draft.Draft.Guest.FirstName)
	assert.Equal(t, int64(209250), draft.Quote.Total)

	id := draft.Draft.ID

	_, err = bookings.Continue("browser-1", id)
	var validation *booking.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = bookings.UpdateGuest("browser-1", id, model.GuestRequest{FirstName: "Ada", LastName: "Obi", Email: "ada@example.com", Phone: "+234 801 234 5678"})
	require.NoError(t, err)

	draft, err = bookings.Continue("browser-1", id)
	require.NoError(t, err)
	assert.Equal(t, booking.StepPayment, draft.Step)

	_, err = bookings.UpdatePayment("browser-1", id, model.PaymentRequest{Method: "card", CardHolder: "Ada Obi", CardNumber: "4242 4242 4242 4242", AgreedToTerms: true})
	require.NoError(t, err)

	draft, err = bookings.Submit(context.Background(), "browser-1", id)
	require.NoError(t, err)
	assert.Equal(t, booking.StepConfirmed, draft.Step)
	assert.Equal(t, "4242", draft.Draft.Payment.CardLast4)

	var pdf bytes.Buffer
	require.NoError(t, bookings.Receipt("browser-1", id, &pdf))
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF")))

	var kinds []event.Type
	for len(events) > 0 {
		e := <-events
		assert.Equal(t, "browser-1", e.ActorID)
		kinds = append(kinds, e.Type)
	}
	assert.Contains(t, kinds, event.TypeBookingConfirmed)
}

func TestBookingDraftsAreScopedToBrowser(t *testing.T) {
	t.Parallel()

	bookings, _ := newBookingFixture(t, payment.NewSimulated(0))
	from, to := futureStay()

	draft, err := bookings.Create(context.Background(), "browser-1", model.Session{}, model.CreateDraftRequest{HotelID: "sample-eko-signature", RoomID: "deluxe", From: from, To: to})
	require.NoError(t, err)

	_, err = bookings.Get("browser-2", draft.Draft.ID)
	require.ErrorIs(t, err, model.ErrDraftNotFound)

	var pdf bytes.Buffer
	require.Error(t, bookings.Receipt("browser-1", draft.Draft.ID, &pdf))

	bookings.Forget("browser-1")
	_, err = bookings.Get("browser-1", draft.Draft.ID)
	require.ErrorIs(t, err, model.ErrDraftNotFound)
}

func TestBookingCreateRejectsBadRequests(t *testing.T) {
	t.Parallel()

	bookings, _ := newBookingFixture(t, payment.NewSimulated(0))
	from, to := futureStay()
	ctx := context.Background()

	_, err := bookings.Create(ctx, "b", model.Session{}, model.CreateDraftRequest{HotelID: "sample-eko-signature", RoomID: "deluxe", From: to, To: from})
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)

	past := time.Now().AddDate(0, 0, -3)
	_, err = bookings.Create(ctx, "b", model.Session{}, model.CreateDraftRequest{HotelID: "sample-eko-signature", RoomID: "deluxe", From: past, To: past.AddDate(0, 0, 1)})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "from", apiErr.Details)

	_, err = bookings.Create(ctx, "b", model.Session{}, model.CreateDraftRequest{HotelID: "sample-eko-signature", RoomID: "penthouse", From: from, To: to})
	require.ErrorIs(t, err, model.ErrRoomNotFound)

	_, err = bookings.Create(ctx, "b", model.Session{}, model.CreateDraftRequest{HotelID: "sample-lekki-haven", RoomID: "family", From: from, To: to})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestBookingAbandon(t *testing.T) {
	t.Parallel()

	bookings, bus := newBookingFixture(t, payment.NewSimulated(0))
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	from, to := futureStay()

	draft, err := bookings.Create(context.Background(), "b", model.Session{}, model.CreateDraftRequest{HotelID: "sample-eko-signature", RoomID: "deluxe", From: from, To: to})
	require.NoError(t, err)

	require.NoError(t, bookings.Abandon("b", draft.Draft.ID))
	require.ErrorIs(t, bookings.Abandon("b", draft.Draft.ID), model.ErrDraftNotFound)

	e := <-events
	assert.Equal(t, event.TypeBookingAbandoned, e.Type)
}

func TestIdleTrackerSweep(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	var released []string
	tracker := NewIdleTracker(10*time.Minute, func(id string) { released = append(released, id) })
	tracker.now = func() time.Time { return now }

	tracker.Touch("old")
	now = now.Add(8 * time.Minute)
	tracker.Touch("recent")
	now = now.Add(5 * time.Minute)

	assert.Equal(t, 1, tracker.Sweep())
	assert.Equal(t, []string{"old"}, released)
	assert.Zero(t, tracker.Sweep())

	tracker.Forget("recent")
	assert.Equal(t, []string{"old", "recent"}, released)
}

func TestConfirmedDraftsDoNotCountTowardsOpenLimit(t *testing.T) {
	t.Parallel()

	bookings, _ := newBookingFixture(t, payment.NewSimulated(0))
	sess := model.Session{User: model.SessionUser{ID: "g1", Role: model.RoleGuestUser, FirstName: "Ada", Email: "ada@example.com"}}
	from, to := futureStay()
	request := model.CreateDraftRequest{HotelID: "sample-eko-signature", RoomID: "deluxe", From: from, To: to}

	for i := 0; i < maxOpenDrafts+1; i++ {
		draft, err := bookings.Create(context.Background(), "browser-1", sess, request)
		require.NoError(t, err, "booking %d", i+1)
		id := draft.Draft.ID

		_, err = bookings.UpdateGuest("browser-1", id, model.GuestRequest{FirstName: "Ada", LastName: "Obi", Email: "ada@example.com", Phone: "+234 801 234 5678"})
		require.NoError(t, err)
		_, err = bookings.Continue("browser-1", id)
		require.NoError(t, err)
		_, err = bookings.UpdatePayment("browser-1", id, model.PaymentRequest{Method: "card", CardHolder: "Ada Obi", CardNumber: "4242 4242 4242 4242", AgreedToTerms: true})
		require.NoError(t, err)

		draft, err = bookings.Submit(context.Background(), "browser-1", id)
		require.NoError(t, err)
		require.Equal(t, booking.StepConfirmed, draft.Step)
	}

	for i := 0; i < maxOpenDrafts; i++ {
		_, err := bookings.Create(context.Background(), "browser-1", sess, request)
		require.NoError(t, err)
	}

	_, err := bookings.Create(context.Background(), "browser-1", sess, request)
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "RATE_LIMITED", apiErr.Code)
}
