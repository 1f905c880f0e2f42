package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go-stay-portal/internal/event"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/query"
	"go-stay-portal/internal/refdata"
	"go-stay-portal/internal/transport"
	"go-stay-portal/internal/util"
	"go-stay-portal/pkg/apierror"
)

type DashboardIntervals struct {
	Stats         time.Duration
	Notifications time.Duration
	Listings      time.Duration
}

type DashboardView struct {
	User          model.SessionUser                 `json:"user"`
	Stats         query.State[model.DashboardStats] `json:"stats"`
	Notifications query.State[[]model.Notification] `json:"notifications"`
}

type AdminOverview struct {
	DashboardView
	Hotels query.State[[]model.Hotel] `json:"hotels"`
}

// browserQueries is the set of queries mounted for one signed-in browser.
// It is rebuilt when a different user signs in on the same browser.
type browserQueries struct {
	userID        string
	stats         *query.Query[model.DashboardStats]
	notifications *query.Query[[]model.Notification]
	listings      *query.Query[[]model.Hotel]
}

func (b *browserQueries) unmount() {
	b.stats.Unmount()
	b.notifications.Unmount()
	b.listings.Unmount()
}

// DashboardService keeps the polling queries behind each browser's
// dashboard alive between requests and pushes their updates to the feed.
type DashboardService struct {
	authorize Authorized
	catalog   *CatalogService
	bus       event.Bus
	intervals DashboardIntervals

	mu       sync.Mutex
	browsers map[string]*browserQueries
}

func NewDashboardService(authorize Authorized, catalog *CatalogService, bus event.Bus, intervals DashboardIntervals) *DashboardService {
	return &DashboardService{
		authorize: authorize,
		catalog:   catalog,
		bus:       bus,
		intervals: intervals,
		browsers:  map[string]*browserQueries{},
	}
}

func (s *DashboardService) Dashboard(ctx context.Context, browserID string, tokens transport.TokenSource, sess model.Session) DashboardView {
	qs := s.queriesFor(browserID, tokens, sess)

	return DashboardView{
		User:          sess.User,
		Stats:         current(ctx, qs.stats),
		Notifications: current(ctx, qs.notifications),
	}
}

func (s *DashboardService) AdminOverview(ctx context.Context, browserID string, tokens transport.TokenSource, sess model.Session) (AdminOverview, error) {
	hotels, err := s.catalog.Browse(ctx, model.HotelFilter{})
	if err != nil {
		return AdminOverview{}, err
	}

	return AdminOverview{
		DashboardView: s.Dashboard(ctx, browserID, tokens, sess),
		Hotels:        hotels,
	}, nil
}

func (s *DashboardService) OwnerListings(ctx context.Context, browserID string, tokens transport.TokenSource, sess model.Session) query.State[[]model.Hotel] {
	return current(ctx, s.queriesFor(browserID, tokens, sess).listings)
}

func (s *DashboardService) CreateListing(ctx context.Context, browserID string, tokens transport.TokenSource, sess model.Session, input model.ListingInput) (model.Hotel, error) {
	input, err := cleanListing(input)
	if err != nil {
		return model.Hotel{}, err
	}

	var created model.Hotel
	if err := s.authorize(tokens).Post(ctx, "/owner/listings", input, &created); err != nil {
		return model.Hotel{}, fmt.Errorf("create listing: %w", err)
	}

	s.afterListingChange(ctx, browserID, tokens, sess, event.TypeListingCreated, created)
	return created, nil
}

func (s *DashboardService) UpdateListing(ctx context.Context, browserID string, tokens transport.TokenSource, sess model.Session, id string, input model.ListingInput) (model.Hotel, error) {
	input, err := cleanListing(input)
	if err != nil {
		return model.Hotel{}, err
	}

	var updated model.Hotel
	if err := s.authorize(tokens).Put(ctx, "/owner/listings/"+url.PathEscape(id), input, &updated); err != nil {
		return model.Hotel{}, fmt.Errorf("update listing %s: %w", id, err)
	}

	s.afterListingChange(ctx, browserID, tokens, sess, event.TypeListingUpdated, updated)
	return updated, nil
}

func (s *DashboardService) DeleteListing(ctx context.Context, browserID string, tokens transport.TokenSource, sess model.Session, id string) error {
	if err := s.authorize(tokens).Delete(ctx, "/owner/listings/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("delete listing %s: %w", id, err)
	}

	s.afterListingChange(ctx, browserID, tokens, sess, event.TypeListingDeleted, model.Hotel{ID: id})
	return nil
}

// Forget unmounts every query of the browser. Results still in flight are
// discarded.
func (s *DashboardService) Forget(browserID string) {
	s.mu.Lock()
	qs, ok := s.browsers[browserID]
	delete(s.browsers, browserID)
	s.mu.Unlock()

	if ok {
		qs.unmount()
	}
}

// Stop unmounts everything, on shutdown.
func (s *DashboardService) Stop() {
	s.mu.Lock()
	browsers := s.browsers
	s.browsers = map[string]*browserQueries{}
	s.mu.Unlock()

	for _, qs := range browsers {
		qs.unmount()
	}
}

func (s *DashboardService) afterListingChange(ctx context.Context, browserID string, tokens transport.TokenSource, sess model.Session, kind event.Type, hotel model.Hotel) {
	s.queriesFor(browserID, tokens, sess).listings.Refresh(ctx)
	s.catalog.Refresh(ctx)

	if s.bus != nil {
		s.bus.Publish(event.New(kind, browserID, hotel))
	}
}

func (s *DashboardService) queriesFor(browserID string, tokens transport.TokenSource, sess model.Session) *browserQueries {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qs, ok := s.browsers[browserID]; ok {
		if qs.userID == sess.User.ID {
			return qs
		}
		qs.unmount()
	}

	upstream := s.authorize(tokens)
	role := sess.User.Role
	qs := &browserQueries{
		userID: sess.User.ID,
		stats: query.New("stats", func(ctx context.Context) (model.DashboardStats, error) {
			var stats model.DashboardStats
			err := upstream.Get(ctx, statsPath(role), nil, &stats)
			return stats, err
		}, query.Options[model.DashboardStats]{
			Interval: s.intervals.Stats,
			Fallback: refdata.SampleStats(role),
			OnChange: publishTo[model.DashboardStats](s.bus, browserID, "stats"),
		}),
		notifications: query.New("notifications", func(ctx context.Context) ([]model.Notification, error) {
			var notifications []model.Notification
			err := upstream.Get(ctx, "/notifications", nil, &notifications)
			return notifications, err
		}, query.Options[[]model.Notification]{
			Interval: s.intervals.Notifications,
			Fallback: refdata.SampleNotifications(),
			OnChange: publishTo[[]model.Notification](s.bus, browserID, "notifications"),
		}),
		listings: query.New("listings", func(ctx context.Context) ([]model.Hotel, error) {
			var hotels []model.Hotel
			err := upstream.Get(ctx, "/owner/listings", nil, &hotels)
			return hotels, err
		}, query.Options[[]model.Hotel]{
			Interval: s.intervals.Listings,
			Fallback: ownedSamples(sess.User.ID),
			OnChange: publishTo[[]model.Hotel](s.bus, browserID, "listings"),
		}),
	}

	qs.stats.Mount()
	qs.notifications.Mount()
	if role == model.RoleHotelOwner {
		qs.listings.Mount()
	}

	s.browsers[browserID] = qs
	return qs
}

// current returns the snapshot, waiting for the first attempt if none has
// finished yet. An unmounted query (listings for a non-owner) is returned
// as is.
func current[T any](ctx context.Context, q *query.Query[T]) query.State[T] {
	state := q.Snapshot()
	if state.Attempts == 0 && q.Mounted() {
		return q.Refresh(ctx)
	}
	return state
}

func publishTo[T any](bus event.Bus, browserID, name string) func(query.State[T]) {
	return func(state query.State[T]) {
		if bus == nil {
			return
		}
		bus.Publish(event.New(event.TypeQueryUpdated, browserID, queryUpdate{Query: name, State: state}))
	}
}

func statsPath(role model.Role) string {
	switch role {
	case model.RoleSuperAdmin:
		return "/admin/stats"
	case model.RoleHotelOwner:
		return "/owner/stats"
	default:
		return "/dashboard/stats"
	}
}

func ownedSamples(ownerID string) []model.Hotel {
	var owned []model.Hotel
	for _, hotel := range refdata.SampleHotels() {
		if hotel.OwnerID == ownerID {
			owned = append(owned, hotel)
		}
	}
	return owned
}

func cleanListing(input model.ListingInput) (model.ListingInput, error) {
	input.Name = util.SanitizeText(input.Name, 120)
	input.Description = util.SanitizeText(input.Description, 2000)
	input.Address = util.SanitizeText(input.Address, 240)
	input.State = strings.TrimSpace(input.State)
	input.City = strings.TrimSpace(input.City)

	if err := util.RequireText("name", input.Name); err != nil {
		return input, err
	}

	cities, ok := refdata.Cities(input.State)
	if !ok {
		return input, apierror.New("VALIDATION_ERROR", "unknown state", "state", http.StatusBadRequest)
	}
	known := false
	for _, city := range cities {
		if strings.EqualFold(city, input.City) {
			input.City = city
			known = true
			break
		}
	}
	if !known {
		return input, apierror.New("VALIDATION_ERROR", "city is not in the selected state", "city", http.StatusBadRequest)
	}

	for i, room := range input.Rooms {
		if room.NightlyRate <= 0 {
			return input, apierror.New("VALIDATION_ERROR", "room nightly rate must be positive", fmt.Sprintf("rooms[%d].nightlyRate", i), http.StatusBadRequest)
		}
		input.Rooms[i].Name = util.SanitizeText(room.Name, 120)
	}
	return input, nil
}
