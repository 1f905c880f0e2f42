package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go-stay-portal/internal/event"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/pricing"
	"go-stay-portal/internal/query"
	"go-stay-portal/internal/refdata"
	"go-stay-portal/internal/transport"
	"go-stay-portal/pkg/apierror"
)

const hotelsQueryName = "hotels"

// Upstream is the slice of the transport client the services call.
type Upstream interface {
	Get(ctx context.Context, path string, params any, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Put(ctx context.Context, path string, body any, out any) error
	Delete(ctx context.Context, path string) error
}

// Authorized binds an upstream to the bearer token of one browser.
type Authorized func(tokens transport.TokenSource) Upstream

// CatalogService serves the public hotel listing from one shared query so
// every browser sees the same snapshot and the upstream is polled once.
type CatalogService struct {
	upstream Upstream
	rules    pricing.Rules
	hotels   *query.Query[[]model.Hotel]
}

func NewCatalogService(upstream Upstream, rules pricing.Rules, interval time.Duration, bus event.Bus) *CatalogService {
	s := &CatalogService{upstream: upstream, rules: rules}

	s.hotels = query.New(hotelsQueryName, s.fetchHotels, query.Options[[]model.Hotel]{
		Interval: interval,
		Fallback: refdata.SampleHotels(),
		OnChange: func(state query.State[[]model.Hotel]) {
			if bus == nil || state.Loading {
				return
			}
			bus.Publish(event.New(event.TypeQueryUpdated, "", queryUpdate{Query: hotelsQueryName, State: state}))
		},
	})
	return s
}

type queryUpdate struct {
	Query string `json:"query"`
	State any    `json:"state"`
}

// Start mounts the shared listing query.
func (s *CatalogService) Start() { s.hotels.Mount() }

func (s *CatalogService) Stop() { s.hotels.Unmount() }

func (s *CatalogService) fetchHotels(ctx context.Context) ([]model.Hotel, error) {
	var hotels []model.Hotel
	if err := s.upstream.Get(ctx, "/hotels", nil, &hotels); err != nil {
		return nil, err
	}
	return hotels, nil
}

// Browse returns the listing narrowed by filter. Before the first attempt
// has finished it waits for it, bounded by ctx.
func (s *CatalogService) Browse(ctx context.Context, filter model.HotelFilter) (query.State[[]model.Hotel], error) {
	if filter.MinPrice < 0 || filter.MaxPrice < 0 {
		return query.State[[]model.Hotel]{}, apierror.New("BAD_REQUEST", "price bounds cannot be negative", "min_price|max_price", http.StatusBadRequest)
	}
	if filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		return query.State[[]model.Hotel]{}, apierror.New("BAD_REQUEST", "min_price cannot exceed max_price", "min_price", http.StatusBadRequest)
	}

	state := s.hotels.Snapshot()
	if state.Attempts == 0 {
		state = s.hotels.Refresh(ctx)
	}

	matched := make([]model.Hotel, 0, len(state.Data))
	for _, hotel := range state.Data {
		if filter.Matches(hotel) {
			matched = append(matched, hotel)
		}
	}
	state.Data = matched
	return state, nil
}

// Refresh forces a refetch of the shared listing, as after an owner edits
// one of their hotels.
func (s *CatalogService) Refresh(ctx context.Context) {
	s.hotels.Refresh(ctx)
}

// Hotel looks the hotel up in the current listing first, then upstream, then
// in the bundled samples.
func (s *CatalogService) Hotel(ctx context.Context, id string) (model.Hotel, error) {
	for _, hotel := range s.hotels.Snapshot().Data {
		if hotel.ID == id {
			return hotel, nil
		}
	}

	var hotel model.Hotel
	err := s.upstream.Get(ctx, "/hotels/"+url.PathEscape(id), nil, &hotel)
	if err == nil {
		return hotel, nil
	}

	if sample, ok := refdata.SampleHotel(id); ok {
		slog.WarnContext(ctx, "hotel lookup failed upstream, serving sample", "hotel_id", id, "error", err)
		return sample, nil
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusNotFound {
		return model.Hotel{}, model.ErrHotelNotFound
	}
	return model.Hotel{}, fmt.Errorf("lookup hotel %s: %w", id, err)
}

// Quote prices a stay in one room of a hotel.
func (s *CatalogService) Quote(ctx context.Context, hotelID, roomID string, stay pricing.DateRange) (pricing.Breakdown, error) {
	if err := validateStay(stay); err != nil {
		return pricing.Breakdown{}, err
	}

	hotel, err := s.Hotel(ctx, hotelID)
	if err != nil {
		return pricing.Breakdown{}, err
	}

	room, ok := hotel.Room(roomID)
	if !ok {
		return pricing.Breakdown{}, model.ErrRoomNotFound
	}

	return s.rules.Quote(room.NightlyRate, stay), nil
}

func validateStay(stay pricing.DateRange) error {
	if stay.From.IsZero() || stay.To.IsZero() {
		return apierror.New("BAD_REQUEST", "check-in and check-out dates are required", "from|to", http.StatusBadRequest)
	}
	if pricing.Nights(stay.From, stay.To) < 1 {
		return apierror.New("BAD_REQUEST", "check-out must be after check-in", "to", http.StatusBadRequest)
	}
	return nil
}
