package model

import (
	"strings"
	"time"
)

type Room struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	NightlyRate  int64  `json:"nightlyRate"`
	MaxOccupancy int    `json:"maxOccupancy"`
	Available    bool   `json:"available"`
}

type Hotel struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	State       string   `json:"state"`
	City        string   `json:"city"`
	Address     string   `json:"address,omitempty"`
	Rating      float64  `json:"rating"`
	Amenities   []string `json:"amenities,omitempty"`
	Images      []string `json:"images,omitempty"`
	OwnerID     string   `json:"ownerId,omitempty"`
	Status      string   `json:"status,omitempty"`
	Rooms       []Room   `json:"rooms,omitempty"`
}

// Room looks up a room by id.
func (h Hotel) Room(id string) (Room, bool) {
	for _, room := range h.Rooms {
		if room.ID == id {
			return room, true
		}
	}
	return Room{}, false
}

// StartingRate is the lowest nightly rate across the hotel's rooms, or zero
// when it has none.
func (h Hotel) StartingRate() int64 {
	var lowest int64
	for _, room := range h.Rooms {
		if lowest == 0 || room.NightlyRate < lowest {
			lowest = room.NightlyRate
		}
	}
	return lowest
}

// HotelFilter is both the browse query string and the upstream search params.
type HotelFilter struct {
	State    string `url:"state,omitempty"`
	City     string `url:"city,omitempty"`
	MinPrice int64  `url:"min_price,omitempty"`
	MaxPrice int64  `url:"max_price,omitempty"`
	OwnerID  string `url:"owner_id,omitempty"`
}

type ListingInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	State       string   `json:"state"`
	City        string   `json:"city"`
	Address     string   `json:"address"`
	Amenities   []string `json:"amenities"`
	Rooms       []Room   `json:"rooms"`
}

type DashboardStats struct {
	TotalBookings  int     `json:"totalBookings"`
	ActiveBookings int     `json:"activeBookings"`
	Revenue        int64   `json:"revenue"`
	OccupancyRate  float64 `json:"occupancyRate"`
	Listings       int     `json:"listings"`
	Users          int     `json:"users,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Matches applies the filter locally. Price bounds compare against the
// hotel's starting rate; zero bounds are ignored.
func (f HotelFilter) Matches(h Hotel) bool {
	if f.State != "" && !strings.EqualFold(f.State, h.State) {
		return false
	}
	if f.City != "" && !strings.EqualFold(f.City, h.City) {
		return false
	}
	if f.OwnerID != "" && f.OwnerID != h.OwnerID {
		return false
	}

	rate := h.StartingRate()
	if f.MinPrice > 0 && rate < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && rate > f.MaxPrice {
		return false
	}
	return true
}
