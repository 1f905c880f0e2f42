package refdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"go-stay-portal/internal/model"
)

//go:embed samples/*.json
var sampleFS embed.FS

type sampleSet struct {
	hotels        []model.Hotel
	stats         map[model.Role]model.DashboardStats
	notifications []model.Notification
}

var loadSamples = sync.OnceValue(func() sampleSet {
	var set sampleSet
	mustDecode("samples/hotels.json", &set.hotels)
	mustDecode("samples/notifications.json", &set.notifications)

	var stats map[string]model.DashboardStats
	mustDecode("samples/stats.json", &stats)
	set.stats = make(map[model.Role]model.DashboardStats, len(stats))
	for raw, s := range stats {
		role, err := model.ParseRole(raw)
		if err != nil {
			panic(fmt.Sprintf("refdata: stats.json: %v", err))
		}
		set.stats[role] = s
	}
	return set
})

func mustDecode(name string, out any) {
	raw, err := sampleFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("refdata: %s: %v", name, err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		panic(fmt.Sprintf("refdata: %s: %v", name, err))
	}
}

// SampleHotels is the listing fallback.
func SampleHotels() []model.Hotel {
	hotels := loadSamples().hotels
	out := make([]model.Hotel, len(hotels))
	for i, h := range hotels {
		h.Rooms = slices.Clone(h.Rooms)
		h.Amenities = slices.Clone(h.Amenities)
		h.Images = slices.Clone(h.Images)
		out[i] = h
	}
	return out
}

// SampleHotel finds a sample hotel by id.
func SampleHotel(id string) (model.Hotel, bool) {
	for _, h := range SampleHotels() {
		if h.ID == id {
			return h, true
		}
	}
	return model.Hotel{}, false
}

func SampleStats(role model.Role) model.DashboardStats {
	return loadSamples().stats[role]
}

func SampleNotifications() []model.Notification {
	return slices.Clone(loadSamples().notifications)
}
