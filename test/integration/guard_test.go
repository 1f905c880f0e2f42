//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stay-portal/internal/model"
)

func TestGuardRedirects(t *testing.T) {
	portal := newPortal(t, newFakeUpstream(t))

	cases := []struct {
		name     string
		email    string
		path     string
		status   int
		location string
	}{
		{"anonymous dashboard", "", "/api/v1/dashboard", http.StatusSeeOther, "/login"},
		{"anonymous booking", "", "/api/v1/bookings/any", http.StatusSeeOther, "/login"},
		{"guest on admin page", "guest@example.com", "/api/v1/admin/overview", http.StatusSeeOther, "/dashboard"},
		{"owner on admin page", "owner@example.com", "/api/v1/admin/overview", http.StatusSeeOther, "/owner/dashboard"},
		{"admin on owner page", "admin@example.com", "/api/v1/owner/listings", http.StatusSeeOther, "/admin"},
		{"guest dashboard", "guest@example.com", "/api/v1/dashboard", http.StatusOK, ""},
		{"owner listings", "owner@example.com", "/api/v1/owner/listings", http.StatusOK, ""},
		{"admin overview", "admin@example.com", "/api/v1/admin/overview", http.StatusOK, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := browserClient(t)
			if tc.email != "" {
				login(t, client, portal.URL, tc.email)
			}

			status, body := doJSON(t, client, http.MethodGet, portal.URL+tc.path, nil)
			require.Equal(t, tc.status, status)
			assert.Equal(t, tc.location, body.Redirect)
		})
	}
}

func TestDashboardServesFreshThenFallback(t *testing.T) {
	up := newFakeUpstream(t)
	portal := newPortal(t, up)
	client := browserClient(t)
	login(t, client, portal.URL, "guest@example.com")

	status, body := doJSON(t, client, http.MethodGet, portal.URL+"/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, status)

	var view struct {
		Stats struct {
			Data   model.DashboardStats `json:"data"`
			Source string               `json:"source"`
		} `json:"stats"`
	}
	decodeData(t, body, &view)
	assert.Equal(t, "fresh", view.Stats.Source)
	assert.Equal(t, 42, view.Stats.Data.TotalBookings)
}

func TestOwnerCreatesListing(t *testing.T) {
	portal := newPortal(t, newFakeUpstream(t))
	client := browserClient(t)
	login(t, client, portal.URL, "owner@example.com")

	status, body := doJSON(t, client, http.MethodPost, portal.URL+"/api/v1/owner/listings", model.ListingInput{
		Name:  "Harbour View",
		State: "Lagos",
		City:  "ikeja",
		Rooms: []model.Room{{ID: "std", Name: "Standard", NightlyRate: 60000}},
	})
	require.Equal(t, http.StatusCreated, status, "%+v", body.Error)

	status, body = doJSON(t, client, http.MethodGet, portal.URL+"/api/v1/owner/listings", nil)
	require.Equal(t, http.StatusOK, status)

	var listings []model.Hotel
	decodeData(t, body, &listings)
	require.Len(t, listings, 1)
	assert.Equal(t, "Harbour View", listings[0].Name)
	assert.Equal(t, "Ikeja", listings[0].City)
	assert.Equal(t, "fresh", body.Meta.Source)
}
