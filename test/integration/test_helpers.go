//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"go-stay-portal/internal/config"
	"go-stay-portal/internal/event"
	"go-stay-portal/internal/handler"
	"go-stay-portal/internal/middleware"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/payment"
	"go-stay-portal/internal/pricing"
	"go-stay-portal/internal/router"
	"go-stay-portal/internal/service"
	"go-stay-portal/internal/storage"
	"go-stay-portal/internal/transport"
	"go-stay-portal/internal/websocket"
)

const testPassword = "secret"

var testUsers = map[string]struct{ id, role string }{
	"guest@example.com": {"guest-1", "guest-user"},
	"owner@example.com": {"sample-owner-1", "HOTEL_OWNER"},
	"admin@example.com": {"admin-1", "SuperAdmin"},
}

// fakeUpstream plays the hotel service the portal talks to.
type fakeUpstream struct {
	*httptest.Server
	down atomic.Bool

	mu       sync.Mutex
	listings []model.Hotel
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()

	up := &fakeUpstream{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if up.down.Load() && req.URL.Path != "/api/auth/login" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body model.LoginRequest
		_ = json.NewDecoder(req.Body).Decode(&body)

		user, ok := testUsers[body.Email]
		if !ok || body.Password != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
			return
		}

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": user.id,
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("upstream-secret"))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeUpstream(w, http.StatusOK, map[string]any{
			"token": token,
			"user":  map[string]string{"id": user.id, "role": user.role, "firstName": "Test", "email": body.Email},
		})
	})

	r.Get("/api/hotels", func(w http.ResponseWriter, req *http.Request) {
		writeUpstream(w, http.StatusOK, []model.Hotel{{
			ID: "live-1", Name: "Live Hotel", State: "Lagos", City: "Ikeja", OwnerID: "sample-owner-1",
			Rooms: []model.Room{{ID: "std", Name: "Standard", NightlyRate: 50000, Available: true}},
		}})
	})
	r.Get("/api/hotels/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Hotel not found"}`))
	})

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, req)
		}
	}
	stats := authed(func(w http.ResponseWriter, _ *http.Request) {
		writeUpstream(w, http.StatusOK, model.DashboardStats{TotalBookings: 42})
	})
	r.Get("/api/dashboard/stats", stats)
	r.Get("/api/owner/stats", stats)
	r.Get("/api/admin/stats", stats)
	r.Get("/api/notifications", authed(func(w http.ResponseWriter, _ *http.Request) {
		writeUpstream(w, http.StatusOK, []model.Notification{{ID: "n1", Title: "Welcome"}})
	}))
	r.Get("/api/owner/listings", authed(func(w http.ResponseWriter, _ *http.Request) {
		up.mu.Lock()
		defer up.mu.Unlock()
		writeUpstream(w, http.StatusOK, up.listings)
	}))
	r.Post("/api/owner/listings", authed(func(w http.ResponseWriter, req *http.Request) {
		var input model.ListingInput
		_ = json.NewDecoder(req.Body).Decode(&input)

		up.mu.Lock()
		hotel := model.Hotel{ID: "listing-" + input.Name, Name: input.Name, State: input.State, City: input.City, Rooms: input.Rooms}
		up.listings = append(up.listings, hotel)
		up.mu.Unlock()

		writeUpstream(w, http.StatusCreated, hotel)
	}))

	up.Server = httptest.NewServer(r)
	t.Cleanup(up.Close)
	return up
}

func writeUpstream(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// newPortal wires the portal the way the application does, against the fake
// upstream, with in-memory sessions and a simulated card processor.
func newPortal(t *testing.T, up *fakeUpstream) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		CORSOrigins:        []string{"*"},
		RateLimitRPM:       1000,
		AuthRateLimitRPM:   1000,
		RequestTimeout:     10 * time.Second,
		SessionCookieName:  "sid",
		SessionIdleTTL:     time.Minute,
		RequireGuestFields: true,
	}

	client, err := transport.New(transport.Options{
		BaseURL:    up.URL + "/api",
		HTTPClient: up.Client(),
		MaxRetries: 0,
	})
	require.NoError(t, err)
	authorize := func(tokens transport.TokenSource) service.Upstream { return client.WithTokens(tokens) }

	bus := event.NewBus()
	rules := pricing.DefaultRules()

	catalog := service.NewCatalogService(client, rules, 0, bus)
	catalog.Start()
	t.Cleanup(catalog.Stop)

	dashboard := service.NewDashboardService(authorize, catalog, bus, service.DashboardIntervals{})
	t.Cleanup(dashboard.Stop)

	payer := payment.NewRouter().
		Handle(payment.MethodCard, payment.NewSimulated(0)).
		Handle(payment.MethodBank, payment.NewBankTransfer(payment.BankAccount{BankName: "Test Bank", AccountName: "StayPortal", AccountNumber: "0000000000"}))
	bookings := service.NewBookingService(catalog, payer, bus, service.BookingOptions{RequireGuestFields: true, Rules: rules, Currency: "NGN"})

	hub := websocket.NewHub(bus, cfg.CORSOrigins)
	go hub.Run(t.Context())

	tracker := service.NewIdleTracker(cfg.SessionIdleTTL, dashboard.Forget, bookings.Forget)
	sessions := middleware.NewSessionMiddleware(storage.NewMemory(), middleware.SessionOptions{Touch: tracker.Touch})

	server := httptest.NewServer(router.New(cfg, sessions, router.Handlers{
		Auth:      handler.NewAuthHandler(service.NewAuthService(client, bus, tracker.Forget)),
		Hotel:     handler.NewHotelHandler(catalog),
		Dashboard: handler.NewDashboardHandler(dashboard),
		Booking:   handler.NewBookingHandler(bookings),
		LiveFeed:  handler.NewLiveFeedHandler(hub),
		Docs:      handler.NewDocsHandler(""),
	}))
	t.Cleanup(server.Close)
	return server
}

// browserClient keeps cookies like a browser but does not follow redirects,
// so guard answers stay visible.
func browserClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Error    *model.APIError `json:"error"`
	Meta     *model.Meta     `json:"meta"`
	Redirect string          `json:"redirect"`
}

func doJSON(t *testing.T, client *http.Client, method string, url string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

func login(t *testing.T, client *http.Client, baseURL string, email string) {
	t.Helper()

	status, body := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", map[string]string{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, status, "%+v", body.Error)
	require.True(t, body.Success)
}

func decodeData(t *testing.T, body envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body.Data, out))
}
