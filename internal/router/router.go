package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-stay-portal/internal/config"
	"go-stay-portal/internal/guard"
	"go-stay-portal/internal/handler"
	"go-stay-portal/internal/middleware"
	"go-stay-portal/internal/model"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Hotel     *handler.HotelHandler
	Dashboard *handler.DashboardHandler
	Booking   *handler.BookingHandler
	LiveFeed  *handler.LiveFeedHandler
	Docs      *handler.DocsHandler
}

func New(cfg *config.Config, sessions *middleware.SessionMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	// outside the timeout: http.TimeoutHandler cannot hijack
	r.With(sessions.Handler).Get("/ws", h.LiveFeed.Serve)

	signedIn := middleware.RequirePage(guard.LoginPath)
	hotelOwner := middleware.RequirePage(guard.LoginPath, model.RoleHotelOwner)
	superAdmin := middleware.RequirePage(guard.LoginPath, model.RoleSuperAdmin)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(sessions.Handler)
		api.Use(middleware.CSRF([]byte(cfg.CSRFAuthKey), cfg.CookieSecure, cfg.CORSOrigins))

		api.Get("/csrf", h.Auth.CSRFToken)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/logout", h.Auth.Logout)
			auth.Get("/me", h.Auth.Me)
		})

		api.Get("/hotels", h.Hotel.List)
		api.Get("/hotels/{hotel_id}", h.Hotel.Get)
		api.Get("/hotels/{hotel_id}/quote", h.Hotel.Quote)

		api.Get("/refdata/states", handler.States)
		api.Get("/refdata/states/{state}/cities", handler.Cities)

		api.With(signedIn).Get("/dashboard", h.Dashboard.Dashboard)

		api.Route("/owner/listings", func(owner chi.Router) {
			owner.Use(hotelOwner)
			owner.Get("/", h.Dashboard.OwnerListings)
			owner.Post("/", h.Dashboard.CreateListing)
			owner.Put("/{listing_id}", h.Dashboard.UpdateListing)
			owner.Delete("/{listing_id}", h.Dashboard.DeleteListing)
		})

		api.With(superAdmin).Get("/admin/overview", h.Dashboard.AdminOverview)

		api.Route("/bookings", func(bookings chi.Router) {
			bookings.Use(signedIn)
			bookings.Post("/", h.Booking.Create)
			bookings.Get("/{draft_id}", h.Booking.Get)
			bookings.Delete("/{draft_id}", h.Booking.Abandon)
			bookings.Put("/{draft_id}/guest", h.Booking.UpdateGuest)
			bookings.Post("/{draft_id}/continue", h.Booking.Continue)
			bookings.Post("/{draft_id}/back", h.Booking.Back)
			bookings.Put("/{draft_id}/payment", h.Booking.UpdatePayment)
			bookings.Post("/{draft_id}/submit", h.Booking.Submit)
			bookings.Get("/{draft_id}/receipt.pdf", h.Booking.Receipt)
		})
	})

	return r
}
