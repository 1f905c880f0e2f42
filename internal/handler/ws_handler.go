package handler

import (
	"log/slog"
	"net/http"

	"go-stay-portal/internal/websocket"
)

type LiveFeedHandler struct {
	hub *websocket.Hub
}

func NewLiveFeedHandler(hub *websocket.Hub) *LiveFeedHandler {
	return &LiveFeedHandler{hub: hub}
}

// Serve streams the browser's query updates and booking events.
func (h *LiveFeedHandler) Serve(w http.ResponseWriter, r *http.Request) {
	b, ok := browser(w, r)
	if !ok {
		return
	}

	// the upgrader has already answered the request on failure
	if err := h.hub.Serve(w, r, b.ID); err != nil {
		slog.WarnContext(r.Context(), "live feed upgrade failed", "error", err)
	}
}
