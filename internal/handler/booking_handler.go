package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-stay-portal/internal/model"
	"go-stay-portal/internal/service"
)

type BookingHandler struct {
	service *service.BookingService
}

func NewBookingHandler(service *service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	b, sess, ok := signedIn(w, r)
	if !ok {
		return
	}

	var payload struct {
		HotelID string `json:"hotelId"`
		RoomID  string `json:"roomId"`
		From    string `json:"from"`
		To      string `json:"to"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	from, err := parseDay("from", payload.From)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseDay("to", payload.To)
	if err != nil {
		writeError(w, err)
		return
	}

	draft, err := h.service.Create(r.Context(), b.ID, sess, model.CreateDraftRequest{
		HotelID: payload.HotelID,
		RoomID:  payload.RoomID,
		From:    from,
		To:      to,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, draft, nil)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, _, ok := signedIn(w, r)
	if !ok {
		return
	}

	draft, err := h.service.Get(b.ID, chi.URLParam(r, "draft_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, draft, nil)
}

func (h *BookingHandler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	b, _, ok := signedIn(w, r)
	if !ok {
		return
	}

	var payload model.GuestRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	respond(w)(h.service.UpdateGuest(b.ID, chi.URLParam(r, "draft_id"), payload))
}

func (h *BookingHandler) Continue(w http.ResponseWriter, r *http.Request) {
	b, _, ok := signedIn(w, r)
	if !ok {
		return
	}

	respond(w)(h.service.Continue(b.ID, chi.URLParam(r, "draft_id")))
}

func (h *BookingHandler) Back(w http.ResponseWriter, r *http.Request) {
	b, _, ok := signedIn(w, r)
	if !ok {
		return
	}

	respond(w)(h.service.Back(b.ID, chi.URLParam(r, "draft_id")))
}

func (h *BookingHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	b, _, ok := signedIn(w, r)
	if !ok {
		return
	}

	var payload model.PaymentRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	respond(w)(h.service.UpdatePayment(b.ID, chi.URLParam(r, "draft_id"), payload))
}

func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	b, _, ok := signedIn(w, r)
	if !ok {
		return
	}

	respond(w)(h.service.Submit(r.Context(), b.ID, chi.URLParam(r, "draft_id")))
}

func (h *BookingHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	b, _, ok := signedIn(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "draft_id")
	if err := h.service.Abandon(b.ID, id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"id": id}, nil)
}

func (h *BookingHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	b, _, ok := signedIn(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "draft_id")

	// rendered to a buffer first so a failure can still be reported as JSON
	var pdf bytes.Buffer
	if err := h.service.Receipt(b.ID, id, &pdf); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="booking-`+id+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(pdf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = pdf.WriteTo(w)
}

func respond(w http.ResponseWriter) func(service.DraftView, error) {
	return func(draft service.DraftView, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, draft, nil)
	}
}
