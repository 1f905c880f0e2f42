package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-stay-portal/internal/model"
	"go-stay-portal/internal/service"
)

type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(service *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	b, sess, ok := signedIn(w, r)
	if !ok {
		return
	}

	writeSuccess(w, http.StatusOK, h.service.Dashboard(r.Context(), b.ID, b.Store, sess), nil)
}

func (h *DashboardHandler) AdminOverview(w http.ResponseWriter, r *http.Request) {
	b, sess, ok := signedIn(w, r)
	if !ok {
		return
	}

	overview, err := h.service.AdminOverview(r.Context(), b.ID, b.Store, sess)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, overview, nil)
}

func (h *DashboardHandler) OwnerListings(w http.ResponseWriter, r *http.Request) {
	b, sess, ok := signedIn(w, r)
	if !ok {
		return
	}

	state := h.service.OwnerListings(r.Context(), b.ID, b.Store, sess)
	writeSuccess(w, http.StatusOK, state.Data, queryMeta(state, len(state.Data)))
}

func (h *DashboardHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	b, sess, ok := signedIn(w, r)
	if !ok {
		return
	}

	var payload model.ListingInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	hotel, err := h.service.CreateListing(r.Context(), b.ID, b.Store, sess, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, hotel, nil)
}

func (h *DashboardHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	b, sess, ok := signedIn(w, r)
	if !ok {
		return
	}

	var payload model.ListingInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	hotel, err := h.service.UpdateListing(r.Context(), b.ID, b.Store, sess, chi.URLParam(r, "listing_id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, hotel, nil)
}

func (h *DashboardHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	b, sess, ok := signedIn(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteListing(r.Context(), b.ID, b.Store, sess, chi.URLParam(r, "listing_id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "listing_id")}, nil)
}
