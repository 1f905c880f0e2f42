package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-stay-portal/internal/model"
	"go-stay-portal/internal/pricing"
	"go-stay-portal/internal/service"
)

type HotelHandler struct {
	catalog *service.CatalogService
}

func NewHotelHandler(catalog *service.CatalogService) *HotelHandler {
	return &HotelHandler{catalog: catalog}
}

func (h *HotelHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	minPrice, err := parseInt64("min_price", params.Get("min_price"))
	if err != nil {
		writeError(w, err)
		return
	}
	maxPrice, err := parseInt64("max_price", params.Get("max_price"))
	if err != nil {
		writeError(w, err)
		return
	}

	state, err := h.catalog.Browse(r.Context(), model.HotelFilter{
		State:    strings.TrimSpace(params.Get("state")),
		City:     strings.TrimSpace(params.Get("city")),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, state.Data, queryMeta(state, len(state.Data)))
}

func (h *HotelHandler) Get(w http.ResponseWriter, r *http.Request) {
	hotel, err := h.catalog.Hotel(r.Context(), chi.URLParam(r, "hotel_id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, hotel, nil)
}

func (h *HotelHandler) Quote(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	from, err := parseDay("from", params.Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseDay("to", params.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}

	quote, err := h.catalog.Quote(r.Context(), chi.URLParam(r, "hotel_id"), params.Get("room"), pricing.DateRange{From: from, To: to})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, quote, nil)
}
