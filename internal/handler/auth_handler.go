package handler

import (
	"net/http"

	"go-stay-portal/internal/guard"
	"go-stay-portal/internal/middleware"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	b, ok := browser(w, r)
	if !ok {
		return
	}

	var payload model.LoginRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	view, err := h.service.Login(r.Context(), b.ID, b.Store, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	b, ok := browser(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), b.ID, b.Store); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"redirect": guard.LoginPath}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	b, ok := browser(w, r)
	if !ok {
		return
	}

	view, err := h.service.Me(r.Context(), b.Store)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

// CSRFToken hands the form token to pages that post urlencoded forms.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"csrfToken": middleware.CSRFToken(r)}, nil)
}
