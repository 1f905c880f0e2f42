package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-stay-portal/internal/model"
	"go-stay-portal/internal/refdata"
)

// States and Cities serve the static location lists. Unknown states yield an
// empty list rather than an error.
func States(w http.ResponseWriter, _ *http.Request) {
	states := refdata.States()
	writeSuccess(w, http.StatusOK, states, &model.Meta{Total: len(states)})
}

func Cities(w http.ResponseWriter, r *http.Request) {
	cities, _ := refdata.Cities(chi.URLParam(r, "state"))
	if cities == nil {
		cities = []string{}
	}
	writeSuccess(w, http.StatusOK, cities, &model.Meta{Total: len(cities)})
}
