package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"go-stay-portal/internal/logger"
)

// Recovery turns a handler panic into a 500 envelope. http.ErrAbortHandler is
// re-raised so net/http can drop the connection quietly.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(recovered)
			}

			logger.WithContext(r.Context()).Error("panic recovered",
				"method", r.Method,
				"path", r.URL.Path,
				"error", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
			writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong on our side. Please try again.")
		}()

		next.ServeHTTP(w, r)
	})
}
