package middleware

import (
	"context"
	"net/http"

	"go-stay-portal/internal/guard"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/session"
)

// RequirePage runs the access guard on every request. A denied request is
// answered with 303 and the redirect target; an allowed one carries the
// session in its context.
func RequirePage(loginPath string, roles ...model.Role) func(http.Handler) http.Handler {
	g := guard.New(roles, loginPath)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			browser, ok := BrowserFromContext(r.Context())
			var reader session.Reader = anonymous{}
			if ok {
				reader = browser.Store
			}

			nav := guard.NavigatorFunc(func(target string) {
				// the login page is only ever the target for anonymous visitors
				writeRedirect(w, target, target != g.LoginTarget())
			})
			g.Render(r.Context(), reader, nav, func(s model.Session) {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, s)))
			})
		})
	}
}

func SessionFromContext(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(model.Session)
	return s, ok
}

type anonymous struct{}

func (anonymous) Read(context.Context) (model.Session, bool) { return model.Session{}, false }

func writeRedirect(w http.ResponseWriter, target string, signedIn bool) {
	w.Header().Set("Location", target)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusSeeOther)

	code, message := "UNAUTHORIZED", "authentication required"
	if signedIn {
		code, message = "FORBIDDEN", "insufficient permissions"
	}

	_ = jsonEncode(w, model.APIResponse{
		Success:  false,
		Redirect: target,
		Error:    &model.APIError{Code: code, Message: message},
	})
}
