package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"go-stay-portal/internal/logger"
	"go-stay-portal/internal/session"
	"go-stay-portal/internal/storage"
)

type contextKey string

const (
	browserContextKey contextKey = "browser"
	sessionContextKey contextKey = "session"
)

// Browser is the per-cookie context: a stable id and the session store
// namespaced to it.
type Browser struct {
	ID    string
	Store *session.Store
}

type SessionOptions struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration
	// Touch is told about every request so idle browsers can be swept.
	Touch func(browserID string)
}

type SessionMiddleware struct {
	kv   storage.KV
	opts SessionOptions
}

func NewSessionMiddleware(kv storage.KV, opts SessionOptions) *SessionMiddleware {
	if opts.CookieName == "" {
		opts.CookieName = "sid"
	}
	return &SessionMiddleware{kv: kv, opts: opts}
}

// Handler attaches a Browser to every request, issuing the cookie on first
// visit.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(m.opts.CookieName); err == nil {
			if parsed, err := uuid.Parse(cookie.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		// refreshed on every request so the cookie expiry slides
		cookie := &http.Cookie{
			Name:     m.opts.CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.opts.Secure,
			SameSite: http.SameSiteLaxMode,
		}
		if m.opts.MaxAge > 0 {
			cookie.MaxAge = int(m.opts.MaxAge.Seconds())
		}
		http.SetCookie(w, cookie)

		if m.opts.Touch != nil {
			m.opts.Touch(id)
		}

		noteBrowser(r.Context(), id)
		ctx := logger.WithSessionID(r.Context(), id)
		browser := Browser{
			ID:    id,
			Store: session.NewStore(m.Namespace(id), session.WithLogger(logger.WithContext(ctx))),
		}
		ctx = context.WithValue(ctx, browserContextKey, browser)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Namespace returns the key space of one browser.
func (m *SessionMiddleware) Namespace(browserID string) storage.KV {
	return storage.Namespace(m.kv, "sid:"+browserID+":")
}

func BrowserFromContext(ctx context.Context) (Browser, bool) {
	browser, ok := ctx.Value(browserContextKey).(Browser)
	return browser, ok
}
