package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go-stay-portal/internal/event"
	"go-stay-portal/internal/guard"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/session"
	"go-stay-portal/internal/util"
	"go-stay-portal/pkg/apierror"
)

// SessionWriter is the slice of the session store used by login and logout.
type SessionWriter interface {
	session.Reader
	Write(ctx context.Context, s model.Session) error
	Clear(ctx context.Context) error
}

type AuthService struct {
	upstream Upstream
	bus      event.Bus
	// onLogout releases everything held for a browser.
	onLogout func(browserID string)
}

func NewAuthService(upstream Upstream, bus event.Bus, onLogout func(browserID string)) *AuthService {
	return &AuthService{upstream: upstream, bus: bus, onLogout: onLogout}
}

// Login exchanges credentials for a token upstream and persists the session.
// The upstream message is surfaced on rejection.
func (s *AuthService) Login(ctx context.Context, browserID string, store SessionWriter, req model.LoginRequest) (model.AuthView, error) {
	email := util.NormalizeEmail(req.Email)
	if !util.IsValidEmail(email) {
		return model.AuthView{}, apierror.New("VALIDATION_ERROR", "enter a valid email address", "email", http.StatusBadRequest)
	}
	if req.Password == "" {
		return model.AuthView{}, apierror.New("VALIDATION_ERROR", "password is required", "password", http.StatusBadRequest)
	}

	var result model.LoginResult
	if err := s.upstream.Post(ctx, "/auth/login", model.LoginRequest{Email: email, Password: req.Password}, &result); err != nil {
		return model.AuthView{}, err
	}

	sess := model.Session{
		Token: result.Token,
		User: model.SessionUser{
			ID:        result.User.ID,
			Role:      model.Role(result.User.Role),
			FirstName: result.User.FirstName,
			LastName:  result.User.LastName,
			Email:     result.User.Email,
		},
	}
	if sess.User.ID == "" {
		return model.AuthView{}, apierror.New("UPSTREAM_ERROR", "login response did not include a user", "", http.StatusBadGateway)
	}

	if err := store.Write(ctx, sess); err != nil {
		return model.AuthView{}, fmt.Errorf("login: %w", err)
	}

	// Write normalized the role; read it back so the view matches storage.
	stored, ok := store.Read(ctx)
	if !ok {
		return model.AuthView{}, apierror.New("UNAUTHORIZED", "the sign-in token was rejected", "token", http.StatusUnauthorized)
	}

	slog.InfoContext(ctx, "user signed in", "user_id", stored.User.ID, "role", stored.User.Role)
	if s.bus != nil {
		s.bus.Publish(event.New(event.TypeSessionStarted, browserID, map[string]string{"role": stored.User.Role.String()}))
	}

	return viewFor(stored.User), nil
}

// Logout clears the persisted session and stops everything the browser had
// running. Logging out twice is fine.
func (s *AuthService) Logout(ctx context.Context, browserID string, store SessionWriter) error {
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	if s.onLogout != nil {
		s.onLogout(browserID)
	}
	if s.bus != nil {
		s.bus.Publish(event.New(event.TypeSessionEnded, browserID, nil))
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, reader session.Reader) (model.AuthView, error) {
	sess, ok := reader.Read(ctx)
	if !ok {
		return model.AuthView{}, model.ErrUnauthorized
	}
	return viewFor(sess.User), nil
}

func viewFor(user model.SessionUser) model.AuthView {
	return model.AuthView{User: user, Home: guard.HomeFor(user.Role)}
}
