// Package session persists the authenticated identity of one browser.
//
// Read never fails: a token that does not decode into a three-part signed
// structure, an expired token, or an unreadable user record all read as "no
// session" and the persisted keys are removed so the next read is cheap.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"go-stay-portal/internal/model"
	"go-stay-portal/internal/storage"
)

const (
	tokenKey = "token"
	userKey  = "user"
)

var errExpired = errors.New("token expired")

// Reader is the read side consumed by the access guard and personalization.
type Reader interface {
	Read(ctx context.Context) (model.Session, bool)
}

type Store struct {
	kv     storage.KV
	now    func() time.Time
	parser *jwt.Parser
	logger *slog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		now:    time.Now,
		parser: jwt.NewParser(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Read(ctx context.Context) (model.Session, bool) {
	token, ok, err := s.kv.Get(ctx, tokenKey)
	if err != nil {
		s.logger.WarnContext(ctx, "session read failed", "error", err)
		return model.Session{}, false
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		s.dropOrphanUser(ctx)
		return model.Session{}, false
	}

	if err := s.checkToken(token); err != nil {
		s.heal(ctx, err)
		return model.Session{}, false
	}

	rawUser, ok, err := s.kv.Get(ctx, userKey)
	if err != nil {
		s.logger.WarnContext(ctx, "session read failed", "error", err)
		return model.Session{}, false
	}
	if !ok {
		s.heal(ctx, fmt.Errorf("user record missing"))
		return model.Session{}, false
	}

	user, err := decodeUser(rawUser)
	if err != nil {
		s.heal(ctx, err)
		return model.Session{}, false
	}

	return model.Session{Token: token, User: user}, true
}

// Write persists token and user in one SetMany call. The role is normalized
// before anything is stored.
func (s *Store) Write(ctx context.Context, session model.Session) error {
	if strings.TrimSpace(session.Token) == "" {
		return fmt.Errorf("%w: token is required", model.ErrInvalidInput)
	}

	role, err := model.ParseRole(string(session.User.Role))
	if err != nil {
		return err
	}
	session.User.Role = role

	encoded, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	if err := s.kv.SetMany(ctx, map[string]string{
		tokenKey: session.Token,
		userKey:  string(encoded),
	}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, tokenKey, userKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the bearer token of a valid session, or "".
func (s *Store) Token(ctx context.Context) string {
	session, ok := s.Read(ctx)
	if !ok {
		return ""
	}
	return session.Token
}

func (s *Store) checkToken(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("malformed token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("malformed token expiry: %w", err)
	}
	if exp != nil && !exp.After(s.now()) {
		return errExpired
	}
	return nil
}

func (s *Store) heal(ctx context.Context, reason error) {
	s.logger.InfoContext(ctx, "discarding persisted session", "reason", reason.Error())
	if err := s.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "session clear failed", "error", err)
	}
}

func (s *Store) dropOrphanUser(ctx context.Context) {
	if _, ok, err := s.kv.Get(ctx, userKey); err == nil && ok {
		_ = s.kv.Delete(ctx, userKey)
	}
}

func decodeUser(raw string) (model.SessionUser, error) {
	var stored struct {
		ID        string `json:"id"`
		Role      string `json:"role"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return model.SessionUser{}, fmt.Errorf("corrupted user record: %w", err)
	}
	if strings.TrimSpace(stored.ID) == "" {
		return model.SessionUser{}, fmt.Errorf("corrupted user record: missing id")
	}

	role, err := model.ParseRole(stored.Role)
	if err != nil {
		return model.SessionUser{}, err
	}

	return model.SessionUser{
		ID:        stored.ID,
		Role:      role,
		FirstName: stored.FirstName,
		LastName:  stored.LastName,
		Email:     stored.Email,
	}, nil
}
