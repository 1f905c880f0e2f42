// Package guard decides whether the current session may view a page.
package guard

import (
	"context"
	"slices"

	"go-stay-portal/internal/model"
	"go-stay-portal/internal/session"
)

const (
	HomeSuperAdmin = "/admin"
	HomeHotelOwner = "/owner/dashboard"
	HomeDefault    = "/dashboard"
	LoginPath      = "/login"
)

// HomeFor is the landing page of a role.
func HomeFor(role model.Role) string {
	switch role {
	case model.RoleSuperAdmin:
		return HomeSuperAdmin
	case model.RoleHotelOwner:
		return HomeHotelOwner
	default:
		return HomeDefault
	}
}

// Navigator performs the redirect of a denied check.
type Navigator interface {
	Navigate(target string)
}

type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

type Decision struct {
	Allowed  bool
	Session  model.Session
	Redirect string
}

type Guard struct {
	allowed  []model.Role
	redirect string
}

// New builds a guard for the given roles. An empty role set admits any
// authenticated user. Unauthenticated visitors go to redirectTarget, or to
// the login page when it is empty.
func New(allowed []model.Role, redirectTarget string) *Guard {
	if redirectTarget == "" {
		redirectTarget = LoginPath
	}
	return &Guard{allowed: slices.Clone(allowed), redirect: redirectTarget}
}

// LoginTarget is where unauthenticated visitors are sent.
func (g *Guard) LoginTarget() string { return g.redirect }

func (g *Guard) Check(ctx context.Context, reader session.Reader) Decision {
	sess, ok := reader.Read(ctx)
	if !ok {
		return Decision{Redirect: g.redirect}
	}

	if len(g.allowed) > 0 && !slices.Contains(g.allowed, sess.User.Role) {
		return Decision{Session: sess, Redirect: HomeFor(sess.User.Role)}
	}

	return Decision{Allowed: true, Session: sess}
}

// Render runs render exactly once when the check passes. On denial it issues
// exactly one navigation and render is never called.
func (g *Guard) Render(ctx context.Context, reader session.Reader, nav Navigator, render func(model.Session)) Decision {
	decision := g.Check(ctx, reader)
	if !decision.Allowed {
		nav.Navigate(decision.Redirect)
		return decision
	}

	render(decision.Session)
	return decision
}
