package model

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleGuestUser  Role = "guest-user"
	RoleHotelOwner Role = "hotel-owner"
	RoleSuperAdmin Role = "super-admin"
)

var roleAliases = map[string]Role{
	"guestuser":  RoleGuestUser,
	"guest":      RoleGuestUser,
	"user":       RoleGuestUser,
	"hotelowner": RoleHotelOwner,
	"owner":      RoleHotelOwner,
	"superadmin": RoleSuperAdmin,
	"admin":      RoleSuperAdmin,
}

// ParseRole is the only way a raw role string becomes a Role. Upstream
// payloads mix casings and separators ("HOTEL_OWNER", "hotelOwner",
// "Hotel Owner"), so both are stripped before lookup.
func ParseRole(raw string) (Role, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ', '.':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(raw)))

	role, ok := roleAliases[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidRole, raw)
	}
	return role, nil
}

func (r Role) String() string { return string(r) }

type SessionUser struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (u SessionUser) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Session is the locally persisted proof of authentication plus the cached
// identity that came with it.
type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is what the upstream auth endpoint returns. Role arrives as a
// free-form string and is normalized at the session boundary.
type LoginResult struct {
	Token string `json:"token"`
	User  struct {
		ID        string `json:"id"`
		Role      string `json:"role"`
		FirstName string `json:"firstName,omitempty"`
		LastName  string `json:"lastName,omitempty"`
		Email     string `json:"email,omitempty"`
	} `json:"user"`
}

type AuthView struct {
	User SessionUser `json:"user"`
	Home string      `json:"home"`
}
