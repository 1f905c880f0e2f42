package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	cases := map[string]Role{
		"guest-user":  RoleGuestUser,
		"GUEST_USER":  RoleGuestUser,
		"guestUser":   RoleGuestUser,
		"user":        RoleGuestUser,
		"hotel-owner": RoleHotelOwner,
		"Hotel Owner": RoleHotelOwner,
		"HOTELOWNER":  RoleHotelOwner,
		" owner ":     RoleHotelOwner,
		"super-admin": RoleSuperAdmin,
		"SuperAdmin":  RoleSuperAdmin,
		"super_admin": RoleSuperAdmin,
		"admin":       RoleSuperAdmin,
	}

	for raw, want := range cases {
		got, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "root", "hotel-manager"} {
		_, err := ParseRole(raw)
		require.ErrorIs(t, err, ErrInvalidRole, raw)
	}
}

func TestHotelHelpers(t *testing.T) {
	t.Parallel()

	hotel := Hotel{Rooms: []Room{
		{ID: "deluxe", NightlyRate: 120000},
		{ID: "standard", NightlyRate: 95000},
	}}

	room, ok := hotel.Room("standard")
	require.True(t, ok)
	assert.Equal(t, int64(95000), room.NightlyRate)

	_, ok = hotel.Room("suite")
	assert.False(t, ok)
	assert.Equal(t, int64(95000), hotel.StartingRate())
	assert.Zero(t, Hotel{}.StartingRate())
}

func TestSessionUserDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada Obi", SessionUser{FirstName: "Ada", LastName: "Obi"}.DisplayName())
	assert.Equal(t, "ada@example.com", SessionUser{Email: "ada@example.com"}.DisplayName())
}

func TestHotelFilterMatches(t *testing.T) {
	t.Parallel()

	hotel := Hotel{State: "Lagos", City: "Ikeja", OwnerID: "o1", Rooms: []Room{{NightlyRate: 80000}, {NightlyRate: 150000}}}

	assert.True(t, HotelFilter{}.Matches(hotel))
	assert.True(t, HotelFilter{State: "lagos", City: "IKEJA"}.Matches(hotel))
	assert.True(t, HotelFilter{MinPrice: 50000, MaxPrice: 90000}.Matches(hotel))
	assert.False(t, HotelFilter{MinPrice: 90000}.Matches(hotel))
	assert.False(t, HotelFilter{MaxPrice: 70000}.Matches(hotel))
	assert.False(t, HotelFilter{State: "Abuja"}.Matches(hotel))
	assert.False(t, HotelFilter{OwnerID: "o2"}.Matches(hotel))
}
