package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	superAdminID  = int64(111)
	adminID       = int64(222)
	secondAdminID = int64(333)
	regularID     = int64(444)
)

// newTestAuth seeds a super admin, two admins and a regular user.
func newTestAuth(t *testing.T) (*AuthManager, *Store) {
	store, _ := newTestStore(t)

	for _, seed := range []struct {
		id    int64
		admin bool
	}{
		{superAdminID, true},
		{adminID, true},
		{secondAdminID, true},
		{regularID, false},
	} {
		if _, err := store.UpsertUser(seed.id, "", "", "", seed.admin); err != nil {
			t.Fatalf("Failed to seed user %d: %v", seed.id, err)
		}
	}

	return NewAuthManager(store, superAdminID), store
}

func TestRoleChecks(t *testing.T) {
	auth, _ := newTestAuth(t)

	assert.True(t, auth.IsSuperAdmin(superAdminID))
	assert.False(t, auth.IsSuperAdmin(adminID))

	assert.True(t, auth.IsAdmin(superAdminID))
	assert.True(t, auth.IsAdmin(adminID))
	assert.False(t, auth.IsAdmin(regularID))
	assert.False(t, auth.IsAdmin(999), "unknown users hold no roles")

	assert.False(t, auth.IsBanned(regularID))
	assert.False(t, auth.IsBanned(999))
}

func TestSuperAdminImmunity(t *testing.T) {
	auth, store := newTestAuth(t)

	// Every mutation path aimed at the super admin must refuse.
	assert.ErrorIs(t, auth.BanUser(adminID, superAdminID), ErrProtectedUser)
	assert.ErrorIs(t, auth.BanUser(superAdminID, superAdminID), ErrProtectedUser)
	assert.ErrorIs(t, auth.DemoteUser(adminID, superAdminID), ErrProtectedUser)
	assert.ErrorIs(t, auth.DemoteUser(superAdminID, superAdminID), ErrProtectedUser)

	user, err := store.GetUser(superAdminID)
	assert.NoError(t, err)
	assert.False(t, user.IsBanned)
	assert.True(t, user.IsAdmin)

	assert.False(t, auth.IsBanned(superAdminID))
	assert.True(t, auth.IsAdmin(superAdminID))
}

func TestCanBanPolicy(t *testing.T) {
	auth, _ := newTestAuth(t)

	tests := []struct {
		name    string
		actor   int64
		target  int64
		allowed bool
	}{
		{"Admin bans regular user", adminID, regularID, true},
		{"Super admin bans regular user", superAdminID, regularID, true},
		{"Regular user bans anyone", regularID, adminID, false},
		{"Admin bans another admin", adminID, secondAdminID, false},
		{"Super admin bans an admin", superAdminID, adminID, true},
		{"Admin bans super admin", adminID, superAdminID, false},
		{"Super admin bans itself", superAdminID, superAdminID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, auth.CanBan(tt.actor, tt.target))
		})
	}
}

func TestBanUnban(t *testing.T) {
	auth, store := newTestAuth(t)

	assert.NoError(t, auth.BanUser(adminID, regularID))
	assert.True(t, auth.IsBanned(regularID))

	// A non-admin cannot lift the ban.
	assert.ErrorIs(t, auth.UnbanUser(regularID, regularID), ErrNotAuthorized)

	assert.NoError(t, auth.UnbanUser(adminID, regularID))
	assert.False(t, auth.IsBanned(regularID))

	// An admin cannot ban a peer admin; the super admin can.
	assert.ErrorIs(t, auth.BanUser(adminID, secondAdminID), ErrNotAuthorized)
	assert.NoError(t, auth.BanUser(superAdminID, secondAdminID))

	user, err := store.GetUser(secondAdminID)
	assert.NoError(t, err)
	assert.True(t, user.IsBanned)
}

func TestPromoteDemote(t *testing.T) {
	auth, store := newTestAuth(t)

	// Any admin may promote.
	assert.NoError(t, auth.PromoteUser(adminID, regularID))
	user, err := store.GetUser(regularID)
	assert.NoError(t, err)
	assert.True(t, user.IsAdmin)

	// Only the super admin may demote.
	assert.ErrorIs(t, auth.DemoteUser(adminID, regularID), ErrNotAuthorized)
	assert.NoError(t, auth.DemoteUser(superAdminID, regularID))

	user, err = store.GetUser(regularID)
	assert.NoError(t, err)
	assert.False(t, user.IsAdmin)

	// A regular user may not promote.
	assert.ErrorIs(t, auth.PromoteUser(regularID, regularID), ErrNotAuthorized)
}

func TestRoleMutations_UnknownTarget(t *testing.T) {
	auth, _ := newTestAuth(t)

	assert.ErrorIs(t, auth.BanUser(adminID, 999), ErrUserNotFound)
	assert.ErrorIs(t, auth.PromoteUser(adminID, 999), ErrUserNotFound)
}
