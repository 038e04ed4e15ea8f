package main

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthorized means the acting user lacks the required role.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrProtectedUser means the target is the super admin, who can never
	// be banned or demoted.
	ErrProtectedUser = errors.New("user is protected")
)

// AuthManager answers role questions and applies role changes. The super
// admin identity is fixed at startup; the flags on its row are never
// consulted, so no sequence of admin actions can strip its privileges.
// All checks are reads against the store; the mutating methods re-check
// policy themselves so callers cannot skip it.
type AuthManager struct {
	store        *Store
	superAdminID int64
}

func NewAuthManager(store *Store, superAdminID int64) *AuthManager {
	return &AuthManager{store: store, superAdminID: superAdminID}
}

func (a *AuthManager) IsSuperAdmin(userID int64) bool {
	return userID == a.superAdminID
}

// IsAdmin reports whether the user holds the admin role. Lookup failures
// are treated as "not admin" so a storage hiccup never grants privilege.
func (a *AuthManager) IsAdmin(userID int64) bool {
	if a.IsSuperAdmin(userID) {
		return true
	}
	user, err := a.store.GetUser(userID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			ErrorLogger.Printf("Error checking admin status for user %d: %v", userID, err)
		}
		return false
	}
	return user.IsAdmin
}

// IsBanned reports whether the user is soft-banned. The super admin is
// never banned regardless of what the row says. Lookup failures default to
// "not banned" so a storage hiccup does not lock everyone out.
func (a *AuthManager) IsBanned(userID int64) bool {
	if a.IsSuperAdmin(userID) {
		return false
	}
	user, err := a.store.GetUser(userID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			ErrorLogger.Printf("Error checking ban status for user %d: %v", userID, err)
		}
		return false
	}
	return user.IsBanned
}

// CanPromote reports whether actor may grant target the admin role.
// Any admin may promote.
func (a *AuthManager) CanPromote(actorID, targetID int64) bool {
	return a.IsAdmin(actorID)
}

// CanDemote reports whether actor may strip target's admin role. Only the
// super admin demotes, and never itself.
func (a *AuthManager) CanDemote(actorID, targetID int64) bool {
	return a.IsSuperAdmin(actorID) && !a.IsSuperAdmin(targetID)
}

// CanBan reports whether actor may ban target. Admins ban normal users;
// banning another admin takes the super admin; the super admin is never a
// valid target.
func (a *AuthManager) CanBan(actorID, targetID int64) bool {
	if !a.IsAdmin(actorID) {
		return false
	}
	if a.IsSuperAdmin(targetID) {
		return false
	}
	if a.IsAdmin(targetID) {
		return a.IsSuperAdmin(actorID)
	}
	return true
}

// BanUser soft-bans target on behalf of actor.
func (a *AuthManager) BanUser(actorID, targetID int64) error {
	if a.IsSuperAdmin(targetID) {
		a.audit(actorID, "ban", targetID, "refused: target is super admin")
		return ErrProtectedUser
	}
	if !a.CanBan(actorID, targetID) {
		a.audit(actorID, "ban", targetID, "refused: insufficient privileges")
		return ErrNotAuthorized
	}
	if err := a.store.SetUserBanned(targetID, true); err != nil {
		return fmt.Errorf("ban user %d: %w", targetID, err)
	}
	a.audit(actorID, "ban", targetID, "ok")
	return nil
}

// UnbanUser lifts a soft ban on behalf of actor.
func (a *AuthManager) UnbanUser(actorID, targetID int64) error {
	if !a.IsAdmin(actorID) {
		a.audit(actorID, "unban", targetID, "refused: insufficient privileges")
		return ErrNotAuthorized
	}
	if err := a.store.SetUserBanned(targetID, false); err != nil {
		return fmt.Errorf("unban user %d: %w", targetID, err)
	}
	a.audit(actorID, "unban", targetID, "ok")
	return nil
}

// PromoteUser grants target the admin role on behalf of actor.
func (a *AuthManager) PromoteUser(actorID, targetID int64) error {
	if !a.CanPromote(actorID, targetID) {
		a.audit(actorID, "promote", targetID, "refused: insufficient privileges")
		return ErrNotAuthorized
	}
	if err := a.store.SetUserAdmin(targetID, true); err != nil {
		return fmt.Errorf("promote user %d: %w", targetID, err)
	}
	a.audit(actorID, "promote", targetID, "ok")
	return nil
}

// DemoteUser strips target's admin role on behalf of actor.
func (a *AuthManager) DemoteUser(actorID, targetID int64) error {
	if a.IsSuperAdmin(targetID) {
		a.audit(actorID, "demote", targetID, "refused: target is super admin")
		return ErrProtectedUser
	}
	if !a.CanDemote(actorID, targetID) {
		a.audit(actorID, "demote", targetID, "refused: insufficient privileges")
		return ErrNotAuthorized
	}
	if err := a.store.SetUserAdmin(targetID, false); err != nil {
		return fmt.Errorf("demote user %d: %w", targetID, err)
	}
	a.audit(actorID, "demote", targetID, "ok")
	return nil
}

// audit records every role mutation attempt, granted or refused.
func (a *AuthManager) audit(actorID int64, action string, targetID int64, outcome string) {
	InfoLogger.Printf("audit: actor=%d action=%s target=%d outcome=%s", actorID, action, targetID, outcome)
}
