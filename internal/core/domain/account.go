package domain

import (
	"strings"
	"time"
)

// Well-known claim types.
const (
	ClaimTypeRole      = "role"
	ClaimTypeFirstName = "first_name"
	ClaimTypeLastName  = "last_name"
)

// Claim is a typed key/value fact asserted about an account.
type Claim struct {
	Type  string
	Value string
}

// NewRoleClaim builds a role claim.
func NewRoleClaim(role string) Claim {
	return Claim{Type: ClaimTypeRole, Value: role}
}

// NewFirstNameClaim builds a first-name claim.
func NewFirstNameClaim(name string) Claim {
	return Claim{Type: ClaimTypeFirstName, Value: name}
}

// NewLastNameClaim builds a last-name claim.
func NewLastNameClaim(name string) Claim {
	return Claim{Type: ClaimTypeLastName, Value: name}
}

// Equals compares claims case-insensitively on both type and value.
func (c Claim) Equals(other Claim) bool {
	return strings.EqualFold(c.Type, other.Type) && strings.EqualFold(c.Value, other.Value)
}

// UserAccount is the tenant-scoped identity owning logins and claims.
// Logins are stored separately and reference the account by ID.
type UserAccount struct {
	ID             int64
	Tenant         string
	DisplayName    string
	CreationTime   time.Time
	LastUpdateTime time.Time
	DeletionTime   *time.Time
	LockoutEndTime *time.Time
	Claims         []Claim
}

// IsDeleted reports whether the account has been logically deleted.
func (a *UserAccount) IsDeleted() bool {
	return a.DeletionTime != nil
}

// IsLockedOut reports whether the account is inside an active lockout window.
func (a *UserAccount) IsLockedOut(now time.Time) bool {
	return a.LockoutEndTime != nil && now.Before(*a.LockoutEndTime)
}

// LockOutUntil puts the account into a lockout window ending at the given time.
func (a *UserAccount) LockOutUntil(end time.Time) {
	a.LockoutEndTime = &end
	a.LastUpdateTime = end
}

// ClearLockout ends any active lockout window.
func (a *UserAccount) ClearLockout(now time.Time) {
	a.LockoutEndTime = nil
	a.LastUpdateTime = now
}

// HasClaim reports whether the account carries a claim equal to the given one.
func (a *UserAccount) HasClaim(claim Claim) bool {
	for _, existing := range a.Claims {
		if existing.Equals(claim) {
			return true
		}
	}
	return false
}

// AddClaim appends a claim unless an equal one already exists.
func (a *UserAccount) AddClaim(claim Claim) {
	if a.HasClaim(claim) {
		return
	}
	a.Claims = append(a.Claims, claim)
}

// RemoveClaim drops every claim equal to the given one.
func (a *UserAccount) RemoveClaim(claim Claim) {
	kept := a.Claims[:0]
	for _, existing := range a.Claims {
		if !existing.Equals(claim) {
			kept = append(kept, existing)
		}
	}
	a.Claims = kept
}

// RequiresTwoFactorAuth reports whether any of the account's logins acts as a second factor.
func RequiresTwoFactorAuth(logins []*Login) bool {
	for _, login := range logins {
		if login != nil && login.TwoFactor {
			return true
		}
	}
	return false
}
