package domain

import (
	"testing"
	"time"
)

func TestClaimEqualityIsCaseInsensitive(t *testing.T) {
	if !NewRoleClaim("Admin").Equals(Claim{Type: "ROLE", Value: "admin"}) {
		t.Fatalf("claims should compare case-insensitively")
	}
	if NewRoleClaim("admin").Equals(NewRoleClaim("editor")) {
		t.Fatalf("different values must not be equal")
	}
	if NewFirstNameClaim("Ann").Equals(NewLastNameClaim("Ann")) {
		t.Fatalf("different types must not be equal")
	}
}

func TestAccountClaims(t *testing.T) {
	account := &UserAccount{Tenant: "acme"}

	account.AddClaim(NewRoleClaim("admin"))
	account.AddClaim(NewRoleClaim("ADMIN"))
	if len(account.Claims) != 1 {
		t.Fatalf("equal claims must not be added twice, have %d", len(account.Claims))
	}

	if !account.HasClaim(Claim{Type: "role", Value: "Admin"}) {
		t.Fatalf("expected claim to be present")
	}

	account.RemoveClaim(NewRoleClaim("admin"))
	if account.HasClaim(NewRoleClaim("admin")) {
		t.Fatalf("claim should have been removed")
	}
}

func TestAccountLockout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	account := &UserAccount{Tenant: "acme"}

	if account.IsLockedOut(now) {
		t.Fatalf("fresh account must not be locked out")
	}

	account.LockOutUntil(now.Add(15 * time.Minute))
	if !account.IsLockedOut(now) {
		t.Fatalf("account should be locked inside the window")
	}
	if account.IsLockedOut(now.Add(16 * time.Minute)) {
		t.Fatalf("lockout should expire with the window")
	}

	account.ClearLockout(now)
	if account.IsLockedOut(now) {
		t.Fatalf("cleared lockout should not lock the account")
	}
}

func TestAccountIsDeleted(t *testing.T) {
	account := &UserAccount{Tenant: "acme"}
	if account.IsDeleted() {
		t.Fatalf("account without deletion time is not deleted")
	}

	deleted := time.Now().UTC()
	account.DeletionTime = &deleted
	if !account.IsDeleted() {
		t.Fatalf("deletion time marks logical deletion")
	}
}

func TestRequiresTwoFactorAuth(t *testing.T) {
	primary := &Login{Kind: LoginKindEmailPassword}
	second := &Login{Kind: LoginKindPhoneCode, TwoFactor: true}

	if RequiresTwoFactorAuth([]*Login{primary}) {
		t.Fatalf("password-only account does not require a second factor")
	}
	if !RequiresTwoFactorAuth([]*Login{primary, second}) {
		t.Fatalf("a two-factor login makes the account require it")
	}
	if RequiresTwoFactorAuth(nil) {
		t.Fatalf("no logins means no second factor")
	}
}
