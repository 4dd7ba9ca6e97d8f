package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/infra/mail"
	"github.com/arklim/social-platform-membership/internal/infra/security"
)

func newVerifiedEmailAccount(t *testing.T, f *membershipFixture, email string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.accounts.CreateEmailAccount(ctx, "app", email, "Str0ng!Pass", "User"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := f.verification.VerifyLoginWithCode(ctx, "app", "fixture-code"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestRequestResetIssuesAndDeliversCode(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)
	newVerifiedEmailAccount(t, f, "user@example.com")
	f.email.sent = nil
	f.issuer.code = "reset-code"

	result, err := f.resets.RequestResetByEmail(ctx, "app", "user@example.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if !result.Successful() {
		t.Fatalf("expected reset_code_issued, got %s", result.Result)
	}

	login, err := f.store.LoginByEmail(ctx, "app", "user@example.com")
	if err != nil {
		t.Fatalf("load login: %v", err)
	}
	if !login.Password.IsInResetProcess(testTime) {
		t.Fatalf("expected an open reset window")
	}
	if login.Password.ResetLifetime != time.Hour {
		t.Fatalf("expected configured lifetime, got %s", login.Password.ResetLifetime)
	}
	// Only the keyed hash is stored.
	if *login.Password.ResetCodeHash == "reset-code" {
		t.Fatalf("plaintext code must not be persisted")
	}

	if len(f.email.sent) != 1 || !strings.Contains(f.email.sent[0].HTML, "reset-code") {
		t.Fatalf("expected the reset code to be emailed")
	}
	if len(f.events.resetRequested) != 1 {
		t.Fatalf("expected one reset requested event")
	}
	if strings.Contains(f.events.resetRequested[0].MaskedDestination, "user@example.com") {
		t.Fatalf("event destination must be masked")
	}
}

func TestRequestResetUnknownLogin(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	result, err := f.resets.RequestResetByEmail(ctx, "app", "ghost@example.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if result.Result != domain.PasswordResetRequestNonExistantLogin {
		t.Fatalf("expected non_existant_login, got %s", result.Result)
	}

	events := f.store.Events()
	if len(events) != 1 || events[0].Kind != domain.SecurityEventPasswordResetAttempt {
		t.Fatalf("the miss must still be recorded")
	}
}

func TestRequestResetUnverifiedLogin(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)
	if _, err := f.accounts.CreateEmailAccount(ctx, "app", "fresh@example.com", "Str0ng!Pass", "User"); err != nil {
		t.Fatalf("create account: %v", err)
	}

	result, err := f.resets.RequestResetByEmail(ctx, "app", "fresh@example.com")
	if err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if result.Result != domain.PasswordResetRequestLoginNotVerified {
		t.Fatalf("expected login_not_verified, got %s", result.Result)
	}
}

func TestFinishResetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)
	newVerifiedEmailAccount(t, f, "user@example.com")
	f.issuer.code = "reset-code"

	if _, err := f.resets.RequestResetByEmail(ctx, "app", "user@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}

	result, err := f.resets.FinishResetWithCode(ctx, "app", "reset-code", "N3w!Password")
	if err != nil {
		t.Fatalf("finish reset: %v", err)
	}
	if !result.Successful() {
		t.Fatalf("expected password_reset, got %s", result.Result)
	}

	login, err := f.store.LoginByEmail(ctx, "app", "user@example.com")
	if err != nil {
		t.Fatalf("load login: %v", err)
	}
	if login.Password.IsInResetProcess(testTime) {
		t.Fatalf("a successful reset clears the reset state")
	}

	auth, err := f.auth.AuthenticateWithEmail(ctx, "app", "user@example.com", "N3w!Password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !auth.Successful() {
		t.Fatalf("new password must authenticate, got %s", auth.Result)
	}
	auth, err = f.auth.AuthenticateWithEmail(ctx, "app", "user@example.com", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("authenticate old password: %v", err)
	}
	if auth.Successful() {
		t.Fatalf("old password must stop working")
	}

	// Request and finish halves were correlated into one record.
	resetEvents := 0
	for _, event := range f.store.Events() {
		if event.Kind == domain.SecurityEventPasswordResetAttempt {
			resetEvents++
			if !event.Finished() || !event.Successful() {
				t.Fatalf("expected a finished, successful reset event")
			}
		}
	}
	if resetEvents != 1 {
		t.Fatalf("expected one correlated reset event, got %d", resetEvents)
	}

	if len(f.events.changed) != 1 {
		t.Fatalf("expected one password changed event")
	}
}

func TestFinishResetExpiredCode(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)
	newVerifiedEmailAccount(t, f, "user@example.com")
	f.issuer.code = "reset-code"

	current := testTime
	resets := NewPasswordResetService(f.cfg, f.store, nil, f.events, f.email, mail.NewDefaultMessageFormatter(), f.hasher, f.validator, f.issuer, security.ResetCodeHasher{}, nil, zaptest.NewLogger(t))
	resets.WithClock(func() time.Time { return current })

	if _, err := resets.RequestResetByEmail(ctx, "app", "user@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}

	current = testTime.Add(2 * time.Hour)

	result, err := resets.FinishResetWithCode(ctx, "app", "reset-code", "N3w!Password")
	if err != nil {
		t.Fatalf("finish reset: %v", err)
	}
	if result.Result != domain.PasswordResetFinishInvalidCode {
		t.Fatalf("expected invalid_code for an expired window, got %s", result.Result)
	}
}

func TestFinishResetInvalidPassword(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)
	newVerifiedEmailAccount(t, f, "user@example.com")
	f.issuer.code = "reset-code"

	if _, err := f.resets.RequestResetByEmail(ctx, "app", "user@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}

	result, err := f.resets.FinishResetWithCode(ctx, "app", "reset-code", "weak")
	if err != nil {
		t.Fatalf("finish reset: %v", err)
	}
	if result.Result != domain.PasswordResetFinishInvalidPassword {
		t.Fatalf("expected invalid_password, got %s", result.Result)
	}
	if result.SetPassword.Result != domain.SetPasswordTooShort {
		t.Fatalf("expected too_short, got %s", result.SetPassword.Result)
	}

	// The window stays open so the user can retry with a better password.
	login, err := f.store.LoginByEmail(ctx, "app", "user@example.com")
	if err != nil {
		t.Fatalf("load login: %v", err)
	}
	if !login.Password.IsInResetProcess(testTime) {
		t.Fatalf("reset state must survive a rejected password")
	}
}

func TestFinishResetUnknownCodeCreatesOrphan(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	result, err := f.resets.FinishResetWithCode(ctx, "app", "no-such-code", "N3w!Password")
	if err != nil {
		t.Fatalf("finish reset: %v", err)
	}
	if result.Result != domain.PasswordResetFinishInvalidCode {
		t.Fatalf("expected invalid_code, got %s", result.Result)
	}

	events := f.store.Events()
	if len(events) != 1 {
		t.Fatalf("expected one orphan event, got %d", len(events))
	}
	event := events[0]
	if event.IdentificationType != domain.IdentificationResetCode {
		t.Fatalf("orphan finish is keyed by the attempted code hash")
	}
	if event.Open() || event.Successful() {
		t.Fatalf("orphan finish must be closed and unsuccessful")
	}
}
