package usecase

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-membership/internal/core/domain"
)

func TestCreateEmailAccountSendsCode(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	result, err := f.accounts.CreateEmailAccount(ctx, "app", "new@example.com", "Str0ng!Pass", "New User")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if result.Result != domain.AccountCreatedAndSentCode {
		t.Fatalf("expected created_and_sent_code, got %s", result.Result)
	}
	if result.AccountID == 0 || result.LoginID == 0 {
		t.Fatalf("expected assigned ids, got account=%d login=%d", result.AccountID, result.LoginID)
	}

	login, err := f.store.LoginByEmail(ctx, "app", "new@example.com")
	if err != nil {
		t.Fatalf("load login: %v", err)
	}
	if login.Verified {
		t.Fatalf("new login must start unverified")
	}
	if login.VerificationCode == nil || *login.VerificationCode != "fixture-code" {
		t.Fatalf("expected outstanding verification code")
	}
	if !login.HasPassword() {
		t.Fatalf("expected password to be set")
	}

	if len(f.email.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(f.email.sent))
	}
	if !strings.Contains(f.email.sent[0].HTML, "fixture-code") {
		t.Fatalf("verification email must carry the code")
	}

	events := f.store.Events()
	if len(events) != 1 || events[0].Kind != domain.SecurityEventVerificationAttempt {
		t.Fatalf("expected one verification request event")
	}
	if !events[0].Open() {
		t.Fatalf("request half must be open until the code is redeemed")
	}

	if len(f.events.created) != 1 {
		t.Fatalf("expected one account created event, got %d", len(f.events.created))
	}
	if !f.events.created[0].CodeSent {
		t.Fatalf("expected code_sent flag on the event")
	}
}

func TestCreateEmailAccountInvalidEmail(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	result, err := f.accounts.CreateEmailAccount(ctx, "app", "not-an-email", "Str0ng!Pass", "User")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if result.Result != domain.AccountCreationInvalidEmail {
		t.Fatalf("expected invalid_email, got %s", result.Result)
	}
	if len(f.events.created) != 0 {
		t.Fatalf("no event should be published for a rejected request")
	}
}

func TestCreateEmailAccountInvalidPassword(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	result, err := f.accounts.CreateEmailAccount(ctx, "app", "short@example.com", "short", "User")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if result.Result != domain.AccountCreationInvalidPassword {
		t.Fatalf("expected invalid_password, got %s", result.Result)
	}
	if result.SetPassword.Result != domain.SetPasswordTooShort {
		t.Fatalf("expected too_short, got %s", result.SetPassword.Result)
	}

	// Nothing was persisted for the rejected request.
	if _, err := f.store.LoginByEmail(ctx, "app", "short@example.com"); err == nil {
		t.Fatalf("expected no login to be created")
	}
}

func TestCreateEmailAccountDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)
	f.email.err = context.DeadlineExceeded

	result, err := f.accounts.CreateEmailAccount(ctx, "app", "offline@example.com", "Str0ng!Pass", "User")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if result.Result != domain.AccountCreatedButCodeNotSent {
		t.Fatalf("expected created_but_code_not_sent, got %s", result.Result)
	}
	if !result.Successful() {
		t.Fatalf("account creation still succeeds when delivery fails")
	}

	if _, err := f.store.LoginByEmail(ctx, "app", "offline@example.com"); err != nil {
		t.Fatalf("login must exist despite delivery failure: %v", err)
	}
}

func TestCreateUsernameAccountVerifiedOnCreation(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	result, err := f.accounts.CreateUsernameAccount(ctx, "app", "gamer_42", "Str0ng!Pass", "Gamer")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if !result.Successful() {
		t.Fatalf("expected success, got %s", result.Result)
	}

	login, err := f.store.LoginByUsername(ctx, "app", "gamer_42")
	if err != nil {
		t.Fatalf("load login: %v", err)
	}
	if !login.Verified {
		t.Fatalf("username logins are verified on creation")
	}

	auth, err := f.auth.AuthenticateWithUsername(ctx, "app", "gamer_42", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !auth.Successful() {
		t.Fatalf("expected valid credentials, got %s", auth.Result)
	}
}

func TestCreateUsernameAccountInvalidUsername(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	result, err := f.accounts.CreateUsernameAccount(ctx, "app", "!!", "Str0ng!Pass", "User")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if result.Result != domain.AccountCreationInvalidUsername {
		t.Fatalf("expected invalid_username, got %s", result.Result)
	}
}

func TestSetEmailAddress(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	if _, err := f.accounts.CreateEmailAccount(ctx, "app", "old@example.com", "Str0ng!Pass", "User"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := f.verification.VerifyLoginWithCode(ctx, "app", "fixture-code"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	result, err := f.accounts.SetEmailAddress(ctx, "app", "old@example.com", "bad-address")
	if err != nil {
		t.Fatalf("set email: %v", err)
	}
	if result.Result != domain.SetEmailNotValid {
		t.Fatalf("expected not_valid_email, got %s", result.Result)
	}

	result, err = f.accounts.SetEmailAddress(ctx, "app", "old@example.com", "new@example.com")
	if err != nil {
		t.Fatalf("set email: %v", err)
	}
	if result.Result != domain.SetEmailValid {
		t.Fatalf("expected valid_email, got %s", result.Result)
	}

	login, err := f.store.LoginByEmail(ctx, "app", "new@example.com")
	if err != nil {
		t.Fatalf("load login: %v", err)
	}
	if login.Verified {
		t.Fatalf("changing the address must reset verification")
	}
}

func TestSetEmailAddressInactiveLogin(t *testing.T) {
	ctx := context.Background()
	f := newMembershipFixture(zaptest.NewLogger(t), testTime)

	if _, err := f.accounts.CreateEmailAccount(ctx, "app", "gone@example.com", "Str0ng!Pass", "User"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	login, err := f.store.LoginByEmail(ctx, "app", "gone@example.com")
	if err != nil {
		t.Fatalf("load login: %v", err)
	}
	login.Active = false
	if err := f.store.UpdateLogin(ctx, login); err != nil {
		t.Fatalf("update login: %v", err)
	}

	result, err := f.accounts.SetEmailAddress(ctx, "app", "gone@example.com", "new@example.com")
	if err != nil {
		t.Fatalf("set email: %v", err)
	}
	if result.Result != domain.SetEmailLoginNotActive {
		t.Fatalf("expected login_not_active, got %s", result.Result)
	}
}
