package domain

import (
	"bytes"
	"testing"
	"time"
)

type fixedCodeIssuer struct {
	code string
	err  error
}

func (f fixedCodeIssuer) IssueCode() (string, error) {
	return f.code, f.err
}

type fakeCodeHasher struct{}

func (fakeCodeHasher) HashCode(code string) string {
	return "hashed:" + code
}

type fakePasswordHasher struct{}

func (fakePasswordHasher) NewSalt() ([]byte, error) {
	return []byte("salt"), nil
}

func (fakePasswordHasher) Hash(password string, salt []byte, iterations int) []byte {
	return []byte(password + ":" + string(salt))
}

func (fakePasswordHasher) Iterations(time.Time) int {
	return 128000
}

type acceptAllValidator struct{}

func (acceptAllValidator) Validate(string) SetPasswordResultType {
	return SetPasswordSetToNew
}

type rejectValidator struct {
	outcome SetPasswordResultType
}

func (r rejectValidator) Validate(string) SetPasswordResultType {
	return r.outcome
}

func newActiveVerifiedLogin() *Login {
	return &Login{
		ID:                   1,
		AccountID:            10,
		Tenant:               "acme",
		Kind:                 LoginKindEmailPassword,
		Active:               true,
		Verified:             true,
		RequiresVerification: true,
		EmailAddress:         "u@test.com",
	}
}

func TestRequestVerificationCodeOverwritesOutstandingCode(t *testing.T) {
	login := newActiveVerifiedLogin()
	login.Verified = false
	old := "old-code"
	login.VerificationCode = &old

	result, err := login.RequestVerificationCode(fixedCodeIssuer{code: "new-code"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result != VerificationRequestNewCodeCreated {
		t.Fatalf("expected new code created, got %s", result.Result)
	}
	if login.VerificationCode == nil || *login.VerificationCode != "new-code" {
		t.Fatalf("expected outstanding code to be replaced")
	}
}

func TestRequestVerificationCodeGuards(t *testing.T) {
	inactive := newActiveVerifiedLogin()
	inactive.Active = false
	result, err := inactive.RequestVerificationCode(fixedCodeIssuer{code: "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result != VerificationRequestLoginNotActive {
		t.Fatalf("expected login not active, got %s", result.Result)
	}

	verified := newActiveVerifiedLogin()
	result, err = verified.RequestVerificationCode(fixedCodeIssuer{code: "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result != VerificationRequestAlreadyVerified {
		t.Fatalf("expected already verified, got %s", result.Result)
	}
	if verified.VerificationCode != nil {
		t.Fatalf("verified login must not receive a code")
	}
}

func TestVerifyIsIdempotentAndClearsCode(t *testing.T) {
	login := newActiveVerifiedLogin()
	login.Verified = false
	code := "issued-code"
	login.VerificationCode = &code

	first := login.Verify("issued-code")
	if first.Result != VerificationLoginVerified {
		t.Fatalf("expected login verified, got %s", first.Result)
	}
	if !login.Verified {
		t.Fatalf("login should be verified")
	}
	if login.VerificationCode != nil {
		t.Fatalf("verification code should be cleared after success")
	}

	second := login.Verify("issued-code")
	if second.Result != VerificationAlreadyDone {
		t.Fatalf("expected already verified on repeat, got %s", second.Result)
	}
	if login.VerificationCode != nil {
		t.Fatalf("verification code should stay cleared")
	}
}

func TestVerifyMismatchLeavesStateUnchanged(t *testing.T) {
	login := newActiveVerifiedLogin()
	login.Verified = false
	code := "issued-code"
	login.VerificationCode = &code

	result := login.Verify("wrong-code")
	if result.Result != VerificationInvalidCode {
		t.Fatalf("expected invalid code, got %s", result.Result)
	}
	if login.Verified {
		t.Fatalf("login must not become verified on mismatch")
	}
	if login.VerificationCode == nil || *login.VerificationCode != "issued-code" {
		t.Fatalf("outstanding code must survive a mismatch")
	}
}

func TestResetCodeRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	login := newActiveVerifiedLogin()
	login.Password = &PasswordCredential{ResetLifetime: time.Hour}

	result, plaintext, err := login.RequestResetCode(fixedCodeIssuer{code: "reset-code"}, fakeCodeHasher{}, false, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result != PasswordResetRequestCodeIssued {
		t.Fatalf("expected code issued, got %s", result.Result)
	}
	if plaintext != "reset-code" {
		t.Fatalf("expected plaintext code returned to caller")
	}
	if login.Password.ResetCodeHash == nil || *login.Password.ResetCodeHash != "hashed:reset-code" {
		t.Fatalf("stored form must be the keyed hash, got %v", login.Password.ResetCodeHash)
	}

	if !login.MatchesResetCode("reset-code", fakeCodeHasher{}, now.Add(time.Minute)) {
		t.Fatalf("code should match inside the reset window")
	}
	if login.MatchesResetCode("other", fakeCodeHasher{}, now.Add(time.Minute)) {
		t.Fatalf("wrong code must not match")
	}
	if login.MatchesResetCode("reset-code", fakeCodeHasher{}, now.Add(2*time.Hour)) {
		t.Fatalf("code must not match after the window expires")
	}
}

func TestRequestResetCodeGuardOrder(t *testing.T) {
	now := time.Now().UTC()

	locked := newActiveVerifiedLogin()
	locked.Active = false // lockout must win even over inactivity
	result, _, err := locked.RequestResetCode(fixedCodeIssuer{code: "c"}, fakeCodeHasher{}, true, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result != PasswordResetRequestAccountLockedOut {
		t.Fatalf("expected account locked out, got %s", result.Result)
	}

	inactive := newActiveVerifiedLogin()
	inactive.Active = false
	result, _, _ = inactive.RequestResetCode(fixedCodeIssuer{code: "c"}, fakeCodeHasher{}, false, now)
	if result.Result != PasswordResetRequestLoginNotActive {
		t.Fatalf("expected login not active, got %s", result.Result)
	}

	unverified := newActiveVerifiedLogin()
	unverified.Verified = false
	result, _, _ = unverified.RequestResetCode(fixedCodeIssuer{code: "c"}, fakeCodeHasher{}, false, now)
	if result.Result != PasswordResetRequestLoginNotVerified {
		t.Fatalf("expected login not verified, got %s", result.Result)
	}
}

func TestSetPasswordGuardOrder(t *testing.T) {
	now := time.Now().UTC()

	login := newActiveVerifiedLogin()
	result, err := login.SetPassword("", fakePasswordHasher{}, acceptAllValidator{}, false, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result != SetPasswordNullOrEmpty {
		t.Fatalf("expected null or empty, got %s", result.Result)
	}

	inactive := newActiveVerifiedLogin()
	inactive.Active = false
	result, _ = inactive.SetPassword("Abcdef1!", fakePasswordHasher{}, acceptAllValidator{}, false, now)
	if result.Result != SetPasswordLoginNotActive {
		t.Fatalf("expected login not active, got %s", result.Result)
	}

	// An unverified login with an existing password may not replace it.
	unverified := newActiveVerifiedLogin()
	unverified.Verified = false
	unverified.Password = &PasswordCredential{Hash: []byte("existing"), Salt: []byte("s"), Iterations: 1}
	result, _ = unverified.SetPassword("Abcdef1!", fakePasswordHasher{}, acceptAllValidator{}, false, now)
	if result.Result != SetPasswordLoginNotVerified {
		t.Fatalf("expected login not verified, got %s", result.Result)
	}

	// First-time set on an unverified login is allowed.
	fresh := newActiveVerifiedLogin()
	fresh.Verified = false
	result, _ = fresh.SetPassword("Abcdef1!", fakePasswordHasher{}, acceptAllValidator{}, false, now)
	if result.Result != SetPasswordSetToNew {
		t.Fatalf("expected first-time set to succeed, got %s", result.Result)
	}

	lockedOut := newActiveVerifiedLogin()
	result, _ = lockedOut.SetPassword("Abcdef1!", fakePasswordHasher{}, acceptAllValidator{}, true, now)
	if result.Result != SetPasswordAccountLockedOut {
		t.Fatalf("expected account locked out, got %s", result.Result)
	}

	rejected := newActiveVerifiedLogin()
	result, _ = rejected.SetPassword("Abcdef1!", fakePasswordHasher{}, rejectValidator{outcome: SetPasswordTooShort}, false, now)
	if result.Result != SetPasswordTooShort {
		t.Fatalf("expected validator outcome to propagate, got %s", result.Result)
	}
}

func TestSetPasswordStoresHashAndClearsResetState(t *testing.T) {
	now := time.Now().UTC()
	login := newActiveVerifiedLogin()
	hash := "hashed:old"
	requestTime := now.Add(-time.Minute)
	login.Password = &PasswordCredential{
		Hash:             []byte("old"),
		Salt:             []byte("old-salt"),
		Iterations:       1,
		ResetCodeHash:    &hash,
		ResetRequestTime: &requestTime,
		ResetLifetime:    time.Hour,
	}

	result, err := login.SetPassword("Abcdef1!", fakePasswordHasher{}, acceptAllValidator{}, false, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Successful() {
		t.Fatalf("expected success, got %s", result.Result)
	}
	if login.Password.ResetCodeHash != nil || login.Password.ResetRequestTime != nil {
		t.Fatalf("reset state must be cleared after a successful set")
	}
	if !bytes.Equal(login.Password.Hash, []byte("Abcdef1!:salt")) {
		t.Fatalf("unexpected stored hash %q", login.Password.Hash)
	}
	if login.Password.Iterations != 128000 {
		t.Fatalf("unexpected iterations %d", login.Password.Iterations)
	}
}

func TestMatchesPassword(t *testing.T) {
	now := time.Now().UTC()
	login := newActiveVerifiedLogin()
	if _, err := login.SetPassword("Abcdef1!", fakePasswordHasher{}, acceptAllValidator{}, false, now); err != nil {
		t.Fatalf("set password: %v", err)
	}

	if !login.MatchesPassword("Abcdef1!", fakePasswordHasher{}) {
		t.Fatalf("correct password should match")
	}
	if login.MatchesPassword("wrongpw", fakePasswordHasher{}) {
		t.Fatalf("wrong password must not match")
	}
	if login.MatchesPassword("", fakePasswordHasher{}) {
		t.Fatalf("empty password must not match")
	}
}

func TestLoginCodeConsumption(t *testing.T) {
	login := &Login{Kind: LoginKindPhoneCode, Active: true, Verified: true, PhoneNumber: "+15551234567"}

	result, err := login.RequestLoginCode(fixedCodeIssuer{code: "123456"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Result != VerificationRequestNewCodeCreated {
		t.Fatalf("verified code login should still receive sign-in codes, got %s", result.Result)
	}
	if !login.MatchesCode("123456") {
		t.Fatalf("fresh code should match")
	}

	login.ConsumeCode()
	if login.MatchesCode("123456") {
		t.Fatalf("consumed code must not match again")
	}
}

func TestIdentification(t *testing.T) {
	cases := []struct {
		login *Login
		value string
		kind  IdentificationType
	}{
		{&Login{Kind: LoginKindEmailPassword, EmailAddress: "a@b.com"}, "a@b.com", IdentificationEmail},
		{&Login{Kind: LoginKindUsernamePassword, Username: "alice"}, "alice", IdentificationUsername},
		{&Login{Kind: LoginKindPhoneCode, PhoneNumber: "+15550001111"}, "+15550001111", IdentificationPhoneNumber},
		{&Login{Kind: LoginKindEmailCode, EmailAddress: "c@d.com"}, "c@d.com", IdentificationEmail},
	}

	for _, tc := range cases {
		value, kind := tc.login.Identification()
		if value != tc.value || kind != tc.kind {
			t.Fatalf("identification for %s: got (%s, %s), want (%s, %s)", tc.login.Kind, value, kind, tc.value, tc.kind)
		}
	}
}
