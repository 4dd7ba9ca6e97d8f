package domain

import (
	"crypto/subtle"
	"time"
)

// CodeIssuer mints opaque verification/reset codes.
type CodeIssuer interface {
	IssueCode() (string, error)
}

// CodeHasher computes the stored form of a reset code. The plaintext code is
// never persisted; only its keyed hash is.
type CodeHasher interface {
	HashCode(code string) string
}

// PasswordHasher derives password hashes and picks work factors.
type PasswordHasher interface {
	NewSalt() ([]byte, error)
	Hash(password string, salt []byte, iterations int) []byte
	Iterations(asOf time.Time) int
}

// PasswordValidator applies the password policy. It returns SetPasswordSetToNew
// when the password is acceptable, or the first violated rule otherwise.
type PasswordValidator interface {
	Validate(password string) SetPasswordResultType
}

// LoginKind discriminates the authentication method a login represents.
type LoginKind string

const (
	LoginKindEmailPassword    LoginKind = "email_password"
	LoginKindUsernamePassword LoginKind = "username_password"
	LoginKindEmailCode        LoginKind = "email_code"
	LoginKindPhoneCode        LoginKind = "phone_code"
)

// UsesPassword reports whether logins of this kind carry a password credential.
func (k LoginKind) UsesPassword() bool {
	return k == LoginKindEmailPassword || k == LoginKindUsernamePassword
}

// UsesCode reports whether logins of this kind authenticate with a one-time code.
func (k LoginKind) UsesCode() bool {
	return k == LoginKindEmailCode || k == LoginKindPhoneCode
}

// IdentificationType tags the kind of identification string used in an attempt.
type IdentificationType string

const (
	IdentificationUsername         IdentificationType = "username"
	IdentificationEmail            IdentificationType = "email"
	IdentificationPhoneNumber      IdentificationType = "phone_number"
	IdentificationResetCode        IdentificationType = "reset_code"
	IdentificationVerificationCode IdentificationType = "verification_code"
)

// PasswordCredential holds the password sub-state of a login.
type PasswordCredential struct {
	Hash       []byte
	Salt       []byte
	Iterations int
	SetTime    time.Time

	// Reset sub-state; all three are set together and cleared together.
	ResetCodeHash    *string
	ResetRequestTime *time.Time
	ResetLifetime    time.Duration
}

// ResetExpireTime returns when the outstanding reset window closes, or nil
// when no reset is in flight.
func (c *PasswordCredential) ResetExpireTime() *time.Time {
	if c == nil || c.ResetRequestTime == nil {
		return nil
	}
	expiry := c.ResetRequestTime.Add(c.ResetLifetime)
	return &expiry
}

// IsInResetProcess reports whether a reset code is outstanding and unexpired.
func (c *PasswordCredential) IsInResetProcess(now time.Time) bool {
	expiry := c.ResetExpireTime()
	return expiry != nil && c.ResetCodeHash != nil && now.Before(*expiry)
}

// ClearReset drops the outstanding reset code and request time.
func (c *PasswordCredential) ClearReset() {
	if c == nil {
		return
	}
	c.ResetCodeHash = nil
	c.ResetRequestTime = nil
}

// Login is one authentication method bound to an account. The kind tag decides
// which identifier fields and credentials apply.
type Login struct {
	ID        int64
	AccountID int64
	Tenant    string
	Kind      LoginKind

	Verified             bool
	RequiresVerification bool
	Active               bool
	TwoFactor            bool

	// Cleared once the login is verified.
	VerificationCode *string

	// Login-specific lockout window, independent of the account-wide one.
	LockoutEndTime *time.Time

	CreationTime time.Time

	EmailAddress string
	Username     string
	PhoneNumber  string

	Password *PasswordCredential
}

// Identification returns the identification string and type used to address this login.
func (l *Login) Identification() (string, IdentificationType) {
	switch l.Kind {
	case LoginKindUsernamePassword:
		return l.Username, IdentificationUsername
	case LoginKindPhoneCode:
		return l.PhoneNumber, IdentificationPhoneNumber
	default:
		return l.EmailAddress, IdentificationEmail
	}
}

// IsLockedOut reports whether the login's own lockout window is active.
func (l *Login) IsLockedOut(now time.Time) bool {
	return l.LockoutEndTime != nil && now.Before(*l.LockoutEndTime)
}

// HasPassword reports whether a password has ever been set on this login.
func (l *Login) HasPassword() bool {
	return l.Password != nil && len(l.Password.Hash) > 0
}

// RequestVerificationCode issues a fresh verification code, overwriting any
// outstanding one. There is never more than one outstanding code per login.
func (l *Login) RequestVerificationCode(issuer CodeIssuer) (VerificationRequestResult, error) {
	if !l.Active {
		return VerificationRequestResult{Result: VerificationRequestLoginNotActive}, nil
	}
	if l.Verified {
		return VerificationRequestResult{Result: VerificationRequestAlreadyVerified}, nil
	}

	code, err := issuer.IssueCode()
	if err != nil {
		return VerificationRequestResult{}, err
	}

	l.VerificationCode = &code
	return VerificationRequestResult{Result: VerificationRequestNewCodeCreated}, nil
}

// RequestLoginCode issues a fresh code for code-based sign-in. Unlike
// RequestVerificationCode it also works on verified logins, since a code login
// needs a new code for every attempt.
func (l *Login) RequestLoginCode(issuer CodeIssuer) (VerificationRequestResult, error) {
	if !l.Active {
		return VerificationRequestResult{Result: VerificationRequestLoginNotActive}, nil
	}

	code, err := issuer.IssueCode()
	if err != nil {
		return VerificationRequestResult{}, err
	}

	l.VerificationCode = &code
	return VerificationRequestResult{Result: VerificationRequestNewCodeCreated}, nil
}

// Verify redeems a verification code. Verifying an already verified login is
// an idempotent success; a mismatch leaves the login untouched.
func (l *Login) Verify(code string) VerificationResult {
	if !l.Active {
		return VerificationResult{Result: VerificationLoginNotActive}
	}
	if l.Verified {
		return VerificationResult{Result: VerificationAlreadyDone}
	}
	if l.VerificationCode == nil || !constantTimeEquals(*l.VerificationCode, code) {
		return VerificationResult{Result: VerificationInvalidCode}
	}

	l.Verified = true
	l.VerificationCode = nil
	return VerificationResult{Result: VerificationLoginVerified}
}

// MatchesCode compares a candidate one-time code against the outstanding one
// without consuming it.
func (l *Login) MatchesCode(code string) bool {
	return l.VerificationCode != nil && constantTimeEquals(*l.VerificationCode, code)
}

// ConsumeCode clears the outstanding one-time code after a successful code
// authentication.
func (l *Login) ConsumeCode() {
	l.VerificationCode = nil
}

// RequestResetCode starts the password-reset window. On success the plaintext
// code is returned to the caller for delivery; only its keyed hash is stored.
func (l *Login) RequestResetCode(issuer CodeIssuer, hasher CodeHasher, accountLockedOut bool, now time.Time) (PasswordResetRequestResult, string, error) {
	if accountLockedOut || l.IsLockedOut(now) {
		return PasswordResetRequestResult{Result: PasswordResetRequestAccountLockedOut}, "", nil
	}
	if !l.Active {
		return PasswordResetRequestResult{Result: PasswordResetRequestLoginNotActive}, "", nil
	}
	if !l.Verified {
		return PasswordResetRequestResult{Result: PasswordResetRequestLoginNotVerified}, "", nil
	}
	if l.Password == nil {
		l.Password = &PasswordCredential{}
	}

	code, err := issuer.IssueCode()
	if err != nil {
		return PasswordResetRequestResult{}, "", err
	}

	hash := hasher.HashCode(code)
	requestTime := now
	l.Password.ResetCodeHash = &hash
	l.Password.ResetRequestTime = &requestTime

	return PasswordResetRequestResult{Result: PasswordResetRequestCodeIssued}, code, nil
}

// MatchesResetCode reports whether the candidate matches the outstanding reset
// code and the reset window is still open.
func (l *Login) MatchesResetCode(code string, hasher CodeHasher, now time.Time) bool {
	if l.Password == nil || !l.Password.IsInResetProcess(now) {
		return false
	}
	return constantTimeEquals(*l.Password.ResetCodeHash, hasher.HashCode(code))
}

// SetPassword validates and stores a new password, clearing any outstanding
// reset state. The guard checks run in a fixed order; the first failure wins.
func (l *Login) SetPassword(newPassword string, hasher PasswordHasher, validator PasswordValidator, accountLockedOut bool, now time.Time) (SetPasswordResult, error) {
	if newPassword == "" {
		return SetPasswordResult{Result: SetPasswordNullOrEmpty}, nil
	}
	if !l.Active {
		return SetPasswordResult{Result: SetPasswordLoginNotActive}, nil
	}
	// Unverified logins may receive their first password (account creation),
	// but may not replace an existing one.
	if !l.Verified && l.RequiresVerification && l.HasPassword() {
		return SetPasswordResult{Result: SetPasswordLoginNotVerified}, nil
	}
	if accountLockedOut || l.IsLockedOut(now) {
		return SetPasswordResult{Result: SetPasswordAccountLockedOut}, nil
	}

	if outcome := validator.Validate(newPassword); outcome != SetPasswordSetToNew {
		return SetPasswordResult{Result: outcome}, nil
	}

	salt, err := hasher.NewSalt()
	if err != nil {
		return SetPasswordResult{}, err
	}

	iterations := hasher.Iterations(now)
	if l.Password == nil {
		l.Password = &PasswordCredential{}
	}
	l.Password.Salt = salt
	l.Password.Iterations = iterations
	l.Password.Hash = hasher.Hash(newPassword, salt, iterations)
	l.Password.SetTime = now
	l.Password.ClearReset()

	return SetPasswordResult{Result: SetPasswordSetToNew}, nil
}

// MatchesPassword recomputes the candidate's hash with the stored salt and
// work factor and compares in constant time.
func (l *Login) MatchesPassword(candidate string, hasher PasswordHasher) bool {
	if !l.HasPassword() || candidate == "" {
		return false
	}
	computed := hasher.Hash(candidate, l.Password.Salt, l.Password.Iterations)
	return subtle.ConstantTimeCompare(computed, l.Password.Hash) == 1
}

func constantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
