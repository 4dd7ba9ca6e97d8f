package domain

// AuthenticationResultType enumerates the terminal outcomes of an authentication attempt.
type AuthenticationResultType string

const (
	AuthValidCredentials         AuthenticationResultType = "valid_credentials_provided"
	AuthNotFound                 AuthenticationResultType = "not_found"
	AuthInvalidCredentials       AuthenticationResultType = "invalid_credentials_provided"
	AuthIncorrectType            AuthenticationResultType = "incorrect_authentication_type"
	AuthGoodButRequiresTwoFactor AuthenticationResultType = "good_but_requires_two_factor"
	AuthInvalidRequiresTwoFactor AuthenticationResultType = "invalid_and_requires_two_factor"
	AuthAccountNotActive         AuthenticationResultType = "account_not_active"
	AuthLoginNotVerified         AuthenticationResultType = "login_not_verified"
	AuthAccountLockedOut         AuthenticationResultType = "account_locked_out"
)

// AuthenticationResult is the closed-world outcome of one authentication attempt.
type AuthenticationResult struct {
	Result  AuthenticationResultType
	Message string
}

// Successful reports whether the attempt fully authenticated the caller.
// GoodButRequiresTwoFactor is valid at the credential level but still incomplete.
func (r AuthenticationResult) Successful() bool {
	return r.Result == AuthValidCredentials
}

// VerificationResultType enumerates outcomes of redeeming a verification code.
type VerificationResultType string

const (
	VerificationLoginVerified  VerificationResultType = "login_verified"
	VerificationCodeNotFound   VerificationResultType = "code_not_found"
	VerificationLoginNotActive VerificationResultType = "login_not_active"
	VerificationInvalidCode    VerificationResultType = "invalid_code"
	VerificationAlreadyDone    VerificationResultType = "already_verified"
)

// VerificationResult is the outcome of a verify-with-code attempt.
type VerificationResult struct {
	Result  VerificationResultType
	Message string
}

// Successful reports whether the login ended up verified, including the idempotent repeat case.
func (r VerificationResult) Successful() bool {
	return r.Result == VerificationLoginVerified || r.Result == VerificationAlreadyDone
}

// VerificationRequestResultType enumerates outcomes of requesting a new verification code.
type VerificationRequestResultType string

const (
	VerificationRequestNewCodeCreated  VerificationRequestResultType = "new_code_created"
	VerificationRequestLoginNotActive  VerificationRequestResultType = "login_not_active"
	VerificationRequestAlreadyVerified VerificationRequestResultType = "already_verified"
	VerificationRequestNotFound        VerificationRequestResultType = "not_found"
)

// VerificationRequestResult is the outcome of a request-verification-code attempt.
type VerificationRequestResult struct {
	Result  VerificationRequestResultType
	Message string
}

// Successful reports whether a fresh code was issued.
func (r VerificationRequestResult) Successful() bool {
	return r.Result == VerificationRequestNewCodeCreated
}

// SetPasswordResultType enumerates outcomes of setting a new password.
// Validation failures carry the first violated policy rule.
type SetPasswordResultType string

const (
	SetPasswordSetToNew           SetPasswordResultType = "password_set_to_new"
	SetPasswordNullOrEmpty        SetPasswordResultType = "null_or_empty_password"
	SetPasswordTooShort           SetPasswordResultType = "too_short"
	SetPasswordNotEnoughUpperCase SetPasswordResultType = "not_enough_upper_case"
	SetPasswordNotEnoughLowerCase SetPasswordResultType = "not_enough_lower_case"
	SetPasswordNotEnoughDigits    SetPasswordResultType = "not_enough_digits"
	SetPasswordNotEnoughSymbols   SetPasswordResultType = "not_enough_symbols"
	SetPasswordLoginNotActive     SetPasswordResultType = "login_not_active"
	SetPasswordLoginNotVerified   SetPasswordResultType = "login_not_verified"
	SetPasswordAccountLockedOut   SetPasswordResultType = "account_locked_out"
	SetPasswordOtherFailure       SetPasswordResultType = "other_reason_for_failure"
)

// SetPasswordResult is the outcome of a set-password attempt.
type SetPasswordResult struct {
	Result  SetPasswordResultType
	Message string
}

// Successful reports whether the password was replaced.
func (r SetPasswordResult) Successful() bool {
	return r.Result == SetPasswordSetToNew
}

// PasswordResetRequestResultType enumerates outcomes of the request half of a password reset.
type PasswordResetRequestResultType string

const (
	PasswordResetRequestCodeIssued       PasswordResetRequestResultType = "reset_code_issued"
	PasswordResetRequestNonExistantLogin PasswordResetRequestResultType = "non_existant_login"
	PasswordResetRequestLoginNotVerified PasswordResetRequestResultType = "login_not_verified"
	PasswordResetRequestLoginNotActive   PasswordResetRequestResultType = "login_not_active"
	PasswordResetRequestAccountLockedOut PasswordResetRequestResultType = "account_locked_out"
)

// PasswordResetRequestResult is the outcome of requesting a reset code.
type PasswordResetRequestResult struct {
	Result  PasswordResetRequestResultType
	Message string
}

// Successful reports whether a reset code was issued.
func (r PasswordResetRequestResult) Successful() bool {
	return r.Result == PasswordResetRequestCodeIssued
}

// PasswordResetFinishType enumerates outcomes of the finish half of a password reset.
type PasswordResetFinishType string

const (
	PasswordResetFinishReset           PasswordResetFinishType = "password_reset"
	PasswordResetFinishInvalidCode     PasswordResetFinishType = "invalid_code"
	PasswordResetFinishInvalidPassword PasswordResetFinishType = "invalid_password"
)

// PasswordResetFinishResult is the outcome of finishing a reset with a code.
// SetPassword carries the policy violation when the new password was rejected.
type PasswordResetFinishResult struct {
	Result      PasswordResetFinishType
	SetPassword SetPasswordResult
	Message     string
}

// Successful reports whether the password was reset.
func (r PasswordResetFinishResult) Successful() bool {
	return r.Result == PasswordResetFinishReset
}

// AccountCreationResultType enumerates outcomes of creating a new account.
type AccountCreationResultType string

const (
	AccountCreatedAndSentCode      AccountCreationResultType = "created_and_sent_code"
	AccountCreatedButCodeNotSent   AccountCreationResultType = "created_but_code_not_sent"
	AccountCreationInvalidPassword AccountCreationResultType = "invalid_password"
	AccountCreationInvalidUsername AccountCreationResultType = "invalid_username"
	AccountCreationInvalidEmail    AccountCreationResultType = "invalid_email"
)

// AccountCreationResult is the outcome of an account-creation attempt.
type AccountCreationResult struct {
	Result      AccountCreationResultType
	AccountID   int64
	LoginID     int64
	SetPassword SetPasswordResult
	Message     string
}

// Successful reports whether the account exists after the call, sent code or not.
func (r AccountCreationResult) Successful() bool {
	return r.Result == AccountCreatedAndSentCode || r.Result == AccountCreatedButCodeNotSent
}

// SetEmailResultType enumerates outcomes of changing a login's email address.
type SetEmailResultType string

const (
	SetEmailValid          SetEmailResultType = "valid_email"
	SetEmailNotValid       SetEmailResultType = "not_valid_email"
	SetEmailLoginNotActive SetEmailResultType = "login_not_active"
)

// SetEmailResult is the outcome of a set-email attempt.
type SetEmailResult struct {
	Result  SetEmailResultType
	Message string
}

// Successful reports whether the email address was updated.
func (r SetEmailResult) Successful() bool {
	return r.Result == SetEmailValid
}
