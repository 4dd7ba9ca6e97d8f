package domain

import "time"

// SecurityEventKind discriminates the audited operation.
type SecurityEventKind string

const (
	SecurityEventLoginAttempt         SecurityEventKind = "login_attempt"
	SecurityEventVerificationAttempt  SecurityEventKind = "verification_attempt"
	SecurityEventPasswordResetAttempt SecurityEventKind = "password_reset_attempt"
)

// SecurityEvent is one audit record of an attempted sensitive operation.
// Login attempts are single-phase; verification and password-reset attempts
// are two-phase: the request half opens the record and the finish half closes
// the same record (see the repository correlation rule).
type SecurityEvent struct {
	ID                 int64
	Kind               SecurityEventKind
	Tenant             string
	EventTime          time.Time
	Identification     string
	IdentificationType IdentificationType

	// Nil when no matching login was found for the attempt.
	LoginID *int64

	// Single-phase payload.
	AuthResult *AuthenticationResultType

	// Two-phase payloads; the request half of each pair is written first.
	VerificationRequestResult *VerificationRequestResultType
	VerificationFinishResult  *VerificationResultType
	ResetRequestResult        *PasswordResetRequestResultType
	ResetFinishResult         *PasswordResetFinishType

	FinishTime *time.Time
}

// Finished reports whether a two-phase event has both halves recorded.
// Single-phase login attempts are always finished.
func (e *SecurityEvent) Finished() bool {
	switch e.Kind {
	case SecurityEventLoginAttempt:
		return true
	case SecurityEventVerificationAttempt:
		return e.VerificationRequestResult != nil && e.VerificationFinishResult != nil && e.FinishTime != nil
	case SecurityEventPasswordResetAttempt:
		return e.ResetRequestResult != nil && e.ResetFinishResult != nil && e.FinishTime != nil
	default:
		return false
	}
}

// Open reports whether the event is an unfinished request half awaiting
// correlation with a finish half.
func (e *SecurityEvent) Open() bool {
	if e.FinishTime != nil {
		return false
	}
	switch e.Kind {
	case SecurityEventVerificationAttempt:
		return e.VerificationRequestResult != nil &&
			*e.VerificationRequestResult == VerificationRequestNewCodeCreated &&
			e.VerificationFinishResult == nil
	case SecurityEventPasswordResetAttempt:
		return e.ResetRequestResult != nil &&
			*e.ResetRequestResult == PasswordResetRequestCodeIssued &&
			e.ResetFinishResult == nil
	default:
		return false
	}
}

// Successful derives the variant-specific success flag.
func (e *SecurityEvent) Successful() bool {
	switch e.Kind {
	case SecurityEventLoginAttempt:
		return e.AuthResult != nil && *e.AuthResult == AuthValidCredentials
	case SecurityEventVerificationAttempt:
		if e.VerificationFinishResult != nil {
			return *e.VerificationFinishResult == VerificationLoginVerified ||
				*e.VerificationFinishResult == VerificationAlreadyDone
		}
		return e.VerificationRequestResult != nil &&
			*e.VerificationRequestResult == VerificationRequestNewCodeCreated
	case SecurityEventPasswordResetAttempt:
		if e.ResetFinishResult != nil {
			return *e.ResetFinishResult == PasswordResetFinishReset
		}
		return e.ResetRequestResult != nil &&
			*e.ResetRequestResult == PasswordResetRequestCodeIssued
	default:
		return false
	}
}

// Matches reports whether this open event correlates with a finish half
// addressed to the given login or identification.
func (e *SecurityEvent) Matches(tenant string, idType IdentificationType, identification string, loginID *int64) bool {
	if e.Tenant != tenant || e.IdentificationType != idType {
		return false
	}
	if loginID != nil && e.LoginID != nil && *e.LoginID == *loginID {
		return true
	}
	return e.Identification == identification
}
