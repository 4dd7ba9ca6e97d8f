package mail

import (
	"fmt"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
)

// DefaultMessageFormatter produces the stock notification wording.
type DefaultMessageFormatter struct{}

// NewDefaultMessageFormatter constructs the stock formatter.
func NewDefaultMessageFormatter() *DefaultMessageFormatter {
	return &DefaultMessageFormatter{}
}

// VerificationMessage formats the 'confirm your login' message.
func (f *DefaultMessageFormatter) VerificationMessage(_ *domain.Login, code string) (subject, body string) {
	return "Verify your account", fmt.Sprintf("Verify your account with this code: %s", code)
}

// VerifiedConfirmation formats the 'your login was verified' message.
func (f *DefaultMessageFormatter) VerifiedConfirmation(_ *domain.Login) (subject, body string) {
	return "Account Verified", "Your account has just been verified!"
}

// PasswordResetMessage formats the 'complete password reset' message.
func (f *DefaultMessageFormatter) PasswordResetMessage(_ *domain.Login, code string) (subject, body string) {
	return "Reset your password", fmt.Sprintf("Reset your password with this code: %s", code)
}

// PasswordChangedConfirmation formats the 'your password was changed' message.
func (f *DefaultMessageFormatter) PasswordChangedConfirmation(_ *domain.Login) (subject, body string) {
	return "Password Changed", "Your password was recently changed."
}

var _ port.MessageFormatter = (*DefaultMessageFormatter)(nil)
