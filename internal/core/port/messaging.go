package port

import (
	"context"

	"github.com/arklim/social-platform-membership/internal/core/domain"
)

// EmailMessage is one outbound email.
type EmailMessage struct {
	Recipient string
	Subject   string
	HTML      string
}

// SmsMessage is one outbound text message.
type SmsMessage struct {
	PhoneNumber string
	Body        string
}

// EmailService delivers email messages.
type EmailService interface {
	SendEmail(ctx context.Context, message EmailMessage) error
}

// SmsService delivers text messages.
type SmsService interface {
	SendSms(ctx context.Context, message SmsMessage) error
}

// MessageFormatter produces subject and body text for the notification
// messages the membership flows send.
type MessageFormatter interface {
	VerificationMessage(login *domain.Login, code string) (subject, body string)
	VerifiedConfirmation(login *domain.Login) (subject, body string)
	PasswordResetMessage(login *domain.Login, code string) (subject, body string)
	PasswordChangedConfirmation(login *domain.Login) (subject, body string)
}
