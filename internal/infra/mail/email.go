package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"

	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/infra/config"
	"github.com/arklim/social-platform-membership/internal/infra/logger"
)

// EmailService delivers messages over SMTP.
type EmailService struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewEmailService constructs an SMTP-backed email service.
func NewEmailService(cfg config.SMTPSettings, log *zap.Logger) *EmailService {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailService{
		dialer: dialer,
		from:   cfg.From,
		logger: log,
	}
}

// SendEmail sends a single HTML message to the recipient.
func (s *EmailService) SendEmail(_ context.Context, message port.EmailMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", message.Recipient)
	m.SetHeader("Subject", message.Subject)
	m.SetBody("text/html", message.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("Failed to send email",
			zap.String("recipient", logger.MaskEmail(message.Recipient)),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Debug("Email sent",
		zap.String("recipient", logger.MaskEmail(message.Recipient)),
		zap.String("subject", message.Subject),
	)
	return nil
}

var _ port.EmailService = (*EmailService)(nil)
