package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/infra/logger"
)

// LoggingSmsService logs SMS messages instead of delivering them. Stands in
// for a gateway integration in development and test environments.
type LoggingSmsService struct {
	logger *zap.Logger
}

// NewLoggingSmsService constructs an SMS service that only logs.
func NewLoggingSmsService(log *zap.Logger) *LoggingSmsService {
	return &LoggingSmsService{logger: log}
}

// SendSms logs the message body against the masked phone number.
func (s *LoggingSmsService) SendSms(_ context.Context, message port.SmsMessage) error {
	s.logger.Info("SMS message (logging delivery)",
		zap.String("phone_number", logger.MaskPhone(message.PhoneNumber)),
		zap.String("body", message.Body),
	)
	return nil
}

var _ port.SmsService = (*LoggingSmsService)(nil)
