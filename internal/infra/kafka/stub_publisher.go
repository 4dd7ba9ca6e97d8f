package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, accountID int64, tenant string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.Int64("account_id", accountID),
		zap.String("tenant", tenant),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountCreated logs membership.account.created events.
func (p *StubPublisher) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"login_id":     event.LoginID,
		"display_name": event.DisplayName,
		"email":        event.Email,
		"code_sent":    event.CodeSent,
		"created_at":   event.CreatedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("membership.account.created", event.AccountID, event.Tenant, event.CreatedAt, payload)
	return nil
}

// PublishLoginVerified logs membership.login.verified events.
func (p *StubPublisher) PublishLoginVerified(_ context.Context, event domain.LoginVerifiedEvent) error {
	payload := map[string]any{
		"account_id":          event.AccountID,
		"login_id":            event.LoginID,
		"identification_type": event.IdentificationType,
		"verified_at":         event.VerifiedAt,
		"metadata":            event.Metadata,
	}
	p.logEvent("membership.login.verified", event.AccountID, event.Tenant, event.VerifiedAt, payload)
	return nil
}

// PublishPasswordChanged logs membership.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"login_id":   event.LoginID,
		"changed_at": event.ChangedAt,
		"reason":     event.Reason,
		"metadata":   event.Metadata,
	}
	p.logEvent("membership.password.changed", event.AccountID, event.Tenant, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs membership.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"account_id":         event.AccountID,
		"login_id":           event.LoginID,
		"requested_at":       event.RequestedAt,
		"delivery_method":    event.DeliveryMethod,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent("membership.password.reset_requested", event.AccountID, event.Tenant, event.RequestedAt, payload)
	return nil
}

// PublishAccountLocked logs membership.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"locked_at":  event.LockedAt,
		"until":      event.Until,
		"reason":     event.Reason,
		"metadata":   event.Metadata,
	}
	p.logEvent("membership.account.locked", event.AccountID, event.Tenant, event.LockedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
