package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID int64            `json:"account_id,omitempty"`
	Tenant    string           `json:"tenant,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType string, accountID int64, tenant string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Tenant:    tenant,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountCreated publishes membership.account.created events.
func (p *EventPublisher) PublishAccountCreated(ctx context.Context, event domain.AccountCreatedEvent) error {
	payload := struct {
		AccountID   int64          `json:"account_id"`
		LoginID     int64          `json:"login_id"`
		Tenant      string         `json:"tenant"`
		DisplayName string         `json:"display_name,omitempty"`
		Email       *string        `json:"email,omitempty"`
		CodeSent    bool           `json:"code_sent"`
		CreatedAt   time.Time      `json:"created_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:   event.AccountID,
		LoginID:     event.LoginID,
		Tenant:      event.Tenant,
		DisplayName: event.DisplayName,
		Email:       event.Email,
		CodeSent:    event.CodeSent,
		CreatedAt:   event.CreatedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "membership.account.created", event.AccountID, event.Tenant, event.CreatedAt, payload)
}

// PublishLoginVerified publishes membership.login.verified events.
func (p *EventPublisher) PublishLoginVerified(ctx context.Context, event domain.LoginVerifiedEvent) error {
	payload := struct {
		AccountID          int64          `json:"account_id"`
		LoginID            int64          `json:"login_id"`
		Tenant             string         `json:"tenant"`
		IdentificationType string         `json:"identification_type"`
		VerifiedAt         time.Time      `json:"verified_at"`
		Metadata           map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:          event.AccountID,
		LoginID:            event.LoginID,
		Tenant:             event.Tenant,
		IdentificationType: event.IdentificationType,
		VerifiedAt:         event.VerifiedAt.UTC(),
		Metadata:           event.Metadata,
	}

	return p.publish(ctx, event.EventID, "membership.login.verified", event.AccountID, event.Tenant, event.VerifiedAt, payload)
}

// PublishPasswordChanged publishes membership.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID int64          `json:"account_id"`
		LoginID   int64          `json:"login_id"`
		Tenant    string         `json:"tenant"`
		ChangedAt time.Time      `json:"changed_at"`
		Reason    string         `json:"reason,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		LoginID:   event.LoginID,
		Tenant:    event.Tenant,
		ChangedAt: event.ChangedAt.UTC(),
		Reason:    event.Reason,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "membership.password.changed", event.AccountID, event.Tenant, event.ChangedAt, payload)
}

// PublishPasswordResetRequested publishes membership.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		AccountID         int64          `json:"account_id"`
		LoginID           int64          `json:"login_id"`
		Tenant            string         `json:"tenant"`
		RequestedAt       time.Time      `json:"requested_at"`
		DeliveryMethod    string         `json:"delivery_method"`
		MaskedDestination string         `json:"masked_destination,omitempty"`
		ExpiresAt         time.Time      `json:"expires_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:         event.AccountID,
		LoginID:           event.LoginID,
		Tenant:            event.Tenant,
		RequestedAt:       event.RequestedAt.UTC(),
		DeliveryMethod:    event.DeliveryMethod,
		MaskedDestination: event.MaskedDestination,
		ExpiresAt:         event.ExpiresAt.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "membership.password.reset_requested", event.AccountID, event.Tenant, event.RequestedAt, payload)
}

// PublishAccountLocked publishes membership.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		AccountID int64          `json:"account_id"`
		Tenant    string         `json:"tenant"`
		LockedAt  time.Time      `json:"locked_at"`
		Until     time.Time      `json:"until"`
		Reason    string         `json:"reason,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		Tenant:    event.Tenant,
		LockedAt:  event.LockedAt.UTC(),
		Until:     event.Until.UTC(),
		Reason:    event.Reason,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "membership.account.locked", event.AccountID, event.Tenant, event.LockedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
