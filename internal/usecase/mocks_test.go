package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/infra/config"
	"github.com/arklim/social-platform-membership/internal/infra/mail"
	"github.com/arklim/social-platform-membership/internal/infra/security"
	"github.com/arklim/social-platform-membership/internal/repository/memory"
)

type stubIssuer struct {
	code string
	err  error
}

func (s *stubIssuer) IssueCode() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.code == "" {
		return "", errors.New("unexpected call: IssueCode")
	}
	return s.code, nil
}

type capturingEmailService struct {
	sent []port.EmailMessage
	err  error
}

func (s *capturingEmailService) SendEmail(_ context.Context, message port.EmailMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, message)
	return nil
}

type capturingSmsService struct {
	sent []port.SmsMessage
	err  error
}

func (s *capturingSmsService) SendSms(_ context.Context, message port.SmsMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, message)
	return nil
}

type capturingPublisher struct {
	created        []domain.AccountCreatedEvent
	verified       []domain.LoginVerifiedEvent
	changed        []domain.PasswordChangedEvent
	resetRequested []domain.PasswordResetRequestedEvent
	locked         []domain.AccountLockedEvent
}

func (p *capturingPublisher) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	p.created = append(p.created, event)
	return nil
}

func (p *capturingPublisher) PublishLoginVerified(_ context.Context, event domain.LoginVerifiedEvent) error {
	p.verified = append(p.verified, event)
	return nil
}

func (p *capturingPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.changed = append(p.changed, event)
	return nil
}

func (p *capturingPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.resetRequested = append(p.resetRequested, event)
	return nil
}

func (p *capturingPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.locked = append(p.locked, event)
	return nil
}

type stubRateLimitStore struct {
	count    int
	oldest   time.Time
	recorded []string
}

func (s *stubRateLimitStore) TrimWindow(context.Context, string, time.Duration, time.Time) error {
	return nil
}

func (s *stubRateLimitStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return s.count, nil
}

func (s *stubRateLimitStore) RecordAttempt(_ context.Context, identifier string, _ time.Time) error {
	s.recorded = append(s.recorded, identifier)
	s.count++
	return nil
}

func (s *stubRateLimitStore) OldestAttempt(context.Context, string, time.Duration, time.Time) (time.Time, bool, error) {
	if s.oldest.IsZero() {
		return time.Time{}, false, nil
	}
	return s.oldest, true, nil
}

var (
	_ port.EmailService   = (*capturingEmailService)(nil)
	_ port.SmsService     = (*capturingSmsService)(nil)
	_ port.EventPublisher = (*capturingPublisher)(nil)
	_ port.RateLimitStore = (*stubRateLimitStore)(nil)
)

func newTestConfig() *config.AppConfig {
	return &config.AppConfig{
		RateLimit: config.RateLimitSettings{
			WindowDuration:           time.Minute,
			LoginMaxAttempts:         0,
			VerificationMaxAttempts:  0,
			PasswordResetMaxAttempts: 0,
		},
		Crypto: config.CryptoSettings{
			ResetLifetime: time.Hour,
		},
		Lockout: config.LockoutSettings{
			MaxFailures: 0,
			Window:      15 * time.Minute,
			Duration:    15 * time.Minute,
		},
	}
}

// membershipFixture wires the full service stack over the in-memory store.
type membershipFixture struct {
	store     *memory.Store
	email     *capturingEmailService
	sms       *capturingSmsService
	events    *capturingPublisher
	issuer    *stubIssuer
	hasher    *security.PasswordHasher
	validator *security.PasswordValidator
	cfg       *config.AppConfig

	accounts     *AccountService
	auth         *AuthService
	verification *VerificationService
	resets       *PasswordResetService
}

func newMembershipFixture(log *zap.Logger, at time.Time) *membershipFixture {
	f := &membershipFixture{
		store:     memory.NewStore(),
		email:     &capturingEmailService{},
		sms:       &capturingSmsService{},
		events:    &capturingPublisher{},
		issuer:    &stubIssuer{code: "fixture-code"},
		hasher:    security.NewPasswordHasher(security.IterationPolicy{BaseIterations: 64, DoublingPeriodYears: 2, EpochYear: 2026}),
		validator: security.DefaultPasswordValidator(security.DefaultPasswordPolicy()),
		cfg:       newTestConfig(),
	}

	formatter := mail.NewDefaultMessageFormatter()
	clock := func() time.Time { return at }

	f.accounts = NewAccountService(f.store, f.events, f.email, formatter, f.hasher, f.validator, f.issuer, nil, log)
	f.accounts.WithClock(clock)

	f.auth = NewAuthService(f.cfg, f.store, nil, f.events, f.hasher, nil, log)
	f.auth.WithClock(clock)

	f.verification = NewVerificationService(f.cfg, f.store, nil, f.events, f.email, f.sms, formatter, f.issuer, nil, log)
	f.verification.WithClock(clock)

	f.resets = NewPasswordResetService(f.cfg, f.store, nil, f.events, f.email, formatter, f.hasher, f.validator, f.issuer, security.ResetCodeHasher{}, nil, log)
	f.resets.WithClock(clock)

	return f
}
