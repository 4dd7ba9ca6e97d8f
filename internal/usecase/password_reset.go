package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/infra/config"
	"github.com/arklim/social-platform-membership/internal/infra/logger"
	"github.com/arklim/social-platform-membership/internal/infra/telemetry"
	"github.com/arklim/social-platform-membership/internal/repository"
)

const passwordResetReason = "password_reset"

var (
	// ErrPasswordResetUnavailable indicates the service is not properly configured.
	ErrPasswordResetUnavailable = errors.New("password reset service unavailable")
	// ErrResetDeliveryFailed indicates the reset code could not be delivered.
	ErrResetDeliveryFailed = errors.New("reset code delivery failed")
)

// PasswordResetService coordinates the two halves of a password reset: the
// request half issues and delivers a code; the finish half redeems it.
type PasswordResetService struct {
	cfg        *config.AppConfig
	logins     port.LoginRepository
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	email      port.EmailService
	formatter  port.MessageFormatter
	hasher     domain.PasswordHasher
	validator  domain.PasswordValidator
	issuer     domain.CodeIssuer
	codeHasher domain.CodeHasher
	metrics    *telemetry.Provider
	logger     *zap.Logger
	now        func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(cfg *config.AppConfig, logins port.LoginRepository, rateLimits port.RateLimitStore, events port.EventPublisher, email port.EmailService, formatter port.MessageFormatter, hasher domain.PasswordHasher, validator domain.PasswordValidator, issuer domain.CodeIssuer, codeHasher domain.CodeHasher, metrics *telemetry.Provider, log *zap.Logger) *PasswordResetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordResetService{
		cfg:        cfg,
		logins:     logins,
		rateLimits: rateLimits,
		events:     events,
		email:      email,
		formatter:  formatter,
		hasher:     hasher,
		validator:  validator,
		issuer:     issuer,
		codeHasher: codeHasher,
		metrics:    metrics,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RequestResetByEmail starts a password reset for the login registered under
// the given email address.
func (s *PasswordResetService) RequestResetByEmail(ctx context.Context, tenant, email string) (domain.PasswordResetRequestResult, error) {
	return s.requestReset(ctx, tenant, email, domain.IdentificationEmail, func(ctx context.Context) (*domain.Login, error) {
		return s.logins.LoginByEmail(ctx, tenant, email)
	})
}

// RequestResetByUsername starts a password reset for the login registered
// under the given username.
func (s *PasswordResetService) RequestResetByUsername(ctx context.Context, tenant, username string) (domain.PasswordResetRequestResult, error) {
	return s.requestReset(ctx, tenant, username, domain.IdentificationUsername, func(ctx context.Context) (*domain.Login, error) {
		return s.logins.LoginByUsername(ctx, tenant, username)
	})
}

func (s *PasswordResetService) requestReset(ctx context.Context, tenant, identification string, idType domain.IdentificationType, lookup func(context.Context) (*domain.Login, error)) (domain.PasswordResetRequestResult, error) {
	if s.logins == nil || s.issuer == nil || s.codeHasher == nil {
		return domain.PasswordResetRequestResult{}, ErrPasswordResetUnavailable
	}

	now := s.now().UTC()

	limit, window := 0, time.Duration(0)
	if s.cfg != nil {
		limit = s.cfg.RateLimit.PasswordResetMaxAttempts
		window = s.cfg.RateLimit.WindowDuration
	}
	scopeKey := fmt.Sprintf("%s:%s", tenant, identification)
	if err := enforceRateLimit(ctx, s.rateLimits, s.logger, passwordResetRateLimitScope, scopeKey, limit, window, now); err != nil {
		return domain.PasswordResetRequestResult{}, err
	}

	login, err := lookup(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.PasswordResetRequestResult{}, fmt.Errorf("lookup login: %w", err)
	}

	if login == nil {
		result := domain.PasswordResetRequestResult{
			Result:  domain.PasswordResetRequestNonExistantLogin,
			Message: "no login found for the given identification",
		}
		if err := s.recordRequest(ctx, tenant, identification, idType, nil, result.Result, now); err != nil {
			return domain.PasswordResetRequestResult{}, err
		}
		return result, nil
	}

	account, err := s.logins.AccountByID(ctx, login.AccountID)
	if err != nil {
		return domain.PasswordResetRequestResult{}, fmt.Errorf("lookup account: %w", err)
	}

	result, code, err := login.RequestResetCode(s.issuer, s.codeHasher, account.IsLockedOut(now), now)
	if err != nil {
		return domain.PasswordResetRequestResult{}, fmt.Errorf("issue reset code: %w", err)
	}

	if result.Successful() {
		if s.cfg != nil && s.cfg.Crypto.ResetLifetime > 0 {
			login.Password.ResetLifetime = s.cfg.Crypto.ResetLifetime
		} else if login.Password.ResetLifetime <= 0 {
			login.Password.ResetLifetime = time.Hour
		}
		if err := s.logins.UpdateLogin(ctx, login); err != nil {
			return domain.PasswordResetRequestResult{}, fmt.Errorf("update login: %w", err)
		}
	}

	if err := s.recordRequest(ctx, tenant, identification, idType, login, result.Result, now); err != nil {
		return domain.PasswordResetRequestResult{}, err
	}

	if result.Successful() {
		if err := s.deliverResetCode(ctx, login, code); err != nil {
			login.Password.ClearReset()
			if updateErr := s.logins.UpdateLogin(ctx, login); updateErr != nil {
				s.logger.Warn("clear undelivered reset code failed", zap.Int64("login_id", login.ID), zap.Error(updateErr))
			}
			return domain.PasswordResetRequestResult{}, fmt.Errorf("%w: %s", ErrResetDeliveryFailed, err)
		}
		s.publishResetRequested(ctx, login, now)
	}

	return result, nil
}

// FinishResetWithCode redeems an outstanding reset code and sets the new
// password. The finish half of the audit record closes the open request half
// when one exists.
func (s *PasswordResetService) FinishResetWithCode(ctx context.Context, tenant, code, newPassword string) (domain.PasswordResetFinishResult, error) {
	if s.logins == nil || s.hasher == nil || s.validator == nil || s.codeHasher == nil {
		return domain.PasswordResetFinishResult{}, ErrPasswordResetUnavailable
	}

	now := s.now().UTC()
	codeHash := s.codeHasher.HashCode(code)

	login, err := s.logins.LoginByResetCodeHash(ctx, tenant, codeHash)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.PasswordResetFinishResult{}, fmt.Errorf("lookup login: %w", err)
	}

	if login == nil {
		result := domain.PasswordResetFinishResult{
			Result:  domain.PasswordResetFinishInvalidCode,
			Message: "no login found for the given code",
		}
		finish := port.SecurityEventFinish{
			Tenant:             tenant,
			Identification:     codeHash,
			IdentificationType: domain.IdentificationResetCode,
			FinishTime:         now,
		}
		if _, err := s.logins.RecordPasswordResetFinish(ctx, finish, result.Result); err != nil {
			return domain.PasswordResetFinishResult{}, fmt.Errorf("record reset finish: %w", err)
		}
		s.observeAttempt()
		return result, nil
	}

	account, err := s.logins.AccountByID(ctx, login.AccountID)
	if err != nil {
		return domain.PasswordResetFinishResult{}, fmt.Errorf("lookup account: %w", err)
	}

	var result domain.PasswordResetFinishResult
	if !login.MatchesResetCode(code, s.codeHasher, now) {
		result = domain.PasswordResetFinishResult{
			Result:  domain.PasswordResetFinishInvalidCode,
			Message: "the reset code is invalid or expired",
		}
	} else {
		setResult, err := login.SetPassword(newPassword, s.hasher, s.validator, account.IsLockedOut(now), now)
		if err != nil {
			return domain.PasswordResetFinishResult{}, fmt.Errorf("set password: %w", err)
		}
		if !setResult.Successful() {
			result = domain.PasswordResetFinishResult{
				Result:      domain.PasswordResetFinishInvalidPassword,
				SetPassword: setResult,
				Message:     "the new password was rejected",
			}
		} else {
			result = domain.PasswordResetFinishResult{
				Result:      domain.PasswordResetFinishReset,
				SetPassword: setResult,
			}
			if err := s.logins.UpdateLogin(ctx, login); err != nil {
				return domain.PasswordResetFinishResult{}, fmt.Errorf("update login: %w", err)
			}
		}
	}

	identification, idType := login.Identification()
	loginID := login.ID
	finish := port.SecurityEventFinish{
		Tenant:             login.Tenant,
		Identification:     identification,
		IdentificationType: idType,
		LoginID:            &loginID,
		FinishTime:         now,
	}
	if _, err := s.logins.RecordPasswordResetFinish(ctx, finish, result.Result); err != nil {
		return domain.PasswordResetFinishResult{}, fmt.Errorf("record reset finish: %w", err)
	}
	s.observeAttempt()

	if result.Successful() {
		s.publishPasswordChanged(ctx, login, now)
		s.sendChangedConfirmation(ctx, login)
	}

	return result, nil
}

func (s *PasswordResetService) recordRequest(ctx context.Context, tenant, identification string, idType domain.IdentificationType, login *domain.Login, result domain.PasswordResetRequestResultType, now time.Time) error {
	event := &domain.SecurityEvent{
		Tenant:             tenant,
		EventTime:          now,
		Identification:     identification,
		IdentificationType: idType,
		ResetRequestResult: &result,
	}
	if login != nil {
		loginID := login.ID
		event.LoginID = &loginID
	}

	if err := s.logins.RecordPasswordResetRequest(ctx, event); err != nil {
		return fmt.Errorf("record reset request: %w", err)
	}
	s.observeAttempt()
	return nil
}

func (s *PasswordResetService) deliverResetCode(ctx context.Context, login *domain.Login, code string) error {
	if login.EmailAddress == "" {
		return errors.New("login has no email address")
	}
	if s.email == nil {
		return errors.New("email delivery not configured")
	}

	subject, body := "", ""
	if s.formatter != nil {
		subject, body = s.formatter.PasswordResetMessage(login, code)
	}
	return s.email.SendEmail(ctx, port.EmailMessage{
		Recipient: login.EmailAddress,
		Subject:   subject,
		HTML:      body,
	})
}

func (s *PasswordResetService) publishResetRequested(ctx context.Context, login *domain.Login, now time.Time) {
	if s.events == nil {
		return
	}

	expiresAt := now
	if expiry := login.Password.ResetExpireTime(); expiry != nil {
		expiresAt = *expiry
	}

	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		AccountID:         login.AccountID,
		LoginID:           login.ID,
		Tenant:            login.Tenant,
		RequestedAt:       now,
		DeliveryMethod:    deliveryEmail,
		MaskedDestination: maskDestination(deliveryEmail, login.EmailAddress),
		ExpiresAt:         expiresAt,
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish reset requested event failed", zap.Int64("login_id", login.ID), zap.Error(err))
	}
}

func (s *PasswordResetService) publishPasswordChanged(ctx context.Context, login *domain.Login, now time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: login.AccountID,
		LoginID:   login.ID,
		Tenant:    login.Tenant,
		ChangedAt: now,
		Reason:    passwordResetReason,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed", zap.Int64("login_id", login.ID), zap.Error(err))
	}
}

func (s *PasswordResetService) sendChangedConfirmation(ctx context.Context, login *domain.Login) {
	if s.email == nil || s.formatter == nil || login.EmailAddress == "" {
		return
	}

	subject, body := s.formatter.PasswordChangedConfirmation(login)
	err := s.email.SendEmail(ctx, port.EmailMessage{
		Recipient: login.EmailAddress,
		Subject:   subject,
		HTML:      body,
	})
	if err != nil {
		s.logger.Warn("password changed confirmation failed",
			zap.String("email", logger.MaskEmail(login.EmailAddress)),
			zap.Error(err),
		)
	}
}

func (s *PasswordResetService) observeAttempt() {
	if s.metrics != nil {
		s.metrics.ObserveSecurityEvent(string(domain.SecurityEventPasswordResetAttempt))
	}
}
