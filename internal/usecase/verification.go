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

// ErrVerificationUnavailable indicates the service is not properly configured.
var ErrVerificationUnavailable = errors.New("verification service unavailable")

// VerificationService issues and redeems login verification codes.
type VerificationService struct {
	cfg        *config.AppConfig
	logins     port.LoginRepository
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	email      port.EmailService
	sms        port.SmsService
	formatter  port.MessageFormatter
	issuer     domain.CodeIssuer
	metrics    *telemetry.Provider
	logger     *zap.Logger
	now        func() time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(cfg *config.AppConfig, logins port.LoginRepository, rateLimits port.RateLimitStore, events port.EventPublisher, email port.EmailService, sms port.SmsService, formatter port.MessageFormatter, issuer domain.CodeIssuer, metrics *telemetry.Provider, log *zap.Logger) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerificationService{
		cfg:        cfg,
		logins:     logins,
		rateLimits: rateLimits,
		events:     events,
		email:      email,
		sms:        sms,
		formatter:  formatter,
		issuer:     issuer,
		metrics:    metrics,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *VerificationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RequestEmailVerificationCode issues a fresh verification code for the email
// login and delivers it by email.
func (s *VerificationService) RequestEmailVerificationCode(ctx context.Context, tenant, email string) (domain.VerificationRequestResult, error) {
	return s.requestCode(ctx, tenant, email, domain.IdentificationEmail,
		func(ctx context.Context) (*domain.Login, error) {
			return s.logins.LoginByEmail(ctx, tenant, email)
		},
		func(login *domain.Login) (domain.VerificationRequestResult, error) {
			return login.RequestVerificationCode(s.issuer)
		},
	)
}

// RequestSmsVerificationCode issues a fresh verification code for the phone
// login and delivers it by text message.
func (s *VerificationService) RequestSmsVerificationCode(ctx context.Context, tenant, phone string) (domain.VerificationRequestResult, error) {
	return s.requestCode(ctx, tenant, phone, domain.IdentificationPhoneNumber,
		func(ctx context.Context) (*domain.Login, error) {
			return s.logins.LoginByPhone(ctx, tenant, phone)
		},
		func(login *domain.Login) (domain.VerificationRequestResult, error) {
			return login.RequestVerificationCode(s.issuer)
		},
	)
}

// RequestSmsLoginCode issues a fresh sign-in code for the phone login. Unlike
// verification codes this also works on already verified logins.
func (s *VerificationService) RequestSmsLoginCode(ctx context.Context, tenant, phone string) (domain.VerificationRequestResult, error) {
	return s.requestCode(ctx, tenant, phone, domain.IdentificationPhoneNumber,
		func(ctx context.Context) (*domain.Login, error) {
			return s.logins.LoginByPhone(ctx, tenant, phone)
		},
		func(login *domain.Login) (domain.VerificationRequestResult, error) {
			return login.RequestLoginCode(s.issuer)
		},
	)
}

func (s *VerificationService) requestCode(ctx context.Context, tenant, identification string, idType domain.IdentificationType, lookup func(context.Context) (*domain.Login, error), request func(*domain.Login) (domain.VerificationRequestResult, error)) (domain.VerificationRequestResult, error) {
	if s.logins == nil || s.issuer == nil {
		return domain.VerificationRequestResult{}, ErrVerificationUnavailable
	}

	now := s.now().UTC()

	limit, window := 0, time.Duration(0)
	if s.cfg != nil {
		limit = s.cfg.RateLimit.VerificationMaxAttempts
		window = s.cfg.RateLimit.WindowDuration
	}
	scopeKey := fmt.Sprintf("%s:%s", tenant, identification)
	if err := enforceRateLimit(ctx, s.rateLimits, s.logger, verificationRateLimitScope, scopeKey, limit, window, now); err != nil {
		return domain.VerificationRequestResult{}, err
	}

	login, err := lookup(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.VerificationRequestResult{}, fmt.Errorf("lookup login: %w", err)
	}

	result := domain.VerificationRequestResult{
		Result:  domain.VerificationRequestNotFound,
		Message: "no login found for the given identification",
	}
	if login != nil {
		result, err = request(login)
		if err != nil {
			return domain.VerificationRequestResult{}, fmt.Errorf("issue verification code: %w", err)
		}
		if result.Successful() {
			if err := s.logins.UpdateLogin(ctx, login); err != nil {
				return domain.VerificationRequestResult{}, fmt.Errorf("update login: %w", err)
			}
		}
	}

	if err := s.recordRequest(ctx, tenant, identification, idType, login, result.Result, now); err != nil {
		return domain.VerificationRequestResult{}, err
	}

	if result.Successful() {
		if err := s.deliverCode(ctx, login, idType); err != nil {
			// Drop the undeliverable code so it cannot be redeemed.
			login.ConsumeCode()
			if updateErr := s.logins.UpdateLogin(ctx, login); updateErr != nil {
				s.logger.Warn("clear undelivered code failed", zap.Int64("login_id", login.ID), zap.Error(updateErr))
			}
			return domain.VerificationRequestResult{}, fmt.Errorf("deliver verification code: %w", err)
		}
	}

	return result, nil
}

// VerifyLoginWithCode redeems a verification code and marks the login
// verified. The finish half of the audit record closes the open request half
// when one exists.
func (s *VerificationService) VerifyLoginWithCode(ctx context.Context, tenant, code string) (domain.VerificationResult, error) {
	if s.logins == nil {
		return domain.VerificationResult{}, ErrVerificationUnavailable
	}

	now := s.now().UTC()

	login, err := s.logins.LoginByVerificationCode(ctx, tenant, code)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.VerificationResult{}, fmt.Errorf("lookup login: %w", err)
	}

	if login == nil {
		result := domain.VerificationResult{
			Result:  domain.VerificationCodeNotFound,
			Message: "no login found for the given code",
		}
		finish := port.SecurityEventFinish{
			Tenant:             tenant,
			Identification:     code,
			IdentificationType: domain.IdentificationVerificationCode,
			FinishTime:         now,
		}
		if _, err := s.logins.RecordVerificationFinish(ctx, finish, result.Result); err != nil {
			return domain.VerificationResult{}, fmt.Errorf("record verification finish: %w", err)
		}
		s.observeFinish()
		return result, nil
	}

	result := login.Verify(code)
	if result.Result == domain.VerificationLoginVerified {
		if err := s.logins.UpdateLogin(ctx, login); err != nil {
			return domain.VerificationResult{}, fmt.Errorf("update login: %w", err)
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
	if _, err := s.logins.RecordVerificationFinish(ctx, finish, result.Result); err != nil {
		return domain.VerificationResult{}, fmt.Errorf("record verification finish: %w", err)
	}
	s.observeFinish()

	if result.Result == domain.VerificationLoginVerified {
		s.publishVerified(ctx, login, idType, now)
		s.sendVerifiedConfirmation(ctx, login, idType)
	}

	return result, nil
}

func (s *VerificationService) recordRequest(ctx context.Context, tenant, identification string, idType domain.IdentificationType, login *domain.Login, result domain.VerificationRequestResultType, now time.Time) error {
	event := &domain.SecurityEvent{
		Tenant:                    tenant,
		EventTime:                 now,
		Identification:            identification,
		IdentificationType:        idType,
		VerificationRequestResult: &result,
	}
	if login != nil {
		loginID := login.ID
		event.LoginID = &loginID
	}

	if err := s.logins.RecordVerificationRequest(ctx, event); err != nil {
		return fmt.Errorf("record verification request: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveSecurityEvent(string(domain.SecurityEventVerificationAttempt))
	}
	return nil
}

func (s *VerificationService) deliverCode(ctx context.Context, login *domain.Login, idType domain.IdentificationType) error {
	if login.VerificationCode == nil {
		return errors.New("no code to deliver")
	}

	subject, body := "", ""
	if s.formatter != nil {
		subject, body = s.formatter.VerificationMessage(login, *login.VerificationCode)
	}

	switch idType {
	case domain.IdentificationPhoneNumber:
		if s.sms == nil {
			return errors.New("sms delivery not configured")
		}
		return s.sms.SendSms(ctx, port.SmsMessage{PhoneNumber: login.PhoneNumber, Body: body})
	default:
		if s.email == nil {
			return errors.New("email delivery not configured")
		}
		return s.email.SendEmail(ctx, port.EmailMessage{Recipient: login.EmailAddress, Subject: subject, HTML: body})
	}
}

func (s *VerificationService) publishVerified(ctx context.Context, login *domain.Login, idType domain.IdentificationType, now time.Time) {
	if s.events == nil {
		return
	}

	event := domain.LoginVerifiedEvent{
		EventID:            uuid.NewString(),
		AccountID:          login.AccountID,
		LoginID:            login.ID,
		Tenant:             login.Tenant,
		IdentificationType: string(idType),
		VerifiedAt:         now,
	}
	if err := s.events.PublishLoginVerified(ctx, event); err != nil {
		s.logger.Warn("publish login verified event failed", zap.Int64("login_id", login.ID), zap.Error(err))
	}
}

func (s *VerificationService) sendVerifiedConfirmation(ctx context.Context, login *domain.Login, idType domain.IdentificationType) {
	if s.formatter == nil {
		return
	}

	subject, body := s.formatter.VerifiedConfirmation(login)

	var err error
	switch idType {
	case domain.IdentificationPhoneNumber:
		if s.sms == nil {
			return
		}
		err = s.sms.SendSms(ctx, port.SmsMessage{PhoneNumber: login.PhoneNumber, Body: body})
	default:
		if s.email == nil {
			return
		}
		err = s.email.SendEmail(ctx, port.EmailMessage{Recipient: login.EmailAddress, Subject: subject, HTML: body})
	}
	if err != nil {
		s.logger.Warn("verified confirmation failed",
			zap.String("recipient", logger.MaskString(login.EmailAddress+login.PhoneNumber)),
			zap.Error(err),
		)
	}
}

func (s *VerificationService) observeFinish() {
	if s.metrics != nil {
		s.metrics.ObserveSecurityEvent(string(domain.SecurityEventVerificationAttempt))
	}
}
