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

const lockoutRateLimitScope = "lockout"

// ErrAuthUnavailable indicates the service is not properly configured.
var ErrAuthUnavailable = errors.New("authentication service unavailable")

// AuthService authenticates logins and maintains the lockout escalation policy.
type AuthService struct {
	cfg        *config.AppConfig
	logins     port.LoginRepository
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	hasher     domain.PasswordHasher
	metrics    *telemetry.Provider
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(cfg *config.AppConfig, logins port.LoginRepository, rateLimits port.RateLimitStore, events port.EventPublisher, hasher domain.PasswordHasher, metrics *telemetry.Provider, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		cfg:        cfg,
		logins:     logins,
		rateLimits: rateLimits,
		events:     events,
		hasher:     hasher,
		metrics:    metrics,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// AuthenticateWithUsername checks a username/password pair.
func (s *AuthService) AuthenticateWithUsername(ctx context.Context, tenant, username, password string) (domain.AuthenticationResult, error) {
	return s.authenticate(ctx, tenant, username, domain.IdentificationUsername,
		func(ctx context.Context) (*domain.Login, error) {
			return s.logins.LoginByUsername(ctx, tenant, username)
		},
		true,
		func(login *domain.Login) bool {
			return login.MatchesPassword(password, s.hasher)
		},
	)
}

// AuthenticateWithEmail checks an email/password pair.
func (s *AuthService) AuthenticateWithEmail(ctx context.Context, tenant, email, password string) (domain.AuthenticationResult, error) {
	return s.authenticate(ctx, tenant, email, domain.IdentificationEmail,
		func(ctx context.Context) (*domain.Login, error) {
			return s.logins.LoginByEmail(ctx, tenant, email)
		},
		true,
		func(login *domain.Login) bool {
			return login.MatchesPassword(password, s.hasher)
		},
	)
}

// AuthenticateWithPhoneCode checks a phone number and one-time code pair. The
// code is consumed on success.
func (s *AuthService) AuthenticateWithPhoneCode(ctx context.Context, tenant, phone, code string) (domain.AuthenticationResult, error) {
	return s.authenticate(ctx, tenant, phone, domain.IdentificationPhoneNumber,
		func(ctx context.Context) (*domain.Login, error) {
			return s.logins.LoginByPhone(ctx, tenant, phone)
		},
		false,
		func(login *domain.Login) bool {
			return login.MatchesCode(code)
		},
	)
}

func (s *AuthService) authenticate(ctx context.Context, tenant, identification string, idType domain.IdentificationType, lookup func(context.Context) (*domain.Login, error), wantPassword bool, matches func(*domain.Login) bool) (domain.AuthenticationResult, error) {
	if s.logins == nil || s.hasher == nil {
		return domain.AuthenticationResult{}, ErrAuthUnavailable
	}

	now := s.now().UTC()

	limit, window := 0, time.Duration(0)
	if s.cfg != nil {
		limit = s.cfg.RateLimit.LoginMaxAttempts
		window = s.cfg.RateLimit.WindowDuration
	}
	scopeKey := fmt.Sprintf("%s:%s", tenant, identification)
	if err := enforceRateLimit(ctx, s.rateLimits, s.logger, loginRateLimitScope, scopeKey, limit, window, now); err != nil {
		return domain.AuthenticationResult{}, err
	}

	login, err := lookup(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.AuthenticationResult{}, fmt.Errorf("lookup login: %w", err)
	}

	result := domain.AuthenticationResult{Result: domain.AuthNotFound, Message: "no login found for the given identification"}
	var account *domain.UserAccount

	if login != nil {
		account, err = s.logins.AccountByID(ctx, login.AccountID)
		if err != nil {
			return domain.AuthenticationResult{}, fmt.Errorf("lookup account: %w", err)
		}
		result = s.evaluate(ctx, login, account, now, wantPassword, matches)
	}

	if err := s.recordAttempt(ctx, tenant, identification, idType, login, result.Result, now); err != nil {
		return domain.AuthenticationResult{}, err
	}

	switch result.Result {
	case domain.AuthValidCredentials, domain.AuthGoodButRequiresTwoFactor:
		if !wantPassword {
			login.ConsumeCode()
			if err := s.logins.UpdateLogin(ctx, login); err != nil {
				return domain.AuthenticationResult{}, fmt.Errorf("consume login code: %w", err)
			}
		}
	case domain.AuthInvalidCredentials, domain.AuthInvalidRequiresTwoFactor:
		s.registerFailure(ctx, tenant, identification, account, now)
	}

	if s.metrics != nil {
		s.metrics.ObserveAuthAttempt(tenant, string(result.Result))
		s.metrics.ObserveSecurityEvent(string(domain.SecurityEventLoginAttempt))
	}

	return result, nil
}

// evaluate applies the credential checks against a resolved login. The guard
// order is fixed; the first failing guard decides the result.
func (s *AuthService) evaluate(ctx context.Context, login *domain.Login, account *domain.UserAccount, now time.Time, wantPassword bool, matches func(*domain.Login) bool) domain.AuthenticationResult {
	switch {
	case !login.Active:
		return domain.AuthenticationResult{Result: domain.AuthAccountNotActive, Message: "the login is not active"}
	case !login.Verified:
		return domain.AuthenticationResult{Result: domain.AuthLoginNotVerified, Message: "the login has not been verified"}
	case account.IsLockedOut(now) || login.IsLockedOut(now):
		return domain.AuthenticationResult{Result: domain.AuthAccountLockedOut, Message: "the account is locked out"}
	case wantPassword != login.Kind.UsesPassword():
		return domain.AuthenticationResult{Result: domain.AuthIncorrectType, Message: "the login does not support this authentication type"}
	}

	match := matches(login)

	twoFactor := false
	if all, err := s.logins.LoginsForAccount(ctx, login.AccountID); err != nil {
		s.logger.Warn("two-factor lookup failed", zap.Int64("account_id", login.AccountID), zap.Error(err))
	} else {
		twoFactor = domain.RequiresTwoFactorAuth(all)
	}

	switch {
	case match && twoFactor:
		return domain.AuthenticationResult{Result: domain.AuthGoodButRequiresTwoFactor, Message: "credentials are valid but a second factor is required"}
	case match:
		return domain.AuthenticationResult{Result: domain.AuthValidCredentials}
	case twoFactor:
		return domain.AuthenticationResult{Result: domain.AuthInvalidRequiresTwoFactor, Message: "invalid credentials"}
	default:
		return domain.AuthenticationResult{Result: domain.AuthInvalidCredentials, Message: "invalid credentials"}
	}
}

func (s *AuthService) recordAttempt(ctx context.Context, tenant, identification string, idType domain.IdentificationType, login *domain.Login, result domain.AuthenticationResultType, now time.Time) error {
	event := &domain.SecurityEvent{
		Tenant:             tenant,
		EventTime:          now,
		Identification:     identification,
		IdentificationType: idType,
		AuthResult:         &result,
	}
	if login != nil {
		loginID := login.ID
		event.LoginID = &loginID
	}

	if err := s.logins.RecordLoginAttempt(ctx, event); err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	return nil
}

// registerFailure counts a credential failure and escalates to an account
// lockout once the configured threshold is crossed.
func (s *AuthService) registerFailure(ctx context.Context, tenant, identification string, account *domain.UserAccount, now time.Time) {
	if s.rateLimits == nil || s.cfg == nil || account == nil {
		return
	}

	maxFailures := s.cfg.Lockout.MaxFailures
	if maxFailures <= 0 {
		return
	}

	window := s.cfg.Lockout.Window
	if window <= 0 {
		window = 15 * time.Minute
	}

	storageKey := fmt.Sprintf("%s:%s:%s", lockoutRateLimitScope, tenant, normalizeIdentifierKey(identification))

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("lockout record failed", zap.Error(err))
		return
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("lockout count failed", zap.Error(err))
		return
	}

	if count < maxFailures {
		return
	}

	until := now.Add(s.cfg.Lockout.Duration)
	account.LockOutUntil(until)
	if err := s.logins.UpdateAccount(ctx, account); err != nil {
		s.logger.Warn("persist lockout failed", zap.Int64("account_id", account.ID), zap.Error(err))
		return
	}

	s.logger.Info("account locked out",
		zap.Int64("account_id", account.ID),
		zap.String("identification", logger.MaskString(identification)),
		zap.Time("until", until),
	)

	if s.metrics != nil {
		s.metrics.ObserveLockout()
	}

	if s.events != nil {
		event := domain.AccountLockedEvent{
			EventID:   uuid.NewString(),
			AccountID: account.ID,
			Tenant:    tenant,
			LockedAt:  now,
			Until:     until,
			Reason:    "authentication_failures",
		}
		if err := s.events.PublishAccountLocked(ctx, event); err != nil {
			s.logger.Warn("publish account locked event failed", zap.Int64("account_id", account.ID), zap.Error(err))
		}
	}
}
