package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/infra/logger"
	"github.com/arklim/social-platform-membership/internal/infra/telemetry"
	"github.com/arklim/social-platform-membership/internal/repository"
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{2,31}$`)
)

// ErrAccountUnavailable indicates the service is not properly configured.
var ErrAccountUnavailable = errors.New("account service unavailable")

// AccountService creates accounts and manages their email addresses.
type AccountService struct {
	logins    port.LoginRepository
	events    port.EventPublisher
	email     port.EmailService
	formatter port.MessageFormatter
	hasher    domain.PasswordHasher
	validator domain.PasswordValidator
	issuer    domain.CodeIssuer
	metrics   *telemetry.Provider
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccountService constructs an AccountService.
func NewAccountService(logins port.LoginRepository, events port.EventPublisher, email port.EmailService, formatter port.MessageFormatter, hasher domain.PasswordHasher, validator domain.PasswordValidator, issuer domain.CodeIssuer, metrics *telemetry.Provider, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		logins:    logins,
		events:    events,
		email:     email,
		formatter: formatter,
		hasher:    hasher,
		validator: validator,
		issuer:    issuer,
		metrics:   metrics,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AccountService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// CreateEmailAccount creates an account with an email/password login. The login
// starts unverified; a verification code is issued and emailed. Nothing is
// persisted when the email or password is rejected.
func (s *AccountService) CreateEmailAccount(ctx context.Context, tenant, email, password, displayName string) (domain.AccountCreationResult, error) {
	if s.logins == nil || s.hasher == nil || s.validator == nil || s.issuer == nil {
		return domain.AccountCreationResult{}, ErrAccountUnavailable
	}

	now := s.now().UTC()

	if !emailPattern.MatchString(email) {
		return domain.AccountCreationResult{
			Result:  domain.AccountCreationInvalidEmail,
			Message: "the email address is not valid",
		}, nil
	}

	account := &domain.UserAccount{
		Tenant:         tenant,
		DisplayName:    displayName,
		CreationTime:   now,
		LastUpdateTime: now,
	}
	login := &domain.Login{
		Tenant:               tenant,
		Kind:                 domain.LoginKindEmailPassword,
		RequiresVerification: true,
		Active:               true,
		CreationTime:         now,
		EmailAddress:         email,
	}

	setResult, err := login.SetPassword(password, s.hasher, s.validator, false, now)
	if err != nil {
		return domain.AccountCreationResult{}, fmt.Errorf("set password: %w", err)
	}
	if !setResult.Successful() {
		return domain.AccountCreationResult{
			Result:      domain.AccountCreationInvalidPassword,
			SetPassword: setResult,
			Message:     "the password does not meet the policy",
		}, nil
	}

	requestResult, err := login.RequestVerificationCode(s.issuer)
	if err != nil {
		return domain.AccountCreationResult{}, fmt.Errorf("issue verification code: %w", err)
	}

	if err := s.logins.AddAccount(ctx, account); err != nil {
		return domain.AccountCreationResult{}, fmt.Errorf("create account: %w", err)
	}
	login.AccountID = account.ID
	if err := s.logins.AddLogin(ctx, login); err != nil {
		return domain.AccountCreationResult{}, fmt.Errorf("create login: %w", err)
	}

	if err := s.recordVerificationRequest(ctx, login, requestResult.Result, now); err != nil {
		return domain.AccountCreationResult{}, err
	}

	codeSent := s.sendVerificationEmail(ctx, login)

	s.publishAccountCreated(ctx, account, login, codeSent, now)

	result := domain.AccountCreationResult{
		Result:      domain.AccountCreatedAndSentCode,
		AccountID:   account.ID,
		LoginID:     login.ID,
		SetPassword: setResult,
	}
	if !codeSent {
		result.Result = domain.AccountCreatedButCodeNotSent
		result.Message = "the account was created but the verification code could not be sent"
	}
	return result, nil
}

// CreateUsernameAccount creates an account with a username/password login.
// Username logins have no delivery channel for a verification code, so they
// are verified on creation.
func (s *AccountService) CreateUsernameAccount(ctx context.Context, tenant, username, password, displayName string) (domain.AccountCreationResult, error) {
	if s.logins == nil || s.hasher == nil || s.validator == nil {
		return domain.AccountCreationResult{}, ErrAccountUnavailable
	}

	now := s.now().UTC()

	if !usernamePattern.MatchString(username) {
		return domain.AccountCreationResult{
			Result:  domain.AccountCreationInvalidUsername,
			Message: "the username is not valid",
		}, nil
	}

	account := &domain.UserAccount{
		Tenant:         tenant,
		DisplayName:    displayName,
		CreationTime:   now,
		LastUpdateTime: now,
	}
	login := &domain.Login{
		Tenant:       tenant,
		Kind:         domain.LoginKindUsernamePassword,
		Verified:     true,
		Active:       true,
		CreationTime: now,
		Username:     username,
	}

	setResult, err := login.SetPassword(password, s.hasher, s.validator, false, now)
	if err != nil {
		return domain.AccountCreationResult{}, fmt.Errorf("set password: %w", err)
	}
	if !setResult.Successful() {
		return domain.AccountCreationResult{
			Result:      domain.AccountCreationInvalidPassword,
			SetPassword: setResult,
			Message:     "the password does not meet the policy",
		}, nil
	}

	if err := s.logins.AddAccount(ctx, account); err != nil {
		return domain.AccountCreationResult{}, fmt.Errorf("create account: %w", err)
	}
	login.AccountID = account.ID
	if err := s.logins.AddLogin(ctx, login); err != nil {
		return domain.AccountCreationResult{}, fmt.Errorf("create login: %w", err)
	}

	s.publishAccountCreated(ctx, account, login, false, now)

	return domain.AccountCreationResult{
		Result:      domain.AccountCreatedAndSentCode,
		AccountID:   account.ID,
		LoginID:     login.ID,
		SetPassword: setResult,
		Message:     "username logins are verified on creation",
	}, nil
}

// SetEmailAddress changes the email address of the login currently registered
// under the given address. The login becomes unverified again when it requires
// verification.
func (s *AccountService) SetEmailAddress(ctx context.Context, tenant, currentEmail, newEmail string) (domain.SetEmailResult, error) {
	if s.logins == nil {
		return domain.SetEmailResult{}, ErrAccountUnavailable
	}

	login, err := s.logins.LoginByEmail(ctx, tenant, currentEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.SetEmailResult{}, err
		}
		return domain.SetEmailResult{}, fmt.Errorf("lookup login: %w", err)
	}

	if !login.Active {
		return domain.SetEmailResult{
			Result:  domain.SetEmailLoginNotActive,
			Message: "the login is not active",
		}, nil
	}
	if !emailPattern.MatchString(newEmail) {
		return domain.SetEmailResult{
			Result:  domain.SetEmailNotValid,
			Message: "the email address is not valid",
		}, nil
	}

	login.EmailAddress = newEmail
	if login.RequiresVerification {
		login.Verified = false
	}
	if err := s.logins.UpdateLogin(ctx, login); err != nil {
		return domain.SetEmailResult{}, fmt.Errorf("update login: %w", err)
	}

	return domain.SetEmailResult{Result: domain.SetEmailValid}, nil
}

func (s *AccountService) recordVerificationRequest(ctx context.Context, login *domain.Login, result domain.VerificationRequestResultType, now time.Time) error {
	identification, idType := login.Identification()
	loginID := login.ID
	event := &domain.SecurityEvent{
		Tenant:                    login.Tenant,
		EventTime:                 now,
		Identification:            identification,
		IdentificationType:        idType,
		LoginID:                   &loginID,
		VerificationRequestResult: &result,
	}
	if err := s.logins.RecordVerificationRequest(ctx, event); err != nil {
		return fmt.Errorf("record verification request: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveSecurityEvent(string(domain.SecurityEventVerificationAttempt))
	}
	return nil
}

func (s *AccountService) sendVerificationEmail(ctx context.Context, login *domain.Login) bool {
	if s.email == nil || s.formatter == nil || login.VerificationCode == nil {
		return false
	}

	subject, body := s.formatter.VerificationMessage(login, *login.VerificationCode)
	err := s.email.SendEmail(ctx, port.EmailMessage{
		Recipient: login.EmailAddress,
		Subject:   subject,
		HTML:      body,
	})
	if err != nil {
		s.logger.Warn("verification email failed",
			zap.String("email", logger.MaskEmail(login.EmailAddress)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *AccountService) publishAccountCreated(ctx context.Context, account *domain.UserAccount, login *domain.Login, codeSent bool, now time.Time) {
	if s.events == nil {
		return
	}

	event := domain.AccountCreatedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		LoginID:     login.ID,
		Tenant:      account.Tenant,
		DisplayName: account.DisplayName,
		Email:       stringPtrOrNil(login.EmailAddress),
		CodeSent:    codeSent,
		CreatedAt:   now,
	}
	if err := s.events.PublishAccountCreated(ctx, event); err != nil {
		s.logger.Warn("publish account created event failed", zap.Int64("account_id", account.ID), zap.Error(err))
	}
}
