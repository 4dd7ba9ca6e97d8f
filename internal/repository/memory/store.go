package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/repository"
)

// Store is an in-memory LoginRepository. Intended for tests and development;
// all methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	accounts map[int64]*domain.UserAccount
	logins   map[int64]*domain.Login
	events   map[int64]*domain.SecurityEvent

	nextAccountID int64
	nextLoginID   int64
	nextEventID   int64
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*domain.UserAccount),
		logins:   make(map[int64]*domain.Login),
		events:   make(map[int64]*domain.SecurityEvent),
	}
}

func cloneAccount(account *domain.UserAccount) *domain.UserAccount {
	if account == nil {
		return nil
	}
	clone := *account
	if account.Claims != nil {
		clone.Claims = append([]domain.Claim(nil), account.Claims...)
	}
	return &clone
}

func cloneLogin(login *domain.Login) *domain.Login {
	if login == nil {
		return nil
	}
	clone := *login
	if login.Password != nil {
		password := *login.Password
		clone.Password = &password
	}
	return &clone
}

func cloneEvent(event *domain.SecurityEvent) *domain.SecurityEvent {
	if event == nil {
		return nil
	}
	clone := *event
	return &clone
}

// AddAccount assigns the account an ID and stores it.
func (s *Store) AddAccount(_ context.Context, account *domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccountID++
	account.ID = s.nextAccountID
	s.accounts[account.ID] = cloneAccount(account)
	return nil
}

// AccountByID fetches an account by its ID.
func (s *Store) AccountByID(_ context.Context, id int64) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(account), nil
}

// UpdateAccount replaces the stored account.
func (s *Store) UpdateAccount(_ context.Context, account *domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	s.accounts[account.ID] = cloneAccount(account)
	return nil
}

// AddLogin assigns the login an ID and stores it.
func (s *Store) AddLogin(_ context.Context, login *domain.Login) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[login.AccountID]; !ok {
		return repository.ErrNotFound
	}

	s.nextLoginID++
	login.ID = s.nextLoginID
	s.logins[login.ID] = cloneLogin(login)
	return nil
}

// UpdateLogin replaces the stored login.
func (s *Store) UpdateLogin(_ context.Context, login *domain.Login) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logins[login.ID]; !ok {
		return repository.ErrNotFound
	}
	s.logins[login.ID] = cloneLogin(login)
	return nil
}

// LoginsForAccount lists all logins belonging to the account.
func (s *Store) LoginsForAccount(_ context.Context, accountID int64) ([]*domain.Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.Login
	for _, login := range s.logins {
		if login.AccountID == accountID {
			result = append(result, cloneLogin(login))
		}
	}
	return result, nil
}

func (s *Store) findLogin(match func(*domain.Login) bool) (*domain.Login, error) {
	for _, login := range s.logins {
		if match(login) {
			return cloneLogin(login), nil
		}
	}
	return nil, repository.ErrNotFound
}

// LoginByUsername finds a login by tenant and username, case-insensitively.
func (s *Store) LoginByUsername(_ context.Context, tenant, username string) (*domain.Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLogin(func(login *domain.Login) bool {
		return login.Tenant == tenant && login.Username != "" && strings.EqualFold(login.Username, username)
	})
}

// LoginByEmail finds a login by tenant and email address, case-insensitively.
func (s *Store) LoginByEmail(_ context.Context, tenant, email string) (*domain.Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLogin(func(login *domain.Login) bool {
		return login.Tenant == tenant && login.EmailAddress != "" && strings.EqualFold(login.EmailAddress, email)
	})
}

// LoginByPhone finds a login by tenant and phone number.
func (s *Store) LoginByPhone(_ context.Context, tenant, phone string) (*domain.Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLogin(func(login *domain.Login) bool {
		return login.Tenant == tenant && login.PhoneNumber != "" && login.PhoneNumber == phone
	})
}

// LoginByVerificationCode finds the login holding an outstanding verification code.
func (s *Store) LoginByVerificationCode(_ context.Context, tenant, code string) (*domain.Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLogin(func(login *domain.Login) bool {
		return login.Tenant == tenant && login.VerificationCode != nil && *login.VerificationCode == code
	})
}

// LoginByResetCodeHash finds the login whose stored reset-code hash matches.
func (s *Store) LoginByResetCodeHash(_ context.Context, tenant, codeHash string) (*domain.Login, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findLogin(func(login *domain.Login) bool {
		return login.Tenant == tenant &&
			login.Password != nil &&
			login.Password.ResetCodeHash != nil &&
			*login.Password.ResetCodeHash == codeHash
	})
}

func (s *Store) insertEvent(event *domain.SecurityEvent) {
	s.nextEventID++
	event.ID = s.nextEventID
	s.events[event.ID] = cloneEvent(event)
}

// RecordLoginAttempt stores a single-phase login attempt record.
func (s *Store) RecordLoginAttempt(_ context.Context, event *domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.Kind = domain.SecurityEventLoginAttempt
	s.insertEvent(event)
	return nil
}

// RecordVerificationRequest stores the request half of a verification attempt.
func (s *Store) RecordVerificationRequest(_ context.Context, event *domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.Kind = domain.SecurityEventVerificationAttempt
	s.insertEvent(event)
	return nil
}

// RecordPasswordResetRequest stores the request half of a password-reset attempt.
func (s *Store) RecordPasswordResetRequest(_ context.Context, event *domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.Kind = domain.SecurityEventPasswordResetAttempt
	s.insertEvent(event)
	return nil
}

// openRequest finds the most recent open request half matching the finish.
func (s *Store) openRequest(kind domain.SecurityEventKind, finish port.SecurityEventFinish) *domain.SecurityEvent {
	var best *domain.SecurityEvent
	for _, event := range s.events {
		if event.Kind != kind || !event.Open() {
			continue
		}
		if !event.Matches(finish.Tenant, finish.IdentificationType, finish.Identification, finish.LoginID) {
			continue
		}
		if best == nil ||
			event.EventTime.After(best.EventTime) ||
			(event.EventTime.Equal(best.EventTime) && event.ID > best.ID) {
			best = event
		}
	}
	return best
}

// RecordVerificationFinish closes the matching open verification request, or
// records an orphaned, already-closed attempt when none is open.
func (s *Store) RecordVerificationFinish(_ context.Context, finish port.SecurityEventFinish, result domain.VerificationResultType) (*domain.SecurityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event := s.openRequest(domain.SecurityEventVerificationAttempt, finish); event != nil {
		event.VerificationFinishResult = &result
		finishTime := finish.FinishTime
		event.FinishTime = &finishTime
		if event.LoginID == nil {
			event.LoginID = finish.LoginID
		}
		return cloneEvent(event), nil
	}

	finishTime := finish.FinishTime
	orphan := &domain.SecurityEvent{
		Kind:                     domain.SecurityEventVerificationAttempt,
		Tenant:                   finish.Tenant,
		EventTime:                finish.FinishTime,
		Identification:           finish.Identification,
		IdentificationType:       finish.IdentificationType,
		LoginID:                  finish.LoginID,
		VerificationFinishResult: &result,
		FinishTime:               &finishTime,
	}
	s.insertEvent(orphan)
	return cloneEvent(orphan), nil
}

// RecordPasswordResetFinish closes the matching open reset request, or records
// an orphaned, already-closed attempt when none is open.
func (s *Store) RecordPasswordResetFinish(_ context.Context, finish port.SecurityEventFinish, result domain.PasswordResetFinishType) (*domain.SecurityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event := s.openRequest(domain.SecurityEventPasswordResetAttempt, finish); event != nil {
		event.ResetFinishResult = &result
		finishTime := finish.FinishTime
		event.FinishTime = &finishTime
		if event.LoginID == nil {
			event.LoginID = finish.LoginID
		}
		return cloneEvent(event), nil
	}

	finishTime := finish.FinishTime
	orphan := &domain.SecurityEvent{
		Kind:               domain.SecurityEventPasswordResetAttempt,
		Tenant:             finish.Tenant,
		EventTime:          finish.FinishTime,
		Identification:     finish.Identification,
		IdentificationType: finish.IdentificationType,
		LoginID:            finish.LoginID,
		ResetFinishResult:  &result,
		FinishTime:         &finishTime,
	}
	s.insertEvent(orphan)
	return cloneEvent(orphan), nil
}

// Events returns a snapshot of all recorded security events.
func (s *Store) Events() []*domain.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.SecurityEvent, 0, len(s.events))
	for _, event := range s.events {
		result = append(result, cloneEvent(event))
	}
	return result
}

var _ port.LoginRepository = (*Store)(nil)
