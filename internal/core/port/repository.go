package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-membership/internal/core/domain"
)

// SecurityEventFinish addresses the open request half that a finish half
// should close. LoginID may be nil when the attempt resolved no login.
type SecurityEventFinish struct {
	Tenant             string
	Identification     string
	IdentificationType domain.IdentificationType
	LoginID            *int64
	FinishTime         time.Time
}

// LoginRepository exposes persistence behavior for accounts, logins, and the
// security-event audit log.
//
// The two Record*Finish operations implement the find-open-or-create rule:
// the most recent open request half for the same tenant and identification
// type that matches the login or identification is closed in place; when none
// exists a new, already-closed record is created. An orphaned finish-only
// record is a normal outcome, not an error.
type LoginRepository interface {
	AddAccount(ctx context.Context, account *domain.UserAccount) error
	AccountByID(ctx context.Context, id int64) (*domain.UserAccount, error)
	UpdateAccount(ctx context.Context, account *domain.UserAccount) error

	AddLogin(ctx context.Context, login *domain.Login) error
	UpdateLogin(ctx context.Context, login *domain.Login) error
	LoginsForAccount(ctx context.Context, accountID int64) ([]*domain.Login, error)

	LoginByUsername(ctx context.Context, tenant, username string) (*domain.Login, error)
	LoginByEmail(ctx context.Context, tenant, email string) (*domain.Login, error)
	LoginByPhone(ctx context.Context, tenant, phone string) (*domain.Login, error)
	LoginByVerificationCode(ctx context.Context, tenant, code string) (*domain.Login, error)
	LoginByResetCodeHash(ctx context.Context, tenant, codeHash string) (*domain.Login, error)

	RecordLoginAttempt(ctx context.Context, event *domain.SecurityEvent) error
	RecordVerificationRequest(ctx context.Context, event *domain.SecurityEvent) error
	RecordVerificationFinish(ctx context.Context, finish SecurityEventFinish, result domain.VerificationResultType) (*domain.SecurityEvent, error)
	RecordPasswordResetRequest(ctx context.Context, event *domain.SecurityEvent) error
	RecordPasswordResetFinish(ctx context.Context, finish SecurityEventFinish, result domain.PasswordResetFinishType) (*domain.SecurityEvent, error)
}
