package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LoginRepository implements port.LoginRepository using PostgreSQL.
type LoginRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLoginRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewLoginRepository(exec pgExecutor) *LoginRepository {
	repo := &LoginRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *LoginRepository) WithTx(tx pgx.Tx) *LoginRepository {
	if tx == nil {
		return r
	}
	return &LoginRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// AddAccount inserts a new account row and assigns the generated ID.
func (r *LoginRepository) AddAccount(ctx context.Context, account *domain.UserAccount) error {
	claims, err := json.Marshal(account.Claims)
	if err != nil {
		return fmt.Errorf("marshal account claims: %w", err)
	}

	stmt, args, err := r.builder.Insert("membership.accounts").
		Columns(
			"tenant",
			"display_name",
			"creation_time",
			"last_update_time",
			"deletion_time",
			"lockout_end_time",
			"claims",
		).
		Values(
			account.Tenant,
			account.DisplayName,
			account.CreationTime,
			account.LastUpdateTime,
			account.DeletionTime,
			account.LockoutEndTime,
			claims,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&account.ID); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// AccountByID retrieves an account by identifier.
func (r *LoginRepository) AccountByID(ctx context.Context, id int64) (*domain.UserAccount, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"tenant",
			"display_name",
			"creation_time",
			"last_update_time",
			"deletion_time",
			"lockout_end_time",
			"claims",
		).
		From("membership.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		account domain.UserAccount
		claims  []byte
	)

	if err := row.Scan(
		&account.ID,
		&account.Tenant,
		&account.DisplayName,
		&account.CreationTime,
		&account.LastUpdateTime,
		&account.DeletionTime,
		&account.LockoutEndTime,
		&claims,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &account.Claims); err != nil {
			return nil, fmt.Errorf("unmarshal account claims: %w", err)
		}
	}

	return &account, nil
}

// UpdateAccount modifies an existing account's fields.
func (r *LoginRepository) UpdateAccount(ctx context.Context, account *domain.UserAccount) error {
	claims, err := json.Marshal(account.Claims)
	if err != nil {
		return fmt.Errorf("marshal account claims: %w", err)
	}

	stmt, args, err := r.builder.Update("membership.accounts").
		Set("display_name", account.DisplayName).
		Set("last_update_time", account.LastUpdateTime).
		Set("deletion_time", account.DeletionTime).
		Set("lockout_end_time", account.LockoutEndTime).
		Set("claims", claims).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var loginColumns = []string{
	"id",
	"account_id",
	"tenant",
	"kind",
	"verified",
	"requires_verification",
	"active",
	"two_factor",
	"verification_code",
	"lockout_end_time",
	"creation_time",
	"email_address",
	"username",
	"phone_number",
	"password_hash",
	"password_salt",
	"password_iterations",
	"password_set_time",
	"reset_code_hash",
	"reset_request_time",
	"reset_lifetime_seconds",
}

func loginValues(login *domain.Login) []any {
	var (
		passwordHash         []byte
		passwordSalt         []byte
		passwordIterations   *int64
		passwordSetTime      *time.Time
		resetCodeHash        *string
		resetRequestTime     *time.Time
		resetLifetimeSeconds *int64
	)

	if login.Password != nil {
		passwordHash = login.Password.Hash
		passwordSalt = login.Password.Salt
		iterations := int64(login.Password.Iterations)
		passwordIterations = &iterations
		if !login.Password.SetTime.IsZero() {
			setTime := login.Password.SetTime
			passwordSetTime = &setTime
		}
		resetCodeHash = login.Password.ResetCodeHash
		resetRequestTime = login.Password.ResetRequestTime
		lifetime := int64(login.Password.ResetLifetime / time.Second)
		resetLifetimeSeconds = &lifetime
	}

	return []any{
		login.AccountID,
		login.Tenant,
		string(login.Kind),
		login.Verified,
		login.RequiresVerification,
		login.Active,
		login.TwoFactor,
		login.VerificationCode,
		login.LockoutEndTime,
		login.CreationTime,
		nullableString(login.EmailAddress),
		nullableString(login.Username),
		nullableString(login.PhoneNumber),
		passwordHash,
		passwordSalt,
		passwordIterations,
		passwordSetTime,
		resetCodeHash,
		resetRequestTime,
		resetLifetimeSeconds,
	}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func scanLogin(row pgx.Row) (*domain.Login, error) {
	var (
		login                domain.Login
		kind                 string
		email                sql.NullString
		username             sql.NullString
		phone                sql.NullString
		passwordHash         []byte
		passwordSalt         []byte
		passwordIterations   *int64
		passwordSetTime      *time.Time
		resetCodeHash        *string
		resetRequestTime     *time.Time
		resetLifetimeSeconds *int64
	)

	if err := row.Scan(
		&login.ID,
		&login.AccountID,
		&login.Tenant,
		&kind,
		&login.Verified,
		&login.RequiresVerification,
		&login.Active,
		&login.TwoFactor,
		&login.VerificationCode,
		&login.LockoutEndTime,
		&login.CreationTime,
		&email,
		&username,
		&phone,
		&passwordHash,
		&passwordSalt,
		&passwordIterations,
		&passwordSetTime,
		&resetCodeHash,
		&resetRequestTime,
		&resetLifetimeSeconds,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan login: %w", err)
	}

	login.Kind = domain.LoginKind(kind)
	login.EmailAddress = email.String
	login.Username = username.String
	login.PhoneNumber = phone.String

	if passwordHash != nil {
		password := domain.PasswordCredential{
			Hash:          passwordHash,
			Salt:          passwordSalt,
			ResetCodeHash: resetCodeHash,
		}
		if passwordIterations != nil {
			password.Iterations = int(*passwordIterations)
		}
		if passwordSetTime != nil {
			password.SetTime = *passwordSetTime
		}
		if resetRequestTime != nil {
			requestTime := *resetRequestTime
			password.ResetRequestTime = &requestTime
		}
		if resetLifetimeSeconds != nil {
			password.ResetLifetime = time.Duration(*resetLifetimeSeconds) * time.Second
		}
		login.Password = &password
	}

	return &login, nil
}

// AddLogin inserts a new login row and assigns the generated ID.
func (r *LoginRepository) AddLogin(ctx context.Context, login *domain.Login) error {
	stmt, args, err := r.builder.Insert("membership.logins").
		Columns(loginColumns[1:]...).
		Values(loginValues(login)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login sql: %w", err)
	}

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&login.ID); err != nil {
		return fmt.Errorf("insert login: %w", err)
	}

	return nil
}

// UpdateLogin replaces all mutable fields of an existing login.
func (r *LoginRepository) UpdateLogin(ctx context.Context, login *domain.Login) error {
	values := loginValues(login)

	update := r.builder.Update("membership.logins")
	for i, column := range loginColumns[1:] {
		update = update.Set(column, values[i])
	}

	stmt, args, err := update.Where(squirrel.Eq{"id": login.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build update login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// LoginsForAccount lists all logins belonging to the account.
func (r *LoginRepository) LoginsForAccount(ctx context.Context, accountID int64) ([]*domain.Login, error) {
	stmt, args, err := r.builder.Select(loginColumns...).
		From("membership.logins").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select logins sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query logins: %w", err)
	}
	defer rows.Close()

	logins := make([]*domain.Login, 0)
	for rows.Next() {
		login, err := scanLogin(rows)
		if err != nil {
			return nil, err
		}
		logins = append(logins, login)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logins: %w", err)
	}

	return logins, nil
}

func (r *LoginRepository) loginWhere(ctx context.Context, condition squirrel.Sqlizer) (*domain.Login, error) {
	stmt, args, err := r.builder.Select(loginColumns...).
		From("membership.logins").
		Where(condition).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select login sql: %w", err)
	}

	return scanLogin(r.exec.QueryRow(ctx, stmt, args...))
}

// LoginByUsername retrieves a login by tenant and username, case-insensitively.
func (r *LoginRepository) LoginByUsername(ctx context.Context, tenant, username string) (*domain.Login, error) {
	return r.loginWhere(ctx, squirrel.And{
		squirrel.Eq{"tenant": tenant},
		squirrel.Expr("LOWER(username) = LOWER(?)", username),
	})
}

// LoginByEmail retrieves a login by tenant and email address, case-insensitively.
func (r *LoginRepository) LoginByEmail(ctx context.Context, tenant, email string) (*domain.Login, error) {
	return r.loginWhere(ctx, squirrel.And{
		squirrel.Eq{"tenant": tenant},
		squirrel.Expr("LOWER(email_address) = LOWER(?)", email),
	})
}

// LoginByPhone retrieves a login by tenant and phone number.
func (r *LoginRepository) LoginByPhone(ctx context.Context, tenant, phone string) (*domain.Login, error) {
	return r.loginWhere(ctx, squirrel.Eq{"tenant": tenant, "phone_number": phone})
}

// LoginByVerificationCode retrieves the login holding an outstanding verification code.
func (r *LoginRepository) LoginByVerificationCode(ctx context.Context, tenant, code string) (*domain.Login, error) {
	return r.loginWhere(ctx, squirrel.Eq{"tenant": tenant, "verification_code": code})
}

// LoginByResetCodeHash retrieves the login whose stored reset-code hash matches.
func (r *LoginRepository) LoginByResetCodeHash(ctx context.Context, tenant, codeHash string) (*domain.Login, error) {
	return r.loginWhere(ctx, squirrel.Eq{"tenant": tenant, "reset_code_hash": codeHash})
}

var _ port.LoginRepository = (*LoginRepository)(nil)
