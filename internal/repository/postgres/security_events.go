package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
	"github.com/arklim/social-platform-membership/internal/repository"
)

var securityEventColumns = []string{
	"id",
	"kind",
	"tenant",
	"event_time",
	"identification",
	"identification_type",
	"login_id",
	"auth_result",
	"verification_request_result",
	"verification_finish_result",
	"reset_request_result",
	"reset_finish_result",
	"finish_time",
}

func securityEventValues(event *domain.SecurityEvent) []any {
	return []any{
		string(event.Kind),
		event.Tenant,
		event.EventTime,
		event.Identification,
		string(event.IdentificationType),
		event.LoginID,
		event.AuthResult,
		event.VerificationRequestResult,
		event.VerificationFinishResult,
		event.ResetRequestResult,
		event.ResetFinishResult,
		event.FinishTime,
	}
}

func scanSecurityEvent(row pgx.Row) (*domain.SecurityEvent, error) {
	var (
		event  domain.SecurityEvent
		kind   string
		idType string
	)

	if err := row.Scan(
		&event.ID,
		&kind,
		&event.Tenant,
		&event.EventTime,
		&event.Identification,
		&idType,
		&event.LoginID,
		&event.AuthResult,
		&event.VerificationRequestResult,
		&event.VerificationFinishResult,
		&event.ResetRequestResult,
		&event.ResetFinishResult,
		&event.FinishTime,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan security event: %w", err)
	}

	event.Kind = domain.SecurityEventKind(kind)
	event.IdentificationType = domain.IdentificationType(idType)
	return &event, nil
}

func (r *LoginRepository) insertSecurityEvent(ctx context.Context, event *domain.SecurityEvent) error {
	stmt, args, err := r.builder.Insert("membership.security_events").
		Columns(securityEventColumns[1:]...).
		Values(securityEventValues(event)...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert security event sql: %w", err)
	}

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&event.ID); err != nil {
		return fmt.Errorf("insert security event: %w", err)
	}

	return nil
}

// RecordLoginAttempt stores a single-phase login attempt record.
func (r *LoginRepository) RecordLoginAttempt(ctx context.Context, event *domain.SecurityEvent) error {
	event.Kind = domain.SecurityEventLoginAttempt
	return r.insertSecurityEvent(ctx, event)
}

// RecordVerificationRequest stores the request half of a verification attempt.
func (r *LoginRepository) RecordVerificationRequest(ctx context.Context, event *domain.SecurityEvent) error {
	event.Kind = domain.SecurityEventVerificationAttempt
	return r.insertSecurityEvent(ctx, event)
}

// RecordPasswordResetRequest stores the request half of a password-reset attempt.
func (r *LoginRepository) RecordPasswordResetRequest(ctx context.Context, event *domain.SecurityEvent) error {
	event.Kind = domain.SecurityEventPasswordResetAttempt
	return r.insertSecurityEvent(ctx, event)
}

// openRequestQuery selects the most recent open request half matching the
// finish address. A request half is open while its finish columns are null.
func (r *LoginRepository) openRequestQuery(kind domain.SecurityEventKind, requestColumn, requestResult, finishColumn string, finish port.SecurityEventFinish) squirrel.SelectBuilder {
	identityMatch := squirrel.Or{squirrel.Eq{"identification": finish.Identification}}
	if finish.LoginID != nil {
		identityMatch = append(identityMatch, squirrel.Eq{"login_id": *finish.LoginID})
	}

	return r.builder.Select(securityEventColumns...).
		From("membership.security_events").
		Where(squirrel.Eq{
			"kind":                kind,
			"tenant":              finish.Tenant,
			"identification_type": string(finish.IdentificationType),
			requestColumn:         requestResult,
			finishColumn:          nil,
			"finish_time":         nil,
		}).
		Where(identityMatch).
		OrderBy("event_time DESC", "id DESC").
		Limit(1)
}

func (r *LoginRepository) closeOrOrphan(
	ctx context.Context,
	kind domain.SecurityEventKind,
	requestColumn, requestResult, finishColumn, finishResult string,
	finish port.SecurityEventFinish,
	orphan *domain.SecurityEvent,
) (*domain.SecurityEvent, error) {
	stmt, args, err := r.openRequestQuery(kind, requestColumn, requestResult, finishColumn, finish).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select open request sql: %w", err)
	}

	open, err := scanSecurityEvent(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == repository.ErrNotFound {
			if err := r.insertSecurityEvent(ctx, orphan); err != nil {
				return nil, err
			}
			return orphan, nil
		}
		return nil, err
	}

	update := r.builder.Update("membership.security_events").
		Set(finishColumn, finishResult).
		Set("finish_time", finish.FinishTime).
		Where(squirrel.Eq{"id": open.ID})
	if open.LoginID == nil && finish.LoginID != nil {
		update = update.Set("login_id", *finish.LoginID)
	}

	stmt, args, err = update.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build close request sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("close security event: %w", err)
	}

	finishTime := finish.FinishTime
	open.FinishTime = &finishTime
	if open.LoginID == nil {
		open.LoginID = finish.LoginID
	}
	return open, nil
}

// RecordVerificationFinish closes the matching open verification request, or
// records an orphaned, already-closed attempt when none is open.
func (r *LoginRepository) RecordVerificationFinish(ctx context.Context, finish port.SecurityEventFinish, result domain.VerificationResultType) (*domain.SecurityEvent, error) {
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

	event, err := r.closeOrOrphan(
		ctx,
		domain.SecurityEventVerificationAttempt,
		"verification_request_result", string(domain.VerificationRequestNewCodeCreated),
		"verification_finish_result", string(result),
		finish,
		orphan,
	)
	if err != nil {
		return nil, err
	}

	if event.VerificationFinishResult == nil {
		event.VerificationFinishResult = &result
	}
	return event, nil
}

// RecordPasswordResetFinish closes the matching open reset request, or records
// an orphaned, already-closed attempt when none is open.
func (r *LoginRepository) RecordPasswordResetFinish(ctx context.Context, finish port.SecurityEventFinish, result domain.PasswordResetFinishType) (*domain.SecurityEvent, error) {
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

	event, err := r.closeOrOrphan(
		ctx,
		domain.SecurityEventPasswordResetAttempt,
		"reset_request_result", string(domain.PasswordResetRequestCodeIssued),
		"reset_finish_result", string(result),
		finish,
		orphan,
	)
	if err != nil {
		return nil, err
	}

	if event.ResetFinishResult == nil {
		event.ResetFinishResult = &result
	}
	return event, nil
}
