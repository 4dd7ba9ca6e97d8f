package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/social-platform-membership/internal/core/domain"
	"github.com/arklim/social-platform-membership/internal/core/port"
)

func TestLoginRepository_RecordLoginAttempt(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewLoginRepository(mock)

	loginID := int64(7)
	authResult := domain.AuthInvalidCredentials
	event := &domain.SecurityEvent{
		Tenant:             "tenant-a",
		EventTime:          time.Now().UTC(),
		Identification:     "person@example.com",
		IdentificationType: domain.IdentificationEmail,
		LoginID:            &loginID,
		AuthResult:         &authResult,
	}

	mock.ExpectQuery(`INSERT INTO membership\.security_events`).
		WithArgs(
			string(domain.SecurityEventLoginAttempt),
			event.Tenant,
			event.EventTime,
			event.Identification,
			string(domain.IdentificationEmail),
			&loginID,
			&authResult,
			nil, nil, nil, nil, nil,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(101)))

	if err := repo.RecordLoginAttempt(context.Background(), event); err != nil {
		t.Fatalf("RecordLoginAttempt returned error: %v", err)
	}
	if event.ID != 101 {
		t.Fatalf("expected generated id 101, got %d", event.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginRepository_RecordVerificationFinish_ClosesOpenRequest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewLoginRepository(mock)

	requestTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finishTime := requestTime.Add(time.Minute)
	loginID := int64(7)
	requestResult := domain.VerificationRequestNewCodeCreated

	// Row values follow securityEventColumns order.
	rows := pgxmock.NewRows(securityEventColumns).AddRow(
		int64(200),
		string(domain.SecurityEventVerificationAttempt),
		"tenant-a",
		requestTime,
		"person@example.com",
		string(domain.IdentificationEmail),
		&loginID,
		nil,
		&requestResult,
		nil, nil, nil, nil,
	)

	mock.ExpectQuery(`SELECT .*FROM membership\.security_events`).
		WillReturnRows(rows)

	mock.ExpectExec(`UPDATE membership\.security_events`).
		WithArgs(string(domain.VerificationLoginVerified), finishTime, int64(200)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	event, err := repo.RecordVerificationFinish(context.Background(), port.SecurityEventFinish{
		Tenant:             "tenant-a",
		Identification:     "person@example.com",
		IdentificationType: domain.IdentificationEmail,
		LoginID:            &loginID,
		FinishTime:         finishTime,
	}, domain.VerificationLoginVerified)
	if err != nil {
		t.Fatalf("RecordVerificationFinish returned error: %v", err)
	}

	if event.ID != 200 {
		t.Fatalf("expected open request 200 to close, got %d", event.ID)
	}
	if event.FinishTime == nil || !event.FinishTime.Equal(finishTime) {
		t.Fatalf("unexpected finish time: %v", event.FinishTime)
	}
	if event.VerificationFinishResult == nil || *event.VerificationFinishResult != domain.VerificationLoginVerified {
		t.Fatal("finish result not recorded on returned event")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginRepository_RecordPasswordResetFinish_Orphan(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewLoginRepository(mock)

	finishTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .*FROM membership\.security_events`).
		WillReturnRows(pgxmock.NewRows(securityEventColumns))

	mock.ExpectQuery(`INSERT INTO membership\.security_events`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(301)))

	event, err := repo.RecordPasswordResetFinish(context.Background(), port.SecurityEventFinish{
		Tenant:             "tenant-a",
		Identification:     "bogus-code",
		IdentificationType: domain.IdentificationResetCode,
		FinishTime:         finishTime,
	}, domain.PasswordResetFinishInvalidCode)
	if err != nil {
		t.Fatalf("RecordPasswordResetFinish returned error: %v", err)
	}

	if event.ID != 301 {
		t.Fatalf("expected orphan record id 301, got %d", event.ID)
	}
	if event.Open() {
		t.Fatal("orphan record must be closed")
	}
	if event.Successful() {
		t.Fatal("invalid-code orphan should not be successful")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
