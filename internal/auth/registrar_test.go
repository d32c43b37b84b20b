package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
)

func TestPGRegistrarCommitsBothRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO companies").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := &PGRegistrar{DB: db}
	now := time.Now().UTC()
	company := companies.Company{ID: "c1", CompanyName: "Butter", Subdomain: "butter", Status: companies.StatusPending, CreatedAt: now}
	owner := users.User{ID: "u1", CompanyID: "c1", Email: "owner@butter.test", Role: "OWNER", Status: users.StatusActive, CreatedAt: now}
	if err := r.Register(context.Background(), company, owner); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRegistrarRollsBackOnEmailConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO companies").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	mock.ExpectRollback()

	r := &PGRegistrar{DB: db}
	err = r.Register(context.Background(), companies.Company{ID: "c1"}, users.User{ID: "u1", CompanyID: "c1"})
	if !errors.Is(err, users.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGResetStoreMarkUsedOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE password_reset_tokens SET used_at").
		WithArgs("hash", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := &PGResetStore{DB: db}
	if err := store.MarkUsed(context.Background(), "hash", at); !errors.Is(err, ErrResetNotFound) {
		t.Fatalf("expected ErrResetNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
