package customers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoCreateMapsConstraintErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	c := Customer{ID: "u1", CompanyID: "c1", Name: "Ana", Contact: "ana", PasswordHash: "hash", Source: SourceWeb, CreatedAt: now}
	mock.ExpectExec("INSERT INTO customers").
		WithArgs("u1", "c1", "Ana", nil, "ana", "hash", "WEB", now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectExec("INSERT INTO customers").
		WithArgs("u1", "c1", "Ana", nil, "ana", "hash", "WEB", now).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	repo := &PGRepo{DB: db}
	if err := repo.Create(context.Background(), c); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := repo.Create(context.Background(), c); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoIncrementConversationCountScoped(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("conversation_count = conversation_count \\+ 1").
		WithArgs("u1", "c2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	if err := repo.IncrementConversationCount(context.Background(), "c2", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
