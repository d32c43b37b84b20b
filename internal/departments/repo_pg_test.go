package departments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO departments").
		WithArgs("d1", "c1", "Sales", nil, nil, now).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "departments_company_name_key"})

	repo := &PGRepo{DB: db}
	err = repo.Create(context.Background(), Department{ID: "d1", CompanyID: "c1", Name: "Sales", CreatedAt: now})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoNamesIsCompanyScoped(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, department_name FROM departments WHERE company_id").
		WithArgs("c1", "d1", "d2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "department_name"}).AddRow("d1", "Sales"))

	repo := &PGRepo{DB: db}
	names, err := repo.Names(context.Background(), "c1", []string{"d1", "d2"})
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 1 || names["d1"] != "Sales" {
		t.Fatalf("unexpected names %v", names)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("FROM departments WHERE id").
		WithArgs("d1", "c2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "c2", "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
