package socialconnections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoUpsertForeignRowIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectExec("ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs("page-1", "c1", "Page", "page", "tok", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	err = repo.Upsert(context.Background(), Connection{ID: "page-1", CompanyID: "c1", PlatformName: "Page", PlatformType: "page", Token: "tok", CreatedAt: now})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCountByType(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("GROUP BY platform_type").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"platform_type", "count"}).
			AddRow("page", 2).
			AddRow("user", 1))

	counts, err := (&PGRepo{DB: db}).CountByType(context.Background(), "c1")
	if err != nil || len(counts) != 2 || counts[0].Count != 2 {
		t.Fatalf("CountByType = %+v, %v", counts, err)
	}
}
