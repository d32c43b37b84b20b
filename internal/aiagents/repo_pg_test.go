package aiagents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoGetScansNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectQuery("FROM ai_agents WHERE id = \\$1 AND company_id = \\$2").
		WithArgs("a1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "agent_name", "personality", "general_instructions", "avatar", "choice_when_unable",
			"conversation_pass_instructions", "auto_transfer", "transfer_connecting_message", "created_at", "updated_at",
		}).AddRow("a1", "c1", "Bot", "calm", nil, nil, nil, nil, nil, nil, now, now))

	a, err := (&PGRepo{DB: db}).GetByID(context.Background(), "c1", "a1")
	if err != nil || a.Personality != "calm" || a.Avatar != "" {
		t.Fatalf("GetByID = %+v, %v", a, err)
	}
}

func TestPGRepoUpdateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE ai_agents SET").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ai_agents_company_name_key"})

	err = (&PGRepo{DB: db}).Update(context.Background(), Agent{ID: "a1", CompanyID: "c1", Name: "Bot"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
