package messenger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGRepoListConversationsAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM conversations WHERE company_id = \$1 AND customer_id = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("c1", "cust-1", 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"conversation_id", "company_id", "customer_id", "customer_name", "conversation_source",
			"conversation_status", "assigned_status", "assigned_to", "group_id", "starting_time", "ending_time",
			"created_at", "updated_at",
		}).AddRow("conv-1", "c1", "cust-1", "Rahim", "WEB", "active", false, nil, nil, now, nil, now, now))

	repo := &PGRepo{DB: db}
	list, err := repo.ListConversations(context.Background(), "c1", Filter{CustomerID: "cust-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 1 || list[0].AssignedTo != "" || list[0].EndingTime != nil {
		t.Fatalf("unexpected list %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMessagesGroupsByConversation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	cols := []string{"message_id", "conversation_id", "company_id", "sender", "sender_type", "message",
		"message_type", "edit_status", "reply_to_message_id", "message_intend", "time"}
	mock.ExpectQuery(`conversation_id IN \(\$2, \$3\)`).
		WithArgs("c1", "a", "b").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m1", "a", "c1", "x", "HUMAN", "hi", "text", false, nil, "order", now).
			AddRow("m2", "b", "c1", "y", "AI-AGENT", "hello", "text", true, nil, nil, now))

	repo := &PGRepo{DB: db}
	out, err := repo.Messages(context.Background(), "c1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(out["a"]) != 1 || out["a"][0].Intend != "order" || !out["b"][0].Edited {
		t.Fatalf("unexpected grouping %+v", out)
	}

	empty, err := repo.Messages(context.Background(), "c1", nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty map without a query, got %v %v", empty, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateMessageMapsForeignKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("INSERT INTO messages").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectExec("DELETE FROM conversation_tags").
		WithArgs("t1", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	err = repo.CreateMessage(context.Background(), Message{ID: "m1", ConversationID: "missing", CompanyID: "c1", Time: time.Now()})
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if err := repo.DeleteTag(context.Background(), "c1", "t1"); !errors.Is(err, ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}
}
