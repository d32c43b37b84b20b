package messenger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const conversationColumns = `conversation_id, company_id, customer_id, customer_name, conversation_source,
  conversation_status, assigned_status, assigned_to, group_id, starting_time, ending_time, created_at, updated_at`

const messageColumns = `message_id, conversation_id, company_id, sender, sender_type, message, message_type,
  edit_status, reply_to_message_id, message_intend, time`

func (r *PGRepo) CreateConversation(ctx context.Context, c Conversation) error {
	const query = `
INSERT INTO conversations (conversation_id, company_id, customer_id, customer_name, conversation_source,
  conversation_status, assigned_status, assigned_to, group_id, starting_time, ending_time, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.CompanyID, c.CustomerID, c.CustomerName, c.Source,
		c.Status, c.AssignedStatus, nullableString(c.AssignedTo), nullableString(c.GroupID),
		c.StartingTime, c.EndingTime, c.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetConversation(ctx context.Context, companyID, id string) (Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE conversation_id = $1 AND company_id = $2`
	c, err := scanConversation(r.DB.QueryRowContext(ctx, query, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	return c, err
}

func (r *PGRepo) ListConversations(ctx context.Context, companyID string, filter Filter) ([]Conversation, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + conversationColumns + ` FROM conversations WHERE company_id = $1`)
	args := []any{companyID}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		fmt.Fprintf(&b, ` AND customer_id = $%d`, len(args))
	}
	if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		fmt.Fprintf(&b, ` AND assigned_to = $%d`, len(args))
	}
	b.WriteString(` ORDER BY created_at DESC`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}

	rows, err := r.DB.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateConversation(ctx context.Context, c Conversation) error {
	const query = `
UPDATE conversations SET
  customer_name = $3,
  conversation_source = $4,
  conversation_status = $5,
  assigned_status = $6,
  assigned_to = $7,
  group_id = $8,
  ending_time = $9,
  updated_at = now()
WHERE conversation_id = $1 AND company_id = $2`
	res, err := r.DB.ExecContext(ctx, query,
		c.ID, c.CompanyID, c.CustomerName, c.Source, c.Status, c.AssignedStatus,
		nullableString(c.AssignedTo), nullableString(c.GroupID), c.EndingTime,
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrConversationNotFound)
}

func (r *PGRepo) CreateMessage(ctx context.Context, m Message) error {
	const query = `
INSERT INTO messages (message_id, conversation_id, company_id, sender, sender_type, message, message_type,
  edit_status, reply_to_message_id, message_intend, time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		m.ID, m.ConversationID, m.CompanyID, m.Sender, m.SenderType, m.Text, m.Type,
		m.Edited, nullableString(m.ReplyTo), nullableString(m.Intend), m.Time,
	)
	if db.IsForeignKeyViolation(err) {
		return ErrConversationNotFound
	}
	return err
}

func (r *PGRepo) GetMessage(ctx context.Context, companyID, id string) (Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE message_id = $1 AND company_id = $2`
	m, err := scanMessage(r.DB.QueryRowContext(ctx, query, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrMessageNotFound
	}
	return m, err
}

func (r *PGRepo) UpdateMessage(ctx context.Context, m Message) error {
	const query = `
UPDATE messages SET message = $3, message_type = $4, message_intend = $5, edit_status = $6
WHERE message_id = $1 AND company_id = $2`
	res, err := r.DB.ExecContext(ctx, query, m.ID, m.CompanyID, m.Text, m.Type, nullableString(m.Intend), m.Edited)
	if err != nil {
		return err
	}
	return requireRow(res, ErrMessageNotFound)
}

func (r *PGRepo) Messages(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Message, error) {
	out := make(map[string][]Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	query := `SELECT ` + messageColumns + ` FROM messages
WHERE company_id = $1 AND conversation_id IN (` + db.Placeholders(2, len(conversationIDs)) + `)
ORDER BY time ASC`
	rows, err := r.DB.QueryContext(ctx, query, append([]any{companyID}, db.StringArgs(conversationIDs)...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out[m.ConversationID] = append(out[m.ConversationID], m)
	}
	return out, rows.Err()
}

func (r *PGRepo) CreateTag(ctx context.Context, t Tag) error {
	const query = `
INSERT INTO conversation_tags (tag_id, conversation_id, company_id, tag_name, tag_color, tag_description, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		t.ID, t.ConversationID, t.CompanyID, t.Name,
		nullableString(t.Color), nullableString(t.Description), nullableString(t.CreatedBy), t.CreatedAt,
	)
	if db.IsForeignKeyViolation(err) {
		return ErrConversationNotFound
	}
	return err
}

func (r *PGRepo) DeleteTag(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM conversation_tags WHERE tag_id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrTagNotFound)
}

func (r *PGRepo) Tags(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Tag, error) {
	out := make(map[string][]Tag, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	query := `SELECT tag_id, conversation_id, company_id, tag_name, tag_color, tag_description, created_by, created_at
FROM conversation_tags
WHERE company_id = $1 AND conversation_id IN (` + db.Placeholders(2, len(conversationIDs)) + `)
ORDER BY created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, append([]any{companyID}, db.StringArgs(conversationIDs)...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t Tag
		var color, description, createdBy sql.NullString
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.CompanyID, &t.Name, &color, &description, &createdBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Color, t.Description, t.CreatedBy = color.String, description.String, createdBy.String
		out[t.ConversationID] = append(out[t.ConversationID], t)
	}
	return out, rows.Err()
}

func (r *PGRepo) CreateSummary(ctx context.Context, s Summary) error {
	const query = `
INSERT INTO conversation_summaries (summary_id, conversation_id, company_id, summary_text, summary_type, generated_by, generated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		s.ID, s.ConversationID, s.CompanyID, s.Text,
		nullableString(s.Type), nullableString(s.GeneratedBy), s.GeneratedAt,
	)
	if db.IsForeignKeyViolation(err) {
		return ErrConversationNotFound
	}
	return err
}

func (r *PGRepo) Summaries(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Summary, error) {
	out := make(map[string][]Summary, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	query := `SELECT summary_id, conversation_id, company_id, summary_text, summary_type, generated_by, generated_at
FROM conversation_summaries
WHERE company_id = $1 AND conversation_id IN (` + db.Placeholders(2, len(conversationIDs)) + `)
ORDER BY generated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, append([]any{companyID}, db.StringArgs(conversationIDs)...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s Summary
		var typ, generatedBy sql.NullString
		if err := rows.Scan(&s.ID, &s.ConversationID, &s.CompanyID, &s.Text, &typ, &generatedBy, &s.GeneratedAt); err != nil {
			return nil, err
		}
		s.Type, s.GeneratedBy = typ.String, generatedBy.String
		out[s.ConversationID] = append(out[s.ConversationID], s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (Conversation, error) {
	var c Conversation
	var assignedTo, groupID sql.NullString
	var ending sql.NullTime
	err := row.Scan(&c.ID, &c.CompanyID, &c.CustomerID, &c.CustomerName, &c.Source,
		&c.Status, &c.AssignedStatus, &assignedTo, &groupID, &c.StartingTime, &ending, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Conversation{}, err
	}
	c.AssignedTo, c.GroupID = assignedTo.String, groupID.String
	if ending.Valid {
		t := ending.Time
		c.EndingTime = &t
	}
	return c, nil
}

func scanMessage(row scanner) (Message, error) {
	var m Message
	var replyTo, intend sql.NullString
	err := row.Scan(&m.ID, &m.ConversationID, &m.CompanyID, &m.Sender, &m.SenderType, &m.Text, &m.Type,
		&m.Edited, &replyTo, &intend, &m.Time)
	if err != nil {
		return Message{}, err
	}
	m.ReplyTo, m.Intend = replyTo.String, intend.String
	return m, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
