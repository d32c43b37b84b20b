package aiagents

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const agentColumns = `id, company_id, agent_name, personality, general_instructions, avatar, choice_when_unable,
  conversation_pass_instructions, auto_transfer, transfer_connecting_message, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, a Agent) error {
	const query = `
INSERT INTO ai_agents (id, company_id, agent_name, personality, general_instructions, avatar, choice_when_unable,
  conversation_pass_instructions, auto_transfer, transfer_connecting_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		a.ID, a.CompanyID, a.Name,
		nullableString(a.Personality),
		nullableString(a.GeneralInstructions),
		nullableString(a.Avatar),
		nullableString(a.ChoiceWhenUnable),
		nullableString(a.ConversationPassInstructions),
		nullableString(a.AutoTransfer),
		nullableString(a.TransferConnectingMessage),
		a.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, companyID, id string) (Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM ai_agents WHERE id = $1 AND company_id = $2`
	a, err := scanAgent(r.DB.QueryRowContext(ctx, query, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepo) List(ctx context.Context, companyID string) ([]Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM ai_agents WHERE company_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, a Agent) error {
	const query = `
UPDATE ai_agents SET
  agent_name = $3,
  personality = $4,
  general_instructions = $5,
  avatar = $6,
  choice_when_unable = $7,
  conversation_pass_instructions = $8,
  auto_transfer = $9,
  transfer_connecting_message = $10,
  updated_at = now()
WHERE id = $1 AND company_id = $2`
	res, err := r.DB.ExecContext(ctx, query,
		a.ID, a.CompanyID, a.Name,
		nullableString(a.Personality),
		nullableString(a.GeneralInstructions),
		nullableString(a.Avatar),
		nullableString(a.ChoiceWhenUnable),
		nullableString(a.ConversationPassInstructions),
		nullableString(a.AutoTransfer),
		nullableString(a.TransferConnectingMessage),
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM ai_agents WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (Agent, error) {
	var a Agent
	var personality, instructions, avatar, unable, pass, transfer, connecting sql.NullString
	err := row.Scan(&a.ID, &a.CompanyID, &a.Name, &personality, &instructions, &avatar, &unable,
		&pass, &transfer, &connecting, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Agent{}, err
	}
	a.Personality = personality.String
	a.GeneralInstructions = instructions.String
	a.Avatar = avatar.String
	a.ChoiceWhenUnable = unable.String
	a.ConversationPassInstructions = pass.String
	a.AutoTransfer = transfer.String
	a.TransferConnectingMessage = connecting.String
	return a, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
