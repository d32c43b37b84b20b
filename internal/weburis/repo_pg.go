package weburis

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const resourceColumns = `id, company_id, uri, status, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, res Resource) error {
	const query = `
INSERT INTO weburi_resources (id, company_id, uri, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`
	_, err := r.DB.ExecContext(ctx, query, res.ID, res.CompanyID, res.URI, string(res.Status), res.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, companyID, id string) (Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM weburi_resources WHERE id = $1 AND company_id = $2`
	res, err := scanResource(r.DB.QueryRowContext(ctx, query, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	return res, err
}

func (r *PGRepo) List(ctx context.Context, companyID string, status *Status) ([]Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM weburi_resources WHERE company_id = $1`
	args := []any{companyID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, res Resource) error {
	const query = `
UPDATE weburi_resources SET uri = $3, status = $4, updated_at = now()
WHERE id = $1 AND company_id = $2`
	result, err := r.DB.ExecContext(ctx, query, res.ID, res.CompanyID, res.URI, string(res.Status))
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SetStatus(ctx context.Context, companyID string, ids []string, status Status) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE weburi_resources SET status = $2, updated_at = now()
WHERE company_id = $1 AND id IN (` + db.Placeholders(3, len(ids)) + `)`
	args := append([]any{companyID, string(status)}, db.StringArgs(ids)...)
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (r *PGRepo) Delete(ctx context.Context, companyID, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM weburi_resources WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(row scanner) (Resource, error) {
	var res Resource
	var status string
	if err := row.Scan(&res.ID, &res.CompanyID, &res.URI, &status, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return Resource{}, err
	}
	res.Status = Status(status)
	return res, nil
}
