package shifts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const shiftColumns = `id, company_id, shift_name,
  to_char(shift_start_time, 'HH24:MI:SS'), to_char(shift_end_time, 'HH24:MI:SS'),
  created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, s Shift) error {
	const query = `
INSERT INTO shifts (id, company_id, shift_name, shift_start_time, shift_end_time, created_at, updated_at)
VALUES ($1, $2, $3, $4::time, $5::time, $6, $6)`
	_, err := r.DB.ExecContext(ctx, query, s.ID, s.CompanyID, s.Name, s.StartTime, s.EndTime, s.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, companyID, id string) (Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1 AND company_id = $2 LIMIT 1`
	s, err := scanShift(r.DB.QueryRowContext(ctx, query, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return Shift{}, ErrNotFound
	}
	return s, err
}

func (r *PGRepo) List(ctx context.Context, companyID string) ([]Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE company_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, s Shift) error {
	const query = `
UPDATE shifts SET
  shift_name = $3,
  shift_start_time = $4::time,
  shift_end_time = $5::time,
  updated_at = now()
WHERE id = $1 AND company_id = $2`
	res, err := r.DB.ExecContext(ctx, query, s.ID, s.CompanyID, s.Name, s.StartTime, s.EndTime)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM shifts WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Names(ctx context.Context, companyID string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT id, shift_name FROM shifts WHERE company_id = $1 AND id IN (` + db.Placeholders(2, len(ids)) + `)`
	rows, err := r.DB.QueryContext(ctx, query, append([]any{companyID}, db.StringArgs(ids)...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShift(row scanner) (Shift, error) {
	var s Shift
	err := row.Scan(&s.ID, &s.CompanyID, &s.Name, &s.StartTime, &s.EndTime, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
