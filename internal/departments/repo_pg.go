package departments

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const departmentColumns = `id, company_id, department_name, description, department_profile_uri, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, d Department) error {
	const query = `
INSERT INTO departments (id, company_id, department_name, description, department_profile_uri, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.DB.ExecContext(ctx, query,
		d.ID,
		d.CompanyID,
		d.Name,
		nullableString(d.Description),
		nullableString(d.ProfileURI),
		d.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, companyID, id string) (Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1 AND company_id = $2 LIMIT 1`
	d, err := scanDepartment(r.DB.QueryRowContext(ctx, query, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return Department{}, ErrNotFound
	}
	return d, err
}

func (r *PGRepo) List(ctx context.Context, companyID string) ([]Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE company_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, d Department) error {
	const query = `
UPDATE departments SET
  department_name = $3,
  description = $4,
  department_profile_uri = $5,
  updated_at = now()
WHERE id = $1 AND company_id = $2`
	res, err := r.DB.ExecContext(ctx, query, d.ID, d.CompanyID, d.Name, nullableString(d.Description), nullableString(d.ProfileURI))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM departments WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) Names(ctx context.Context, companyID string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT id, department_name FROM departments WHERE company_id = $1 AND id IN (` + db.Placeholders(2, len(ids)) + `)`
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

func scanDepartment(row scanner) (Department, error) {
	var d Department
	var description, profileURI sql.NullString
	if err := row.Scan(&d.ID, &d.CompanyID, &d.Name, &description, &profileURI, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Department{}, err
	}
	d.Description = description.String
	d.ProfileURI = profileURI.String
	return d, nil
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
