package socialconnections

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const connectionColumns = `id, company_id, platform_name, platform_type, platform_token, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, c Connection) error {
	const query = `
INSERT INTO social_connections (id, company_id, platform_name, platform_type, platform_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.DB.ExecContext(ctx, query, c.ID, c.CompanyID, c.PlatformName, c.PlatformType, c.Token, c.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PGRepo) Upsert(ctx context.Context, c Connection) error {
	const query = `
INSERT INTO social_connections (id, company_id, platform_name, platform_type, platform_token, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (id) DO UPDATE SET
  platform_name = EXCLUDED.platform_name,
  platform_type = EXCLUDED.platform_type,
  platform_token = EXCLUDED.platform_token,
  updated_at = EXCLUDED.updated_at
WHERE social_connections.company_id = EXCLUDED.company_id`
	res, err := r.DB.ExecContext(ctx, query, c.ID, c.CompanyID, c.PlatformName, c.PlatformType, c.Token, c.CreatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, companyID, id string) (Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE id = $1 AND company_id = $2`
	c, err := scanConnection(r.DB.QueryRowContext(ctx, query, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return Connection{}, ErrNotFound
	}
	return c, err
}

func (r *PGRepo) List(ctx context.Context, companyID string, types []string) ([]Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM social_connections WHERE company_id = $1`
	args := []any{companyID}
	if len(types) > 0 {
		query += ` AND platform_type IN (` + db.Placeholders(2, len(types)) + `)`
		args = append(args, db.StringArgs(types)...)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) TypeExists(ctx context.Context, companyID, platformType string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM social_connections WHERE company_id = $1 AND platform_type = $2)`,
		companyID, platformType,
	).Scan(&exists)
	return exists, err
}

func (r *PGRepo) CountByType(ctx context.Context, companyID string) ([]TypeCount, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT platform_type, COUNT(*) FROM social_connections
WHERE company_id = $1
GROUP BY platform_type
ORDER BY platform_type`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.PlatformType, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *PGRepo) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM social_connections WHERE id = $1 AND company_id = $2`, id, companyID)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(row scanner) (Connection, error) {
	var c Connection
	err := row.Scan(&c.ID, &c.CompanyID, &c.PlatformName, &c.PlatformType, &c.Token, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
