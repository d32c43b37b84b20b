package customers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const customerColumns = `id, company_id, name, profile_uri, contact, password, source, conversation_count, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, c Customer) error {
	const query = `
INSERT INTO customers (id, company_id, name, profile_uri, contact, password, source, conversation_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		c.ID,
		c.CompanyID,
		c.Name,
		nullableString(c.ProfileURI),
		c.Contact,
		c.PasswordHash,
		string(c.Source),
		c.CreatedAt,
	)
	switch {
	case db.IsUniqueViolation(err):
		return ErrConflict
	case db.IsForeignKeyViolation(err):
		return ErrCompanyNotFound
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 LIMIT 1`
	return r.one(ctx, query, id)
}

func (r *PGRepo) GetByContact(ctx context.Context, companyID, contact string, source Source) (Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE company_id = $1 AND contact = $2 AND source = $3 LIMIT 1`
	return r.one(ctx, query, companyID, contact, string(source))
}

func (r *PGRepo) one(ctx context.Context, query string, args ...any) (Customer, error) {
	c, err := scanCustomer(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *PGRepo) ListByCompany(ctx context.Context, companyID string) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE company_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, c Customer) error {
	const query = `
UPDATE customers SET
  name = $3,
  profile_uri = $4,
  password = $5,
  updated_at = now()
WHERE id = $1 AND company_id = $2`
	res, err := r.DB.ExecContext(ctx, query, c.ID, c.CompanyID, c.Name, nullableString(c.ProfileURI), c.PasswordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM customers WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) IncrementConversationCount(ctx context.Context, companyID, id string) error {
	const query = `
UPDATE customers SET conversation_count = conversation_count + 1, updated_at = now()
WHERE id = $1 AND company_id = $2`
	res, err := r.DB.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (Customer, error) {
	var c Customer
	var profileURI sql.NullString
	var source string
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &profileURI, &c.Contact, &c.PasswordHash, &source, &c.ConversationCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	c.ProfileURI = profileURI.String
	c.Source = Source(source)
	return c, nil
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
