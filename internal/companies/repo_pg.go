package companies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const companyColumns = `id, company_name, subdomain, logo, banner, bio, company_category, country, language, timezone, status, created_at, updated_at`

// Insert writes a company using q, so callers can include it in a wider transaction.
func Insert(ctx context.Context, q db.Querier, company Company) error {
	const query = `
INSERT INTO companies (id, company_name, subdomain, logo, banner, bio, company_category, country, language, timezone, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	_, err := q.ExecContext(ctx, query,
		company.ID,
		company.CompanyName,
		company.Subdomain,
		nullableString(company.Logo),
		nullableString(company.Banner),
		nullableString(company.Bio),
		nullableString(company.CompanyCategory),
		nullableString(company.Country),
		nullableString(company.Language),
		nullableString(company.Timezone),
		string(company.Status),
		company.CreatedAt,
	)
	return mapWriteError(err)
}

func (r *PGRepo) Create(ctx context.Context, company Company) error {
	return Insert(ctx, r.DB, company)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 LIMIT 1`
	return scanCompany(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) Update(ctx context.Context, company Company) error {
	const query = `
UPDATE companies SET
  company_name = $2,
  subdomain = $3,
  logo = $4,
  banner = $5,
  bio = $6,
  company_category = $7,
  country = $8,
  language = $9,
  timezone = $10,
  updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		company.ID,
		company.CompanyName,
		company.Subdomain,
		nullableString(company.Logo),
		nullableString(company.Banner),
		nullableString(company.Bio),
		nullableString(company.CompanyCategory),
		nullableString(company.Country),
		nullableString(company.Language),
		nullableString(company.Timezone),
	)
	if err != nil {
		return mapWriteError(err)
	}
	return requireRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PGRepo) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE subdomain = $1)`, subdomain).Scan(&exists)
	return exists, err
}

func (r *PGRepo) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE company_name = $1)`, name).Scan(&exists)
	return exists, err
}

func scanCompany(row *sql.Row) (Company, error) {
	var c Company
	var logo, banner, bio, category, country, language, timezone sql.NullString
	var status string
	err := row.Scan(
		&c.ID,
		&c.CompanyName,
		&c.Subdomain,
		&logo,
		&banner,
		&bio,
		&category,
		&country,
		&language,
		&timezone,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	c.Logo = logo.String
	c.Banner = banner.String
	c.Bio = bio.String
	c.CompanyCategory = category.String
	c.Country = country.String
	c.Language = language.String
	c.Timezone = timezone.String
	c.Status = Status(status)
	return c, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err) {
		switch db.ConstraintName(err) {
		case "companies_subdomain_key":
			return ErrSubdomainTaken
		case "companies_company_name_key":
			return ErrNameTaken
		}
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
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
