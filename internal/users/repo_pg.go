package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, company_id, user_name, email, password, profile_uri, bio, role, status, refresh_token, created_at, updated_at`

// Insert writes user using q, so callers can include it in a wider transaction.
func Insert(ctx context.Context, q db.Querier, user User) error {
	const query = `
INSERT INTO users (id, company_id, user_name, email, password, profile_uri, bio, role, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	_, err := q.ExecContext(ctx, query,
		user.ID,
		user.CompanyID,
		user.UserName,
		user.Email,
		user.PasswordHash,
		nullableString(user.ProfileURI),
		nullableString(user.Bio),
		user.Role,
		string(user.Status),
		user.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *PGRepo) Create(ctx context.Context, user User) error {
	return Insert(ctx, r.DB, user)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, query, email))
}

func (r *PGRepo) ListByCompany(ctx context.Context, companyID string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, user User) error {
	const query = `
UPDATE users SET
  user_name = $2,
  bio = $3,
  profile_uri = $4,
  role = $5,
  status = $6,
  updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.UserName,
		nullableString(user.Bio),
		nullableString(user.ProfileURI),
		user.Role,
		string(user.Status),
	)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

func (r *PGRepo) SetPassword(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

func (r *PGRepo) SetRefreshToken(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, id, nullableString(hash))
	if err != nil {
		return err
	}
	return requireRow(res, ErrNotFound)
}

func (r *PGRepo) CountByRole(ctx context.Context, companyID, role string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE company_id = $1 AND role = $2`, companyID, role).Scan(&n)
	return n, err
}

func (r *PGRepo) EmailInUse(ctx context.Context, email string) (bool, error) {
	const query = `
SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))
    OR EXISTS (SELECT 1 FROM pending_users WHERE lower(email) = lower($1))`
	var exists bool
	err := r.DB.QueryRowContext(ctx, query, email).Scan(&exists)
	return exists, err
}

func (r *PGRepo) CreatePending(ctx context.Context, pending PendingUser) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		const query = `
INSERT INTO pending_users (id, company_id, email, role, invited_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
		_, err := tx.ExecContext(ctx, query,
			pending.ID,
			pending.CompanyID,
			pending.Email,
			pending.Role,
			nullableString(pending.InvitedBy),
			pending.CreatedAt,
		)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		for _, id := range pending.DepartmentIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO pending_user_departments (pending_user_id, department_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, pending.ID, id); err != nil {
				return fmt.Errorf("assign pending department: %w", err)
			}
		}
		for _, id := range pending.ShiftIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO pending_user_shifts (pending_user_id, shift_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, pending.ID, id); err != nil {
				return fmt.Errorf("assign pending shift: %w", err)
			}
		}
		return nil
	})
}

const pendingSelect = `
SELECT p.id, p.company_id, p.email, p.role, p.invited_by, p.created_at, p.updated_at,
  COALESCE((SELECT string_agg(department_id::text, ',') FROM pending_user_departments WHERE pending_user_id = p.id), ''),
  COALESCE((SELECT string_agg(shift_id::text, ',') FROM pending_user_shifts WHERE pending_user_id = p.id), '')
FROM pending_users p`

func (r *PGRepo) GetPending(ctx context.Context, id string) (PendingUser, error) {
	p, err := scanPending(r.DB.QueryRowContext(ctx, pendingSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return PendingUser{}, ErrPendingNotFound
	}
	return p, err
}

func (r *PGRepo) ListPending(ctx context.Context, companyID string) ([]PendingUser, error) {
	rows, err := r.DB.QueryContext(ctx, pendingSelect+` WHERE p.company_id = $1 ORDER BY p.created_at DESC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingUser
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) DeletePending(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM pending_users WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrPendingNotFound)
}

func (r *PGRepo) TouchPending(ctx context.Context, companyID, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE pending_users SET updated_at = $3 WHERE id = $1 AND company_id = $2`, id, companyID, at)
	if err != nil {
		return err
	}
	return requireRow(res, ErrPendingNotFound)
}

func (r *PGRepo) CompleteRegistration(ctx context.Context, pendingID string, user User) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var locked string
		err := tx.QueryRowContext(ctx, `SELECT id FROM pending_users WHERE id = $1 FOR UPDATE`, pendingID).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPendingNotFound
			}
			return err
		}
		if err := Insert(ctx, tx, user); err != nil {
			return err
		}
		const copyDepartments = `
INSERT INTO user_departments (user_id, department_id, assigned_at)
SELECT $1, department_id, $3 FROM pending_user_departments WHERE pending_user_id = $2`
		if _, err := tx.ExecContext(ctx, copyDepartments, user.ID, pendingID, user.CreatedAt); err != nil {
			return fmt.Errorf("copy departments: %w", err)
		}
		const copyShifts = `
INSERT INTO user_shifts (user_id, shift_id, assigned_at)
SELECT $1, shift_id, $3 FROM pending_user_shifts WHERE pending_user_id = $2`
		if _, err := tx.ExecContext(ctx, copyShifts, user.ID, pendingID, user.CreatedAt); err != nil {
			return fmt.Errorf("copy shifts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_users WHERE id = $1`, pendingID); err != nil {
			return fmt.Errorf("delete pending user: %w", err)
		}
		return nil
	})
}

func (r *PGRepo) DepartmentIDs(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	query := `SELECT user_id, department_id FROM user_departments WHERE user_id IN (` +
		db.Placeholders(1, len(userIDs)) + `) ORDER BY assigned_at`
	rows, err := r.DB.QueryContext(ctx, query, db.StringArgs(userIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var userID, deptID string
		if err := rows.Scan(&userID, &deptID); err != nil {
			return nil, err
		}
		out[userID] = append(out[userID], deptID)
	}
	return out, rows.Err()
}

func (r *PGRepo) DepartmentMembers(ctx context.Context, companyID string, departmentIDs []string, limit int) (map[string]MemberPage, error) {
	out := make(map[string]MemberPage, len(departmentIDs))
	if len(departmentIDs) == 0 {
		return out, nil
	}
	if limit <= 0 {
		limit = 1 << 30
	}
	query := `
SELECT department_id, id, user_name, email, profile_uri, total FROM (
  SELECT ud.department_id, u.id, u.user_name, u.email, u.profile_uri,
         COUNT(*) OVER (PARTITION BY ud.department_id) AS total,
         ROW_NUMBER() OVER (PARTITION BY ud.department_id ORDER BY ud.assigned_at DESC) AS rn
  FROM user_departments ud
  JOIN users u ON u.id = ud.user_id
  WHERE u.company_id = $1 AND ud.department_id IN (` + db.Placeholders(3, len(departmentIDs)) + `)
) ranked
WHERE rn <= $2
ORDER BY department_id, rn`
	args := append([]any{companyID, limit}, db.StringArgs(departmentIDs)...)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var deptID string
		var m Member
		var profileURI sql.NullString
		var total int
		if err := rows.Scan(&deptID, &m.ID, &m.UserName, &m.Email, &profileURI, &total); err != nil {
			return nil, err
		}
		m.ProfileURI = profileURI.String
		page := out[deptID]
		page.Count = total
		page.Members = append(page.Members, m)
		out[deptID] = page
	}
	return out, rows.Err()
}

func (r *PGRepo) ReplaceDepartmentMembers(ctx context.Context, companyID, departmentID string, userIDs []string) error {
	return r.replaceMembers(ctx, "user_departments", "department_id", companyID, departmentID, userIDs)
}

func (r *PGRepo) ReplaceShiftMembers(ctx context.Context, companyID, shiftID string, userIDs []string) error {
	return r.replaceMembers(ctx, "user_shifts", "shift_id", companyID, shiftID, userIDs)
}

// replaceMembers is only called with the fixed table and column names above.
func (r *PGRepo) replaceMembers(ctx context.Context, table, column, companyID, groupID string, userIDs []string) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		del := `DELETE FROM ` + table + ` WHERE ` + column + ` = $1 AND user_id IN (SELECT id FROM users WHERE company_id = $2)`
		if _, err := tx.ExecContext(ctx, del, groupID, companyID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		if len(userIDs) == 0 {
			return nil
		}
		ins := `INSERT INTO ` + table + ` (user_id, ` + column + `, assigned_at)
SELECT id, $1, now() FROM users WHERE company_id = $2 AND id IN (` + db.Placeholders(3, len(userIDs)) + `)
ON CONFLICT DO NOTHING`
		args := append([]any{groupID, companyID}, db.StringArgs(userIDs)...)
		if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
			return fmt.Errorf("fill %s: %w", table, err)
		}
		return nil
	})
}

func (r *PGRepo) UnknownUsers(ctx context.Context, companyID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM users WHERE company_id = $1 AND id IN (` + db.Placeholders(2, len(ids)) + `)`
	rows, err := r.DB.QueryContext(ctx, query, append([]any{companyID}, db.StringArgs(ids)...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var unknown []string
	for _, id := range ids {
		if !found[id] {
			unknown = append(unknown, id)
		}
	}
	return unknown, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var u User
	var profileURI, bio, refresh sql.NullString
	var status string
	err := row.Scan(
		&u.ID,
		&u.CompanyID,
		&u.UserName,
		&u.Email,
		&u.PasswordHash,
		&profileURI,
		&bio,
		&u.Role,
		&status,
		&refresh,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.ProfileURI = profileURI.String
	u.Bio = bio.String
	u.RefreshTokenHash = refresh.String
	u.Status = Status(status)
	return u, nil
}

func scanPending(row scanner) (PendingUser, error) {
	var p PendingUser
	var invitedBy sql.NullString
	var depts, shifts string
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Email, &p.Role, &invitedBy, &p.CreatedAt, &p.UpdatedAt, &depts, &shifts); err != nil {
		return PendingUser{}, err
	}
	p.InvitedBy = invitedBy.String
	p.DepartmentIDs = splitIDs(depts)
	p.ShiftIDs = splitIDs(shifts)
	return p, nil
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
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
