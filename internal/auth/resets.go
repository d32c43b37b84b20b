package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

var ErrResetNotFound = errors.New("password reset token not found")

// ResetToken is a stored password reset request. Only the SHA-256 of the
// token leaves the mail.
type ResetToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

type ResetStore interface {
	Create(ctx context.Context, t ResetToken) error
	Get(ctx context.Context, tokenHash string) (ResetToken, error)
	// MarkUsed flags the token as consumed. It fails with ErrResetNotFound
	// when the token is missing or already used.
	MarkUsed(ctx context.Context, tokenHash string, at time.Time) error
}

type PGResetStore struct {
	DB *sql.DB
}

func (s *PGResetStore) Create(ctx context.Context, t ResetToken) error {
	const query = `
INSERT INTO password_reset_tokens (token_hash, user_id, expires_at, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := s.DB.ExecContext(ctx, query, t.TokenHash, t.UserID, t.ExpiresAt, t.CreatedAt)
	return err
}

func (s *PGResetStore) Get(ctx context.Context, tokenHash string) (ResetToken, error) {
	const query = `
SELECT token_hash, user_id, expires_at, used_at, created_at
FROM password_reset_tokens WHERE token_hash = $1`
	var t ResetToken
	var usedAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, tokenHash).Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ResetToken{}, ErrResetNotFound
	}
	if err != nil {
		return ResetToken{}, err
	}
	if usedAt.Valid {
		at := usedAt.Time
		t.UsedAt = &at
	}
	return t, nil
}

func (s *PGResetStore) MarkUsed(ctx context.Context, tokenHash string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at = $2 WHERE token_hash = $1 AND used_at IS NULL`,
		tokenHash, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResetNotFound
	}
	return nil
}

type MemoryResetStore struct {
	mu     sync.Mutex
	tokens map[string]ResetToken
}

func NewMemoryResetStore() *MemoryResetStore {
	return &MemoryResetStore{tokens: make(map[string]ResetToken)}
}

func (s *MemoryResetStore) Create(ctx context.Context, t ResetToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.TokenHash] = t
	return nil
}

func (s *MemoryResetStore) Get(ctx context.Context, tokenHash string) (ResetToken, error) {
	if err := ctx.Err(); err != nil {
		return ResetToken{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		return ResetToken{}, ErrResetNotFound
	}
	return t, nil
}

func (s *MemoryResetStore) MarkUsed(ctx context.Context, tokenHash string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.UsedAt != nil {
		return ErrResetNotFound
	}
	t.UsedAt = &at
	s.tokens[tokenHash] = t
	return nil
}
