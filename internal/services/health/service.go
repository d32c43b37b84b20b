package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
}

// Service checks the dependencies the API cannot serve without.
type Service struct {
	db *sql.DB
}

// NewService builds a checker. A nil db reports the in-memory backend.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Status pings the database with a short timeout.
func (s *Service) Status(ctx context.Context) Status {
	if s == nil || s.db == nil {
		return Status{OK: true, Database: "memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return Status{OK: false, Database: "unreachable"}
	}
	return Status{OK: true, Database: "up"}
}
