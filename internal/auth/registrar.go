package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/companies"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/storage/db"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/users"
)

// Registrar stores a new company together with its owner. Either both rows
// exist afterwards or neither does.
type Registrar interface {
	Register(ctx context.Context, company companies.Company, owner users.User) error
}

// PGRegistrar writes both rows in one transaction.
type PGRegistrar struct {
	DB *sql.DB
}

func (r *PGRegistrar) Register(ctx context.Context, company companies.Company, owner users.User) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := companies.Insert(ctx, tx, company); err != nil {
			return err
		}
		return users.Insert(ctx, tx, owner)
	})
}

// MemoryRegistrar compensates a failed owner insert by deleting the company.
type MemoryRegistrar struct {
	Companies companies.Repo
	Users     users.Repo
}

func (r *MemoryRegistrar) Register(ctx context.Context, company companies.Company, owner users.User) error {
	if r.Companies == nil || r.Users == nil {
		return errors.New("registrar not configured")
	}
	taken, err := r.Users.EmailInUse(ctx, owner.Email)
	if err != nil {
		return err
	}
	if taken {
		return users.ErrEmailTaken
	}
	if err := r.Companies.Create(ctx, company); err != nil {
		return err
	}
	if err := r.Users.Create(ctx, owner); err != nil {
		_ = r.Companies.Delete(context.WithoutCancel(ctx), company.ID)
		return err
	}
	return nil
}
