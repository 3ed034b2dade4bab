// Package store defines the persistence interfaces for the mail directory.
//
// Stores are interface-driven so the service layer can run against the
// in-memory implementation in tests and PostgreSQL in production without
// rewiring business code. Implementations return pkg/platform/sentinel
// errors for factual states: sentinel.ErrConflict on duplicate insert,
// sentinel.ErrNotFound when an update or delete targets a missing row.
//
// Only single-statement atomicity is required. The reconciliation engine
// re-reads state between corrective actions instead of computing a diff
// inside one transaction, so no cross-row transactions exist here.
package store

import (
	"context"

	"mailkeep/internal/directory/models"
)

type UserStore interface {
	// Insert adds a new user. Duplicate email returns sentinel.ErrConflict.
	Insert(ctx context.Context, user models.User) error

	// UpdatePassword replaces the stored credential.
	UpdatePassword(ctx context.Context, email, credential string) error

	// UpdatePrivileges replaces the privilege list.
	UpdatePrivileges(ctx context.Context, email string, privs []string) error

	// Delete removes the user.
	Delete(ctx context.Context, email string) error

	// Get returns the user, or sentinel.ErrNotFound.
	Get(ctx context.Context, email string) (models.User, error)

	// GetPassword returns the stored scheme-prefixed credential.
	GetPassword(ctx context.Context, email string) (string, error)

	// List returns all users sorted by email.
	List(ctx context.Context) ([]models.User, error)
}

type AliasStore interface {
	// Insert adds a new alias. Duplicate source returns sentinel.ErrConflict.
	Insert(ctx context.Context, alias models.Alias) error

	// Update replaces the destinations of an existing alias.
	Update(ctx context.Context, source string, destinations []string) error

	// Delete removes the alias.
	Delete(ctx context.Context, source string) error

	// Get returns the alias, or sentinel.ErrNotFound.
	Get(ctx context.Context, source string) (models.Alias, error)

	// List returns all aliases sorted by source.
	List(ctx context.Context) ([]models.Alias, error)
}
