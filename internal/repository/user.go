package repository

import (
	"context"
	"errors"

	"contacts-manager/internal/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateUsername indicates the unique username constraint rejected an insert.
	ErrDuplicateUsername = errors.New("username already taken")
)

// UserRepository defines persistence operations for User entities and their
// credentials. Username uniqueness is enforced by the storage layer, not by a
// preceding read: Create reports a conflicting insert as ErrDuplicateUsername.
type UserRepository interface {
	Init(ctx context.Context) error
	// Create inserts the user and its password digest in one transaction.
	Create(ctx context.Context, user *domain.User, passwordHash string) error
	// GetByUsername returns the user with its password digest populated.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
