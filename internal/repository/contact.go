package repository

import (
	"context"

	"contacts-manager/internal/domain"
)

// ContactRepository defines persistence operations for Contact entities.
type ContactRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, contact *domain.Contact) error
	Get(ctx context.Context, id string) (*domain.Contact, error)
	// List returns contacts ordered by last then first name. A non-empty query
	// filters on a case-insensitive substring match over first and last name.
	List(ctx context.Context, query string) ([]domain.Contact, error)
	Update(ctx context.Context, contact *domain.Contact) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	SetAvatar(ctx context.Context, id string, avatar string) error
	Delete(ctx context.Context, id string) error
}
