package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"contacts-manager/internal/domain"
	"contacts-manager/internal/repository"
)

// ContactService coordinates contact level operations backed by the repository.
type ContactService interface {
	CreateEmpty(ctx context.Context) (*domain.Contact, error)
	Get(ctx context.Context, id string) (*domain.Contact, error)
	List(ctx context.Context, query string) ([]domain.Contact, error)
	Update(ctx context.Context, contact *domain.Contact) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	SetAvatar(ctx context.Context, id string, avatar string) error
	Delete(ctx context.Context, id string) error
}

type contactService struct {
	contacts repository.ContactRepository
}

func NewContactService(contacts repository.ContactRepository) ContactService {
	return &contactService{contacts: contacts}
}

// CreateEmpty inserts a blank contact to be filled in by a subsequent edit.
func (s *contactService) CreateEmpty(ctx context.Context) (*domain.Contact, error) {
	contact := &domain.Contact{ID: uuid.NewString()}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *contactService) Get(ctx context.Context, id string) (*domain.Contact, error) {
	return s.contacts.Get(ctx, id)
}

func (s *contactService) List(ctx context.Context, query string) ([]domain.Contact, error) {
	return s.contacts.List(ctx, strings.TrimSpace(query))
}

func (s *contactService) Update(ctx context.Context, contact *domain.Contact) error {
	return s.contacts.Update(ctx, contact)
}

func (s *contactService) SetFavorite(ctx context.Context, id string, favorite bool) error {
	return s.contacts.SetFavorite(ctx, id, favorite)
}

func (s *contactService) SetAvatar(ctx context.Context, id string, avatar string) error {
	return s.contacts.SetAvatar(ctx, id, avatar)
}

func (s *contactService) Delete(ctx context.Context, id string) error {
	return s.contacts.Delete(ctx, id)
}
