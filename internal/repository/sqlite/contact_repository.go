package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"contacts-manager/internal/domain"
	"contacts-manager/internal/repository"
)

const createContactsTable = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	first TEXT NOT NULL DEFAULT '',
	last TEXT NOT NULL DEFAULT '',
	twitter TEXT NOT NULL DEFAULT '',
	avatar TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	favorite INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) repository.ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createContactsTable); err != nil {
		return fmt.Errorf("create contacts table: %w", err)
	}
	return nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	if _, err := r.db.ExecContext(ctx, `
INSERT INTO contacts (id, first, last, twitter, avatar, notes, favorite, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.ID,
		contact.First,
		contact.Last,
		contact.Twitter,
		contact.Avatar,
		contact.Notes,
		contact.Favorite,
		contact.CreatedAt,
		contact.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) Get(ctx context.Context, id string) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, first, last, twitter, avatar, notes, favorite, created_at, updated_at
FROM contacts
WHERE id = ?`,
		id,
	)
	return scanContact(row)
}

func (r *ContactRepository) List(ctx context.Context, query string) ([]domain.Contact, error) {
	stmt := `
SELECT id, first, last, twitter, avatar, notes, favorite, created_at, updated_at
FROM contacts`
	var args []any
	if query != "" {
		stmt += `
WHERE first LIKE ? COLLATE NOCASE OR last LIKE ? COLLATE NOCASE`
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}
	stmt += `
ORDER BY last, first`

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(
			&c.ID,
			&c.First,
			&c.Last,
			&c.Twitter,
			&c.Avatar,
			&c.Notes,
			&c.Favorite,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

func (r *ContactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	contact.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE contacts
SET first=?, last=?, twitter=?, avatar=?, notes=?, favorite=?, updated_at=?
WHERE id=?`,
		contact.First,
		contact.Last,
		contact.Twitter,
		contact.Avatar,
		contact.Notes,
		contact.Favorite,
		contact.UpdatedAt,
		contact.ID,
	)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	return requireAffected(res)
}

func (r *ContactRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE contacts SET favorite=?, updated_at=? WHERE id=?`,
		favorite, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	return requireAffected(res)
}

func (r *ContactRepository) SetAvatar(ctx context.Context, id string, avatar string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE contacts SET avatar=?, updated_at=? WHERE id=?`,
		avatar, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	return requireAffected(res)
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return requireAffected(res)
}

func scanContact(row *sql.Row) (*domain.Contact, error) {
	var c domain.Contact
	if err := row.Scan(
		&c.ID,
		&c.First,
		&c.Last,
		&c.Twitter,
		&c.Avatar,
		&c.Notes,
		&c.Favorite,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	return &c, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
