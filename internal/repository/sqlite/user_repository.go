package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"contacts-manager/internal/domain"
	"contacts-manager/internal/repository"
)

const (
	createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	created_at DATETIME NOT NULL
);
`
	createPasswordsTable = `
CREATE TABLE IF NOT EXISTS passwords (
	user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	hash TEXT NOT NULL
);
`
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createPasswordsTable); err != nil {
		return fmt.Errorf("create passwords table: %w", err)
	}
	return nil
}

// Create inserts the user and its credential in one transaction. A UNIQUE
// violation on username is reported as repository.ErrDuplicateUsername so that
// concurrent signups resolve at the database, not via a read beforehand.
func (r *UserRepository) Create(ctx context.Context, user *domain.User, passwordHash string) error {
	user.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO users (id, username, created_at)
VALUES (?, ?, ?)`,
		user.ID,
		user.Username,
		user.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO passwords (user_id, hash)
VALUES (?, ?)`,
		user.ID,
		passwordHash,
	); err != nil {
		return fmt.Errorf("insert password: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user insert: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT u.id, u.username, u.created_at, p.hash
FROM users u
JOIN passwords p ON p.user_id = u.id
WHERE u.username = ?`,
		username,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT u.id, u.username, u.created_at, p.hash
FROM users u
JOIN passwords p ON p.user_id = u.id
WHERE u.id = ?`,
		id,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.CreatedAt,
		&user.PasswordHash,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
