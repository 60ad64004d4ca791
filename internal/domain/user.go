package domain

import "time"

// User represents an authenticated user of the system. PasswordHash is only
// populated by the persistence layer; the service layer strips it before a
// User leaves the package.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
