package domain

import "time"

// Contact is a single address-book entry.
type Contact struct {
	ID        string
	First     string
	Last      string
	Twitter   string
	Avatar    string
	Notes     string
	Favorite  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
