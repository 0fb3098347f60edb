package domain

import "time"

// User is an account allowed to curate the catalog.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
