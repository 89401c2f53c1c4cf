package domain

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Caller is the authenticated identity the HTTP boundary hands to services.
type Caller struct {
	UserID   int64
	Username string
}
