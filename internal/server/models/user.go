package models

import "time"

// User is an account row. PasswordHash never leaves the server.
type User struct {
	ID            string
	UserName      string
	Email         string
	PasswordHash  string
	FullName      string
	EmailVerified bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
