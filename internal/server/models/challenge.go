package models

import "time"

// Purpose tells which flow a one-time code belongs to.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

// Challenge is the single live one-time code for a (user, purpose) pair.
type Challenge struct {
	UserID    string
	Purpose   Purpose
	Code      string
	ExpiresAt time.Time
	Attempts  int
}
