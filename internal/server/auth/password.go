package auth

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	BcryptCost        = 12
)

// PasswordPolicy validates password strength and hashes passwords.
// Cost is exported for tests; production code uses BcryptCost.
type PasswordPolicy struct {
	Cost int
}

func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{Cost: BcryptCost}
}

// ValidateStrength reports the first unmet requirement, checked in order:
// length, uppercase, lowercase, digit. Passwords are not normalised.
func (p *PasswordPolicy) ValidateStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return common.Validationf("password must be at least %d characters long", MinPasswordLength)
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !upper:
		return common.Validationf("password must contain an uppercase letter")
	case !lower:
		return common.Validationf("password must contain a lowercase letter")
	case !digit:
		return common.Validationf("password must contain a digit")
	}

	return nil
}

func (p *PasswordPolicy) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", common.Validationf("password must be at most 72 bytes long")
	}
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify compares in constant time. A malformed hash never matches.
func (p *PasswordPolicy) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
