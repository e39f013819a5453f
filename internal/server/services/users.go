// Package services contains server-side business logic: accounts, one-time
// code challenges, the authorization gate, ledger records, reports and
// exports. Every operation runs its statements on a single pooled
// connection and never opens a transaction.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/server/auth"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Session is what a successful registration or login hands back.
type Session struct {
	UserID   string
	Username string
	Token    string
}

// UserService handles registration, login, token checks and password
// changes.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	passwords   *auth.PasswordPolicy
	newID       func() string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, passwords *auth.PasswordPolicy) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		passwords:   passwords,
		newID:       uuid.NewString,
	}
}

// Register creates an account and returns a token for it. The username and
// email checks and the insert are separate statements; a concurrent
// duplicate is still caught by the unique constraints.
func (s *UserService) Register(ctx context.Context, username, email, password, fullName string) (*Session, error) {
	if err := s.passwords.ValidateStrength(password); err != nil {
		return nil, err
	}

	var user *models.User
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		repo := s.repomanager.Users(conn)

		if err := absent(repo.FindByUsername(ctx, username)); err != nil {
			if errors.Is(err, errExists) {
				return common.ErrUsernameTaken
			}
			return err
		}
		if err := absent(repo.FindByEmail(ctx, email)); err != nil {
			if errors.Is(err, errExists) {
				return common.ErrEmailTaken
			}
			return err
		}

		hash, err := s.passwords.Hash(password)
		if err != nil {
			return err
		}

		user, err = repo.Insert(ctx, &models.User{
			ID:           s.newID(),
			UserName:     username,
			Email:        email,
			PasswordHash: hash,
			FullName:     fullName,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.session(user)
}

// Login checks the password of an active user.
func (s *UserService) Login(ctx context.Context, username, password string) (*Session, error) {
	var user *models.User
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(conn).FindByUsername(ctx, username)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Active || !s.passwords.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.session(user)
}

// VerifyToken reports the identity carried by a token. It touches no store.
func (s *UserService) VerifyToken(token string) (*auth.Claims, error) {
	return s.tokens.Verify(token)
}

// ChangePassword replaces the caller's password after checking the old one.
// Tokens issued before the change stay valid until they expire.
func (s *UserService) ChangePassword(ctx context.Context, p *Principal, oldPassword, newPassword string) error {
	if err := s.passwords.ValidateStrength(newPassword); err != nil {
		return err
	}
	if !s.passwords.Verify(oldPassword, p.User.PasswordHash) {
		return common.ErrWrongPassword
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.repomanager.Users(p.Conn).SetPasswordHash(ctx, p.User.ID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *UserService) session(u *models.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID, u.UserName)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: u.ID, Username: u.UserName, Token: token}, nil
}

var errExists = errors.New("exists")

// absent turns a lookup result into nil when nothing was found and errExists
// when a row was found.
func absent(_ *models.User, err error) error {
	switch {
	case err == nil:
		return errExists
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return err
	}
}
