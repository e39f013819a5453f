package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/logging"
	"github.com/dmitrijs2005/ledgerd/internal/server/auth"
	"github.com/dmitrijs2005/ledgerd/internal/server/mailer"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
)

const (
	CodeLength      = 6
	CodeTTL         = 5 * time.Minute
	MaxCodeAttempts = 3

	maxIssueRetries = 5
)

// ChallengeService runs the one-time code flows: email verification and
// password reset. A user has at most one live code per purpose.
type ChallengeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	passwords   *auth.PasswordPolicy
	mail        mailer.Sender
	log         logging.Logger
	now         func() time.Time
	newCode     func() (string, error)
}

func NewChallengeService(db *sql.DB, m repomanager.RepositoryManager, passwords *auth.PasswordPolicy, mail mailer.Sender, l logging.Logger) *ChallengeService {
	return &ChallengeService{
		db:          db,
		repomanager: m,
		passwords:   passwords,
		mail:        mail,
		log:         l.With("module", "challenges"),
		now:         time.Now,
		newCode:     func() (string, error) { return common.NewNumericCode(CodeLength) },
	}
}

// SendVerificationCode issues and mails a verification code to the caller.
// It reports false without sending anything when the email is already
// verified.
func (s *ChallengeService) SendVerificationCode(ctx context.Context, p *Principal) (bool, error) {
	if p.User.EmailVerified {
		return false, nil
	}
	if err := s.issue(ctx, p.Conn, p.User, models.PurposeVerifyEmail); err != nil {
		return false, err
	}
	return true, nil
}

// VerifyEmail consumes a verification code and marks the owner's email as
// verified.
func (s *ChallengeService) VerifyEmail(ctx context.Context, code string) error {
	return dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		c, err := s.consume(ctx, conn, models.PurposeVerifyEmail, code)
		if err != nil {
			return err
		}

		if err := s.repomanager.Users(conn).MarkEmailVerified(ctx, c.UserID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return err
		}
		return nil
	})
}

// ForgotPassword mails a reset code to a verified account. It reports false
// when no account uses the email, so callers can answer the same way in
// both cases.
func (s *ChallengeService) ForgotPassword(ctx context.Context, email string) (bool, error) {
	sent := false
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		user, err := s.repomanager.Users(conn).FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		if !user.EmailVerified {
			return common.ErrEmailNotVerified
		}
		if err := s.issue(ctx, conn, user, models.PurposeResetPassword); err != nil {
			return err
		}
		sent = true
		return nil
	})
	return sent, err
}

// ResetPassword consumes a reset code and sets a new password for its
// owner. Strength is checked before the code is touched.
func (s *ChallengeService) ResetPassword(ctx context.Context, code, newPassword string) (*models.User, error) {
	if err := s.passwords.ValidateStrength(newPassword); err != nil {
		return nil, err
	}

	var user *models.User
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		c, err := s.consume(ctx, conn, models.PurposeResetPassword, code)
		if err != nil {
			return err
		}

		users := s.repomanager.Users(conn)
		user, err = users.FindByID(ctx, c.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return err
		}
		if !user.EmailVerified {
			return common.ErrEmailNotVerified
		}

		hash, err := s.passwords.Hash(newPassword)
		if err != nil {
			return err
		}
		return users.SetPasswordAndClearReset(ctx, user.ID, hash)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// issue stores a fresh code for (user, purpose), replacing any previous one,
// and mails it. A failed send keeps the stored code.
func (s *ChallengeService) issue(ctx context.Context, conn dbx.DBTX, user *models.User, purpose models.Purpose) error {
	repo := s.repomanager.Challenges(conn)

	var code string
	for i := 0; ; i++ {
		var err error
		code, err = s.newCode()
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}

		err = repo.Set(ctx, &models.Challenge{
			UserID:    user.ID,
			Purpose:   purpose,
			Code:      code,
			ExpiresAt: s.now().Add(CodeTTL),
		})
		if err == nil {
			break
		}
		if !errors.Is(err, challenges.ErrCodeCollision) || i+1 >= maxIssueRetries {
			return err
		}
	}

	var err error
	switch purpose {
	case models.PurposeVerifyEmail:
		err = mailer.SendVerificationCode(ctx, s.mail, user.Email, user.FullName, code)
	case models.PurposeResetPassword:
		err = mailer.SendPasswordResetCode(ctx, s.mail, user.Email, user.FullName, code)
	}
	if err != nil {
		s.log.Error(ctx, "code mail failed", "user_id", user.ID, "purpose", string(purpose), "error", err)
		return common.Wrap(common.KindTransient, "failed to send email", err)
	}

	s.log.Info(ctx, "code issued", "user_id", user.ID, "purpose", string(purpose))
	return nil
}

// consume checks a submitted code. The order of checks is fixed: unknown
// code, exhausted attempts, expiry. Exhausted and expired codes are cleared.
// On success the challenge is returned and left for the caller to clear.
func (s *ChallengeService) consume(ctx context.Context, conn dbx.DBTX, purpose models.Purpose, code string) (*models.Challenge, error) {
	repo := s.repomanager.Challenges(conn)

	c, err := repo.FindByCode(ctx, purpose, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCode
		}
		return nil, err
	}

	if c.Attempts >= MaxCodeAttempts {
		if err := repo.Clear(ctx, c.UserID, purpose); err != nil {
			return nil, err
		}
		return nil, common.ErrTooManyAttempts
	}

	if s.now().After(c.ExpiresAt) {
		if err := repo.Clear(ctx, c.UserID, purpose); err != nil {
			return nil, err
		}
		return nil, common.ErrCodeExpired
	}

	return c, nil
}
