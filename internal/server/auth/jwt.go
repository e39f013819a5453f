// Package auth issues and verifies bearer tokens and enforces the
// password policy.
package auth

import (
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when a TokenService is built with a zero TTL.
const DefaultTokenTTL = 24 * time.Hour

// Claims описывает утверждения токена: стандартные iat/exp плюс идентификатор
// и имя пользователя.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// TokenService signs and verifies HS256 bearer tokens. It holds no state
// besides the secret, so tokens stay valid until they expire.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the given user.
func (s *TokenService) Issue(userID, username string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:   userID,
		Username: username,
	})

	return token.SignedString(s.secret)
}

// Verify checks signature, algorithm and expiry. Any failure is reported as
// common.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
