package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- NewNumericCode ----------

func TestNewNumericCode_LengthAndDigits(t *testing.T) {
	const n = 6
	s, err := NewNumericCode(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n {
		t.Fatalf("expected length %d, got %d", n, len(s))
	}
	for i, c := range s {
		if c < '0' || c > '9' {
			t.Fatalf("expected digit at %d, got %q", i, c)
		}
	}
}

func TestNewNumericCode_ZeroSize(t *testing.T) {
	s, err := NewNumericCode(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestNewNumericCode_EntropyHint(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		s, err := NewNumericCode(6)
		require.NoError(t, err)
		seen[s] = struct{}{}
	}
	if len(seen) < 2 {
		t.Logf("warning: 20 NewNumericCode(6) results were identical; extremely unlikely")
	}
}

// ---------- Error taxonomy ----------

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"sentinel", ErrInvalidToken, KindAuthentication},
		{"wrapped sentinel", fmt.Errorf("gate: %w", ErrEmailNotVerified), KindAuthorization},
		{"validation", Validationf("bad %s", "date"), KindValidation},
		{"plain", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestPublicMessage_HidesCause(t *testing.T) {
	err := Wrap(KindTransient, "failed to send email", errors.New("smtp: 535 auth failed"))

	assert.Equal(t, "failed to send email", PublicMessage(err))
	assert.Contains(t, err.Error(), "535")
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: relation does not exist")))
}

func TestErrorIs_MatchesByKindAndMessage(t *testing.T) {
	copyErr := E(KindChallenge, "invalid code")

	assert.True(t, errors.Is(copyErr, ErrInvalidCode))
	assert.False(t, errors.Is(copyErr, ErrCodeExpired))
	assert.True(t, errors.Is(fmt.Errorf("x: %w", ErrCodeExpired), ErrCodeExpired))
}
