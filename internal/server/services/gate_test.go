package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/server/auth"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepoManager records how often the user store was reached.
type countingRepoManager struct {
	repomanager.RepositoryManager
	userLookups int
}

func (m *countingRepoManager) Users(db dbx.DBTX) users.Repository {
	m.userLookups++
	return m.RepositoryManager.Users(db)
}

func newGate(t *testing.T, store *repotest.Store) (*Gate, *countingRepoManager, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService("k", time.Hour)
	rm := &countingRepoManager{RepositoryManager: store.Manager()}
	return NewGate(newSQLMockDB(t), rm, tokens), rm, tokens
}

func TestGate_InvalidTokenDoesNoIO(t *testing.T) {
	g, rm, _ := newGate(t, repotest.NewStore())

	called := false
	err := g.Wrap(func(context.Context, *Principal) error {
		called = true
		return nil
	})(context.Background(), "not-a-token")

	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.False(t, called)
	assert.Zero(t, rm.userLookups)
}

func TestGate_UnknownUser(t *testing.T) {
	g, _, tokens := newGate(t, repotest.NewStore())
	tok, err := tokens.Issue("ghost", "ghost")
	require.NoError(t, err)

	err = g.Authenticated(func(context.Context, *Principal) error { return nil })(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestGate_VerificationRequirement(t *testing.T) {
	store := repotest.NewStore()
	store.AddUser(&models.User{ID: "u1", UserName: "alice", EmailVerified: false})
	g, _, tokens := newGate(t, store)
	tok, err := tokens.Issue("u1", "alice")
	require.NoError(t, err)

	var seen *Principal
	op := func(_ context.Context, p *Principal) error {
		seen = p
		return nil
	}

	err = g.Wrap(op)(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrEmailNotVerified)
	assert.Nil(t, seen)

	require.NoError(t, g.Authenticated(op)(context.Background(), tok))
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.User.ID)
	assert.NotNil(t, seen.Conn)

	store.SetEmailVerified("u1", true)
	seen = nil
	require.NoError(t, g.Wrap(op)(context.Background(), tok))
	require.NotNil(t, seen)
}

func TestGate_PropagatesOpError(t *testing.T) {
	store := repotest.NewStore()
	store.AddUser(&models.User{ID: "u1", UserName: "alice", EmailVerified: true})
	g, _, tokens := newGate(t, store)
	tok, err := tokens.Issue("u1", "alice")
	require.NoError(t, err)

	err = g.Wrap(func(context.Context, *Principal) error {
		return common.ErrRecordNotFound
	})(context.Background(), tok)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}
