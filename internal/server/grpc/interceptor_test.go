package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestInterceptor_PassesTokenToTools(t *testing.T) {
	s := newTestServer(t)

	token, err := testTokens.Issue("u-1", "alice")
	require.NoError(t, err)

	md := metadata.New(map[string]string{common.AccessTokenHeaderName: token})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod("verify_token")}

	h := func(ctx context.Context, req any) (any, error) {
		env, err := s.tools.Call(ctx, "verify_token", nil)
		require.NoError(t, err)
		return env.Message(), nil
	}

	resp, err := s.accessTokenInterceptor(ctx, nil, info, h)
	require.NoError(t, err)
	assert.Equal(t, "Token is valid", resp)
}

func TestInterceptor_WithoutMetadataCallsHandler(t *testing.T) {
	s := newTestServer(t)

	info := &grpc.UnaryServerInfo{FullMethod: FullMethod("login")}
	handlerCalled := false

	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	require.NoError(t, err)
	assert.True(t, handlerCalled)
	assert.Equal(t, "ok", resp)
}

func TestLoggingInterceptor_KeepsHandlerResult(t *testing.T) {
	s := newTestServer(t)
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod("login")}

	wantErr := errors.New("boom")
	_, err := s.loggingInterceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}
