package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/logging"
	"github.com/dmitrijs2005/ledgerd/internal/server/auth"
	"github.com/dmitrijs2005/ledgerd/internal/server/envelope"
	"github.com/dmitrijs2005/ledgerd/internal/server/services"
	"github.com/dmitrijs2005/ledgerd/internal/server/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	gs "github.com/dmitrijs2005/ledgerd/internal/server/grpc"
)

type nopLogger struct{}

func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

var testTokens = auth.NewTokenService("secret", time.Hour)

// startServer runs a tool server on an in-memory listener and returns a
// client connected to it.
func startServer(t *testing.T) *GRPCClient {
	t.Helper()

	r := tools.New(tools.Services{
		Users: services.NewUserService(nil, nil, testTokens, nil),
	}, nopLogger{}, prometheus.NewRegistry())
	r.Register("echo", func(_ context.Context, args tools.Args) (envelope.Envelope, error) {
		return envelope.Success("echo", envelope.Fields{"args": map[string]any(args)}), nil
	})

	srv, err := gs.NewGRPCServer("", nopLogger{}, r)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	c, err := NewToolsClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		<-done
	})
	return c
}

func TestCall_ReturnsResult(t *testing.T) {
	c := startServer(t)

	res, err := c.Call(context.Background(), "echo", map[string]any{"amount": "10", "records": []any{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "success", res["status"])
	assert.Equal(t, map[string]any{"amount": "10", "records": []any{"a"}}, res["args"])
}

func TestCall_SendsAccessToken(t *testing.T) {
	c := startServer(t)

	res, err := c.Call(context.Background(), "verify_token", nil)
	require.NoError(t, err)
	assert.Equal(t, "error", res["status"])

	token, err := testTokens.Issue("u-1", "alice")
	require.NoError(t, err)
	c.SetAccessToken(token)

	res, err = c.Call(context.Background(), "verify_token", nil)
	require.NoError(t, err)
	assert.Equal(t, "Token is valid", res["message"])
}

func TestCall_UnknownTool(t *testing.T) {
	c := startServer(t)

	_, err := c.Call(context.Background(), "drop_tables", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestCall_BadArguments(t *testing.T) {
	c := startServer(t)

	_, err := c.Call(context.Background(), "echo", map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	assert.ErrorIs(t, c.mapError("x", status.Error(codes.Unavailable, "down")), ErrUnavailable)
	assert.ErrorIs(t, c.mapError("x", status.Error(codes.Unimplemented, "nope")), ErrUnknownTool)

	plain := errors.New("plain")
	assert.Equal(t, plain, c.mapError("x", plain))

	internal := status.Error(codes.Internal, "internal error")
	assert.Equal(t, internal, c.mapError("x", internal))
}

func TestWithAccessToken_ReplacesExisting(t *testing.T) {
	ctx := metadata.AppendToOutgoingContext(context.Background(), "access_token", "old", "x-other", "1")
	ctx = withAccessToken(ctx, "new")

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, md.Get("access_token"))
	assert.Equal(t, []string{"1"}, md.Get("x-other"))
}

func TestClose_WithoutConnection(t *testing.T) {
	assert.NoError(t, (&GRPCClient{}).Close())
}
