package client

import "context"

// Client calls ledger tools. Call returns the inner result object of the
// envelope: status, message and tool-specific fields.
type Client interface {
	Close() error
	SetAccessToken(token string)
	Call(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
}
