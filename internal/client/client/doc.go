// Package client talks to the ledgerd tool service.
//
// # Overview
//
// The Client interface is the transport-agnostic contract used by the CLI.
// GRPCClient implements it over the ledger.v1.Tools gRPC service: every
// tool is a unary method that takes and returns a google.protobuf.Struct.
// An access token, when set, is attached to each call as access_token
// metadata by a unary interceptor.
//
// # Error Handling
//
// Tool failures are not Go errors; they arrive inside the result envelope.
// Transport conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnknownTool.
package client
