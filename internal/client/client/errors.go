package client

import "errors"

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrUnknownTool    = errors.New("unknown tool")
	ErrMalformedReply = errors.New("malformed reply")
)
