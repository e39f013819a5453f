// Package common contains shared constants, the error taxonomy and small
// helpers used across ledgerd components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"
