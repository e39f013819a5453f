// Package envelope builds the uniform result shape every tool returns:
//
//	{"result": {"status": "success"|"error", "message": "...", ...fields}}
package envelope

import (
	"encoding/json"

	"github.com/dmitrijs2005/ledgerd/internal/common"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Fields are operation-specific members of the result object. Values must
// be JSON-encodable.
type Fields map[string]any

// Envelope is the outer wrapper.
type Envelope struct {
	Result Fields `json:"result"`
}

// Success builds a success envelope. status and message in fields are
// overwritten.
func Success(message string, fields Fields) Envelope {
	return build(StatusSuccess, message, fields)
}

// Failure builds an error envelope with a caller-chosen message.
func Failure(message string, fields Fields) Envelope {
	return build(StatusError, message, fields)
}

// FromError builds an error envelope from err. Only the public message of a
// classified error is exposed.
func FromError(err error) Envelope {
	return build(StatusError, common.PublicMessage(err), nil)
}

// Either reports success when ok is true and an error otherwise, keeping
// the same message and fields.
func Either(ok bool, message string, fields Fields) Envelope {
	if ok {
		return Success(message, fields)
	}
	return Failure(message, fields)
}

func build(status, message string, fields Fields) Envelope {
	r := make(Fields, len(fields)+2)
	for k, v := range fields {
		r[k] = v
	}
	r["status"] = status
	r["message"] = message
	return Envelope{Result: r}
}

// Status returns the result status.
func (e Envelope) Status() string {
	s, _ := e.Result["status"].(string)
	return s
}

// Message returns the result message.
func (e Envelope) Message() string {
	s, _ := e.Result["message"].(string)
	return s
}

// ToMap converts the envelope into plain JSON values (maps, slices, strings,
// float64, bool, nil) by a JSON round trip.
func (e Envelope) ToMap() (map[string]any, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
