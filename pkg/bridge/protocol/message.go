// Package protocol implements the JSON-RPC 2.0 message model and the
// request validator used by the one-shot HTTP bridge.
//
// A Message is a tagged variant over Request, Notification and Response,
// distinguished by the presence of the method and id fields. Ids are only
// unique within one invocation's batch; the package never assumes global
// uniqueness.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the only protocol version the bridge accepts.
const Version = "2.0"

// Kind identifies which variant of the protocol a message is.
type Kind int

const (
	// KindRequest is a message with both a method and an id. It expects
	// exactly one Response correlated by id.
	KindRequest Kind = iota + 1

	// KindNotification is a message with a method but no id. No response
	// is ever produced for it.
	KindNotification

	// KindResponse is a message with an id and a result or error.
	KindResponse
)

// String returns the protocol name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	default:
		return "invalid"
	}
}

// ErrorObject is the structured error payload of a Response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Message is one parsed protocol message. The original wire bytes are
// retained so the bridge can serialize replies without re-encoding.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`

	raw json.RawMessage
}

var jsonNull = []byte("null")

// ParseMessage parses and validates a single protocol message.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	// An explicit null id is treated as an absent id.
	if bytes.Equal(bytes.TrimSpace(msg.ID), jsonNull) {
		msg.ID = nil
	}

	msg.raw = append(json.RawMessage(nil), data...)

	if err := msg.validate(); err != nil {
		return nil, err
	}

	return &msg, nil
}

// validate checks the structural rules shared by all message kinds.
func (m *Message) validate() error {
	if m.JSONRPC != Version {
		return fmt.Errorf("jsonrpc version must be %q", Version)
	}
	if m.Kind() == 0 {
		return fmt.Errorf("message is neither request, notification nor response")
	}

	return nil
}

// Kind reports which variant this message is, or zero if it is none of
// them (for example an id with no method and no result or error).
func (m *Message) Kind() Kind {
	switch {
	case m.Method != "" && m.ID != nil:
		return KindRequest
	case m.Method != "":
		return KindNotification
	case m.ID != nil && (m.Result != nil || m.Error != nil):
		return KindResponse
	default:
		return 0
	}
}

// CorrelationKey returns the id in its wire form, usable as a map key.
// String and numeric ids never collide because the quotes are preserved.
func (m *Message) CorrelationKey() string {
	return string(m.ID)
}

// Raw returns the message's original wire bytes.
func (m *Message) Raw() json.RawMessage {
	return m.raw
}

// MarshalJSON writes the original wire bytes back out unchanged.
func (m *Message) MarshalJSON() ([]byte, error) {
	if m.raw != nil {
		return m.raw, nil
	}

	type alias Message

	return json.Marshal((*alias)(m))
}
