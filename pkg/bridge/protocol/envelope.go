package protocol

import (
	"encoding/json"
	"errors"
)

// errorCode is the JSON-RPC error code used for requests rejected before
// any message id is known.
const errorCode = -32000

// placeholderID is the fixed id used in error envelopes for header and
// body level failures, which occur before any real request id exists.
const placeholderID = 0

type errorEnvelope struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      int          `json:"id"`
	Error   *ErrorObject `json:"error"`
}

// ErrorEnvelope renders the structured protocol-error body for a rejected
// request.
func ErrorEnvelope(err error) []byte {
	message := "internal error"

	var verr *ValidationError
	if errors.As(err, &verr) {
		message = verr.Reason
	}

	body, merr := json.Marshal(errorEnvelope{
		JSONRPC: Version,
		ID:      placeholderID,
		Error:   &ErrorObject{Code: errorCode, Message: message},
	})
	if merr != nil {
		// The envelope contains no caller data that can fail to encode.
		panic(merr)
	}

	return body
}
