package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
)

const mediaTypeJSON = "application/json"

// ParseBatch validates headers and parses raw request bytes into an
// ordered message sequence. It is a pure function of its inputs.
//
// The accept header must include application/json and the content-type
// header must be application/json. The body may be a single message
// object or an array of them; a single object is normalized into a
// one-element batch. Validation is all-or-nothing: one malformed message
// rejects the whole request.
func ParseBatch(body []byte, isBase64 bool, accept, contentType string) ([]*Message, error) {
	if !strings.Contains(accept, mediaTypeJSON) {
		return nil, invalid(ErrNotAcceptable, "accept header must include %s", mediaTypeJSON)
	}
	if mt, _, _ := strings.Cut(contentType, ";"); strings.TrimSpace(mt) != mediaTypeJSON {
		return nil, invalid(ErrUnsupportedMediaType, "content-type must be %s", mediaTypeJSON)
	}

	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			return nil, invalid(ErrUnprocessableEntity, "invalid base64 body: %v", err)
		}
		body = decoded
	}

	elems, err := splitBatch(body)
	if err != nil {
		return nil, err
	}

	msgs := make([]*Message, 0, len(elems))
	for i, elem := range elems {
		msg, err := ParseMessage(elem)
		if err != nil {
			return nil, invalid(ErrUnprocessableEntity, "message %d: %v", i, err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

// splitBatch normalizes the body into raw message elements, accepting
// either a single object or a non-empty array.
func splitBatch(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, invalid(ErrUnprocessableEntity, "empty body")
	}

	if trimmed[0] != '[' {
		return []json.RawMessage{trimmed}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, invalid(ErrUnprocessableEntity, "invalid JSON: %v", err)
	}
	if len(elems) == 0 {
		return nil, invalid(ErrUnprocessableEntity, "empty batch")
	}

	return elems, nil
}
