package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseMessageKinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{
			name: "request",
			raw:  `{"jsonrpc":"2.0","method":"code-review","id":1,"params":{"code":"x=1"}}`,
			want: KindRequest,
		},
		{
			name: "request with string id",
			raw:  `{"jsonrpc":"2.0","method":"ping","id":"abc"}`,
			want: KindRequest,
		},
		{
			name: "notification",
			raw:  `{"jsonrpc":"2.0","method":"ping"}`,
			want: KindNotification,
		},
		{
			name: "null id is a notification",
			raw:  `{"jsonrpc":"2.0","method":"ping","id":null}`,
			want: KindNotification,
		},
		{
			name: "response with result",
			raw:  `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`,
			want: KindResponse,
		},
		{
			name: "response with null result",
			raw:  `{"jsonrpc":"2.0","id":1,"result":null}`,
			want: KindResponse,
		},
		{
			name: "response with error",
			raw:  `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`,
			want: KindResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseMessage: %v", err)
			}
			if got := msg.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMessageRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"wrong version", `{"jsonrpc":"1.0","method":"ping"}`},
		{"missing version", `{"method":"ping","id":1}`},
		{"request missing method", `{"jsonrpc":"2.0","id":1}`},
		{"empty object", `{"jsonrpc":"2.0"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessage([]byte(tt.raw)); err == nil {
				t.Errorf("ParseMessage(%q) succeeded, want error", tt.raw)
			}
		})
	}
}

func TestCorrelationKeyDistinguishesStringAndNumber(t *testing.T) {
	numeric, err := ParseMessage([]byte(`{"jsonrpc":"2.0","method":"a","id":1}`))
	if err != nil {
		t.Fatal(err)
	}
	quoted, err := ParseMessage([]byte(`{"jsonrpc":"2.0","method":"a","id":"1"}`))
	if err != nil {
		t.Fatal(err)
	}

	if numeric.CorrelationKey() == quoted.CorrelationKey() {
		t.Errorf("numeric and string ids share key %q", numeric.CorrelationKey())
	}
}

func TestMarshalPreservesWireBytes(t *testing.T) {
	raw := `{"jsonrpc":"2.0","id":7,"result":{"content":[{"type":"text","text":"hi"}]}}`

	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != raw {
		t.Errorf("Marshal = %s, want %s", out, raw)
	}
}
