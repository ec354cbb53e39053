package bridge

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// HandleEvent serves one API Gateway v2 / Function URL invocation. The
// event's IsBase64Encoded flag is forwarded to the validator so binary
// payload encodings are handled at the boundary.
func (b *Bridge) HandleEvent(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if method := event.RequestContext.HTTP.Method; method != "" && method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusMethodNotAllowed,
			Headers:    map[string]string{"Allow": http.MethodPost},
		}, nil
	}

	res := b.invoke(ctx, invocation{
		body:        []byte(event.Body),
		isBase64:    event.IsBase64Encoded,
		accept:      headerValue(event.Headers, "accept"),
		contentType: headerValue(event.Headers, "content-type"),
	})

	out := events.APIGatewayV2HTTPResponse{StatusCode: res.status}
	if res.hasBody() {
		out.Headers = map[string]string{"Content-Type": "application/json"}
		out.Body = string(res.body)
	}

	return out, nil
}

// headerValue looks a header up case-insensitively. API Gateway v2
// lowercases header names, but callers of HandleEvent in tests and other
// event sources do not always follow suit.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}

	return ""
}
