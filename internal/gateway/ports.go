package gateway

import (
	"context"
	"encoding/json"
)

// Ports for outbound adapters.
//
// A Gateway call has two distinct failure modes: a transport error (the
// request never produced a response) is returned as the error value, while
// an HTTP-level rejection comes back as a Result whose OK reports false and
// whose Data carries the backend's payload verbatim. Callers must handle
// both, even when handling means a logged no-op.
type (
	// Result is the outcome of a gateway call.
	Result struct {
		StatusCode int
		Data       json.RawMessage
	}

	Gateway interface {
		Get(ctx context.Context, path string) (Result, error)
		Post(ctx context.Context, path string, body any) (Result, error)
		Put(ctx context.Context, path string, body any) (Result, error)
	}
)

// OK reports whether the call completed with a 2xx status.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the result payload into out.
func (r Result) Decode(out any) error {
	return json.Unmarshal(r.Data, out)
}
