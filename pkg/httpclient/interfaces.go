package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Request is a fully resolved outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
	Body   any
}

// Clone returns a copy whose header and query maps can be modified independently.
func (r Request) Clone() Request {
	out := r
	out.Header = r.Header.Clone()
	if r.Query != nil {
		out.Query = make(url.Values, len(r.Query))
		for k, vs := range r.Query {
			out.Query[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// Response is the transport envelope around a response body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport abstracts HTTP calls so callers can inject mocks or different clients.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (Response, error)

func (f TransportFunc) Do(ctx context.Context, req Request) (Response, error) { return f(ctx, req) }

// StatusError is returned by transports for any response outside the 2xx range.
// The full response is kept so callers can inspect the server payload.
type StatusError struct {
	Method   string
	URL      string
	Response Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.Response.StatusCode)
}

// IsSuccess reports whether status is in the 2xx range.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// EncodeError is returned when a request body cannot be serialized. No
// request was sent.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode request body: " + e.Err.Error() }

func (e *EncodeError) Unwrap() error { return e.Err }
