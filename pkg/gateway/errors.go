package gateway

import (
	"context"
	"errors"
	"net"

	"github.com/samvad-hq/samvad-request-gateway/pkg/httpclient"
)

// FallbackMessage is surfaced when neither the server nor the transport gave one.
const FallbackMessage = "request failed"

// Kind tells where a failure originated.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindNetwork     Kind = "network"
	KindHTTP        Kind = "http"
	KindCanceled    Kind = "canceled"
	KindInterceptor Kind = "interceptor"
	// KindEncoding means the request body could not be serialized; nothing was sent.
	KindEncoding Kind = "encoding"
)

// Error is the normalized failure returned by every gateway call.
type Error struct {
	Message string
	// Status is zero when no response was received.
	Status int
	Kind   Kind
	// Body is the server payload of an HTTP error response.
	Body  []byte
	Cause error

	Method string
	URL    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return FallbackMessage
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the response status, if a response was received.
func (e *Error) HTTPStatus() (int, bool) {
	return e.Status, e.Status != 0
}

// Timeout reports whether the call exceeded its deadline.
func (e *Error) Timeout() bool { return e.Kind == KindTimeout }

// ServerMessage returns the message the server put in the error body, if any.
func (e *Error) ServerMessage() string {
	return serverMessage(e.Body)
}

func (e Error) copy() Error {
	if e.Body != nil {
		e.Body = append([]byte(nil), e.Body...)
	}
	return e
}

// normalize maps any transport failure onto *Error.
func normalize(err error) *Error {
	var gerr *Error
	if errors.As(err, &gerr) {
		// the transport keeps its value; stamping happens on a copy
		c := gerr.copy()
		return &c
	}

	var encodeErr *httpclient.EncodeError
	if errors.As(err, &encodeErr) {
		return &Error{Message: encodeErr.Error(), Kind: KindEncoding, Cause: err}
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return &Error{
			Message: statusErr.Error(),
			Status:  statusErr.Response.StatusCode,
			Kind:    KindHTTP,
			Body:    statusErr.Response.Body,
			Cause:   err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
		return &Error{Message: "timeout", Kind: KindTimeout, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Message: "request canceled", Kind: KindCanceled, Cause: err}
	}

	msg := FallbackMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Message: msg, Kind: KindNetwork, Cause: err}
}

type surfacedKey struct{}

// SurfacedError returns the failure being presented. APICall attaches it to
// the context it hands to Surface.PresentError.
func SurfacedError(ctx context.Context) (Error, bool) {
	if ctx == nil {
		return Error{}, false
	}
	e, ok := ctx.Value(surfacedKey{}).(Error)
	return e, ok
}

func withSurfacedError(ctx context.Context, err error) context.Context {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return ctx
	}
	return context.WithValue(ctx, surfacedKey{}, gerr.copy())
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SurfaceMessage picks the user-facing text for err: server message first,
// then the transport message, then FallbackMessage.
func SurfaceMessage(err error) string {
	if err == nil {
		return FallbackMessage
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		if msg := gerr.ServerMessage(); msg != "" {
			return msg
		}
		if gerr.Message != "" {
			return gerr.Message
		}
		return FallbackMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}
