package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-request-gateway/pkg/httpclient"
)

// RequestInterceptor transforms the outgoing request. It receives its own
// copy and returns the request to pass on.
type RequestInterceptor func(ctx context.Context, req httpclient.Request) (httpclient.Request, error)

// ResponseInterceptor transforms a successful response before unwrapping.
type ResponseInterceptor func(ctx context.Context, resp httpclient.Response) (httpclient.Response, error)

// TokenSource returns the bearer token for a call; an empty token skips the header.
type TokenSource func(ctx context.Context) (string, error)

// RequestID stamps a fresh UUID into header unless the caller already set one.
func RequestID(header string) RequestInterceptor {
	header = strings.TrimSpace(header)
	return func(_ context.Context, req httpclient.Request) (httpclient.Request, error) {
		if header == "" || req.Header.Get(header) != "" {
			return req, nil
		}
		req.Header.Set(header, uuid.NewString())
		return req, nil
	}
}

// BearerToken sets the Authorization header from source.
func BearerToken(source TokenSource) RequestInterceptor {
	return func(ctx context.Context, req httpclient.Request) (httpclient.Request, error) {
		if source == nil {
			return req, nil
		}
		token, err := source(ctx)
		if err != nil {
			return req, fmt.Errorf("resolve bearer token: %w", err)
		}
		if token = strings.TrimSpace(token); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	}
}

// pipeline is the interceptor chain fixed at construction.
type pipeline struct {
	request  []RequestInterceptor
	response []ResponseInterceptor
}

func (p pipeline) applyRequest(ctx context.Context, req httpclient.Request) (httpclient.Request, error) {
	for i, ic := range p.request {
		next, err := ic(ctx, req.Clone())
		if err != nil {
			return req, fmt.Errorf("request interceptor %d: %w", i, err)
		}
		if next.Header == nil {
			next.Header = make(map[string][]string)
		}
		req = next
	}
	return req, nil
}

func (p pipeline) applyResponse(ctx context.Context, resp httpclient.Response) (httpclient.Response, error) {
	for i, ic := range p.response {
		next, err := ic(ctx, resp)
		if err != nil {
			return resp, fmt.Errorf("response interceptor %d: %w", i, err)
		}
		resp = next
	}
	return resp, nil
}
