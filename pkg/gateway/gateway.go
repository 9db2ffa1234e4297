// Package gateway is the single choke point for outbound HTTP calls. It applies
// the client-wide timeout and default headers, runs the interceptor chain,
// unwraps response bodies and turns every failure into *Error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/samvad-hq/samvad-request-gateway/pkg/httpclient"
)

// Gateway issues calls through a Transport. It holds no per-call state and is
// safe for concurrent use.
type Gateway struct {
	cfg        Config
	transport  httpclient.Transport
	pipeline   pipeline
	classifier classifier
	onFailure  []FailureHook
	surface    Surface
	log        Logger
}

// Option customizes a Gateway at construction time.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(log Logger) Option {
	return func(g *Gateway) { g.log = ensureLogger(log) }
}

// WithSurface sets the default surface used by APICall.
func WithSurface(s Surface) Option {
	return func(g *Gateway) {
		if s != nil {
			g.surface = s
		}
	}
}

// WithRequestInterceptors appends request interceptors in order.
func WithRequestInterceptors(ics ...RequestInterceptor) Option {
	return func(g *Gateway) {
		for _, ic := range ics {
			if ic != nil {
				g.pipeline.request = append(g.pipeline.request, ic)
			}
		}
	}
}

// WithResponseInterceptors appends response interceptors in order.
func WithResponseInterceptors(ics ...ResponseInterceptor) Option {
	return func(g *Gateway) {
		for _, ic := range ics {
			if ic != nil {
				g.pipeline.response = append(g.pipeline.response, ic)
			}
		}
	}
}

// WithStatusHook attaches hook to a classification bucket.
func WithStatusHook(bucket Bucket, hook StatusHook) Option {
	return func(g *Gateway) { g.classifier.add(bucket, hook) }
}

// WithFailureHook attaches a hook that sees every failure.
func WithFailureHook(hook FailureHook) Option {
	return func(g *Gateway) {
		if hook != nil {
			g.onFailure = append(g.onFailure, hook)
		}
	}
}

// New builds a gateway. A nil transport gets a resty transport using cfg.Timeout.
func New(cfg Config, transport httpclient.Transport, opts ...Option) (*Gateway, error) {
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("invalid timeout %s (must not be negative)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg = cfg.clone()

	if transport == nil {
		transport = httpclient.NewRestyTransport(cfg.Timeout)
	}

	g := &Gateway{
		cfg:       cfg,
		transport: transport,
		surface:   NopSurface{},
		log:       NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Config returns a copy of the client configuration.
func (g *Gateway) Config() Config {
	return g.cfg.clone()
}

// Get issues a GET with query as the query string.
func (g *Gateway) Get(ctx context.Context, url string, query map[string]any, overrides Overrides) (Body, error) {
	return g.Send(ctx, Descriptor{Method: http.MethodGet, URL: url, Query: query, Config: overrides})
}

// Post issues a POST with data as the body.
func (g *Gateway) Post(ctx context.Context, url string, data any, overrides Overrides) (Body, error) {
	return g.Send(ctx, Descriptor{Method: http.MethodPost, URL: url, Body: data, Config: overrides})
}

// Send issues one call and returns the response body only. Every failure is
// returned as *Error.
func (g *Gateway) Send(ctx context.Context, d Descriptor) (Body, error) {
	if g == nil || g.transport == nil {
		return nil, &Error{Message: "gateway is not initialized", Kind: KindNetwork}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := httpclient.Request{
		Method: normalizeMethod(d.Method),
		URL:    resolveURL(g.cfg.BaseURL, d.URL),
		Header: mergeHeaders(g.cfg.DefaultHeaders, d.Config.Headers),
		Query:  encodeQuery(d.Query),
		Body:   d.Body,
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	req, err := g.pipeline.applyRequest(ctx, req)
	if err != nil {
		return nil, g.fail(ctx, req, start, &Error{Message: err.Error(), Kind: KindInterceptor, Cause: err})
	}

	resp, err := g.transport.Do(ctx, req)
	if err == nil && !httpclient.IsSuccess(resp.StatusCode) {
		// transports are expected to fail non-2xx themselves; enforce it here too
		err = &httpclient.StatusError{Method: req.Method, URL: req.URL, Response: resp}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, g.fail(ctx, req, start, normalize(err))
	}

	resp, err = g.pipeline.applyResponse(ctx, resp)
	if err != nil {
		return nil, g.fail(ctx, req, start, &Error{Message: err.Error(), Status: resp.StatusCode, Kind: KindInterceptor, Cause: err})
	}

	g.log.DebugObj("gateway call completed", "gateway_call", map[string]any{
		"method":     req.Method,
		"url":        req.URL,
		"status":     resp.StatusCode,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return Body(resp.Body), nil
}

// fail stamps the request onto gerr, runs classification and failure hooks,
// and logs. Hooks only ever see copies.
func (g *Gateway) fail(ctx context.Context, req httpclient.Request, start time.Time, gerr *Error) *Error {
	gerr.Method, gerr.URL = req.Method, req.URL

	var bucket Bucket
	if gerr.Kind == KindHTTP {
		bucket = g.classifier.dispatch(ctx, gerr)
	}
	for _, hook := range g.onFailure {
		hook(ctx, gerr.copy())
	}

	g.log.WarnObj("gateway call failed", "gateway_error", map[string]any{
		"method":     req.Method,
		"url":        req.URL,
		"status":     gerr.Status,
		"bucket":     string(bucket),
		"kind":       string(gerr.Kind),
		"error":      gerr.Message,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return gerr
}
