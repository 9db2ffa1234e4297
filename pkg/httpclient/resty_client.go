package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyTransport adapts resty.Client to the httpclient.Transport interface.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a new RestyTransport with the specified timeout.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	return &RestyTransport{client: newRestyBaseClient(timeout)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Do issues the request and treats any non-2xx status as a *StatusError.
func (r *RestyTransport) Do(ctx context.Context, req Request) (Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = resty.MethodGet
	}

	rr := r.client.R().SetContext(ctx)
	for k, vs := range req.Header {
		for _, v := range vs {
			rr.Header.Add(k, v)
		}
	}
	if len(req.Query) > 0 {
		rr.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		body, marshaled, err := encodeBody(req.Body)
		if err != nil {
			return Response{}, err
		}
		if marshaled && rr.Header.Get("Content-Type") == "" {
			rr.Header.Set("Content-Type", "application/json")
		}
		rr.SetBody(body)
	}

	resp, err := rr.Execute(method, req.URL)
	if err != nil {
		return Response{}, err
	}

	out := Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
	if !IsSuccess(out.StatusCode) {
		return out, &StatusError{Method: method, URL: req.URL, Response: out}
	}
	return out, nil
}

// encodeBody passes raw bodies through and marshals everything else to JSON,
// whatever Content-Type the caller set.
func encodeBody(body any) (out any, marshaled bool, err error) {
	switch body.(type) {
	case []byte, string, io.Reader:
		return body, false, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, false, &EncodeError{Err: err}
	}
	return raw, true, nil
}
