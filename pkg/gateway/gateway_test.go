package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-request-gateway/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport captures requests and replies with a fixed response or error.
type recordingTransport struct {
	mu   sync.Mutex
	reqs []httpclient.Request
	resp httpclient.Response
	err  error
}

func (r *recordingTransport) Do(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	return r.resp, r.err
}

func (r *recordingTransport) last() httpclient.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[len(r.reqs)-1]
}

func jsonResponse(status int, body string) httpclient.Response {
	return httpclient.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}
}

func statusFailure(status int, body string) error {
	return &httpclient.StatusError{Method: http.MethodGet, URL: "/x", Response: jsonResponse(status, body)}
}

func newTestGateway(t *testing.T, tr httpclient.Transport, opts ...Option) *Gateway {
	t.Helper()
	g, err := New(DefaultConfig(), tr, opts...)
	require.NoError(t, err)
	return g
}

func TestGetReturnsBodyOnly(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusOK, `{"id":1}`)}
	g := newTestGateway(t, tr)

	body, err := g.Get(context.Background(), "/users/1", nil, Overrides{})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, body.Decode(&got))
	assert.Equal(t, map[string]any{"id": float64(1)}, got)
	assert.Equal(t, http.MethodGet, tr.last().Method)
}

func TestSendDefaultsToGet(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusOK, `{}`)}
	g := newTestGateway(t, tr)

	_, err := g.Send(context.Background(), Descriptor{URL: "/a"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, tr.last().Method)
}

func TestPostSendsBody(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusCreated, `{"ok":true}`)}
	g := newTestGateway(t, tr)

	data := map[string]string{"name": "x"}
	body, err := g.Post(context.Background(), "/items", data, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, body.String())
	assert.Equal(t, http.MethodPost, tr.last().Method)
	assert.Equal(t, data, tr.last().Body)
}

func TestOverrideHeadersWinOverDefaults(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusOK, `{}`)}
	g := newTestGateway(t, tr)

	_, err := g.Get(context.Background(), "/a", nil, Overrides{Headers: map[string]string{"content-type": "text/plain"}})
	require.NoError(t, err)

	hdr := tr.last().Header
	assert.Equal(t, "text/plain", hdr.Get("Content-Type"))
	assert.Len(t, hdr.Values("Content-Type"), 1)
}

func TestQueryAndBaseURL(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusOK, `{}`)}
	cfg := DefaultConfig()
	cfg.BaseURL = "https://api.example.com/v1/"
	g, err := New(cfg, tr)
	require.NoError(t, err)

	_, err = g.Get(context.Background(), "/users", map[string]any{
		"page": 2,
		"tags": []string{"a", "b"},
		"skip": nil,
	}, Overrides{})
	require.NoError(t, err)

	req := tr.last()
	assert.Equal(t, "https://api.example.com/v1/users", req.URL)
	assert.Equal(t, "2", req.Query.Get("page"))
	assert.Equal(t, []string{"a", "b"}, req.Query["tags"])
	_, hasSkip := req.Query["skip"]
	assert.False(t, hasSkip)

	_, err = g.Get(context.Background(), "http://other.test/x", nil, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "http://other.test/x", tr.last().URL)
}

func TestTimeoutProducesNormalizedError(t *testing.T) {
	blocking := httpclient.TransportFunc(func(ctx context.Context, _ httpclient.Request) (httpclient.Response, error) {
		<-ctx.Done()
		return httpclient.Response{}, ctx.Err()
	})
	g, err := New(Config{Timeout: 20 * time.Millisecond}, blocking)
	require.NoError(t, err)

	body, err := g.Get(context.Background(), "/slow", nil, Overrides{})
	assert.Nil(t, body)

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "timeout", gerr.Message)
	assert.True(t, gerr.Timeout())
	_, ok := gerr.HTTPStatus()
	assert.False(t, ok)
}

func TestTimeoutWithRealServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g, err := New(Config{Timeout: 30 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = g.Get(context.Background(), srv.URL, nil, Overrides{})
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindTimeout, gerr.Kind)
	assert.Equal(t, "timeout", gerr.Message)
}

func TestCanceledContext(t *testing.T) {
	tr := httpclient.TransportFunc(func(ctx context.Context, _ httpclient.Request) (httpclient.Response, error) {
		return httpclient.Response{}, ctx.Err()
	})
	g := newTestGateway(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Get(ctx, "/a", nil, Overrides{})

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindCanceled, gerr.Kind)
}

func TestNetworkFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	g := newTestGateway(t, &recordingTransport{err: cause})

	_, err := g.Get(context.Background(), "/a", nil, Overrides{})
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindNetwork, gerr.Kind)
	assert.Equal(t, cause.Error(), gerr.Message)
	assert.ErrorIs(t, err, cause)
}

func TestNon2xxIsFailureEvenIfTransportReturnsIt(t *testing.T) {
	g := newTestGateway(t, &recordingTransport{resp: jsonResponse(http.StatusBadGateway, `{"message":"upstream"}`)})

	_, err := g.Get(context.Background(), "/a", nil, Overrides{})
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindHTTP, gerr.Kind)
	assert.Equal(t, http.StatusBadGateway, gerr.Status)
	assert.Equal(t, "upstream", gerr.ServerMessage())
}

func TestRepeatedCallsAreIdempotent(t *testing.T) {
	ok := newTestGateway(t, &recordingTransport{resp: jsonResponse(http.StatusOK, `{"id":7}`)})
	first, err := ok.Get(context.Background(), "/a", map[string]any{"q": 1}, Overrides{})
	require.NoError(t, err)
	second, err := ok.Get(context.Background(), "/a", map[string]any{"q": 1}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	bad := newTestGateway(t, &recordingTransport{err: statusFailure(http.StatusForbidden, `{}`)})
	_, err1 := bad.Post(context.Background(), "/a", nil, Overrides{})
	_, err2 := bad.Post(context.Background(), "/a", nil, Overrides{})
	var e1, e2 *Error
	require.ErrorAs(t, err1, &e1)
	require.ErrorAs(t, err2, &e2)
	assert.Equal(t, e1.Message, e2.Message)
	assert.Equal(t, e1.Status, e2.Status)
}

func TestNotFoundBucketDoesNotAlterError(t *testing.T) {
	var mu sync.Mutex
	var seen []Bucket
	hook := func(_ context.Context, b Bucket, e Error) {
		mu.Lock()
		seen = append(seen, b)
		mu.Unlock()
		e.Message = "rewritten"
		e.Status = 0
	}

	notFound := newTestGateway(t, &recordingTransport{err: statusFailure(http.StatusNotFound, `{}`)},
		WithStatusHook(BucketNotFound, hook))
	teapot := newTestGateway(t, &recordingTransport{err: statusFailure(http.StatusTeapot, `{}`)},
		WithStatusHook(BucketUnclassified, hook))

	_, errNF := notFound.Get(context.Background(), "/x", nil, Overrides{})
	_, errTP := teapot.Get(context.Background(), "/x", nil, Overrides{})

	var nf, tp *Error
	require.ErrorAs(t, errNF, &nf)
	require.ErrorAs(t, errTP, &tp)

	assert.Equal(t, []Bucket{BucketNotFound, BucketUnclassified}, seen)
	assert.Equal(t, "request failed with status code 404", nf.Message)
	assert.Equal(t, http.StatusNotFound, nf.Status)
	assert.Equal(t, "request failed with status code 418", tp.Message)
	assert.Equal(t, http.StatusTeapot, tp.Status)
	assert.Equal(t, tp.Kind, nf.Kind)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, BucketUnauthorized, Classify(401))
	assert.Equal(t, BucketForbidden, Classify(403))
	assert.Equal(t, BucketNotFound, Classify(404))
	assert.Equal(t, BucketServerError, Classify(500))
	assert.Equal(t, BucketUnclassified, Classify(503))
}

func TestStatusHooksSkipNetworkFailures(t *testing.T) {
	called := false
	failures := 0
	g := newTestGateway(t, &recordingTransport{err: errors.New("reset")},
		WithStatusHook(BucketUnclassified, func(context.Context, Bucket, Error) { called = true }),
		WithFailureHook(func(context.Context, Error) { failures++ }))

	_, err := g.Get(context.Background(), "/a", nil, Overrides{})
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, 1, failures)
}

func TestInterceptorsRunInOrder(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusOK, `{"v":1}`)}
	var order []string
	first := func(_ context.Context, req httpclient.Request) (httpclient.Request, error) {
		order = append(order, "first")
		req.Header.Set("X-Step", "1")
		return req, nil
	}
	second := func(_ context.Context, req httpclient.Request) (httpclient.Request, error) {
		order = append(order, "second")
		req.Header.Set("X-Step", req.Header.Get("X-Step")+"2")
		return req, nil
	}
	rewrite := func(_ context.Context, resp httpclient.Response) (httpclient.Response, error) {
		resp.Body = []byte(`{"v":2}`)
		return resp, nil
	}

	g := newTestGateway(t, tr,
		WithRequestInterceptors(first, second, RequestID("X-Request-ID")),
		WithResponseInterceptors(rewrite))

	body, err := g.Get(context.Background(), "/a", nil, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "12", tr.last().Header.Get("X-Step"))
	assert.NotEmpty(t, tr.last().Header.Get("X-Request-ID"))
	assert.Equal(t, `{"v":2}`, body.String())
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusOK, `{}`)}
	g := newTestGateway(t, tr, WithRequestInterceptors(RequestID("X-Request-ID")))

	_, err := g.Get(context.Background(), "/a", nil, Overrides{Headers: map[string]string{"X-Request-ID": "fixed"}})
	require.NoError(t, err)
	assert.Equal(t, "fixed", tr.last().Header.Get("X-Request-ID"))
}

func TestBearerToken(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusOK, `{}`)}
	g := newTestGateway(t, tr, WithRequestInterceptors(BearerToken(func(context.Context) (string, error) {
		return "abc", nil
	})))

	_, err := g.Get(context.Background(), "/a", nil, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", tr.last().Header.Get("Authorization"))
}

func TestRequestInterceptorFailureIsNormalized(t *testing.T) {
	tr := &recordingTransport{resp: jsonResponse(http.StatusOK, `{}`)}
	g := newTestGateway(t, tr, WithRequestInterceptors(BearerToken(func(context.Context) (string, error) {
		return "", errors.New("no session")
	})))

	_, err := g.Get(context.Background(), "/a", nil, Overrides{})
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindInterceptor, gerr.Kind)
	assert.Contains(t, gerr.Message, "no session")
	assert.Empty(t, tr.reqs)
}

func TestNewRejectsNegativeTimeout(t *testing.T) {
	_, err := New(Config{Timeout: -time.Second}, nil)
	assert.Error(t, err)
}

func TestConfigIsCopied(t *testing.T) {
	cfg := DefaultConfig()
	g, err := New(cfg, &recordingTransport{})
	require.NoError(t, err)

	cfg.DefaultHeaders["Content-Type"] = "text/xml"
	got := g.Config()
	got.DefaultHeaders["Content-Type"] = "text/csv"
	assert.Equal(t, "application/json", g.Config().DefaultHeaders["Content-Type"])
}

func TestConcurrentCallsShareNoState(t *testing.T) {
	tr := httpclient.TransportFunc(func(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
		return jsonResponse(http.StatusOK, `"`+req.Query.Get("n")+`"`), nil
	})
	g := newTestGateway(t, tr)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			body, err := g.Get(context.Background(), "/n", map[string]any{"n": n}, Overrides{})
			if assert.NoError(t, err) {
				var got string
				assert.NoError(t, body.Decode(&got))
				assert.Equal(t, strconv.Itoa(n), got)
			}
		}(i)
	}
	wg.Wait()
}

func TestPostMapBodyWithTextContentType(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		got = string(raw)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	g := newTestGateway(t, nil)
	body, err := g.Post(context.Background(), srv.URL, map[string]any{"a": 1},
		Overrides{Headers: map[string]string{"Content-Type": "text/plain"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", body.String())
	assert.Equal(t, `{"a":1}`, got)
}

func TestUnencodableBodyIsEncodingFailure(t *testing.T) {
	g := newTestGateway(t, nil)
	_, err := g.Post(context.Background(), "http://127.0.0.1:1/never", map[string]any{"ch": make(chan int)}, Overrides{})

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindEncoding, gerr.Kind)
	assert.Zero(t, gerr.Status)
}

func TestTransportErrorValueIsNotMutated(t *testing.T) {
	own := &Error{Message: "custom", Kind: KindNetwork}
	g := newTestGateway(t, &recordingTransport{err: own})

	_, err := g.Get(context.Background(), "/users/1", nil, Overrides{})
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "/users/1", gerr.URL)
	assert.NotSame(t, own, gerr)
	assert.Empty(t, own.Method)
	assert.Empty(t, own.URL)
}
