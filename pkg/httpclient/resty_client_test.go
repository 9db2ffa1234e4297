package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestRestyTransportSendsHeadersQueryAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Errorf("missing header, got %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("missing query, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"a"}` {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := NewRestyTransport(2 * time.Second)
	resp, err := tr.Do(context.Background(), Request{
		Method: "post",
		URL:    srv.URL,
		Header: http.Header{"X-Test": {"1"}, "Content-Type": {"application/json"}},
		Query:  url.Values{"page": {"2"}},
		Body:   map[string]string{"name": "a"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}

func TestRestyTransportReturnsStatusErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"nope"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewRestyTransport(time.Second).Do(context.Background(), Request{URL: srv.URL})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.Response.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status %d", statusErr.Response.StatusCode)
	}
	if statusErr.Method != http.MethodGet {
		t.Fatalf("expected default GET, got %s", statusErr.Method)
	}
}

func TestRestyTransportHonorsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewRestyTransport(20*time.Millisecond).Do(context.Background(), Request{URL: srv.URL})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestRequestCloneIsIndependent(t *testing.T) {
	orig := Request{Header: http.Header{"A": {"1"}}, Query: url.Values{"q": {"x"}}}
	cp := orig.Clone()
	cp.Header.Set("A", "2")
	cp.Query.Set("q", "y")
	if orig.Header.Get("A") != "1" || orig.Query.Get("q") != "x" {
		t.Fatalf("clone mutated original: %#v", orig)
	}
}

func TestRestyTransportMarshalsBodyUnderTextContentType(t *testing.T) {
	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody, gotType = string(body), r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := NewRestyTransport(time.Second).Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Header: http.Header{"Content-Type": {"text/plain"}},
		Body:   map[string]any{"a": 1},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotBody != `{"a":1}` {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if gotType != "text/plain" {
		t.Fatalf("caller content type overridden: %q", gotType)
	}
}

func TestRestyTransportSendsRawBodiesAsIs(t *testing.T) {
	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody, gotType = string(body), r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	_, err := NewRestyTransport(time.Second).Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Header: http.Header{"Content-Type": {"text/plain"}},
		Body:   "hello",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotBody != "hello" || gotType != "text/plain" {
		t.Fatalf("unexpected request %q %q", gotBody, gotType)
	}
}

func TestRestyTransportUnencodableBody(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hit = true }))
	defer srv.Close()

	_, err := NewRestyTransport(time.Second).Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   map[string]any{"ch": make(chan int)},
	})
	var encodeErr *EncodeError
	if !errors.As(err, &encodeErr) {
		t.Fatalf("expected *EncodeError, got %v", err)
	}
	if hit {
		t.Fatalf("request should not have been sent")
	}
}
