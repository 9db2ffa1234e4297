package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultLoadingText = "Loading..."
)

// Config is the process-wide client configuration. It is copied on New and
// never changes afterwards.
type Config struct {
	Timeout        time.Duration
	DefaultHeaders map[string]string
	// BaseURL prefixes descriptor URLs that carry no scheme.
	BaseURL string
}

// DefaultConfig returns the 10s / JSON defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		DefaultHeaders: map[string]string{"Content-Type": "application/json"},
	}
}

func (c Config) clone() Config {
	out := c
	out.DefaultHeaders = make(map[string]string, len(c.DefaultHeaders))
	for k, v := range c.DefaultHeaders {
		out.DefaultHeaders[k] = v
	}
	return out
}

// Overrides are per-call configuration overrides.
type Overrides struct {
	Headers map[string]string
}

// Descriptor describes one outbound call.
type Descriptor struct {
	Method string
	URL    string
	Query  map[string]any
	Body   any
	Config Overrides
}

// Call is a descriptor plus the side-effect options of APICall.
type Call struct {
	Descriptor

	ShowLoading bool
	ShowError   bool
	LoadingText string

	// Surface replaces the gateway surface for this call when set.
	Surface Surface
}

// NewCall returns a Call with ShowError enabled and the default loading text.
func NewCall(method, url string) Call {
	return Call{
		Descriptor:  Descriptor{Method: method, URL: url},
		ShowError:   true,
		LoadingText: DefaultLoadingText,
	}
}

func (c Call) loadingText() string {
	if strings.TrimSpace(c.LoadingText) == "" {
		return DefaultLoadingText
	}
	return c.LoadingText
}

// Body is an unwrapped response body.
type Body []byte

// Decode unmarshals a JSON body into v.
func (b Body) Decode(v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func (b Body) String() string { return string(b) }

func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return http.MethodGet
	}
	return m
}

// mergeHeaders applies defaults first so per-call values win on collision.
func mergeHeaders(defaults, overrides map[string]string) http.Header {
	h := make(http.Header, len(defaults)+len(overrides))
	for k, v := range defaults {
		h.Set(k, v)
	}
	for k, v := range overrides {
		h.Set(k, v)
	}
	return h
}

func resolveURL(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if base == "" || strings.Contains(raw, "://") {
		return raw
	}
	if raw == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/")
}

// encodeQuery flattens query values; nil entries are dropped.
func encodeQuery(params map[string]any) url.Values {
	if len(params) == 0 {
		return nil
	}
	out := make(url.Values, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case nil:
		case []string:
			out[k] = append(out[k], val...)
		case []any:
			for _, item := range val {
				if item != nil {
					out.Add(k, fmt.Sprint(item))
				}
			}
		default:
			out.Add(k, fmt.Sprint(val))
		}
	}
	return out
}
