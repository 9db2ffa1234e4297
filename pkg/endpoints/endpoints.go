package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-request-gateway/internal/registryfile"
	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
)

// Package endpoints loads named call profiles (YAML/JSON) for the gateway.

// Endpoint is one named call profile.
type Endpoint struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Method      string            `json:"method" yaml:"method"`
	URL         string            `json:"url" yaml:"url"`
	Query       map[string]any    `json:"query" yaml:"query"`
	Headers     map[string]string `json:"headers" yaml:"headers"`
	Body        any               `json:"body" yaml:"body"`
	ShowLoading bool              `json:"show_loading" yaml:"show_loading"`
	ShowError   *bool             `json:"show_error" yaml:"show_error"`
	LoadingText string            `json:"loading_text" yaml:"loading_text"`
}

type registryFile struct {
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Registry holds the loaded endpoints in file order.
type Registry struct {
	mu        sync.RWMutex
	endpoints []Endpoint
	idx       map[string]Endpoint
}

// LoadRegistry loads endpoint profiles from file.
func LoadRegistry(path string) (*Registry, error) {
	var file registryFile
	if err := registryfile.Load(path, "endpoints", &file); err != nil {
		return nil, err
	}
	if len(file.Endpoints) == 0 {
		return nil, errors.New("endpoints file contains no endpoints entries")
	}

	idx := make(map[string]Endpoint, len(file.Endpoints))
	for i := range file.Endpoints {
		e := sanitizeEndpoint(file.Endpoints[i])
		if err := validateEndpoint(e); err != nil {
			return nil, fmt.Errorf("endpoint[%d]: %w", i, err)
		}
		if _, exists := idx[e.ID]; exists {
			return nil, fmt.Errorf("duplicate endpoint id %q", e.ID)
		}
		file.Endpoints[i] = e
		idx[e.ID] = e
	}

	return &Registry{endpoints: file.Endpoints, idx: idx}, nil
}

func sanitizeEndpoint(e Endpoint) Endpoint {
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
	e.URL = strings.TrimSpace(e.URL)
	e.LoadingText = strings.TrimSpace(e.LoadingText)

	if e.Method == "" {
		e.Method = http.MethodGet
	}
	if e.Name == "" {
		e.Name = e.ID
	}

	headers := make(map[string]string, len(e.Headers))
	for k, v := range e.Headers {
		if k = strings.TrimSpace(k); k != "" {
			headers[k] = strings.TrimSpace(v)
		}
	}
	e.Headers = headers

	return e
}

func validateEndpoint(e Endpoint) error {
	if e.ID == "" {
		return errors.New("id is required")
	}
	if e.URL == "" {
		return fmt.Errorf("url is required for endpoint %q", e.ID)
	}
	if strings.ContainsAny(e.Method, " \t") {
		return fmt.Errorf("invalid method %q for endpoint %q", e.Method, e.ID)
	}
	return nil
}

// All returns a copy of the loaded endpoints in file order.
func (r *Registry) All() []Endpoint {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// ByID returns the endpoint for the given id, if loaded.
func (r *Registry) ByID(id string) (Endpoint, bool) {
	id = strings.TrimSpace(id)
	if r == nil || id == "" {
		return Endpoint{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.idx[id]
	return e, ok
}

// ShowErrorValue returns the show_error flag defaulting to true.
func (e Endpoint) ShowErrorValue() bool {
	if e.ShowError == nil {
		return true
	}
	return *e.ShowError
}

// ToCall converts the profile into a gateway call.
func (e Endpoint) ToCall() gateway.Call {
	call := gateway.NewCall(e.Method, e.URL)
	call.Query = e.Query
	call.Body = e.Body
	call.ShowLoading = e.ShowLoading
	call.ShowError = e.ShowErrorValue()
	if e.LoadingText != "" {
		call.LoadingText = e.LoadingText
	}
	if len(e.Headers) > 0 {
		call.Config.Headers = make(map[string]string, len(e.Headers))
		for k, v := range e.Headers {
			call.Config.Headers[k] = v
		}
	}
	return call
}
