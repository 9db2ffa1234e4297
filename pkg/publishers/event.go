package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-request-gateway/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	Source      string         `json:"source"`
	Failure     domain.Failure `json:"failure"`
	PublishedAt time.Time      `json:"published_at"`
}

// NewEvent constructs an Event for a surfaced failure.
func NewEvent(source string, failure domain.Failure) Event {
	return Event{
		Source:      source,
		Failure:     failure,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes shared by queue and topic sinks.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"source": e.Source,
		"kind":   e.Failure.Kind,
	}
	if e.Failure.Bucket != "" {
		attrs["bucket"] = e.Failure.Bucket
	}
	for k, v := range attrs {
		if v == "" {
			delete(attrs, k)
		}
	}
	return attrs
}
