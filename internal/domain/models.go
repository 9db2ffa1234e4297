package domain

import "time"

// Domain contains core models shared by the journal, publishers and surfaces.

// Failure is one surfaced gateway failure.
type Failure struct {
	ID         string    `json:"id"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Status     int       `json:"status,omitempty"`
	Bucket     string    `json:"bucket,omitempty"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
