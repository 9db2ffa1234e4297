package gateway

import (
	"context"
	"net/http"
)

// Bucket groups HTTP failure statuses for side-effect hooks.
type Bucket string

const (
	BucketUnauthorized Bucket = "unauthorized"
	BucketForbidden    Bucket = "forbidden"
	BucketNotFound     Bucket = "not_found"
	BucketServerError  Bucket = "server_error"
	BucketUnclassified Bucket = "unclassified"
)

// Classify maps a status code to its bucket.
func Classify(status int) Bucket {
	switch status {
	case http.StatusUnauthorized:
		return BucketUnauthorized
	case http.StatusForbidden:
		return BucketForbidden
	case http.StatusNotFound:
		return BucketNotFound
	case http.StatusInternalServerError:
		return BucketServerError
	default:
		return BucketUnclassified
	}
}

// StatusHook runs for HTTP failures in the bucket it was registered for.
// It receives a copy: nothing it does changes the error the caller gets.
type StatusHook func(ctx context.Context, bucket Bucket, err Error)

// FailureHook runs for every failed call, with or without a response.
type FailureHook func(ctx context.Context, err Error)

// classifier dispatches HTTP failures to bucket hooks.
type classifier struct {
	hooks map[Bucket][]StatusHook
}

func (c *classifier) add(bucket Bucket, hook StatusHook) {
	if hook == nil {
		return
	}
	if c.hooks == nil {
		c.hooks = make(map[Bucket][]StatusHook)
	}
	c.hooks[bucket] = append(c.hooks[bucket], hook)
}

// dispatch returns the bucket used, or "" when err carries no status.
func (c *classifier) dispatch(ctx context.Context, err *Error) Bucket {
	if err == nil || err.Status == 0 {
		return ""
	}
	bucket := Classify(err.Status)
	c.run(ctx, bucket, err)
	return bucket
}

func (c *classifier) run(ctx context.Context, bucket Bucket, err *Error) {
	for _, hook := range c.hooks[bucket] {
		hook(ctx, bucket, err.copy())
	}
}
