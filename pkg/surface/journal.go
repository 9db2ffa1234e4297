package surface

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-request-gateway/internal/domain"
	"github.com/samvad-hq/samvad-request-gateway/internal/storage"
	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
	"github.com/samvad-hq/samvad-request-gateway/pkg/publishers"
)

// FailureFrom builds the record of a surfaced failure. Request details come
// from the failure APICall attaches to ctx; message is what the user saw.
func FailureFrom(ctx context.Context, message string) domain.Failure {
	f := domain.Failure{
		ID:         uuid.NewString(),
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
	gerr, ok := gateway.SurfacedError(ctx)
	if !ok {
		return f
	}
	f.Method = gerr.Method
	f.URL = gerr.URL
	f.Status = gerr.Status
	f.Kind = string(gerr.Kind)
	if gerr.Kind == gateway.KindHTTP {
		f.Bucket = string(gateway.Classify(gerr.Status))
	}
	return f
}

// Journal persists surfaced failures. It draws nothing while loading.
type Journal struct {
	journal storage.Journal
}

func NewJournal(j storage.Journal) *Journal {
	return &Journal{journal: j}
}

func (j *Journal) ShowLoading(context.Context, string) (gateway.Indicator, error) {
	return nopIndicator, nil
}

func (j *Journal) PresentError(ctx context.Context, message string) error {
	if j == nil || j.journal == nil {
		return nil
	}
	if err := j.journal.Record(FailureFrom(ctx, message)); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// Notify publishes surfaced failures to every configured publisher.
type Notify struct {
	fanout *publishers.Fanout
	source string
}

func NewNotify(fanout *publishers.Fanout, source string) *Notify {
	return &Notify{fanout: fanout, source: source}
}

func (n *Notify) ShowLoading(context.Context, string) (gateway.Indicator, error) {
	return nopIndicator, nil
}

func (n *Notify) PresentError(ctx context.Context, message string) error {
	if n == nil || n.fanout.Size() == 0 {
		return nil
	}
	_, err := n.fanout.Publish(ctx, publishers.NewEvent(n.source, FailureFrom(ctx, message)))
	return err
}

var nopIndicator = gateway.IndicatorFunc(func() error { return nil })
