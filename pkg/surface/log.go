package surface

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
)

// Log reports loading and errors through a structured logger.
type Log struct {
	log gateway.Logger
}

func NewLog(log gateway.Logger) *Log {
	if log == nil {
		return &Log{log: gateway.NopLogger{}}
	}
	return &Log{log: log}
}

func (l *Log) ShowLoading(_ context.Context, text string) (gateway.Indicator, error) {
	start := time.Now()
	l.log.DebugObj("loading", "surface_loading", map[string]any{"text": text})
	return gateway.IndicatorFunc(func() error {
		l.log.DebugObj("loaded", "surface_loading", map[string]any{
			"text":       text,
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}), nil
}

func (l *Log) PresentError(ctx context.Context, message string) error {
	obj := map[string]any{"message": message}
	if gerr, ok := gateway.SurfacedError(ctx); ok {
		obj["method"] = gerr.Method
		obj["url"] = gerr.URL
		obj["status"] = gerr.Status
		obj["kind"] = string(gerr.Kind)
	}
	l.log.ErrorObj("request failed", "surfaced_error", obj)
	return nil
}
