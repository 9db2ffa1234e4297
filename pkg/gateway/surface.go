package gateway

import "context"

// Indicator is a visible loading artifact.
type Indicator interface {
	Hide() error
}

// IndicatorFunc adapts a function to the Indicator interface.
type IndicatorFunc func() error

func (f IndicatorFunc) Hide() error { return f() }

// Surface is the user-facing channel used by APICall.
type Surface interface {
	ShowLoading(ctx context.Context, text string) (Indicator, error)
	PresentError(ctx context.Context, message string) error
}

// NopSurface shows nothing.
type NopSurface struct{}

func (NopSurface) ShowLoading(context.Context, string) (Indicator, error) {
	return IndicatorFunc(func() error { return nil }), nil
}

func (NopSurface) PresentError(context.Context, string) error { return nil }

// Logger defines the logging surface the gateway relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) InfoObj(string, string, interface{})  {}
func (NopLogger) DebugObj(string, string, interface{}) {}
func (NopLogger) WarnObj(string, string, interface{})  {}
func (NopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return NopLogger{}
	}
	return log
}
