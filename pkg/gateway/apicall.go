package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// APICall wraps Send with an optional loading indicator and error surfacing.
// The indicator is hidden on every exit path before the call returns. On
// failure the message is presented (when ShowError is set) and the same
// *Error is still returned to the caller.
func (g *Gateway) APICall(ctx context.Context, call Call) (Body, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	surface := g.surfaceFor(call)

	release := func() {}
	if call.ShowLoading {
		ind := g.showLoading(ctx, surface, call.loadingText())
		var once sync.Once
		release = func() { once.Do(func() { g.hideLoading(ind) }) }
		defer release()
	}

	body, err := g.Send(ctx, call.Descriptor)
	release()
	if err != nil {
		if call.ShowError {
			g.present(withSurfacedError(ctx, err), surface, SurfaceMessage(err))
		}
		return nil, err
	}
	return body, nil
}

// GetAPI is APICall with the method fixed to GET.
func (g *Gateway) GetAPI(ctx context.Context, call Call) (Body, error) {
	call.Method = http.MethodGet
	return g.APICall(ctx, call)
}

// PostAPI is APICall with the method fixed to POST.
func (g *Gateway) PostAPI(ctx context.Context, call Call) (Body, error) {
	call.Method = http.MethodPost
	return g.APICall(ctx, call)
}

func (g *Gateway) surfaceFor(call Call) Surface {
	if call.Surface != nil {
		return call.Surface
	}
	if g != nil && g.surface != nil {
		return g.surface
	}
	return NopSurface{}
}

// showLoading never fails the call: a surface that cannot show an indicator
// only costs the indicator.
func (g *Gateway) showLoading(ctx context.Context, s Surface, text string) (ind Indicator) {
	defer func() {
		if r := recover(); r != nil {
			g.log.WarnObj("loading indicator panicked", "surface_error", map[string]any{
				"stage": "show",
				"error": fmt.Sprint(r),
			})
			ind = nil
		}
	}()

	ind, err := s.ShowLoading(ctx, text)
	if err != nil {
		g.log.WarnObj("loading indicator failed", "surface_error", map[string]any{
			"stage": "show",
			"error": err.Error(),
		})
	}
	return ind
}

// hideLoading swallows errors and panics so they cannot mask the call result.
func (g *Gateway) hideLoading(ind Indicator) {
	if ind == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.log.WarnObj("loading indicator panicked", "surface_error", map[string]any{
				"stage": "hide",
				"error": fmt.Sprint(r),
			})
		}
	}()
	if err := ind.Hide(); err != nil {
		g.log.WarnObj("loading indicator removal failed", "surface_error", map[string]any{
			"stage": "hide",
			"error": err.Error(),
		})
	}
}

func (g *Gateway) present(ctx context.Context, s Surface, msg string) {
	defer func() {
		if r := recover(); r != nil {
			g.log.WarnObj("error surface panicked", "surface_error", map[string]any{
				"stage": "present",
				"error": fmt.Sprint(r),
			})
		}
	}()
	if err := s.PresentError(ctx, msg); err != nil {
		g.log.WarnObj("error surface failed", "surface_error", map[string]any{
			"stage":   "present",
			"message": msg,
			"error":   err.Error(),
		})
	}
}
