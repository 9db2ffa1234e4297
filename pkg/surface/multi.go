package surface

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
)

// Multi shows loading on, and presents errors to, every surface in order.
// A failing or panicking surface does not stop the others; errors are joined.
// The returned indicator always hides whatever was shown.
type Multi []gateway.Surface

func (m Multi) ShowLoading(ctx context.Context, text string) (gateway.Indicator, error) {
	var (
		shown []gateway.Indicator
		errs  []error
	)
	for _, s := range m {
		if s == nil {
			continue
		}
		ind, err := safeShow(ctx, s, text)
		if err != nil {
			errs = append(errs, err)
		}
		if ind != nil {
			shown = append(shown, ind)
		}
	}
	return gateway.IndicatorFunc(func() error {
		var hideErrs []error
		for i := len(shown) - 1; i >= 0; i-- {
			if err := safeHide(shown[i]); err != nil {
				hideErrs = append(hideErrs, err)
			}
		}
		return errors.Join(hideErrs...)
	}), errors.Join(errs...)
}

func (m Multi) PresentError(ctx context.Context, message string) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := safePresent(ctx, s, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeShow(ctx context.Context, s gateway.Surface, text string) (ind gateway.Indicator, err error) {
	defer func() {
		if r := recover(); r != nil {
			ind, err = nil, fmt.Errorf("show loading panicked: %v", r)
		}
	}()
	return s.ShowLoading(ctx, text)
}

func safeHide(ind gateway.Indicator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hide loading panicked: %v", r)
		}
	}()
	return ind.Hide()
}

func safePresent(ctx context.Context, s gateway.Surface, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("present error panicked: %v", r)
		}
	}()
	return s.PresentError(ctx, message)
}
