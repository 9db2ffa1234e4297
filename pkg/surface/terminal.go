// Package surface provides gateway.Surface implementations: a terminal, the
// structured log, the failure journal and the publisher fan-out.
package surface

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/samvad-hq/samvad-request-gateway/pkg/gateway"
)

const clearLine = "\r\033[K"

// Terminal draws a single loading line and prints errors to a writer.
// Concurrent calls share the line: it is drawn by the first indicator and
// cleared by the last one hidden.
type Terminal struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	active      int
}

// NewTerminal writes to out. Loading lines are only drawn when out is a
// terminal or force is set; errors are always printed.
func NewTerminal(out io.Writer, force bool) *Terminal {
	if out == nil {
		out = os.Stderr
	}
	return &Terminal{out: out, interactive: force || isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (t *Terminal) ShowLoading(_ context.Context, text string) (gateway.Indicator, error) {
	if !t.interactive {
		return gateway.IndicatorFunc(func() error { return nil }), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == 0 {
		if _, err := fmt.Fprint(t.out, "\r"+text); err != nil {
			return nil, err
		}
	}
	t.active++

	var once sync.Once
	return gateway.IndicatorFunc(func() error {
		var err error
		once.Do(func() { err = t.hide() })
		return err
	}), nil
}

func (t *Terminal) hide() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == 0 {
		return nil
	}
	t.active--
	if t.active > 0 {
		return nil
	}
	_, err := fmt.Fprint(t.out, clearLine)
	return err
}

func (t *Terminal) PresentError(_ context.Context, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix := ""
	if t.active > 0 {
		prefix = clearLine
	}
	_, err := fmt.Fprintf(t.out, "%serror: %s\n", prefix, message)
	return err
}
