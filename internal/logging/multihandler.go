package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// MultiHandler fans out log records to the file or console handler and the
// OTel bridge. A sink that fails does not stop delivery to the others.
type MultiHandler struct {
	handlers []slog.Handler
	// failures is shared with every handler derived by WithAttrs or WithGroup.
	failures *atomic.Int64
}

// NewMultiHandler creates a handler that writes to all non-nil handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	valid := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			valid = append(valid, h)
		}
	}
	return &MultiHandler{handlers: valid, failures: new(atomic.Int64)}
}

// Enabled returns true if any handler is enabled for the given level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to every enabled handler and joins their errors.
// slog.Logger discards that result, so each rejection is also counted.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			m.failures.Add(1)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Failures returns how many times a sink rejected a record.
func (m *MultiHandler) Failures() int64 {
	return m.failures.Load()
}

// WithAttrs returns a MultiHandler whose sinks all carry attrs.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup returns a MultiHandler whose sinks all nest under name.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = fn(h)
	}
	return &MultiHandler{handlers: handlers, failures: m.failures}
}
