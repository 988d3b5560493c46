package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes describing the current run. It is called
// once per record, so it must be safe for concurrent use.
type ContextProvider func() []slog.Attr

// MultiHandler fans each record out to every enabled handler.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler skips nil handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	m := &MultiHandler{handlers: make([]slog.Handler, 0, len(handlers))}
	for _, h := range handlers {
		if h != nil {
			m.handlers = append(m.handlers, h)
		}
	}
	return m
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers to every handler even when one fails and returns the
// joined failures.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := &MultiHandler{handlers: make([]slog.Handler, len(m.handlers))}
	for i, h := range m.handlers {
		out.handlers[i] = fn(h)
	}
	return out
}

// ContextHandler appends the provider's run attributes to every record.
type ContextHandler struct {
	next     slog.Handler
	provider ContextProvider
}

func NewContextHandler(next slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.next.WithAttrs(attrs), h.provider)
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return NewContextHandler(h.next.WithGroup(name), h.provider)
}
