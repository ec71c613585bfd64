package logging

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"
)

// newHandler builds the output chain of one logger: stdout when something is attached
// to it, the journal under systemd, and always the ring buffer.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var outputs []slog.Handler
	if stdoutAttached() {
		if format == "json" {
			outputs = append(outputs, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			outputs = append(outputs, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if IsJournalAvailable() {
		outputs = append(outputs, NewJournalHandler(level))
	}
	outputs = append(outputs, NewBufferHandler(nil, level, nil))

	return NewMultiHandler(outputs...)
}

// stdoutAttached reports whether stdout is a terminal, pipe, socket or file rather
// than a device such as /dev/null.
func stdoutAttached() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

// MultiHandler fans records out to several handlers. Attributes whose key ends in
// "url" lose their query, fragment and user info on the way: signed download links
// carry credentials there.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler that writes to all provided handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled implements slog.Handler.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(m.handlers, func(h slog.Handler) bool {
		return h.Enabled(ctx, level)
	})
}

// Handle implements slog.Handler.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redact(a))
		return true
	})

	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, clean.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redact(a)
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(clean) })
}

// WithGroup implements slog.Handler.
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
	return &MultiHandler{handlers: handlers}
}

func redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case slog.KindString:
		if !strings.HasSuffix(strings.ToLower(a.Key), "url") {
			return a
		}
		u, err := url.Parse(a.Value.String())
		if err != nil || (u.RawQuery == "" && u.Fragment == "" && u.User == nil) {
			return a
		}
		u.RawQuery, u.Fragment, u.User = "", "", nil
		return slog.String(a.Key, u.String())
	default:
		return a
	}
}

// attrState is what WithAttrs and WithGroup accumulate for the buffer and journal
// handlers. Attributes keep the group path that was open when they were added.
type attrState struct {
	level  slog.Leveler
	groups []string
	attrs  []leafAttr
}

type leafAttr struct {
	path  []string
	value slog.Value
}

func (s attrState) enabled(level slog.Level) bool {
	return level >= s.level.Level()
}

func (s attrState) withAttrs(attrs []slog.Attr) attrState {
	next := s
	next.attrs = slices.Clip(s.attrs)
	for _, a := range attrs {
		walkAttr(s.groups, a, func(path []string, v slog.Value) {
			next.attrs = append(next.attrs, leafAttr{path: path, value: v})
		})
	}
	return next
}

func (s attrState) withGroup(name string) attrState {
	if name == "" {
		return s
	}
	next := s
	next.groups = append(slices.Clip(s.groups), name)
	return next
}

// each visits the handler's attributes, then the record's.
func (s attrState) each(r slog.Record, fn func(path []string, v slog.Value)) {
	for _, a := range s.attrs {
		fn(a.path, a.value)
	}
	r.Attrs(func(a slog.Attr) bool {
		walkAttr(s.groups, a, fn)
		return true
	})
}

// walkAttr expands groups and calls fn for every leaf with its full key path.
// Groups with an empty key are inlined, empty attributes are dropped.
func walkAttr(prefix []string, a slog.Attr, fn func(path []string, v slog.Value)) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() != slog.KindGroup {
		fn(append(slices.Clip(prefix), a.Key), a.Value)
		return
	}
	if a.Key != "" {
		prefix = append(slices.Clip(prefix), a.Key)
	}
	for _, ga := range a.Value.Group() {
		walkAttr(prefix, ga, fn)
	}
}
