// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package redact

import (
	"context"
	"log/slog"
	"strings"
)

// Handler wraps a slog.Handler, replacing the value of any attribute whose
// key is a PII field with DefaultRedaction and filtering field=value pairs
// out of the message.
type Handler struct {
	next      slog.Handler
	fields    map[string]struct{}
	formatter *Formatter
}

// NewHandler wraps next so the given fields are redacted. Keys match
// case-insensitively.
func NewHandler(next slog.Handler, fields []string) *Handler {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = struct{}{}
	}
	return &Handler{next: next, fields: set, formatter: NewFormatter(fields)}
}

// Enabled reports whether next handles level.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle redacts r and passes it on.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.formatter.Format(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.next.Handle(ctx, out)
}

// WithAttrs redacts attrs before attaching them.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &Handler{next: h.next.WithAttrs(redacted), fields: h.fields, formatter: h.formatter}
}

// WithGroup returns a Handler whose attributes are nested under name.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), fields: h.fields, formatter: h.formatter}
}

func (h *Handler) redact(a slog.Attr) slog.Attr {
	if _, ok := h.fields[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, DefaultRedaction)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redact(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindString:
		return slog.String(a.Key, h.formatter.Format(v.String()))
	case slog.KindAny:
		return slog.Any(a.Key, h.redactAny(v.Any()))
	default:
		return slog.Attr{Key: a.Key, Value: v}
	}
}

// redactAny masks PII keys inside maps and slices, such as the context map
// of an oops error. Other values pass through.
func (h *Handler) redactAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if _, ok := h.fields[strings.ToLower(k)]; ok {
				out[k] = DefaultRedaction
				continue
			}
			out[k] = h.redactAny(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = h.redactAny(inner)
		}
		return out
	case string:
		return h.formatter.Format(val)
	default:
		return v
	}
}
