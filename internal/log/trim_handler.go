package log

import (
	"context"
	"io"
	"log/slog"
	"unicode/utf8"
)

// MaxAttrLen is the maximum byte length of a logged string attribute.
// Longer values are cut at a rune boundary and suffixed with TruncationMark.
// 256 bytes keeps a whole listing URL intact while cutting page bodies short.
const MaxAttrLen = 256

// TruncationMark is appended to attribute values that were cut.
const TruncationMark = "...[trimmed]"

// TrimHandler wraps an slog.Handler to truncate oversized attribute values.
// It intercepts log records and trims string attributes that exceed
// MaxAttrLen before passing them to the underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Call sites can attach raw values without worrying about their size
type TrimHandler struct {
	// handler is the underlying slog handler that receives trimmed records.
	handler slog.Handler
}

// NewTrimHandler creates a new TrimHandler wrapping the given handler.
// All string attributes will be trimmed before being passed to the underlying
// handler. If handler is nil, the returned TrimHandler will use
// slog.Default().Handler().
func NewTrimHandler(handler slog.Handler) *TrimHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &TrimHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *TrimHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle trims the record's attributes and passes it to the underlying handler.
func (h *TrimHandler) Handle(ctx context.Context, r slog.Record) error {
	// Create a new record with trimmed attributes
	trimmed := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	// Trim each attribute
	r.Attrs(func(a slog.Attr) bool {
		trimmed.AddAttrs(h.trimAttr(a))
		return true
	})

	return h.handler.Handle(ctx, trimmed)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are trimmed before being added.
func (h *TrimHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	trimmedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		trimmedAttrs[i] = h.trimAttr(a)
	}
	return &TrimHandler{handler: h.handler.WithAttrs(trimmedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *TrimHandler) WithGroup(name string) slog.Handler {
	return &TrimHandler{handler: h.handler.WithGroup(name)}
}

// trimAttr trims a single attribute, recursively handling groups.
func (h *TrimHandler) trimAttr(a slog.Attr) slog.Attr {
	// Handle groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		trimmedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			trimmedAttrs[i] = h.trimAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(trimmedAttrs...)}
	}

	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if len(strVal) > MaxAttrLen {
			return slog.String(a.Key, truncate(strVal, MaxAttrLen))
		}
	}

	return a
}

// truncate cuts s to at most limit bytes without splitting a rune.
// Albanian page content is UTF-8 with multi-byte characters, so a plain
// byte slice could leave an invalid sequence at the cut point.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + TruncationMark
}

// NewLogger creates a new slog.Logger with attribute trimming.
// The logger truncates oversized values in all log output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	trimHandler := NewTrimHandler(textHandler)

	return slog.New(trimHandler)
}

// NewJSONLogger creates a new slog.Logger with attribute trimming that
// outputs JSON format. Useful for structured log aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger configured for JSON output with trimming.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	trimHandler := NewTrimHandler(jsonHandler)

	return slog.New(trimHandler)
}
