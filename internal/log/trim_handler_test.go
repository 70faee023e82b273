package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestTrimHandler_TrimsLongValues tests that oversized string attributes are cut.
func TestTrimHandler_TrimsLongValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantTrim bool
	}{
		{
			name:     "short URL passes through",
			key:      "url",
			value:    "https://www.merrjep.al/njoftime/automjete/makina/ne-shitje?Page=1",
			wantTrim: false,
		},
		{
			name:     "value at the limit passes through",
			key:      "body",
			value:    strings.Repeat("a", MaxAttrLen),
			wantTrim: false,
		},
		{
			name:     "value over the limit is trimmed",
			key:      "body",
			value:    strings.Repeat("a", MaxAttrLen+1),
			wantTrim: true,
		},
		{
			name:     "page-sized value is trimmed",
			key:      "body",
			value:    strings.Repeat("<div class=\"tag-item\">", 4096),
			wantTrim: true,
		},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy; required while go.mod targets go < 1.22
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			handler := NewTrimHandler(slog.NewTextHandler(&buf, nil))
			logger := slog.New(handler)

			logger.Info("test", tt.key, tt.value)

			output := buf.String()
			gotTrim := strings.Contains(output, TruncationMark)
			if gotTrim != tt.wantTrim {
				t.Errorf("trimmed=%v, expected %v (output %d bytes)", gotTrim, tt.wantTrim, len(output))
			}
			if tt.wantTrim && strings.Contains(output, tt.value) {
				t.Error("expected original value to be absent after trimming")
			}
		})
	}
}

// TestTruncate tests the truncate helper.
func TestTruncate(t *testing.T) {
	t.Parallel()

	t.Run("respects rune boundaries", func(t *testing.T) {
		t.Parallel()

		// "ë" is 2 bytes in UTF-8; a limit of 5 falls inside the third one.
		s := "ëëë"
		got := truncate(s, 5)

		want := "ëë" + TruncationMark
		if got != want {
			t.Errorf("got %q, expected %q", got, want)
		}
	})

	t.Run("short strings unchanged", func(t *testing.T) {
		t.Parallel()

		if got := truncate("Prishtinë", 64); got != "Prishtinë" {
			t.Errorf("got %q, expected input unchanged", got)
		}
	})
}

// TestTrimHandler_LogLevels tests level handling of the wrapped logger.
func TestTrimHandler_LogLevels(t *testing.T) {
	t.Parallel()

	t.Run("default level suppresses info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, false)

		logger.Info("hidden")
		logger.Warn("visible")

		output := buf.String()
		if strings.Contains(output, "hidden") {
			t.Error("expected info to be suppressed at default level")
		}
		if !strings.Contains(output, "visible") {
			t.Error("expected warning to be logged")
		}
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, true)

		logger.Debug("details")

		if !strings.Contains(buf.String(), "details") {
			t.Error("expected debug to be logged in verbose mode")
		}
	})
}

// TestTrimHandler_WithAttrs tests that pre-attached attributes are trimmed.
func TestTrimHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := NewTrimHandler(slog.NewTextHandler(&buf, nil))
	logger := slog.New(handler).With("body", strings.Repeat("x", MaxAttrLen*2))

	logger.Info("test")

	if !strings.Contains(buf.String(), TruncationMark) {
		t.Error("expected attached attribute to be trimmed")
	}
}

// TestTrimHandler_WithGroup tests that grouped attributes are trimmed.
func TestTrimHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := NewTrimHandler(slog.NewTextHandler(&buf, nil))
	logger := slog.New(handler).WithGroup("fetch")

	logger.Info("test", "body", strings.Repeat("x", MaxAttrLen*2))

	if !strings.Contains(buf.String(), TruncationMark) {
		t.Error("expected grouped attribute to be trimmed")
	}
}

// TestNewJSONLogger tests the JSON logger constructor.
func TestNewJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, true)

	logger.Debug("test", "url", "https://example.com")

	output := buf.String()
	if !strings.Contains(output, `"msg":"test"`) {
		t.Errorf("expected JSON output, got %q", output)
	}
}

// TestNewTrimHandler_NilHandler tests the nil fallback.
func TestNewTrimHandler_NilHandler(t *testing.T) {
	t.Parallel()

	handler := NewTrimHandler(nil)
	if handler == nil {
		t.Fatal("expected non-nil handler")
	}
	// Must not panic when used
	logger := slog.New(handler)
	logger.Info("test")
}
