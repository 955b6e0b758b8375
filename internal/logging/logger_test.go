package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"loom/internal/services"
)

func TestPrettyHandlerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger = NewComponentLogger(logger, "transcription")
	logger.Info("provider selected", String(FieldProvider, "whisper"), Int("attempt", 2))

	line := buf.String()
	if !strings.Contains(line, "INFO transcription: provider selected") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "provider=whisper") || !strings.Contains(line, "attempt=2") {
		t.Fatalf("missing fields: %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Warn("delivery failed", String("reason", "smtp auth rejected"))

	if !strings.Contains(buf.String(), `reason="smtp auth rejected"`) {
		t.Fatalf("value not quoted: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAnnotatesConversation(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	ctx := services.WithConversationID(context.Background(), "conv-123")
	ctx = services.WithStage(ctx, "synthesis")

	WithContext(ctx, logger).Info("started")

	line := buf.String()
	if !strings.Contains(line, "conversation_id=conv-123") {
		t.Fatalf("missing conversation id: %q", line)
	}
	if !strings.Contains(line, "stage=synthesis") {
		t.Fatalf("missing stage: %q", line)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
}
