package logging

import (
	"context"
	"log/slog"
)

// Attr is re-exported so callers can build structured fields without
// importing log/slog directly.
type Attr = slog.Attr

func String(key, value string) Attr          { return slog.String(key, value) }
func Int(key string, value int) Attr         { return slog.Int(key, value) }
func Int64(key string, value int64) Attr     { return slog.Int64(key, value) }
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }
func Bool(key string, value bool) Attr       { return slog.Bool(key, value) }
func Error(err error) Attr                   { return slog.Any("error", err) }
func Any(key string, value any) Attr         { return slog.Any(key, value) }

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NoopHandler drops all records.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }

// NewComponentLogger tags every record with the owning component name.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		return NewNop()
	}
	if component == "" {
		return base
	}
	return base.With(String(FieldComponent, component))
}
