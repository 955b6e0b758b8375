// Package logging builds the application's slog loggers. It offers a
// human-readable console handler for interactive use and a JSON handler
// for machine consumption, plus helpers that carry conversation and
// stage identity from context into every record.
package logging
