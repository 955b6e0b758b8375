// Package main hosts the Loom CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// conversation management, pipeline runs (transcribe, synthesize, deliver),
// health checks, and configuration scaffolding. It centralizes configuration
// resolution, store access, and logger setup so subcommands can focus on user
// experience instead of wiring. Pipeline commands take an advisory file lock
// per data directory so concurrent invocations do not interleave.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
