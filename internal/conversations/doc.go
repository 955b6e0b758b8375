// Package conversations persists meeting conversations in SQLite and exposes
// helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, participant
// rosters, and the per-conversation synthesis row. Conversations capture the
// transcript, provider attribution, and processing outcomes so the pipeline
// stages can coordinate without additional state.
//
// Treat this package as the single source of truth for conversation
// semantics; when you add new statuses or fields, update schema.sql and bump
// schemaVersion.
package conversations
