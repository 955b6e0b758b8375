// Package synthesis orchestrates insight extraction from transcripts.
// Generation is idempotent: an existing synthesis short-circuits unless the
// caller forces regeneration, which overwrites every content field while
// keeping the delivery history.
package synthesis
