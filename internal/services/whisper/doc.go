// Package whisper wraps the OpenAI audio transcription API. It is the
// mandatory transcription provider: always available, retried with
// exponential backoff on transient failures, and never retried on
// credential rejection.
package whisper
