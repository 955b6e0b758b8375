// Package transcription orchestrates audio transcription across providers.
//
// The Service resolves a provider order from the optional pin (Soniox is
// preferred when configured, Whisper is the mandatory fallback), rewinds the
// audio stream between attempts, and persists the transcript, provider
// attribution, and elapsed time on the conversation. A run where every
// provider fails marks the conversation failed with a composite error
// message and never writes a transcript.
package transcription
