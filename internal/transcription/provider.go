package transcription

import (
	"context"
	"io"
)

// Provider names accepted for pinning a transcription run to one backend.
const (
	ProviderWhisper = "whisper"
	ProviderSoniox  = "soniox"
)

// Segment is a time-aligned slice of the transcript.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the output of a single provider transcription call.
type Result struct {
	Text     string
	Duration float64
	Language string
	Segments []Segment
}

// Provider is a transcription backend. Implementations must leave the audio
// stream position unspecified on failure; the orchestrator rewinds between
// attempts.
type Provider interface {
	Name() string
	Available() bool
	Transcribe(ctx context.Context, audio io.ReadSeeker, language string) (*Result, error)
	HealthCheck(ctx context.Context) bool
}
