package soniox

import (
	"context"
	"io"
	"strings"

	"loom/internal/services"
	"loom/internal/transcription"
)

// ProviderName is the name the optional Soniox provider registers under.
const ProviderName = "soniox"

// Config captures the runtime settings for the Soniox API.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client is the optional Soniox transcription provider. It is gated on a
// configured API key and its transcription call is not wired up yet; attempts
// to use it fail distinctly so the orchestrator falls through to Whisper.
type Client struct {
	cfg Config
}

// NewClient constructs a Soniox client using the supplied configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// Available reports whether credentials are configured.
func (c *Client) Available() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Transcribe always fails: the Soniox integration carries configuration only.
func (c *Client) Transcribe(ctx context.Context, audio io.ReadSeeker, language string) (*transcription.Result, error) {
	if !c.Available() {
		return nil, services.Wrap(services.ErrConfiguration, "soniox", "transcribe", "api key not configured", nil)
	}
	return nil, services.Wrap(services.ErrNotImplemented, "soniox", "transcribe", "transcription call not implemented", nil)
}

// HealthCheck reports false until the integration is implemented.
func (c *Client) HealthCheck(ctx context.Context) bool {
	return false
}
