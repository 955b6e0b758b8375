package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.OpenAI.APIKey = "test"
	cfgVal.SMTP.Username = "pipeline@example.com"
	cfgVal.SMTP.Password = "test"
	cfgVal.SMTP.FromEmail = "pipeline@example.com"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOpenAIKey sets the OpenAI API key on the test config.
func WithOpenAIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenAI.APIKey = key
	}
}

// WithSonioxKey sets the Soniox API key, enabling the optional provider.
func WithSonioxKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Soniox.APIKey = key
	}
}

// WithRetryMaxAttempts overrides the retry ceiling on the test config.
func WithRetryMaxAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retry.MaxAttempts = attempts
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
