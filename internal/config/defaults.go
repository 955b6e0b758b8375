package config

const (
	defaultDataDir          = "~/.local/share/loom"
	defaultLogDir           = "~/.local/share/loom/logs"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultWhisperModel     = "whisper-1"
	defaultSynthesisModel   = "gpt-4-turbo-preview"
	defaultExtractionModel  = "gpt-4-mini"
	defaultOpenAITimeout    = 120
	defaultSonioxBaseURL    = "https://api.soniox.com/v1"
	defaultSMTPHost         = "smtp.gmail.com"
	defaultSMTPPort         = 587
	defaultSMTPFromEmail    = "noreply@loom.local"
	defaultSMTPFromName     = "Loom"
	defaultSMTPTimeout      = 30
	defaultNotifyTimeout    = 10
	defaultRetryMaxAttempts = 3
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		OpenAI: OpenAI{
			BaseURL:         defaultOpenAIBaseURL,
			WhisperModel:    defaultWhisperModel,
			SynthesisModel:  defaultSynthesisModel,
			ExtractionModel: defaultExtractionModel,
			TimeoutSeconds:  defaultOpenAITimeout,
		},
		Soniox: Soniox{
			BaseURL: defaultSonioxBaseURL,
		},
		SMTP: SMTP{
			Host:           defaultSMTPHost,
			Port:           defaultSMTPPort,
			FromEmail:      defaultSMTPFromEmail,
			FromName:       defaultSMTPFromName,
			TimeoutSeconds: defaultSMTPTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Transcription:  true,
			Synthesis:      true,
			Delivery:       true,
			Errors:         true,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryMaxAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
