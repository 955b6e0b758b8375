package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"loom/internal/conversations"
	"loom/internal/logging"
	"loom/internal/services"
)

// Service orchestrates transcription across the configured providers and
// persists the outcome on the conversation.
type Service struct {
	store   *conversations.Store
	whisper Provider
	soniox  Provider
	logger  *slog.Logger
}

// NewService wires the orchestrator. whisper is mandatory; soniox may be nil
// when the optional provider is not configured at all.
func NewService(store *conversations.Store, whisper, soniox Provider, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		whisper: whisper,
		soniox:  soniox,
		logger:  logging.NewComponentLogger(logger, "transcription"),
	}
}

// providerOrder resolves the attempt sequence for a run. Pinning whisper
// yields whisper alone; pinning soniox keeps whisper as the fallback;
// unpinned runs prefer soniox when it is configured.
func (s *Service) providerOrder(pin string) ([]Provider, error) {
	switch pin {
	case ProviderWhisper:
		return []Provider{s.whisper}, nil
	case ProviderSoniox:
		if s.soniox == nil {
			return []Provider{s.whisper}, nil
		}
		return []Provider{s.soniox, s.whisper}, nil
	case "":
		if s.soniox != nil && s.soniox.Available() {
			return []Provider{s.soniox, s.whisper}, nil
		}
		return []Provider{s.whisper}, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "transcription", "provider",
			fmt.Sprintf("unknown provider %q", pin), nil)
	}
}

// TranscribeAudio runs the provider fallback chain over the audio stream and
// records the result on the conversation. The stream is rewound before every
// provider attempt.
func (s *Service) TranscribeAudio(ctx context.Context, conversationID string, audio io.ReadSeeker, language string, pin string) (*conversations.Conversation, error) {
	conv, err := s.store.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, services.Wrap(services.ErrNotFound, "transcription", "transcribe",
			"conversation "+conversationID+" not found", nil)
	}
	if audio == nil {
		return nil, services.Wrap(services.ErrValidation, "transcription", "transcribe", "audio stream required", nil)
	}

	normalizedLanguage, err := NormalizeLanguage(language)
	if err != nil {
		return nil, err
	}
	order, err := s.providerOrder(pin)
	if err != nil {
		return nil, err
	}

	ctx = services.WithConversationID(ctx, conv.ID)
	ctx = services.WithStage(ctx, "transcription")
	log := logging.WithContext(ctx, s.logger)

	conv.Status = conversations.StatusTranscribing
	conv.ErrorMessage = ""
	if err := s.store.Update(ctx, conv); err != nil {
		return nil, err
	}

	started := time.Now()
	var lastErr error
	for _, provider := range order {
		if provider == nil {
			continue
		}
		if !provider.Available() {
			log.Info("skipping unavailable provider", logging.String(logging.FieldProvider, provider.Name()))
			continue
		}
		if _, err := audio.Seek(0, io.SeekStart); err != nil {
			lastErr = fmt.Errorf("rewind audio stream: %w", err)
			break
		}

		log.Info("attempting transcription", logging.String(logging.FieldProvider, provider.Name()))
		result, err := provider.Transcribe(ctx, audio, normalizedLanguage)
		if err != nil {
			lastErr = err
			log.Warn("provider failed",
				logging.String(logging.FieldProvider, provider.Name()),
				logging.Error(err))
			continue
		}

		elapsed := int(time.Since(started).Seconds())
		conv.SetTranscribed(result.Text, provider.Name(), elapsed)
		if conv.DurationSeconds == 0 && result.Duration > 0 {
			conv.DurationSeconds = int(result.Duration)
		}
		if err := s.store.Update(ctx, conv); err != nil {
			return nil, err
		}
		log.Info("transcription completed",
			logging.String(logging.FieldProvider, provider.Name()),
			logging.Int("word_count", conv.TranscriptWordCount),
			logging.Int("elapsed_seconds", elapsed))
		return conv, nil
	}

	if lastErr == nil {
		lastErr = services.Wrap(services.ErrConfiguration, "transcription", "transcribe", "no provider available", nil)
	}
	failure := fmt.Sprintf("All transcription providers failed. Last error: %v", lastErr)
	conv.SetFailed(failure)
	conv.ProcessingTimeSeconds = int(time.Since(started).Seconds())
	if err := s.store.Update(ctx, conv); err != nil {
		return nil, err
	}
	log.Error("transcription failed", logging.Error(lastErr))
	return nil, fmt.Errorf("transcribe conversation %s: %w", conv.ID, lastErr)
}

// TranscribeFile opens an audio file and transcribes it.
func (s *Service) TranscribeFile(ctx context.Context, conversationID, path, language, pin string) (*conversations.Conversation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcription", "transcribe", "open audio file", err)
	}
	defer file.Close()
	return s.TranscribeAudio(ctx, conversationID, file, language, pin)
}

// EstimateCost returns the expected cost in USD of transcribing audio of the
// given duration with the named provider. Only Whisper has published pricing.
func (s *Service) EstimateCost(durationSeconds float64, provider string) (float64, error) {
	switch provider {
	case "", ProviderWhisper:
		if durationSeconds <= 0 {
			return 0, nil
		}
		return durationSeconds / 60 * 0.006, nil
	case ProviderSoniox:
		return 0, services.Wrap(services.ErrNotImplemented, "transcription", "estimate",
			"soniox pricing not available", nil)
	default:
		return 0, services.Wrap(services.ErrValidation, "transcription", "estimate",
			fmt.Sprintf("unknown provider %q", provider), nil)
	}
}

// HealthCheck reports per-provider health.
func (s *Service) HealthCheck(ctx context.Context) map[string]bool {
	health := make(map[string]bool, 2)
	if s.whisper != nil {
		health[s.whisper.Name()] = s.whisper.HealthCheck(ctx)
	}
	if s.soniox != nil {
		health[s.soniox.Name()] = s.soniox.HealthCheck(ctx)
	}
	return health
}
