package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"loom/internal/config"
	"loom/internal/conversations"
	"loom/internal/delivery"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/services/llm"
	"loom/internal/services/mailer"
	"loom/internal/services/soniox"
	"loom/internal/services/whisper"
	"loom/internal/synthesis"
	"loom/internal/transcription"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withStore opens the conversation store for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *conversations.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := conversations.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withPipelineLock serializes pipeline commands per data directory. The lock
// is advisory; the store itself stays last-writer-wins.
func (c *commandContext) withPipelineLock(fn func(*config.Config, *conversations.Store) error) error {
	return c.withStore(func(cfg *config.Config, store *conversations.Store) error {
		lock := flock.New(filepath.Join(cfg.Paths.DataDir, "loom.lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire pipeline lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another loom pipeline command is running (lock %s held)", lock.Path())
		}
		defer func() {
			_ = lock.Unlock()
		}()
		return fn(cfg, store)
	})
}

func (c *commandContext) transcriptionService(cfg *config.Config, store *conversations.Store) (*transcription.Service, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	whisperClient := whisper.NewClient(whisper.Config{
		APIKey:           cfg.OpenAI.APIKey,
		BaseURL:          cfg.OpenAI.BaseURL,
		Model:            cfg.OpenAI.WhisperModel,
		TimeoutSeconds:   cfg.OpenAI.TimeoutSeconds,
		RetryMaxAttempts: cfg.Retry.MaxAttempts,
	})
	sonioxClient := soniox.NewClient(soniox.Config{
		APIKey:  cfg.Soniox.APIKey,
		BaseURL: cfg.Soniox.BaseURL,
	})
	return transcription.NewService(store, whisperClient, sonioxClient, logger), nil
}

func (c *commandContext) synthesisService(cfg *config.Config, store *conversations.Store) (*synthesis.Service, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(llm.Config{
		APIKey:           cfg.OpenAI.APIKey,
		BaseURL:          cfg.OpenAI.BaseURL,
		SynthesisModel:   cfg.OpenAI.SynthesisModel,
		ExtractionModel:  cfg.OpenAI.ExtractionModel,
		TimeoutSeconds:   cfg.OpenAI.TimeoutSeconds,
		RetryMaxAttempts: cfg.Retry.MaxAttempts,
	})
	return synthesis.NewService(store, client, logger), nil
}

func (c *commandContext) deliveryService(cfg *config.Config, store *conversations.Store) (*delivery.Service, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client := mailer.NewClient(mailer.Config{
		Host:             cfg.SMTP.Host,
		Port:             cfg.SMTP.Port,
		Username:         cfg.SMTP.Username,
		Password:         cfg.SMTP.Password,
		FromEmail:        cfg.SMTP.FromEmail,
		FromName:         cfg.SMTP.FromName,
		TimeoutSeconds:   cfg.SMTP.TimeoutSeconds,
		RetryMaxAttempts: cfg.Retry.MaxAttempts,
	})
	return delivery.NewService(store, client, logger), nil
}

func (c *commandContext) notifier(cfg *config.Config) notifications.Service {
	return notifications.NewService(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for p := cmd; p != nil; p = p.Parent() {
		if p.Annotations != nil && p.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
