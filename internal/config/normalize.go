package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenAI()
	c.normalizeSoniox()
	c.normalizeSMTP()
	c.normalizeRetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = strings.TrimSpace(value)
		}
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.OpenAI.WhisperModel) == "" {
		c.OpenAI.WhisperModel = defaultWhisperModel
	}
	if strings.TrimSpace(c.OpenAI.SynthesisModel) == "" {
		c.OpenAI.SynthesisModel = defaultSynthesisModel
	}
	if strings.TrimSpace(c.OpenAI.ExtractionModel) == "" {
		c.OpenAI.ExtractionModel = defaultExtractionModel
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeout
	}
}

func (c *Config) normalizeSoniox() {
	c.Soniox.APIKey = strings.TrimSpace(c.Soniox.APIKey)
	if c.Soniox.APIKey == "" {
		if value, ok := os.LookupEnv("SONIOX_API_KEY"); ok {
			c.Soniox.APIKey = strings.TrimSpace(value)
		}
	}
	c.Soniox.BaseURL = strings.TrimRight(strings.TrimSpace(c.Soniox.BaseURL), "/")
	if c.Soniox.BaseURL == "" {
		c.Soniox.BaseURL = defaultSonioxBaseURL
	}
}

func (c *Config) normalizeSMTP() {
	c.SMTP.Host = strings.TrimSpace(c.SMTP.Host)
	if c.SMTP.Host == "" {
		c.SMTP.Host = defaultSMTPHost
	}
	if c.SMTP.Port <= 0 {
		c.SMTP.Port = defaultSMTPPort
	}
	c.SMTP.Username = strings.TrimSpace(c.SMTP.Username)
	if c.SMTP.Password == "" {
		if value, ok := os.LookupEnv("SMTP_PASSWORD"); ok {
			c.SMTP.Password = value
		}
	}
	c.SMTP.FromEmail = strings.TrimSpace(c.SMTP.FromEmail)
	if c.SMTP.FromEmail == "" {
		c.SMTP.FromEmail = defaultSMTPFromEmail
	}
	c.SMTP.FromName = strings.TrimSpace(c.SMTP.FromName)
	if c.SMTP.FromName == "" {
		c.SMTP.FromName = defaultSMTPFromName
	}
	if c.SMTP.TimeoutSeconds <= 0 {
		c.SMTP.TimeoutSeconds = defaultSMTPTimeout
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
