package config

import (
	"errors"
	"fmt"
	"net/mail"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/loom/config.toml"
		}
		return fmt.Errorf("openai.api_key is required. Edit %s (create with 'loom config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateSMTP() error {
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port %d is out of range", c.SMTP.Port)
	}
	if _, err := mail.ParseAddress(c.SMTP.FromEmail); err != nil {
		return fmt.Errorf("smtp.from_email %q is not a valid address: %w", c.SMTP.FromEmail, err)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts > 10 {
		return errors.New("retry.max_attempts must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
