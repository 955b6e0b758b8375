package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"loom/internal/services"
)

const defaultSendTimeout = 30 * time.Second

// Config captures the runtime settings required to send mail over SMTP.
type Config struct {
	Host             string
	Port             int
	Username         string
	Password         string
	FromEmail        string
	FromName         string
	TimeoutSeconds   int
	RetryMaxAttempts int
}

// SendResult records a successful delivery.
type SendResult struct {
	SentAt     time.Time
	Recipients []string
}

// sender abstracts go-mail's client so tests can observe outgoing messages.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Client sends synthesis emails over SMTP with STARTTLS.
type Client struct {
	cfg     Config
	sleeper services.Sleeper

	newSender func() (sender, error)
}

// Option customizes the client.
type Option func(*Client)

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper services.Sleeper) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithSenderFactory overrides SMTP client construction (useful for tests).
func WithSenderFactory(factory func() (sender, error)) Option {
	return func(c *Client) {
		if factory != nil {
			c.newSender = factory
		}
	}
}

// NewClient constructs a mailer using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			Host:             strings.TrimSpace(cfg.Host),
			Port:             cfg.Port,
			Username:         strings.TrimSpace(cfg.Username),
			Password:         cfg.Password,
			FromEmail:        strings.TrimSpace(cfg.FromEmail),
			FromName:         strings.TrimSpace(cfg.FromName),
			TimeoutSeconds:   cfg.TimeoutSeconds,
			RetryMaxAttempts: cfg.RetryMaxAttempts,
		},
	}
	if client.cfg.RetryMaxAttempts <= 0 {
		client.cfg.RetryMaxAttempts = 3
	}
	client.newSender = client.newSMTPClient
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) newSMTPClient() (sender, error) {
	timeout := defaultSendTimeout
	if c.cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(c.cfg.TimeoutSeconds) * time.Second
	}
	smtpClient, err := gomail.NewClient(
		c.cfg.Host,
		gomail.WithPort(c.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(c.cfg.Username),
		gomail.WithPassword(c.cfg.Password),
		gomail.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: new smtp client: %w", err)
	}
	return smtpClient, nil
}

// Send delivers a multipart alternative email to the given recipients.
// Authentication failures are never retried; transient failures are retried
// with exponential backoff up to the configured limit.
func (c *Client) Send(ctx context.Context, to []string, subject, htmlBody, textBody string) (*SendResult, error) {
	if len(to) == 0 {
		return nil, services.Wrap(services.ErrValidation, "mailer", "send", "at least one recipient required", nil)
	}
	if c.cfg.Host == "" || c.cfg.FromEmail == "" {
		return nil, services.Wrap(services.ErrConfiguration, "mailer", "send", "smtp host and from address required", nil)
	}

	msg, err := c.buildMessage(to, subject, htmlBody, textBody)
	if err != nil {
		return nil, err
	}

	attempts := c.cfg.RetryMaxAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		var smtpClient sender
		smtpClient, err = c.newSender()
		if err == nil {
			err = smtpClient.DialAndSendWithContext(ctx, msg)
			if err == nil {
				return &SendResult{SentAt: time.Now().UTC(), Recipients: append([]string{}, to...)}, nil
			}
		}
		lastErr = err

		if isAuthError(err) {
			return nil, services.Wrap(services.ErrAuth, "mailer", "send", "smtp authentication failed", err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || attempt == attempts {
			break
		}
		if sleepErr := services.SleepWithContext(ctx, services.BackoffDelay(attempt), c.sleeper); sleepErr != nil {
			return nil, sleepErr
		}
	}

	return nil, fmt.Errorf("mailer send: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) buildMessage(to []string, subject, htmlBody, textBody string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if c.cfg.FromName != "" {
		if err := msg.FromFormat(c.cfg.FromName, c.cfg.FromEmail); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "mailer", "send", "invalid from address", err)
		}
	} else if err := msg.From(c.cfg.FromEmail); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "mailer", "send", "invalid from address", err)
	}
	if err := msg.To(to...); err != nil {
		return nil, services.Wrap(services.ErrValidation, "mailer", "send", "invalid recipient address", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, textBody)
	msg.AddAlternativeString(gomail.TypeTextHTML, htmlBody)
	return msg, nil
}

// HealthCheck dials and authenticates without sending a message.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.cfg.Host == "" {
		return false
	}
	smtpClient, err := c.newSender()
	if err != nil {
		return false
	}
	netClient, ok := smtpClient.(*gomail.Client)
	if !ok {
		return true
	}
	if err := netClient.DialWithContext(ctx); err != nil {
		return false
	}
	_ = netClient.Close()
	return true
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) {
		if sendErr.Reason == gomail.ErrSMTPAuth {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "auth") && (strings.Contains(msg, "fail") || strings.Contains(msg, "credentials") || strings.Contains(msg, "535"))
}
