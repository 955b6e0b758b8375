package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"loom/internal/services"
	"loom/internal/transcription"
)

const (
	// ProviderName is the name recorded on conversations transcribed by Whisper.
	ProviderName = "whisper"

	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "whisper-1"
	defaultHTTPTimeout = 120 * time.Second

	// costPerMinuteUSD is OpenAI's published Whisper API rate.
	costPerMinuteUSD = 0.006
)

// Config captures the runtime settings required to talk to the Whisper API.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	TimeoutSeconds   int
	RetryMaxAttempts int
}

// Client wraps the OpenAI audio transcription API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    services.Sleeper
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper services.Sleeper) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Whisper client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:           strings.TrimSpace(cfg.APIKey),
			BaseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:            strings.TrimSpace(cfg.Model),
			TimeoutSeconds:   cfg.TimeoutSeconds,
			RetryMaxAttempts: cfg.RetryMaxAttempts,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.cfg.RetryMaxAttempts <= 0 {
		client.cfg.RetryMaxAttempts = 3
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// Available reports whether the provider can be used. Whisper is the mandatory
// provider, so a constructed client is always available.
func (c *Client) Available() bool { return true }

// EstimateCost returns the expected transcription cost in USD for audio of the
// given duration.
func EstimateCost(durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return durationSeconds / 60 * costPerMinuteUSD
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("whisper request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio stream and returns the verbose transcription.
// Transient failures are retried with exponential backoff; credential
// rejections fail immediately.
func (c *Client) Transcribe(ctx context.Context, audio io.ReadSeeker, language string) (*transcription.Result, error) {
	if audio == nil {
		return nil, services.Wrap(services.ErrValidation, "whisper", "transcribe", "audio stream required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "whisper", "transcribe", "api key required", nil)
	}

	attempts := c.cfg.RetryMaxAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if _, err := audio.Seek(0, io.SeekStart); err != nil {
			return nil, services.Wrap(services.ErrValidation, "whisper", "transcribe", "rewind audio stream", err)
		}

		result, err := c.transcribeOnce(ctx, audio, language)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || attempt == attempts {
			break
		}
		if sleepErr := services.SleepWithContext(ctx, services.BackoffDelay(attempt), c.sleeper); sleepErr != nil {
			return nil, sleepErr
		}
	}

	return nil, fmt.Errorf("whisper transcribe: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) transcribeOnce(ctx context.Context, audio io.Reader, language string) (*transcription.Result, error) {
	body, contentType := buildMultipartBody(audio, c.cfg.Model, language)

	endpoint := c.cfg.BaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("whisper request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: http error: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper request: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrAuth, "whisper", "transcribe",
			fmt.Sprintf("http %d", resp.StatusCode), errors.New(strings.TrimSpace(string(payload))))
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(payload)}
	}

	var decoded transcriptionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("whisper request: decode response: %w", err)
	}
	if strings.TrimSpace(decoded.Text) == "" {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: "empty transcription text"}
	}

	result := &transcription.Result{
		Text:     strings.TrimSpace(decoded.Text),
		Duration: decoded.Duration,
		Language: decoded.Language,
	}
	for _, seg := range decoded.Segments {
		result.Segments = append(result.Segments, transcription.Segment{
			ID:    seg.ID,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return result, nil
}

func buildMultipartBody(audio io.Reader, model, language string) (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		if err = writer.WriteField("model", model); err != nil {
			return
		}
		if err = writer.WriteField("response_format", "verbose_json"); err != nil {
			return
		}
		if language != "" {
			if err = writer.WriteField("language", language); err != nil {
				return
			}
		}
		var part io.Writer
		part, err = writer.CreateFormFile("file", "audio")
		if err != nil {
			return
		}
		if _, err = io.Copy(part, audio); err != nil {
			return
		}
		err = writer.Close()
	}()
	return pr, writer.FormDataContentType()
}

// HealthCheck verifies the API key by listing models.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.cfg.APIKey == "" {
		return false
	}
	endpoint := c.cfg.BaseURL + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if !services.Retryable(err) {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return true
}
