package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"loom/internal/services"
)

const (
	jsonResponseType   = "json_object"
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultHTTPTimeout = 120 * time.Second

	synthesisTemperature = 0.3
	synthesisMaxTokens   = 2000

	// minTranscriptChars guards against sending trivially short transcripts.
	minTranscriptChars = 50

	// Cost model: one word is roughly 1.3 input tokens; a typical synthesis
	// response is about 500 output tokens.
	inputTokensPerWord   = 1.3
	typicalOutputTokens  = 500
	gpt4InputCostPer1K   = 0.01
	gpt4OutputCostPer1K  = 0.03
	cheapInputCostPer1K  = 0.0005
	cheapOutputCostPer1K = 0.0015
)

// Config captures the runtime settings required to talk to the chat API.
type Config struct {
	APIKey           string
	BaseURL          string
	SynthesisModel   string
	ExtractionModel  string
	TimeoutSeconds   int
	RetryMaxAttempts int
}

// Client wraps the OpenAI chat completion API for meeting synthesis.
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

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:           strings.TrimSpace(cfg.APIKey),
			BaseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			SynthesisModel:   strings.TrimSpace(cfg.SynthesisModel),
			ExtractionModel:  strings.TrimSpace(cfg.ExtractionModel),
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
	if client.cfg.SynthesisModel == "" {
		client.cfg.SynthesisModel = "gpt-4-turbo-preview"
	}
	if client.cfg.ExtractionModel == "" {
		client.cfg.ExtractionModel = client.cfg.SynthesisModel
	}
	if client.cfg.RetryMaxAttempts <= 0 {
		client.cfg.RetryMaxAttempts = 3
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// ActionItem is a single extracted task.
type ActionItem struct {
	Task    string `json:"task"`
	Owner   string `json:"owner,omitempty"`
	DueDate string `json:"due_date,omitempty"`
}

// Result is the structured synthesis produced from a transcript.
type Result struct {
	Summary       string
	KeyDecisions  []string
	ActionItems   []ActionItem
	OpenQuestions []string
	KeyTopics     []string
	Model         string
	TokensUsed    int
	Elapsed       time.Duration
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type synthesisPayload struct {
	Summary       string       `json:"summary"`
	KeyDecisions  []string     `json:"key_decisions"`
	ActionItems   []ActionItem `json:"action_items"`
	OpenQuestions []string     `json:"open_questions"`
	KeyTopics     []string     `json:"key_topics"`
}

// SynthesizeTranscript extracts structured insights from a transcript. The
// transcript must hold at least 50 non-whitespace-trimmed characters; shorter
// input fails validation before any network call. Transient HTTP failures and
// malformed JSON payloads are retried with exponential backoff.
func (c *Client) SynthesizeTranscript(ctx context.Context, transcript, title string) (*Result, error) {
	if len(strings.TrimSpace(transcript)) < minTranscriptChars {
		return nil, services.Wrap(services.ErrValidation, "llm", "synthesize",
			fmt.Sprintf("transcript too short for synthesis (minimum %d characters)", minTranscriptChars), nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "synthesize", "api key required", nil)
	}

	payload := chatCompletionRequest{
		Model: c.cfg.SynthesisModel,
		Messages: []chatMessage{
			{Role: "system", Content: SynthesisSystemPrompt},
			{Role: "user", Content: buildUserPrompt(transcript, title)},
		},
		Temperature:    synthesisTemperature,
		MaxTokens:      synthesisMaxTokens,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	started := time.Now()
	attempts := c.cfg.RetryMaxAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		completion, err := c.sendChatRequestOnce(ctx, payload)
		if err == nil {
			var parsed synthesisPayload
			content := completionContent(completion)
			if decodeErr := DecodeLLMJSON(content, &parsed); decodeErr != nil {
				err = services.Wrap(services.ErrParse, "llm", "synthesize", "parse payload", decodeErr)
			} else {
				return &Result{
					Summary:       strings.TrimSpace(parsed.Summary),
					KeyDecisions:  parsed.KeyDecisions,
					ActionItems:   parsed.ActionItems,
					OpenQuestions: parsed.OpenQuestions,
					KeyTopics:     parsed.KeyTopics,
					Model:         c.cfg.SynthesisModel,
					TokensUsed:    completion.Usage.TotalTokens,
					Elapsed:       time.Since(started),
				}, nil
			}
		}
		lastErr = err

		if !retryable(err) || attempt == attempts {
			break
		}
		if sleepErr := services.SleepWithContext(ctx, services.BackoffDelay(attempt), c.sleeper); sleepErr != nil {
			return nil, sleepErr
		}
	}

	return nil, fmt.Errorf("llm synthesize: failed after %d attempts: %w", attempts, lastErr)
}

// EstimateCost estimates the synthesis cost in USD for a transcript of the
// given word count on the given model (defaults to the synthesis model).
func (c *Client) EstimateCost(transcriptWordCount int, model string) float64 {
	if model == "" {
		model = c.cfg.SynthesisModel
	}
	inputTokens := float64(transcriptWordCount) * inputTokensPerWord
	outputTokens := float64(typicalOutputTokens)

	inputPer1K := cheapInputCostPer1K
	outputPer1K := cheapOutputCostPer1K
	if strings.Contains(model, "gpt-4") {
		inputPer1K = gpt4InputCostPer1K
		outputPer1K = gpt4OutputCostPer1K
	}
	return inputTokens/1000*inputPer1K + outputTokens/1000*outputPer1K
}

// HealthCheck issues a minimal completion on the cheap extraction model.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.cfg.APIKey == "" {
		return false
	}
	payload := chatCompletionRequest{
		Model:     c.cfg.ExtractionModel,
		Messages:  []chatMessage{{Role: "user", Content: "Hi"}},
		MaxTokens: 5,
	}
	_, err := c.sendChatRequestOnce(ctx, payload)
	return err == nil
}

func completionContent(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content
		}
	}
	return ""
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, fmt.Errorf("llm request: encode body: %w", err)
	}
	endpoint := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return completion, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, fmt.Errorf("llm request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, fmt.Errorf("llm request: read body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return completion, services.Wrap(services.ErrAuth, "llm", "request",
			fmt.Sprintf("http %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	case resp.StatusCode >= http.StatusMultipleChoices:
		return completion, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if completionContent(completion) == "" {
		return completion, &httpStatusError{StatusCode: resp.StatusCode, Body: "empty completion content"}
	}
	return completion, nil
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, services.ErrParse) {
		return true
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
