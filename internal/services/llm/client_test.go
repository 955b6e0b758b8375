package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"loom/internal/services"
)

const longTranscript = "We agreed to ship the new billing flow next sprint. Dana will own the migration plan and the rollout checklist. The open question about retention remained unanswered."

func newTestClient(t *testing.T, handler http.Handler, attempts int) (*Client, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var sleeps []time.Duration
	client := NewClient(
		Config{APIKey: "key", BaseURL: server.URL, SynthesisModel: "gpt-4-turbo-preview", ExtractionModel: "gpt-4-mini", RetryMaxAttempts: attempts},
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }),
	)
	return client, &sleeps
}

func synthesisResponse(content string, totalTokens int) string {
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"total_tokens": totalTokens},
	}
	encoded, _ := json.Marshal(body)
	return string(encoded)
}

const validSynthesisJSON = `{
  "summary": "The team agreed to ship billing next sprint.",
  "key_decisions": ["Ship the new billing flow next sprint"],
  "action_items": [{"task": "Write migration plan", "owner": "Dana", "due_date": "Not specified"}],
  "open_questions": ["What is the retention target?"],
  "key_topics": ["billing", "migration"]
}`

func TestSynthesizeTranscriptExtractsInsights(t *testing.T) {
	var gotRequest chatCompletionRequest
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		payload, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(payload, &gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(synthesisResponse(validSynthesisJSON, 910)))
	})
	client, _ := newTestClient(t, handler, 3)

	result, err := client.SynthesizeTranscript(context.Background(), longTranscript, "Sprint planning")
	if err != nil {
		t.Fatalf("SynthesizeTranscript: %v", err)
	}
	if result.Summary == "" || result.TokensUsed != 910 || result.Model != "gpt-4-turbo-preview" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.KeyDecisions) != 1 || len(result.ActionItems) != 1 || len(result.OpenQuestions) != 1 {
		t.Fatalf("unexpected extraction: %+v", result)
	}
	if result.ActionItems[0].Owner != "Dana" {
		t.Fatalf("action item owner = %q", result.ActionItems[0].Owner)
	}

	if gotRequest.Temperature != 0.3 {
		t.Fatalf("temperature = %f", gotRequest.Temperature)
	}
	if gotRequest.MaxTokens != 2000 {
		t.Fatalf("max tokens = %d", gotRequest.MaxTokens)
	}
	if gotRequest.ResponseFormat["type"] != "json_object" {
		t.Fatalf("response format = %v", gotRequest.ResponseFormat)
	}
	if len(gotRequest.Messages) != 2 || gotRequest.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", gotRequest.Messages)
	}
	if !strings.Contains(gotRequest.Messages[1].Content, "Meeting Title: Sprint planning") {
		t.Fatal("user prompt missing title context")
	}
}

func TestSynthesizeShortTranscriptFailsWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	client, _ := newTestClient(t, handler, 3)

	_, err := client.SynthesizeTranscript(context.Background(), "too short", "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("network calls = %d, want 0", calls.Load())
	}
}

func TestSynthesizeRetriesMalformedJSON(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(synthesisResponse("not json at all", 10)))
			return
		}
		w.Write([]byte(synthesisResponse("```json\n"+validSynthesisJSON+"\n```", 905)))
	})
	client, sleeps := newTestClient(t, handler, 3)

	result, err := client.SynthesizeTranscript(context.Background(), longTranscript, "")
	if err != nil {
		t.Fatalf("SynthesizeTranscript: %v", err)
	}
	if result.Summary == "" {
		t.Fatal("expected summary from fenced payload")
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 2*time.Second {
		t.Fatalf("unexpected backoff: %v", *sleeps)
	}
}

func TestSynthesizeParseErrorAfterExhaustion(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(synthesisResponse("still not json", 10)))
	})
	client, _ := newTestClient(t, handler, 2)

	_, err := client.SynthesizeTranscript(context.Background(), longTranscript, "")
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSynthesizeAuthErrorNeverRetried(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	client, sleeps := newTestClient(t, handler, 3)

	_, err := client.SynthesizeTranscript(context.Background(), longTranscript, "")
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls.Load() != 1 || len(*sleeps) != 0 {
		t.Fatalf("calls = %d, sleeps = %v", calls.Load(), *sleeps)
	}
}

func TestSynthesizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(synthesisResponse(validSynthesisJSON, 900)))
	})
	client, sleeps := newTestClient(t, handler, 3)

	if _, err := client.SynthesizeTranscript(context.Background(), longTranscript, ""); err != nil {
		t.Fatalf("SynthesizeTranscript: %v", err)
	}
	if len(*sleeps) != 2 || (*sleeps)[1] != 4*time.Second {
		t.Fatalf("unexpected backoff: %v", *sleeps)
	}
}

func TestEstimateCost(t *testing.T) {
	client := NewClient(Config{APIKey: "key"})

	// 1000 words on gpt-4 tier: 1300 input tokens, 500 output tokens.
	got := client.EstimateCost(1000, "gpt-4-turbo-preview")
	want := 1.3*0.01 + 0.5*0.03
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EstimateCost = %f, want %f", got, want)
	}

	cheap := client.EstimateCost(1000, "gpt-3.5-turbo")
	wantCheap := 1.3*0.0005 + 0.5*0.0015
	if math.Abs(cheap-wantCheap) > 1e-9 {
		t.Fatalf("EstimateCost cheap = %f, want %f", cheap, wantCheap)
	}
}

func TestHealthCheckUsesExtractionModel(t *testing.T) {
	var gotModel string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		payload, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(payload, &req)
		gotModel = req.Model
		w.Write([]byte(synthesisResponse("ok", 3)))
	})
	client, _ := newTestClient(t, handler, 1)

	if !client.HealthCheck(context.Background()) {
		t.Fatal("expected healthy")
	}
	if gotModel != "gpt-4-mini" {
		t.Fatalf("health model = %q, want extraction model", gotModel)
	}
}
