package synthesis_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"loom/internal/conversations"
	"loom/internal/logging"
	"loom/internal/services"
	"loom/internal/services/llm"
	"loom/internal/synthesis"
	"loom/internal/testsupport"
)

type fakeClient struct {
	result  *llm.Result
	err     error
	calls   int
	healthy bool
}

func (f *fakeClient) SynthesizeTranscript(ctx context.Context, transcript, title string) (*llm.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeClient) EstimateCost(wordCount int, model string) float64 {
	return float64(wordCount) * 0.00001
}

func (f *fakeClient) HealthCheck(ctx context.Context) bool { return f.healthy }

func fullResult() *llm.Result {
	return &llm.Result{
		Summary:       "The team agreed to ship billing next sprint.",
		KeyDecisions:  []string{"Ship billing next sprint"},
		ActionItems:   []llm.ActionItem{{Task: "Write rollout plan", Owner: "Dana"}},
		OpenQuestions: []string{"Retention target?"},
		KeyTopics:     []string{"billing"},
		Model:         "gpt-4-turbo-preview",
		TokensUsed:    912,
		Elapsed:       1500 * time.Millisecond,
	}
}

const transcript = "We agreed to ship the new billing flow next sprint and Dana owns the rollout plan for it."

func newService(t *testing.T, client synthesis.Client) (*synthesis.Service, *conversations.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	return synthesis.NewService(store, client, logging.NewNop()), store
}

func TestGeneratePersistsSynthesisAndCompletes(t *testing.T) {
	client := &fakeClient{result: fullResult()}
	svc, store := newService(t, client)
	conv := testsupport.NewTranscribedConversation(t, store, "Sprint planning", transcript)

	syn, err := svc.Generate(context.Background(), conv.ID, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if syn.Summary == "" || syn.LLMTokensUsed != 912 {
		t.Fatalf("unexpected synthesis: %+v", syn)
	}
	if len(syn.KeyDecisions) != 1 || len(syn.ActionItems) != 1 || syn.ActionItems[0].Owner != "Dana" {
		t.Fatalf("unexpected extraction: %+v", syn)
	}

	stored, err := store.GetByID(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != conversations.StatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.SynthesisProvider != "openai" {
		t.Fatalf("synthesis provider = %q", stored.SynthesisProvider)
	}
}

func TestGenerateIsIdempotentWithoutForce(t *testing.T) {
	client := &fakeClient{result: fullResult()}
	svc, store := newService(t, client)
	conv := testsupport.NewTranscribedConversation(t, store, "Retro", transcript)

	first, err := svc.Generate(context.Background(), conv.ID, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := svc.Generate(context.Background(), conv.ID, false)
	if err != nil {
		t.Fatalf("Generate again: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("LLM calls = %d, want 1", client.calls)
	}
	if second.ID != first.ID || second.UpdatedAt != first.UpdatedAt {
		t.Fatalf("second run modified synthesis: %+v vs %+v", first, second)
	}
}

func TestGenerateForceRegenerates(t *testing.T) {
	client := &fakeClient{result: fullResult()}
	svc, store := newService(t, client)
	conv := testsupport.NewTranscribedConversation(t, store, "Retro", transcript)

	first, err := svc.Generate(context.Background(), conv.ID, false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	client.result = fullResult()
	client.result.Summary = "Revised summary."
	second, err := svc.Generate(context.Background(), conv.ID, true)
	if err != nil {
		t.Fatalf("Generate force: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("LLM calls = %d, want 2", client.calls)
	}
	if second.ID != first.ID {
		t.Fatalf("force created a second row")
	}
	if second.Summary != "Revised summary." {
		t.Fatalf("summary = %q", second.Summary)
	}
}

func TestGenerateRequiresTranscript(t *testing.T) {
	client := &fakeClient{result: fullResult()}
	svc, store := newService(t, client)
	conv := testsupport.NewConversation(t, store, "Untranscribed")

	_, err := svc.Generate(context.Background(), conv.ID, false)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "status pending") {
		t.Fatalf("error should name current status: %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("LLM calls = %d, want 0", client.calls)
	}
}

func TestGenerateNotFound(t *testing.T) {
	svc, _ := newService(t, &fakeClient{result: fullResult()})

	_, err := svc.Generate(context.Background(), "missing", false)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGenerateClientFailureMarksConversationFailed(t *testing.T) {
	client := &fakeClient{err: errors.New("model overloaded")}
	svc, store := newService(t, client)
	conv := testsupport.NewTranscribedConversation(t, store, "Doomed", transcript)

	_, err := svc.Generate(context.Background(), conv.ID, false)
	if err == nil {
		t.Fatal("expected error")
	}

	stored, getErr := store.GetByID(context.Background(), conv.ID)
	if getErr != nil {
		t.Fatalf("GetByID: %v", getErr)
	}
	if stored.Status != conversations.StatusFailed {
		t.Fatalf("status = %s", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, "Synthesis failed:") {
		t.Fatalf("error message = %q", stored.ErrorMessage)
	}
	if stored.Transcript == "" {
		t.Fatal("failure must keep the transcript intact")
	}
}

func TestGetSynthesisAndEstimateCost(t *testing.T) {
	client := &fakeClient{result: fullResult()}
	svc, store := newService(t, client)
	conv := testsupport.NewTranscribedConversation(t, store, "Costing", transcript)

	if _, err := svc.GetSynthesis(context.Background(), conv.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found before generation, got %v", err)
	}

	if _, err := svc.Generate(context.Background(), conv.ID, false); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	syn, err := svc.GetSynthesis(context.Background(), conv.ID)
	if err != nil || syn == nil {
		t.Fatalf("GetSynthesis: %v", err)
	}

	cost, err := svc.EstimateCost(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("EstimateCost: %v", err)
	}
	if cost <= 0 {
		t.Fatalf("cost = %f", cost)
	}
}
