package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loom/internal/conversations"
	"loom/internal/logging"
	"loom/internal/services"
	"loom/internal/services/llm"
)

// Client is the LLM surface the orchestrator needs.
type Client interface {
	SynthesizeTranscript(ctx context.Context, transcript, title string) (*llm.Result, error)
	EstimateCost(transcriptWordCount int, model string) float64
	HealthCheck(ctx context.Context) bool
}

// Service orchestrates insight extraction and persists the synthesis row.
type Service struct {
	store  *conversations.Store
	client Client
	logger *slog.Logger
}

// NewService wires the synthesis orchestrator.
func NewService(store *conversations.Store, client Client, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		client: client,
		logger: logging.NewComponentLogger(logger, "synthesis"),
	}
}

// Generate produces structured insights for a transcribed conversation.
// An existing synthesis is returned unchanged unless force is set; force
// regenerates and overwrites every content field.
func (s *Service) Generate(ctx context.Context, conversationID string, force bool) (*conversations.Synthesis, error) {
	conv, err := s.store.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, services.Wrap(services.ErrNotFound, "synthesis", "generate",
			"conversation "+conversationID+" not found", nil)
	}
	if !conv.HasTranscript() {
		return nil, services.Wrap(services.ErrValidation, "synthesis", "generate",
			fmt.Sprintf("conversation has no transcript (status %s)", conv.Status), nil)
	}

	ctx = services.WithConversationID(ctx, conv.ID)
	ctx = services.WithStage(ctx, "synthesis")
	log := logging.WithContext(ctx, s.logger)

	existing, err := s.store.GetSynthesis(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !force {
		log.Info("synthesis already exists, skipping")
		return existing, nil
	}

	started := time.Now()
	conv.Status = conversations.StatusSynthesizing
	conv.SynthesisProvider = "openai"
	conv.ErrorMessage = ""
	if err := s.store.Update(ctx, conv); err != nil {
		return nil, err
	}

	result, err := s.client.SynthesizeTranscript(ctx, conv.Transcript, conv.Title)
	if err != nil {
		conv.SetFailed(fmt.Sprintf("Synthesis failed: %v", err))
		if updateErr := s.store.Update(ctx, conv); updateErr != nil {
			log.Error("persist failure state", logging.Error(updateErr))
		}
		log.Error("synthesis failed", logging.Error(err))
		return nil, fmt.Errorf("synthesize conversation %s: %w", conv.ID, err)
	}

	syn := &conversations.Synthesis{
		ConversationID:        conv.ID,
		Summary:               result.Summary,
		KeyDecisions:          result.KeyDecisions,
		ActionItems:           convertActionItems(result.ActionItems),
		OpenQuestions:         result.OpenQuestions,
		KeyTopics:             result.KeyTopics,
		LLMModel:              result.Model,
		LLMTokensUsed:         result.TokensUsed,
		ProcessingTimeSeconds: result.Elapsed.Seconds(),
	}
	stored, err := s.store.UpsertSynthesis(ctx, syn)
	if err != nil {
		return nil, err
	}

	conv.Status = conversations.StatusCompleted
	conv.ProcessingTimeSeconds = int(time.Since(started).Seconds())
	if err := s.store.Update(ctx, conv); err != nil {
		return nil, err
	}

	log.Info("synthesis completed",
		logging.Int("tokens_used", stored.LLMTokensUsed),
		logging.Int("decisions", len(stored.KeyDecisions)),
		logging.Int("action_items", len(stored.ActionItems)),
		logging.Int("open_questions", len(stored.OpenQuestions)))
	return stored, nil
}

// GetSynthesis returns the stored synthesis for a conversation.
func (s *Service) GetSynthesis(ctx context.Context, conversationID string) (*conversations.Synthesis, error) {
	syn, err := s.store.GetSynthesis(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if syn == nil {
		return nil, services.Wrap(services.ErrNotFound, "synthesis", "get",
			"no synthesis for conversation "+conversationID, nil)
	}
	return syn, nil
}

// EstimateCost estimates the LLM cost of synthesizing a conversation's
// transcript.
func (s *Service) EstimateCost(ctx context.Context, conversationID string) (float64, error) {
	conv, err := s.store.GetByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if conv == nil {
		return 0, services.Wrap(services.ErrNotFound, "synthesis", "estimate",
			"conversation "+conversationID+" not found", nil)
	}
	if !conv.HasTranscript() {
		return 0, services.Wrap(services.ErrValidation, "synthesis", "estimate", "conversation has no transcript", nil)
	}
	return s.client.EstimateCost(conv.TranscriptWordCount, ""), nil
}

// HealthCheck reports LLM reachability.
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.client.HealthCheck(ctx)
}

func convertActionItems(items []llm.ActionItem) []conversations.ActionItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]conversations.ActionItem, len(items))
	for i, item := range items {
		out[i] = conversations.ActionItem{Task: item.Task, Owner: item.Owner, DueDate: item.DueDate}
	}
	return out
}
