package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const synthesisColumns = "id, conversation_id, summary, summary_word_count, key_decisions_json, action_items_json, open_questions_json, key_topics_json, llm_model, llm_tokens_used, processing_time_seconds, confidence_score, email_sent_at, email_recipients_json, email_delivery_status, created_at, updated_at"

// UpsertSynthesis creates or overwrites the synthesis row for a conversation.
// Content fields are replaced wholesale; delivery fields are preserved on
// overwrite so a regenerated synthesis keeps its email history until re-sent.
func (s *Store) UpsertSynthesis(ctx context.Context, syn *Synthesis) (*Synthesis, error) {
	if syn == nil {
		return nil, errors.New("synthesis is nil")
	}
	if syn.ConversationID == "" {
		return nil, errors.New("synthesis conversation id required")
	}

	keyDecisions, err := marshalJSONList(syn.KeyDecisions)
	if err != nil {
		return nil, err
	}
	actionItems, err := marshalJSONList(syn.ActionItems)
	if err != nil {
		return nil, err
	}
	openQuestions, err := marshalJSONList(syn.OpenQuestions)
	if err != nil {
		return nil, err
	}
	keyTopics, err := marshalJSONList(syn.KeyTopics)
	if err != nil {
		return nil, err
	}

	if syn.SummaryWordCount == 0 {
		syn.SummaryWordCount = len(strings.Fields(syn.Summary))
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO syntheses (
            conversation_id, summary, summary_word_count, key_decisions_json,
            action_items_json, open_questions_json, key_topics_json, llm_model,
            llm_tokens_used, processing_time_seconds, confidence_score,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(conversation_id) DO UPDATE SET
            summary = excluded.summary,
            summary_word_count = excluded.summary_word_count,
            key_decisions_json = excluded.key_decisions_json,
            action_items_json = excluded.action_items_json,
            open_questions_json = excluded.open_questions_json,
            key_topics_json = excluded.key_topics_json,
            llm_model = excluded.llm_model,
            llm_tokens_used = excluded.llm_tokens_used,
            processing_time_seconds = excluded.processing_time_seconds,
            confidence_score = excluded.confidence_score,
            updated_at = excluded.updated_at`,
		syn.ConversationID,
		syn.Summary,
		syn.SummaryWordCount,
		keyDecisions,
		actionItems,
		openQuestions,
		keyTopics,
		nullableString(syn.LLMModel),
		syn.LLMTokensUsed,
		syn.ProcessingTimeSeconds,
		syn.ConfidenceScore,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert synthesis: %w", err)
	}

	return s.GetSynthesis(ctx, syn.ConversationID)
}

// GetSynthesis returns the synthesis row for a conversation, or nil when absent.
func (s *Store) GetSynthesis(ctx context.Context, conversationID string) (*Synthesis, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+synthesisColumns+` FROM syntheses WHERE conversation_id = ?`,
		conversationID,
	)
	syn, err := scanSynthesis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get synthesis: %w", err)
	}
	return syn, nil
}

// UpdateSynthesisDelivery records the outcome of an email delivery attempt.
func (s *Store) UpdateSynthesisDelivery(ctx context.Context, conversationID string, sentAt *time.Time, recipients []string, status string) error {
	if conversationID == "" {
		return errors.New("conversation id required")
	}
	if status != DeliveryStatusSent && status != DeliveryStatusFailed {
		return fmt.Errorf("unknown delivery status %q", status)
	}

	recipientsJSON, err := marshalJSONList(recipients)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE syntheses
         SET email_sent_at = ?, email_recipients_json = ?, email_delivery_status = ?, updated_at = ?
         WHERE conversation_id = ?`,
		nullableTime(sentAt),
		recipientsJSON,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("update synthesis delivery: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update synthesis delivery: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update synthesis delivery: conversation %s has no synthesis", conversationID)
	}
	return nil
}

func scanSynthesis(scanner interface{ Scan(dest ...any) error }) (*Synthesis, error) {
	var (
		id                int64
		conversationID    string
		summary           string
		summaryWordCount  sql.NullInt64
		keyDecisionsRaw   sql.NullString
		actionItemsRaw    sql.NullString
		openQuestionsRaw  sql.NullString
		keyTopicsRaw      sql.NullString
		llmModel          sql.NullString
		llmTokensUsed     sql.NullInt64
		processingSeconds sql.NullFloat64
		confidenceScore   sql.NullFloat64
		emailSentRaw      sql.NullString
		emailRecipients   sql.NullString
		deliveryStatus    sql.NullString
		createdRaw        sql.NullString
		updatedRaw        sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&conversationID,
		&summary,
		&summaryWordCount,
		&keyDecisionsRaw,
		&actionItemsRaw,
		&openQuestionsRaw,
		&keyTopicsRaw,
		&llmModel,
		&llmTokensUsed,
		&processingSeconds,
		&confidenceScore,
		&emailSentRaw,
		&emailRecipients,
		&deliveryStatus,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	syn := &Synthesis{
		ID:                    id,
		ConversationID:        conversationID,
		Summary:               summary,
		SummaryWordCount:      int(summaryWordCount.Int64),
		KeyDecisions:          unmarshalStringList(keyDecisionsRaw),
		ActionItems:           unmarshalActionItems(actionItemsRaw),
		OpenQuestions:         unmarshalStringList(openQuestionsRaw),
		KeyTopics:             unmarshalStringList(keyTopicsRaw),
		LLMModel:              llmModel.String,
		LLMTokensUsed:         int(llmTokensUsed.Int64),
		ProcessingTimeSeconds: processingSeconds.Float64,
		EmailRecipients:       unmarshalStringList(emailRecipients),
		EmailDeliveryStatus:   deliveryStatus.String,
	}
	if confidenceScore.Valid {
		score := confidenceScore.Float64
		syn.ConfidenceScore = &score
	}
	syn.EmailSentAt = parseOptionalTime(emailSentRaw)
	if created, err := parseTimeString(createdRaw.String); err == nil {
		syn.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		syn.UpdatedAt = updated
	}
	return syn, nil
}
