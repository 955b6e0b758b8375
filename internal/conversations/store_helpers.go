package conversations

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const conversationColumns = "id, title, description, status, platform, platform_meeting_id, meeting_url, scheduled_at, started_at, ended_at, duration_seconds, transcript, transcript_word_count, transcription_provider, synthesis_provider, processing_time_seconds, error_message, created_at, updated_at"

var conversationColumnsPrefixed = func() string {
	parts := strings.Split(conversationColumns, ", ")
	for i, part := range parts {
		parts[i] = "c." + part
	}
	return strings.Join(parts, ", ")
}()

func scanConversation(scanner interface{ Scan(dest ...any) error }) (*Conversation, error) {
	var (
		id                    string
		title                 string
		description           sql.NullString
		statusStr             string
		platform              sql.NullString
		platformMeetingID     sql.NullString
		meetingURL            sql.NullString
		scheduledRaw          sql.NullString
		startedRaw            sql.NullString
		endedRaw              sql.NullString
		durationSeconds       sql.NullInt64
		transcript            sql.NullString
		transcriptWordCount   sql.NullInt64
		transcriptionProvider sql.NullString
		synthesisProvider     sql.NullString
		processingSeconds     sql.NullInt64
		errorMessage          sql.NullString
		createdRaw            sql.NullString
		updatedRaw            sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&description,
		&statusStr,
		&platform,
		&platformMeetingID,
		&meetingURL,
		&scheduledRaw,
		&startedRaw,
		&endedRaw,
		&durationSeconds,
		&transcript,
		&transcriptWordCount,
		&transcriptionProvider,
		&synthesisProvider,
		&processingSeconds,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	conv := &Conversation{
		ID:                    id,
		Title:                 title,
		Description:           description.String,
		Status:                Status(statusStr),
		Platform:              platform.String,
		PlatformMeetingID:     platformMeetingID.String,
		MeetingURL:            meetingURL.String,
		DurationSeconds:       int(durationSeconds.Int64),
		Transcript:            transcript.String,
		TranscriptWordCount:   int(transcriptWordCount.Int64),
		TranscriptionProvider: transcriptionProvider.String,
		SynthesisProvider:     synthesisProvider.String,
		ProcessingTimeSeconds: int(processingSeconds.Int64),
		ErrorMessage:          errorMessage.String,
	}

	conv.ScheduledAt = parseOptionalTime(scheduledRaw)
	conv.StartedAt = parseOptionalTime(startedRaw)
	conv.EndedAt = parseOptionalTime(endedRaw)

	if created, err := parseTimeString(createdRaw.String); err == nil {
		conv.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		conv.UpdatedAt = updated
	}
	return conv, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseOptionalTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func marshalJSONList(value any) (any, error) {
	switch v := value.(type) {
	case []string:
		if len(v) == 0 {
			return nil, nil
		}
	case []ActionItem:
		if len(v) == 0 {
			return nil, nil
		}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal list: %w", err)
	}
	return string(encoded), nil
}

func unmarshalStringList(raw sql.NullString) []string {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}

func unmarshalActionItems(raw sql.NullString) []ActionItem {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	var out []ActionItem
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}
