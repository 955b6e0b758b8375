package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"loom/internal/config"
)

// Store manages conversation persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the conversation database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "conversations.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Create inserts a new conversation. A missing ID is assigned a fresh UUID and
// a missing status defaults to pending.
func (s *Store) Create(ctx context.Context, conv *Conversation) (*Conversation, error) {
	if conv == nil {
		return nil, errors.New("conversation is nil")
	}
	if strings.TrimSpace(conv.Title) == "" {
		return nil, errors.New("conversation title required")
	}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.Status == "" {
		conv.Status = StatusPending
	}
	if _, ok := ParseStatus(string(conv.Status)); !ok {
		return nil, fmt.Errorf("unknown status %q", conv.Status)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO conversations (
            id, title, description, status, platform, platform_meeting_id, meeting_url,
            scheduled_at, started_at, ended_at, duration_seconds,
            transcript, transcript_word_count, transcription_provider, synthesis_provider,
            processing_time_seconds, error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID,
		conv.Title,
		nullableString(conv.Description),
		conv.Status,
		nullableString(conv.Platform),
		nullableString(conv.PlatformMeetingID),
		nullableString(conv.MeetingURL),
		nullableTime(conv.ScheduledAt),
		nullableTime(conv.StartedAt),
		nullableTime(conv.EndedAt),
		conv.DurationSeconds,
		nullableString(conv.Transcript),
		conv.TranscriptWordCount,
		nullableString(conv.TranscriptionProvider),
		nullableString(conv.SynthesisProvider),
		conv.ProcessingTimeSeconds,
		nullableString(conv.ErrorMessage),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	return s.GetByID(ctx, conv.ID)
}

// GetByID fetches a conversation by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// GetWithParticipants fetches a conversation and attaches its participant roster.
func (s *Store) GetWithParticipants(ctx context.Context, id string) (*Conversation, error) {
	conv, err := s.GetByID(ctx, id)
	if err != nil || conv == nil {
		return conv, err
	}
	participants, err := s.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	conv.Participants = participants
	return conv, nil
}

// GetByPlatformMeetingID returns the first conversation recorded for a platform
// meeting identifier. Returns nil when absent.
func (s *Store) GetByPlatformMeetingID(ctx context.Context, meetingID string) (*Conversation, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE platform_meeting_id = ? ORDER BY created_at LIMIT 1`,
		meetingID,
	)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by platform meeting id: %w", err)
	}
	return conv, nil
}

// Update persists changes to an existing conversation.
func (s *Store) Update(ctx context.Context, conv *Conversation) error {
	if conv == nil {
		return errors.New("conversation is nil")
	}
	if _, ok := ParseStatus(string(conv.Status)); !ok {
		return fmt.Errorf("unknown status %q", conv.Status)
	}
	conv.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE conversations
         SET title = ?, description = ?, status = ?, platform = ?, platform_meeting_id = ?,
             meeting_url = ?, scheduled_at = ?, started_at = ?, ended_at = ?,
             duration_seconds = ?, transcript = ?, transcript_word_count = ?,
             transcription_provider = ?, synthesis_provider = ?, processing_time_seconds = ?,
             error_message = ?, updated_at = ?
         WHERE id = ?`,
		conv.Title,
		nullableString(conv.Description),
		conv.Status,
		nullableString(conv.Platform),
		nullableString(conv.PlatformMeetingID),
		nullableString(conv.MeetingURL),
		nullableTime(conv.ScheduledAt),
		nullableTime(conv.StartedAt),
		nullableTime(conv.EndedAt),
		conv.DurationSeconds,
		nullableString(conv.Transcript),
		conv.TranscriptWordCount,
		nullableString(conv.TranscriptionProvider),
		nullableString(conv.SynthesisProvider),
		conv.ProcessingTimeSeconds,
		nullableString(conv.ErrorMessage),
		conv.UpdatedAt.Format(time.RFC3339Nano),
		conv.ID,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conversation: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update conversation: id %s not found", conv.ID)
	}
	return nil
}

// Delete removes a conversation. Participants and synthesis cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete conversation: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete conversation: id %s not found", id)
	}
	return nil
}

// ListByStatus returns conversations matching a status ordered by creation time.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE status = ? ORDER BY created_at`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectConversations(rows)
}

// List returns conversations filtered by status set (or all when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Conversation, error) {
	baseQuery := `SELECT ` + conversationColumns + ` FROM conversations`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()
	return collectConversations(rows)
}

// ListRecent returns conversations created within the trailing number of days,
// newest first.
func (s *Store) ListRecent(ctx context.Context, days int) ([]*Conversation, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE created_at >= ? ORDER BY created_at DESC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent conversations: %w", err)
	}
	defer rows.Close()
	return collectConversations(rows)
}

// SearchByTitle returns conversations whose title contains the query,
// case-insensitive, newest first.
func (s *Store) SearchByTitle(ctx context.Context, query string) ([]*Conversation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query required")
	}
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+conversationColumns+` FROM conversations
         WHERE title LIKE ? ESCAPE '\' COLLATE NOCASE ORDER BY created_at DESC`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search conversations: %w", err)
	}
	defer rows.Close()
	return collectConversations(rows)
}

// ListPendingDelivery returns completed conversations whose synthesis exists
// but has not been emailed successfully.
func (s *Store) ListPendingDelivery(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+conversationColumnsPrefixed+` FROM conversations c
         JOIN syntheses syn ON syn.conversation_id = c.id
         WHERE c.status = ?
           AND (syn.email_delivery_status IS NULL OR syn.email_delivery_status != ?)
         ORDER BY c.created_at`,
		StatusCompleted,
		DeliveryStatusSent,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending delivery: %w", err)
	}
	defer rows.Close()
	return collectConversations(rows)
}

// Stats aggregates conversation counts per lifecycle state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM conversations GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		switch Status(statusStr) {
		case StatusPending:
			stats.Pending = count
		case StatusTranscribing:
			stats.Transcribing = count
		case StatusSynthesizing:
			stats.Synthesizing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

func collectConversations(rows *sql.Rows) ([]*Conversation, error) {
	var items []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, conv)
	}
	return items, rows.Err()
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
