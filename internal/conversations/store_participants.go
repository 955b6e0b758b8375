package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddParticipant attaches an attendee to a conversation.
func (s *Store) AddParticipant(ctx context.Context, p *Participant) (*Participant, error) {
	if p == nil {
		return nil, errors.New("participant is nil")
	}
	if p.ConversationID == "" {
		return nil, errors.New("participant conversation id required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, errors.New("participant name required")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO participants (conversation_id, name, email, is_organizer, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		p.ConversationID,
		p.Name,
		nullableString(p.Email),
		boolToInt(p.IsOrganizer),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert participant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	return p, nil
}

// ListParticipants returns a conversation's attendees in insertion order.
func (s *Store) ListParticipants(ctx context.Context, conversationID string) ([]*Participant, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, conversation_id, name, email, is_organizer, created_at
         FROM participants WHERE conversation_id = ? ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []*Participant
	for rows.Next() {
		var (
			p          Participant
			email      sql.NullString
			organizer  int
			createdRaw string
		)
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.Name, &email, &organizer, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.Email = email.String
		p.IsOrganizer = organizer != 0
		if created, err := parseTimeString(createdRaw); err == nil {
			p.CreatedAt = created
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
