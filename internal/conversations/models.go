package conversations

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a conversation.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusSynthesizing Status = "synthesizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusSynthesizing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Email delivery outcomes recorded on the synthesis row.
const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	return status == StatusTranscribing || status == StatusSynthesizing
}

// Conversation represents a recorded meeting persisted in SQLite.
type Conversation struct {
	ID                    string
	Title                 string
	Description           string
	Status                Status
	Platform              string
	PlatformMeetingID     string
	MeetingURL            string
	ScheduledAt           *time.Time
	StartedAt             *time.Time
	EndedAt               *time.Time
	DurationSeconds       int
	Transcript            string
	TranscriptWordCount   int
	TranscriptionProvider string
	SynthesisProvider     string
	ProcessingTimeSeconds int
	ErrorMessage          string
	CreatedAt             time.Time
	UpdatedAt             time.Time

	// Participants is populated by GetWithParticipants; plain reads leave it nil.
	Participants []*Participant
}

// HasTranscript reports whether transcription produced usable text.
func (c *Conversation) HasTranscript() bool {
	return c != nil && strings.TrimSpace(c.Transcript) != ""
}

// SetFailed marks the conversation failed with the given error message.
func (c *Conversation) SetFailed(message string) {
	c.Status = StatusFailed
	c.ErrorMessage = message
}

// SetTranscribed records a successful transcription outcome.
func (c *Conversation) SetTranscribed(transcript, provider string, elapsedSeconds int) {
	c.Status = StatusCompleted
	c.Transcript = transcript
	c.TranscriptWordCount = len(strings.Fields(transcript))
	c.TranscriptionProvider = provider
	c.ProcessingTimeSeconds = elapsedSeconds
	c.ErrorMessage = ""
}

// Participant is a meeting attendee attached to a conversation.
type Participant struct {
	ID             int64
	ConversationID string
	Name           string
	Email          string
	IsOrganizer    bool
	CreatedAt      time.Time
}

// ActionItem is a single task extracted by synthesis.
type ActionItem struct {
	Task    string `json:"task"`
	Owner   string `json:"owner,omitempty"`
	DueDate string `json:"due_date,omitempty"`
}

// Synthesis holds the structured insights extracted from a transcript.
// At most one row exists per conversation.
type Synthesis struct {
	ID                    int64
	ConversationID        string
	Summary               string
	SummaryWordCount      int
	KeyDecisions          []string
	ActionItems           []ActionItem
	OpenQuestions         []string
	KeyTopics             []string
	LLMModel              string
	LLMTokensUsed         int
	ProcessingTimeSeconds float64
	ConfidenceScore       *float64
	EmailSentAt           *time.Time
	EmailRecipients       []string
	EmailDeliveryStatus   string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Stats aggregates conversation counts per lifecycle state.
type Stats struct {
	Total        int
	Pending      int
	Transcribing int
	Synthesizing int
	Completed    int
	Failed       int
}
