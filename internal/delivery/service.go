package delivery

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"loom/internal/conversations"
	"loom/internal/logging"
	"loom/internal/services"
	"loom/internal/services/mailer"
)

// Mailer is the SMTP surface the orchestrator needs.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, htmlBody, textBody string) (*mailer.SendResult, error)
	HealthCheck(ctx context.Context) bool
}

// Outcome reports a completed delivery.
type Outcome struct {
	Recipients []string
	SentAt     string
}

// Service emails synthesis results to meeting participants.
type Service struct {
	store  *conversations.Store
	mailer Mailer
	logger *slog.Logger
}

// NewService wires the delivery orchestrator.
func NewService(store *conversations.Store, m Mailer, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		mailer: m,
		logger: logging.NewComponentLogger(logger, "delivery"),
	}
}

// Send emails the synthesis for a conversation. Explicit recipients override
// the participant list; otherwise every participant with an email address
// receives a copy. The synthesis row records the outcome either way.
func (s *Service) Send(ctx context.Context, conversationID string, recipients []string) (*Outcome, error) {
	conv, syn, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	ctx = services.WithConversationID(ctx, conv.ID)
	ctx = services.WithStage(ctx, "delivery")
	log := logging.WithContext(ctx, s.logger)

	to, err := s.resolveRecipients(ctx, conv, recipients)
	if err != nil {
		return nil, err
	}

	htmlBody, err := renderHTMLBody(conv, syn)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "delivery", "send", "render email", err)
	}
	textBody := renderTextBody(conv, syn)
	subject := "Meeting Synthesis: " + conv.Title

	result, sendErr := s.mailer.Send(ctx, to, subject, htmlBody, textBody)
	if sendErr != nil {
		// Keep any earlier successful delivery record; only the status flips.
		if updateErr := s.store.UpdateSynthesisDelivery(ctx, conv.ID, syn.EmailSentAt, syn.EmailRecipients, conversations.DeliveryStatusFailed); updateErr != nil {
			log.Error("failed to record delivery failure", logging.Error(updateErr))
		}
		log.Error("synthesis email send failed",
			logging.Int("recipients", len(to)),
			logging.Error(sendErr))
		return nil, sendErr
	}

	sentAt := result.SentAt.UTC()
	if err := s.store.UpdateSynthesisDelivery(ctx, conv.ID, &sentAt, to, conversations.DeliveryStatusSent); err != nil {
		return nil, err
	}

	log.Info("synthesis email sent",
		logging.Int("recipients", len(to)))

	return &Outcome{
		Recipients: to,
		SentAt:     sentAt.Format(time.RFC3339),
	}, nil
}

// Preview renders the HTML body without sending anything.
func (s *Service) Preview(ctx context.Context, conversationID string) (string, error) {
	conv, syn, err := s.load(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return renderHTMLBody(conv, syn)
}

// HealthCheck reports whether the SMTP server accepts connections.
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.mailer.HealthCheck(ctx)
}

func (s *Service) load(ctx context.Context, conversationID string) (*conversations.Conversation, *conversations.Synthesis, error) {
	conv, err := s.store.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "delivery", "send",
			"conversation "+conversationID+" not found", nil)
	}
	syn, err := s.store.GetSynthesis(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if syn == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "delivery", "send",
			"no synthesis found for conversation "+conversationID+"; generate one first", nil)
	}
	return conv, syn, nil
}

func (s *Service) resolveRecipients(ctx context.Context, conv *conversations.Conversation, override []string) ([]string, error) {
	if len(override) > 0 {
		return override, nil
	}
	full, err := s.store.GetWithParticipants(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if full == nil || len(full.Participants) == 0 {
		return nil, services.Wrap(services.ErrValidation, "delivery", "send",
			"no participants found for conversation "+conv.ID+"; add participants or specify recipients", nil)
	}
	var to []string
	for _, p := range full.Participants {
		if email := strings.TrimSpace(p.Email); email != "" {
			to = append(to, email)
		}
	}
	if len(to) == 0 {
		return nil, services.Wrap(services.ErrValidation, "delivery", "send",
			"no valid email addresses found in participants", nil)
	}
	return to, nil
}
