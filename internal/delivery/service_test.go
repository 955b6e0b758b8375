package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"loom/internal/conversations"
	"loom/internal/logging"
	"loom/internal/services"
	"loom/internal/services/mailer"
	"loom/internal/testsupport"
)

type fakeMailer struct {
	sendErr  error
	healthy  bool
	calls    int
	lastTo   []string
	lastSubj string
	lastHTML string
	lastText string
}

func (f *fakeMailer) Send(_ context.Context, to []string, subject, htmlBody, textBody string) (*mailer.SendResult, error) {
	f.calls++
	f.lastTo = append([]string(nil), to...)
	f.lastSubj = subject
	f.lastHTML = htmlBody
	f.lastText = textBody
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &mailer.SendResult{SentAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), Recipients: to}, nil
}

func (f *fakeMailer) HealthCheck(context.Context) bool { return f.healthy }

func seedSynthesized(t *testing.T) (*conversations.Store, *conversations.Conversation) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	conv := testsupport.NewTranscribedConversation(t, store, "Roadmap Review", "we agreed to ship the beta in april and revisit pricing")
	_, err := store.UpsertSynthesis(context.Background(), &conversations.Synthesis{
		ConversationID: conv.ID,
		Summary:        "The team agreed to ship the beta in April.",
		KeyDecisions:   []string{"Ship the beta in April"},
		ActionItems: []conversations.ActionItem{
			{Task: "Draft launch checklist", Owner: "Dana", DueDate: "2026-04-01"},
		},
		OpenQuestions: []string{"Who owns pricing follow-up?"},
		KeyTopics:     []string{"beta", "pricing"},
		LLMModel:      "gpt-4-turbo-preview",
	})
	if err != nil {
		t.Fatalf("UpsertSynthesis: %v", err)
	}
	return store, conv
}

func addParticipant(t *testing.T, store *conversations.Store, conversationID, name, email string) {
	t.Helper()
	if _, err := store.AddParticipant(context.Background(), &conversations.Participant{
		ConversationID: conversationID,
		Name:           name,
		Email:          email,
	}); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
}

func TestSendDeliversToParticipants(t *testing.T) {
	store, conv := seedSynthesized(t)
	addParticipant(t, store, conv.ID, "Dana", "dana@example.com")
	addParticipant(t, store, conv.ID, "Observer", "")
	addParticipant(t, store, conv.ID, "Lee", "lee@example.com")

	fm := &fakeMailer{}
	svc := NewService(store, fm, logging.NewNop())

	outcome, err := svc.Send(context.Background(), conv.ID, nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(outcome.Recipients) != 2 {
		t.Fatalf("recipients = %v", outcome.Recipients)
	}
	if fm.lastSubj != "Meeting Synthesis: Roadmap Review" {
		t.Fatalf("subject = %q", fm.lastSubj)
	}
	if !strings.Contains(fm.lastHTML, "Ship the beta in April") {
		t.Fatalf("html body missing decision: %q", fm.lastHTML)
	}
	if !strings.Contains(fm.lastText, "MEETING SYNTHESIS: Roadmap Review") {
		t.Fatalf("text body missing header: %q", fm.lastText)
	}
	if !strings.Contains(fm.lastText, "Owner: Dana") {
		t.Fatalf("text body missing owner: %q", fm.lastText)
	}

	syn, err := store.GetSynthesis(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetSynthesis: %v", err)
	}
	if syn.EmailDeliveryStatus != conversations.DeliveryStatusSent {
		t.Fatalf("delivery status = %q", syn.EmailDeliveryStatus)
	}
	if syn.EmailSentAt == nil {
		t.Fatal("expected sent timestamp")
	}
	if len(syn.EmailRecipients) != 2 {
		t.Fatalf("stored recipients = %v", syn.EmailRecipients)
	}
}

func TestSendExplicitRecipientsOverrideParticipants(t *testing.T) {
	store, conv := seedSynthesized(t)
	addParticipant(t, store, conv.ID, "Dana", "dana@example.com")

	fm := &fakeMailer{}
	svc := NewService(store, fm, logging.NewNop())

	outcome, err := svc.Send(context.Background(), conv.ID, []string{"exec@example.com"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(outcome.Recipients) != 1 || outcome.Recipients[0] != "exec@example.com" {
		t.Fatalf("recipients = %v", outcome.Recipients)
	}
	if len(fm.lastTo) != 1 || fm.lastTo[0] != "exec@example.com" {
		t.Fatalf("mailer recipients = %v", fm.lastTo)
	}
}

func TestSendFailureMarksDeliveryFailed(t *testing.T) {
	store, conv := seedSynthesized(t)
	addParticipant(t, store, conv.ID, "Dana", "dana@example.com")

	fm := &fakeMailer{sendErr: errors.New("connection refused")}
	svc := NewService(store, fm, logging.NewNop())

	if _, err := svc.Send(context.Background(), conv.ID, nil); err == nil {
		t.Fatal("expected send error")
	}

	syn, err := store.GetSynthesis(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetSynthesis: %v", err)
	}
	if syn.EmailDeliveryStatus != conversations.DeliveryStatusFailed {
		t.Fatalf("delivery status = %q", syn.EmailDeliveryStatus)
	}
	if syn.EmailSentAt != nil {
		t.Fatal("sent timestamp should stay empty after failure")
	}
}

func TestSendFailureKeepsEarlierDeliveryRecord(t *testing.T) {
	store, conv := seedSynthesized(t)
	addParticipant(t, store, conv.ID, "Dana", "dana@example.com")

	fm := &fakeMailer{}
	svc := NewService(store, fm, logging.NewNop())

	if _, err := svc.Send(context.Background(), conv.ID, nil); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	fm.sendErr = errors.New("connection reset")
	if _, err := svc.Send(context.Background(), conv.ID, nil); err == nil {
		t.Fatal("expected second send to fail")
	}

	syn, err := store.GetSynthesis(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetSynthesis: %v", err)
	}
	if syn.EmailDeliveryStatus != conversations.DeliveryStatusFailed {
		t.Fatalf("delivery status = %q", syn.EmailDeliveryStatus)
	}
	if syn.EmailSentAt == nil {
		t.Fatal("earlier sent timestamp should survive a failed resend")
	}
	if len(syn.EmailRecipients) != 1 || syn.EmailRecipients[0] != "dana@example.com" {
		t.Fatalf("stored recipients = %v", syn.EmailRecipients)
	}
}

func TestSendRequiresParticipantsWithEmails(t *testing.T) {
	store, conv := seedSynthesized(t)
	fm := &fakeMailer{}
	svc := NewService(store, fm, logging.NewNop())

	_, err := svc.Send(context.Background(), conv.ID, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fm.calls != 0 {
		t.Fatalf("mailer called %d times", fm.calls)
	}

	addParticipant(t, store, conv.ID, "Observer", "")
	_, err = svc.Send(context.Background(), conv.ID, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty emails, got %v", err)
	}
	if !strings.Contains(err.Error(), "no valid email addresses") {
		t.Fatalf("error = %v", err)
	}
}

func TestSendMissingConversationOrSynthesis(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewService(store, &fakeMailer{}, logging.NewNop())

	if _, err := svc.Send(context.Background(), "missing", nil); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for conversation, got %v", err)
	}

	conv := testsupport.NewTranscribedConversation(t, store, "No Synthesis", "plenty of transcript words here to satisfy checks")
	if _, err := svc.Send(context.Background(), conv.ID, []string{"a@example.com"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for synthesis, got %v", err)
	}
}

func TestPreviewRendersWithoutSending(t *testing.T) {
	store, conv := seedSynthesized(t)
	fm := &fakeMailer{}
	svc := NewService(store, fm, logging.NewNop())

	html, err := svc.Preview(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !strings.Contains(html, "Roadmap Review") || !strings.Contains(html, "beta, pricing") {
		t.Fatalf("preview missing content: %q", html)
	}
	if fm.calls != 0 {
		t.Fatalf("mailer called %d times", fm.calls)
	}
}
