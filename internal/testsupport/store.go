package testsupport

import (
	"context"
	"testing"

	"loom/internal/config"
	"loom/internal/conversations"
)

// MustOpenStore opens a conversations.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *conversations.Store {
	t.Helper()

	store, err := conversations.Open(cfg)
	if err != nil {
		t.Fatalf("conversations.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewConversation creates a conversation for tests using the provided store.
func NewConversation(t testing.TB, store *conversations.Store, title string) *conversations.Conversation {
	t.Helper()

	conv, err := store.Create(context.Background(), &conversations.Conversation{Title: title})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return conv
}

// NewTranscribedConversation creates a conversation that already carries a
// completed transcript, ready for synthesis.
func NewTranscribedConversation(t testing.TB, store *conversations.Store, title, transcript string) *conversations.Conversation {
	t.Helper()

	conv := NewConversation(t, store, title)
	conv.SetTranscribed(transcript, "whisper", 4)
	if err := store.Update(context.Background(), conv); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
	return conv
}
