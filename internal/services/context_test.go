package services

import (
	"context"
	"testing"
)

func TestConversationIDRoundTrip(t *testing.T) {
	ctx := WithConversationID(context.Background(), "conv-42")
	id, ok := ConversationIDFromContext(ctx)
	if !ok || id != "conv-42" {
		t.Fatalf("got (%q, %v)", id, ok)
	}
}

func TestEmptyValuesAreNotStored(t *testing.T) {
	ctx := context.Background()
	if got := WithConversationID(ctx, ""); got != ctx {
		t.Fatal("empty conversation id should not allocate a new context")
	}
	if got := WithStage(ctx, ""); got != ctx {
		t.Fatal("empty stage should not allocate a new context")
	}
	if _, ok := RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id on bare context")
	}
}

func TestStageAndRequestID(t *testing.T) {
	ctx := WithStage(context.Background(), "transcription")
	ctx = WithRequestID(ctx, "req-7")

	if stage, ok := StageFromContext(ctx); !ok || stage != "transcription" {
		t.Fatalf("stage = (%q, %v)", stage, ok)
	}
	if id, ok := RequestIDFromContext(ctx); !ok || id != "req-7" {
		t.Fatalf("request id = (%q, %v)", id, ok)
	}
}
