package soniox

import (
	"context"
	"errors"
	"strings"
	"testing"

	"loom/internal/services"
	"loom/internal/testsupport"
)

func TestAvailabilityFollowsAPIKey(t *testing.T) {
	if NewClient(Config{}).Available() {
		t.Fatal("unconfigured client should be unavailable")
	}
	if !NewClient(Config{APIKey: " key "}).Available() {
		t.Fatal("configured client should be available")
	}
}

func TestTranscribeFailsDistinctly(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(Config{}).Transcribe(ctx, strings.NewReader("audio"), "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	_, err = NewClient(Config{APIKey: "key"}).Transcribe(ctx, strings.NewReader("audio"), "")
	if !errors.Is(err, services.ErrNotImplemented) {
		t.Fatalf("expected not-implemented error, got %v", err)
	}
	if errors.Is(err, services.ErrTransient) {
		t.Fatal("not-implemented must not classify as transient")
	}
}

func TestHealthCheckIsFalse(t *testing.T) {
	if NewClient(Config{APIKey: "key"}).HealthCheck(context.Background()) {
		t.Fatal("health must report false until implemented")
	}
}

func TestAvailabilityFromAppConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if cfg.SonioxConfigured() {
		t.Fatal("default test config must leave soniox unconfigured")
	}

	cfg = testsupport.NewConfig(t, testsupport.WithSonioxKey("soniox-key"))
	if !cfg.SonioxConfigured() {
		t.Fatal("expected soniox to be configured")
	}
	client := NewClient(Config{APIKey: cfg.Soniox.APIKey, BaseURL: cfg.Soniox.BaseURL})
	if !client.Available() {
		t.Fatal("client built from configured settings should be available")
	}
}
