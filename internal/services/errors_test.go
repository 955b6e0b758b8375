package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrTransient, "transcription", "whisper request", "upload failed", cause)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "transcription: whisper request: upload failed") {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "delivery", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected default transient marker, got %v", err)
	}
}

func TestWrapWithoutDetailUsesFallback(t *testing.T) {
	err := Wrap(ErrValidation, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", Wrap(ErrValidation, "synthesis", "", "transcript too short", nil), false},
		{"configuration", ErrConfiguration, false},
		{"auth", Wrap(ErrAuth, "delivery", "smtp", "credentials rejected", nil), false},
		{"not implemented", ErrNotImplemented, false},
		{"not found", ErrNotFound, false},
		{"transient", Wrap(ErrTransient, "transcription", "", "timeout", nil), true},
		{"untagged", fmt.Errorf("http 503"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
