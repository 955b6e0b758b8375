package services

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDelayDoubles(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := BackoffDelay(tc.attempt); got != tc.want {
			t.Fatalf("BackoffDelay(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestSleepWithContextUsesSleeper(t *testing.T) {
	var slept []time.Duration
	sleeper := func(d time.Duration) { slept = append(slept, d) }

	if err := SleepWithContext(context.Background(), 2*time.Second, sleeper); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("unexpected sleeps: %v", slept)
	}
}

func TestSleepWithContextHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepWithContext(ctx, time.Second, nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSleepWithContextZeroDelay(t *testing.T) {
	if err := SleepWithContext(nil, 0, nil); err != nil {
		t.Fatalf("zero delay should never error, got %v", err)
	}
}
