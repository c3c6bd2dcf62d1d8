package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNewAppliesDefaults(t *testing.T) {
	l := New(Config{})
	if l.config.RequestsPerSecond != 20 {
		t.Errorf("RequestsPerSecond = %v, want 20", l.config.RequestsPerSecond)
	}
	if l.config.Burst != 40 {
		t.Errorf("Burst = %d, want 40", l.config.Burst)
	}
}

func TestAllowRespectsBurst(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 2})

	if !l.Allow() {
		t.Fatal("expected first call to be allowed")
	}
	if !l.Allow() {
		t.Fatal("expected second call (within burst) to be allowed")
	}
	if l.Allow() {
		t.Fatal("expected third call to be throttled")
	}
}

func TestReset(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	if !l.Allow() {
		t.Fatal("expected first call to be allowed")
	}
	if l.Allow() {
		t.Fatal("expected second call to be throttled before reset")
	}

	l.Reset()
	if !l.Allow() {
		t.Fatal("expected call after reset to be allowed")
	}
}

func TestWaitUnblocksWithinDeadline(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1000, Burst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
