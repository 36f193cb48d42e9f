package main

import (
	"testing"
	"time"
)

func TestBackoff_ExponentialWithCap(t *testing.T) {
	b := newBackoff(initialRetryDelay, maxRetryDelay)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if got := b.next(); got != w {
			t.Errorf("attempt %d: backoff = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := newBackoff(initialRetryDelay, maxRetryDelay)

	b.next() // 1s
	b.next() // 2s

	b.reset()

	if d := b.next(); d != initialRetryDelay {
		t.Errorf("after reset, backoff = %v, want %v", d, initialRetryDelay)
	}
}

func TestBackoff_InitialAboveMax(t *testing.T) {
	b := newBackoff(time.Minute, maxRetryDelay)
	if d := b.next(); d != maxRetryDelay {
		t.Errorf("backoff = %v, want %v", d, maxRetryDelay)
	}
}
