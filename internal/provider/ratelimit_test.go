package provider

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestRateLimiterMap_UnknownProviderNotThrottled(t *testing.T) {
	m := NewRateLimiterMap()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	for i := 0; i < 10; i++ {
		if err := m.Wait(ctx, ProviderName("unknown")); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestRateLimiterMap_CanceledContext(t *testing.T) {
	m := NewRateLimiterMap()
	m.SetLimit(NameMusicBrainz, rate.Every(time.Hour))

	// The first token is available immediately; the second is not.
	if err := m.Wait(context.Background(), NameMusicBrainz); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx, NameMusicBrainz); err == nil {
		t.Fatal("expected error when limiter cannot grant within deadline")
	}
}

func TestRateLimiterMap_SetLimitCreates(t *testing.T) {
	m := NewRateLimiterMap()
	m.SetLimit(ProviderName("custom"), rate.Inf)
	if err := m.Wait(context.Background(), ProviderName("custom")); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
