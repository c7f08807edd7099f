/* Copyright (c) 2025 EverReal GmbH
 * SPDX-License-Identifier: BSD-3-Clause */
package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestFirstSeen(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	first, err := c.FirstSeen(ctx, "fireman:i1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if !first {
		t.Fatal("first sighting must report true")
	}

	first, err = c.FirstSeen(ctx, "fireman:i1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if first {
		t.Fatal("repeat sighting must report false")
	}

	// a different key is independent
	first, err = c.FirstSeen(ctx, "fireman:i2")
	if err != nil || !first {
		t.Fatalf("independent key: first=%v err=%v", first, err)
	}
}

func TestFirstSeen_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	if first, _ := c.FirstSeen(ctx, "fireman:i1"); !first {
		t.Fatal("expected first sighting")
	}
	mr.FastForward(2 * time.Minute)
	first, err := c.FirstSeen(ctx, "fireman:i1")
	if err != nil {
		t.Fatalf("post-expiry check: %v", err)
	}
	if !first {
		t.Fatal("expired key must be first again")
	}
}

func TestNew_BadURL(t *testing.T) {
	if _, err := New(context.Background(), "not-a-url", time.Hour); err == nil {
		t.Fatal("expected error for bad redis url")
	}
}
