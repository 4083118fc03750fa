package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codehub/internal/config"
	"codehub/internal/database"
)

// These tests need a running Redis instance and skip without one.
func presenceForTest(t *testing.T) *PresenceService {
	t.Helper()
	client, err := database.NewRedisConnection(&config.RedisConfig{
		Addr:        "127.0.0.1:6379",
		DB:          15,
		DialTimeout: time.Second,
	})
	if err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	t.Cleanup(func() { client.Close() })
	return NewPresenceService(client)
}

func TestPresenceLifecycle(t *testing.T) {
	presence := presenceForTest(t)
	ctx := context.Background()
	userID := uint(time.Now().UnixNano() % 1_000_000)

	if err := presence.SetUserOnline(ctx, userID); err != nil {
		t.Fatalf("SetUserOnline failed: %v", err)
	}
	online, err := presence.IsUserOnline(ctx, userID)
	if err != nil || !online {
		t.Errorf("User should be online, got (%v, %v)", online, err)
	}

	if err := presence.SetUserInRoom(ctx, userID, "room-uuid"); err != nil {
		t.Fatalf("SetUserInRoom failed: %v", err)
	}
	online, _ = presence.IsUserOnline(ctx, userID)
	if !online {
		t.Error("User in a room still counts as online")
	}

	if err := presence.SetUserOffline(ctx, userID); err != nil {
		t.Fatalf("SetUserOffline failed: %v", err)
	}
	online, _ = presence.IsUserOnline(ctx, userID)
	if online {
		t.Error("User should be offline")
	}
}

func TestCheckRateLimit(t *testing.T) {
	presence := presenceForTest(t)
	ctx := context.Background()
	key := fmt.Sprintf("rate_limit:test:%d", time.Now().UnixNano())

	for i := 0; i < 3; i++ {
		allowed, err := presence.CheckRateLimit(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !allowed {
			t.Fatalf("Request %d should be within the limit", i+1)
		}
	}

	allowed, err := presence.CheckRateLimit(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if allowed {
		t.Error("Fourth request should exceed the limit of 3")
	}
}
