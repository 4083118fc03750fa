package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"codehub/internal/database"
)

// PresenceService tracks user online status in Redis. Status writes are
// best-effort: callers log failures and carry on.
type PresenceService struct {
	client *database.RedisClient
}

func NewPresenceService(client *database.RedisClient) *PresenceService {
	return &PresenceService{client: client}
}

func (p *PresenceService) setStatus(ctx context.Context, userID uint, status string, expiry time.Duration) error {
	pipe := p.client.GetClient().Pipeline()
	key := fmt.Sprintf("user:%d:status", userID)

	if status == "offline" {
		pipe.SRem(ctx, "online_users", strconv.FormatUint(uint64(userID), 10))
	} else {
		pipe.SAdd(ctx, "online_users", strconv.FormatUint(uint64(userID), 10))
	}

	pipe.HSet(ctx, key, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, key, expiry)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to update user status", "userID", userID, "status", status, "error", err)
		return err
	}
	return nil
}

func (p *PresenceService) SetUserOnline(ctx context.Context, userID uint) error {
	return p.setStatus(ctx, userID, "online", 5*time.Minute)
}

func (p *PresenceService) SetUserInRoom(ctx context.Context, userID uint, roomUUID string) error {
	key := fmt.Sprintf("user:%d:status", userID)
	if err := p.setStatus(ctx, userID, "in-room", 5*time.Minute); err != nil {
		return err
	}
	if err := p.client.GetClient().HSet(ctx, key, "room", roomUUID).Err(); err != nil {
		slog.Error("Failed to record user room", "userID", userID, "room", roomUUID, "error", err)
		return err
	}
	return nil
}

func (p *PresenceService) SetUserOffline(ctx context.Context, userID uint) error {
	return p.setStatus(ctx, userID, "offline", 24*time.Hour)
}

func (p *PresenceService) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return p.client.GetClient().SMembers(ctx, "online_users").Result()
}

func (p *PresenceService) IsUserOnline(ctx context.Context, userID uint) (bool, error) {
	return p.client.GetClient().
		SIsMember(ctx, "online_users", strconv.FormatUint(uint64(userID), 10)).Result()
}

// CheckRateLimit implements a fixed-window counter. Returns false when
// the key has exceeded limit requests within the window.
func (p *PresenceService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rdb := p.client.GetClient()

	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}
