// internal/pkg/session/bridge.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/id"

	"github.com/redis/go-redis/v9"
)

// BridgeData is the session payload carried across the apex domain and the
// tenant subdomains. Redis is the only store; nothing session-shaped touches
// the database.
type BridgeData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	TenantID  string    `json:"tenant_id,omitempty"`
	RoleKey   string    `json:"role_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Bridge struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBridge(client *redis.Client, ttl time.Duration) *Bridge {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Bridge{client: client, ttl: ttl}
}

func (b *Bridge) bridgeKey(token string) string {
	return fmt.Sprintf("bridge:session:%s", token)
}

func (b *Bridge) tombstoneKey(userID string) string {
	return fmt.Sprintf("bridge:cleared:%s", userID)
}

// Persist stores the session under a fresh opaque token and returns it. The
// token is the only handle; it never encodes user data.
func (b *Bridge) Persist(ctx context.Context, data *BridgeData) (string, error) {
	now := time.Now()
	data.CreatedAt = now
	data.ExpiresAt = now.Add(b.ttl)

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal bridge session: %w", err)
	}

	token := id.NewToken()
	if err := b.client.Set(ctx, b.bridgeKey(token), payload, b.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store bridge session: %w", err)
	}
	return token, nil
}

// Restore resolves a bridge token back to its session. A sign-out tombstone
// written after the token was minted wins over the token: the restore is
// refused even though the token itself has not expired.
func (b *Bridge) Restore(ctx context.Context, token string) (*BridgeData, error) {
	raw, err := b.client.Get(ctx, b.bridgeKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bridge session: %w", err)
	}

	var data BridgeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bridge session: %w", err)
	}

	clearedAt, err := b.clearedAt(ctx, data.UserID)
	if err != nil {
		return nil, err
	}
	if !clearedAt.IsZero() && !clearedAt.Before(data.CreatedAt) {
		b.client.Del(ctx, b.bridgeKey(token))
		return nil, xerrors.ErrUnauthorized
	}

	return &data, nil
}

// Clear signs the user out everywhere: the token, if given, is deleted, and a
// tombstone invalidates every bridge token minted before this moment.
func (b *Bridge) Clear(ctx context.Context, userID, token string) error {
	if token != "" {
		if err := b.client.Del(ctx, b.bridgeKey(token)).Err(); err != nil {
			return fmt.Errorf("failed to delete bridge session: %w", err)
		}
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)
	if err := b.client.Set(ctx, b.tombstoneKey(userID), ts, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write sign-out marker: %w", err)
	}
	return nil
}

func (b *Bridge) clearedAt(ctx context.Context, userID string) (time.Time, error) {
	raw, err := b.client.Get(ctx, b.tombstoneKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sign-out marker: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, nil
	}
	return ts, nil
}
