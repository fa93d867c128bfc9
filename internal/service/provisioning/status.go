// internal/service/provisioning/status.go
package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Status is the snapshot the onboarding UI polls while provisioning runs.
type Status struct {
	Subdomain string    `json:"subdomain"`
	Step      string    `json:"step"`
	State     string    `json:"state"` // running, failed, done
	Detail    string    `json:"detail,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	StateRunning = "running"
	StateFailed  = "failed"
	StateDone    = "done"
)

// statusTTL outlives the UI's poll ceiling so a refreshed page still sees the
// last state, but stale snapshots do not linger.
const statusTTL = 10 * time.Minute

// StatusTracker records per-subdomain provisioning progress.
type StatusTracker interface {
	Set(ctx context.Context, label, step, state, detail string)
	Snapshot(ctx context.Context, label string) (*Status, error)
}

// RedisStatusTracker keeps snapshots in redis so any API instance can answer
// the poll regardless of which one ran the pipeline.
type RedisStatusTracker struct {
	client *redis.Client
}

func NewRedisStatusTracker(client *redis.Client) *RedisStatusTracker {
	return &RedisStatusTracker{client: client}
}

func statusKey(label string) string {
	return fmt.Sprintf("provision:status:%s", label)
}

// Set is best effort: a lost snapshot degrades the progress UI, never the
// pipeline.
func (t *RedisStatusTracker) Set(ctx context.Context, label, step, state, detail string) {
	b, err := json.Marshal(Status{
		Subdomain: label,
		Step:      step,
		State:     state,
		Detail:    detail,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	t.client.Set(ctx, statusKey(label), b, statusTTL)
}

func (t *RedisStatusTracker) Snapshot(ctx context.Context, label string) (*Status, error) {
	raw, err := t.client.Get(ctx, statusKey(label)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read provisioning status: %w", err)
	}

	var st Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("failed to decode provisioning status: %w", err)
	}
	return &st, nil
}
