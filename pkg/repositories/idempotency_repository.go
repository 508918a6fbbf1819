package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// IdempotencyRepository caches completed action results by client key.
type IdempotencyRepository interface {
	// Get returns the cached entry, or nil if there is none.
	Get(ctx context.Context, key IdempotencyKey) (*IdempotencyEntry, error)
	// Put caches entry for ttl. An existing entry is kept.
	Put(ctx context.Context, key IdempotencyKey, entry *IdempotencyEntry, ttl time.Duration) error
}

// IdempotencyEntry is a cached result and the hash of the payload that produced it.
type IdempotencyEntry struct {
	PayloadHash string               `json:"payload_hash"`
	Result      *models.ActionResult `json:"result"`
}

// MarshalBinary lets entries be written with SET.
func (e *IdempotencyEntry) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

// IdempotencyKey scopes a client-chosen key to one caller and action.
type IdempotencyKey struct {
	YachtID  uuid.UUID
	UserID   uuid.UUID
	ActionID string
	Key      string
}

func (k IdempotencyKey) String() string {
	return fmt.Sprintf("bosun:idem:%s:%s:%s:%s", k.YachtID, k.UserID, k.ActionID, k.Key)
}

type redisIdempotencyRepository struct {
	client *redis.Client
}

// NewIdempotencyRepository returns a Redis-backed repository, or nil when
// client is nil (Redis not configured).
func NewIdempotencyRepository(client *redis.Client) IdempotencyRepository {
	if client == nil {
		return nil
	}
	return &redisIdempotencyRepository{client: client}
}

var _ IdempotencyRepository = (*redisIdempotencyRepository)(nil)

func (r *redisIdempotencyRepository) Get(ctx context.Context, key IdempotencyKey) (*IdempotencyEntry, error) {
	data, err := r.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var entry IdempotencyEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}
	if entry.Result == nil {
		return nil, fmt.Errorf("cached entry for %s has no result", key.ActionID)
	}
	return &entry, nil
}

func (r *redisIdempotencyRepository) Put(ctx context.Context, key IdempotencyKey, entry *IdempotencyEntry, ttl time.Duration) error {
	if err := r.client.SetNX(ctx, key.String(), entry, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}
