package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
)

// ReplayCache returns the stored result of an earlier invocation that used
// the same client key. A nil repository disables it.
//
// Cache failures never fail an action: a miss only means the dispatcher runs
// the pipeline, and creation handlers already de-duplicate on natural keys.
type ReplayCache struct {
	repo   repositories.IdempotencyRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewReplayCache creates a ReplayCache.
func NewReplayCache(repo repositories.IdempotencyRepository, ttl time.Duration, logger *zap.Logger) *ReplayCache {
	return &ReplayCache{repo: repo, ttl: ttl, logger: logger.Named("replay-cache")}
}

// Enabled reports whether a backing store is configured.
func (c *ReplayCache) Enabled() bool {
	return c != nil && c.repo != nil
}

// Lookup returns the cached entry or nil.
func (c *ReplayCache) Lookup(ctx context.Context, key repositories.IdempotencyKey) *repositories.IdempotencyEntry {
	if !c.Enabled() || key.Key == "" {
		return nil
	}
	entry, err := c.repo.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Idempotency lookup failed", zap.String("action_id", key.ActionID), zap.Error(err))
		return nil
	}
	return entry
}

// Store records result and the hash of the payload that produced it under key.
func (c *ReplayCache) Store(ctx context.Context, key repositories.IdempotencyKey, payloadHash string, result *models.ActionResult) {
	if !c.Enabled() || key.Key == "" {
		return
	}
	entry := &repositories.IdempotencyEntry{PayloadHash: payloadHash, Result: result}
	if err := c.repo.Put(ctx, key, entry, c.ttl); err != nil {
		c.logger.Warn("Idempotency store failed", zap.String("action_id", key.ActionID), zap.Error(err))
	}
}

// PayloadHash is the hex SHA-256 of the payload's JSON encoding, signature
// envelope included. Object keys are encoded in sorted order, so equal
// payloads hash equally regardless of how the client ordered them.
func PayloadHash(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
