package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
)

type failingReplay struct{}

func (failingReplay) Get(context.Context, repositories.IdempotencyKey) (*repositories.IdempotencyEntry, error) {
	return nil, errors.New("redis: connection refused")
}

func (failingReplay) Put(context.Context, repositories.IdempotencyKey, *repositories.IdempotencyEntry, time.Duration) error {
	return errors.New("redis: connection refused")
}

func TestReplayCache(t *testing.T) {
	ctx := context.Background()
	key := repositories.IdempotencyKey{YachtID: uuid.New(), UserID: uuid.New(), ActionID: "restock_part", Key: "k1"}

	var disabled *ReplayCache
	assert.False(t, disabled.Enabled())
	assert.Nil(t, disabled.Lookup(ctx, key))
	disabled.Store(ctx, key, "h", &models.ActionResult{})

	assert.False(t, NewReplayCache(nil, time.Hour, zap.NewNop()).Enabled())

	cache := NewReplayCache(newFakeReplay(), time.Hour, zap.NewNop())
	assert.Nil(t, cache.Lookup(ctx, key))
	cache.Store(ctx, key, "hash-1", &models.ActionResult{ActionID: "restock_part"})
	got := cache.Lookup(ctx, key)
	if assert.NotNil(t, got) {
		assert.Equal(t, "hash-1", got.PayloadHash)
		assert.Equal(t, "restock_part", got.Result.ActionID)
	}

	noKey := key
	noKey.Key = ""
	cache.Store(ctx, noKey, "hash-1", &models.ActionResult{})
	assert.Nil(t, cache.Lookup(ctx, noKey))
}

func TestReplayCache_FailuresAreLoggedOnly(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cache := NewReplayCache(failingReplay{}, time.Hour, zap.New(core))
	key := repositories.IdempotencyKey{Key: "k"}

	assert.Nil(t, cache.Lookup(context.Background(), key))
	cache.Store(context.Background(), key, "h", &models.ActionResult{})
	assert.Equal(t, 2, logs.Len())
}

func TestPayloadHash(t *testing.T) {
	partID := uuid.New().String()

	a, err := PayloadHash(map[string]any{"part_id": partID, "quantity": 5.0})
	require.NoError(t, err)
	assert.Len(t, a, 64)

	reordered, err := PayloadHash(map[string]any{"quantity": 5.0, "part_id": partID})
	require.NoError(t, err)
	assert.Equal(t, a, reordered)

	other, err := PayloadHash(map[string]any{"part_id": partID, "quantity": 500.0})
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	signed, err := PayloadHash(map[string]any{"part_id": partID, "quantity": 5.0, SignatureKey: map[string]any{"signature_hash": "ab"}})
	require.NoError(t, err)
	assert.NotEqual(t, a, signed)

	empty, err := PayloadHash(nil)
	require.NoError(t, err)
	emptyMap, err := PayloadHash(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, empty, emptyMap)
}
