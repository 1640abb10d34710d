package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/samahstore/catalog/pkg/catalog"
)

// RedisKeyHero holds the hero banner document.
const RedisKeyHero = "catalog:hero:settings"

const maxSaveAttempts = 5

// RedisHero implements catalog.HeroRepository on a single Redis key.
type RedisHero struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisHero creates a hero repository on redisClient.
func NewRedisHero(redisClient *redis.Client, logger zerolog.Logger) *RedisHero {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisHero{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
	}
}

// Get loads the hero banner. Returns catalog.ErrNotFound if none was saved.
func (r *RedisHero) Get(ctx context.Context) (catalog.HeroSettings, error) {
	data, err := r.redis.Get(ctx, RedisKeyHero).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return catalog.HeroSettings{}, fmt.Errorf("hero: %w", catalog.ErrNotFound)
		}
		return catalog.HeroSettings{}, fmt.Errorf("redis get: %w", err)
	}

	var h catalog.HeroSettings
	if err := json.Unmarshal(data, &h); err != nil {
		return catalog.HeroSettings{}, fmt.Errorf("decode hero: %w", err)
	}
	return h, nil
}

// Save replaces the hero banner. The stamp is later than the stored one even
// when both land in the same millisecond, so the validator always changes.
// The read and the SET run under WATCH and are retried if another writer
// touched the key in between.
func (r *RedisHero) Save(ctx context.Context, in catalog.HeroInput) (catalog.HeroSettings, error) {
	h := heroFromInput(in)

	save := func(tx *redis.Tx) error {
		var prev time.Time
		data, err := tx.Get(ctx, RedisKeyHero).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get: %w", err)
		default:
			var old catalog.HeroSettings
			if err := json.Unmarshal(data, &old); err == nil {
				prev = old.UpdatedAt
			}
		}
		h.UpdatedAt = nextStamp(r.now(), prev)

		data, err = json.Marshal(h)
		if err != nil {
			return fmt.Errorf("encode hero: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, RedisKeyHero, data, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		err = r.redis.Watch(ctx, save, RedisKeyHero)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		r.logger.Debug().Int("attempt", attempt+1).Msg("Hero changed during save, retrying")
	}
	if err != nil {
		return catalog.HeroSettings{}, fmt.Errorf("save hero: %w", err)
	}

	r.logger.Debug().Time("updated_at", h.UpdatedAt).Msg("Hero saved")
	return h, nil
}

// Ping checks the connection.
func (r *RedisHero) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx).Err()
}
