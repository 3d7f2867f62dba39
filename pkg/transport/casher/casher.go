// Package casher provides Redis-based caching of survey documents
package casher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Koyo-os/survey-service/pkg/codec"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SURVEY_KEY_TEMPLATE namespaces every cached document under "survey:"
const SURVEY_KEY_TEMPLATE = "survey:%s"

// ErrCacheMiss is returned by GetCashFor when the key is not cached
var ErrCacheMiss = errors.New("cache miss")

// Casher handles caching operations using Redis as the backend
type Casher struct {
	client *redis.Client  // Redis client for storage operations
	logger *logger.Logger // Logger for error tracking and debugging
	ttl    time.Duration  // Expiration of cached entries, 0 keeps them forever
}

// Init creates a new Casher instance with the provided Redis client and logger
func Init(client *redis.Client, logger *logger.Logger, ttl time.Duration) *Casher {
	return &Casher{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func (c *Casher) Close() error {
	return c.client.Close()
}

func (c *Casher) IsHealthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}

// AddToCash stores a payload under key. Byte slices are stored as they are,
// anything else is JSON encoded first.
func (c *Casher) AddToCash(ctx context.Context, key string, payload any) error {
	data, ok := payload.([]byte)
	if !ok {
		encoded, err := codec.Marshal(payload)
		if err != nil {
			c.logger.Error("failed to encode payload for cache",
				zap.String("key", key),
				zap.Error(err),
			)
			return err
		}
		data = encoded
	}

	if err := c.client.Set(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key), data, c.ttl).Err(); err != nil {
		c.logger.Error("failed to cash payload with",
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// GetCashFor retrieves cached data for key. A missing key yields ErrCacheMiss.
func (c *Casher) GetCashFor(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		c.logger.Error("error get cash",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, err
	}

	return data, nil
}

func (c *Casher) RemoveFromCash(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key)).Err(); err != nil {
		c.logger.Error("error delete from redis",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	return nil
}
