package settingsinfra

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/placement/settings"
	"github.com/redis/go-redis/v9"
)

const cacheKey = "placement:settings"

// CachedProvider keeps the settings in Redis for ttl. Redis errors fall
// through to the inner provider so a cache outage never blocks sending.
type CachedProvider struct {
	inner settings.Provider
	rdb   redis.UniversalClient
	ttl   time.Duration
}

func NewCachedProvider(inner settings.Provider, rdb redis.UniversalClient, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedProvider) Current(ctx context.Context) (settings.Settings, error) {
	data, err := c.rdb.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var s settings.Settings
		if jsonErr := json.Unmarshal(data, &s); jsonErr == nil {
			return s, nil
		}
		logx.Warn("settings: discarding corrupt cache entry")
	} else if !errors.Is(err, redis.Nil) {
		logx.WithError(err).Warn("settings: cache read failed, reading store")
	}

	s, err := c.inner.Current(ctx)
	if err != nil {
		return settings.Settings{}, err
	}

	if data, err := json.Marshal(s); err == nil {
		if err := c.rdb.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
			logx.WithError(err).Debug("settings: cache write failed")
		}
	}
	return s, nil
}
