package campaigninfra

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
)

const lockKeyPrefix = "placement:campaign:lock:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker leases campaigns with SET NX PX. The TTL frees a lock whose
// holder crashed.
type RedisLocker struct {
	rdb redis.UniversalClient
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, id kernel.CampaignID, ttl time.Duration) (campaign.Lease, error) {
	key := lockKeyPrefix + id.String()
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, campaign.ErrRegistry.NewWithCause(campaign.CodeLockFailure, err).WithDetail("campaign_id", id)
	}
	if !ok {
		return nil, campaign.ErrAlreadySending(id)
	}
	return &redisLease{rdb: l.rdb, key: key, token: token}, nil
}

type redisLease struct {
	rdb   redis.UniversalClient
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil {
		return campaign.ErrRegistry.NewWithCause(campaign.CodeLockFailure, err).WithDetail("key", l.key)
	}
	return nil
}
