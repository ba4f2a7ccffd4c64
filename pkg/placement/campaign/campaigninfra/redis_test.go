package campaigninfra

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/placement/campaign"
)

func TestRedisLocker_UnreachableServer(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })

	locker := NewRedisLocker(rdb)
	lease, err := locker.Acquire(context.Background(), "c1", time.Minute)
	require.Error(t, err)
	assert.Nil(t, lease)
	assert.True(t, errx.IsCode(err, campaign.CodeLockFailure))
	assert.False(t, errx.IsCode(err, campaign.CodeAlreadySending))
}
