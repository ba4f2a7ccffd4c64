package jobxredis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/placement/pkg/errx"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestClaimKeys_PriorityThenQueueWithMatchingProcessingSets(t *testing.T) {
	keys, names := claimKeys([]string{"notifications", "campaigns"})

	assert.Equal(t, []string{
		"jobx:queue:notifications:high",
		"jobx:queue:campaigns:high",
		"jobx:queue:notifications:normal",
		"jobx:queue:campaigns:normal",
		"jobx:queue:notifications:low",
		"jobx:queue:campaigns:low",
		"jobx:processing:notifications",
		"jobx:processing:campaigns",
		"jobx:processing:notifications",
		"jobx:processing:campaigns",
		"jobx:processing:notifications",
		"jobx:processing:campaigns",
	}, keys)
	require.Len(t, names, 6)
	n := len(names)
	for i, name := range names {
		assert.Equal(t, processingKey(name), keys[n+i], "ready list %s", keys[i])
	}
}

func TestDequeue_UnreachableServer(t *testing.T) {
	q := NewRedisQueue(unreachableClient(t))

	job, err := q.Dequeue(context.Background(), []string{"notifications"}, time.Second)

	assert.Nil(t, job)
	assert.True(t, errx.IsCode(err, ErrDequeue))
}

func TestDequeue_CancelledContextIsNotAnError(t *testing.T) {
	q := NewRedisQueue(unreachableClient(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job, err := q.Dequeue(ctx, []string{"notifications"}, time.Second)

	assert.Nil(t, job)
	assert.NoError(t, err)
}
