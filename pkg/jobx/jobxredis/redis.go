package jobxredis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/jobx"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue implements jobx.Queue backed by Redis.
//
// Every queue is split into one list per priority. A claimed job moves from
// its ready list into a processing sorted set, scored by its lease deadline,
// in a single script call. It stays there until it is completed or failed;
// RequeueStalled returns expired leases to the ready lists.
type RedisQueue struct {
	rdb           redis.UniversalClient
	visibility    time.Duration
	jobTTL        time.Duration
	claimInterval time.Duration
}

// Option configures a RedisQueue.
type Option func(*RedisQueue)

// WithVisibilityTimeout sets how long a worker may hold a job before it is
// considered stalled.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(q *RedisQueue) {
		if d > 0 {
			q.visibility = d
		}
	}
}

// WithJobTTL expires finished job records after d. Zero keeps them forever.
func WithJobTTL(d time.Duration) Option {
	return func(q *RedisQueue) { q.jobTTL = d }
}

// WithClaimInterval sets how often an idle Dequeue retries its claim.
func WithClaimInterval(d time.Duration) Option {
	return func(q *RedisQueue) {
		if d > 0 {
			q.claimInterval = d
		}
	}
}

// NewRedisQueue creates a new Redis-backed queue.
func NewRedisQueue(rdb redis.UniversalClient, opts ...Option) *RedisQueue {
	q := &RedisQueue{
		rdb:           rdb,
		visibility:    5 * time.Minute,
		jobTTL:        7 * 24 * time.Hour,
		claimInterval: 250 * time.Millisecond,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Key helpers
func queueKey(name string, p jobx.Priority) string {
	return fmt.Sprintf("jobx:queue:%s:%s", name, p)
}
func scheduledKey(name string, p jobx.Priority) string {
	return fmt.Sprintf("jobx:scheduled:%s:%s", name, p)
}
func processingKey(name string) string { return fmt.Sprintf("jobx:processing:%s", name) }
func jobKey(id string) string          { return fmt.Sprintf("jobx:job:%s", id) }

func newInfo(job jobx.Job) jobx.JobInfo {
	now := time.Now().UTC()
	return jobx.JobInfo{
		ID:         uuid.New().String(),
		Type:       job.Type,
		Queue:      job.Queue,
		Priority:   job.Priority.Normalize(),
		Payload:    job.Payload,
		Status:     jobx.JobStatusPending,
		MaxRetries: job.MaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Enqueue adds a job to the ready queue immediately.
func (q *RedisQueue) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	info := newInfo(job)

	data, err := json.Marshal(info)
	if err != nil {
		return "", redisErrors.NewWithCause(ErrMarshal, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, jobKey(info.ID), data, 0)
	pipe.LPush(ctx, queueKey(info.Queue, info.Priority), info.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrEnqueue, err).WithDetail("queue", job.Queue)
	}

	return info.ID, nil
}

// EnqueueDelayed adds a job to the scheduled set with a future execution time.
func (q *RedisQueue) EnqueueDelayed(ctx context.Context, job jobx.Job, delay time.Duration) (string, error) {
	info := newInfo(job)

	data, err := json.Marshal(info)
	if err != nil {
		return "", redisErrors.NewWithCause(ErrMarshal, err)
	}

	score := float64(info.CreatedAt.Add(delay).UnixMilli())

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, jobKey(info.ID), data, 0)
	pipe.ZAdd(ctx, scheduledKey(info.Queue, info.Priority), redis.Z{Score: score, Member: info.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrEnqueue, err).
			WithDetail("queue", job.Queue).
			WithDetail("delay", delay.String())
	}

	return info.ID, nil
}

// GetJob retrieves job info by ID.
func (q *RedisQueue) GetJob(ctx context.Context, jobID string) (*jobx.JobInfo, error) {
	data, err := q.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redisErrors.New(ErrNotFound).WithDetail("job_id", jobID)
		}
		return nil, redisErrors.NewWithCause(ErrGetJob, err).WithDetail("job_id", jobID)
	}

	var info jobx.JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", jobID)
	}

	return &info, nil
}

func (q *RedisQueue) save(ctx context.Context, info *jobx.JobInfo, ttl time.Duration) error {
	info.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(info)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", info.ID)
	}
	return q.rdb.Set(ctx, jobKey(info.ID), data, ttl).Err()
}

// claimScript pops the first ready job and records its lease in the same
// step, so a worker that dies between the two can never lose the job.
// KEYS holds the ready lists in claim order followed by the processing set
// of each, in the same order. It returns {id, index} or nil.
var claimScript = redis.NewScript(`
local n = #KEYS / 2
for i = 1, n do
    local id = redis.call('RPOP', KEYS[i])
    if id then
        redis.call('ZADD', KEYS[n + i], ARGV[1], id)
        return {id, i}
    end
end
return false
`)

// claimKeys lays out the script keys: every queue at high priority first,
// then normal, then low. names[i] is the queue behind ready list i.
func claimKeys(queues []string) (keys, names []string) {
	n := len(queues) * len(jobx.Priorities)
	keys = make([]string, 0, 2*n)
	names = make([]string, 0, n)
	for _, p := range jobx.Priorities {
		for _, name := range queues {
			keys = append(keys, queueKey(name, p))
			names = append(names, name)
		}
	}
	for _, name := range names {
		keys = append(keys, processingKey(name))
	}
	return keys, names
}

// Dequeue claims the most urgent ready job from queues, polling until one
// appears, timeout passes or ctx is done. A nil job with a nil error means
// nothing was available.
func (q *RedisQueue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*jobx.JobInfo, error) {
	keys, names := claimKeys(queues)
	deadline := time.Now().Add(timeout)

	for {
		lease := strconv.FormatInt(time.Now().Add(q.visibility).UnixMilli(), 10)
		res, err := claimScript.Run(ctx, q.rdb, keys, lease).Slice()
		switch {
		case err == nil:
			id, _ := res[0].(string)
			idx, _ := res[1].(int64)
			return q.activate(ctx, id, names[idx-1])
		case errors.Is(err, redis.Nil):
		case ctx.Err() != nil:
			return nil, nil
		default:
			return nil, redisErrors.NewWithCause(ErrDequeue, err)
		}

		wait := min(q.claimInterval, time.Until(deadline))
		if wait <= 0 {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(wait):
		}
	}
}

// activate marks a claimed job as running. A claim whose record has expired
// is dropped from the processing set.
func (q *RedisQueue) activate(ctx context.Context, jobID, queue string) (*jobx.JobInfo, error) {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		if errx.IsCode(err, ErrNotFound) {
			q.rdb.ZRem(ctx, processingKey(queue), jobID)
			logx.WithField(logx.KeyJobID, jobID).Warn("jobxredis: claimed job has no record, dropping")
		}
		return nil, err
	}

	info.Status = jobx.JobStatusActive
	info.Attempts++
	if err := q.save(ctx, info, 0); err != nil {
		return nil, redisErrors.NewWithCause(ErrDequeue, err).WithDetail("job_id", jobID)
	}
	return info, nil
}

// Complete marks a job as successfully completed and releases its lease.
func (q *RedisQueue) Complete(ctx context.Context, jobID string, result []byte) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	info.Status = jobx.JobStatusCompleted
	info.Result = result
	if err := q.save(ctx, info, q.jobTTL); err != nil {
		return redisErrors.NewWithCause(ErrComplete, err).WithDetail("job_id", jobID)
	}
	if err := q.rdb.ZRem(ctx, processingKey(info.Queue), jobID).Err(); err != nil {
		return redisErrors.NewWithCause(ErrComplete, err).WithDetail("job_id", jobID)
	}

	return nil
}

// Fail marks a job as failed and releases its lease. Returns true if the job
// should be retried.
func (q *RedisQueue) Fail(ctx context.Context, jobID string, errMsg string, terminal bool) (bool, error) {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}

	shouldRetry := !terminal && info.Attempts < info.MaxRetries

	ttl := time.Duration(0)
	if shouldRetry {
		info.Status = jobx.JobStatusRetrying
	} else {
		info.Status = jobx.JobStatusFailed
		ttl = q.jobTTL
	}
	info.Error = errMsg

	if err := q.save(ctx, info, ttl); err != nil {
		return false, redisErrors.NewWithCause(ErrFail, err).WithDetail("job_id", jobID)
	}
	if err := q.rdb.ZRem(ctx, processingKey(info.Queue), jobID).Err(); err != nil {
		return false, redisErrors.NewWithCause(ErrFail, err).WithDetail("job_id", jobID)
	}

	return shouldRetry, nil
}

// Retry re-enqueues a failed job with a delay.
func (q *RedisQueue) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	score := float64(time.Now().UTC().Add(delay).UnixMilli())

	if err := q.rdb.ZAdd(ctx, scheduledKey(info.Queue, info.Priority.Normalize()), redis.Z{
		Score:  score,
		Member: jobID,
	}).Err(); err != nil {
		return redisErrors.NewWithCause(ErrRetry, err).WithDetail("job_id", jobID)
	}

	return nil
}

// promoteScript moves due jobs from a scheduled set to its ready list atomically.
var promoteScript = redis.NewScript(`
local scheduled_key = KEYS[1]
local queue_key = KEYS[2]
local now = tonumber(ARGV[1])
local ids = redis.call('ZRANGEBYSCORE', scheduled_key, '-inf', now)
if #ids > 0 then
    for _, id in ipairs(ids) do
        redis.call('LPUSH', queue_key, id)
    end
    redis.call('ZREMRANGEBYSCORE', scheduled_key, '-inf', now)
end
return #ids
`)

// PromoteScheduled moves jobs whose scheduled time has passed to the ready queue.
func (q *RedisQueue) PromoteScheduled(ctx context.Context, queues []string) error {
	now := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)

	for _, name := range queues {
		for _, p := range jobx.Priorities {
			err := promoteScript.Run(ctx, q.rdb,
				[]string{scheduledKey(name, p), queueKey(name, p)},
				now,
			).Err()

			if err != nil && !errors.Is(err, redis.Nil) {
				return redisErrors.NewWithCause(ErrPromote, err).
					WithDetail("queue", name).
					WithDetail("priority", string(p))
			}
		}
	}

	return nil
}

// RequeueStalled returns jobs whose lease expired to their ready list. The
// ZREM result decides ownership so concurrent reapers never push a job twice.
func (q *RedisQueue) RequeueStalled(ctx context.Context, queues []string) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	requeued := 0

	for _, name := range queues {
		ids, err := q.rdb.ZRangeByScore(ctx, processingKey(name), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
		if err != nil {
			return requeued, redisErrors.NewWithCause(ErrRequeue, err).WithDetail("queue", name)
		}

		for _, id := range ids {
			removed, err := q.rdb.ZRem(ctx, processingKey(name), id).Result()
			if err != nil {
				return requeued, redisErrors.NewWithCause(ErrRequeue, err).WithDetail("job_id", id)
			}
			if removed == 0 {
				continue
			}

			info, err := q.GetJob(ctx, id)
			if err != nil {
				logx.WithError(err).Warnf("jobxredis: dropping stalled job %s", id)
				continue
			}
			info.Status = jobx.JobStatusPending
			if err := q.save(ctx, info, 0); err != nil {
				return requeued, redisErrors.NewWithCause(ErrRequeue, err).WithDetail("job_id", id)
			}
			if err := q.rdb.LPush(ctx, queueKey(name, info.Priority.Normalize()), id).Err(); err != nil {
				return requeued, redisErrors.NewWithCause(ErrRequeue, err).WithDetail("job_id", id)
			}
			requeued++
		}
	}

	return requeued, nil
}
