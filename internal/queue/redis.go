package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
	apperrors "github.com/pratik-mahalle/ratewatch/internal/pkg/errors"
)

// finishedTTL is how long a completed or failed job body is kept
const finishedTTL = 24 * time.Hour

// maxTxRetries bounds optimistic retries when a watched job changes mid-update
const maxTxRetries = 5

// errSkipUpdate aborts an update without writing
var errSkipUpdate = errors.New("skip update")

// RedisQueue is a durable job.Queue backed by Redis.
//
// Layout under the key prefix:
//
//	job:<id>   JSON job body
//	waiting    list of ready job IDs, FIFO
//	delayed    sorted set of job IDs scored by due time (unix ms)
//	active     set of claimed job IDs
//	completed  sorted set of finished job IDs scored by finish time
//	failed     sorted set of failed job IDs scored by finish time
type RedisQueue struct {
	client *redis.Client
	prefix string
	clock  clock.Clock

	// afterLoad runs between reading a watched job and writing it back
	afterLoad func(ctx context.Context, id string)
}

// NewRedisQueue creates a queue using client. prefix namespaces every key.
func NewRedisQueue(client *redis.Client, prefix string, clk clock.Clock) *RedisQueue {
	if prefix == "" {
		prefix = "ratewatch:queue"
	}
	return &RedisQueue{client: client, prefix: prefix, clock: clk}
}

func (q *RedisQueue) key(parts ...string) string {
	k := q.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (q *RedisQueue) jobKey(id string) string {
	return q.key("job", id)
}

func (q *RedisQueue) stateKey(s job.State) string {
	return q.key(string(s))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (q *RedisQueue) load(ctx context.Context, id string) (*job.Job, error) {
	return q.loadFrom(ctx, q.client, id)
}

func (q *RedisQueue) loadFrom(ctx context.Context, c getter, id string) (*job.Job, error) {
	data, err := c.Get(ctx, q.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.QueueError("failed to load job", err)
	}

	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, apperrors.QueueError("failed to decode job", err)
	}
	return &j, nil
}

func (q *RedisQueue) save(ctx context.Context, pipe redis.Pipeliner, j *job.Job, ttl time.Duration) error {
	data, err := json.Marshal(j)
	if err != nil {
		return apperrors.QueueError("failed to encode job", err)
	}
	pipe.Set(ctx, q.jobKey(j.ID), data, ttl)
	return nil
}

// update loads a job under WATCH and writes it back through fn in one
// transaction. A job removed concurrently aborts the transaction and the
// load is retried, so a removed job is never written back. It returns the
// updated job, or nil when the job is gone or fn returned errSkipUpdate.
func (q *RedisQueue) update(ctx context.Context, id string, fn func(j *job.Job, pipe redis.Pipeliner) error) (*job.Job, error) {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var updated *job.Job
		err := q.client.Watch(ctx, func(tx *redis.Tx) error {
			j, err := q.loadFrom(ctx, tx, id)
			if err != nil || j == nil {
				return err
			}
			if q.afterLoad != nil {
				q.afterLoad(ctx, id)
			}
			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				return fn(j, pipe)
			}); err != nil {
				return err
			}
			updated = j
			return nil
		}, q.jobKey(id))

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, errSkipUpdate):
			return nil, nil
		case err != nil:
			return nil, err
		}
		return updated, nil
	}
	return nil, redis.TxFailedErr
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Enqueue adds a job. An existing pending job with the same ID is returned
// instead of creating a duplicate.
func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload job.ScheduledJob, opts job.EnqueueOptions) (*job.Job, error) {
	id := opts.JobID
	if id == "" {
		id = uuid.New().String()
	} else {
		existing, err := q.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil && !existing.State.IsTerminal() {
			return existing, nil
		}
	}

	now := q.clock.Now()
	j := &job.Job{
		ID:        id,
		Name:      name,
		Payload:   payload,
		State:     job.StateWaiting,
		DueAt:     now,
		CreatedAt: now,
	}
	if opts.Delay > 0 {
		j.State = job.StateDelayed
		j.DueAt = now.Add(opts.Delay)
	}

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := q.save(ctx, pipe, j, 0); err != nil {
			return err
		}
		pipe.ZRem(ctx, q.stateKey(job.StateCompleted), id)
		pipe.ZRem(ctx, q.stateKey(job.StateFailed), id)
		if j.State == job.StateDelayed {
			pipe.ZAdd(ctx, q.stateKey(job.StateDelayed), redis.Z{Score: score(j.DueAt), Member: id})
		} else {
			pipe.RPush(ctx, q.stateKey(job.StateWaiting), id)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.QueueError("failed to enqueue job", err)
	}
	return j, nil
}

func (q *RedisQueue) idsIn(ctx context.Context, s job.State) ([]string, error) {
	switch s {
	case job.StateWaiting:
		return q.client.LRange(ctx, q.stateKey(s), 0, -1).Result()
	case job.StateActive:
		return q.client.SMembers(ctx, q.stateKey(s)).Result()
	default:
		return q.client.ZRange(ctx, q.stateKey(s), 0, -1).Result()
	}
}

// ListJobs returns the jobs in any of states. No states means all states.
func (q *RedisQueue) ListJobs(ctx context.Context, states ...job.State) ([]*job.Job, error) {
	if len(states) == 0 {
		states = []job.State{job.StateWaiting, job.StateDelayed, job.StateActive, job.StateCompleted, job.StateFailed}
	}

	seen := make(map[string]bool)
	var out []*job.Job
	for _, s := range states {
		ids, err := q.idsIn(ctx, s)
		if err != nil {
			return nil, apperrors.QueueError("failed to list jobs", err)
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			j, err := q.load(ctx, id)
			if err != nil {
				return nil, err
			}
			if j != nil {
				out = append(out, j)
			}
		}
	}
	return out, nil
}

// RemoveJob deletes a job from every structure it may appear in
func (q *RedisQueue) RemoveJob(ctx context.Context, j *job.Job) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, q.jobKey(j.ID))
		pipe.LRem(ctx, q.stateKey(job.StateWaiting), 0, j.ID)
		pipe.ZRem(ctx, q.stateKey(job.StateDelayed), j.ID)
		pipe.SRem(ctx, q.stateKey(job.StateActive), j.ID)
		pipe.ZRem(ctx, q.stateKey(job.StateCompleted), j.ID)
		pipe.ZRem(ctx, q.stateKey(job.StateFailed), j.ID)
		return nil
	})
	if err != nil {
		return apperrors.QueueError("failed to remove job", err)
	}
	return nil
}

// promote moves due delayed jobs onto the waiting list
func (q *RedisQueue) promote(ctx context.Context, now time.Time) error {
	ids, err := q.client.ZRangeByScore(ctx, q.stateKey(job.StateDelayed), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatFloat(score(now), 'f', 0, 64),
	}).Result()
	if err != nil {
		return err
	}

	for _, id := range ids {
		// ZRem returning zero means another consumer promoted it first
		n, err := q.client.ZRem(ctx, q.stateKey(job.StateDelayed), id).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if _, err := q.update(ctx, id, func(j *job.Job, pipe redis.Pipeliner) error {
			j.State = job.StateWaiting
			if err := q.save(ctx, pipe, j, 0); err != nil {
				return err
			}
			pipe.RPush(ctx, q.stateKey(job.StateWaiting), id)
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// Claim promotes due delayed jobs and pops the next waiting job
func (q *RedisQueue) Claim(ctx context.Context) (*job.Job, error) {
	now := q.clock.Now()
	if err := q.promote(ctx, now); err != nil {
		return nil, apperrors.QueueError("failed to promote delayed jobs", err)
	}

	for {
		id, err := q.client.LPop(ctx, q.stateKey(job.StateWaiting)).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, apperrors.QueueError("failed to claim job", err)
		}

		j, err := q.update(ctx, id, func(j *job.Job, pipe redis.Pipeliner) error {
			started := now
			j.State = job.StateActive
			j.Attempts++
			j.StartedAt = &started
			if err := q.save(ctx, pipe, j, 0); err != nil {
				return err
			}
			pipe.SAdd(ctx, q.stateKey(job.StateActive), id)
			return nil
		})
		if err != nil {
			return nil, apperrors.QueueError("failed to activate job", err)
		}
		if j == nil {
			// removed after it was listed
			continue
		}
		return j, nil
	}
}

// Complete marks an active job completed. A job removed while running is ignored.
func (q *RedisQueue) Complete(ctx context.Context, j *job.Job, result *job.JobResult) error {
	return q.finish(ctx, j.ID, job.StateCompleted, result, "")
}

// Fail marks an active job failed. A job removed while running is ignored.
func (q *RedisQueue) Fail(ctx context.Context, j *job.Job, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return q.finish(ctx, j.ID, job.StateFailed, nil, msg)
}

func (q *RedisQueue) finish(ctx context.Context, id string, state job.State, result *job.JobResult, msg string) error {
	now := q.clock.Now()
	_, err := q.update(ctx, id, func(stored *job.Job, pipe redis.Pipeliner) error {
		if stored.State != job.StateActive {
			return errSkipUpdate
		}
		stored.State = state
		stored.Result = result
		stored.Error = msg
		stored.FinishedAt = &now

		if err := q.save(ctx, pipe, stored, finishedTTL); err != nil {
			return err
		}
		pipe.SRem(ctx, q.stateKey(job.StateActive), id)
		pipe.ZAdd(ctx, q.stateKey(state), redis.Z{Score: score(now), Member: id})
		pipe.ZRemRangeByRank(ctx, q.stateKey(state), 0, -finishedRetention-1)
		return nil
	})
	if err != nil {
		return apperrors.QueueError("failed to finish job", err)
	}
	return nil
}

// PingContext checks the Redis connection
func (q *RedisQueue) PingContext(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
