// Package queue provides implementations of job.Queue.
package queue

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/clock"
)

// finishedRetention bounds how many completed or failed jobs are kept
const finishedRetention = 1000

// MemoryQueue is an in-process job.Queue. Jobs do not survive a restart.
type MemoryQueue struct {
	clock clock.Clock

	mu       sync.Mutex
	jobs     map[string]*job.Job
	seq      map[string]int64
	next     int64
	finished []string
}

// NewMemoryQueue creates an empty in-memory queue
func NewMemoryQueue(clk clock.Clock) *MemoryQueue {
	return &MemoryQueue{
		clock: clk,
		jobs:  make(map[string]*job.Job),
		seq:   make(map[string]int64),
	}
}

// Enqueue adds a job. An existing pending job with the same ID is returned
// instead of creating a duplicate.
func (q *MemoryQueue) Enqueue(ctx context.Context, name string, payload job.ScheduledJob, opts job.EnqueueOptions) (*job.Job, error) {
	now := q.clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	id := opts.JobID
	if id == "" {
		id = uuid.New().String()
	}
	if existing, ok := q.jobs[id]; ok && !existing.State.IsTerminal() {
		c := *existing
		return &c, nil
	}

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

	q.jobs[id] = j
	q.next++
	q.seq[id] = q.next

	c := *j
	return &c, nil
}

// ListJobs returns copies of the jobs in any of states, oldest first. No
// states means all jobs.
func (q *MemoryQueue) ListJobs(ctx context.Context, states ...job.State) ([]*job.Job, error) {
	want := make(map[job.State]bool, len(states))
	for _, s := range states {
		want[s] = true
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*job.Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		if len(want) > 0 && !want[j.State] {
			continue
		}
		c := *j
		out = append(out, &c)
	}
	sort.Slice(out, func(a, b int) bool {
		return q.seq[out[a].ID] < q.seq[out[b].ID]
	})
	return out, nil
}

// RemoveJob deletes a job in any state
func (q *MemoryQueue) RemoveJob(ctx context.Context, j *job.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.jobs, j.ID)
	delete(q.seq, j.ID)
	return nil
}

// Claim promotes delayed jobs that are due and hands out the oldest ready job
func (q *MemoryQueue) Claim(ctx context.Context) (*job.Job, error) {
	now := q.clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	var next *job.Job
	for _, j := range q.jobs {
		if j.State == job.StateDelayed && !j.DueAt.After(now) {
			j.State = job.StateWaiting
		}
		if j.State != job.StateWaiting {
			continue
		}
		if next == nil || q.before(j, next) {
			next = j
		}
	}
	if next == nil {
		return nil, nil
	}

	started := now
	next.State = job.StateActive
	next.Attempts++
	next.StartedAt = &started

	c := *next
	return &c, nil
}

func (q *MemoryQueue) before(a, b *job.Job) bool {
	if !a.DueAt.Equal(b.DueAt) {
		return a.DueAt.Before(b.DueAt)
	}
	return q.seq[a.ID] < q.seq[b.ID]
}

// Complete marks an active job completed. A job removed while running is ignored.
func (q *MemoryQueue) Complete(ctx context.Context, j *job.Job, result *job.JobResult) error {
	q.finish(j.ID, job.StateCompleted, result, "")
	return nil
}

// Fail marks an active job failed. A job removed while running is ignored.
func (q *MemoryQueue) Fail(ctx context.Context, j *job.Job, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	q.finish(j.ID, job.StateFailed, nil, msg)
	return nil
}

func (q *MemoryQueue) finish(id string, state job.State, result *job.JobResult, msg string) {
	now := q.clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	stored, ok := q.jobs[id]
	if !ok || stored.State != job.StateActive {
		return
	}
	stored.State = state
	stored.Result = result
	stored.Error = msg
	stored.FinishedAt = &now

	q.finished = append(q.finished, id)
	for len(q.finished) > finishedRetention {
		old := q.finished[0]
		q.finished = q.finished[1:]
		if j, ok := q.jobs[old]; ok && j.State.IsTerminal() {
			delete(q.jobs, old)
			delete(q.seq, old)
		}
	}
}
