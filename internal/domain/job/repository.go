package job

import (
	"context"
	"time"
)

// EnqueueOptions controls how a job is placed on the queue
type EnqueueOptions struct {
	// Delay postpones the job; zero means ready now
	Delay time.Duration
	// JobID deduplicates: enqueuing an ID that is still pending returns the existing job
	JobID string
}

// Queue is the job queue substrate shared by the scheduler and the worker pool
type Queue interface {
	// Enqueue places a job on the queue
	Enqueue(ctx context.Context, name string, payload ScheduledJob, opts EnqueueOptions) (*Job, error)

	// ListJobs returns jobs in any of the given states
	ListJobs(ctx context.Context, states ...State) ([]*Job, error)

	// RemoveJob deletes a job regardless of its state; removing a missing job is not an error
	RemoveJob(ctx context.Context, j *Job) error

	// Claim moves the next ready job to active and returns it, or nil when none is ready
	Claim(ctx context.Context) (*Job, error)

	// Complete marks an active job as completed
	Complete(ctx context.Context, j *Job, result *JobResult) error

	// Fail marks an active job as failed
	Fail(ctx context.Context, j *Job, cause error) error
}
