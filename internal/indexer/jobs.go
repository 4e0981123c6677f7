package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/logger"
	"github.com/dshills/smartsearch/internal/metrics"
	"github.com/dshills/smartsearch/pkg/types"
)

var (
	// ErrReindexInProgress is returned when a run of the same scope is already active
	ErrReindexInProgress = errors.New("reindex already in progress")
	// ErrJobNotFound is returned for unknown job ids
	ErrJobNotFound = errors.New("job not found")
	// ErrJobsClosed is returned after Close
	ErrJobsClosed = errors.New("job runner closed")
)

const (
	// DefaultPoolSize bounds concurrently running background jobs
	DefaultPoolSize = 2
	// DefaultHistory is how many finished jobs are remembered
	DefaultHistory = 50
)

// JobState is the lifecycle state of a background job
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobStatus is a point-in-time snapshot of a background reindex job
type JobStatus struct {
	ID         string     `json:"id"`
	Scope      string     `json:"scope"`
	State      JobState   `json:"state"`
	Indexed    int        `json:"indexed"`
	Failed     int        `json:"failed"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// JobsConfig configures the background job runner
type JobsConfig struct {
	PoolSize int
	History  int
	Logger   *zap.Logger
}

// Jobs runs reindex operations on a bounded worker pool
type Jobs struct {
	indexer *Indexer
	pool    *ants.Pool
	locks   scopeLocks
	logger  *zap.Logger
	history int

	mu     sync.RWMutex
	jobs   map[string]*JobStatus
	order  []string // creation order, oldest first
	closed bool
	wg     sync.WaitGroup
}

// NewJobs creates a job runner backed by idx
func NewJobs(idx *Indexer, cfg JobsConfig) (*Jobs, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.History <= 0 {
		cfg.History = DefaultHistory
	}

	pool, err := ants.NewPool(cfg.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create job pool: %w", err)
	}

	return &Jobs{
		indexer: idx,
		pool:    pool,
		locks:   newScopeLocks(),
		logger:  logger.OrNop(cfg.Logger),
		history: cfg.History,
		jobs:    make(map[string]*JobStatus),
	}, nil
}

// ReindexAll starts a background reindex of every entity type
func (j *Jobs) ReindexAll(ctx context.Context) (JobStatus, error) {
	return j.submit(ctx, ScopeAll, func(ctx context.Context) (int, int, error) {
		stats, err := j.indexer.IndexAll(ctx)
		if err != nil {
			return 0, 0, err
		}
		return stats.Indexed, stats.Failed, nil
	})
}

// ReindexType starts a background reindex of one entity type
func (j *Jobs) ReindexType(ctx context.Context, t types.EntityType) (JobStatus, error) {
	if !t.Valid() {
		return JobStatus{}, fmt.Errorf("%w: %s", types.ErrInvalidEntityType, t)
	}
	return j.submit(ctx, t.Scope(), func(ctx context.Context) (int, int, error) {
		stats, err := j.indexer.indexType(ctx, t)
		if err != nil {
			return 0, 0, err
		}
		return stats.Indexed, stats.Failed, nil
	})
}

// ReindexOne indexes a single entity synchronously
func (j *Jobs) ReindexOne(ctx context.Context, t types.EntityType, id int64) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %s", types.ErrInvalidEntityType, t)
	}
	return j.indexer.IndexByID(ctx, t, id)
}

// Status returns a snapshot of one job
func (j *Jobs) Status(id string) (JobStatus, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	job, ok := j.jobs[id]
	if !ok {
		return JobStatus{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *job, nil
}

// List returns snapshots of all remembered jobs, newest first
func (j *Jobs) List() []JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]JobStatus, 0, len(j.order))
	for i := len(j.order) - 1; i >= 0; i-- {
		out = append(out, *j.jobs[j.order[i]])
	}
	return out
}

// Running reports whether a job of the given scope is active
func (j *Jobs) Running(scope string) bool {
	lock, ok := j.locks[scope]
	return ok && lock.Held()
}

// Close stops accepting jobs and waits for running ones to finish
func (j *Jobs) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	j.wg.Wait()
	j.pool.Release()
	return nil
}

type jobFunc func(ctx context.Context) (indexed, failed int, err error)

func (j *Jobs) submit(ctx context.Context, scope string, fn jobFunc) (JobStatus, error) {
	lock := j.locks[scope]
	if !lock.TryAcquire() {
		return JobStatus{}, fmt.Errorf("%w: %s", ErrReindexInProgress, scope)
	}

	job := &JobStatus{
		ID:        uuid.NewString(),
		Scope:     scope,
		State:     JobPending,
		CreatedAt: time.Now().UTC(),
	}

	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		lock.Release()
		return JobStatus{}, ErrJobsClosed
	}
	j.remember(job)
	j.wg.Add(1)
	snapshot := *job
	j.mu.Unlock()

	// Jobs outlive the request that started them
	jobCtx := context.WithoutCancel(ctx)

	err := j.pool.Submit(func() {
		defer j.wg.Done()
		defer lock.Release()
		j.run(jobCtx, job.ID, fn)
	})
	if err != nil {
		j.wg.Done()
		lock.Release()
		j.finish(job.ID, 0, 0, err)
		if errors.Is(err, ants.ErrPoolOverload) {
			return JobStatus{}, fmt.Errorf("%w: worker pool is busy", ErrReindexInProgress)
		}
		return JobStatus{}, fmt.Errorf("failed to submit reindex job: %w", err)
	}

	j.logger.Info("reindex job submitted", zap.String("job_id", job.ID), zap.String("scope", scope))
	return snapshot, nil
}

func (j *Jobs) run(ctx context.Context, id string, fn jobFunc) {
	start := time.Now().UTC()
	j.mu.Lock()
	job := j.jobs[id]
	job.State = JobRunning
	job.StartedAt = &start
	scope := job.Scope
	j.mu.Unlock()

	j.logger.Info("reindex job started", zap.String("job_id", id), zap.String("scope", scope))

	indexed, failed, err := fn(ctx)
	state := j.finish(id, indexed, failed, err)

	metrics.ReindexJobDuration.WithLabelValues(scope, string(state)).Observe(time.Since(start).Seconds())
	if err != nil {
		j.logger.Error("reindex job failed", zap.String("job_id", id), zap.String("scope", scope), zap.Error(err))
		return
	}
	j.logger.Info("reindex job completed",
		zap.String("job_id", id),
		zap.String("scope", scope),
		zap.Int("indexed", indexed),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
}

func (j *Jobs) finish(id string, indexed, failed int, err error) JobState {
	now := time.Now().UTC()

	j.mu.Lock()
	defer j.mu.Unlock()

	job := j.jobs[id]
	job.Indexed = indexed
	job.Failed = failed
	job.FinishedAt = &now
	job.State = JobCompleted
	if err != nil {
		job.State = JobFailed
		job.Error = err.Error()
	}
	return job.State
}

// remember stores job and evicts the oldest finished jobs past the history
// limit. Caller holds j.mu.
func (j *Jobs) remember(job *JobStatus) {
	j.jobs[job.ID] = job
	j.order = append(j.order, job.ID)

	for len(j.order) > j.history {
		evicted := false
		for i, id := range j.order {
			if s := j.jobs[id].State; s == JobCompleted || s == JobFailed {
				delete(j.jobs, id)
				j.order = append(j.order[:i], j.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}
