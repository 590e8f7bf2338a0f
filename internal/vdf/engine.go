package vdf

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zmlAEQ/airlock-core/pkg/logger"
	"github.com/zmlAEQ/airlock-core/pkg/metrics"
)

// Status is a VDF job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusComputing Status = "computing"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
	StatusBypassed  Status = "bypassed"
)

// JobID identifies one VDF evaluation.
type JobID string

// Job is one in-flight or completed VDF evaluation.
type Job struct {
	ID        JobID
	Challenge []byte
	T         uint64

	mu       sync.Mutex
	status   Status
	progress uint64
	proof    Proof
	err      error

	startedAt time.Time
	done      chan struct{}
	bypass    chan struct{}
	bypassed  sync.Once
}

func newJob(challenge []byte, T uint64) *Job {
	return &Job{
		ID:        JobID(uuid.NewString()),
		Challenge: challenge,
		T:         T,
		status:    StatusPending,
		done:      make(chan struct{}),
		bypass:    make(chan struct{}),
	}
}

// Snapshot is a point-in-time read of a job's state.
type Snapshot struct {
	ID       JobID
	Status   Status
	Progress uint64
	T        uint64
	Proof    Proof
	Err      error
}

func (j *Job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{ID: j.ID, Status: j.status, Progress: j.progress, T: j.T, Proof: j.proof, Err: j.err}
}

func (j *Job) finish(status Status, proof Proof, err error) {
	j.mu.Lock()
	if j.status == StatusReady || j.status == StatusFailed || j.status == StatusBypassed {
		j.mu.Unlock()
		return
	}
	j.status = status
	j.proof = proof
	j.err = err
	j.mu.Unlock()
	close(j.done)
}

// Limiter bounds the number of VDF jobs computing concurrently: an atomic
// counter with a hard cap, refused admissions counted as a metric rather
// than surfaced as an error type.
type Limiter struct {
	max  int64
	open int64
}

// NewLimiter returns a Limiter admitting at most max concurrent jobs. max<=0
// disables the limit.
func NewLimiter(max int64) *Limiter { return &Limiter{max: max} }

// TryOpen attempts to admit one job, returning false if the limiter is at
// capacity.
func (l *Limiter) TryOpen() bool {
	if l == nil || l.max <= 0 {
		return true
	}
	for {
		o := atomic.LoadInt64(&l.open)
		if o >= l.max {
			metrics.Inc("vdf_rate_limited_total", nil)
			return false
		}
		if atomic.CompareAndSwapInt64(&l.open, o, o+1) {
			metrics.AddGauge("vdf_jobs_open", nil, 1)
			return true
		}
	}
}

// Close releases one admitted slot.
func (l *Limiter) Close() {
	if l == nil || l.max <= 0 {
		return
	}
	for {
		o := atomic.LoadInt64(&l.open)
		if o <= 0 {
			return
		}
		if atomic.CompareAndSwapInt64(&l.open, o, o-1) {
			metrics.AddGauge("vdf_jobs_open", nil, -1)
			return
		}
	}
}

// Engine runs VDF jobs against a shared Wesolowski instance, checkpointing
// progress and honoring per-job bypass requests.
type Engine struct {
	w             *Wesolowski
	limiter       *Limiter
	checkpointEvery uint64

	mu   sync.Mutex
	jobs map[JobID]*Job
}

// NewEngine builds an Engine. maxConcurrent bounds simultaneously-computing
// jobs (admission control); checkpointEvery is the squaring interval at
// which a job checks for cancellation or bypass.
func NewEngine(w *Wesolowski, maxConcurrent int64, checkpointEvery uint64) *Engine {
	if checkpointEvery == 0 {
		checkpointEvery = 4096
	}
	return &Engine{
		w:               w,
		limiter:         NewLimiter(maxConcurrent),
		checkpointEvery: checkpointEvery,
		jobs:            make(map[JobID]*Job),
	}
}

// ErrRateLimited is returned by Request when the engine is at its
// concurrent-job capacity.
var ErrRateLimited = newSentinel("vdf: rate limited, try again later")

type sentinelErr string

func newSentinel(s string) error       { return sentinelErr(s) }
func (e sentinelErr) Error() string    { return string(e) }

// Request admits a new job for challenge, evaluated over T squarings, and
// starts it on its own goroutine. It returns immediately with the job's ID.
func (e *Engine) Request(ctx context.Context, challenge []byte, T uint64) (JobID, error) {
	if len(challenge) == 0 {
		return "", ErrNilChallenge
	}
	if T == 0 {
		return "", ErrZeroIterations
	}
	if !e.limiter.TryOpen() {
		return "", ErrRateLimited
	}

	j := newJob(challenge, T)
	e.mu.Lock()
	e.jobs[j.ID] = j
	e.mu.Unlock()

	go e.run(ctx, j)

	return j.ID, nil
}

func (e *Engine) run(ctx context.Context, j *Job) {
	defer e.limiter.Close()

	j.mu.Lock()
	j.status = StatusComputing
	j.startedAt = time.Now()
	j.mu.Unlock()
	metrics.AddGauge("vdf_jobs_computing", nil, 1)
	defer metrics.AddGauge("vdf_jobs_computing", nil, -1)

	logger.InfoJ("vdf_job", map[string]any{"event": "start", "job_id": string(j.ID), "iterations": j.T})

	start := time.Now()
	progress := func(done uint64) bool {
		j.mu.Lock()
		j.progress = done
		j.mu.Unlock()
		select {
		case <-j.bypass:
			return true
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	proof, bypassed, err := e.w.Evaluate(j.Challenge, j.T, e.checkpointEvery, progress)
	durMs := float64(time.Since(start).Milliseconds())
	metrics.ObserveSummary("vdf_job_duration_ms", nil, durMs)

	switch {
	case err != nil:
		metrics.Inc("vdf_jobs_total", map[string]string{"result": "failed"})
		logger.ErrorJ("vdf_job", map[string]any{"event": "failed", "job_id": string(j.ID), "error": err.Error()})
		j.finish(StatusFailed, Proof{}, err)
	case bypassed:
		metrics.Inc("vdf_jobs_total", map[string]string{"result": "bypassed"})
		logger.InfoJ("vdf_job", map[string]any{"event": "bypassed", "job_id": string(j.ID)})
		j.finish(StatusBypassed, ZeroProof(), nil)
	default:
		metrics.Inc("vdf_jobs_total", map[string]string{"result": "ready"})
		logger.InfoJ("vdf_job", map[string]any{"event": "ready", "job_id": string(j.ID), "duration_ms": durMs})
		j.finish(StatusReady, proof, nil)
	}
}

// Poll returns the current snapshot of a job, or ok=false if unknown.
func (e *Engine) Poll(id JobID) (Snapshot, bool) {
	e.mu.Lock()
	j, ok := e.jobs[id]
	e.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return j.snapshot(), true
}

// Await blocks until the job reaches a terminal state or ctx is done.
func (e *Engine) Await(ctx context.Context, id JobID) (Snapshot, error) {
	e.mu.Lock()
	j, ok := e.jobs[id]
	e.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrUnknownJob
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}

// Bypass requests early termination of a running job with a zero-proof
// result. It is idempotent: repeated calls on the same job are no-ops.
func (e *Engine) Bypass(id JobID) error {
	e.mu.Lock()
	j, ok := e.jobs[id]
	e.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	j.bypassed.Do(func() { close(j.bypass) })
	return nil
}

// Verify checks a proof against the engine's modulus without reference to
// any job.
func (e *Engine) Verify(p Proof) bool { return e.w.Verify(p) }

// ErrUnknownJob is returned for operations against a JobID the engine has
// never issued.
var ErrUnknownJob = newSentinel("vdf: unknown job id")
