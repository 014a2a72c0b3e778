package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sjperalta/fintera-ledger/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker manages background jobs and scheduled tasks
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	asyncWG       sync.WaitGroup
	asyncSem      chan struct{}
	maxConcurrent int
	stats         WorkerStats
	byName        map[string]*JobStats
	statsMu       sync.RWMutex
}

// WorkerStats holds statistics about the worker.
// CompletedJobs counts every finished job; FailedJobs is the failing subset.
type WorkerStats struct {
	ActiveJobs    int   `json:"active_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	MaxConcurrent int   `json:"max_concurrent"`

	Jobs map[string]JobStats `json:"jobs,omitempty"`
}

// JobStats is the per-name history of a job, e.g. "auto_post" or "balance_resync"
type JobStats struct {
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// NewWorker creates a worker allowing 2x numWorkers concurrent async jobs (at least 10)
func NewWorker(numWorkers int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	return &Worker{
		ctx:           ctx,
		cancel:        cancel,
		asyncSem:      make(chan struct{}, asyncLimit),
		maxConcurrent: asyncLimit,
		byName:        make(map[string]*JobStats),
	}
}

// EnqueueAsync runs a job in a new goroutine (fire-and-forget), bounded by semaphore.
// Failures and panics are logged and counted, never returned.
func (w *Worker) EnqueueAsync(name string, job Job) {
	w.asyncWG.Add(1)
	go func() {
		defer w.asyncWG.Done()

		select {
		case w.asyncSem <- struct{}{}:
		case <-w.ctx.Done():
			return
		}
		defer func() { <-w.asyncSem }()

		w.run("async", name, job)
	}()
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after the interval (not at startup).
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, false, job)
}

// ScheduleEveryImmediate runs a job once at startup, then at fixed intervals
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, true, job)
}

func (w *Worker) schedule(name string, interval time.Duration, immediate bool, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if immediate {
			w.run("scheduler", name, job)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run("scheduler", name, job)
			}
		}
	}()
}

func (w *Worker) run(kind, name string, job Job) {
	start := time.Now()
	w.trackJobStart()

	var err error
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Worker] Job panic", "kind", kind, "job", name, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
		w.trackJobEnd(name, start, err)
	}()

	if err = job(w.ctx); err != nil {
		logger.Error("[Worker] Job error", "kind", kind, "job", name, "error", err)
		return
	}
	logger.Debug("[Worker] Job completed", "kind", kind, "job", name, "elapsed", time.Since(start))
}

// Wait blocks until every async job enqueued so far has finished
func (w *Worker) Wait() {
	w.asyncWG.Wait()
}

// Shutdown stops scheduled jobs and waits for running ones
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
	w.asyncWG.Wait()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.MaxConcurrent = w.maxConcurrent
	if len(w.byName) > 0 {
		stats.Jobs = make(map[string]JobStats, len(w.byName))
		for name, js := range w.byName {
			stats.Jobs[name] = *js
		}
	}
	return stats
}

// JobStats returns the history of the named job
func (w *Worker) JobStats(name string) (JobStats, bool) {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	js, ok := w.byName[name]
	if !ok {
		return JobStats{}, false
	}
	return *js, true
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

func (w *Worker) trackJobEnd(name string, start time.Time, err error) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++

	js, ok := w.byName[name]
	if !ok {
		js = &JobStats{}
		w.byName[name] = js
	}
	js.Runs++
	js.LastRun = start
	js.LastError = ""
	if err != nil {
		w.stats.FailedJobs++
		js.Failures++
		js.LastError = err.Error()
	}
}
