package compositor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/koios/screenframe/pkg/models"
)

// poolJob wraps a composition request with its caller context and result
// channel.
type poolJob struct {
	ctx    context.Context
	job    *Job
	result chan *poolResult
}

// poolResult contains the outcome of one composition job.
type poolResult struct {
	Output []byte
	Error  error
}

// WorkerPool bounds concurrent compositions so parallel locale batches do not
// oversubscribe the raster capability.
type WorkerPool struct {
	workers  int
	jobQueue chan *poolJob
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	engine   Engine
	timeout  time.Duration
}

// NewWorkerPool creates a pool driving the given engine with the specified
// number of workers.
func NewWorkerPool(workers int, engine Engine, timeout time.Duration, logger *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 4 // default to 4 workers
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan *poolJob, workers*2), // buffer for 2x workers
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		engine:   engine,
		timeout:  timeout,
	}
}

// Start launches all worker goroutines
func (wp *WorkerPool) Start() {
	wp.logger.Info("Starting composition worker pool",
		zap.Int("workers", wp.workers),
		zap.Int("queue_size", cap(wp.jobQueue)))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop gracefully shuts down the worker pool
func (wp *WorkerPool) Stop() {
	wp.logger.Info("Stopping composition worker pool")
	wp.cancel()
	close(wp.jobQueue)
	wp.wg.Wait()
	wp.logger.Info("Composition worker pool stopped")
}

// Submit queues a composition job and blocks until its result is available or
// the caller's context is cancelled.
func (wp *WorkerPool) Submit(ctx context.Context, job *Job) ([]byte, error) {
	resultChan := make(chan *poolResult, 1)

	pj := &poolJob{ctx: ctx, job: job, result: resultChan}

	select {
	case wp.jobQueue <- pj:
		// Job submitted
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wp.ctx.Done():
		return nil, fmt.Errorf("worker pool is shutting down")
	}

	select {
	case result := <-resultChan:
		return result.Output, result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wp.ctx.Done():
		return nil, fmt.Errorf("worker pool is shutting down")
	}
}

// worker is the main loop for a single worker
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug("Composition worker started", zap.Int("worker_id", id))

	for {
		select {
		case pj, ok := <-wp.jobQueue:
			if !ok {
				wp.logger.Debug("Composition worker stopping (queue closed)", zap.Int("worker_id", id))
				return
			}
			wp.processJob(id, pj)
		case <-wp.ctx.Done():
			wp.logger.Debug("Composition worker stopping (context cancelled)", zap.Int("worker_id", id))
			return
		}
	}
}

// processJob handles a single composition job under the pool's per-job
// timeout. A deadline hit counts as a composition failure, never a success.
func (wp *WorkerPool) processJob(workerID int, pj *poolJob) {
	wp.logger.Debug("Worker processing job",
		zap.Int("worker_id", workerID),
		zap.String("input", pj.job.InputPath))

	ctx, cancel := context.WithTimeout(pj.ctx, wp.timeout)
	output, err := wp.engine.Compose(ctx, pj.job)
	// Read the deadline state before cancel(), which rewrites Err() to
	// context.Canceled and would misclassify a clean success.
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	cancel()

	if err == nil && timedOut {
		err = models.WrapErr(models.ErrorKindComposition, pj.job.InputPath, context.DeadlineExceeded)
		output = nil
	}

	pj.result <- &poolResult{Output: output, Error: err}
	close(pj.result)

	if err != nil {
		wp.logger.Debug("Worker completed job with error",
			zap.Int("worker_id", workerID),
			zap.String("input", pj.job.InputPath),
			zap.Error(err))
	} else {
		wp.logger.Debug("Worker completed job successfully",
			zap.Int("worker_id", workerID),
			zap.String("input", pj.job.InputPath))
	}
}
