// Package repair provides an asynchronous worker pool that removes stale
// points from the vector index.
//
// A point is stale when the search path finds it in the index but its record
// no longer exists in the record store. The pool keeps that cleanup off the
// query path: queries enqueue and move on.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/papercomputeco/chronicle/pkg/vector"
)

var (
	defaultNumWorkers   uint   = 2
	defaultJobQueueSize uint   = 128
	defaultMaxRetries   uint64 = 4
	defaultBaseDelay           = 500 * time.Millisecond
	defaultJobTimeout          = 30 * time.Second
)

// Config is the configuration options for the repair pool.
type Config struct {
	// Driver is the vector index the stale points are deleted from.
	Driver vector.Driver

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 128).
	QueueSize uint

	// MaxRetries bounds retries after the first failed delete.
	MaxRetries uint64

	// BaseDelay seeds the Fibonacci backoff between retries.
	BaseDelay time.Duration

	// JobTimeout bounds a single job, including all of its retries.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool deletes stale vector points asynchronously.
type Pool struct {
	config *Config
	queue  chan string
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, errors.New("repair pool requires a vector driver")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queue:  make(chan string, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a stale point ID for deletion.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("repair not queued, pool closed", "point_id", id)
		return false
	}

	select {
	case p.queue <- id:
		p.logger.Debug("repair queued", "point_id", id)
		return true
	default:
		p.logger.Error("repair not queued, queue full, job dropped", "point_id", id)
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("repair worker started", "worker_id", id)

	for pointID := range p.queue {
		p.processJob(pointID)
	}

	p.logger.Debug("repair worker stopped", "worker_id", id)
}

// processJob deletes one point, retrying only while the backend is unreachable.
func (p *Pool) processJob(pointID string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	attempts := 0
	b := retry.WithMaxRetries(p.config.MaxRetries, retry.NewFibonacci(p.config.BaseDelay))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		err := p.config.Driver.Delete(ctx, pointID)
		if errors.Is(err, vector.ErrUnreachable) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		p.logger.Warn("stale point repair failed",
			"point_id", pointID,
			"attempts", attempts,
			"error", err,
		)
		return
	}

	p.logger.Info("stale point removed from index",
		"point_id", pointID,
		"attempts", attempts,
	)
}
