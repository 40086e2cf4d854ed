// Package batch fans independent EDIFACT inputs out to worker goroutines and
// collects ordered results. Each worker owns its own coordinator; nothing
// mutable is shared, and per-job failures never abort the run.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/enermsg/edikit/pkg/convert"
)

// ErrNoFactory indicates a Driver built without a coordinator factory.
var ErrNoFactory = errors.New("batch driver needs a coordinator factory")

// Job is one independent conversion input.
type Job struct {
	ID    string
	Input []byte
}

// Outcome is the result for one job, in the job's input position.
type Outcome struct {
	ID       string
	Result   *convert.Result
	Err      error
	Duration time.Duration
}

// Factory builds a coordinator for one worker. Loaded schemas and mapping
// definitions are immutable, so factories may close over shared instances.
type Factory func() *convert.Coordinator

// Driver runs batches.
type Driver struct {
	factory Factory
	workers int
	timeout time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithWorkers sets the fan-out width; the default is GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(d *Driver) { d.workers = n }
}

// WithTimeout bounds one job's conversion; zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Driver) { d.timeout = timeout }
}

// WithMetrics installs Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// New builds a Driver over a coordinator factory.
func New(factory Factory, opts ...Option) (*Driver, error) {
	if factory == nil {
		return nil, ErrNoFactory
	}
	d := &Driver{
		factory: factory,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers < 1 {
		d.workers = 1
	}
	return d, nil
}

// Run converts every job and returns outcomes in job order. Per-job failures
// land in their Outcome; only context cancellation aborts the batch.
func (d *Driver) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	indexes := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(indexes)
		for i := range jobs {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case indexes <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	workers := min(d.workers, max(len(jobs), 1))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			coordinator := d.factory()
			for i := range indexes {
				outcomes[i] = d.runOne(gctx, coordinator, jobs[i])
				d.metrics.observe(&outcomes[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	d.logger.Debug("batch complete", "jobs", len(jobs), "workers", workers)
	return outcomes, nil
}

func (d *Driver) runOne(ctx context.Context, coordinator *convert.Coordinator, job Job) Outcome {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := coordinator.Forward(ctx, job.Input)
	outcome := Outcome{
		ID:       job.ID,
		Result:   result,
		Err:      err,
		Duration: time.Since(start),
	}
	if err != nil {
		d.logger.Warn("job failed", "id", job.ID, "error", err)
	}
	return outcome
}
