package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a periodic task. Run receives the tick time.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time) error
}

// Runner ticks every job on its own interval until the context ends. A failing
// run is logged and retried on the next tick.
type Runner struct {
	Jobs   []Job
	Clock  func() time.Time
	Logger *slog.Logger
}

func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range r.Jobs {
		if job.Run == nil || job.Interval <= 0 {
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			r.loop(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx, job)
		}
	}
}

// RunOnce executes job immediately.
func (r *Runner) RunOnce(ctx context.Context, job Job) {
	started := r.now()
	if err := job.Run(ctx, started); err != nil {
		r.logger().ErrorContext(ctx, "scheduled job failed", "job", job.Name, "error", err)
		return
	}
	r.logger().DebugContext(ctx, "scheduled job done", "job", job.Name, "took", time.Since(started))
}

func (r *Runner) now() time.Time {
	if r.Clock != nil {
		return r.Clock().UTC()
	}
	return time.Now().UTC()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
