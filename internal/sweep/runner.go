package sweep

import (
	"context"
	"sync"

	"spikesim/internal/model"
)

// PointFunc evaluates one configuration point into its aggregate record.
type PointFunc func(ctx context.Context, point model.Point) (model.Record, error)

// Outcome pairs a point with its record or per-point failure.
type Outcome struct {
	Point  model.Point
	Record model.Record
	Err    error
}

// Run evaluates every point across a bounded worker pool. Points share no
// mutable state, so the only coordination is job distribution and result
// collection. A per-point failure never aborts sibling points; the caller
// decides how failed outcomes appear in the output document. Cancellation is
// cooperative at point granularity.
func Run(ctx context.Context, points []model.Point, workers int, fn PointFunc) []Outcome {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(points) {
		workers = len(points)
	}

	jobs := make(chan int)
	outcomes := make([]Outcome, len(points))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				point := points[i]
				record, err := fn(ctx, point)
				outcomes[i] = Outcome{Point: point, Record: record, Err: err}
			}
		}()
	}

	for i := range points {
		select {
		case <-ctx.Done():
			// Remaining points are reported as cancelled.
			for j := i; j < len(points); j++ {
				outcomes[j] = Outcome{Point: points[j], Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return outcomes
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return outcomes
}
