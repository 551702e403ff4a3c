package httpapi

import (
	"net/http"

	"golang.org/x/sync/semaphore"

	"github.com/MrWong99/nexusvoice/internal/observe"
)

// workerPool bounds the number of API requests processed at once. Requests
// over the limit wait for a slot until their context ends.
type workerPool struct {
	sem     *semaphore.Weighted
	metrics *observe.Metrics
}

func newWorkerPool(size int, m *observe.Metrics) *workerPool {
	return &workerPool{sem: semaphore.NewWeighted(int64(size)), metrics: m}
}

func (p *workerPool) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		p.metrics.QueuedRequests.Add(ctx, 1)
		err := p.sem.Acquire(ctx, 1)
		p.metrics.QueuedRequests.Add(ctx, -1)
		if err != nil {
			// The client went away while queued; nobody reads the reply.
			observe.Logger(ctx).Debug("request abandoned while queued", "path", r.URL.Path)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		defer p.sem.Release(1)

		p.metrics.InFlightRequests.Add(ctx, 1)
		defer p.metrics.InFlightRequests.Add(ctx, -1)

		next.ServeHTTP(w, r)
	})
}
