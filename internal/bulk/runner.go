package bulk

import (
	"context"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Preview is the backend's dry-run answer for a filter.
type Preview struct {
	Total int64    `json:"total"`
	IDs   []string `json:"ids"`
}

// Report aggregates a bulk run. Per-entity failures are collected, never
// aborting the remaining chunks.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    map[string]string // subscriber id -> failure message
}

type chunkResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors"`
}

// Runner executes bulk operations through a bounded worker pool.
type Runner struct {
	client    *api.Client
	cache     *query.Cache
	pool      *ants.Pool
	chunkSize int
}

// NewRunner builds a runner with the given pool size and chunk size.
func NewRunner(client *api.Client, cache *query.Cache, workers, chunkSize int) (*Runner, error) {
	if workers <= 0 {
		workers = 4
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("bulk worker pool: %w", err)
	}
	return &Runner{client: client, cache: cache, pool: pool, chunkSize: chunkSize}, nil
}

// Close releases the worker pool.
func (r *Runner) Close() {
	r.pool.Release()
}

// PreviewFilter asks the backend which subscribers a filter matches
// without mutating anything.
func (r *Runner) PreviewFilter(ctx context.Context, f Filter) (*Preview, error) {
	res, err := r.client.Post(ctx, "/api/v1/subscribers/bulk/preview", map[string]interface{}{
		"filter": f.Payload(),
	})
	if err != nil {
		return nil, err
	}
	var preview Preview
	if err := jsonCodec.Unmarshal(res.Data, &preview); err != nil {
		return nil, fmt.Errorf("decode bulk preview: %w", err)
	}
	return &preview, nil
}

// Run previews the filter, chunks the matched IDs, and submits one
// mutation per chunk through the pool. On completion the subscriber list
// is invalidated once.
func (r *Runner) Run(ctx context.Context, f Filter, a Action) (*Report, error) {
	preview, err := r.PreviewFilter(ctx, f)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(preview.IDs), Errors: map[string]string{}}
	if len(preview.IDs) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for start := 0; start < len(preview.IDs); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(preview.IDs) {
			end = len(preview.IDs)
		}
		chunk := preview.IDs[start:end]

		wg.Add(1)
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			res, err := r.client.Post(ctx, "/api/v1/subscribers/bulk", map[string]interface{}{
				"operation": a.Op,
				"params":    a.Params,
				"ids":       chunk,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed += len(chunk)
				msg := query.UserMessage(err, "bulk chunk failed")
				for _, id := range chunk {
					report.Errors[id] = msg
				}
				zap.L().Warn("bulk chunk failed",
					zap.String("operation", a.Op),
					zap.Int("size", len(chunk)),
					zap.Error(err),
				)
				return
			}
			var cres chunkResult
			if len(res.Data) > 0 && jsonCodec.Unmarshal(res.Data, &cres) == nil {
				report.Succeeded += cres.Succeeded
				report.Failed += cres.Failed
				for id, msg := range cres.Errors {
					report.Errors[id] = msg
				}
			} else {
				report.Succeeded += len(chunk)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			report.Failed += len(chunk)
			for _, id := range chunk {
				report.Errors[id] = submitErr.Error()
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	if r.cache != nil {
		r.cache.Invalidate("subscribers")
	}
	return report, nil
}
