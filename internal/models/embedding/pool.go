package embedding

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pooler offloads CPU/network-bound embedding calls onto a bounded worker
// pool, matching the concurrency model's requirement (spec §5) that
// suspension-point calls never block the request scheduler directly and
// that the pool is sized ~min(32, 4×logical_cores).
type Pooler interface {
	BatchEmbedWithPool(ctx context.Context, embedder Embedder, texts []string, isQuery bool) ([][]float32, error)
	Release()
}

type antsPooler struct {
	pool *ants.Pool
}

// NewPooler creates a bounded worker pool sized per the concurrency model.
func NewPooler() (Pooler, error) {
	size := 4 * runtime.NumCPU()
	if size > 32 {
		size = 32
	}
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create embedder pool: %w", err)
	}
	return &antsPooler{pool: pool}, nil
}

// BatchEmbedWithPool fans a batch of texts out across the worker pool,
// one embed call per text, preserving input order in the result slice.
func (p *antsPooler) BatchEmbedWithPool(
	ctx context.Context, embedder Embedder, texts []string, isQuery bool,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		i, text := i, text
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			v, err := embedder.Embed(ctx, text, isQuery)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = v
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Release frees the underlying pool's goroutines.
func (p *antsPooler) Release() {
	p.pool.Release()
}
