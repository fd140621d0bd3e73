package sim

import (
	"context"
	"sync"

	"toksim/internal/config"
)

// Scan runs one simulation per configuration concurrently and collects the
// results in input order. Each run owns its full component stack, so runs
// share nothing. The first error wins; remaining results are discarded.
func Scan(ctx context.Context, cfgs []*config.Config) ([]*Result, error) {
	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		wg.Add(1)
		go func(idx int, cfg *config.Config) {
			defer wg.Done()
			s, err := New(cfg)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = s.Run(ctx)
		}(i, cfg)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
