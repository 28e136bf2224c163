package score

import (
	"context"
	"runtime"
	"sync"

	"github.com/openpgx/pgscore/internal/model"
)

type workItem struct {
	seq  int
	site model.Site
}

type workResult struct {
	seq    int
	result SiteResult
}

// scoreParallel evaluates sites across a worker pool. Each site is
// independent and the index is read-only, so workers share it without
// locking. Results are written into a slice indexed by sequence number,
// restoring model input order, and the final reduction runs in that
// order so the score is bit-identical to a serial pass.
func (a *Aggregator) scoreParallel(ctx context.Context, m *model.Model) (*Result, error) {
	workers := a.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan workItem)
	results := make(chan workResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- workResult{seq: item.seq, result: a.scoreSite(item.site)}
			}
		}()
	}

	go func() {
		defer close(items)
		for i, site := range m.Sites {
			select {
			case items <- workItem{seq: i, site: site}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	perSite := make([]SiteResult, m.Len())
	for r := range results {
		perSite[r.seq] = r.result
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		SitesTotal: m.Len(),
		PerSite:    make([]SiteResult, 0, m.Len()),
	}
	for _, sr := range perSite {
		res.accumulate(sr)
	}
	return res, nil
}
