package sync

import (
	"github.com/sourcegraph/conc/pool"

	"github.com/nhle/fetchheaders/internal/model"
)

// Job is one unit of work producing a single result.
type Job[R any] func() R

// Run executes jobs on at most poolSize goroutines and blocks until every
// job has produced its result. Results are not in job order. A poolSize
// below one runs the jobs serially.
func Run[R any](jobs []Job[R], poolSize int) []R {
	if len(jobs) == 0 {
		return nil
	}
	if poolSize < 1 {
		poolSize = 1
	}
	if poolSize > len(jobs) {
		poolSize = len(jobs)
	}

	p := pool.NewWithResults[R]().WithMaxGoroutines(poolSize)
	for _, job := range jobs {
		p.Go(job)
	}
	return p.Wait()
}

// OrderResults sorts results into the order of accounts. Results for
// accounts not listed are appended in their original order.
func OrderResults(results []model.AccountResult, accounts []model.AccountConfig) []model.AccountResult {
	byName := make(map[string][]model.AccountResult, len(results))
	for _, r := range results {
		byName[r.Account] = append(byName[r.Account], r)
	}

	ordered := make([]model.AccountResult, 0, len(results))
	for _, a := range accounts {
		ordered = append(ordered, byName[a.Name]...)
		delete(byName, a.Name)
	}
	for _, r := range results {
		if _, ok := byName[r.Account]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
