package sync

import (
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fetchheaders/internal/model"
)

func TestRun_ResultsForAnyPoolSize(t *testing.T) {
	for _, poolSize := range []int{-1, 0, 1, 2, 5, 50} {
		var running, peak atomic.Int32

		jobs := make([]Job[int], 10)
		for i := range jobs {
			jobs[i] = func() int {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return i
			}
		}

		results := Run(jobs, poolSize)
		require.Len(t, results, 10, "poolSize=%d", poolSize)

		sort.Ints(results)
		for i, r := range results {
			assert.Equal(t, i, r)
		}

		limit := int32(max(poolSize, 1))
		assert.LessOrEqual(t, peak.Load(), limit, "poolSize=%d", poolSize)
	}
}

func TestRun_Empty(t *testing.T) {
	assert.Empty(t, Run[int](nil, 5))
}

func TestOrderResults(t *testing.T) {
	accounts := []model.AccountConfig{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	results := []model.AccountResult{{Account: "C"}, {Account: "X"}, {Account: "A"}, {Account: "B"}}

	ordered := OrderResults(results, accounts)
	require.Len(t, ordered, 4)

	var names []string
	for _, r := range ordered {
		names = append(names, r.Account)
	}
	assert.Equal(t, []string{"A", "B", "C", "X"}, names)
}
