package scorer

import (
	"sync"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

// Best keeps the highest scoring opportunity offered by concurrent workers.
//
// A candidate replaces the current best only on a strictly greater score. Equal scores are
// resolved by rank (lower wins), which makes the outcome independent of completion order and
// identical to evaluating the universe sequentially.
type Best struct {
	mu   sync.Mutex
	op   *domain.Opportunity
	rank int
}

// Offer submits an opportunity found at the given universe rank.
// Nil and non-positive candidates are ignored. It reports whether the candidate became the best.
func (b *Best) Offer(op *domain.Opportunity, rank int) bool {
	if op == nil || !(op.Score > 0) {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.op != nil {
		if op.Score < b.op.Score {
			return false
		}
		if op.Score == b.op.Score && rank >= b.rank {
			return false
		}
	}

	b.op = op
	b.rank = rank
	return true
}

// Get returns the current best, or nil.
func (b *Best) Get() *domain.Opportunity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.op
}
