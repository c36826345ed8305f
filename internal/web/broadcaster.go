package web

import (
	"context"
	"sync"

	"github.com/vadiminshakov/scalpscan/internal/domain"
)

const defaultHistory = 50

// ResultRecord scheduled scan result with its stream index.
type ResultRecord struct {
	Index  uint64
	Result domain.ScanResult
}

// Broadcaster keeps the most recent scheduled results in memory for stream subscribers.
// It implements notify.Notifier.
type Broadcaster struct {
	mu      sync.RWMutex
	records []ResultRecord
	next    uint64
	limit   int
}

// NewBroadcaster creates a broadcaster holding up to limit results (50 when limit <= 0).
func NewBroadcaster(limit int) *Broadcaster {
	if limit <= 0 {
		limit = defaultHistory
	}
	return &Broadcaster{next: 1, limit: limit}
}

// Notify implements notify.Notifier.
func (b *Broadcaster) Notify(_ context.Context, res domain.ScanResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, ResultRecord{Index: b.next, Result: res})
	b.next++
	if len(b.records) > b.limit {
		b.records = append([]ResultRecord(nil), b.records[len(b.records)-b.limit:]...)
	}
	return nil
}

// ResultsAfter returns the retained records with an index greater than index, oldest first.
func (b *Broadcaster) ResultsAfter(index uint64) ([]ResultRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, r := range b.records {
		if r.Index > index {
			return append([]ResultRecord(nil), b.records[i:]...), nil
		}
	}
	return nil, nil
}

// Latest returns the most recent record.
func (b *Broadcaster) Latest() (ResultRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.records) == 0 {
		return ResultRecord{}, false
	}
	return b.records[len(b.records)-1], true
}
