// Package memory implements the in-memory gauge store shared by the refresh loop and the scrape handler.
package memory

import (
	"sync"

	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/ports"
)

type entryKey struct {
	metric string
	source domain.Source
}

// Repo keeps the latest gauge values in memory with coarse-grained RW locking.
// Entries only exist once they have been written.
type Repo struct {
	gauges map[entryKey]float64
	mu     sync.RWMutex
}

var _ ports.GaugeStore = (*Repo)(nil)

// New returns an empty in-memory store.
func New() *Repo {
	return &Repo{gauges: make(map[entryKey]float64)}
}

// Set stores value for the (metric, source) pair, replacing any previous value.
func (r *Repo) Set(metric string, source domain.Source, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[entryKey{metric: metric, source: source}] = value
}

// Get returns the current value and whether the pair has ever been written.
func (r *Repo) Get(metric string, source domain.Source) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.gauges[entryKey{metric: metric, source: source}]
	return v, ok
}

// Len reports how many entries the store holds.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.gauges)
}

// Snapshot copies every entry while holding the read lock and returns them sorted by metric, then source.
func (r *Repo) Snapshot() domain.Snapshot {
	r.mu.RLock()
	entries := make([]domain.Entry, 0, len(r.gauges))
	for k, v := range r.gauges {
		entries = append(entries, domain.Entry{Metric: k.metric, Source: k.source, Value: v})
	}
	r.mu.RUnlock()

	domain.SortEntries(entries)
	return domain.Snapshot{Entries: entries}
}
