package ports

import "github.com/vshulcz/airgauge/internal/domain"

// GaugeStore holds the latest gauge value for every (metric, source) pair.
type GaugeStore interface {
	Set(metric string, source domain.Source, value float64)
	Get(metric string, source domain.Source) (float64, bool)
	Snapshot() domain.Snapshot
}

// SnapshotRenderer turns a snapshot into exposition-format bytes.
type SnapshotRenderer interface {
	Render(s domain.Snapshot) []byte
}
