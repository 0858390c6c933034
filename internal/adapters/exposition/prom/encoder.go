// Package prom renders store snapshots in the Prometheus text exposition format.
package prom

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/misc"
	"github.com/vshulcz/airgauge/internal/ports"
)

// ContentType is the media type of the text exposition format, version 0.0.4.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

const (
	DefaultNamespace = "awair"
	DefaultSubsystem = "sensors"
	DefaultLabel     = "airdata_url"
)

// Options configures metric naming. Zero values fall back to the Awair defaults.
type Options struct {
	Namespace string
	Subsystem string
	Label     string
	Catalog   []domain.GaugeDesc
}

// Encoder is safe for concurrent use; Render depends only on its argument.
type Encoder struct {
	descs map[string]domain.GaugeDesc
	bufs  *misc.Pool[*bytes.Buffer]
	ns    string
	sub   string
	label string
}

var _ ports.SnapshotRenderer = (*Encoder)(nil)

// NewEncoder builds an Encoder. Help strings and per-gauge naming overrides are taken from the catalog.
func NewEncoder(opts Options) *Encoder {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Subsystem == "" {
		opts.Subsystem = DefaultSubsystem
	}
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	if opts.Catalog == nil {
		opts.Catalog = domain.AwairGauges
	}
	descs := make(map[string]domain.GaugeDesc, len(opts.Catalog))
	for _, g := range opts.Catalog {
		descs[g.Name] = g
	}
	return &Encoder{
		descs: descs,
		bufs:  misc.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }),
		ns:    opts.Namespace,
		sub:   opts.Subsystem,
		label: opts.Label,
	}
}

// FullName joins namespace, subsystem and metric the way client_golang's BuildFQName does,
// unless the catalog gives the metric its own FQName.
func (e *Encoder) FullName(metric string) string {
	if fq := e.descs[metric].FQName; fq != "" {
		return fq
	}
	name := metric
	if e.sub != "" {
		name = e.sub + "_" + name
	}
	if e.ns != "" {
		name = e.ns + "_" + name
	}
	return name
}

// Families groups snapshot entries into one gauge family per metric, ordered by metric then source.
func (e *Encoder) Families(s domain.Snapshot) []*dto.MetricFamily {
	entries := slices.Clone(s.Entries)
	domain.SortEntries(entries)

	var out []*dto.MetricFamily
	var cur *dto.MetricFamily
	var curMetric, label string
	for _, en := range entries {
		if cur == nil || en.Metric != curMetric {
			curMetric = en.Metric
			d, ok := e.descs[en.Metric]
			help := d.Help
			if !ok {
				help = en.Metric + " gauge"
			}
			label = e.label
			if d.Label != "" {
				label = d.Label
			}
			cur = &dto.MetricFamily{
				Name: proto.String(e.FullName(en.Metric)),
				Help: proto.String(help),
				Type: dto.MetricType_GAUGE.Enum(),
			}
			out = append(out, cur)
		}
		cur.Metric = append(cur.Metric, &dto.Metric{
			Label: []*dto.LabelPair{{
				Name:  proto.String(label),
				Value: proto.String(string(en.Source)),
			}},
			Gauge: &dto.Gauge{Value: proto.Float64(en.Value)},
		})
	}
	return out
}

// WriteTo encodes s into w.
func (e *Encoder) WriteTo(w io.Writer, s domain.Snapshot) (int64, error) {
	var total int64
	for _, mf := range e.Families(s) {
		n, err := expfmt.MetricFamilyToText(w, mf)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return total, nil
}

// Render returns the exposition bytes for s. Identical snapshots yield identical bytes.
// A snapshot that cannot be encoded is a programming error and panics.
func (e *Encoder) Render(s domain.Snapshot) []byte {
	buf := e.bufs.Get()
	defer e.bufs.Put(buf)
	if _, err := e.WriteTo(buf, s); err != nil {
		panic(err)
	}
	return bytes.Clone(buf.Bytes())
}
