// Package host samples utilisation of the machine the exporter runs on.
package host

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/cpu"
	gphost "github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/ports"
)

const (
	MCPUPercent      = "host_cpu_percent"
	MMemoryPercent   = "host_memory_used_percent"
	MMemoryTotal     = "host_memory_total_bytes"
	MMemoryAvailable = "host_memory_available_bytes"
	MLoad1           = "host_load1"
)

const (
	// Namespace prefixes every exported host gauge so it is never mistaken for sensor data.
	Namespace = "airgauge"
	// Label carries the hostname.
	Label = "host"
)

// Catalog carries naming and help text for the host gauges. Values are sampled by Collect, not extracted from readings.
var Catalog = []domain.GaugeDesc{
	desc(MCPUPercent, "Exporter host CPU utilisation in percent"),
	desc(MMemoryPercent, "Exporter host memory in use in percent"),
	desc(MMemoryTotal, "Exporter host total memory in bytes"),
	desc(MMemoryAvailable, "Exporter host available memory in bytes"),
	desc(MLoad1, "Exporter host one minute load average"),
}

func desc(name, help string) domain.GaugeDesc {
	return domain.GaugeDesc{Name: name, Help: help, FQName: Namespace + "_" + name, Label: Label}
}

// Sampler abstracts gopsutil so tests can feed fixed values.
type Sampler struct {
	CPU    func(ctx context.Context) (float64, error)
	Memory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	Load   func(ctx context.Context) (*load.AvgStat, error)
}

func gopsutilSampler() Sampler {
	return Sampler{
		CPU: func(ctx context.Context) (float64, error) {
			pct, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil {
				return 0, err
			}
			if len(pct) == 0 {
				return 0, errors.New("no cpu sample")
			}
			return pct[0], nil
		},
		Memory: mem.VirtualMemoryWithContext,
		Load:   load.AvgWithContext,
	}
}

type Collector struct {
	sample Sampler
	source domain.Source
}

var _ ports.HostCollector = (*Collector)(nil)

// New samples the local machine. The source is the hostname.
func New(ctx context.Context) *Collector {
	return NewWithSampler(domain.Source(hostname(ctx)), gopsutilSampler())
}

func NewWithSampler(src domain.Source, s Sampler) *Collector {
	return &Collector{source: src, sample: s}
}

func hostname(ctx context.Context) string {
	if info, err := gphost.InfoWithContext(ctx); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}

func (c *Collector) Source() domain.Source { return c.source }

// Collect returns whatever could be sampled. It fails only when every probe failed.
func (c *Collector) Collect(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(Catalog))
	var errs []error

	if c.sample.CPU != nil {
		if p, err := c.sample.CPU(ctx); err == nil {
			out[MCPUPercent] = p
		} else {
			errs = append(errs, fmt.Errorf("cpu: %w", err))
		}
	}
	if c.sample.Memory != nil {
		if vm, err := c.sample.Memory(ctx); err == nil && vm != nil {
			out[MMemoryPercent] = vm.UsedPercent
			out[MMemoryTotal] = float64(vm.Total)
			out[MMemoryAvailable] = float64(vm.Available)
		} else if err != nil {
			errs = append(errs, fmt.Errorf("memory: %w", err))
		}
	}
	if c.sample.Load != nil {
		if avg, err := c.sample.Load(ctx); err == nil && avg != nil {
			out[MLoad1] = avg.Load1
		} else if err != nil {
			errs = append(errs, fmt.Errorf("load: %w", err))
		}
	}

	if len(out) == 0 {
		if len(errs) == 0 {
			return nil, errors.New("no host probes configured")
		}
		return nil, errors.Join(errs...)
	}
	return out, nil
}
