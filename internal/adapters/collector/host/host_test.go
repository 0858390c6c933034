package host

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

func fixedSampler() Sampler {
	return Sampler{
		CPU: func(context.Context) (float64, error) { return 12.5, nil },
		Memory: func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: 8 << 30, Available: 2 << 30, UsedPercent: 75}, nil
		},
		Load: func(context.Context) (*load.AvgStat, error) { return &load.AvgStat{Load1: 0.42}, nil },
	}
}

func TestCollector_Collect(t *testing.T) {
	c := NewWithSampler("host:test", fixedSampler())
	got, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := map[string]float64{
		MCPUPercent:      12.5,
		MMemoryPercent:   75,
		MMemoryTotal:     float64(8 << 30),
		MMemoryAvailable: float64(2 << 30),
		MLoad1:           0.42,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %v, want %v", k, got[k], v)
		}
	}
	if c.Source() != "host:test" {
		t.Fatalf("Source() = %q", c.Source())
	}
}

func TestCollector_PartialFailure(t *testing.T) {
	s := fixedSampler()
	s.CPU = func(context.Context) (float64, error) { return 0, errors.New("no /proc/stat") }
	s.Load = nil

	got, err := NewWithSampler("host:test", s).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, ok := got[MCPUPercent]; ok {
		t.Fatal("failed probe must not produce a value")
	}
	if got[MMemoryPercent] != 75 {
		t.Fatalf("memory missing: %v", got)
	}
}

func TestCollector_AllFail(t *testing.T) {
	boom := errors.New("boom")
	s := Sampler{
		CPU:    func(context.Context) (float64, error) { return 0, boom },
		Memory: func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, boom },
	}
	_, err := NewWithSampler("host:test", s).Collect(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "cpu") || !strings.Contains(err.Error(), "memory") {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewWithSampler("host:test", Sampler{}).Collect(context.Background()); err == nil {
		t.Fatal("expected error with no probes")
	}
}

func TestCatalog_CoversCollectedNames(t *testing.T) {
	names := map[string]bool{}
	for _, g := range Catalog {
		if g.Value != nil {
			t.Fatalf("%s: host gauges are sampled, not extracted", g.Name)
		}
		names[g.Name] = true
	}
	got, _ := NewWithSampler("host:test", fixedSampler()).Collect(context.Background())
	for k := range got {
		if !names[k] {
			t.Fatalf("%s has no catalog entry", k)
		}
	}
}

func TestNew_SourceIsHostname(t *testing.T) {
	c := New(context.Background())
	if c.Source() == "" || strings.Contains(string(c.Source()), "://") {
		t.Fatalf("Source() = %q", c.Source())
	}
}

func TestCatalog_OwnNamespaceAndLabel(t *testing.T) {
	for _, g := range Catalog {
		if g.FQName != "airgauge_"+g.Name || g.Label != "host" {
			t.Fatalf("%s exported as %q with label %q", g.Name, g.FQName, g.Label)
		}
		if strings.HasPrefix(g.FQName, "awair_") {
			t.Fatalf("%s must not use the sensor namespace", g.Name)
		}
	}
}
