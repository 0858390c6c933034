package memory

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"testing"

	"github.com/vshulcz/airgauge/internal/domain"
)

func TestMemStorage(t *testing.T) {
	t.Run("SetAndGet", func(t *testing.T) {
		ms := New()
		cases := []struct {
			name   string
			metric string
			source domain.Source
			value  float64
			expect float64
		}{
			{"first set", "score", "http://a", 80, 80},
			{"overwrite value", "score", "http://a", 81.5, 81.5},
			{"same metric other source", "score", "http://b", 12, 12},
			{"zero is a value", "pm25", "http://a", 0, 0},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				ms.Set(tc.metric, tc.source, tc.value)
				got, ok := ms.Get(tc.metric, tc.source)
				if !ok {
					t.Fatalf("expected %s/%s to exist", tc.metric, tc.source)
				}
				if got != tc.expect {
					t.Errorf("got %v, want %v", got, tc.expect)
				}
			})
		}
		if v, _ := ms.Get("score", "http://a"); v != 81.5 {
			t.Fatalf("overwrite lost, score/a=%v", v)
		}
		if ms.Len() != 3 {
			t.Fatalf("Len()=%d, want 3", ms.Len())
		}
	})

	t.Run("GetNonexistent", func(t *testing.T) {
		ms := New()
		if _, ok := ms.Get("score", "http://missing"); ok {
			t.Error("expected Get to report absence for a never-written pair")
		}
		if s := ms.Snapshot(); len(s.Entries) != 0 {
			t.Errorf("empty store snapshot has %d entries", len(s.Entries))
		}
	})

	t.Run("OverwriteKeepsOneEntry", func(t *testing.T) {
		ms := New()
		ms.Set("temp", "http://a", 1)
		ms.Set("temp", "http://a", 2)
		s := ms.Snapshot()
		if len(s.Entries) != 1 {
			t.Fatalf("want 1 entry, got %+v", s.Entries)
		}
		if s.Entries[0].Value != 2 {
			t.Fatalf("want latest value 2, got %v", s.Entries[0].Value)
		}
	})

	t.Run("SnapshotOrdering", func(t *testing.T) {
		ms := New()
		ms.Set("voc", "http://b", 1)
		ms.Set("co2", "http://b", 2)
		ms.Set("voc", "http://a", 3)
		ms.Set("co2", "http://a", 4)

		got := ms.Snapshot().Entries
		want := []domain.Entry{
			{Metric: "co2", Source: "http://a", Value: 4},
			{Metric: "co2", Source: "http://b", Value: 2},
			{Metric: "voc", Source: "http://a", Value: 3},
			{Metric: "voc", Source: "http://b", Value: 1},
		}
		if !slices.Equal(got, want) {
			t.Fatalf("snapshot = %+v, want %+v", got, want)
		}
		if again := ms.Snapshot().Entries; !slices.Equal(again, got) {
			t.Fatalf("repeated snapshot differs: %+v vs %+v", again, got)
		}
	})

	t.Run("SnapshotIsolation", func(t *testing.T) {
		ms := New()
		ms.Set("score", "http://a", 1.0)

		s := ms.Snapshot()
		s.Entries[0].Value = 100

		if v, _ := ms.Get("score", "http://a"); v != 1.0 {
			t.Fatalf("snapshot must be a copy, got %v", v)
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		t.Run("BasicAccess", func(_ *testing.T) {
			ms := New()
			var wg sync.WaitGroup
			for i := range 10 {
				wg.Go(func() {
					ms.Set("g", domain.Source(fmt.Sprint(i%3)), float64(i))
				})
			}
			for range 10 {
				wg.Go(func() {
					ms.Get("g", "0")
					ms.Snapshot()
				})
			}
			wg.Wait()
		})

		t.Run("NoTornReads", func(t *testing.T) {
			ms := New()
			const (
				writers    = 8
				iterations = 2000
				readers    = 4
			)
			// value encodes writer id in the integer part and iteration in the fraction,
			// so every written value is recognisable.
			written := func(v float64, src domain.Source) bool {
				var id int
				if _, err := fmt.Sscanf(string(src), "src-%d", &id); err != nil {
					return false
				}
				whole, frac := math.Modf(v)
				if int(whole) != id {
					return false
				}
				it := math.Round(frac * 1e4)
				return it >= 0 && it < iterations
			}

			done := make(chan struct{})
			errs := make(chan string, readers)
			var rg sync.WaitGroup
			for range readers {
				rg.Go(func() {
					for {
						select {
						case <-done:
							return
						default:
						}
						s := ms.Snapshot()
						seen := make(map[string]struct{}, len(s.Entries))
						for _, e := range s.Entries {
							k := e.Metric + "|" + string(e.Source)
							if _, dup := seen[k]; dup {
								errs <- "duplicate entry " + k
								return
							}
							seen[k] = struct{}{}
							if !written(e.Value, e.Source) {
								errs <- fmt.Sprintf("value %v for %s was never written", e.Value, e.Source)
								return
							}
						}
					}
				})
			}

			var wg sync.WaitGroup
			for w := range writers {
				wg.Go(func() {
					src := domain.Source(fmt.Sprintf("src-%d", w))
					for i := range iterations {
						v := float64(w) + float64(i)/1e4
						for _, g := range domain.AwairGauges {
							ms.Set(g.Name, src, v)
						}
					}
				})
			}
			wg.Wait()
			close(done)
			rg.Wait()
			close(errs)
			for e := range errs {
				t.Error(e)
			}

			if got, want := ms.Len(), writers*len(domain.AwairGauges); got != want {
				t.Fatalf("Len()=%d, want %d", got, want)
			}
		})
	})
}
