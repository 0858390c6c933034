// Package refresh implements the background loop that polls every sensor and keeps the gauge store current.
package refresh

import (
	"context"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/misc"
	"github.com/vshulcz/airgauge/internal/ports"
	"github.com/vshulcz/airgauge/pkg/observer"
)

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 30 * time.Second

// Observer receives the summary of every completed cycle.
type Observer = observer.Observer[domain.Cycle]

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc = observer.ObserverFunc[domain.Cycle]

// Service is the sole writer of the gauge store.
type Service struct {
	store   ports.GaugeStore
	fetcher ports.ReadingFetcher
	host    ports.HostCollector
	events  *observer.Subject[domain.Cycle]
	logger  *zap.Logger

	sources  []domain.Source
	catalog  []domain.GaugeDesc
	interval time.Duration
	workers  int
}

// Option customizes a Service.
type Option func(*Service)

// WithInterval sets the pause between cycles. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWorkers bounds how many sources are fetched at the same time. 1 means sequential.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCatalog replaces the gauges written for every successful reading.
func WithCatalog(c []domain.GaugeDesc) Option {
	return func(s *Service) {
		if len(c) > 0 {
			s.catalog = c
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHostCollector samples hc at the end of every cycle.
func WithHostCollector(hc ports.HostCollector) Option {
	return func(s *Service) { s.host = hc }
}

// WithObserver attaches a cycle observer under name.
func WithObserver(name string, o Observer) Option {
	return func(s *Service) { s.events.Attach(name, o) }
}

// New wires the store, the fetcher and the fixed set of sources.
func New(store ports.GaugeStore, fetcher ports.ReadingFetcher, sources []domain.Source, opts ...Option) (*Service, error) {
	if len(sources) == 0 {
		return nil, domain.ErrNoSources
	}
	s := &Service{
		store:    store,
		fetcher:  fetcher,
		events:   observer.NewSubject[domain.Cycle](),
		logger:   zap.NewNop(),
		sources:  slices.Clone(sources),
		catalog:  domain.AwairGauges,
		interval: DefaultInterval,
		workers:  1,
	}
	for _, o := range opts {
		o(s)
	}
	s.events.SetTimeout(s.interval)
	s.events.SetErrorHandler(func(name string, err error) {
		s.logger.Warn("cycle observer failed", zap.String("observer", name), zap.Error(err))
	})
	return s, nil
}

// Attach adds a cycle observer. It may be called while Run is active.
func (s *Service) Attach(name string, o Observer) {
	s.events.Attach(name, o)
}

// Interval returns the configured pause between cycles.
func (s *Service) Interval() time.Duration { return s.interval }

// Run polls all sources, sleeps, and repeats until ctx is cancelled. It always returns nil.
// Observers are notified from a separate goroutine, so a slow observer never delays the next cycle.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("refresh loop started",
		zap.Int("sources", len(s.sources)),
		zap.Duration("interval", s.interval),
		zap.Int("workers", s.workers),
		zap.Int("observers", s.events.Len()),
	)
	pending := make(chan domain.Cycle, 1)
	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		s.deliver(ctx, pending)
	}()
	defer func() { <-delivered }()

	for {
		if cycle, ok := s.cycle(ctx); ok {
			s.handoff(pending, cycle)
		}
		if !misc.Sleep(ctx, s.interval) {
			s.logger.Info("refresh loop stopped")
			return nil
		}
	}
}

// RunOnce performs a single cycle over every source, notifies the observers and reports what happened.
// A failed source keeps whatever values it had before.
func (s *Service) RunOnce(ctx context.Context) domain.Cycle {
	cycle, ok := s.cycle(ctx)
	if ok {
		s.events.Publish(ctx, cycle)
	}
	return cycle
}

// cycle polls every source and the host collector. ok is false when ctx was cancelled meanwhile.
func (s *Service) cycle(ctx context.Context) (domain.Cycle, bool) {
	cycle := domain.Cycle{
		Started: time.Now(),
		Results: make([]domain.SourceResult, len(s.sources)),
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, src := range s.sources {
		g.Go(func() error {
			cycle.Results[i] = s.poll(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	s.collectHost(ctx)
	cycle.Finished = time.Now()

	if ctx.Err() != nil {
		return cycle, false
	}
	s.logger.Debug("refresh cycle done",
		zap.Int("ok", len(cycle.Results)-cycle.Failed()),
		zap.Int("failed", cycle.Failed()),
		zap.Duration("took", cycle.Finished.Sub(cycle.Started)),
	)
	return cycle, true
}

func (s *Service) deliver(ctx context.Context, pending <-chan domain.Cycle) {
	for {
		select {
		case <-ctx.Done():
			return
		case cycle := <-pending:
			s.events.Publish(ctx, cycle)
		}
	}
}

// handoff queues cycle for delivery, replacing one the observers have not picked up yet.
// The loop is the only sender, so the final send never blocks.
func (s *Service) handoff(pending chan domain.Cycle, cycle domain.Cycle) {
	select {
	case pending <- cycle:
		return
	default:
	}
	select {
	case <-pending:
		s.logger.Warn("cycle observers lagging, dropped an undelivered cycle")
	default:
	}
	pending <- cycle
}

func (s *Service) poll(ctx context.Context, src domain.Source) domain.SourceResult {
	r, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("unable to get air-data", zap.String("source", string(src)), zap.Error(err))
		}
		return domain.SourceResult{Source: src, Err: err}
	}
	s.apply(src, r)
	return domain.SourceResult{Source: src, Reading: &r}
}

func (s *Service) apply(src domain.Source, r domain.Reading) {
	for _, g := range s.catalog {
		if g.Value == nil {
			continue
		}
		s.store.Set(g.Name, src, g.Value(r))
	}
}

func (s *Service) collectHost(ctx context.Context) {
	if s.host == nil || ctx.Err() != nil {
		return
	}
	vals, err := s.host.Collect(ctx)
	if err != nil {
		s.logger.Warn("host sample failed", zap.String("source", string(s.host.Source())), zap.Error(err))
		return
	}
	src := s.host.Source()
	for _, name := range slices.Sorted(maps.Keys(vals)) {
		s.store.Set(name, src, vals[name])
	}
}
