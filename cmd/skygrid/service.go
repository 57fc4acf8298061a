package main

import (
	"context"
	"image"
	"log"
	"sync"
	"time"

	"github.com/unklstewy/skygrid/internal/enrich"
	"github.com/unklstewy/skygrid/internal/registry"
	"github.com/unklstewy/skygrid/internal/tiles"
	"github.com/unklstewy/skygrid/internal/tracker"
	"github.com/unklstewy/skygrid/pkg/adsb"
	"github.com/unklstewy/skygrid/pkg/config"
	"github.com/unklstewy/skygrid/pkg/projection"
)

// Service runs the feed, composite and background enrichment loops.
type Service struct {
	cfg        *config.Config
	feed       *adsb.SkyAwareClient
	registry   *registry.Store
	compositor *tiles.Compositor
	resolver   *enrich.Resolver
	queue      *enrich.Queue
	elig       enrich.Eligibility
	tracker    *tracker.Tracker

	// refreshCh wakes the composite worker; capacity 1 coalesces
	// bursts of requests into a single rebuild
	refreshCh chan struct{}

	mu         sync.Mutex
	background image.Image

	totalUpdates int
}

// Close releases held resources.
func (s *Service) Close() {
	s.feed.Close()
	if s.registry != nil {
		s.registry.Close()
	}
}

// View returns the current map viewport.
func (s *Service) View() projection.View {
	return projection.View{
		CenterLat:   s.cfg.Map.CenterLatitude,
		CenterLon:   s.cfg.Map.CenterLongitude,
		RadiusMiles: s.cfg.Map.RadiusMiles,
		ZoomFactor:  s.cfg.Map.ZoomFactor,
		Width:       s.cfg.Display.Width,
		Height:      s.cfg.Display.Height,
	}
}

// Background returns the freshest composited map background, or nil
// when none is available yet. Renderers must not mutate the image.
func (s *Service) Background() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// Aircraft returns the tracked aircraft sorted nearest first.
func (s *Service) Aircraft() []tracker.Tracked {
	return s.tracker.Snapshot()
}

// Run drives the service loops until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	feedTicker := time.NewTicker(time.Duration(s.cfg.Feed.UpdateIntervalSeconds) * time.Second)
	defer feedTicker.Stop()

	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	var drainCh <-chan time.Time
	if s.cfg.Background.Enabled {
		drainTicker := time.NewTicker(time.Duration(s.cfg.Background.FetchIntervalHours) * time.Hour)
		defer drainTicker.Stop()
		drainCh = drainTicker.C
	}

	// Composite generation runs in its own worker so a slow tile
	// provider never stalls the feed loop
	if s.compositor != nil {
		go s.compositeWorker(ctx)
		s.requestComposite()
	}

	log.Println("Performing initial feed fetch...")
	s.update()

	for {
		select {
		case <-ctx.Done():
			return
		case <-feedTicker.C:
			s.update()
		case <-drainCh:
			s.queue.Drain(ctx, s.cfg.Background.MaxCallsPerRun)
		case <-statsTicker.C:
			s.printStats()
		}
	}
}

// update polls the feed, refreshes the tracked set and queues
// enrichment lookups. API work stays in the background queue.
func (s *Service) update() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in update(): %v", r)
		}
	}()

	s.totalUpdates++

	list, err := s.feed.GetAircraft()
	if err != nil {
		log.Printf("Feed fetch failed: %v", err)
		return
	}

	s.tracker.Ingest(list)
	if s.cfg.Enrichment.Enabled {
		s.tracker.QueueLookups(s.queue, s.elig)
	}
}

// requestComposite wakes the composite worker without blocking.
func (s *Service) requestComposite() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// compositeWorker rebuilds the map background on demand. The memo in
// the compositor makes repeat requests with an unchanged viewport
// nearly free, so the worker also refreshes periodically to pick up
// newly cached tiles after transient fetch failures.
func (s *Service) compositeWorker(ctx context.Context) {
	retryTicker := time.NewTicker(5 * time.Minute)
	defer retryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.refreshCh:
		case <-retryTicker.C:
		}

		img, ok := s.compositor.Background(ctx, s.View())
		if !ok {
			continue
		}
		s.mu.Lock()
		s.background = img
		s.mu.Unlock()
	}
}

// printStats logs a periodic service summary.
func (s *Service) printStats() {
	budget := s.resolver.Budget.Snapshot()
	log.Printf("Stats: %d aircraft tracked | %d lookups queued | API %d/%d today, $%.2f this month | %d feed updates",
		s.tracker.Count(), s.queue.Len(),
		budget.CallsToday, budget.DailyBudget, budget.MonthlyCostUSD,
		s.totalUpdates)

	if age, ok := s.feed.SnapshotAge(); ok && age > time.Minute {
		log.Printf("Feed snapshot is stale (%s old)", age.Round(time.Second))
	}
}
