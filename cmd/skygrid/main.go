package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/unklstewy/skygrid/internal/enrich"
	"github.com/unklstewy/skygrid/internal/registry"
	"github.com/unklstewy/skygrid/internal/tiles"
	"github.com/unklstewy/skygrid/internal/tracker"
	"github.com/unklstewy/skygrid/pkg/adsb"
	"github.com/unklstewy/skygrid/pkg/config"
	"github.com/unklstewy/skygrid/pkg/flightaware"
)

// skygrid polls a local ADS-B receiver, keeps a composited map
// background fresh, and enriches tracked aircraft with flight plan
// data within the configured API budget. Rendering clients take the
// current background and aircraft snapshot through the Service.
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  SkyGrid Flight Map Service")
	log.Println("===========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Configuration loaded from: %s", *configPath)
	log.Printf("Center: %.4f, %.4f (radius %.0f mi, zoom factor %.1f)",
		cfg.Map.CenterLatitude, cfg.Map.CenterLongitude, cfg.Map.RadiusMiles, cfg.Map.ZoomFactor)
	log.Printf("Feed: %s every %ds", cfg.Feed.SkyAwareURL, cfg.Feed.UpdateIntervalSeconds)
	log.Printf("Display: %dx%d", cfg.Display.Width, cfg.Display.Height)

	svc, err := buildService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	doneChan := make(chan struct{})
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in service loop: %v", r)
			}
			close(doneChan)
		}()
		svc.Run(ctx)
	}()

	log.Println("===========================================")
	log.Println("  Service started")
	log.Println("  Press Ctrl+C to stop")
	log.Println("===========================================")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		cancel()
		<-doneChan
	case <-doneChan:
		log.Println("Service loop stopped")
	}

	log.Println("Shutting down gracefully...")
	log.Println("Service stopped")
}

// buildService wires the full pipeline from configuration.
func buildService(cfg *config.Config) (*Service, error) {
	// Tile path: store, fetcher, compositor
	store, err := tiles.NewStore(cfg.Tiles.CacheDir,
		time.Duration(cfg.Tiles.CacheTTLHours)*time.Hour,
		cfg.Tiles.DisableOnCacheError)
	if err != nil {
		return nil, err
	}
	log.Printf("Tile cache: %s", store.Dir())

	provider := tiles.ForName(cfg.Tiles.Provider)
	if cfg.Tiles.CustomServer != "" {
		provider = tiles.Custom(cfg.Tiles.CustomServer)
	}
	log.Printf("Tile provider: %s", provider.Name)

	fetcher := tiles.NewFetcher(store, provider,
		time.Duration(cfg.Tiles.FetchTimeoutSeconds)*time.Second)

	var compositor *tiles.Compositor
	if cfg.Map.BackgroundEnabled {
		compositor = tiles.NewCompositor(fetcher, store, tiles.Appearance{
			FadeIntensity: cfg.Map.FadeIntensity,
			Brightness:    cfg.Map.Brightness,
			Contrast:      cfg.Map.Contrast,
			Saturation:    cfg.Map.Saturation,
		})
	}

	// Enrichment path: registry, cache, budget, resolver, queue
	var reg *registry.Store
	if cfg.Enrichment.UseOfflineDatabase {
		reg, err = registry.Open(cfg.Database)
		if err != nil {
			// The registry is a free optimization, not a requirement
			log.Printf("Offline aircraft registry unavailable: %v", err)
			reg = nil
		} else if st, err := reg.GetStats(context.Background()); err == nil {
			log.Printf("Offline aircraft registry: %d aircraft (%d FAA, %d OpenSky)",
				st.TotalAircraft, st.FAACount, st.OpenSkyCount)
		}
	}

	cacheDir, err := enrichCacheDir()
	if err != nil {
		return nil, err
	}
	planCache, err := enrich.NewCache(cacheDir)
	if err != nil {
		return nil, err
	}

	elig := enrich.Eligibility{
		MinCallsignLength: cfg.Enrichment.MinCallsignLength,
		ExtraPrefixes:     cfg.Enrichment.CallsignPrefixes,
	}

	resolver := &enrich.Resolver{
		Cache: planCache,
		Budget: enrich.NewBudget(enrich.BudgetConfig{
			DailyBudget:      cfg.Enrichment.DailyBudget,
			MaxCallsPerHour:  cfg.Enrichment.MaxCallsPerHour,
			MonthlyBudgetUSD: cfg.Enrichment.MonthlyBudgetUSD,
			CostPerCallUSD:   cfg.Enrichment.CostPerCallUSD,
		}),
		Elig:     elig,
		Enabled:  cfg.Enrichment.Enabled,
		CacheTTL: time.Duration(cfg.Enrichment.CacheTTLHours) * time.Hour,
	}
	if reg != nil {
		resolver.Registry = reg
	}
	if cfg.FlightAware.APIKey != "" {
		resolver.API = flightaware.NewClient(flightaware.Config{
			APIKey:          cfg.FlightAware.APIKey,
			RequestsPerHour: cfg.FlightAware.RequestsPerHour,
		})
	} else if cfg.Enrichment.Enabled {
		log.Println("Enrichment enabled but no API key configured; offline sources only")
	}

	return &Service{
		cfg:        cfg,
		feed:       adsb.NewSkyAwareClient(cfg.Feed.SkyAwareURL),
		registry:   reg,
		compositor: compositor,
		resolver:   resolver,
		queue:      enrich.NewQueue(resolver),
		elig:       elig,
		tracker: tracker.New(tracker.Options{
			CenterLatitude:  cfg.Map.CenterLatitude,
			CenterLongitude: cfg.Map.CenterLongitude,
			RadiusMiles:     cfg.Map.RadiusMiles,
			StaleAfter:      time.Duration(cfg.Feed.StaleSeconds) * time.Second,
			ShowTrails:      cfg.Map.ShowTrails,
			TrailLength:     cfg.Map.TrailLength,
		}),
		refreshCh: make(chan struct{}, 1),
	}, nil
}

// enrichCacheDir picks the flight plan cache location.
func enrichCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "skygrid", "flight_plans"), nil
}
