package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Feed defaults
	if cfg.Feed.UpdateIntervalSeconds != 5 {
		t.Errorf("Expected update interval 5s, got %d", cfg.Feed.UpdateIntervalSeconds)
	}
	if cfg.Feed.StaleSeconds != 60 {
		t.Errorf("Expected stale threshold 60s, got %d", cfg.Feed.StaleSeconds)
	}

	// Map defaults
	if cfg.Map.RadiusMiles != 10.0 {
		t.Errorf("Expected radius 10 miles, got %f", cfg.Map.RadiusMiles)
	}
	if cfg.Map.ZoomFactor != 1.0 {
		t.Errorf("Expected zoom factor 1.0, got %f", cfg.Map.ZoomFactor)
	}
	if !cfg.Map.BackgroundEnabled {
		t.Error("Expected backgrounds enabled by default")
	}
	if cfg.Map.FadeIntensity != 0.3 {
		t.Errorf("Expected fade intensity 0.3, got %f", cfg.Map.FadeIntensity)
	}
	if cfg.Map.Brightness != 1.0 || cfg.Map.Contrast != 1.0 || cfg.Map.Saturation != 1.0 {
		t.Error("Expected brightness/contrast/saturation to default to 1.0 (no-op)")
	}

	// Tile defaults
	if cfg.Tiles.Provider != "osm" {
		t.Errorf("Expected osm provider, got %s", cfg.Tiles.Provider)
	}
	if cfg.Tiles.CacheTTLHours != 8760 {
		t.Errorf("Expected 8760 hour tile TTL, got %d", cfg.Tiles.CacheTTLHours)
	}

	// Enrichment defaults
	if cfg.Enrichment.Enabled {
		t.Error("Expected enrichment disabled by default")
	}
	if cfg.Enrichment.DailyBudget != 60 {
		t.Errorf("Expected daily budget 60, got %d", cfg.Enrichment.DailyBudget)
	}
	if cfg.Enrichment.MaxCallsPerHour != 20 {
		t.Errorf("Expected hourly cap 20, got %d", cfg.Enrichment.MaxCallsPerHour)
	}
	if cfg.Enrichment.MonthlyBudgetUSD != 10.0 {
		t.Errorf("Expected $10 monthly budget, got %f", cfg.Enrichment.MonthlyBudgetUSD)
	}
	if cfg.Enrichment.MinCallsignLength != 4 {
		t.Errorf("Expected min callsign length 4, got %d", cfg.Enrichment.MinCallsignLength)
	}

	// Database defaults
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %s", cfg.Database.Driver)
	}

	// Background service defaults
	if !cfg.Background.Enabled {
		t.Error("Expected background service enabled by default")
	}
	if cfg.Background.MaxCallsPerRun != 10 {
		t.Errorf("Expected 10 calls per run, got %d", cfg.Background.MaxCallsPerRun)
	}
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config, got nil")
	}
	if cfg.Map.RadiusMiles != 10.0 {
		t.Errorf("Expected default radius, got %f", cfg.Map.RadiusMiles)
	}
}

// TestLoadPartialFile tests that omitted fields keep default values.
func TestLoadPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
		"map": {
			"center_latitude": 51.5074,
			"center_longitude": -0.1278,
			"radius_miles": 25
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Explicit values
	if cfg.Map.CenterLatitude != 51.5074 {
		t.Errorf("Expected latitude 51.5074, got %f", cfg.Map.CenterLatitude)
	}
	if cfg.Map.RadiusMiles != 25 {
		t.Errorf("Expected radius 25, got %f", cfg.Map.RadiusMiles)
	}

	// Omitted fields keep defaults
	if cfg.Feed.UpdateIntervalSeconds != 5 {
		t.Errorf("Expected default update interval, got %d", cfg.Feed.UpdateIntervalSeconds)
	}
	if cfg.Tiles.Provider != "osm" {
		t.Errorf("Expected default provider, got %s", cfg.Tiles.Provider)
	}
}

// TestLoadInvalidJSON tests that malformed config files are rejected.
func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

// TestSaveAndReload tests the save/load round trip.
func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.json")

	cfg := DefaultConfig()
	cfg.Map.CenterLatitude = 40.7128
	cfg.Map.CenterLongitude = -74.0060
	cfg.Tiles.Provider = "carto_dark"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.Map.CenterLatitude != 40.7128 {
		t.Errorf("Expected latitude 40.7128, got %f", loaded.Map.CenterLatitude)
	}
	if loaded.Tiles.Provider != "carto_dark" {
		t.Errorf("Expected carto_dark provider, got %s", loaded.Tiles.Provider)
	}
}

// TestEnvironmentOverrides tests that environment variables override file values.
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SKYGRID_FLIGHTAWARE_API_KEY", "env-key-123")
	t.Setenv("SKYGRID_TILE_SERVER", "http://tiles.local:8080")

	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.FlightAware.APIKey != "env-key-123" {
		t.Errorf("Expected API key from environment, got %s", cfg.FlightAware.APIKey)
	}
	if cfg.Tiles.CustomServer != "http://tiles.local:8080" {
		t.Errorf("Expected tile server from environment, got %s", cfg.Tiles.CustomServer)
	}
}

// TestValidate tests configuration validation rules.
func TestValidate(t *testing.T) {
	t.Run("Default config is valid", func(t *testing.T) {
		if err := DefaultConfig().Validate(); err != nil {
			t.Errorf("Expected default config to validate, got: %v", err)
		}
	})

	t.Run("Missing feed URL", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Feed.SkyAwareURL = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Expected error for missing feed URL")
		}
	})

	t.Run("Latitude out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Map.CenterLatitude = 91.0
		if err := cfg.Validate(); err == nil {
			t.Error("Expected error for latitude > 90")
		}
	})

	t.Run("Longitude out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Map.CenterLongitude = -181.0
		if err := cfg.Validate(); err == nil {
			t.Error("Expected error for longitude < -180")
		}
	})

	t.Run("Radius out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Map.RadiusMiles = 0.5
		if err := cfg.Validate(); err == nil {
			t.Error("Expected error for radius < 1")
		}

		cfg.Map.RadiusMiles = 101
		if err := cfg.Validate(); err == nil {
			t.Error("Expected error for radius > 100")
		}
	})

	t.Run("Update interval out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Feed.UpdateIntervalSeconds = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Expected error for interval < 1")
		}
	})

	t.Run("Enrichment without API key is valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enrichment.Enabled = true
		cfg.FlightAware.APIKey = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected keyless enrichment to validate, got: %v", err)
		}
	})
}
