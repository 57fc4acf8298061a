package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the complete application configuration.
type Config struct {
	Feed        FeedConfig        `json:"feed"`
	Map         MapConfig         `json:"map"`
	Tiles       TileConfig        `json:"tiles"`
	Enrichment  EnrichmentConfig  `json:"enrichment"`
	FlightAware FlightAwareConfig `json:"flightaware"`
	Database    DatabaseConfig    `json:"database"`
	Background  BackgroundConfig  `json:"background_service"`
	Display     DisplayConfig     `json:"display"`
}

// FeedConfig contains ADS-B receiver feed settings.
type FeedConfig struct {
	// SkyAwareURL is the dump1090/SkyAware aircraft.json endpoint
	// (e.g., "http://192.168.1.30/skyaware/data/aircraft.json")
	SkyAwareURL string `json:"skyaware_url"`

	// UpdateIntervalSeconds is how often to poll the feed (1-300)
	UpdateIntervalSeconds int `json:"update_interval_seconds"`

	// StaleSeconds is how long an aircraft remains tracked without
	// a position update before being dropped
	StaleSeconds int `json:"stale_seconds"`
}

// MapConfig contains the viewport and map appearance settings.
type MapConfig struct {
	// CenterLatitude in decimal degrees (-90 to +90)
	CenterLatitude float64 `json:"center_latitude"`

	// CenterLongitude in decimal degrees (-180 to +180)
	CenterLongitude float64 `json:"center_longitude"`

	// RadiusMiles is the tracked radius in statute miles (1-100)
	RadiusMiles float64 `json:"radius_miles"`

	// ZoomFactor magnifies the view (1.0 = none, 2.0 = 2x zoom in)
	ZoomFactor float64 `json:"zoom_factor"`

	// BackgroundEnabled toggles map tile backgrounds entirely
	BackgroundEnabled bool `json:"background_enabled"`

	// FadeIntensity blends the background toward black (0 = black,
	// 1.0 = full brightness)
	FadeIntensity float64 `json:"fade_intensity"`

	// Brightness, Contrast and Saturation adjust the composited
	// background; 1.0 is a no-op for each
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`

	// ShowTrails enables per-aircraft position trails
	ShowTrails bool `json:"show_trails"`

	// TrailLength is the maximum number of retained trail points
	TrailLength int `json:"trail_length"`
}

// TileConfig contains tile provider and cache settings.
type TileConfig struct {
	// Provider selects the tile source: "osm", "carto", "carto_dark",
	// "stamen" or "esri"
	Provider string `json:"provider"`

	// CustomServer is the base URL of a self-hosted tile server
	// (e.g., "http://tiles.local:8080"). When set it takes priority
	// over Provider.
	CustomServer string `json:"custom_server"`

	// CacheDir is the tile cache directory. Empty selects a directory
	// under the user cache dir, falling back to the system temp dir.
	CacheDir string `json:"cache_dir"`

	// CacheTTLHours is the tile cache lifetime. Map tiles change
	// rarely, so the default is one year.
	CacheTTLHours int `json:"cache_ttl_hours"`

	// DisableOnCacheError disables backgrounds after repeated
	// consecutive cache write failures
	DisableOnCacheError bool `json:"disable_on_cache_error"`

	// FetchTimeoutSeconds bounds a single tile download
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`
}

// EnrichmentConfig contains flight plan enrichment settings.
type EnrichmentConfig struct {
	// Enabled toggles flight plan lookups entirely
	Enabled bool `json:"enabled"`

	// UseOfflineDatabase enables the local aircraft registry as the
	// first (free) resolution source
	UseOfflineDatabase bool `json:"use_offline_database"`

	// CacheTTLHours is how long resolved flight plans stay fresh
	CacheTTLHours int `json:"cache_ttl_hours"`

	// MinCallsignLength filters out short/garbage callsigns
	MinCallsignLength int `json:"min_callsign_length"`

	// CallsignPrefixes restricts API lookups to known operator
	// prefixes. Empty uses the built-in airline list.
	CallsignPrefixes []string `json:"callsign_prefixes"`

	// DailyBudget is the maximum API calls per day
	DailyBudget int `json:"daily_api_budget"`

	// MaxCallsPerHour is the trailing one-hour call cap
	MaxCallsPerHour int `json:"max_api_calls_per_hour"`

	// MonthlyBudgetUSD is the hard monthly spend ceiling
	MonthlyBudgetUSD float64 `json:"monthly_budget_usd"`

	// CostPerCallUSD is the per-request price used for cost tracking
	CostPerCallUSD float64 `json:"cost_per_call_usd"`
}

// FlightAwareConfig contains FlightAware AeroAPI settings.
type FlightAwareConfig struct {
	// APIKey is the FlightAware API key for AeroAPI v4
	// Sign up at: https://www.flightaware.com/aeroapi/
	APIKey string `json:"api_key"`

	// RequestsPerHour is the transport-level request floor passed to
	// the client's rate limiter
	RequestsPerHour int `json:"requests_per_hour"`
}

// DatabaseConfig contains offline aircraft registry settings.
type DatabaseConfig struct {
	// Driver is the database driver ("sqlite" or "postgres")
	Driver string `json:"driver"`

	// Path is the SQLite database file (sqlite driver only)
	Path string `json:"path"`

	// Host is the database server hostname (postgres driver only)
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`
}

// BackgroundConfig contains the deferred enrichment service settings.
type BackgroundConfig struct {
	// Enabled toggles the background fetch loop
	Enabled bool `json:"enabled"`

	// FetchIntervalHours is how often the queue is drained
	FetchIntervalHours int `json:"fetch_interval_hours"`

	// MaxCallsPerRun caps API calls per drain
	MaxCallsPerRun int `json:"max_calls_per_run"`
}

// DisplayConfig contains output dimensions for the composited map.
type DisplayConfig struct {
	// Width and Height in pixels
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON on top of defaults so omitted fields keep sane values
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON with indentation
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			SkyAwareURL:           "http://localhost/skyaware/data/aircraft.json",
			UpdateIntervalSeconds: 5,
			StaleSeconds:          60,
		},
		Map: MapConfig{
			CenterLatitude:    27.9506,
			CenterLongitude:   -82.4572,
			RadiusMiles:       10.0,
			ZoomFactor:        1.0,
			BackgroundEnabled: true,
			FadeIntensity:     0.3,
			Brightness:        1.0,
			Contrast:          1.0,
			Saturation:        1.0,
			ShowTrails:        false,
			TrailLength:       10,
		},
		Tiles: TileConfig{
			Provider:            "osm",
			CacheTTLHours:       8760, // Tiles rarely change; cache for a year
			DisableOnCacheError: false,
			FetchTimeoutSeconds: 10,
		},
		Enrichment: EnrichmentConfig{
			Enabled:            false,
			UseOfflineDatabase: true,
			CacheTTLHours:      12,
			MinCallsignLength:  4,
			DailyBudget:        60,
			MaxCallsPerHour:    20,
			MonthlyBudgetUSD:   10.0,
			CostPerCallUSD:     0.005,
		},
		FlightAware: FlightAwareConfig{
			RequestsPerHour: 20,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Path:     "aircraft.db",
			Host:     "localhost",
			Port:     5432,
			Database: "skygrid",
			Username: "skygrid",
			SSLMode:  "disable",
		},
		Background: BackgroundConfig{
			Enabled:            true,
			FetchIntervalHours: 4,
			MaxCallsPerRun:     10,
		},
		Display: DisplayConfig{
			Width:  800,
			Height: 480,
		},
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Feed.SkyAwareURL == "" {
		return fmt.Errorf("missing required configuration: feed.skyaware_url")
	}

	if c.Map.CenterLatitude < -90 || c.Map.CenterLatitude > 90 {
		return fmt.Errorf("invalid center_latitude: %f (must be between -90 and 90)", c.Map.CenterLatitude)
	}
	if c.Map.CenterLongitude < -180 || c.Map.CenterLongitude > 180 {
		return fmt.Errorf("invalid center_longitude: %f (must be between -180 and 180)", c.Map.CenterLongitude)
	}
	if c.Map.RadiusMiles < 1 || c.Map.RadiusMiles > 100 {
		return fmt.Errorf("invalid radius_miles: %f (must be between 1 and 100)", c.Map.RadiusMiles)
	}
	if c.Feed.UpdateIntervalSeconds < 1 || c.Feed.UpdateIntervalSeconds > 300 {
		return fmt.Errorf("invalid update_interval_seconds: %d (must be between 1 and 300)", c.Feed.UpdateIntervalSeconds)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("invalid display dimensions: %dx%d", c.Display.Width, c.Display.Height)
	}

	// Enrichment without an API key still works (offline DB + category
	// heuristics), so a missing key is not a validation failure.
	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like API keys to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if url := os.Getenv("SKYGRID_SKYAWARE_URL"); url != "" {
		c.Feed.SkyAwareURL = url
	}
	if key := os.Getenv("SKYGRID_FLIGHTAWARE_API_KEY"); key != "" {
		c.FlightAware.APIKey = key
	}
	if password := os.Getenv("SKYGRID_DB_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if dir := os.Getenv("SKYGRID_TILE_CACHE_DIR"); dir != "" {
		c.Tiles.CacheDir = dir
	}
	if server := os.Getenv("SKYGRID_TILE_SERVER"); server != "" {
		c.Tiles.CustomServer = server
	}
}
