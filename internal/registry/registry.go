// Package registry provides the offline aircraft registration
// database: a SQL-backed lookup store keyed by ICAO24 hex address,
// populated from FAA and OpenSky dumps by external loaders. Lookups
// here are free, so they are always tried before any paid API call.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/unklstewy/skygrid/pkg/config"
	_ "modernc.org/sqlite" // embedded SQLite driver
)

// Aircraft is one registry row.
type Aircraft struct {
	ICAO24       string
	Registration string
	Manufacturer string
	Model        string
	TypeAircraft string
	TypeEngine   string
	SerialNumber string
	Operator     string
	OwnerName    string
	LastUpdated  time.Time
	Source       string
}

// TypeDescription builds the best human-readable type string for an
// aircraft: manufacturer plus model when both are known, then the
// type designator, then the bare model.
func (a *Aircraft) TypeDescription() string {
	if a.Manufacturer != "" && a.Model != "" {
		return strings.TrimSpace(a.Manufacturer + " " + a.Model)
	}
	if a.TypeAircraft != "" {
		return a.TypeAircraft
	}
	return a.Model
}

// Stats summarizes registry contents.
type Stats struct {
	TotalAircraft int
	FAACount      int
	OpenSkyCount  int
}

// Store wraps a database connection with registry queries. The
// backing driver is selected by configuration: embedded SQLite by
// default, PostgreSQL for shared deployments.
type Store struct {
	db       *sql.DB
	postgres bool
}

const schema = `
CREATE TABLE IF NOT EXISTS aircraft (
    icao24 TEXT PRIMARY KEY,
    registration TEXT,
    manufacturer TEXT,
    model TEXT,
    type_aircraft TEXT,
    type_engine TEXT,
    serial_number TEXT,
    operator TEXT,
    owner_name TEXT,
    last_updated TEXT,
    source TEXT
);
CREATE INDEX IF NOT EXISTS idx_aircraft_registration ON aircraft(registration);
CREATE INDEX IF NOT EXISTS idx_aircraft_icao24 ON aircraft(icao24);
`

// Open connects to the registry database and ensures the schema
// exists.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var (
		db  *sql.DB
		err error
		pg  bool
	)

	switch cfg.Driver {
	case "", "sqlite":
		db, err = sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// Single writer keeps modernc's file locking simple
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	case "postgres":
		pg = true
		connStr := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode,
		)
		db, err = sql.Open("postgres", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	s := &Store{db: db, postgres: pg}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to $n for the PostgreSQL driver.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const selectColumns = `icao24, registration, manufacturer, model, type_aircraft,
    type_engine, serial_number, operator, owner_name, last_updated, source`

// LookupICAO24 finds an aircraft by its ICAO24 hex address,
// case-insensitively. Returns nil without error when absent.
func (s *Store) LookupICAO24(ctx context.Context, icao24 string) (*Aircraft, error) {
	query := s.rebind(`SELECT ` + selectColumns + ` FROM aircraft WHERE LOWER(icao24) = LOWER(?)`)
	return s.scanOne(s.db.QueryRowContext(ctx, query, icao24))
}

// LookupRegistration finds an aircraft by tail number,
// case-insensitively. Returns nil without error when absent.
func (s *Store) LookupRegistration(ctx context.Context, registration string) (*Aircraft, error) {
	query := s.rebind(`SELECT ` + selectColumns + ` FROM aircraft WHERE LOWER(registration) = LOWER(?)`)
	return s.scanOne(s.db.QueryRowContext(ctx, query, registration))
}

func (s *Store) scanOne(row *sql.Row) (*Aircraft, error) {
	var (
		a       Aircraft
		updated sql.NullString
	)
	fields := make([]sql.NullString, 8)
	err := row.Scan(&a.ICAO24, &fields[0], &fields[1], &fields[2], &fields[3],
		&fields[4], &fields[5], &fields[6], &fields[7], &updated, &a.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan aircraft row: %w", err)
	}
	a.Registration = fields[0].String
	a.Manufacturer = fields[1].String
	a.Model = fields[2].String
	a.TypeAircraft = fields[3].String
	a.TypeEngine = fields[4].String
	a.SerialNumber = fields[5].String
	a.Operator = fields[6].String
	a.OwnerName = fields[7].String
	if updated.Valid {
		if t, perr := time.Parse(time.RFC3339, updated.String); perr == nil {
			a.LastUpdated = t
		}
	}
	return &a, nil
}

// Upsert inserts or replaces one registry row. ICAO24 addresses are
// stored lower-cased so the primary key stays canonical.
func (s *Store) Upsert(ctx context.Context, a *Aircraft) error {
	query := s.rebind(`
        INSERT INTO aircraft (icao24, registration, manufacturer, model,
            type_aircraft, type_engine, serial_number, operator, owner_name,
            last_updated, source)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (icao24) DO UPDATE SET
            registration = excluded.registration,
            manufacturer = excluded.manufacturer,
            model = excluded.model,
            type_aircraft = excluded.type_aircraft,
            type_engine = excluded.type_engine,
            serial_number = excluded.serial_number,
            operator = excluded.operator,
            owner_name = excluded.owner_name,
            last_updated = excluded.last_updated,
            source = excluded.source`)

	updated := a.LastUpdated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		strings.ToLower(a.ICAO24), a.Registration, a.Manufacturer, a.Model,
		a.TypeAircraft, a.TypeEngine, a.SerialNumber, a.Operator, a.OwnerName,
		updated.Format(time.RFC3339), a.Source)
	if err != nil {
		return fmt.Errorf("failed to upsert aircraft %s: %w", a.ICAO24, err)
	}
	return nil
}

// GetStats returns row counts by source.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM aircraft`).Scan(&st.TotalAircraft); err != nil {
		return nil, fmt.Errorf("failed to count aircraft: %w", err)
	}
	bySource := s.rebind(`SELECT COUNT(*) FROM aircraft WHERE source = ?`)
	if err := s.db.QueryRowContext(ctx, bySource, "FAA").Scan(&st.FAACount); err != nil {
		return nil, fmt.Errorf("failed to count FAA aircraft: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, bySource, "OpenSky").Scan(&st.OpenSkyCount); err != nil {
		return nil, fmt.Errorf("failed to count OpenSky aircraft: %w", err)
	}
	return &st, nil
}

// RegistrationToICAO24 derives an approximate ICAO24 hex address from
// a registration. The real mapping is country-specific and not
// derivable from the tail number alone; this mirrors the historical
// best-effort placeholder and is only used when the feed supplies no
// hex address.
func RegistrationToICAO24(registration string) string {
	if strings.HasPrefix(registration, "N") {
		rest := strings.ToLower(registration[1:])
		for len(rest) < 5 {
			rest = "0" + rest
		}
		return "a" + rest
	}
	flat := strings.ToLower(strings.ReplaceAll(registration, "-", ""))
	for len(flat) < 6 {
		flat = "0" + flat
	}
	return flat[:6]
}
