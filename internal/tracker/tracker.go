// Package tracker owns the set of aircraft currently on the map:
// ingesting feed snapshots, filtering by range, expiring stale
// entries, maintaining position trails, and feeding the enrichment
// queue with callsigns worth looking up.
package tracker

import (
	"image/color"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/unklstewy/skygrid/internal/enrich"
	"github.com/unklstewy/skygrid/pkg/adsb"
	"github.com/unklstewy/skygrid/pkg/projection"
)

// Aircraft closer than this get queue priority over the rest.
const nearThresholdMiles = 5.0

// DefaultStaleAfter removes aircraft not heard from in this long.
const DefaultStaleAfter = 60 * time.Second

// TrailPoint is one historical position of a tracked aircraft.
type TrailPoint struct {
	Latitude  float64
	Longitude float64
	When      time.Time
}

// Tracked is an aircraft inside the watch radius, annotated with the
// derived fields the display layer needs.
type Tracked struct {
	adsb.Aircraft

	// DistanceMiles from the configured center point
	DistanceMiles float64

	// Color for the map marker, derived from altitude
	Color color.RGBA

	// Trail holds recent positions, oldest first, when trails are on
	Trail []TrailPoint
}

// Options configures a Tracker.
type Options struct {
	CenterLatitude  float64
	CenterLongitude float64
	RadiusMiles     float64

	// StaleAfter removes aircraft unheard for this long.
	// Zero means DefaultStaleAfter.
	StaleAfter time.Duration

	ShowTrails  bool
	TrailLength int
}

// Tracker maintains the live aircraft set. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	opts     Options
	aircraft map[string]*Tracked

	now func() time.Time
}

// New returns an empty Tracker.
func New(opts Options) *Tracker {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.TrailLength <= 0 {
		opts.TrailLength = 10
	}
	return &Tracker{
		opts:     opts,
		aircraft: make(map[string]*Tracked),
		now:      time.Now,
	}
}

// Ingest merges one feed snapshot into the tracked set. Aircraft
// without a position fix or outside the watch radius are skipped, and
// entries unheard for longer than the staleness window are removed.
// Returns the number of aircraft now tracked.
func (t *Tracker) Ingest(list []adsb.Aircraft) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	withPosition := 0
	inRange := 0

	for _, a := range list {
		if a.ICAO == "" || !a.HasPosition() {
			continue
		}
		withPosition++

		dist := projection.DistanceMiles(a.Latitude, a.Longitude,
			t.opts.CenterLatitude, t.opts.CenterLongitude)
		if dist > t.opts.RadiusMiles {
			continue
		}
		inRange++

		entry, ok := t.aircraft[a.ICAO]
		if !ok {
			entry = &Tracked{}
			t.aircraft[a.ICAO] = entry
		}
		entry.Aircraft = a
		entry.DistanceMiles = dist
		entry.Color = AltitudeColor(a.Altitude)

		if t.opts.ShowTrails {
			entry.Trail = append(entry.Trail, TrailPoint{
				Latitude:  a.Latitude,
				Longitude: a.Longitude,
				When:      now,
			})
			if len(entry.Trail) > t.opts.TrailLength {
				entry.Trail = entry.Trail[len(entry.Trail)-t.opts.TrailLength:]
			}
		}
	}

	removed := t.expireLocked(now)
	log.Printf("tracker: snapshot %d aircraft, %d with position, %d in range (%.0f mi), tracking %d, removed %d stale",
		len(list), withPosition, inRange, t.opts.RadiusMiles, len(t.aircraft), removed)
	return len(t.aircraft)
}

// expireLocked drops aircraft unheard past the staleness window.
// Callers must hold t.mu.
func (t *Tracker) expireLocked(now time.Time) int {
	removed := 0
	for icao, entry := range t.aircraft {
		if now.Sub(entry.LastSeen) > t.opts.StaleAfter {
			delete(t.aircraft, icao)
			removed++
		}
	}
	return removed
}

// Count returns the number of tracked aircraft.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.aircraft)
}

// Snapshot returns the tracked aircraft sorted nearest first.
func (t *Tracker) Snapshot() []Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Tracked, 0, len(t.aircraft))
	for _, entry := range t.aircraft {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DistanceMiles < out[j].DistanceMiles
	})
	return out
}

// Closest returns the nearest tracked aircraft, or nil when none.
func (t *Tracker) Closest() *Tracked {
	return t.pick(func(a, b *Tracked) bool { return a.DistanceMiles < b.DistanceMiles })
}

// Fastest returns the tracked aircraft with the highest ground speed.
func (t *Tracker) Fastest() *Tracked {
	return t.pick(func(a, b *Tracked) bool { return a.GroundSpeed > b.GroundSpeed })
}

// Highest returns the tracked aircraft at the greatest altitude.
func (t *Tracker) Highest() *Tracked {
	return t.pick(func(a, b *Tracked) bool { return a.Altitude > b.Altitude })
}

func (t *Tracker) pick(better func(a, b *Tracked) bool) *Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *Tracked
	for _, entry := range t.aircraft {
		if best == nil || better(entry, best) {
			best = entry
		}
	}
	if best == nil {
		return nil
	}
	cp := *best
	return &cp
}

// QueueLookups enqueues enrichment for tracked aircraft whose
// callsigns justify an API call, nearest first, with closer aircraft
// at higher priority. The queue itself skips callsigns already
// cached.
func (t *Tracker) QueueLookups(q *enrich.Queue, elig enrich.Eligibility) {
	for _, a := range t.Snapshot() {
		if !elig.WorthFetching(a.Callsign) {
			continue
		}
		priority := enrich.PriorityFar
		if a.DistanceMiles < nearThresholdMiles {
			priority = enrich.PriorityNear
		}
		q.Enqueue(a.Callsign, a.ICAO, priority)
	}
}
