package enrich

import (
	"context"
	"log"
	"sort"
	"sync"
)

// Queue priorities. Lower drains first.
const (
	PriorityNear = 1 // aircraft close to the center
	PriorityFar  = 2
)

type queueEntry struct {
	callsign string
	icao24   string
	priority int
}

// Queue defers enrichment lookups so the display path never waits on
// the API. Entries are deduplicated by callsign and drained in
// priority order by a background interval, stopping early when the
// budget runs out.
type Queue struct {
	mu       sync.Mutex
	pending  map[string]queueEntry
	resolver *Resolver
}

// NewQueue returns an empty queue draining through the resolver.
func NewQueue(resolver *Resolver) *Queue {
	return &Queue{
		pending:  make(map[string]queueEntry),
		resolver: resolver,
	}
}

// Enqueue adds a lookup request. Re-adding an existing callsign keeps
// the more urgent priority. Callsigns with a fresh cached Record are
// skipped.
func (q *Queue) Enqueue(callsign, icao24 string, priority int) {
	if callsign == "" {
		return
	}
	if q.resolver.IsCached(callsign) {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if existing, ok := q.pending[callsign]; ok {
		if priority < existing.priority {
			existing.priority = priority
			q.pending[callsign] = existing
		}
		return
	}
	q.pending[callsign] = queueEntry{callsign: callsign, icao24: icao24, priority: priority}
}

// Len returns the number of queued lookups.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain resolves up to maxCalls queued entries in priority order.
// When the budget denies further calls the remaining entries stay
// queued for the next run. Returns the number of entries processed.
func (q *Queue) Drain(ctx context.Context, maxCalls int) int {
	q.mu.Lock()
	entries := make([]queueEntry, 0, len(q.pending))
	for _, e := range q.pending {
		entries = append(entries, e)
	}
	q.mu.Unlock()

	if len(entries) == 0 {
		return 0
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].callsign < entries[j].callsign
	})

	processed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if processed >= maxCalls {
			break
		}
		if !q.resolver.Budget.Allow() {
			log.Printf("enrich: budget exhausted, %d lookups still queued", len(entries)-processed)
			break
		}
		q.resolver.Resolve(ctx, e.callsign, e.icao24)
		q.mu.Lock()
		delete(q.pending, e.callsign)
		q.mu.Unlock()
		processed++
	}
	if processed > 0 {
		log.Printf("enrich: background drain processed %d lookups", processed)
	}
	return processed
}
