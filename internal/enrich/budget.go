package enrich

import (
	"log"
	"sync"
	"time"
)

// Mid-month conservation kicks in after this day of the month.
const midMonthDay = 15

// conservativeDailyCap is the reduced daily allowance for the back
// half of the month.
const conservativeDailyCap = 40

// BudgetConfig sets the spend limits enforced by Budget.
type BudgetConfig struct {
	DailyBudget      int     // max API calls per calendar day
	MaxCallsPerHour  int     // max API calls in any trailing hour
	MonthlyBudgetUSD float64 // hard monthly spend ceiling
	CostPerCallUSD   float64 // estimated cost of one API call
}

// Budget tracks API spend across three windows: a calendar-day
// counter, a trailing one-hour timestamp window, and an estimated
// monthly dollar total. It is safe for concurrent use.
type Budget struct {
	mu  sync.Mutex
	cfg BudgetConfig

	dailyBudget  int // current daily allowance, may shrink mid-month
	callsToday   int
	resetDate    time.Time // date callsToday belongs to
	hourlyCalls  []time.Time
	monthlyCalls int

	// now is replaceable in tests
	now func() time.Time
}

// NewBudget returns a Budget enforcing the given limits.
func NewBudget(cfg BudgetConfig) *Budget {
	b := &Budget{
		cfg:         cfg,
		dailyBudget: cfg.DailyBudget,
		now:         time.Now,
	}
	b.resetDate = dateOf(b.now())
	return b
}

// dateOf truncates t to its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Allow reports whether another API call fits within the daily and
// hourly limits. It does not consume anything; call Record after a
// request is actually made.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.rollDay(now)

	if b.callsToday >= b.dailyBudget {
		log.Printf("enrich: daily API budget reached (%d/%d)", b.callsToday, b.dailyBudget)
		return false
	}

	b.pruneHour(now)
	if len(b.hourlyCalls) >= b.cfg.MaxCallsPerHour {
		log.Printf("enrich: hourly API limit reached (%d/%d)", len(b.hourlyCalls), b.cfg.MaxCallsPerHour)
		return false
	}

	return true
}

// Record counts one completed API call and applies the monthly cost
// guards: a warning at 80% of the monthly budget, a conservative
// daily cap after mid-month, and an emergency stop at 95% that zeroes
// the daily allowance for the rest of the process lifetime.
func (b *Budget) Record() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.rollDay(now)

	b.callsToday++
	b.monthlyCalls++
	b.hourlyCalls = append(b.hourlyCalls, now)
	b.pruneHour(now)

	cost := float64(b.monthlyCalls) * b.cfg.CostPerCallUSD
	if b.cfg.MonthlyBudgetUSD <= 0 {
		return
	}
	usage := cost / b.cfg.MonthlyBudgetUSD

	if usage >= 0.95 {
		if b.dailyBudget != 0 {
			log.Printf("enrich: EMERGENCY STOP, monthly cost $%.2f at %.0f%% of budget, disabling API calls",
				cost, usage*100)
		}
		b.dailyBudget = 0
		return
	}

	if now.Day() > midMonthDay && b.dailyBudget > conservativeDailyCap {
		log.Printf("enrich: past mid-month, reducing daily budget %d -> %d", b.dailyBudget, conservativeDailyCap)
		b.dailyBudget = conservativeDailyCap
	}

	if usage >= 0.80 {
		log.Printf("enrich: monthly cost $%.2f at %.0f%% of $%.2f budget",
			cost, usage*100, b.cfg.MonthlyBudgetUSD)
	}
}

// MonthlyCost returns the estimated spend this month in dollars.
func (b *Budget) MonthlyCost() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.monthlyCalls) * b.cfg.CostPerCallUSD
}

// Stats is a point-in-time snapshot of budget state.
type Stats struct {
	CallsToday     int
	DailyBudget    int
	CallsLastHour  int
	MonthlyCalls   int
	MonthlyCostUSD float64
}

// Snapshot returns current budget counters.
func (b *Budget) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.rollDay(now)
	b.pruneHour(now)

	return Stats{
		CallsToday:     b.callsToday,
		DailyBudget:    b.dailyBudget,
		CallsLastHour:  len(b.hourlyCalls),
		MonthlyCalls:   b.monthlyCalls,
		MonthlyCostUSD: float64(b.monthlyCalls) * b.cfg.CostPerCallUSD,
	}
}

// rollDay resets the daily counter when the calendar date changes.
// Callers must hold b.mu.
func (b *Budget) rollDay(now time.Time) {
	today := dateOf(now)
	if !today.Equal(b.resetDate) {
		b.callsToday = 0
		b.resetDate = today
	}
}

// pruneHour drops timestamps older than one hour. Callers must hold
// b.mu.
func (b *Budget) pruneHour(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := b.hourlyCalls[:0]
	for _, t := range b.hourlyCalls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.hourlyCalls = kept
}
