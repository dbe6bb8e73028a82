package reminder

import "time"

// Kind identifies a notification category. Each kind has its own
// trigger predicate and cadence; idempotency is per kind.
type Kind string

const (
	// KindImmediate fires once per link, shortly after a link with a
	// deadline is added. The only kind with a persisted sent flag.
	KindImmediate Kind = "immediate"
	// KindOverdue re-fires on every overdue pass while the link stays
	// overdue; the repeated nagging is intentional.
	KindOverdue       Kind = "overdue"
	KindDueToday      Kind = "due_today"
	KindDueTomorrow   Kind = "due_tomorrow"
	KindDueIn3Days    Kind = "due_in_3_days"
	KindWeeklyAhead   Kind = "weekly_countdown"
	KindDailySummary  Kind = "daily_summary"
	KindWeeklySummary Kind = "weekly_summary"
)

// Messenger delivers a rendered notification to a user. Delivery is
// fire-and-forget from the scheduler's perspective: errors are logged,
// never retried, and never abort a pass.
type Messenger interface {
	Send(userID string, text string) error
}

// Config holds the scheduler's cadences. Daily and weekly passes rely
// on exact-day deadline matching for dedup, so each must run at most
// once per calendar day; a single Scheduler instance guarantees that,
// running two instances against one store does not.
type Config struct {
	// ImmediateInterval is the scan cadence for KindImmediate.
	ImmediateInterval time.Duration
	// ImmediateDelay is how long after creation the immediate
	// reminder becomes due.
	ImmediateDelay time.Duration
	// OverdueInterval is the cadence of the overdue batch.
	OverdueInterval time.Duration
	// MiddayAt (HH:MM) runs the 7/14/21/28-day countdown pass.
	MiddayAt string
	// EveningAt (HH:MM) runs the today/tomorrow/3-day pass.
	EveningAt string
	// SummaryAt (HH:MM) runs the daily summary; the weekly summary
	// runs at the same time on SummaryWeekday.
	SummaryAt      string
	SummaryWeekday time.Weekday
}

// DefaultConfig mirrors the production schedule.
func DefaultConfig() Config {
	return Config{
		ImmediateInterval: time.Minute,
		ImmediateDelay:    5 * time.Minute,
		OverdueInterval:   4 * time.Hour,
		MiddayAt:          "12:00",
		EveningAt:         "18:00",
		SummaryAt:         "09:00",
		SummaryWeekday:    time.Monday,
	}
}

// weeklyCountdowns are the day offsets of the countdown pass: 1 to 4
// weeks ahead of the deadline.
var weeklyCountdowns = []int{7, 14, 21, 28}
