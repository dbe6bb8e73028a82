package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/linkminder/internal/models"
	"github.com/xaenox/linkminder/internal/storage"
	"go.uber.org/zap"
)

// Scheduler periodically scans every user's links and delivers
// deadline notifications. It holds no state beyond its job table:
// idempotency comes from the links themselves (the persisted
// reminder_sent stamp for the immediate kind, exact-day deadline
// matching for the countdown kinds).
type Scheduler struct {
	storage storage.Storage
	msg     Messenger
	logger  *zap.Logger
	cfg     Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	deliveries sync.WaitGroup
}

func New(store storage.Storage, msg Messenger, logger *zap.Logger, cfg Config) *Scheduler {
	if cfg.ImmediateInterval <= 0 {
		cfg = DefaultConfig()
	}
	def := DefaultConfig()
	cfg.MiddayAt = validClock(cfg.MiddayAt, def.MiddayAt, "midday", logger)
	cfg.EveningAt = validClock(cfg.EveningAt, def.EveningAt, "evening", logger)
	cfg.SummaryAt = validClock(cfg.SummaryAt, def.SummaryAt, "summary", logger)
	return &Scheduler{
		storage: store,
		msg:     msg,
		logger:  logger,
		cfg:     cfg,
	}
}

// job is one scheduled check: run when now passes next, then advance.
type job struct {
	name string
	next time.Time
	// advance computes the run after now.
	advance func(now time.Time) time.Time
	run     func(ctx context.Context, now time.Time)
}

// Start launches the background loop. Idempotent while running.
// It also runs one immediate-reminder check right away so stamps
// pending from before a restart are not delayed a full interval.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("reminder scheduler started")
}

// Stop prevents new passes from starting and waits for the loop and
// any in-flight deliveries to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.deliveries.Wait()
	s.logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	now := time.Now()
	jobs := []*job{
		{
			name:    "immediate",
			next:    now,
			advance: func(t time.Time) time.Time { return t.Add(s.cfg.ImmediateInterval) },
			run:     s.checkImmediate,
		},
		{
			name:    "overdue",
			next:    now.Add(s.cfg.OverdueInterval),
			advance: func(t time.Time) time.Time { return t.Add(s.cfg.OverdueInterval) },
			run:     s.checkOverdue,
		},
		{
			name:    "evening",
			next:    nextDailyAt(now, s.cfg.EveningAt),
			advance: func(t time.Time) time.Time { return nextDailyAt(t, s.cfg.EveningAt) },
			run:     s.checkUpcoming,
		},
		{
			name:    "midday",
			next:    nextDailyAt(now, s.cfg.MiddayAt),
			advance: func(t time.Time) time.Time { return nextDailyAt(t, s.cfg.MiddayAt) },
			run:     s.checkWeeklyCountdowns,
		},
		{
			name:    "daily-summary",
			next:    nextDailyAt(now, s.cfg.SummaryAt),
			advance: func(t time.Time) time.Time { return nextDailyAt(t, s.cfg.SummaryAt) },
			run:     s.sendDailySummaries,
		},
		{
			name:    "weekly-summary",
			next:    nextWeeklyAt(now, s.cfg.SummaryWeekday, s.cfg.SummaryAt),
			advance: func(t time.Time) time.Time { return nextWeeklyAt(t, s.cfg.SummaryWeekday, s.cfg.SummaryAt) },
			run:     s.sendWeeklySummaries,
		},
	}

	// The tick bounds how late a stop request is observed; it is well
	// under the shortest cadence.
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			for _, j := range jobs {
				if tick.Before(j.next) {
					continue
				}
				j.run(ctx, tick)
				j.next = j.advance(tick)
			}
		}
	}
}

// RunPass evaluates every notification kind once against now. Used at
// startup catch-up and in tests; the background loop drives the same
// checks on their individual cadences.
func (s *Scheduler) RunPass(now time.Time) {
	ctx := context.Background()
	s.checkImmediate(ctx, now)
	s.checkOverdue(ctx, now)
	s.checkUpcoming(ctx, now)
	s.checkWeeklyCountdowns(ctx, now)
	s.sendDailySummaries(ctx, now)
	s.sendWeeklySummaries(ctx, now)
	s.deliveries.Wait()
}

// forEachUser runs fn for every stored user, isolating failures: one
// broken record must not silence other users' reminders.
func (s *Scheduler) forEachUser(ctx context.Context, pass string, fn func(userID string) error) {
	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		s.logger.Error("failed to list users",
			zap.Error(err),
			zap.String("pass", pass))
		return
	}

	for _, userID := range users {
		if err := fn(userID); err != nil {
			s.logger.Error("pass failed for user",
				zap.Error(err),
				zap.String("pass", pass),
				zap.String("user_id", userID))
		}
	}
}

// deliver hands the message to the channel without blocking the scan.
// Delivery failures are logged, never retried.
func (s *Scheduler) deliver(userID, text string) {
	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()
		if err := s.msg.Send(userID, text); err != nil {
			s.logger.Error("failed to deliver reminder",
				zap.Error(err),
				zap.String("user_id", userID))
		}
	}()
}

// checkImmediate sends the "deadline set" notification for links that
// are at least ImmediateDelay old and not yet stamped, then persists
// the stamp so no later scan resends it.
func (s *Scheduler) checkImmediate(ctx context.Context, now time.Time) {
	s.forEachUser(ctx, "immediate", func(userID string) error {
		links, err := s.storage.GetUserLinks(ctx, userID)
		if err != nil {
			return err
		}

		for _, link := range links {
			if link.Deadline == nil || link.ReminderSent != nil || !link.IsActive() {
				continue
			}
			if now.Sub(link.CreatedAt) < s.cfg.ImmediateDelay {
				continue
			}

			s.deliver(userID, renderImmediate(link, now))

			stamp := now
			link.ReminderSent = &stamp
			ok, err := s.storage.UpdateLink(ctx, userID, link.ID, link)
			if err != nil {
				return fmt.Errorf("persisting reminder stamp for %s: %w", link.ShortID(), err)
			}
			if !ok {
				// Deleted between scan and stamp; nothing to do.
				continue
			}
			s.logger.Info("sent immediate reminder",
				zap.String("user_id", userID),
				zap.String("link_id", link.ShortID()))
		}
		return nil
	})
}

func (s *Scheduler) checkOverdue(ctx context.Context, now time.Time) {
	s.forEachUser(ctx, "overdue", func(userID string) error {
		links, err := s.storage.GetUserLinks(ctx, userID)
		if err != nil {
			return err
		}

		var overdue []*models.LinkItem
		for _, link := range links {
			if link.Deadline != nil && now.After(*link.Deadline) && link.IsActive() {
				overdue = append(overdue, link)
			}
		}
		if len(overdue) > 0 {
			s.deliver(userID, renderOverdue(overdue, now))
		}
		return nil
	})
}

// checkUpcoming is the evening pass: due today, due tomorrow, due in
// 3 days. Exact calendar-day matching makes each batch fire on one day
// only, as long as the pass runs once per day.
func (s *Scheduler) checkUpcoming(ctx context.Context, now time.Time) {
	s.forEachUser(ctx, "upcoming", func(userID string) error {
		links, err := s.storage.GetUserLinks(ctx, userID)
		if err != nil {
			return err
		}

		if due := dueOnDay(links, now, 0); len(due) > 0 {
			s.deliver(userID, renderDueToday(due))
		}
		if due := dueOnDay(links, now, 1); len(due) > 0 {
			s.deliver(userID, renderDueTomorrow(due))
		}
		if due := dueOnDay(links, now, 3); len(due) > 0 {
			s.deliver(userID, renderDueIn3Days(due))
		}
		return nil
	})
}

// checkWeeklyCountdowns is the midday pass: links due in exactly 1, 2,
// 3 or 4 weeks.
func (s *Scheduler) checkWeeklyCountdowns(ctx context.Context, now time.Time) {
	s.forEachUser(ctx, "weekly-countdown", func(userID string) error {
		links, err := s.storage.GetUserLinks(ctx, userID)
		if err != nil {
			return err
		}

		for _, days := range weeklyCountdowns {
			if due := dueOnDay(links, now, days); len(due) > 0 {
				s.deliver(userID, renderWeeksAhead(due, days/7))
			}
		}
		return nil
	})
}

func (s *Scheduler) sendDailySummaries(ctx context.Context, now time.Time) {
	s.forEachUser(ctx, "daily-summary", func(userID string) error {
		links, err := s.storage.GetUserLinks(ctx, userID)
		if err != nil {
			return err
		}

		if text := renderDailySummary(links, now); text != "" {
			s.deliver(userID, text)
		}
		return nil
	})
}

func (s *Scheduler) sendWeeklySummaries(ctx context.Context, now time.Time) {
	s.forEachUser(ctx, "weekly-summary", func(userID string) error {
		links, err := s.storage.GetUserLinks(ctx, userID)
		if err != nil {
			return err
		}

		if text := renderWeeklySummary(links, now); text != "" {
			s.deliver(userID, text)
		}
		return nil
	})
}

// SendImmediate delivers a reminder for the link matching idPrefix
// right now, bypassing the scan. It does not set reminder_sent and
// fires even if the scheduled reminder already went out. Returns false
// when no link matches.
func (s *Scheduler) SendImmediate(userID, idPrefix string) bool {
	links, err := s.storage.GetUserLinks(context.Background(), userID)
	if err != nil {
		s.logger.Error("failed to load links for manual reminder",
			zap.Error(err),
			zap.String("user_id", userID))
		return false
	}

	link := models.FindByIDPrefix(links, idPrefix)
	if link == nil {
		return false
	}

	s.deliver(userID, renderManualReminder(link, time.Now()))
	return true
}

func dueOnDay(links []*models.LinkItem, now time.Time, days int) []*models.LinkItem {
	var due []*models.LinkItem
	for _, link := range links {
		if link.DueOn(now, days) {
			due = append(due, link)
		}
	}
	return due
}

// validClock returns at when it parses as HH:MM, otherwise logs and
// returns fallback. A typo in the config must not silently schedule a
// daily pass at midnight.
func validClock(at, fallback, name string, logger *zap.Logger) string {
	if _, _, err := parseClock(at); err != nil {
		logger.Warn("invalid schedule time, using default",
			zap.String("schedule", name),
			zap.String("value", at),
			zap.String("default", fallback))
		return fallback
	}
	return at
}

func parseClock(at string) (hour, minute int, err error) {
	n, err := fmt.Sscanf(at, "%d:%d", &hour, &minute)
	if err != nil || n != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", at)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock time %q out of range", at)
	}
	return hour, minute, nil
}

// nextDailyAt returns the next occurrence of the HH:MM wall-clock time
// strictly after now. The at value is validated in New.
func nextDailyAt(now time.Time, at string) time.Time {
	hour, minute, _ := parseClock(at)

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func nextWeeklyAt(now time.Time, day time.Weekday, at string) time.Time {
	next := nextDailyAt(now, at)
	for next.Weekday() != day {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
