package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/linkminder/internal/models"
	"github.com/xaenox/linkminder/internal/storage"
	"go.uber.org/zap"
)

type fakeMessenger struct {
	mu      sync.Mutex
	sent    map[string][]string
	failFor map[string]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		sent:    make(map[string][]string),
		failFor: make(map[string]bool),
	}
}

func (f *fakeMessenger) Send(userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[userID] {
		return errors.New("delivery failed")
	}
	f.sent[userID] = append(f.sent[userID], text)
	return nil
}

func (f *fakeMessenger) count(userID, substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, text := range f.sent[userID] {
		if strings.Contains(text, substr) {
			n++
		}
	}
	return n
}

func newTestScheduler(t *testing.T) (*Scheduler, *storage.MemoryStorage, *fakeMessenger) {
	t.Helper()
	store := storage.NewMemoryStorage()
	msg := newFakeMessenger()
	s := New(store, msg, zap.NewNop(), DefaultConfig())
	return s, store, msg
}

// addLink stores a link and pins its creation time, so tests control
// the immediate-reminder window.
func addLink(t *testing.T, store *storage.MemoryStorage, userID string, link *models.LinkItem, createdAt time.Time) *models.LinkItem {
	t.Helper()
	saved, _, err := store.AddOrUpdateLink(context.Background(), userID, link)
	require.NoError(t, err)

	saved.CreatedAt = createdAt
	ok, err := store.UpdateLink(context.Background(), userID, saved.ID, saved)
	require.NoError(t, err)
	require.True(t, ok)
	return saved
}

func TestImmediateReminder_AtMostOnce(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()
	deadline := t0.AddDate(0, 0, 10)

	link := models.NewLink("https://example.com/job", "Apply", models.CategoryJobApplication)
	link.Deadline = &deadline
	saved := addLink(t, store, "u1", link, t0)

	// Too early: the 5-minute window has not elapsed.
	s.RunPass(t0.Add(4 * time.Minute))
	assert.Equal(t, 0, msg.count("u1", "Link Added with Deadline"))

	// First pass inside the window fires exactly once and stamps.
	s.RunPass(t0.Add(6 * time.Minute))
	assert.Equal(t, 1, msg.count("u1", "Link Added with Deadline"))

	links, err := store.GetUserLinks(context.Background(), "u1")
	require.NoError(t, err)
	got := models.FindByIDPrefix(links, saved.ID[:8])
	require.NotNil(t, got)
	assert.NotNil(t, got.ReminderSent, "the stamp must be persisted")

	// Any number of further passes stays at one.
	s.RunPass(t0.Add(10 * time.Minute))
	s.RunPass(t0.Add(2 * time.Hour))
	assert.Equal(t, 1, msg.count("u1", "Link Added with Deadline"))
}

func TestImmediateReminder_SkipsLinksWithoutDeadline(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()

	addLink(t, store, "u1", models.NewLink("https://example.com/a", "A", models.CategoryOther), t0)

	s.RunPass(t0.Add(10 * time.Minute))
	assert.Equal(t, 0, msg.count("u1", "Link Added with Deadline"))
}

func TestImmediateReminder_SkipsDoneItems(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()
	deadline := t0.AddDate(0, 0, 10)

	link := models.NewLink("https://example.com/a", "A", models.CategoryOther)
	link.Deadline = &deadline
	saved := addLink(t, store, "u1", link, t0)

	_, err := store.UpdateLinkStatus(context.Background(), "u1", saved.ID, models.StatusDone)
	require.NoError(t, err)

	s.RunPass(t0.Add(10 * time.Minute))
	assert.Equal(t, 0, msg.count("u1", "Link Added with Deadline"))
}

func TestWeeklyCountdown_FiresOnlyOnTheMatchingDay(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()
	deadline := t0.AddDate(0, 0, 7)

	link := models.NewLink("https://example.com/grant", "Grant", models.CategoryGrantApplication)
	link.Deadline = &deadline
	addLink(t, store, "u1", link, t0.Add(-time.Hour))

	// Day before the 7-day mark, the 7-day mark, day after.
	s.RunPass(t0.AddDate(0, 0, -1))
	s.RunPass(t0)
	s.RunPass(t0.AddDate(0, 0, 1))

	assert.Equal(t, 1, msg.count("u1", "Due in 1 week"), "the exact-day predicate is true on one calendar day only")
}

func TestOverdue_RefiresEveryPass(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()
	yesterday := t0.AddDate(0, 0, -1)

	link := models.NewLink("https://example.com/late", "Late", models.CategoryOther)
	link.Deadline = &yesterday
	addLink(t, store, "u1", link, t0.AddDate(0, 0, -3))

	s.RunPass(t0)
	s.RunPass(t0.Add(4 * time.Hour))
	s.RunPass(t0.Add(8 * time.Hour))

	assert.Equal(t, 3, msg.count("u1", "OVERDUE ITEMS ALERT"), "overdue nagging re-fires by design")
}

func TestDueToday_Fires(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()

	link := models.NewLink("https://example.com/today", "Today", models.CategoryOther)
	link.Deadline = &t0
	addLink(t, store, "u1", link, t0.Add(-time.Hour))

	s.RunPass(t0)
	assert.Equal(t, 1, msg.count("u1", "DUE TODAY"))
}

func TestPass_IsolatesDeliveryFailures(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()
	yesterday := t0.AddDate(0, 0, -1)

	for _, userID := range []string{"bad", "good"} {
		link := models.NewLink("https://example.com/"+userID, "Item", models.CategoryOther)
		link.Deadline = &yesterday
		addLink(t, store, userID, link, t0.AddDate(0, 0, -2))
	}
	msg.failFor["bad"] = true

	s.RunPass(t0)

	assert.Equal(t, 1, msg.count("good", "OVERDUE ITEMS ALERT"),
		"one user's failing channel must not silence the others")
}

func TestImmediateReminder_StampsEvenWhenDeliveryFails(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()
	deadline := t0.AddDate(0, 0, 10)

	link := models.NewLink("https://example.com/a", "A", models.CategoryOther)
	link.Deadline = &deadline
	saved := addLink(t, store, "u1", link, t0)
	msg.failFor["u1"] = true

	s.RunPass(t0.Add(6 * time.Minute))

	links, err := store.GetUserLinks(context.Background(), "u1")
	require.NoError(t, err)
	got := models.FindByIDPrefix(links, saved.ID[:8])
	require.NotNil(t, got)
	assert.NotNil(t, got.ReminderSent, "delivery failures are logged, never retried")
}

func TestDailySummary_SkipsQuietUsers(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()

	// Active user: one todo item.
	addLink(t, store, "active", models.NewLink("https://example.com/a", "A", models.CategoryOther), t0.Add(-time.Hour))

	// Quiet user: everything done, no deadlines.
	done := models.NewLink("https://example.com/b", "B", models.CategoryOther)
	saved := addLink(t, store, "quiet", done, t0.AddDate(0, 0, -30))
	_, err := store.UpdateLinkStatus(context.Background(), "quiet", saved.ID, models.StatusDone)
	require.NoError(t, err)

	s.RunPass(t0)

	assert.Equal(t, 1, msg.count("active", "Daily Summary"))
	assert.Equal(t, 0, msg.count("quiet", "Daily Summary"))
}

func TestWeeklySummary_CountsCompletions(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()

	link := models.NewLink("https://example.com/job", "Job", models.CategoryJobApplication)
	saved := addLink(t, store, "u1", link, t0.AddDate(0, 0, -3))
	_, err := store.UpdateLinkStatus(context.Background(), "u1", saved.ID, models.StatusDone)
	require.NoError(t, err)

	s.RunPass(t0)

	require.Equal(t, 1, msg.count("u1", "Weekly Summary"))
	assert.Equal(t, 1, msg.count("u1", "1 items completed this week"))
}

func TestSendImmediate(t *testing.T) {
	s, store, msg := newTestScheduler(t)
	t0 := time.Now()
	stamp := t0.Add(-time.Hour)
	deadline := t0.AddDate(0, 0, 3)

	link := models.NewLink("https://example.com/a", "A", models.CategoryOther)
	link.Deadline = &deadline
	saved := addLink(t, store, "u1", link, t0.Add(-2*time.Hour))

	// Already stamped by the scan; the manual path fires regardless.
	saved.ReminderSent = &stamp
	_, err := store.UpdateLink(context.Background(), "u1", saved.ID, saved)
	require.NoError(t, err)

	assert.True(t, s.SendImmediate("u1", saved.ID[:8]))
	assert.False(t, s.SendImmediate("u1", "ffffffff"))
	assert.False(t, s.SendImmediate("nobody", "ffffffff"))

	require.Eventually(t, func() bool {
		return msg.count("u1", "Reminder") == 1
	}, time.Second, 10*time.Millisecond)

	links, err := store.GetUserLinks(context.Background(), "u1")
	require.NoError(t, err)
	got := models.FindByIDPrefix(links, saved.ID[:8])
	require.NotNil(t, got)
	assert.True(t, got.ReminderSent.Equal(stamp), "the manual path never touches reminder_sent")
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	s.Start()
	s.Start() // idempotent while running

	doneCh := make(chan struct{})
	go func() {
		s.Stop()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return promptly")
	}

	s.Stop() // idempotent after stop
}

func TestNew_FallsBackOnInvalidClock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MiddayAt = "25:00"
	cfg.EveningAt = "late"

	s := New(storage.NewMemoryStorage(), newFakeMessenger(), zap.NewNop(), cfg)

	assert.Equal(t, "12:00", s.cfg.MiddayAt)
	assert.Equal(t, "18:00", s.cfg.EveningAt)
	assert.Equal(t, "09:00", s.cfg.SummaryAt)
}

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("18:30")
	require.NoError(t, err)
	assert.Equal(t, 18, hour)
	assert.Equal(t, 30, minute)

	for _, bad := range []string{"", "late", "12", "25:00", "12:60"} {
		_, _, err := parseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextDailyAt(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	next := nextDailyAt(now, "18:00")
	assert.Equal(t, time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC), next)

	// Past today's slot: tomorrow.
	next = nextDailyAt(now, "09:00")
	assert.Equal(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC), next)
}

func TestNextWeeklyAt(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	next := nextWeeklyAt(monday, time.Monday, "09:00")
	assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), next)

	next = nextWeeklyAt(monday, time.Wednesday, "09:00")
	assert.Equal(t, time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC), next)
}
