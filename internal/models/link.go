package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type LinkCategory string

const (
	CategoryJobApplication   LinkCategory = "job_application"
	CategoryGrantApplication LinkCategory = "grant_application"
	CategoryNotesToRead      LinkCategory = "notes_to_read"
	CategoryResearch         LinkCategory = "research"
	CategoryLearning         LinkCategory = "learning"
	CategoryPersonal         LinkCategory = "personal"
	CategoryOther            LinkCategory = "other"
)

// ParseCategory maps a raw category string to a known category,
// falling back to CategoryOther.
func ParseCategory(s string) LinkCategory {
	switch LinkCategory(s) {
	case CategoryJobApplication, CategoryGrantApplication, CategoryNotesToRead,
		CategoryResearch, CategoryLearning, CategoryPersonal, CategoryOther:
		return LinkCategory(s)
	}
	return CategoryOther
}

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusExpired    TaskStatus = "expired"
	StatusPaused     TaskStatus = "paused"
	StatusWaiting    TaskStatus = "waiting"
)

func ParseStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case StatusTodo, StatusInProgress, StatusDone, StatusExpired, StatusPaused, StatusWaiting:
		return TaskStatus(s), true
	}
	return "", false
}

// LinkItem is a tracked link with an optional deadline. Links are
// deduplicated per user by URL: resubmitting a URL merges into the
// existing item instead of creating a new one.
type LinkItem struct {
	ID           string       `json:"id"`
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Category     LinkCategory `json:"category"`
	Status       TaskStatus   `json:"status"`
	Priority     int          `json:"priority"`
	Tags         []string     `json:"tags"`
	Notes        string       `json:"notes,omitempty"`
	Deadline     *time.Time   `json:"deadline,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastActivity *time.Time   `json:"last_activity,omitempty"`
	ReminderSent *time.Time   `json:"reminder_sent,omitempty"`
	Milestones   []*Milestone `json:"milestones,omitempty"`
	// Progress is derived from milestone completion; never set directly.
	Progress int `json:"progress_percentage"`
}

func NewLink(url, title string, category LinkCategory) *LinkItem {
	return &LinkItem{
		ID:       uuid.New().String(),
		URL:      url,
		Title:    title,
		Category: category,
		Status:   StatusTodo,
		Priority: 1,
	}
}

// ShortID returns the first 8 characters of the ID, the form shown to
// users and accepted by all prefix lookups.
func (l *LinkItem) ShortID() string {
	if len(l.ID) < 8 {
		return l.ID
	}
	return l.ID[:8]
}

// IsActive reports whether the link still needs reminding.
func (l *LinkItem) IsActive() bool {
	return l.Status != StatusDone && l.Status != StatusExpired
}

func (l *LinkItem) IsOverdue(now time.Time) bool {
	if l.Deadline == nil {
		return false
	}
	return now.After(*l.Deadline) && l.Status != StatusDone
}

// DaysUntilDeadline returns whole days until the deadline, negative if
// overdue. The second return is false when no deadline is set.
func (l *LinkItem) DaysUntilDeadline(now time.Time) (int, bool) {
	if l.Deadline == nil {
		return 0, false
	}
	return int(math.Floor(l.Deadline.Sub(now).Hours() / 24)), true
}

// DueOn reports whether the deadline falls on the calendar day that is
// days after now, and the link is still active.
func (l *LinkItem) DueOn(now time.Time, days int) bool {
	if l.Deadline == nil || !l.IsActive() {
		return false
	}
	target := now.AddDate(0, 0, days)
	ty, tm, td := target.Date()
	dy, dm, dd := l.Deadline.Date()
	return ty == dy && tm == dm && td == dd
}

// Merge folds an incoming submission for the same URL into l:
// title, description and category are replaced, priority takes the
// maximum, tags are unioned, the deadline is replaced only when the
// incoming item has one, and notes are appended with a timestamped
// separator. Identity and creation fields are untouched.
func (l *LinkItem) Merge(incoming *LinkItem, now time.Time) {
	l.Title = incoming.Title
	l.Description = incoming.Description
	l.Category = incoming.Category

	if incoming.Priority > l.Priority {
		l.Priority = incoming.Priority
	}

	l.Tags = unionTags(l.Tags, incoming.Tags)

	if incoming.Deadline != nil {
		d := *incoming.Deadline
		l.Deadline = &d
	}

	if incoming.Notes != "" {
		if l.Notes == "" {
			l.Notes = incoming.Notes
		} else {
			l.Notes = fmt.Sprintf("%s\n\n--- Updated %s ---\n%s",
				l.Notes, now.Format("2006-01-02 15:04"), incoming.Notes)
		}
	}

	l.UpdatedAt = now
}

// Clone returns a deep copy sharing no pointers with l. Stores that
// keep link objects in memory hand out clones so callers never alias
// store-owned state.
func (l *LinkItem) Clone() *LinkItem {
	c := *l
	if l.Tags != nil {
		c.Tags = append([]string(nil), l.Tags...)
	}
	if l.Deadline != nil {
		d := *l.Deadline
		c.Deadline = &d
	}
	if l.LastActivity != nil {
		d := *l.LastActivity
		c.LastActivity = &d
	}
	if l.ReminderSent != nil {
		d := *l.ReminderSent
		c.ReminderSent = &d
	}
	if l.Milestones != nil {
		c.Milestones = make([]*Milestone, len(l.Milestones))
		for i, m := range l.Milestones {
			mc := *m
			if m.TargetDate != nil {
				d := *m.TargetDate
				mc.TargetDate = &d
			}
			if m.CompletedAt != nil {
				d := *m.CompletedAt
				mc.CompletedAt = &d
			}
			c.Milestones[i] = &mc
		}
	}
	return &c
}

func unionTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, set := range [][]string{a, b} {
		for _, t := range set {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// FindByIDPrefix returns the first link whose ID starts with prefix.
// Links are stored in insertion order, so on a prefix collision the
// earliest-created link wins.
func FindByIDPrefix(links []*LinkItem, prefix string) *LinkItem {
	if prefix == "" {
		return nil
	}
	for _, l := range links {
		if len(l.ID) >= len(prefix) && l.ID[:len(prefix)] == prefix {
			return l
		}
	}
	return nil
}
