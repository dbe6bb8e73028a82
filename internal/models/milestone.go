package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Milestone is a sub-task of a link. Milestone IDs are unique within a
// link but not globally.
type Milestone struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AddMilestone appends a new milestone and recomputes progress.
func (l *LinkItem) AddMilestone(title string) *Milestone {
	m := &Milestone{
		ID:    uuid.New().String(),
		Title: title,
	}
	l.Milestones = append(l.Milestones, m)
	l.recomputeProgress()
	return m
}

// CompleteMilestone marks the first uncompleted milestone whose ID
// starts with idPrefix as done and bumps the link's last activity.
// Completing an already-completed milestone is a no-op returning
// false; CompletedAt is never refreshed once set.
func (l *LinkItem) CompleteMilestone(idPrefix string, now time.Time) bool {
	if idPrefix == "" {
		return false
	}
	for _, m := range l.Milestones {
		if m.Completed {
			continue
		}
		if len(m.ID) < len(idPrefix) || m.ID[:len(idPrefix)] != idPrefix {
			continue
		}
		m.Completed = true
		t := now
		m.CompletedAt = &t
		a := now
		l.LastActivity = &a
		l.recomputeProgress()
		return true
	}
	return false
}

// CompletedMilestones returns how many milestones are done.
func (l *LinkItem) CompletedMilestones() int {
	n := 0
	for _, m := range l.Milestones {
		if m.Completed {
			n++
		}
	}
	return n
}

// ProgressSummary renders the completion state, e.g. "2/3 milestones (66%)".
func (l *LinkItem) ProgressSummary() string {
	if len(l.Milestones) == 0 {
		return fmt.Sprintf("%d%% complete", l.Progress)
	}
	return fmt.Sprintf("%d/%d milestones (%d%%)",
		l.CompletedMilestones(), len(l.Milestones), l.Progress)
}

func (l *LinkItem) recomputeProgress() {
	if len(l.Milestones) == 0 {
		l.Progress = 0
		return
	}
	l.Progress = 100 * l.CompletedMilestones() / len(l.Milestones)
}
