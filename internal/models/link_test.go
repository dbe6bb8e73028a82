package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_FieldRules(t *testing.T) {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	deadline := now.AddDate(0, 0, 5)

	existing := NewLink("https://example.com/job", "Software Engineer", CategoryJobApplication)
	existing.Priority = 3
	existing.Tags = []string{"x"}
	existing.Notes = "first look"
	existing.CreatedAt = now.AddDate(0, 0, -1)

	incoming := NewLink("https://example.com/job", "Senior Software Engineer", CategoryGrantApplication)
	incoming.Priority = 2
	incoming.Tags = []string{"y", "x"}
	incoming.Notes = "updated details"
	incoming.Deadline = &deadline

	existing.Merge(incoming, now)

	assert.Equal(t, "Senior Software Engineer", existing.Title)
	assert.Equal(t, CategoryGrantApplication, existing.Category)
	assert.Equal(t, 3, existing.Priority, "priority takes the maximum")
	assert.Equal(t, []string{"x", "y"}, existing.Tags, "tags are unioned without duplicates")
	require.NotNil(t, existing.Deadline)
	assert.True(t, existing.Deadline.Equal(deadline))
	assert.Contains(t, existing.Notes, "first look")
	assert.Contains(t, existing.Notes, "updated details")
	assert.Contains(t, existing.Notes, "--- Updated")
	assert.Equal(t, now, existing.UpdatedAt)
}

func TestMerge_KeepsDeadlineWhenIncomingHasNone(t *testing.T) {
	now := time.Now()
	deadline := now.AddDate(0, 0, 7)

	existing := NewLink("https://example.com/a", "A", CategoryOther)
	existing.Deadline = &deadline

	incoming := NewLink("https://example.com/a", "A again", CategoryOther)
	existing.Merge(incoming, now)

	require.NotNil(t, existing.Deadline)
	assert.True(t, existing.Deadline.Equal(deadline))
}

func TestMerge_PriorityMaxFromIncoming(t *testing.T) {
	now := time.Now()
	existing := NewLink("https://example.com/a", "A", CategoryOther)
	existing.Priority = 2

	incoming := NewLink("https://example.com/a", "A", CategoryOther)
	incoming.Priority = 4

	existing.Merge(incoming, now)
	assert.Equal(t, 4, existing.Priority)
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	link := NewLink("https://example.com/a", "A", CategoryOther)
	assert.False(t, link.IsOverdue(now), "no deadline means never overdue")

	link.Deadline = &past
	assert.True(t, link.IsOverdue(now))

	link.Status = StatusDone
	assert.False(t, link.IsOverdue(now), "done items are not overdue")
}

func TestDaysUntilDeadline(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	link := NewLink("https://example.com/a", "A", CategoryOther)
	_, ok := link.DaysUntilDeadline(now)
	assert.False(t, ok)

	in3 := now.AddDate(0, 0, 3)
	link.Deadline = &in3
	days, ok := link.DaysUntilDeadline(now)
	require.True(t, ok)
	assert.Equal(t, 3, days)

	ago2 := now.AddDate(0, 0, -2)
	link.Deadline = &ago2
	days, _ = link.DaysUntilDeadline(now)
	assert.Equal(t, -2, days)
}

func TestDueOn(t *testing.T) {
	now := time.Date(2026, 8, 24, 18, 30, 0, 0, time.UTC)
	deadline := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC) // 7 days out, different clock time

	link := NewLink("https://example.com/a", "A", CategoryOther)
	link.Deadline = &deadline

	assert.True(t, link.DueOn(now, 7))
	assert.False(t, link.DueOn(now, 6))
	assert.False(t, link.DueOn(now, 8))

	link.Status = StatusExpired
	assert.False(t, link.DueOn(now, 7), "inactive items never match")
}

func TestFindByIDPrefix(t *testing.T) {
	a := NewLink("https://example.com/a", "A", CategoryOther)
	b := NewLink("https://example.com/b", "B", CategoryOther)
	a.ID = "abcdef1234567890"
	b.ID = "abcdef9999999999"
	links := []*LinkItem{a, b}

	assert.Same(t, a, FindByIDPrefix(links, "abcdef1234"))
	// On a prefix collision the earliest-created (first) link wins.
	assert.Same(t, a, FindByIDPrefix(links, "abcdef"))
	assert.Nil(t, FindByIDPrefix(links, "zzz"))
	assert.Nil(t, FindByIDPrefix(links, ""))
}
