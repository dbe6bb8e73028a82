package models

import (
	"sort"
	"time"
)

// UserData is one user's full record: the ordered link collection plus
// an open preferences map. Links are only ever appended, so iteration
// order is chronological.
type UserData struct {
	UserID      string         `json:"user_id"`
	Links       []*LinkItem    `json:"links"`
	Preferences map[string]any `json:"preferences"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func NewUserData(userID string) *UserData {
	now := time.Now()
	return &UserData{
		UserID:      userID,
		Preferences: make(map[string]any),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// FindByURL returns the link with an exact URL match, or nil.
func (u *UserData) FindByURL(url string) *LinkItem {
	for _, l := range u.Links {
		if l.URL == url {
			return l
		}
	}
	return nil
}

// FindByIDPrefix returns the first (earliest-created) link whose ID
// starts with prefix, or nil.
func (u *UserData) FindByIDPrefix(prefix string) *LinkItem {
	return FindByIDPrefix(u.Links, prefix)
}

// OverdueLinks returns links past their deadline and not done.
func (u *UserData) OverdueLinks(now time.Time) []*LinkItem {
	var out []*LinkItem
	for _, l := range u.Links {
		if l.IsOverdue(now) {
			out = append(out, l)
		}
	}
	return out
}

// UpcomingDeadlines returns links due within the next days days,
// sorted ascending by deadline. Done links are excluded.
func (u *UserData) UpcomingDeadlines(now time.Time, days int) []*LinkItem {
	var out []*LinkItem
	for _, l := range u.Links {
		if l.Deadline == nil || l.Status == StatusDone {
			continue
		}
		until, _ := l.DaysUntilDeadline(now)
		if until >= 0 && until <= days {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Deadline.Before(*out[j].Deadline)
	})
	return out
}

// LinksByStatus returns links with the given status.
func (u *UserData) LinksByStatus(status TaskStatus) []*LinkItem {
	var out []*LinkItem
	for _, l := range u.Links {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

// UpdateStatus sets the status of the link with the given full ID.
func (u *UserData) UpdateStatus(linkID string, status TaskStatus, now time.Time) bool {
	for _, l := range u.Links {
		if l.ID == linkID {
			l.Status = status
			l.UpdatedAt = now
			u.UpdatedAt = now
			return true
		}
	}
	return false
}

// Replace swaps the link with the given full ID for updated.
func (u *UserData) Replace(linkID string, updated *LinkItem) bool {
	for i, l := range u.Links {
		if l.ID == linkID {
			u.Links[i] = updated
			u.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// Delete removes the link with the given full ID.
func (u *UserData) Delete(linkID string) bool {
	for i, l := range u.Links {
		if l.ID == linkID {
			u.Links = append(u.Links[:i], u.Links[i+1:]...)
			u.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}
