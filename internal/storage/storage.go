package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/linkminder/internal/models"
)

var (
	// ErrNotFound is returned when a user or link does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidLink is returned for candidates that fail validation
	// before any merge is attempted.
	ErrInvalidLink = errors.New("storage: invalid link")
)

// Storage is durable keyed storage of per-user link collections.
// AddOrUpdateLink owns the merge-on-write dedup semantics: at most one
// link per (user, URL) pair exists at any time.
//
// Implementations serialize writes per user, so a foreground add and a
// background reminder stamp racing on the same user cannot lose either
// write. The full collection is rewritten on every mutation.
type Storage interface {
	// AddOrUpdateLink inserts link, or merges it into the existing
	// link with the same URL. The bool is true when a new link was
	// created.
	AddOrUpdateLink(ctx context.Context, userID string, link *models.LinkItem) (*models.LinkItem, bool, error)
	GetUserLinks(ctx context.Context, userID string) ([]*models.LinkItem, error)
	GetOverdueLinks(ctx context.Context, userID string) ([]*models.LinkItem, error)
	GetUpcomingDeadlines(ctx context.Context, userID string, days int) ([]*models.LinkItem, error)
	UpdateLinkStatus(ctx context.Context, userID, linkID string, status models.TaskStatus) (bool, error)
	// UpdateLink replaces the stored link with the given full ID; the
	// reminder scheduler uses it to persist reminder stamps and
	// milestone changes.
	UpdateLink(ctx context.Context, userID, linkID string, link *models.LinkItem) (bool, error)
	DeleteLink(ctx context.Context, userID, linkID string) (bool, error)
	// ListUsers enumerates every user with a stored collection.
	ListUsers(ctx context.Context) ([]string, error)
	Close() error
}

// addOrUpdate applies the dedup-merge to an in-memory collection. The
// caller holds the user's write lock and persists afterwards; nothing
// is committed until that persist succeeds.
func addOrUpdate(data *models.UserData, link *models.LinkItem, now time.Time) (*models.LinkItem, bool, error) {
	if link == nil || link.URL == "" {
		return nil, false, ErrInvalidLink
	}

	if existing := data.FindByURL(link.URL); existing != nil {
		existing.Merge(link, now)
		data.UpdatedAt = now
		return existing, false, nil
	}

	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.Status == "" {
		link.Status = models.StatusTodo
	}
	if link.Priority < 1 {
		link.Priority = 1
	} else if link.Priority > 5 {
		link.Priority = 5
	}
	link.CreatedAt = now
	link.UpdatedAt = now
	data.Links = append(data.Links, link)
	data.UpdatedAt = now
	return link, true, nil
}
