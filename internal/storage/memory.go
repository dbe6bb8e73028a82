package storage

import (
	"context"
	"sync"
	"time"

	"github.com/xaenox/linkminder/internal/models"
)

// MemoryStorage is an in-memory Storage for development and tests.
// Links are cloned at the store boundary in both directions, so
// callers never hold aliases into store-owned state; the file and
// Postgres backends get the same value semantics for free by
// round-tripping through JSON.
type MemoryStorage struct {
	mu    sync.Mutex
	users map[string]*models.UserData
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[string]*models.UserData),
	}
}

// data materializes the user's record; only writes use it, so reads
// never create empty users.
func (s *MemoryStorage) data(userID string) *models.UserData {
	d, ok := s.users[userID]
	if !ok {
		d = models.NewUserData(userID)
		s.users[userID] = d
	}
	return d
}

func (s *MemoryStorage) peek(userID string) *models.UserData {
	if d, ok := s.users[userID]; ok {
		return d
	}
	return models.NewUserData(userID)
}

func (s *MemoryStorage) AddOrUpdateLink(ctx context.Context, userID string, link *models.LinkItem) (*models.LinkItem, bool, error) {
	if userID == "" {
		return nil, false, ErrInvalidLink
	}
	if link != nil {
		link = link.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, isNew, err := addOrUpdate(s.data(userID), link, time.Now())
	if err != nil {
		return nil, false, err
	}
	return saved.Clone(), isNew, nil
}

func (s *MemoryStorage) GetUserLinks(ctx context.Context, userID string) ([]*models.LinkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneLinks(s.peek(userID).Links), nil
}

func (s *MemoryStorage) GetOverdueLinks(ctx context.Context, userID string) ([]*models.LinkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneLinks(s.peek(userID).OverdueLinks(time.Now())), nil
}

func (s *MemoryStorage) GetUpcomingDeadlines(ctx context.Context, userID string, days int) ([]*models.LinkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneLinks(s.peek(userID).UpcomingDeadlines(time.Now(), days)), nil
}

func (s *MemoryStorage) UpdateLinkStatus(ctx context.Context, userID, linkID string, status models.TaskStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.peek(userID).UpdateStatus(linkID, status, time.Now()), nil
}

func (s *MemoryStorage) UpdateLink(ctx context.Context, userID, linkID string, link *models.LinkItem) (bool, error) {
	if link != nil {
		link = link.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.peek(userID).Replace(linkID, link), nil
}

func (s *MemoryStorage) DeleteLink(ctx context.Context, userID, linkID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.peek(userID).Delete(linkID), nil
}

func (s *MemoryStorage) ListUsers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]string, 0, len(s.users))
	for id := range s.users {
		users = append(users, id)
	}
	return users, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func cloneLinks(links []*models.LinkItem) []*models.LinkItem {
	out := make([]*models.LinkItem, len(links))
	for i, l := range links {
		out[i] = l.Clone()
	}
	return out
}
