package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/linkminder/internal/models"
	"go.uber.org/zap"
)

// FileStorage keeps one JSON document per user under dataDir
// (user_<id>.json) and rewrites the whole document on every save.
// A per-user mutex serializes the load-mutate-save cycle so concurrent
// writers to the same user cannot lose updates.
type FileStorage struct {
	dataDir string
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStorage(dataDir string, logger *zap.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating data directory: %w", err)
	}
	return &FileStorage{
		dataDir: dataDir,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileStorage) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *FileStorage) userFile(userID string) string {
	return filepath.Join(s.dataDir, "user_"+userID+".json")
}

func (s *FileStorage) load(userID string) (*models.UserData, error) {
	raw, err := os.ReadFile(s.userFile(userID))
	if os.IsNotExist(err) {
		return models.NewUserData(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading user data: %w", err)
	}

	var data models.UserData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("error decoding user data: %w", err)
	}
	if data.Preferences == nil {
		data.Preferences = make(map[string]any)
	}
	return &data, nil
}

// save writes to a temp file and renames it into place, so an
// interrupted write leaves the previous document intact.
func (s *FileStorage) save(data *models.UserData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding user data: %w", err)
	}

	path := s.userFile(data.UserID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("error writing user data: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error replacing user data: %w", err)
	}
	s.logger.Debug("saved user data",
		zap.String("user_id", data.UserID),
		zap.Int("links", len(data.Links)))
	return nil
}

func (s *FileStorage) AddOrUpdateLink(ctx context.Context, userID string, link *models.LinkItem) (*models.LinkItem, bool, error) {
	if userID == "" {
		return nil, false, ErrInvalidLink
	}
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.load(userID)
	if err != nil {
		return nil, false, err
	}
	result, isNew, err := addOrUpdate(data, link, time.Now())
	if err != nil {
		return nil, false, err
	}
	if err := s.save(data); err != nil {
		return nil, false, err
	}
	return result, isNew, nil
}

func (s *FileStorage) GetUserLinks(ctx context.Context, userID string) ([]*models.LinkItem, error) {
	data, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	return data.Links, nil
}

func (s *FileStorage) GetOverdueLinks(ctx context.Context, userID string) ([]*models.LinkItem, error) {
	data, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	return data.OverdueLinks(time.Now()), nil
}

func (s *FileStorage) GetUpcomingDeadlines(ctx context.Context, userID string, days int) ([]*models.LinkItem, error) {
	data, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	return data.UpcomingDeadlines(time.Now(), days), nil
}

func (s *FileStorage) UpdateLinkStatus(ctx context.Context, userID, linkID string, status models.TaskStatus) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.load(userID)
	if err != nil {
		return false, err
	}
	if !data.UpdateStatus(linkID, status, time.Now()) {
		return false, nil
	}
	if err := s.save(data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStorage) UpdateLink(ctx context.Context, userID, linkID string, link *models.LinkItem) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.load(userID)
	if err != nil {
		return false, err
	}
	if !data.Replace(linkID, link) {
		return false, nil
	}
	if err := s.save(data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStorage) DeleteLink(ctx context.Context, userID, linkID string) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.load(userID)
	if err != nil {
		return false, err
	}
	if !data.Delete(linkID) {
		return false, nil
	}
	if err := s.save(data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStorage) ListUsers(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("error listing data directory: %w", err)
	}

	var users []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "user_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		users = append(users, strings.TrimSuffix(strings.TrimPrefix(name, "user_"), ".json"))
	}
	return users, nil
}

func (s *FileStorage) Close() error {
	return nil
}
