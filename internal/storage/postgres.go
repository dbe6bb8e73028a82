package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/xaenox/linkminder/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStorage stores one row per user with the link collection as
// JSONB, mirroring the file layout. Statements are atomic per row, but
// the load-mutate-save cycle still needs the same per-user lock as the
// file backend.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	logger.Info("database schema initialized", zap.String("dbname", config.DBName))

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *PostgresStorage) load(ctx context.Context, userID string) (*models.UserData, error) {
	var (
		rawLinks []byte
		rawPrefs []byte
		data     models.UserData
	)

	query := `SELECT user_id, links, preferences, created_at, updated_at FROM user_data WHERE user_id = $1`
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&data.UserID, &rawLinks, &rawPrefs, &data.CreatedAt, &data.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewUserData(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading user data: %w", err)
	}

	if err := json.Unmarshal(rawLinks, &data.Links); err != nil {
		return nil, fmt.Errorf("error decoding links: %w", err)
	}
	if err := json.Unmarshal(rawPrefs, &data.Preferences); err != nil {
		return nil, fmt.Errorf("error decoding preferences: %w", err)
	}
	if data.Preferences == nil {
		data.Preferences = make(map[string]any)
	}
	return &data, nil
}

func (s *PostgresStorage) save(ctx context.Context, data *models.UserData) error {
	rawLinks, err := json.Marshal(data.Links)
	if err != nil {
		return fmt.Errorf("error encoding links: %w", err)
	}
	rawPrefs, err := json.Marshal(data.Preferences)
	if err != nil {
		return fmt.Errorf("error encoding preferences: %w", err)
	}

	query := `
		INSERT INTO user_data (user_id, links, preferences, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET links = EXCLUDED.links,
		    preferences = EXCLUDED.preferences,
		    updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query,
		data.UserID, rawLinks, rawPrefs, data.CreatedAt, data.UpdatedAt); err != nil {
		return fmt.Errorf("error saving user data: %w", err)
	}
	return nil
}

func (s *PostgresStorage) AddOrUpdateLink(ctx context.Context, userID string, link *models.LinkItem) (*models.LinkItem, bool, error) {
	if userID == "" {
		return nil, false, ErrInvalidLink
	}
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	result, isNew, err := addOrUpdate(data, link, time.Now())
	if err != nil {
		return nil, false, err
	}
	if err := s.save(ctx, data); err != nil {
		return nil, false, err
	}
	return result, isNew, nil
}

func (s *PostgresStorage) GetUserLinks(ctx context.Context, userID string) ([]*models.LinkItem, error) {
	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return data.Links, nil
}

func (s *PostgresStorage) GetOverdueLinks(ctx context.Context, userID string) ([]*models.LinkItem, error) {
	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return data.OverdueLinks(time.Now()), nil
}

func (s *PostgresStorage) GetUpcomingDeadlines(ctx context.Context, userID string, days int) ([]*models.LinkItem, error) {
	data, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return data.UpcomingDeadlines(time.Now(), days), nil
}

func (s *PostgresStorage) UpdateLinkStatus(ctx context.Context, userID, linkID string, status models.TaskStatus) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if !data.UpdateStatus(linkID, status, time.Now()) {
		return false, nil
	}
	if err := s.save(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStorage) UpdateLink(ctx context.Context, userID, linkID string, link *models.LinkItem) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if !data.Replace(linkID, link) {
		return false, nil
	}
	if err := s.save(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStorage) DeleteLink(ctx context.Context, userID, linkID string) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	data, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if !data.Delete(linkID) {
		return false, nil
	}
	if err := s.save(ctx, data); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStorage) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM user_data ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
