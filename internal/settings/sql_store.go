package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tOgg1/roomlist/internal/db"
	"github.com/tOgg1/roomlist/internal/logging"
)

// SQLStore persists settings in SQLite. Values are cached at open so reads
// never touch the database.
type SQLStore struct {
	repo   *db.SettingsRepository
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// OpenSQLStore loads every setting from the repository.
func OpenSQLStore(ctx context.Context, repo *db.SettingsRepository) (*SQLStore, error) {
	s := &SQLStore{
		repo:   repo,
		logger: logging.Component("settings-sql"),
		cache:  make(map[string]string),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload refreshes the cache from the database.
func (s *SQLStore) Reload(ctx context.Context) error {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	cache := make(map[string]string, len(entries))
	for _, entry := range entries {
		cache[entry.Key] = entry.Value
	}

	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	s.logger.Debug().Int("count", len(cache)).Msg("settings loaded")
	return nil
}

func (s *SQLStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[key]
	return v, ok
}

func (s *SQLStore) Bool(name string) (bool, bool) {
	return parseBool(s.Get(name))
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	return nil
}

func (s *SQLStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	inserted, err := s.repo.SetIfAbsent(ctx, key, value)
	if err != nil {
		return false, err
	}
	if inserted {
		s.mu.Lock()
		s.cache[key] = value
		s.mu.Unlock()
	}
	return inserted, nil
}
