package cli

import (
	"context"
	"fmt"

	"github.com/tOgg1/roomlist/internal/config"
	"github.com/tOgg1/roomlist/internal/db"
	"github.com/tOgg1/roomlist/internal/filters"
	"github.com/tOgg1/roomlist/internal/logging"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/roomlist"
	"github.com/tOgg1/roomlist/internal/settings"
)

// app is a store attached to the configured settings backend and the
// fixture rooms.
type app struct {
	cfg       *config.Config
	store     *roomlist.Store
	source    *roomlist.MemorySource
	fixture   *roomlist.Fixture
	settings  settings.Store
	fileStore *settings.FileStore
	closers   []func() error
}

type appOptions struct {
	tagPatterns  []string
	hideArchived bool
	replay       bool
}

func openSettings(ctx context.Context, cfg *config.Config) (settings.Store, *settings.FileStore, []func() error, error) {
	switch cfg.RoomList.SettingsBackend {
	case config.SettingsBackendMemory:
		return settings.NewMemoryStore(), nil, nil, nil
	case config.SettingsBackendFile:
		fs, err := settings.OpenFileStore(cfg.SettingsFilePath(), settings.WithDebounce(cfg.RoomList.SaveDebounce))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open settings file: %w", err)
		}
		return fs, fs, []func() error{fs.Close}, nil
	case config.SettingsBackendSQLite:
		database, err := db.Open(db.Config{
			Path:          cfg.DatabasePath(),
			BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
			Retry: db.RetryPolicy{
				Attempts: cfg.Database.WriteAttempts,
				Backoff:  cfg.Database.RetryBackoff,
			},
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			_ = database.Close()
			return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		store, err := settings.OpenSQLStore(ctx, db.NewSettingsRepository(database))
		if err != nil {
			_ = database.Close()
			return nil, nil, nil, err
		}
		return store, nil, []func() error{database.Close}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown settings backend %q", cfg.RoomList.SettingsBackend)
	}
}

func openApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	fixture := &roomlist.Fixture{}
	if fixturePath != "" {
		loaded, err := roomlist.LoadFixture(fixturePath)
		if err != nil {
			return nil, fmt.Errorf("load fixture: %w", err)
		}
		fixture = loaded
	}

	store, fileStore, closers, err := openSettings(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		fixture:   fixture,
		settings:  store,
		fileStore: fileStore,
		closers:   closers,
		source:    fixture.Source(len(fixture.Events) + 64),
		store: roomlist.New(
			roomlist.WithSettings(store),
			roomlist.WithCustomTags(cfg.RoomList.CustomTags),
			roomlist.WithRetryDelay(cfg.RoomList.RetryDelay),
		),
	}

	if err := a.store.Attach(ctx, a.source); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.installFilters(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	if opts.replay {
		for _, ev := range fixture.Events {
			if err := a.store.HandleEvent(ctx, ev); err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("replay %s %s: %w", ev.Type, ev.RoomID, err)
			}
		}
	}

	cliLogger := logging.Component("cli")
	cliLogger.Debug().
		Str("backend", cfg.RoomList.SettingsBackend).
		Int("rooms", len(fixture.Rooms)).
		Msg("room list ready")
	return a, nil
}

func (a *app) installFilters(ctx context.Context, opts appOptions) error {
	if len(opts.tagPatterns) > 0 {
		tf, err := filters.NewTagFilter(opts.tagPatterns...)
		if err != nil {
			return err
		}
		if err := a.store.AddFilter(ctx, tf); err != nil {
			return err
		}
	}
	if opts.hideArchived {
		hidden := filters.NewMembershipFilter(models.MembershipLeft, models.MembershipBanned)
		if err := a.store.AddFilter(ctx, hidden); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the store, then releases the settings backend.
func (a *app) Close() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = err
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
