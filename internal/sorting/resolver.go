package sorting

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tOgg1/roomlist/internal/logging"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/settings"
)

// Resolver gathers Inputs from a settings store and runtime overrides.
type Resolver struct {
	settings settings.Store
	logger   zerolog.Logger

	mu           sync.RWMutex
	runtimeSort  map[models.Tag]models.SortAlgorithm
	runtimeOrder map[models.Tag]models.ListOrdering
}

// NewResolver returns a resolver reading from store.
func NewResolver(store settings.Store) *Resolver {
	return &Resolver{
		settings:     store,
		logger:       logging.Component("sort-resolver"),
		runtimeSort:  make(map[models.Tag]models.SortAlgorithm),
		runtimeOrder: make(map[models.Tag]models.ListOrdering),
	}
}

// Inputs collects the configuration sources for tag.
func (r *Resolver) Inputs(tag models.Tag) Inputs {
	var in Inputs
	if v, ok := r.settings.Get(settings.SortKey(tag)); ok {
		in.DeviceSort = &v
	}
	if v, ok := r.settings.Get(settings.OrderKey(tag)); ok {
		in.DeviceOrder = &v
	}
	if b, ok := r.settings.Bool(settings.LegacyOrderAlphabetically); ok {
		in.LegacyAlphabetic = &b
	}
	if b, ok := r.settings.Bool(settings.LegacyOrderByImportance); ok {
		in.LegacyImportance = &b
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if alg, ok := r.runtimeSort[tag]; ok {
		in.RuntimeSort = &alg
	}
	if ord, ok := r.runtimeOrder[tag]; ok {
		in.RuntimeOrder = &ord
	}
	return in
}

// Resolve returns the effective configuration for tag, logging any
// malformed persisted values it had to skip.
func (r *Resolver) Resolve(tag models.Tag) Resolution {
	res := ResolveConfig(tag, r.Inputs(tag))
	if len(res.Conflicts) == 0 {
		return res
	}
	logger := logging.WithTag(r.logger, string(tag))
	for _, conflict := range res.Conflicts {
		logger.Warn().Err(conflict).
			Str("config", res.Config.String()).
			Msg("ignoring malformed sort setting")
	}
	return res
}

// SetRuntimeSorting records a runtime algorithm for tag.
func (r *Resolver) SetRuntimeSorting(tag models.Tag, alg models.SortAlgorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimeSort[tag] = alg
}

// SetRuntimeOrdering records a runtime ordering for tag.
func (r *Resolver) SetRuntimeOrdering(tag models.Tag, ord models.ListOrdering) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimeOrder[tag] = ord
}

// StoreSorting sets the runtime algorithm and writes it to device storage,
// returning once the write completed.
func (r *Resolver) StoreSorting(ctx context.Context, tag models.Tag, alg models.SortAlgorithm) error {
	r.SetRuntimeSorting(tag, alg)
	if err := r.settings.Set(ctx, settings.SortKey(tag), string(alg)); err != nil {
		return fmt.Errorf("persist sort algorithm for %s: %w", tag, err)
	}
	return nil
}

// StoreOrdering sets the runtime ordering and writes it to device storage.
func (r *Resolver) StoreOrdering(ctx context.Context, tag models.Tag, ord models.ListOrdering) error {
	r.SetRuntimeOrdering(tag, ord)
	if err := r.settings.Set(ctx, settings.OrderKey(tag), string(ord)); err != nil {
		return fmt.Errorf("persist list ordering for %s: %w", tag, err)
	}
	return nil
}

// PersistResolved writes cfg to device storage for keys that have no value
// yet. Existing values, including malformed ones, are left alone.
func (r *Resolver) PersistResolved(ctx context.Context, tag models.Tag, cfg models.SortConfig) error {
	if _, err := r.settings.SetIfAbsent(ctx, settings.SortKey(tag), string(cfg.Algorithm)); err != nil {
		return fmt.Errorf("persist sort algorithm for %s: %w", tag, err)
	}
	if _, err := r.settings.SetIfAbsent(ctx, settings.OrderKey(tag), string(cfg.Ordering)); err != nil {
		return fmt.Errorf("persist list ordering for %s: %w", tag, err)
	}
	return nil
}
