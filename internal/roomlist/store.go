package roomlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tOgg1/roomlist/internal/algorithm"
	"github.com/tOgg1/roomlist/internal/batch"
	"github.com/tOgg1/roomlist/internal/events"
	"github.com/tOgg1/roomlist/internal/filters"
	"github.com/tOgg1/roomlist/internal/logging"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/settings"
	"github.com/tOgg1/roomlist/internal/sorting"
	"github.com/tOgg1/roomlist/internal/tags"
)

// DefaultRetryDelay is how long an event for an unknown room waits before
// its single retry.
const DefaultRetryDelay = 100 * time.Millisecond

var (
	// ErrInvalidTag is returned for operations naming a tag the classifier
	// cannot produce.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrInvalidConfig is returned for unknown sort algorithms or orderings.
	ErrInvalidConfig = errors.New("invalid sort configuration")

	// ErrUnknownRoom is returned when a forced update names a room the
	// client does not have.
	ErrUnknownRoom = errors.New("unknown room")
)

// Snapshot is an immutable view of the lists published after a flush.
type Snapshot struct {
	// Version increases with every flush.
	Version uint64

	// Tags lists the buckets in display order.
	Tags []models.Tag

	// Lists maps each tag to its visible rooms in display order.
	Lists map[models.Tag][]*models.Room

	// Sticky is the pinned room ID, or "".
	Sticky string
}

// List returns the rooms of one tag.
func (s *Snapshot) List(tag models.Tag) []*models.Room {
	if s == nil {
		return nil
	}
	return s.Lists[tag]
}

// Len counts the room entries across all lists.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, list := range s.Lists {
		n += len(list)
	}
	return n
}

// Option configures a Store.
type Option func(*Store)

// WithSettings sets the settings collaborator. Defaults to memory.
func WithSettings(store settings.Store) Option {
	return func(s *Store) {
		if store != nil {
			s.settings = store
		}
	}
}

// WithCustomTags enables custom tag buckets.
func WithCustomTags(enabled bool) Option {
	return func(s *Store) { s.classifier.CustomTags = enabled }
}

// WithRetryDelay sets the unknown-room retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithImportance replaces the importance tier function.
func WithImportance(fn algorithm.ImportanceFunc) Option {
	return func(s *Store) { s.importance = fn }
}

// Store is the room list orchestrator. Mutations are serialized by one
// mutex; readers use Lists, which never blocks.
type Store struct {
	logger     zerolog.Logger
	settings   settings.Store
	resolver   *sorting.Resolver
	classifier tags.Classifier
	importance algorithm.ImportanceFunc
	retryDelay time.Duration
	publisher  *events.InMemoryPublisher
	snapshot   atomic.Pointer[Snapshot]

	mu               sync.Mutex
	client           RoomSource
	algo             *algorithm.Algorithm
	prefilters       filters.Set
	prefilterCancels map[filters.Condition]func()
	scheduler        *batch.Scheduler
	version          uint64
	generation       uint64
	pending          []*models.Event
	retries          map[uint64]*time.Timer
	nextRetry        uint64
	closed           bool

	persistWG sync.WaitGroup
}

// New returns a store that is not ready until Attach is called.
func New(opts ...Option) *Store {
	s := &Store{
		logger:           logging.Component("roomlist-store"),
		settings:         settings.NewMemoryStore(),
		retryDelay:       DefaultRetryDelay,
		publisher:        events.NewInMemoryPublisher(),
		prefilterCancels: make(map[filters.Condition]func()),
		retries:          make(map[uint64]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = sorting.NewResolver(s.settings)
	s.algo = algorithm.New(
		algorithm.WithClassifier(s.classifier),
		algorithm.WithImportance(s.importance),
		algorithm.WithConfigFunc(func(tag models.Tag) models.SortConfig {
			return s.resolver.Resolve(tag).Config
		}),
	)
	s.scheduler = batch.New(s.publishLocked)

	tagOrder, lists := s.algo.Lists()
	s.snapshot.Store(&Snapshot{Tags: tagOrder, Lists: lists})
	return s
}

// Attach connects the chat client and builds the lists from scratch.
func (s *Store) Attach(ctx context.Context, client RoomSource) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.client = client
	s.mu.Unlock()
	return s.RegenerateAllLists(ctx)
}

// Ready reports whether a client is attached.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyLocked()
}

func (s *Store) readyLocked() bool {
	return s.client != nil && !s.closed
}

// Lists returns the latest published snapshot.
func (s *Store) Lists() *Snapshot {
	return s.snapshot.Load()
}

// Subscribe registers a handler for published events and returns its ID.
// Handlers run on the goroutine that caused the flush, after the store has
// released its lock.
func (s *Store) Subscribe(filter events.Filter, handler events.EventHandler) (string, error) {
	id := uuid.NewString()
	if err := s.publisher.Subscribe(id, filter, handler); err != nil {
		return "", err
	}
	return id, nil
}

// Unsubscribe removes a handler registered with Subscribe.
func (s *Store) Unsubscribe(id string) error {
	return s.publisher.Unsubscribe(id)
}

// Watch streams published events until ctx is done. Slow readers miss
// intermediate events but always see a later one.
func (s *Store) Watch(ctx context.Context, filter events.Filter) (<-chan *models.Event, error) {
	return s.publisher.Watch(ctx, filter, 16)
}

// RegenerateAllLists rebuilds every bucket from the client's full room set.
// A rebuild started later supersedes one still enumerating rooms.
func (s *Store) RegenerateAllLists(ctx context.Context) error {
	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	client := s.client
	s.mu.Unlock()

	rooms := client.Rooms()
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.generation || !s.readyLocked() {
		s.mu.Unlock()
		s.logger.Debug().Uint64("generation", gen).Msg("rebuild superseded")
		return nil
	}

	candidates := make([]*models.Room, 0, len(rooms))
	for _, room := range rooms {
		if s.prefilters.IsVisible(room) {
			candidates = append(candidates, room)
		}
	}
	s.algo.SetKnownRooms(candidates)

	for _, tag := range s.algo.Tags() {
		res := s.resolver.Resolve(tag)
		s.algo.SetConfig(tag, res.Config)
		if res.SortSource != sorting.SourceDevice || res.OrderSource != sorting.SourceDevice {
			s.persistResolvedLocked(tag, res.Config)
		}
	}

	s.logger.Debug().
		Int("rooms", len(rooms)).
		Int("candidates", len(candidates)).
		Uint64("generation", gen).
		Msg("lists regenerated")

	s.scheduler.Mark()
	s.scheduler.Trigger()
	s.unlockAndDispatch()
	return nil
}

// persistResolvedLocked writes the resolved configuration back to device
// storage in the background. Existing values are never overwritten.
func (s *Store) persistResolvedLocked(tag models.Tag, cfg models.SortConfig) {
	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()
		if err := s.resolver.PersistResolved(context.Background(), tag, cfg); err != nil {
			logger := logging.WithTag(s.logger, string(tag))
			logger.Warn().Err(err).Msg("failed to persist sort configuration")
		}
	}()
}

// HandleEvent applies one upstream event and flushes.
func (s *Store) HandleEvent(ctx context.Context, ev models.RoomEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	err := s.applyLocked(ev, true)
	s.scheduler.Trigger()
	s.unlockAndDispatch()
	return err
}

// Run consumes the event stream until ctx is done or the channel closes.
// Events already queued are applied together and flushed once. Problems
// with single events are logged to the logger carried by ctx.
func (s *Store) Run(ctx context.Context, stream <-chan models.RoomEvent) error {
	logger := logging.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-stream:
			if !ok {
				logger.Debug().Msg("room event stream closed")
				return nil
			}
			s.mu.Lock()
			s.applyAndLog(logger, ev)
			n, open := s.drainLocked(logger, stream)
			flushed := s.scheduler.Trigger()
			s.unlockAndDispatch()
			logger.Debug().Int("events", n+1).Bool("flushed", flushed).Msg("applied room event burst")
			if !open {
				return nil
			}
		}
	}
}

// drainLocked applies events that are already queued. It returns how many
// it applied and whether the stream is still open.
func (s *Store) drainLocked(logger zerolog.Logger, stream <-chan models.RoomEvent) (int, bool) {
	n := 0
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				return n, false
			}
			s.applyAndLog(logger, ev)
			n++
		default:
			return n, true
		}
	}
}

func (s *Store) applyAndLog(logger zerolog.Logger, ev models.RoomEvent) {
	if err := s.applyLocked(ev, true); err != nil {
		roomLogger := logging.WithRoom(logger, ev.RoomID)
		roomLogger.Warn().Err(err).Str("type", string(ev.Type)).Msg("ignoring room event")
	}
}

// applyLocked routes one event into the algorithm. With retry set, events
// for rooms the client does not know yet are retried once after retryDelay.
func (s *Store) applyLocked(ev models.RoomEvent, retry bool) error {
	if !s.readyLocked() {
		return nil
	}
	cause, err := models.CauseForEvent(ev.Type)
	if err != nil {
		return err
	}

	if cause == models.CauseRoomRemoved {
		if room, ok := s.algo.Room(ev.RoomID); ok {
			s.markIf(s.algo.HandleUpdate(room, cause))
		}
		return nil
	}

	room, ok := s.client.Room(ev.RoomID)
	if !ok {
		if retry {
			s.scheduleRetryLocked(ev)
			return nil
		}
		logger := logging.WithRoom(s.logger, ev.RoomID)
		logger.Warn().Str("type", string(ev.Type)).Msg("dropping event for unknown room")
		return nil
	}

	s.updateLocked(room, cause)
	return nil
}

// updateLocked applies a cause after re-checking the prefilters: a room
// that stopped matching is removed and one that started matching is added.
func (s *Store) updateLocked(room *models.Room, cause models.UpdateCause) {
	known := s.algo.Has(room.ID)
	visible := s.prefilters.IsVisible(room)

	switch {
	case cause == models.CauseRoomRemoved:
		s.markIf(s.algo.HandleUpdate(room, cause))
	case known && !visible:
		s.markIf(s.algo.HandleUpdate(room, models.CauseRoomRemoved))
	case !known && visible:
		s.markIf(s.algo.HandleUpdate(room, models.CauseNewRoom))
	case known:
		s.markIf(s.algo.HandleUpdate(room, cause))
	}
}

func (s *Store) markIf(changed bool) {
	if changed {
		s.scheduler.Mark()
	}
}

func (s *Store) scheduleRetryLocked(ev models.RoomEvent) {
	id := s.nextRetry
	s.nextRetry++
	logger := logging.WithRoom(s.logger, ev.RoomID)
	logger.Debug().Str("type", string(ev.Type)).Dur("delay", s.retryDelay).Msg("room not synced yet, retrying")

	s.retries[id] = time.AfterFunc(s.retryDelay, func() {
		s.mu.Lock()
		if _, ok := s.retries[id]; !ok {
			s.mu.Unlock()
			return
		}
		delete(s.retries, id)
		s.applyRetry(ev)
		s.scheduler.Trigger()
		s.unlockAndDispatch()
	})
}

func (s *Store) applyRetry(ev models.RoomEvent) {
	if err := s.applyLocked(ev, false); err != nil {
		s.logger.Warn().Err(err).Str("room_id", ev.RoomID).Msg("retry failed")
	}
}

// ManualUpdate forces a recompute of one room with the given cause.
func (s *Store) ManualUpdate(room *models.Room, cause models.UpdateCause) error {
	if !cause.Valid() {
		return fmt.Errorf("unknown update cause %q", cause)
	}
	if err := room.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return nil
	}
	if cause != models.CauseRoomRemoved && !s.algo.Has(room.ID) {
		if _, ok := s.client.Room(room.ID); !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownRoom, room.ID)
		}
	}
	s.updateLocked(room, cause)
	s.scheduler.Trigger()
	s.unlockAndDispatch()
	return nil
}

// AddFilter installs a condition. Prefilters rebuild the lists, now and
// whenever they report a change; runtime filters narrow the current lists.
func (s *Store) AddFilter(ctx context.Context, c filters.Condition) error {
	if c == nil {
		return nil
	}
	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return nil
	}

	if c.Kind() == filters.KindPrefilter {
		if !s.prefilters.Add(c) {
			s.mu.Unlock()
			return nil
		}
		if n, ok := c.(filters.Notifier); ok {
			s.prefilterCancels[c] = n.OnChange(func() {
				if err := s.RegenerateAllLists(context.Background()); err != nil {
					s.logger.Warn().Err(err).Msg("rebuild after filter change failed")
				}
			})
		}
		s.mu.Unlock()
		return s.RegenerateAllLists(ctx)
	}

	affected, err := s.algo.AddFilter(c)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.filterChangedLocked(affected)
	s.scheduler.Trigger()
	s.unlockAndDispatch()
	return nil
}

// RemoveFilter uninstalls a condition added with AddFilter.
func (s *Store) RemoveFilter(ctx context.Context, c filters.Condition) error {
	if c == nil {
		return nil
	}
	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return nil
	}

	if c.Kind() == filters.KindPrefilter {
		if !s.prefilters.Remove(c) {
			s.mu.Unlock()
			return nil
		}
		if cancel, ok := s.prefilterCancels[c]; ok {
			cancel()
			delete(s.prefilterCancels, c)
		}
		s.mu.Unlock()
		return s.RegenerateAllLists(ctx)
	}

	s.filterChangedLocked(s.algo.RemoveFilter(c))
	s.scheduler.Trigger()
	s.unlockAndDispatch()
	return nil
}

func (s *Store) filterChangedLocked(affected []models.Tag) {
	if len(affected) == 0 {
		return
	}
	now := time.Now().UTC()
	for _, tag := range affected {
		s.pending = append(s.pending, &models.Event{
			ID:        uuid.NewString(),
			Timestamp: now,
			Type:      models.EventTypeTagFilterChanged,
			Tag:       tag,
		})
	}
	s.scheduler.Mark()
}

// TagSorting returns the active sort algorithm of a tag.
func (s *Store) TagSorting(tag models.Tag) models.SortAlgorithm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.algo.Config(tag).Algorithm
}

// ListOrder returns the active list ordering of a tag.
func (s *Store) ListOrder(tag models.Tag) models.ListOrdering {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.algo.Config(tag).Ordering
}

// Configs returns the active configuration of every bucket.
func (s *Store) Configs() map[models.Tag]models.SortConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	tagOrder := s.algo.Tags()
	out := make(map[models.Tag]models.SortConfig, len(tagOrder))
	for _, tag := range tagOrder {
		out[tag] = s.algo.Config(tag)
	}
	return out
}

// SetTagSorting changes and persists a tag's sort algorithm. It returns
// after the settings write completed.
func (s *Store) SetTagSorting(ctx context.Context, tag models.Tag, alg models.SortAlgorithm) error {
	if !alg.Valid() {
		return fmt.Errorf("%w: algorithm %q", ErrInvalidConfig, alg)
	}
	return s.setConfig(ctx, tag, func() error {
		return s.resolver.StoreSorting(ctx, tag, alg)
	})
}

// SetListOrder changes and persists a tag's list ordering.
func (s *Store) SetListOrder(ctx context.Context, tag models.Tag, ord models.ListOrdering) error {
	if !ord.Valid() {
		return fmt.Errorf("%w: ordering %q", ErrInvalidConfig, ord)
	}
	return s.setConfig(ctx, tag, func() error {
		return s.resolver.StoreOrdering(ctx, tag, ord)
	})
}

func (s *Store) setConfig(ctx context.Context, tag models.Tag, store func() error) error {
	s.mu.Lock()
	ready := s.readyLocked()
	s.mu.Unlock()
	if !ready {
		return nil
	}
	if err := s.checkTag(tag); err != nil {
		return err
	}

	if err := store(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return nil
	}
	res := s.resolver.Resolve(tag)
	s.markIf(s.algo.SetConfig(tag, res.Config))
	s.scheduler.Trigger()
	s.unlockAndDispatch()
	return ctx.Err()
}

func (s *Store) checkTag(tag models.Tag) error {
	if s.algo.Classifier().IsKnownTag(tag) {
		return nil
	}
	logger := logging.WithTag(s.logger, string(tag))
	logger.Warn().Msg("rejecting operation on unknown tag")
	return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
}

// RefreshSortConfig re-resolves every tag, e.g. after the settings changed
// underneath the store.
func (s *Store) RefreshSortConfig() {
	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return
	}
	for _, tag := range s.algo.Tags() {
		s.markIf(s.algo.SetConfig(tag, s.resolver.Resolve(tag).Config))
	}
	s.scheduler.Trigger()
	s.unlockAndDispatch()
}

// SetStickyRoom pins the focused room; "" releases the pin. It reports
// whether a room is pinned afterwards.
func (s *Store) SetStickyRoom(roomID string) bool {
	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return false
	}
	before := s.algo.StickyRoom()
	pinned := s.algo.SetStickyRoom(roomID)
	s.markIf(before != s.algo.StickyRoom())
	s.scheduler.Trigger()
	s.unlockAndDispatch()
	return pinned
}

// ManualOrderAt returns the manual order value for a room dropped at index
// in the visible list of tag.
func (s *Store) ManualOrderAt(tag models.Tag, index int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.algo.ManualOrderAt(tag, index)
	if errors.Is(err, algorithm.ErrUnknownTag) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return v, err
}

// Flush publishes pending changes, if any. It reports whether a new
// snapshot was published.
func (s *Store) Flush() bool {
	s.mu.Lock()
	flushed := s.scheduler.Trigger()
	s.unlockAndDispatch()
	return flushed
}

// publishLocked is the scheduler flush: it swaps in a new snapshot and
// queues the lists.changed notification.
func (s *Store) publishLocked() {
	s.version++
	tagOrder, lists := s.algo.Lists()
	snap := &Snapshot{
		Version: s.version,
		Tags:    tagOrder,
		Lists:   lists,
		Sticky:  s.algo.StickyRoom(),
	}
	s.snapshot.Store(snap)
	s.pending = append(s.pending, &models.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      models.EventTypeListsChanged,
		Version:   snap.Version,
	})
}

// unlockAndDispatch releases the lock and then delivers queued events, so
// handlers may call back into the store.
func (s *Store) unlockAndDispatch() {
	pending := s.pending
	s.pending = nil
	version := s.version
	s.mu.Unlock()

	if len(pending) == 0 || s.publisher.SubscriberCount() == 0 {
		return
	}
	ctx := context.Background()
	for _, ev := range pending {
		if ev.Version == 0 {
			ev.Version = version
		}
		s.publisher.Publish(ctx, ev)
	}
}

// Close detaches the client, cancels pending retries and waits for
// background writes. The store is not ready afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, timer := range s.retries {
		timer.Stop()
		delete(s.retries, id)
	}
	for c, cancel := range s.prefilterCancels {
		cancel()
		delete(s.prefilterCancels, c)
	}
	s.mu.Unlock()

	s.persistWG.Wait()
	s.publisher.Close()
	return nil
}
