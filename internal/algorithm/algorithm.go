// Package algorithm keeps the per-tag ordered room lists, applies
// incremental updates and the sticky room override.
package algorithm

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/tOgg1/roomlist/internal/filters"
	"github.com/tOgg1/roomlist/internal/logging"
	"github.com/tOgg1/roomlist/internal/models"
	"github.com/tOgg1/roomlist/internal/sorting"
	"github.com/tOgg1/roomlist/internal/tags"
)

var (
	// ErrUnknownTag is returned for a tag without a bucket.
	ErrUnknownTag = errors.New("unknown tag")

	// ErrOutOfRange is returned for a drop index outside the visible list.
	ErrOutOfRange = errors.New("index out of range")

	// ErrNotRuntime is returned when a prefilter is handed to AddFilter.
	ErrNotRuntime = errors.New("condition is not a runtime filter")
)

// ConfigFunc returns the sort configuration for a tag seen for the first time.
type ConfigFunc func(tag models.Tag) models.SortConfig

// Option configures an Algorithm.
type Option func(*Algorithm)

// WithImportance replaces the importance tier function.
func WithImportance(fn ImportanceFunc) Option {
	return func(a *Algorithm) {
		if fn != nil {
			a.importance = fn
		}
	}
}

// WithConfigFunc sets how configurations for new tags are chosen.
func WithConfigFunc(fn ConfigFunc) Option {
	return func(a *Algorithm) {
		if fn != nil {
			a.configFor = fn
		}
	}
}

// WithClassifier sets the tag classifier.
func WithClassifier(c tags.Classifier) Option {
	return func(a *Algorithm) { a.classifier = c }
}

// stickyRoom is the pinned room. While pinned it is taken out of its tag
// ordering and re-inserted before the room at index in the full ordering,
// so its neighbours stay the same when runtime filters change.
type stickyRoom struct {
	roomID string
	tag    models.Tag
	index  int
}

// Algorithm owns the tag orderings for a candidate set of rooms. It is not
// safe for concurrent use.
type Algorithm struct {
	classifier tags.Classifier
	importance ImportanceFunc
	configFor  ConfigFunc
	logger     zerolog.Logger

	rooms     map[string]*models.Room
	roomTags  map[string][]models.Tag
	orderings map[models.Tag]*TagOrdering
	runtime   filters.Set
	sticky    *stickyRoom
}

// New returns an empty algorithm.
func New(opts ...Option) *Algorithm {
	a := &Algorithm{
		importance: DefaultImportance,
		configFor:  sorting.DefaultConfig,
		logger:     logging.Component("room-algorithm"),
		rooms:      make(map[string]*models.Room),
		roomTags:   make(map[string][]models.Tag),
		orderings:  make(map[models.Tag]*TagOrdering),
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, tag := range models.DefaultTagOrder {
		a.ordering(tag)
	}
	return a
}

// Classifier returns the tag classifier in use.
func (a *Algorithm) Classifier() tags.Classifier { return a.classifier }

func (a *Algorithm) ordering(tag models.Tag) *TagOrdering {
	o, ok := a.orderings[tag]
	if !ok {
		o = NewTagOrdering(tag, a.configFor(tag), a.importance)
		a.orderings[tag] = o
	}
	return o
}

// Tags returns the tags with a bucket, in display order. Default tags are
// always present; custom tags only while they have rooms.
func (a *Algorithm) Tags() []models.Tag {
	out := make([]models.Tag, 0, len(a.orderings))
	for tag, o := range a.orderings {
		if tag.IsDefault() || o.Len() > 0 || a.isStickyTag(tag) {
			out = append(out, tag)
		}
	}
	return models.OrderTags(out)
}

// Has reports whether the room is part of the candidate set.
func (a *Algorithm) Has(roomID string) bool {
	_, ok := a.rooms[roomID]
	return ok
}

// Room returns the latest known state of a room.
func (a *Algorithm) Room(roomID string) (*models.Room, bool) {
	r, ok := a.rooms[roomID]
	return r, ok
}

// RoomTags returns the current classification of a room.
func (a *Algorithm) RoomTags(roomID string) []models.Tag {
	return slices.Clone(a.roomTags[roomID])
}

// Len returns the size of the candidate set.
func (a *Algorithm) Len() int { return len(a.rooms) }

// Config returns the configuration of a tag.
func (a *Algorithm) Config(tag models.Tag) models.SortConfig {
	if o, ok := a.orderings[tag]; ok {
		return o.Config()
	}
	return a.configFor(tag)
}

// SetConfig changes a tag's configuration and re-sorts its bucket. It
// reports whether the configuration changed.
func (a *Algorithm) SetConfig(tag models.Tag, cfg models.SortConfig) bool {
	o := a.ordering(tag)
	if o.Config() == cfg {
		return false
	}
	o.SetConfig(cfg)
	return true
}

// SetKnownRooms replaces the candidate set, reclassifying and re-sorting
// every bucket. The sticky room survives only if it is still a candidate in
// the same tag and still visible.
func (a *Algorithm) SetKnownRooms(rooms []*models.Room) {
	a.rooms = make(map[string]*models.Room, len(rooms))
	a.roomTags = make(map[string][]models.Tag, len(rooms))
	members := make(map[models.Tag][]*models.Room)

	for _, room := range rooms {
		if room == nil {
			continue
		}
		if _, dup := a.rooms[room.ID]; dup {
			continue
		}
		roomTags := a.classifier.Classify(room)
		a.rooms[room.ID] = room
		a.roomTags[room.ID] = roomTags
		for _, tag := range roomTags {
			members[tag] = append(members[tag], room)
		}
	}

	for tag, o := range a.orderings {
		if _, ok := members[tag]; !ok && !tag.IsDefault() {
			delete(a.orderings, tag)
			continue
		}
		o.SetRooms(members[tag])
	}
	for tag, list := range members {
		if _, ok := a.orderings[tag]; !ok {
			a.ordering(tag).SetRooms(list)
		}
	}

	if a.sticky != nil {
		st := a.sticky
		room, ok := a.rooms[st.roomID]
		switch {
		case !ok:
			a.logger.Debug().Str("room_id", st.roomID).Msg("sticky room left the candidate set")
			a.sticky = nil
		case !slices.Contains(a.roomTags[st.roomID], st.tag) || !a.runtime.IsVisibleIn(st.tag, room):
			a.sticky = nil
		default:
			a.orderings[st.tag].Remove(st.roomID)
		}
	}
}

// HandleUpdate applies one room update and reports whether the published
// lists need to be refreshed. Only buckets the room belongs to, before or
// after the update, are touched.
func (a *Algorithm) HandleUpdate(room *models.Room, cause models.UpdateCause) bool {
	if room == nil {
		return false
	}
	changed := a.handleUpdate(room, cause)
	if st := a.sticky; st != nil && st.roomID == room.ID && !a.runtime.IsVisibleIn(st.tag, room) {
		a.logger.Debug().Str("room_id", room.ID).Msg("sticky room no longer matches filters")
		a.unpin()
		changed = true
	}
	return changed
}

func (a *Algorithm) handleUpdate(room *models.Room, cause models.UpdateCause) bool {
	prev, known := a.rooms[room.ID]

	switch cause {
	case models.CauseRoomRemoved:
		return a.remove(room.ID)
	case models.CauseNewRoom, models.CausePossibleTagChange:
		if !known {
			a.add(room)
			return true
		}
		return a.retag(room)
	case models.CauseTimeline, models.CauseDecrypted:
		if !known {
			return false
		}
		a.rooms[room.ID] = room
		for _, tag := range a.roomTags[room.ID] {
			if a.isStickyFor(room.ID, tag) {
				continue
			}
			a.orderings[tag].Reposition(room)
		}
		return true
	case models.CauseReadReceipt:
		if !known {
			return false
		}
		a.rooms[room.ID] = room
		changed := prev.Notifications != room.Notifications
		for _, tag := range a.roomTags[room.ID] {
			if a.isStickyFor(room.ID, tag) {
				continue
			}
			o := a.orderings[tag]
			if o.Config().Ordering != models.OrderingImportance {
				// Same position, fresh counters.
				o.Replace(room)
				continue
			}
			o.Reposition(room)
			changed = true
		}
		return changed
	default:
		a.logger.Warn().Str("cause", string(cause)).Str("room_id", room.ID).Msg("unknown update cause")
		return false
	}
}

func (a *Algorithm) add(room *models.Room) {
	roomTags := a.classifier.Classify(room)
	a.rooms[room.ID] = room
	a.roomTags[room.ID] = roomTags
	for _, tag := range roomTags {
		a.ordering(tag).Insert(room)
	}
}

func (a *Algorithm) remove(roomID string) bool {
	roomTags, ok := a.roomTags[roomID]
	if !ok {
		return false
	}
	if a.sticky != nil && a.sticky.roomID == roomID {
		a.sticky = nil
	}
	for _, tag := range roomTags {
		if o, ok := a.orderings[tag]; ok {
			o.Remove(roomID)
			a.dropIfEmpty(tag)
		}
	}
	delete(a.rooms, roomID)
	delete(a.roomTags, roomID)
	return true
}

// retag reclassifies a known room, moving it between buckets in one step.
func (a *Algorithm) retag(room *models.Room) bool {
	before := a.roomTags[room.ID]
	after := a.classifier.Classify(room)
	removed, added := tags.Diff(before, after)

	a.rooms[room.ID] = room
	a.roomTags[room.ID] = after

	if a.sticky != nil && a.sticky.roomID == room.ID && slices.Contains(removed, a.sticky.tag) {
		// The room is not in the ordering while pinned.
		a.sticky = nil
	}

	for _, tag := range removed {
		if o, ok := a.orderings[tag]; ok {
			o.Remove(room.ID)
			a.dropIfEmpty(tag)
		}
	}
	for _, tag := range after {
		if a.isStickyFor(room.ID, tag) {
			continue
		}
		if slices.Contains(added, tag) {
			a.ordering(tag).Insert(room)
		} else {
			a.orderings[tag].Reposition(room)
		}
	}
	return true
}

func (a *Algorithm) dropIfEmpty(tag models.Tag) {
	if tag.IsDefault() || a.isStickyTag(tag) {
		return
	}
	if o, ok := a.orderings[tag]; ok && o.Len() == 0 {
		delete(a.orderings, tag)
	}
}

func (a *Algorithm) isStickyFor(roomID string, tag models.Tag) bool {
	return a.sticky != nil && a.sticky.roomID == roomID && a.sticky.tag == tag
}

func (a *Algorithm) isStickyTag(tag models.Tag) bool {
	return a.sticky != nil && a.sticky.tag == tag
}

// StickyRoom returns the pinned room ID, or "".
func (a *Algorithm) StickyRoom() string {
	if a.sticky == nil {
		return ""
	}
	return a.sticky.roomID
}

// SetStickyRoom pins the room in its first bucket, releasing any previous
// pin. An empty ID only releases. It reports whether a room is pinned
// afterwards; unknown or filtered-out rooms are not pinned.
func (a *Algorithm) SetStickyRoom(roomID string) bool {
	if a.sticky != nil && a.sticky.roomID == roomID {
		return true
	}
	a.unpin()
	if roomID == "" {
		return false
	}

	room, ok := a.rooms[roomID]
	if !ok {
		return false
	}
	roomTags := a.roomTags[roomID]
	if len(roomTags) == 0 {
		return false
	}
	tag := roomTags[0]
	if !a.runtime.IsVisibleIn(tag, room) {
		return false
	}

	o := a.orderings[tag]
	o.Reposition(room)
	index := o.IndexOf(roomID)
	o.Remove(roomID)
	a.sticky = &stickyRoom{roomID: roomID, tag: tag, index: index}
	return true
}

// unpin puts the sticky room back at its sorted position.
func (a *Algorithm) unpin() {
	st := a.sticky
	if st == nil {
		return
	}
	a.sticky = nil
	room, ok := a.rooms[st.roomID]
	if !ok || !slices.Contains(a.roomTags[st.roomID], st.tag) {
		a.dropIfEmpty(st.tag)
		return
	}
	a.ordering(st.tag).Insert(room)
}

// AddFilter adds a runtime condition and returns the tags it narrows.
func (a *Algorithm) AddFilter(c filters.Condition) ([]models.Tag, error) {
	if c.Kind() != filters.KindRuntime {
		return nil, ErrNotRuntime
	}
	if !a.runtime.Add(c) {
		return nil, nil
	}
	a.checkStickyVisible()
	return a.affectedTags(c), nil
}

// RemoveFilter removes a runtime condition and returns the tags it narrowed.
func (a *Algorithm) RemoveFilter(c filters.Condition) []models.Tag {
	if !a.runtime.Remove(c) {
		return nil
	}
	return a.affectedTags(c)
}

// Filters returns the active runtime conditions.
func (a *Algorithm) Filters() []filters.Condition {
	return a.runtime.Conditions()
}

func (a *Algorithm) affectedTags(c filters.Condition) []models.Tag {
	var out []models.Tag
	for _, tag := range a.Tags() {
		if filters.Applies(c, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func (a *Algorithm) checkStickyVisible() {
	st := a.sticky
	if st == nil {
		return
	}
	if room, ok := a.rooms[st.roomID]; ok && a.runtime.IsVisibleIn(st.tag, room) {
		return
	}
	a.logger.Debug().Str("room_id", st.roomID).Msg("sticky room hidden by filter")
	a.unpin()
}

func (a *Algorithm) visible(tag models.Tag, rooms []*models.Room) []*models.Room {
	if a.runtime.Len() == 0 {
		return rooms
	}
	out := rooms[:0:0]
	for _, room := range rooms {
		if a.runtime.IsVisibleIn(tag, room) {
			out = append(out, room)
		}
	}
	return out
}

// List returns the visible rooms of one tag in display order, with the
// sticky room at its pinned index.
func (a *Algorithm) List(tag models.Tag) []*models.Room {
	o, ok := a.orderings[tag]
	if !ok {
		return nil
	}
	rooms := o.Rooms()
	st := a.sticky
	if st == nil || st.tag != tag {
		return a.visible(tag, rooms)
	}
	split := min(max(st.index, 0), len(rooms))
	return slices.Concat(
		a.visible(tag, rooms[:split]),
		[]*models.Room{a.rooms[st.roomID]},
		a.visible(tag, rooms[split:]),
	)
}

// Lists returns every bucket in display order.
func (a *Algorithm) Lists() ([]models.Tag, map[models.Tag][]*models.Room) {
	order := a.Tags()
	out := make(map[models.Tag][]*models.Room, len(order))
	for _, tag := range order {
		out[tag] = a.List(tag)
	}
	return order, out
}

// ManualOrderAt returns the manual order value a room dropped at index in
// the visible list of tag should get.
func (a *Algorithm) ManualOrderAt(tag models.Tag, index int) (float64, error) {
	if _, ok := a.orderings[tag]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	list := a.List(tag)
	if index < 0 || index > len(list) {
		return 0, fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, index, len(list))
	}

	var prev, next *float64
	if index > 0 {
		if v, ok := list[index-1].ManualOrder(tag); ok {
			prev = &v
		}
	}
	if index < len(list) {
		if v, ok := list[index].ManualOrder(tag); ok {
			next = &v
		}
	}
	return ManualOrderBetween(prev, next), nil
}
