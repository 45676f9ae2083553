package algorithm

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tOgg1/roomlist/internal/models"
)

// comparator is a total order over rooms for one tag and configuration.
// Every algorithm falls back to the room ID so equal keys never reorder.
type comparator struct {
	tag        models.Tag
	cfg        models.SortConfig
	importance ImportanceFunc
	collator   *collate.Collator
}

func newComparator(tag models.Tag, cfg models.SortConfig, importance ImportanceFunc) *comparator {
	if importance == nil {
		importance = DefaultImportance
	}
	return &comparator{
		tag:        tag,
		cfg:        cfg,
		importance: importance,
		collator:   collate.New(language.Und, collate.IgnoreCase),
	}
}

func (c *comparator) compare(a, b *models.Room) int {
	if c.cfg.Ordering == models.OrderingImportance {
		if ca, cb := c.importance(a), c.importance(b); ca != cb {
			return cmp.Compare(ca, cb)
		}
	}

	var r int
	switch c.cfg.Algorithm {
	case models.SortRecent:
		r = b.LastActivity.Compare(a.LastActivity)
	case models.SortManual:
		r = c.compareManual(a, b)
	default:
		r = c.collator.CompareString(sortName(a), sortName(b))
	}
	if r != 0 {
		return r
	}
	return strings.Compare(a.ID, b.ID)
}

// compareManual orders by the tag's order value; rooms without one follow
// every ordered room.
func (c *comparator) compareManual(a, b *models.Room) int {
	oa, okA := a.ManualOrder(c.tag)
	ob, okB := b.ManualOrder(c.tag)
	switch {
	case okA && okB:
		return cmp.Compare(oa, ob)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}

func sortName(room *models.Room) string {
	if name := strings.TrimSpace(room.Name); name != "" {
		return name
	}
	return room.ID
}

// TagOrdering is the sorted member list of one tag bucket.
type TagOrdering struct {
	tag   models.Tag
	cmp   *comparator
	rooms []*models.Room
}

// NewTagOrdering returns an empty ordering.
func NewTagOrdering(tag models.Tag, cfg models.SortConfig, importance ImportanceFunc) *TagOrdering {
	return &TagOrdering{tag: tag, cmp: newComparator(tag, cfg, importance)}
}

func (o *TagOrdering) Tag() models.Tag { return o.tag }

func (o *TagOrdering) Config() models.SortConfig { return o.cmp.cfg }

func (o *TagOrdering) Len() int { return len(o.rooms) }

// Rooms returns a copy of the ordered rooms.
func (o *TagOrdering) Rooms() []*models.Room {
	return slices.Clone(o.rooms)
}

// SetRooms replaces the members and sorts them from scratch.
func (o *TagOrdering) SetRooms(rooms []*models.Room) {
	o.rooms = slices.Clone(rooms)
	o.sort()
}

// SetConfig switches the configuration and re-sorts from scratch.
func (o *TagOrdering) SetConfig(cfg models.SortConfig) {
	o.cmp = newComparator(o.tag, cfg, o.cmp.importance)
	o.sort()
}

func (o *TagOrdering) sort() {
	slices.SortStableFunc(o.rooms, o.cmp.compare)
}

// IndexOf returns the position of the room, or -1.
func (o *TagOrdering) IndexOf(roomID string) int {
	return slices.IndexFunc(o.rooms, func(r *models.Room) bool { return r.ID == roomID })
}

// Insert places the room at its sorted position and returns the index.
// The room must not already be present.
func (o *TagOrdering) Insert(room *models.Room) int {
	idx, _ := slices.BinarySearchFunc(o.rooms, room, o.cmp.compare)
	o.rooms = slices.Insert(o.rooms, idx, room)
	return idx
}

// Remove drops the room and reports whether it was present.
func (o *TagOrdering) Remove(roomID string) bool {
	idx := o.IndexOf(roomID)
	if idx < 0 {
		return false
	}
	o.rooms = slices.Delete(o.rooms, idx, idx+1)
	return true
}

// Replace swaps in a newer copy of a room at its current position without
// re-sorting. It reports whether the room was present.
func (o *TagOrdering) Replace(room *models.Room) bool {
	idx := o.IndexOf(room.ID)
	if idx < 0 {
		return false
	}
	o.rooms[idx] = room
	return true
}

// Reposition re-inserts a room after its sort keys changed. It reports
// whether the room moved. Unknown rooms are inserted.
func (o *TagOrdering) Reposition(room *models.Room) bool {
	before := o.IndexOf(room.ID)
	if before >= 0 {
		o.rooms = slices.Delete(o.rooms, before, before+1)
	}
	return o.Insert(room) != before
}
