// Package roomlist is the room list store: it owns the tag buckets, routes
// upstream room events into them and publishes immutable snapshots.
package roomlist

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tOgg1/roomlist/internal/models"
)

// RoomSource is the chat client as seen by the store.
type RoomSource interface {
	// Rooms enumerates every room the client knows about.
	Rooms() []*models.Room

	// Room returns the current state of one room.
	Room(id string) (*models.Room, bool)
}

// MemorySource is a RoomSource held in memory. Rooms are copied on the way
// in, so callers may keep mutating their own values.
type MemorySource struct {
	mu     sync.RWMutex
	rooms  map[string]*models.Room
	events chan models.RoomEvent
}

// NewMemorySource returns an empty source whose event channel holds buffer
// events.
func NewMemorySource(buffer int) *MemorySource {
	return &MemorySource{
		rooms:  make(map[string]*models.Room),
		events: make(chan models.RoomEvent, buffer),
	}
}

func (m *MemorySource) Rooms() []*models.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemorySource) Room(id string) (*models.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Set stores a copy of room without emitting an event.
func (m *MemorySource) Set(room *models.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ID] = cloneRoom(room)
}

// Delete forgets a room without emitting an event.
func (m *MemorySource) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
}

// Events is the upstream change stream.
func (m *MemorySource) Events() <-chan models.RoomEvent {
	return m.events
}

// Emit queues an event, blocking while the buffer is full.
func (m *MemorySource) Emit(ctx context.Context, eventType models.RoomEventType, roomID string) error {
	ev := models.RoomEvent{Type: eventType, RoomID: roomID, Timestamp: time.Now().UTC()}
	select {
	case m.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Update stores room and emits an event for it.
func (m *MemorySource) Update(ctx context.Context, eventType models.RoomEventType, room *models.Room) error {
	if eventType == models.RoomEventRemoved {
		m.Delete(room.ID)
	} else {
		m.Set(room)
	}
	return m.Emit(ctx, eventType, room.ID)
}

func cloneRoom(room *models.Room) *models.Room {
	cp := *room
	if room.Tags != nil {
		cp.Tags = make(map[models.Tag]models.TagMeta, len(room.Tags))
		for tag, meta := range room.Tags {
			if meta.Order != nil {
				meta.Order = models.Float64(*meta.Order)
			}
			cp.Tags[tag] = meta
		}
	}
	return &cp
}
