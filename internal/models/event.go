package models

import (
	"time"
)

// RoomEventType categorizes upstream change notifications from the chat client.
type RoomEventType string

const (
	RoomEventAdded         RoomEventType = "room.added"
	RoomEventTimeline      RoomEventType = "room.timeline"
	RoomEventNameChanged   RoomEventType = "room.name"
	RoomEventMembership    RoomEventType = "room.membership"
	RoomEventTags          RoomEventType = "room.tags"
	RoomEventDirectChanged RoomEventType = "room.direct"
	RoomEventReceipt       RoomEventType = "room.receipt"
	RoomEventRemoved       RoomEventType = "room.removed"
	RoomEventDecrypted     RoomEventType = "room.decrypted"
)

// RoomEvent is one upstream change notification. The room state itself is
// fetched from the room source when the event is handled.
type RoomEvent struct {
	// Type categorizes the change.
	Type RoomEventType `json:"type" yaml:"type"`

	// RoomID is the room the change applies to.
	RoomID string `json:"room_id" yaml:"room_id"`

	// Timestamp is when the client observed the change.
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// EventType categorizes notifications published by the room list store.
type EventType string

const (
	// EventTypeListsChanged tells readers to re-read the published lists.
	EventTypeListsChanged EventType = "lists.changed"

	// EventTypeTagFilterChanged reports that the runtime filter set affecting
	// one tag changed.
	EventTypeTagFilterChanged EventType = "tag.filter_changed"
)

// Event is a notification published by the room list store.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// Tag is set for tag-scoped events.
	Tag Tag `json:"tag,omitempty"`

	// Version is the snapshot version the event refers to.
	Version uint64 `json:"version"`
}
