package models

import "fmt"

// UpdateCause describes why a single room needs recomputation.
type UpdateCause string

const (
	CauseNewRoom           UpdateCause = "new_room"
	CauseTimeline          UpdateCause = "timeline"
	CausePossibleTagChange UpdateCause = "possible_tag_change"
	CauseReadReceipt       UpdateCause = "read_receipt"
	CauseRoomRemoved       UpdateCause = "room_removed"
	CauseDecrypted         UpdateCause = "decrypted"
)

// Valid reports whether the cause is known.
func (c UpdateCause) Valid() bool {
	switch c {
	case CauseNewRoom, CauseTimeline, CausePossibleTagChange, CauseReadReceipt, CauseRoomRemoved, CauseDecrypted:
		return true
	default:
		return false
	}
}

// CauseForEvent maps an upstream event type to its update cause.
// Every RoomEventType has exactly one cause.
func CauseForEvent(t RoomEventType) (UpdateCause, error) {
	switch t {
	case RoomEventAdded:
		return CauseNewRoom, nil
	case RoomEventTimeline, RoomEventNameChanged:
		return CauseTimeline, nil
	case RoomEventMembership, RoomEventTags, RoomEventDirectChanged:
		return CausePossibleTagChange, nil
	case RoomEventReceipt:
		return CauseReadReceipt, nil
	case RoomEventRemoved:
		return CauseRoomRemoved, nil
	case RoomEventDecrypted:
		return CauseDecrypted, nil
	default:
		return "", fmt.Errorf("unknown room event type %q", t)
	}
}
