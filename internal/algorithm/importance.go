package algorithm

import "github.com/tOgg1/roomlist/internal/models"

// Category is an importance tier. Lower values sort first.
type Category int

const (
	// CategoryRed rooms have unread highlights.
	CategoryRed Category = iota
	// CategoryGrey rooms have unread notifying events.
	CategoryGrey
	// CategoryBold rooms have unread events that do not notify.
	CategoryBold
	// CategoryIdle rooms have nothing unread.
	CategoryIdle
)

func (c Category) String() string {
	switch c {
	case CategoryRed:
		return "red"
	case CategoryGrey:
		return "grey"
	case CategoryBold:
		return "bold"
	case CategoryIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// ImportanceFunc maps a room to its importance tier.
type ImportanceFunc func(room *models.Room) Category

// DefaultImportance derives the tier from the room's notification counters.
func DefaultImportance(room *models.Room) Category {
	n := room.Notifications
	switch {
	case n.Highlights > 0:
		return CategoryRed
	case n.Notifying > 0:
		return CategoryGrey
	case n.Unread > 0:
		return CategoryBold
	default:
		return CategoryIdle
	}
}
