package filters

import (
	"strings"

	"github.com/tOgg1/roomlist/internal/models"
)

// NameFilter is a runtime condition matching a case-insensitive substring of
// the room name or ID. It is immutable; replace it to change the query.
type NameFilter struct {
	query string
	tags  []models.Tag
}

// NewNameFilter returns a search condition. When tags are given only those
// buckets are narrowed.
func NewNameFilter(query string, tags ...models.Tag) *NameFilter {
	return &NameFilter{
		query: strings.ToLower(strings.TrimSpace(query)),
		tags:  append([]models.Tag(nil), tags...),
	}
}

func (f *NameFilter) Kind() Kind { return KindRuntime }

// Query returns the normalized search text.
func (f *NameFilter) Query() string { return f.query }

func (f *NameFilter) RelevantTags() []models.Tag {
	return append([]models.Tag(nil), f.tags...)
}

func (f *NameFilter) IsVisible(room *models.Room) bool {
	if f.query == "" {
		return true
	}
	name := strings.ToLower(room.Name)
	if name == "" {
		name = strings.ToLower(room.ID)
	}
	return strings.Contains(name, f.query) || strings.Contains(strings.ToLower(room.ID), f.query)
}

// MembershipFilter is a prefilter hiding rooms in the given membership states.
type MembershipFilter struct {
	hidden map[models.Membership]struct{}
}

// NewMembershipFilter hides rooms whose membership is one of hidden.
func NewMembershipFilter(hidden ...models.Membership) *MembershipFilter {
	set := make(map[models.Membership]struct{}, len(hidden))
	for _, m := range hidden {
		set[m] = struct{}{}
	}
	return &MembershipFilter{hidden: set}
}

func (f *MembershipFilter) Kind() Kind { return KindPrefilter }

func (f *MembershipFilter) IsVisible(room *models.Room) bool {
	_, hidden := f.hidden[room.Membership]
	return !hidden
}
