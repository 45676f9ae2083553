package models

import (
	"sort"
	"strings"
)

// Tag identifies a room list bucket.
type Tag string

// Default tags. Favourite and LowPriority double as the raw tag names set by the
// chat client; the others are synthesized from membership and account data.
const (
	TagInvite      Tag = "im.vector.fake.invite"
	TagFavourite   Tag = "m.favourite"
	TagDM          Tag = "im.vector.fake.direct"
	TagUntagged    Tag = "im.vector.fake.recent"
	TagLowPriority Tag = "m.lowpriority"
	TagArchived    Tag = "im.vector.fake.archived"
)

// reservedTagPrefix marks protocol-owned raw tags that never become custom buckets.
const reservedTagPrefix = "m."

// DefaultTagOrder is the display priority of the default tags.
var DefaultTagOrder = []Tag{
	TagInvite,
	TagFavourite,
	TagDM,
	TagUntagged,
	TagLowPriority,
	TagArchived,
}

var tagDisplayNames = map[Tag]string{
	TagInvite:      "Invites",
	TagFavourite:   "Favourites",
	TagDM:          "People",
	TagUntagged:    "Rooms",
	TagLowPriority: "Low priority",
	TagArchived:    "Historical",
}

// IsDefault reports whether the tag is one of the default tags.
func (t Tag) IsDefault() bool {
	_, ok := tagDisplayNames[t]
	return ok
}

// IsCustom reports whether the tag can act as a custom bucket.
func (t Tag) IsCustom() bool {
	if t == "" || t.IsDefault() {
		return false
	}
	return !strings.HasPrefix(string(t), reservedTagPrefix)
}

// DisplayName returns a human label for the tag.
func (t Tag) DisplayName() string {
	if name, ok := tagDisplayNames[t]; ok {
		return name
	}
	name := string(t)
	if strings.HasPrefix(name, "u.") {
		name = name[2:]
	}
	return name
}

// OrderTags returns tags in display order: default tags by DefaultTagOrder with
// custom tags, sorted by name, placed right after the DM bucket.
func OrderTags(tags []Tag) []Tag {
	present := make(map[Tag]struct{}, len(tags))
	var custom []Tag
	for _, tag := range tags {
		if _, ok := present[tag]; ok {
			continue
		}
		present[tag] = struct{}{}
		if !tag.IsDefault() {
			custom = append(custom, tag)
		}
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i] < custom[j] })

	out := make([]Tag, 0, len(present))
	for _, tag := range DefaultTagOrder {
		if _, ok := present[tag]; ok {
			out = append(out, tag)
		}
		if tag == TagDM {
			out = append(out, custom...)
		}
	}
	return out
}
