// Package tags assigns rooms to room list buckets.
package tags

import (
	"github.com/tOgg1/roomlist/internal/models"
)

// Classifier derives the tag set of a room. Precedence, first match wins:
// archived (left or banned), invite, direct chat, then favourite, low
// priority and custom tags, falling back to untagged.
type Classifier struct {
	// CustomTags enables buckets for user-defined raw tags.
	CustomTags bool
}

// Classify returns the buckets a room belongs to. The result is never empty
// for a non-nil room.
func (c Classifier) Classify(room *models.Room) []models.Tag {
	if room == nil {
		return nil
	}

	switch room.Membership {
	case models.MembershipLeft, models.MembershipBanned:
		return []models.Tag{models.TagArchived}
	case models.MembershipInvited:
		return []models.Tag{models.TagInvite}
	}

	if room.IsDirectChat() {
		return []models.Tag{models.TagDM}
	}

	var tags []models.Tag
	switch {
	case room.HasTag(models.TagFavourite):
		tags = append(tags, models.TagFavourite)
	case room.HasTag(models.TagLowPriority):
		tags = append(tags, models.TagLowPriority)
	}

	if c.CustomTags {
		for tag := range room.Tags {
			if tag.IsCustom() {
				tags = append(tags, tag)
			}
		}
	}

	if len(tags) == 0 {
		return []models.Tag{models.TagUntagged}
	}
	return models.OrderTags(tags)
}

// IsKnownTag reports whether tag names a bucket the classifier can produce.
func (c Classifier) IsKnownTag(tag models.Tag) bool {
	if tag.IsDefault() {
		return true
	}
	return c.CustomTags && tag.IsCustom()
}

// Diff compares two classifications and returns the tags a room leaves and
// joins.
func Diff(before, after []models.Tag) (removed, added []models.Tag) {
	in := func(list []models.Tag, tag models.Tag) bool {
		for _, t := range list {
			if t == tag {
				return true
			}
		}
		return false
	}
	for _, tag := range before {
		if !in(after, tag) {
			removed = append(removed, tag)
		}
	}
	for _, tag := range after {
		if !in(before, tag) {
			added = append(added, tag)
		}
	}
	return removed, added
}
