package cli

import (
	"fmt"
	"strings"

	"github.com/tOgg1/roomlist/internal/models"
)

var tagAliases = map[string]models.Tag{
	"invite":      models.TagInvite,
	"invites":     models.TagInvite,
	"favourite":   models.TagFavourite,
	"favourites":  models.TagFavourite,
	"favorite":    models.TagFavourite,
	"favorites":   models.TagFavourite,
	"dm":          models.TagDM,
	"people":      models.TagDM,
	"rooms":       models.TagUntagged,
	"untagged":    models.TagUntagged,
	"low":         models.TagLowPriority,
	"lowpriority": models.TagLowPriority,
	"archived":    models.TagArchived,
	"historical":  models.TagArchived,
}

// parseTag accepts a short alias, a display name or a raw tag.
func parseTag(value string) (models.Tag, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("tag is required")
	}
	key := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(trimmed))
	if tag, ok := tagAliases[key]; ok {
		return tag, nil
	}
	return models.Tag(trimmed), nil
}
