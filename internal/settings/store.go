// Package settings implements the collaborator that persists per-tag sort
// preferences and the legacy global ordering switches.
package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/tOgg1/roomlist/internal/models"
)

// Legacy global switches predating per-tag configuration.
const (
	LegacyOrderAlphabetically = "order_alphabetically"
	LegacyOrderByImportance   = "order_by_importance"
)

const (
	sortKeyPrefix  = "tag_sort."
	orderKeyPrefix = "list_order."
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("settings store closed")

// Store is the settings collaborator. Reads never block on I/O; writes may.
type Store interface {
	// Get returns the raw value stored under key.
	Get(key string) (string, bool)

	// Bool returns a boolean setting. Values that do not parse are reported
	// as absent.
	Bool(name string) (bool, bool)

	// Set stores value under key, overwriting any previous value, and returns
	// once the value is durable.
	Set(ctx context.Context, key, value string) error

	// SetIfAbsent stores value only when key has no value yet.
	SetIfAbsent(ctx context.Context, key, value string) (bool, error)
}

// SortKey is the device storage key for a tag's sort algorithm.
func SortKey(tag models.Tag) string {
	return sortKeyPrefix + string(tag)
}

// OrderKey is the device storage key for a tag's list ordering.
func OrderKey(tag models.Tag) string {
	return orderKeyPrefix + string(tag)
}

// TagForKey reverses SortKey and OrderKey.
func TagForKey(key string) (models.Tag, bool) {
	for _, prefix := range []string{sortKeyPrefix, orderKeyPrefix} {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return models.Tag(key[len(prefix):]), true
		}
	}
	return "", false
}

func parseBool(value string, ok bool) (bool, bool) {
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, false
	}
	return b, true
}
