// Package sorting resolves the effective sort configuration of a tag.
package sorting

import (
	"errors"
	"fmt"

	"github.com/tOgg1/roomlist/internal/models"
)

// ErrMalformedValue marks a persisted value that could not be parsed.
var ErrMalformedValue = errors.New("malformed sort setting")

// Source names where a resolved value came from.
type Source string

const (
	SourceDevice  Source = "device"
	SourceLegacy  Source = "legacy"
	SourceRuntime Source = "runtime"
	SourceDefault Source = "default"
)

// Inputs are the four configuration sources for one tag. Nil means unset.
type Inputs struct {
	DeviceSort  *string
	DeviceOrder *string

	LegacyAlphabetic *bool
	LegacyImportance *bool

	RuntimeSort  *models.SortAlgorithm
	RuntimeOrder *models.ListOrdering
}

// Resolution is the outcome of ResolveConfig.
type Resolution struct {
	Config      models.SortConfig
	SortSource  Source
	OrderSource Source

	// Conflicts lists malformed values that were skipped.
	Conflicts []error
}

// DefaultConfig is the computed fallback: Recent for invites and direct
// chats, Alphabetic elsewhere, always Natural.
func DefaultConfig(tag models.Tag) models.SortConfig {
	alg := models.SortAlphabetic
	if tag == models.TagInvite || tag == models.TagDM {
		alg = models.SortRecent
	}
	return models.SortConfig{Algorithm: alg, Ordering: models.OrderingNatural}
}

// ResolveConfig applies the precedence device > legacy > runtime > default
// independently to the algorithm and the ordering. It is a pure function.
func ResolveConfig(tag models.Tag, in Inputs) Resolution {
	def := DefaultConfig(tag)
	res := Resolution{Config: def, SortSource: SourceDefault, OrderSource: SourceDefault}

	switch {
	case in.DeviceSort != nil && parseAlgorithm(*in.DeviceSort, &res):
	case in.LegacyAlphabetic != nil:
		res.SortSource = SourceLegacy
		if *in.LegacyAlphabetic {
			res.Config.Algorithm = models.SortAlphabetic
		} else {
			res.Config.Algorithm = models.SortRecent
		}
	case in.RuntimeSort != nil && in.RuntimeSort.Valid():
		res.SortSource = SourceRuntime
		res.Config.Algorithm = *in.RuntimeSort
	}

	switch {
	case in.DeviceOrder != nil && parseOrdering(*in.DeviceOrder, &res):
	case in.LegacyImportance != nil:
		res.OrderSource = SourceLegacy
		if *in.LegacyImportance {
			res.Config.Ordering = models.OrderingImportance
		} else {
			res.Config.Ordering = models.OrderingNatural
		}
	case in.RuntimeOrder != nil && in.RuntimeOrder.Valid():
		res.OrderSource = SourceRuntime
		res.Config.Ordering = *in.RuntimeOrder
	}

	return res
}

func parseAlgorithm(value string, res *Resolution) bool {
	alg, err := models.ParseSortAlgorithm(value)
	if err != nil {
		res.Conflicts = append(res.Conflicts, fmt.Errorf("%w: algorithm %q", ErrMalformedValue, value))
		return false
	}
	res.Config.Algorithm = alg
	res.SortSource = SourceDevice
	return true
}

func parseOrdering(value string, res *Resolution) bool {
	ord, err := models.ParseListOrdering(value)
	if err != nil {
		res.Conflicts = append(res.Conflicts, fmt.Errorf("%w: ordering %q", ErrMalformedValue, value))
		return false
	}
	res.Config.Ordering = ord
	res.OrderSource = SourceDevice
	return true
}
