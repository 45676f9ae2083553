package models

import (
	"fmt"
	"strings"
)

// SortAlgorithm selects the comparator used within a tag bucket.
type SortAlgorithm string

const (
	SortAlphabetic SortAlgorithm = "ALPHABETIC"
	SortRecent     SortAlgorithm = "RECENT"
	SortManual     SortAlgorithm = "MANUAL"
)

// ListOrdering selects whether importance tiers are applied before sorting.
type ListOrdering string

const (
	OrderingNatural    ListOrdering = "NATURAL"
	OrderingImportance ListOrdering = "IMPORTANCE"
)

// Valid reports whether the algorithm is known.
func (a SortAlgorithm) Valid() bool {
	switch a {
	case SortAlphabetic, SortRecent, SortManual:
		return true
	default:
		return false
	}
}

// Valid reports whether the ordering is known.
func (o ListOrdering) Valid() bool {
	return o == OrderingNatural || o == OrderingImportance
}

// ParseSortAlgorithm parses a persisted or user-supplied algorithm name.
func ParseSortAlgorithm(value string) (SortAlgorithm, error) {
	alg := SortAlgorithm(strings.ToUpper(strings.TrimSpace(value)))
	if !alg.Valid() {
		return "", fmt.Errorf("unknown sort algorithm %q", value)
	}
	return alg, nil
}

// ParseListOrdering parses a persisted or user-supplied ordering name.
func ParseListOrdering(value string) (ListOrdering, error) {
	ord := ListOrdering(strings.ToUpper(strings.TrimSpace(value)))
	if !ord.Valid() {
		return "", fmt.Errorf("unknown list ordering %q", value)
	}
	return ord, nil
}

// SortConfig is the effective sorting configuration of one tag bucket.
type SortConfig struct {
	Algorithm SortAlgorithm `json:"algorithm"`
	Ordering  ListOrdering  `json:"ordering"`
}

// Validate checks that both halves of the configuration are known values.
func (c SortConfig) Validate() error {
	var errs ValidationErrors
	if !c.Algorithm.Valid() {
		errs.AddMessage("algorithm", fmt.Sprintf("unknown sort algorithm %q", c.Algorithm))
	}
	if !c.Ordering.Valid() {
		errs.AddMessage("ordering", fmt.Sprintf("unknown list ordering %q", c.Ordering))
	}
	return errs.Err()
}

func (c SortConfig) String() string {
	return string(c.Algorithm) + "/" + string(c.Ordering)
}
