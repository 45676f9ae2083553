package filters

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/tOgg1/roomlist/internal/models"
)

// TagFilter is a prefilter that keeps rooms carrying at least one raw tag
// matching one of its glob patterns. With no patterns it keeps every room.
type TagFilter struct {
	changeNotifier

	mu       sync.RWMutex
	patterns []string
	matchers []glob.Glob
}

// NewTagFilter compiles the given patterns.
func NewTagFilter(patterns ...string) (*TagFilter, error) {
	f := &TagFilter{}
	if err := f.set(patterns); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *TagFilter) Kind() Kind { return KindPrefilter }

// Patterns returns the active patterns.
func (f *TagFilter) Patterns() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.patterns...)
}

// SetPatterns replaces the patterns and notifies listeners.
// On a compile error the previous patterns stay active.
func (f *TagFilter) SetPatterns(patterns ...string) error {
	if err := f.set(patterns); err != nil {
		return err
	}
	f.emit()
	return nil
}

func (f *TagFilter) set(patterns []string) error {
	cleaned := make([]string, 0, len(patterns))
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matcher, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid tag pattern %q: %w", pattern, err)
		}
		cleaned = append(cleaned, pattern)
		matchers = append(matchers, matcher)
	}

	f.mu.Lock()
	f.patterns = cleaned
	f.matchers = matchers
	f.mu.Unlock()
	return nil
}

func (f *TagFilter) IsVisible(room *models.Room) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.matchers) == 0 {
		return true
	}
	for tag := range room.Tags {
		for _, matcher := range f.matchers {
			if matcher.Match(string(tag)) {
				return true
			}
		}
	}
	return false
}
