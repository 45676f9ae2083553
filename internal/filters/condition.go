// Package filters provides the visibility conditions applied to the room list.
//
// Prefilter conditions narrow the candidate set before rooms are tagged and
// sorted; changing one forces a full rebuild. Runtime conditions narrow the
// already-sorted buckets in place, e.g. for a search box.
package filters

import (
	"sync"

	"github.com/tOgg1/roomlist/internal/models"
)

// Kind says where a condition is applied.
type Kind int

const (
	// KindPrefilter restricts the candidate set before tagging.
	KindPrefilter Kind = iota
	// KindRuntime narrows buckets after sorting.
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindPrefilter:
		return "prefilter"
	case KindRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Condition is a visibility predicate over rooms.
type Condition interface {
	Kind() Kind
	IsVisible(room *models.Room) bool
}

// Notifier is implemented by conditions whose internal state can change.
// The store rebuilds its candidate set when a prefilter notifies.
type Notifier interface {
	// OnChange registers fn and returns a function that unregisters it.
	OnChange(fn func()) (cancel func())
}

// TagScoped is implemented by runtime conditions that only narrow some tags.
// An empty result means every tag.
type TagScoped interface {
	RelevantTags() []models.Tag
}

// Set is an AND-combination of conditions. The zero value accepts every room.
type Set struct {
	conditions []Condition
}

// Add appends c unless it is already present.
func (s *Set) Add(c Condition) bool {
	if c == nil || s.Contains(c) {
		return false
	}
	s.conditions = append(s.conditions, c)
	return true
}

// Remove drops c, reporting whether it was present.
func (s *Set) Remove(c Condition) bool {
	for i, existing := range s.conditions {
		if existing == c {
			s.conditions = append(s.conditions[:i:i], s.conditions[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether c is part of the set.
func (s *Set) Contains(c Condition) bool {
	for _, existing := range s.conditions {
		if existing == c {
			return true
		}
	}
	return false
}

// Len returns the number of conditions.
func (s *Set) Len() int { return len(s.conditions) }

// Conditions returns a copy of the conditions in insertion order.
func (s *Set) Conditions() []Condition {
	return append([]Condition(nil), s.conditions...)
}

// IsVisible reports whether every condition accepts the room.
func (s *Set) IsVisible(room *models.Room) bool {
	if room == nil {
		return false
	}
	for _, c := range s.conditions {
		if !c.IsVisible(room) {
			return false
		}
	}
	return true
}

// IsVisibleIn reports whether every condition relevant to tag accepts the room.
func (s *Set) IsVisibleIn(tag models.Tag, room *models.Room) bool {
	if room == nil {
		return false
	}
	for _, c := range s.conditions {
		if !Applies(c, tag) {
			continue
		}
		if !c.IsVisible(room) {
			return false
		}
	}
	return true
}

// Applies reports whether c narrows the given tag.
func Applies(c Condition, tag models.Tag) bool {
	scoped, ok := c.(TagScoped)
	if !ok {
		return true
	}
	relevant := scoped.RelevantTags()
	if len(relevant) == 0 {
		return true
	}
	for _, t := range relevant {
		if t == tag {
			return true
		}
	}
	return false
}

// Func adapts a plain predicate into a Condition.
type Func struct {
	K  Kind
	Fn func(room *models.Room) bool
}

func (f *Func) Kind() Kind { return f.K }

func (f *Func) IsVisible(room *models.Room) bool {
	if f.Fn == nil {
		return true
	}
	return f.Fn(room)
}

// changeNotifier is embedded by conditions that implement Notifier.
type changeNotifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func()
}

func (n *changeNotifier) OnChange(fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = make(map[int]func())
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// emit invokes listeners outside the lock so they may call back into the condition.
func (n *changeNotifier) emit() {
	n.mu.Lock()
	listeners := make([]func(), 0, len(n.listeners))
	for _, fn := range n.listeners {
		listeners = append(listeners, fn)
	}
	n.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
