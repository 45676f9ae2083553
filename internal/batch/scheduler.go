// Package batch coalesces bursts of updates into a single flush.
package batch

import "sync"

// Scheduler is an edge-triggered dirty flag. Mark records that work is
// pending; Trigger runs the flush callback once if anything was marked.
// There is no timer: callers Trigger at the end of each burst.
type Scheduler struct {
	mu    sync.Mutex
	dirty bool
	flush func()
	count uint64
}

// New returns a clean scheduler that calls flush on Trigger.
func New(flush func()) *Scheduler {
	return &Scheduler{flush: flush}
}

// Mark sets the dirty flag. Repeated marks are no-ops.
func (s *Scheduler) Mark() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Dirty reports whether a flush is pending.
func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Trigger runs the flush callback if the scheduler is dirty and reports
// whether it did. The flag is cleared before the callback runs, so marks
// made by the callback schedule another flush.
func (s *Scheduler) Trigger() bool {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return false
	}
	s.dirty = false
	s.count++
	s.mu.Unlock()

	if s.flush != nil {
		s.flush()
	}
	return true
}

// Flushes returns how many flushes have run.
func (s *Scheduler) Flushes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
