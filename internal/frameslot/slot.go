// Package frameslot hands values from one producer to one consumer through a
// single slot where the newest value wins.
package frameslot

import "sync/atomic"

// Slot is a one-element mailbox. Put never blocks: an unread value is
// replaced and passed to the drop callback so its resources can be freed.
type Slot[T any] struct {
	ch      chan T
	drop    func(T)
	dropped atomic.Uint64
}

// New returns an empty slot. drop may be nil.
func New[T any](drop func(T)) *Slot[T] {
	return &Slot[T]{ch: make(chan T, 1), drop: drop}
}

// Put stores v, displacing any value the consumer has not taken yet.
func (s *Slot[T]) Put(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case old := <-s.ch:
			s.dropped.Add(1)
			if s.drop != nil {
				s.drop(old)
			}
		default:
		}
	}
}

// C returns the receive side for use in select statements.
func (s *Slot[T]) C() <-chan T { return s.ch }

// TryGet returns the pending value, if any, without blocking.
func (s *Slot[T]) TryGet() (T, bool) {
	select {
	case v := <-s.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Drain discards a pending value through the drop callback.
func (s *Slot[T]) Drain() {
	if v, ok := s.TryGet(); ok && s.drop != nil {
		s.drop(v)
	}
}

// Dropped returns how many values were replaced before being read.
func (s *Slot[T]) Dropped() uint64 { return s.dropped.Load() }
