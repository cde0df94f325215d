// Package handles implements generation-checked handle tables.
//
// Native resources are never handed to callers as raw pointers. Each resource
// lives in a slot of a Table and is addressed through a Handle, which encodes
// the slot index and the slot generation at the time of insertion. Removing a
// value bumps the slot generation, so every copy of the old Handle becomes
// detectably stale instead of silently dangling.
//
// Handles are plain integers and can therefore also be stored in native memory
// (for example as the opaque pointer of an I/O callback).
package handles

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalid is returned for handles that were never issued by the table.
	ErrInvalid = errors.New("invalid handle")

	// ErrStale is returned for handles whose value was already removed.
	ErrStale = errors.New("stale handle")
)

// Handle addresses one slot of a Table. The zero Handle is never issued.
type Handle uint64

func newHandle(index, generation uint32) Handle {
	return Handle(uint64(index+1)<<32 | uint64(generation))
}

func (h Handle) slot() (uint32, bool) {
	hi := uint32(h >> 32)
	if hi == 0 {
		return 0, false
	}
	return hi - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h)
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h == 0
}

func (h Handle) String() string {
	idx, ok := h.slot()
	if !ok {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(%d@%d)", idx, h.generation())
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Table stores values of one resource kind.
//
// Thread-safe.
type Table[T any] struct {
	mu    sync.RWMutex
	kind  string
	slots []slot[T]
	free  []uint32
	live  int
}

// NewTable returns an empty table. kind is used in error messages.
func NewTable[T any](kind string) *Table[T] {
	return &Table[T]{kind: kind}
}

// Kind returns the resource kind name of the table.
func (t *Table[T]) Kind() string {
	return t.kind
}

// Insert stores v and returns its handle.
func (t *Table[T]) Insert(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{generation: 1})
	}

	s := &t.slots[idx]
	s.value = v
	s.live = true
	t.live++
	return newHandle(idx, s.generation)
}

// Get returns the value stored under h.
func (t *Table[T]) Get(h Handle) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, err := t.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Remove deletes the value stored under h and returns it. Any copy of h is
// stale afterwards.
func (t *Table[T]) Remove(h Handle) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	s, err := t.lookup(h)
	if err != nil {
		return zero, err
	}

	v := s.value
	s.value = zero
	s.live = false
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	idx, _ := h.slot()
	t.free = append(t.free, idx)
	t.live--
	return v, nil
}

// Contains reports whether h currently addresses a live value.
func (t *Table[T]) Contains(h Handle) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, err := t.lookup(h)
	return err == nil
}

// Len returns the number of live values.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Handles returns the handles of all live values, newest slot last.
func (t *Table[T]) Handles() []Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Handle, 0, t.live)
	for idx := range t.slots {
		s := &t.slots[idx]
		if s.live {
			result = append(result, newHandle(uint32(idx), s.generation))
		}
	}
	return result
}

// must be called with t.mu held
func (t *Table[T]) lookup(h Handle) (*slot[T], error) {
	idx, ok := h.slot()
	if !ok || int(idx) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %s %v", ErrInvalid, t.kind, h)
	}
	s := &t.slots[idx]
	if !s.live || s.generation != h.generation() {
		return nil, fmt.Errorf("%w: %s %v", ErrStale, t.kind, h)
	}
	return s, nil
}
