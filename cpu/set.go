package cpu

import "sort"

// Set is a mutable set of core ids. It has no internal locking; the
// lifecycle controller's global lock serializes all access.
type Set struct {
	ids map[int]struct{}
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{ids: make(map[int]struct{})}
}

// Insert adds id to the set.
func (s *Set) Insert(id int) { s.ids[id] = struct{}{} }

// Remove deletes id from the set. Removing an absent id is a no-op.
func (s *Set) Remove(id int) { delete(s.ids, id) }

// Contains reports membership.
func (s *Set) Contains(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.ids) }

// Members returns the ids in ascending order.
func (s *Set) Members() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Drain calls fn for every member in ascending order and removes each from
// the set regardless of what fn does.
func (s *Set) Drain(fn func(id int)) {
	for _, id := range s.Members() {
		fn(id)
		delete(s.ids, id)
	}
}
