package icon

// Set is an insertion-ordered set of icons keyed by [Key].
//
// Scores are ignored for membership, so an icon may be scored after it was
// added without affecting deduplication. The zero value is ready to use.
type Set struct {
	index map[Key]int
	items []Icon
}

// Add inserts i unless an icon with the same identity is present.
// It reports whether the icon was added.
func (s *Set) Add(i Icon) bool {
	if s.index == nil {
		s.index = make(map[Key]int)
	}
	k := i.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.items)
	s.items = append(s.items, i)
	return true
}

// AddAll inserts every icon in icons.
func (s *Set) AddAll(icons []Icon) {
	for _, i := range icons {
		s.Add(i)
	}
}

// Contains reports whether an icon with the identity of i is present.
func (s *Set) Contains(i Icon) bool {
	_, ok := s.index[i.Key()]
	return ok
}

// Len returns the number of distinct icons.
func (s *Set) Len() int {
	return len(s.items)
}

// Icons returns a copy of the members in insertion order.
func (s *Set) Icons() []Icon {
	out := make([]Icon, len(s.items))
	copy(out, s.items)
	return out
}
