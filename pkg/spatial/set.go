package spatial

// orderedSet keeps insertion order stable under removal by swapping the
// last element into the hole, so iteration is deterministic.
type orderedSet[T comparable] struct {
	items []T
	pos   map[T]int
}

func (s *orderedSet[T]) add(v T) bool {
	if s.pos == nil {
		s.pos = make(map[T]int)
	}
	if _, ok := s.pos[v]; ok {
		return false
	}
	s.pos[v] = len(s.items)
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet[T]) remove(v T) bool {
	i, ok := s.pos[v]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	if i != last {
		s.items[i] = s.items[last]
		s.pos[s.items[i]] = i
	}
	s.items = s.items[:last]
	delete(s.pos, v)
	return true
}

func (s *orderedSet[T]) has(v T) bool {
	_, ok := s.pos[v]
	return ok
}

func (s *orderedSet[T]) len() int { return len(s.items) }

func (s *orderedSet[T]) clear() {
	s.items = nil
	s.pos = nil
}
