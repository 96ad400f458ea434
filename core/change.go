package core

// DiffType classifies a change between two snapshots of an entity set.
type DiffType int

const (
	Added DiffType = iota
	Modified
	Deleted
)

func (d DiffType) String() string {
	switch d {
	case Added:
		return "ADDED"
	case Modified:
		return "MODIFIED"
	case Deleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// TypeRefIDSet is a set of (type, refId) pairs backed by a fixed-size
// table indexed by the entity type enumeration.
type TypeRefIDSet struct {
	sets [TypeCount]map[string]struct{}
}

// NewTypeRefIDSet returns an empty set.
func NewTypeRefIDSet() *TypeRefIDSet {
	return &TypeRefIDSet{}
}

// Add inserts the reference's (type, refId) pair.
func (s *TypeRefIDSet) Add(ref Reference) {
	if !ref.Type.IsValid() {
		return
	}
	if s.sets[ref.Type] == nil {
		s.sets[ref.Type] = make(map[string]struct{})
	}
	s.sets[ref.Type][ref.RefID] = struct{}{}
}

// Contains reports whether the (type, refId) pair is in the set.
func (s *TypeRefIDSet) Contains(ref Reference) bool {
	if !ref.Type.IsValid() || s.sets[ref.Type] == nil {
		return false
	}
	_, ok := s.sets[ref.Type][ref.RefID]
	return ok
}

// Remove deletes the (type, refId) pair if present.
func (s *TypeRefIDSet) Remove(ref Reference) {
	if !ref.Type.IsValid() || s.sets[ref.Type] == nil {
		return
	}
	delete(s.sets[ref.Type], ref.RefID)
}

// Len returns the number of pairs in the set.
func (s *TypeRefIDSet) Len() int {
	n := 0
	for _, m := range s.sets {
		n += len(m)
	}
	return n
}

// Each calls fn for every pair, in type order. RefId order within a
// type is unspecified.
func (s *TypeRefIDSet) Each(fn func(t EntityType, refID string)) {
	for i, m := range s.sets {
		for refID := range m {
			fn(EntityType(i), refID)
		}
	}
}
