package partition

// IndexSet is an ordered collection of unique row labels.
type IndexSet struct {
	labels []int64
	member map[int64]struct{}
}

// NewIndexSet creates a set keeping the first occurrence of each label.
func NewIndexSet(labels []int64) IndexSet {
	s := IndexSet{
		labels: make([]int64, 0, len(labels)),
		member: make(map[int64]struct{}, len(labels)),
	}
	for _, l := range labels {
		if _, dup := s.member[l]; dup {
			continue
		}
		s.member[l] = struct{}{}
		s.labels = append(s.labels, l)
	}
	return s
}

// Labels returns the labels in set order.
func (s IndexSet) Labels() []int64 {
	return append([]int64{}, s.labels...)
}

// Len returns the number of labels.
func (s IndexSet) Len() int {
	return len(s.labels)
}

// Contains reports whether label is in the set.
func (s IndexSet) Contains(label int64) bool {
	_, ok := s.member[label]
	return ok
}

// Intersect returns the labels of s that are also in other, in s's order.
func (s IndexSet) Intersect(other IndexSet) IndexSet {
	kept := make([]int64, 0, min(s.Len(), other.Len()))
	for _, l := range s.labels {
		if other.Contains(l) {
			kept = append(kept, l)
		}
	}
	return NewIndexSet(kept)
}

// IntersectAll folds Intersect over sets, keeping the first set's order.
// With no sets it returns an empty set.
func IntersectAll(sets ...IndexSet) IndexSet {
	if len(sets) == 0 {
		return NewIndexSet(nil)
	}
	out := sets[0]
	for _, s := range sets[1:] {
		out = out.Intersect(s)
	}
	return out
}
