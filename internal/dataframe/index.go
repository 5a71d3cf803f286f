package dataframe

import (
	"fmt"
)

// Index is the ordered row label sequence shared by every column of a
// DataFrame. Labels are unique within one index.
type Index struct {
	labels    []int64
	positions map[int64]int
}

// NewRangeIndex creates the default 0..n-1 index.
func NewRangeIndex(n int) *Index {
	labels := make([]int64, n)
	for i := range labels {
		labels[i] = int64(i)
	}
	idx, _ := NewIndex(labels)
	return idx
}

// NewIndex creates an index over arbitrary unique labels.
func NewIndex(labels []int64) (*Index, error) {
	positions := make(map[int64]int, len(labels))
	for i, l := range labels {
		if _, dup := positions[l]; dup {
			return nil, fmt.Errorf("duplicate index label %d", l)
		}
		positions[l] = i
	}
	return &Index{
		labels:    append([]int64(nil), labels...),
		positions: positions,
	}, nil
}

// Len returns the number of labels.
func (idx *Index) Len() int {
	return len(idx.labels)
}

// Labels returns a copy of the labels in row order.
func (idx *Index) Labels() []int64 {
	return append([]int64(nil), idx.labels...)
}

// Label returns the label at a row position.
func (idx *Index) Label(pos int) int64 {
	return idx.labels[pos]
}

// Position returns the row position of a label.
func (idx *Index) Position(label int64) (int, bool) {
	pos, ok := idx.positions[label]
	return pos, ok
}

// take returns the index restricted to the given positions. Repeated
// positions would repeat labels and are rejected.
func (idx *Index) take(positions []int) (*Index, error) {
	labels := make([]int64, len(positions))
	for i, p := range positions {
		labels[i] = idx.labels[p]
	}
	return NewIndex(labels)
}
