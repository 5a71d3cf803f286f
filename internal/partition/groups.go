package partition

import (
	"cmp"
	"math"
	"slices"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/series"
)

// GroupNumbers replaces each grouping value with its 1-based rank among the
// sorted unique values of the column. Text sorts lexicographically, other
// values numerically. Null and NaN cells are null.
func GroupNumbers(col series.Column, mem memory.Allocator) (*series.Series[int64], error) {
	ids := make([]int64, col.Len())
	valid := make([]bool, col.Len())

	if series.IsString(col) {
		assignRanks(col, ids, valid, func(i int) (string, bool) {
			if col.IsNull(i) {
				return "", false
			}
			return col.GetAsString(i), true
		})
	} else {
		for i := range col.Len() {
			if !col.IsNull(i) {
				if _, ok := col.Float64(i); !ok {
					return nil, errors.NewUnsupportedTypeError("GroupNumbers", col.Name(), col.DataType().String())
				}
			}
		}
		assignRanks(col, ids, valid, func(i int) (float64, bool) {
			v, ok := col.Float64(i)
			return v, ok && !math.IsNaN(v)
		})
	}

	return series.NewNullable(col.Name(), ids, valid, mem)
}

func assignRanks[K cmp.Ordered](col series.Column, ids []int64, valid []bool, key func(int) (K, bool)) {
	var unique []K
	seen := make(map[K]bool)
	for i := range col.Len() {
		if k, ok := key(i); ok && !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}
	slices.Sort(unique)

	rank := make(map[K]int64, len(unique))
	for i, k := range unique {
		rank[k] = int64(i + 1)
	}
	for i := range col.Len() {
		if k, ok := key(i); ok {
			ids[i] = rank[k]
			valid[i] = true
		}
	}
}
