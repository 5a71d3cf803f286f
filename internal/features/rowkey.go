package features

import (
	"encoding/binary"
	"math"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/series"
)

// rowKeySet remembers encoded rows, bucketed by their xxhash digest.
// Keys inside a bucket are compared in full, so digest collisions never
// merge distinct rows.
type rowKeySet struct {
	buckets map[uint64][]string
}

func newRowKeySet(estimatedSize int) *rowKeySet {
	return &rowKeySet{buckets: make(map[uint64][]string, estimatedSize)}
}

// add records key and reports whether it was not present yet.
func (s *rowKeySet) add(key []byte) bool {
	hash := xxhash.Sum64(key)
	for _, existing := range s.buckets[hash] {
		if existing == string(key) {
			return false
		}
	}
	s.buckets[hash] = append(s.buckets[hash], string(key))
	return true
}

const (
	tagNull byte = iota
	tagInt
	tagFloat
	tagBool
	tagString
)

// encodeRow appends a type tagged encoding of row i to buf.
func encodeRow(buf []byte, cols []series.Column, i int) []byte {
	for _, c := range cols {
		buf = encodeCell(buf, c, i)
	}
	return buf
}

// encodeCell appends a type tagged encoding of one cell. NaN cells share one
// encoding and -0 encodes as 0, so equal-comparing floats collapse.
func encodeCell(buf []byte, c series.Column, i int) []byte {
	switch v := c.Any(i).(type) {
	case nil:
		return append(buf, tagNull)
	case int64:
		buf = append(buf, tagInt)
		return binary.LittleEndian.AppendUint64(buf, uint64(v)) //nolint:gosec // bit pattern only
	case float64:
		switch {
		case math.IsNaN(v):
			v = math.NaN()
		case v == 0:
			v = 0
		}
		buf = append(buf, tagFloat)
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	case bool:
		b := byte(0)
		if v {
			b = 1
		}
		return append(buf, tagBool, b)
	case string:
		buf = append(buf, tagString)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v))) //nolint:gosec // cell length fits
		return append(buf, v...)
	}
	return append(buf, tagNull)
}

func frameColumns(df *dataframe.DataFrame) []series.Column {
	names := df.Columns()
	cols := make([]series.Column, len(names))
	for j, name := range names {
		cols[j], _ = df.Column(name)
	}
	return cols
}
