package io_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	dferrors "github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/io"
	"github.com/paveg/mlprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want io.Format
	}{
		{"data.csv", io.FormatCSV},
		{"DATA.CSV", io.FormatCSV},
		{"out/x.parquet", io.FormatParquet},
		{"x.pq", io.FormatParquet},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := io.FormatFromPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := io.FormatFromPath("data.xlsx")
	require.ErrorIs(t, err, dferrors.ErrInvalidInput)
	assert.Equal(t, ".parquet", io.FormatParquet.Extension())
}

func TestFileSinkAndReadFile(t *testing.T) {
	mem := memory.NewGoAllocator()

	df := testutil.CreateTestDataFrame(mem)
	defer df.Release()
	sub, err := df.DropRows([]int{0})
	require.NoError(t, err)
	defer sub.Release()

	sink := io.NewFileSink()
	for _, name := range []string{"nested/out.csv", "nested/out.parquet"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, sink.Write(sub, path))

			back, err := sink.ReadBack(path, mem)
			require.NoError(t, err)
			defer back.Release()
			testutil.AssertDataFrameEqual(t, sub, back)

			// ReadFile treats the stored labels as data
			raw, err := io.ReadFile(path, mem)
			require.NoError(t, err)
			defer raw.Release()
			assert.Equal(t, append([]string{"index"}, sub.Columns()...), raw.Columns())
			assert.Equal(t, []int64{0, 1, 2}, raw.Index().Labels())
		})
	}
}

func TestReadFileErrors(t *testing.T) {
	_, err := io.ReadFile(filepath.Join(t.TempDir(), "missing.csv"), nil)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = io.ReadFile("table.json", nil)
	require.ErrorIs(t, err, dferrors.ErrInvalidInput)
}
