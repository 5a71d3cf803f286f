package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
)

// Format is a supported file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	}
	return "", errors.NewInvalidInputError("ReadFile",
		fmt.Sprintf("unsupported file extension %q", filepath.Ext(path))).
		WithHint("use .csv or .parquet")
}

// Extension returns the file extension written for f, with the dot.
func (f Format) Extension() string {
	if f == FormatParquet {
		return ".parquet"
	}
	return ".csv"
}

// ReadFile reads a CSV or Parquet file chosen by extension.
func ReadFile(path string, mem memory.Allocator) (*dataframe.DataFrame, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var reader DataReader
	if format == FormatParquet {
		reader = NewParquetReader(f, DefaultParquetOptions(), mem)
	} else {
		reader = NewCSVReader(f, DefaultCSVOptions(), mem)
	}
	df, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return df, nil
}

// FileSink writes tables to paths, choosing Parquet for .parquet paths and
// CSV with a header row otherwise. Parent directories are created.
type FileSink struct {
	CSV     CSVOptions
	Parquet ParquetOptions
}

// NewFileSink creates a FileSink that stores row labels in DefaultIndexColumn.
func NewFileSink() *FileSink {
	csvOpts := DefaultCSVOptions()
	csvOpts.IndexColumn = DefaultIndexColumn
	pqOpts := DefaultParquetOptions()
	pqOpts.IndexColumn = DefaultIndexColumn
	return &FileSink{CSV: csvOpts, Parquet: pqOpts}
}

// Write implements the table sink used by the normalizer and the pipeline.
func (s *FileSink) Write(df *dataframe.DataFrame, path string) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	var writer DataWriter
	if format, _ := FormatFromPath(path); format == FormatParquet {
		writer = NewParquetWriter(f, s.Parquet)
	} else {
		writer = NewCSVWriter(f, s.CSV)
	}
	if err := writer.Write(df); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadBack reads a file written by s, restoring its row labels.
func (s *FileSink) ReadBack(path string, mem memory.Allocator) (*dataframe.DataFrame, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if format == FormatParquet {
		return NewParquetReader(f, s.Parquet, mem).Read()
	}
	return NewCSVReader(f, s.CSV, mem).Read()
}
