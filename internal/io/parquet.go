package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/series"
)

// Read reads Parquet data and returns a DataFrame.
func (r *ParquetReader) Read() (*dataframe.DataFrame, error) {
	// Parquet needs random access, so the input is buffered
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	return r.arrowTableToDataFrame(table)
}

// arrowTableToDataFrame converts an Arrow table to a DataFrame.
func (r *ParquetReader) arrowTableToDataFrame(table arrow.Table) (*dataframe.DataFrame, error) {
	schema := table.Schema()
	seriesList := make([]dataframe.ISeries, 0, table.NumCols())
	var labels []int64

	for i := range int(table.NumCols()) {
		field := schema.Field(i)
		arr, err := r.flatten(table.Column(i), field.Type)
		if err != nil {
			releaseSeries(seriesList)
			return nil, fmt.Errorf("converting column %s: %w", field.Name, err)
		}

		if r.options.IndexColumn != "" && field.Name == r.options.IndexColumn {
			labels, err = indexLabels(field.Name, arr)
			arr.Release()
			if err != nil {
				releaseSeries(seriesList)
				return nil, err
			}
			continue
		}

		s, err := series.FromArray(field.Name, arr, r.mem)
		arr.Release()
		if err != nil {
			releaseSeries(seriesList)
			return nil, errors.NewUnsupportedTypeError("ReadParquet", field.Name, field.Type.String())
		}
		seriesList = append(seriesList, s)
	}

	var (
		df  *dataframe.DataFrame
		err error
	)
	if labels != nil {
		df, err = dataframe.NewWithIndex(labels, seriesList...)
	} else {
		df, err = dataframe.NewSafe(seriesList...)
	}
	if err != nil {
		releaseSeries(seriesList)
		return nil, err
	}
	df.SetAllocator(r.mem)
	return df, nil
}

// flatten returns the column as a single array the caller must release.
func (r *ParquetReader) flatten(col *arrow.Column, dt arrow.DataType) (arrow.Array, error) {
	chunks := col.Data().Chunks()
	switch len(chunks) {
	case 0:
		return array.MakeArrayOfNull(r.mem, dt, 0), nil
	case 1:
		chunks[0].Retain()
		return chunks[0], nil
	default:
		return array.Concatenate(chunks, r.mem)
	}
}

func indexLabels(name string, arr arrow.Array) ([]int64, error) {
	ints, ok := arr.(*array.Int64)
	if !ok || ints.NullN() > 0 {
		return nil, errors.NewInvalidInputError("ReadParquet",
			fmt.Sprintf("index column %s must be a non-null int64 column, got %s", name, arr.DataType()))
	}
	return append([]int64(nil), ints.Int64Values()...), nil
}

// Write writes the DataFrame to Parquet format. Nulls are preserved.
func (w *ParquetWriter) Write(df *dataframe.DataFrame) error {
	record, err := w.dataFrameToRecord(df)
	if err != nil {
		return fmt.Errorf("converting DataFrame to Arrow record: %w", err)
	}
	defer record.Release()

	batchSize := w.options.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compression(w.options.Compression)),
		parquet.WithBatchSize(int64(batchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(memory.NewGoAllocator()))

	writer, err := pqarrow.NewFileWriter(record.Schema(), w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	if record.NumRows() > 0 {
		if err := writer.Write(record); err != nil {
			_ = writer.Close()
			return fmt.Errorf("writing record: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

func compression(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "zstd":
		return compress.Codecs.Zstd
	case "uncompressed":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

// dataFrameToRecord converts a DataFrame into one Arrow record, sharing the
// column arrays.
func (w *ParquetWriter) dataFrameToRecord(df *dataframe.DataFrame) (arrow.Record, error) {
	names := df.Columns()
	fields := make([]arrow.Field, 0, len(names)+1)
	arrays := make([]arrow.Array, 0, len(names)+1)
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	if idx := w.options.IndexColumn; idx != "" {
		if df.HasColumn(idx) {
			return nil, errors.NewDuplicateColumnError("WriteParquet", idx)
		}
		builder := array.NewInt64Builder(memory.NewGoAllocator())
		builder.AppendValues(df.Index().Labels(), nil)
		arrays = append(arrays, builder.NewArray())
		builder.Release()
		fields = append(fields, arrow.Field{Name: idx, Type: arrow.PrimitiveTypes.Int64})
	}

	for _, name := range names {
		col, _ := df.Column(name)
		arr := col.Array()
		if arr == nil {
			return nil, fmt.Errorf("column %s has no backing array", name)
		}
		arrays = append(arrays, arr)
		fields = append(fields, arrow.Field{Name: name, Type: arr.DataType(), Nullable: true})
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, arrays, int64(df.Len())), nil
}
