package io

import (
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/errors"
	"github.com/paveg/mlprep/internal/series"
)

const (
	// Boolean string constants
	trueStr  = "true"
	falseStr = "false"
)

type cellType int

const (
	typeFloat cellType = iota
	typeInt
	typeBool
	typeString
)

// Read reads CSV data and returns a DataFrame. Empty cells and cells
// matching a null marker are nulls.
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	// Create CSV reader
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	if csvReader.Comma == 0 {
		csvReader.Comma = ','
	}
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace
	csvReader.FieldsPerRecord = -1

	// Read all records
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	// Handle empty CSV
	if len(records) == 0 {
		return dataframe.New(), nil
	}

	var headers []string
	var dataRows [][]string

	if r.options.Header {
		headers = records[0]
		dataRows = records[1:]
	} else {
		// Generate default column names
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
		dataRows = records
	}

	// Transpose data to work with columns; short rows are padded with nulls
	numCols := len(headers)
	columns := make([][]string, numCols)
	for i := range columns {
		columns[i] = make([]string, len(dataRows))
	}
	for j, row := range dataRows {
		if len(row) > numCols {
			return nil, errors.NewLengthMismatchError("ReadCSV",
				fmt.Sprintf("fields in record %d", j+1), numCols, len(row))
		}
		for i, value := range row {
			columns[i][j] = value
		}
	}

	var labels []int64
	seriesList := make([]dataframe.ISeries, 0, numCols)
	for i, header := range headers {
		if r.options.IndexColumn != "" && header == r.options.IndexColumn {
			if labels, err = parseLabels(header, columns[i]); err != nil {
				return nil, err
			}
			continue
		}
		s, err := r.createSeriesFromStrings(header, columns[i])
		if err != nil {
			releaseSeries(seriesList)
			return nil, fmt.Errorf("creating series for column %s: %w", header, err)
		}
		seriesList = append(seriesList, s)
	}

	var df *dataframe.DataFrame
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

func parseLabels(name string, data []string) ([]int64, error) {
	labels := make([]int64, len(data))
	for i, v := range data {
		label, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, errors.NewInvalidInputError("ReadCSV",
				fmt.Sprintf("index column %s holds non-integer label %q in record %d", name, v, i+1))
		}
		labels[i] = label
	}
	return labels, nil
}

// createSeriesFromStrings creates a series from string data, inferring the appropriate type
func (r *CSVReader) createSeriesFromStrings(name string, data []string) (dataframe.ISeries, error) {
	valid := make([]bool, len(data))
	for i, v := range data {
		valid[i] = !r.isNull(v)
	}

	switch inferDataType(data, valid) {
	case typeBool:
		values := make([]bool, len(data))
		for i, v := range data {
			values[i] = strings.EqualFold(v, trueStr)
		}
		return series.NewNullable(name, values, valid, r.mem)
	case typeInt:
		values := make([]int64, len(data))
		for i, v := range data {
			if valid[i] {
				values[i], _ = strconv.ParseInt(v, 10, 64)
			}
		}
		return series.NewNullable(name, values, valid, r.mem)
	case typeFloat:
		values := make([]float64, len(data))
		for i, v := range data {
			if valid[i] {
				values[i], _ = strconv.ParseFloat(v, 64)
			}
		}
		return series.NewNullable(name, values, valid, r.mem)
	default:
		return series.NewNullable(name, data, valid, r.mem)
	}
}

func (r *CSVReader) isNull(v string) bool {
	return v == "" || slices.Contains(r.options.NullValues, v)
}

// inferDataType determines the most appropriate data type for the given
// string data. Any valid value that is not a number or a boolean makes the
// whole column text. A column without values reads as float64 nulls.
func inferDataType(data []string, valid []bool) cellType {
	canBeInt := true
	canBeFloat := true
	canBeBool := true
	hasNonEmptyValue := false

	for i, value := range data {
		if !valid[i] {
			continue // Skip nulls for type inference
		}
		hasNonEmptyValue = true

		if canBeBool {
			lower := strings.ToLower(value)
			if lower != trueStr && lower != falseStr {
				canBeBool = false
			}
		}

		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}

		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}
	}

	switch {
	case !hasNonEmptyValue:
		return typeFloat
	case canBeBool:
		return typeBool
	case canBeInt:
		return typeInt
	case canBeFloat:
		return typeFloat
	}
	return typeString
}

// Write writes the DataFrame to CSV format. Nulls are written as empty fields.
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter
	if csvWriter.Comma == 0 {
		csvWriter.Comma = ','
	}

	names := df.Columns()
	withIndex := w.options.IndexColumn != ""
	if withIndex && df.HasColumn(w.options.IndexColumn) {
		return errors.NewDuplicateColumnError("WriteCSV", w.options.IndexColumn)
	}

	// Write headers if required
	if w.options.Header {
		header := names
		if withIndex {
			header = append([]string{w.options.IndexColumn}, names...)
		}
		if err := csvWriter.Write(header); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	cols := make([]dataframe.ISeries, len(names))
	for j, name := range names {
		cols[j], _ = df.Column(name)
	}

	// Write data rows
	width := len(cols)
	if withIndex {
		width++
	}
	row := make([]string, width)
	for i := range df.Len() {
		offset := 0
		if withIndex {
			row[0] = strconv.FormatInt(df.Index().Label(i), 10)
			offset = 1
		}
		for j, col := range cols {
			row[j+offset] = col.GetAsString(i)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

func releaseSeries(cols []dataframe.ISeries) {
	for _, c := range cols {
		c.Release()
	}
}
