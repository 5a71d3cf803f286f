package io

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// BenchmarkCSVRoundTrip benchmarks a full read-write cycle
func BenchmarkCSVRoundTrip(b *testing.B) {
	sizes := []int{100, 1000, 10000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("RoundTrip_%d_rows", size), func(b *testing.B) {
			csvData := generateCSVData(size)
			mem := memory.NewGoAllocator()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				df, err := NewCSVReader(strings.NewReader(csvData), DefaultCSVOptions(), mem).Read()
				if err != nil {
					b.Fatal(err)
				}

				var buf bytes.Buffer
				if err := NewCSVWriter(&buf, DefaultCSVOptions()).Write(df); err != nil {
					b.Fatal(err)
				}
				df.Release()
			}
		})
	}
}

// BenchmarkCSVTypeInference benchmarks type inference performance
func BenchmarkCSVTypeInference(b *testing.B) {
	mem := memory.NewGoAllocator()

	testCases := []struct {
		name string
		data []string
	}{
		{"int_data", []string{"1", "2", "3", "4", "5"}},
		{"float_data", []string{"1.5", "2.5", "", "4.5", "5.5"}},
		{"bool_data", []string{"true", "false", "true", "false", "true"}},
		{"mixed_data", []string{"1", "bad", "3.5", "", "world"}},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			reader := &CSVReader{mem: mem}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				series, err := reader.createSeriesFromStrings("test", tc.data)
				if err != nil {
					b.Fatal(err)
				}
				series.Release()
			}
		})
	}
}

// generateCSVData creates an experiment-shaped CSV with the specified number of rows
func generateCSVData(rows int) string {
	var sb strings.Builder
	sb.WriteString("x1,x2,site,holdout,y\n")

	for i := 0; i < rows; i++ {
		x1 := fmt.Sprintf("%.3f", float64(i)*0.5)
		if i%17 == 0 {
			x1 = ""
		}
		sb.WriteString(fmt.Sprintf("%s,%d,site_%d,%d,%.2f\n",
			x1, i%40, i%5, i%10/9, float64(i)*1.5))
	}

	return sb.String()
}
