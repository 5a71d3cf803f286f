// Package monitoring provides metrics collection for feature preparation stages.
package monitoring

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// OperationMetrics represents performance metrics for a single pipeline stage.
type OperationMetrics struct {
	Duration   time.Duration `json:"duration" yaml:"duration"`
	RowsIn     int64         `json:"rows_in" yaml:"rows_in"`
	RowsOut    int64         `json:"rows_out" yaml:"rows_out"`
	MemoryUsed int64         `json:"memory_used" yaml:"memory_used"`
	Operation  string        `json:"operation" yaml:"operation"`
	Failed     bool          `json:"failed" yaml:"failed"`
}

// RowCounts is filled in by a recorded operation to report its row flow.
type RowCounts struct {
	In  int
	Out int
}

// MetricsCollector collects and stores performance metrics for pipeline stages.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []OperationMetrics
	enabled bool
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics: make([]OperationMetrics, 0),
		enabled: enabled,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// RecordOperation executes the given function and records its metrics.
func (mc *MetricsCollector) RecordOperation(operation string, fn func(*RowCounts) error) error {
	var counts RowCounts
	if !mc.IsEnabled() {
		return fn(&counts)
	}

	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)
	start := time.Now()

	err := fn(&counts)

	duration := time.Since(start)
	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	metrics := OperationMetrics{
		Duration:   duration,
		RowsIn:     int64(counts.In),
		RowsOut:    int64(counts.Out),
		MemoryUsed: int64(memAfter.TotalAlloc - memBefore.TotalAlloc), //nolint:gosec // bounded by process allocation
		Operation:  operation,
		Failed:     err != nil,
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, metrics)
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]OperationMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var totalDuration time.Duration
	var totalMemory int64
	operationCounts := make(map[string]int)
	failures := 0

	for _, metric := range mc.metrics {
		totalDuration += metric.Duration
		totalMemory += metric.MemoryUsed
		operationCounts[metric.Operation]++
		if metric.Failed {
			failures++
		}
	}

	return MetricsSummary{
		TotalOperations: len(mc.metrics),
		TotalDuration:   totalDuration,
		TotalMemory:     totalMemory,
		Failures:        failures,
		OperationCounts: operationCounts,
		AverageDuration: totalDuration / time.Duration(len(mc.metrics)),
	}
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalOperations int            `json:"total_operations"`
	TotalDuration   time.Duration  `json:"total_duration"`
	TotalMemory     int64          `json:"total_memory"`
	Failures        int            `json:"failures"`
	OperationCounts map[string]int `json:"operation_counts"`
	AverageDuration time.Duration  `json:"average_duration"`
}

// Render writes the recorded stages as a table.
func (mc *MetricsCollector) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Rows In", "Rows Out", "Duration", "Status"})

	for _, m := range mc.GetMetrics() {
		status := "ok"
		if m.Failed {
			status = "failed"
		}
		t.AppendRow(table.Row{m.Operation, m.RowsIn, m.RowsOut, m.Duration.Round(time.Microsecond), status})
	}

	summary := mc.GetSummary()
	t.AppendFooter(table.Row{fmt.Sprintf("%d stages", summary.TotalOperations), "", "",
		summary.TotalDuration.Round(time.Microsecond), fmt.Sprintf("%d failed", summary.Failures)})
	t.Render()
}
