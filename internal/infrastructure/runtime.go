package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics reports Go runtime resource usage of the service
type RuntimeMetrics struct {
	startTime time.Time

	goRoutines    metric.Int64ObservableGauge
	memoryUsage   metric.Int64ObservableGauge
	memorySystem  metric.Int64ObservableGauge
	gcCount       metric.Int64ObservableCounter
	processUptime metric.Float64ObservableGauge

	registration metric.Registration
}

// RuntimeStats holds a snapshot of runtime statistics
type RuntimeStats struct {
	GoRoutines    int64         `json:"goroutines"`
	MemoryUsage   int64         `json:"memory_usage_bytes"`
	MemorySystem  int64         `json:"memory_system_bytes"`
	GCCount       uint32        `json:"gc_count"`
	LastGCPause   time.Duration `json:"last_gc_pause_ns"`
	CPUCount      int           `json:"cpu_count"`
	ProcessUptime time.Duration `json:"uptime_ns"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewRuntimeMetrics registers observable runtime gauges on meter. The values
// are read at collection time, so no background goroutine is needed.
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	rm := &RuntimeMetrics{startTime: time.Now()}
	var err error

	if rm.goRoutines, err = meter.Int64ObservableGauge(
		"runtime_goroutines",
		metric.WithDescription("Number of active goroutines"),
	); err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}
	if rm.memoryUsage, err = meter.Int64ObservableGauge(
		"runtime_memory_usage_bytes",
		metric.WithDescription("Heap memory in use in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create memory gauge: %w", err)
	}
	if rm.memorySystem, err = meter.Int64ObservableGauge(
		"runtime_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create system memory gauge: %w", err)
	}
	if rm.gcCount, err = meter.Int64ObservableCounter(
		"runtime_gc_count_total",
		metric.WithDescription("Total number of garbage collections"),
	); err != nil {
		return nil, fmt.Errorf("failed to create gc counter: %w", err)
	}
	if rm.processUptime, err = meter.Float64ObservableGauge(
		"runtime_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	rm.registration, err = meter.RegisterCallback(rm.observe,
		rm.goRoutines, rm.memoryUsage, rm.memorySystem, rm.gcCount, rm.processUptime)
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime callback: %w", err)
	}
	return rm, nil
}

func (rm *RuntimeMetrics) observe(_ context.Context, o metric.Observer) error {
	stats := rm.Snapshot()
	o.ObserveInt64(rm.goRoutines, stats.GoRoutines)
	o.ObserveInt64(rm.memoryUsage, stats.MemoryUsage)
	o.ObserveInt64(rm.memorySystem, stats.MemorySystem)
	o.ObserveInt64(rm.gcCount, int64(stats.GCCount))
	o.ObserveFloat64(rm.processUptime, stats.ProcessUptime.Seconds())
	return nil
}

// Snapshot reads the current runtime statistics
func (rm *RuntimeMetrics) Snapshot() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		MemoryUsage:   int64(memStats.Alloc),
		MemorySystem:  int64(memStats.Sys),
		GCCount:       memStats.NumGC,
		LastGCPause:   time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256]),
		CPUCount:      runtime.NumCPU(),
		ProcessUptime: time.Since(rm.startTime),
		Timestamp:     time.Now(),
	}
}

// Unregister stops reporting the runtime gauges
func (rm *RuntimeMetrics) Unregister() error {
	if rm.registration == nil {
		return nil
	}
	err := rm.registration.Unregister()
	rm.registration = nil
	return err
}
