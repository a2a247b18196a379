package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemStats is a point-in-time view of the Go runtime
type SystemStats struct {
	GoRoutines    int64
	HeapAlloc     uint64
	TotalAlloc    uint64
	MemorySystem  uint64
	GCCount       uint32
	ProcessUptime time.Duration
}

// ReadSystemStats reads the current runtime statistics
func ReadSystemStats(startTime time.Time) SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		HeapAlloc:     memStats.HeapAlloc,
		TotalAlloc:    memStats.TotalAlloc,
		MemorySystem:  memStats.Sys,
		GCCount:       memStats.NumGC,
		ProcessUptime: time.Since(startTime),
	}
}

// SystemMetrics observes runtime statistics whenever metrics are collected
type SystemMetrics struct {
	startTime    time.Time
	registration metric.Registration
}

// RegisterSystemMetrics registers asynchronous runtime instruments on meter
func RegisterSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goRoutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"system_memory_heap",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memorySystem, err := meter.Int64ObservableGauge(
		"system_memory_system",
		metric.WithDescription("Bytes of memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64ObservableCounter(
		"system_gc_cycles",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	uptime, err := meter.Float64ObservableGauge(
		"system_process_uptime",
		metric.WithDescription("Seconds since the pipeline started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	sm := &SystemMetrics{startTime: time.Now()}
	sm.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := ReadSystemStats(sm.startTime)
		o.ObserveInt64(goRoutines, stats.GoRoutines)
		o.ObserveInt64(heapAlloc, int64(stats.HeapAlloc))
		o.ObserveInt64(memorySystem, int64(stats.MemorySystem))
		o.ObserveInt64(gcCount, int64(stats.GCCount))
		o.ObserveFloat64(uptime, stats.ProcessUptime.Seconds())
		return nil
	}, goRoutines, heapAlloc, memorySystem, gcCount, uptime)
	if err != nil {
		return nil, fmt.Errorf("failed to register runtime callback: %w", err)
	}

	return sm, nil
}

// Stats returns the current runtime statistics
func (sm *SystemMetrics) Stats() SystemStats {
	return ReadSystemStats(sm.startTime)
}

// Unregister stops observing runtime statistics
func (sm *SystemMetrics) Unregister() error {
	if sm.registration == nil {
		return nil
	}
	return sm.registration.Unregister()
}
