package ssbspoof

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// InMemoryMetricsCollector keeps counters and gauges in process memory.
type InMemoryMetricsCollector struct {
	counters map[string]map[string]int64
	gauges   map[string]map[string]float64
	mu       sync.RWMutex
}

func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return &InMemoryMetricsCollector{
		counters: make(map[string]map[string]int64),
		gauges:   make(map[string]map[string]float64),
	}
}

func (m *InMemoryMetricsCollector) IncrementCounter(name string, labels map[string]string) {
	m.AddCounter(name, 1, labels)
}

func (m *InMemoryMetricsCollector) AddCounter(name string, delta int64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counters[name] == nil {
		m.counters[name] = make(map[string]int64)
	}
	m.counters[name][makeLabelKey(labels)] += delta
}

func (m *InMemoryMetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gauges[name] == nil {
		m.gauges[name] = make(map[string]float64)
	}
	m.gauges[name][makeLabelKey(labels)] = value
}

func makeLabelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return "default"
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}

// GetCounterValue returns the current value of a counter (for testing/debugging)
func (m *InMemoryMetricsCollector) GetCounterValue(name string, labels map[string]string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if counters, exists := m.counters[name]; exists {
		return counters[makeLabelKey(labels)]
	}
	return 0
}

// GetGaugeValue returns the current value of a gauge (for testing/debugging)
func (m *InMemoryMetricsCollector) GetGaugeValue(name string, labels map[string]string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if gauges, exists := m.gauges[name]; exists {
		return gauges[makeLabelKey(labels)]
	}
	return 0
}

// ExportPrometheus exports metrics in Prometheus format
func (m *InMemoryMetricsCollector) ExportPrometheus() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var output strings.Builder

	for name, labelMap := range m.counters {
		output.WriteString(fmt.Sprintf("# TYPE %s counter\n", name))
		for labelKey, value := range labelMap {
			output.WriteString(fmt.Sprintf("%s{%s} %d\n", name, labelKey, value))
		}
	}

	for name, labelMap := range m.gauges {
		output.WriteString(fmt.Sprintf("# TYPE %s gauge\n", name))
		for labelKey, value := range labelMap {
			output.WriteString(fmt.Sprintf("%s{%s} %f\n", name, labelKey, value))
		}
	}

	return output.String()
}
