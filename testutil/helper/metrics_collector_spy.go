package helper

import (
	"maps"
	"sync"
	"time"
)

// SpyMetricKind tells which MetricsCollector method produced a SpyMetricRecord.
type SpyMetricKind string

const (
	SpyMetricDuration SpyMetricKind = "duration"
	SpyMetricCounter  SpyMetricKind = "counter"
	SpyMetricValue    SpyMetricKind = "value"
)

// SpyMetricRecord is one captured MetricsCollector call. Duration and Value are set
// only for their kind.
type SpyMetricRecord struct {
	Kind     SpyMetricKind
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string
}

// MetricsCollectorSpy captures MetricsCollector calls in the order they happen.
type MetricsCollectorSpy struct {
	mu          sync.Mutex
	records     []SpyMetricRecord
	recordCalls bool
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy. With recordCalls false it drops every call.
func NewMetricsCollectorSpy(recordCalls bool) *MetricsCollectorSpy {
	return &MetricsCollectorSpy{recordCalls: recordCalls}
}

// RecordDuration implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.capture(SpyMetricRecord{Kind: SpyMetricDuration, Metric: metric, Duration: duration, Labels: labels})
}

// IncrementCounter implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.capture(SpyMetricRecord{Kind: SpyMetricCounter, Metric: metric, Labels: labels})
}

// RecordValue implements the MetricsCollector interface.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.capture(SpyMetricRecord{Kind: SpyMetricValue, Metric: metric, Value: value, Labels: labels})
}

func (s *MetricsCollectorSpy) capture(record SpyMetricRecord) {
	if !s.recordCalls {
		return
	}

	record.Labels = maps.Clone(record.Labels)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
}

func (s *MetricsCollectorSpy) recordsOf(kind SpyMetricKind) []SpyMetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []SpyMetricRecord
	for _, record := range s.records {
		if record.Kind == kind {
			records = append(records, record)
		}
	}

	return records
}

// GetDurationRecordCount returns the number of captured durations.
func (s *MetricsCollectorSpy) GetDurationRecordCount() int {
	return len(s.recordsOf(SpyMetricDuration))
}

// GetCounterRecords returns the captured counter increments.
func (s *MetricsCollectorSpy) GetCounterRecords() []SpyMetricRecord {
	return s.recordsOf(SpyMetricCounter)
}

// HasDurationRecordForMetric starts a matcher over the durations recorded for metric.
func (s *MetricsCollectorSpy) HasDurationRecordForMetric(metric string) *MetricRecordMatcher {
	return newMetricRecordMatcher(s.recordsOf(SpyMetricDuration), metric)
}

// HasCounterRecordForMetric starts a matcher over the counter increments of metric.
func (s *MetricsCollectorSpy) HasCounterRecordForMetric(metric string) *MetricRecordMatcher {
	return newMetricRecordMatcher(s.recordsOf(SpyMetricCounter), metric)
}

// HasValueRecordForMetric starts a matcher over the gauge values recorded for metric.
func (s *MetricsCollectorSpy) HasValueRecordForMetric(metric string) *MetricRecordMatcher {
	return newMetricRecordMatcher(s.recordsOf(SpyMetricValue), metric)
}

// MetricRecordMatcher narrows captured records label by label.
type MetricRecordMatcher struct {
	candidates []SpyMetricRecord
}

func newMetricRecordMatcher(records []SpyMetricRecord, metric string) *MetricRecordMatcher {
	matcher := &MetricRecordMatcher{}
	for _, record := range records {
		if record.Metric == metric {
			matcher.candidates = append(matcher.candidates, record)
		}
	}

	return matcher
}

// WithOperation keeps records labeled with the operation.
func (m *MetricRecordMatcher) WithOperation(operation string) *MetricRecordMatcher {
	return m.WithLabel("operation", operation)
}

// WithStatus keeps records labeled with the status.
func (m *MetricRecordMatcher) WithStatus(status string) *MetricRecordMatcher {
	return m.WithLabel("status", status)
}

// WithErrorType keeps records labeled with the error type.
func (m *MetricRecordMatcher) WithErrorType(errorType string) *MetricRecordMatcher {
	return m.WithLabel("error_type", errorType)
}

// WithLabel keeps records whose label key equals value.
func (m *MetricRecordMatcher) WithLabel(key, value string) *MetricRecordMatcher {
	kept := m.candidates[:0:0]
	for _, record := range m.candidates {
		if record.Labels[key] == value {
			kept = append(kept, record)
		}
	}
	m.candidates = kept

	return m
}

// Assert reports whether any record is left.
func (m *MetricRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

// Count returns the number of records left.
func (m *MetricRecordMatcher) Count() int {
	return len(m.candidates)
}
