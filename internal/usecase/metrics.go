package usecase

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/example/glaucoma-agent/internal/inference"
)

// MetricsSummary reports analysis outcomes since process start.
type MetricsSummary struct {
	TotalRequests              int64   `json:"total_requests"`
	SuccessfulRequests         int64   `json:"successful_requests"`
	ConnectionFailures         int64   `json:"connection_failures"`
	StatusFailures             int64   `json:"status_failures"`
	ParseFailures              int64   `json:"parse_failures"`
	RejectedInFlight           int64   `json:"rejected_in_flight"`
	SuccessRate                float64 `json:"success_rate"`
	AverageProcessingLatencyMs float64 `json:"average_processing_latency_ms"`
}

type metrics struct {
	total        atomic.Int64
	succeeded    atomic.Int64
	connection   atomic.Int64
	status       atomic.Int64
	parse        atomic.Int64
	rejected     atomic.Int64
	latencyTotal atomic.Int64
}

func (m *metrics) recordSuccess(latency time.Duration) {
	m.total.Add(1)
	m.succeeded.Add(1)
	m.latencyTotal.Add(int64(latency))
}

func (m *metrics) recordFailure(err error, latency time.Duration) {
	m.total.Add(1)
	m.latencyTotal.Add(int64(latency))

	var predErr *inference.Error
	if !errors.As(err, &predErr) {
		m.connection.Add(1)
		return
	}
	switch predErr.Kind {
	case inference.KindStatus:
		m.status.Add(1)
	case inference.KindParse:
		m.parse.Add(1)
	default:
		m.connection.Add(1)
	}
}

// GetMetricsSummary aggregates the in-process analysis counters.
func (uc *AnalysisUseCase) GetMetricsSummary() *MetricsSummary {
	m := uc.metrics
	summary := &MetricsSummary{
		TotalRequests:      m.total.Load(),
		SuccessfulRequests: m.succeeded.Load(),
		ConnectionFailures: m.connection.Load(),
		StatusFailures:     m.status.Load(),
		ParseFailures:      m.parse.Load(),
		RejectedInFlight:   m.rejected.Load(),
	}

	if summary.TotalRequests > 0 {
		summary.SuccessRate = float64(summary.SuccessfulRequests) / float64(summary.TotalRequests)
		avg := time.Duration(m.latencyTotal.Load() / summary.TotalRequests)
		summary.AverageProcessingLatencyMs = float64(avg) / float64(time.Millisecond)
	}

	return summary
}
