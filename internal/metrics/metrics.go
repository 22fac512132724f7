package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch attempt results
const (
	AttemptSuccess          = "success"
	AttemptBlocked          = "blocked"
	AttemptTransportFailure = "transport_failure"
)

// Metrics holds crawler counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchAttempts      *prometheus.CounterVec
	fetchOutcomes      *prometheus.CounterVec
	pages              prometheus.Counter
	records            prometheus.Counter
	extractionFailures prometheus.Counter
}

// New creates the crawler counters and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_fetch_attempts_total",
			Help: "HTTP fetch attempts by result.",
		}, []string{"result"}),
		fetchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawler_fetch_outcomes_total",
			Help: "Logical fetches by final outcome.",
		}, []string{"outcome"}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_pages_total",
			Help: "Search result pages processed.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_records_total",
			Help: "Job records extracted.",
		}),
		extractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_extraction_failures_total",
			Help: "Detail pages that could not be turned into a record.",
		}),
	}
	reg.MustRegister(m.fetchAttempts, m.fetchOutcomes, m.pages, m.records, m.extractionFailures)
	return m
}

func (m *Metrics) FetchAttempt(result string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) FetchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.fetchOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Page() {
	if m == nil {
		return
	}
	m.pages.Inc()
}

func (m *Metrics) Record() {
	if m == nil {
		return
	}
	m.records.Inc()
}

func (m *Metrics) ExtractionFailure() {
	if m == nil {
		return
	}
	m.extractionFailures.Inc()
}
