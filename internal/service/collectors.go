package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds the Prometheus metrics recorded while generating reports
type Collectors struct {
	DocumentsNormalized *prometheus.CounterVec
	RecordsSkipped      *prometheus.CounterVec
	RecordsOutOfWindow  *prometheus.CounterVec
	Comparisons         *prometheus.CounterVec
	FetchFailures       *prometheus.CounterVec
	NewDocuments        *prometheus.GaugeVec
	ReportDuration      prometheus.Histogram
}

// NewCollectors registers the report metrics with reg
func NewCollectors(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		DocumentsNormalized: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "documents_normalized_total",
			Help:      "Documents kept after normalization, by agency and window.",
		}, []string{"agency", "window"}),
		RecordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "records_skipped_total",
			Help:      "Malformed upstream records skipped during normalization.",
		}, []string{"agency", "window"}),
		RecordsOutOfWindow: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "records_out_of_window_total",
			Help:      "Upstream records dropped for falling outside the requested window.",
		}, []string{"agency", "window"}),
		Comparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "comparisons_total",
			Help:      "Completed window comparisons, by agency.",
		}, []string{"agency"}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regwatch",
			Name:      "fetch_failures_total",
			Help:      "Failed Federal Register fetches, by agency.",
		}, []string{"agency"}),
		NewDocuments: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "regwatch",
			Name:      "new_documents",
			Help:      "New documents in the most recent comparison, by agency.",
		}, []string{"agency"}),
		ReportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "regwatch",
			Name:      "report_duration_seconds",
			Help:      "Time taken to fetch, normalize and compare both windows.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

func (c *Collectors) observeNormalize(agency, window string, res *NormalizeResult) {
	if c == nil {
		return
	}
	c.DocumentsNormalized.WithLabelValues(agency, window).Add(float64(len(res.Documents)))
	c.RecordsSkipped.WithLabelValues(agency, window).Add(float64(res.Skipped))
	c.RecordsOutOfWindow.WithLabelValues(agency, window).Add(float64(res.OutOfWindow))
}

func (c *Collectors) observeComparison(agency string, newDocs int, took time.Duration) {
	if c == nil {
		return
	}
	c.Comparisons.WithLabelValues(agency).Inc()
	c.NewDocuments.WithLabelValues(agency).Set(float64(newDocs))
	c.ReportDuration.Observe(took.Seconds())
}

func (c *Collectors) observeFetchFailure(agency string) {
	if c == nil {
		return
	}
	c.FetchFailures.WithLabelValues(agency).Inc()
}
