package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScanMetrics counts scan uploads, status changes and view URL requests.
type ScanMetrics struct {
	uploads       *prometheus.CounterVec
	uploadBytes   *prometheus.HistogramVec
	statusChanges *prometheus.CounterVec
	viewURLs      *prometheus.CounterVec
}

// ScanMetrics registers the scan collectors on the provider's registry.
func (p *Provider) ScanMetrics() *ScanMetrics {
	f := promauto.With(p.registry)
	return &ScanMetrics{
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scans",
			Name:      "uploads_total",
			Help:      "Scan upload attempts by scan type and result",
		}, []string{"scan_type", "result"}),
		uploadBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scans",
			Name:      "upload_bytes",
			Help:      "Size of successfully stored scan files",
			Buckets:   prometheus.ExponentialBuckets(64<<10, 4, 8),
		}, []string{"scan_type"}),
		statusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scans",
			Name:      "status_changes_total",
			Help:      "Scan status transitions",
		}, []string{"from", "to"}),
		viewURLs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scans",
			Name:      "view_urls_total",
			Help:      "Signed view URL requests by result",
		}, []string{"result"}),
	}
}

func (m *ScanMetrics) ObserveUpload(scanType string, bytes int64, err error) {
	if scanType == "" {
		scanType = "unknown"
	}
	m.uploads.WithLabelValues(scanType, result(err)).Inc()
	if err == nil {
		m.uploadBytes.WithLabelValues(scanType).Observe(float64(bytes))
	}
}

func (m *ScanMetrics) ObserveStatusChange(from, to string) {
	if from == "" {
		from = "unknown"
	}
	m.statusChanges.WithLabelValues(from, to).Inc()
}

func (m *ScanMetrics) ObserveViewURL(err error) {
	m.viewURLs.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
