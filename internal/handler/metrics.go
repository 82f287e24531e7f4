package handler

import (
	"fmt"
	"net/http"

	"github.com/plixa/plixa/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "plixa_auth_successes_total %d\n", snap.AuthSuccesses)
	for reason, count := range snap.AuthFailures {
		writeMetric(w, "plixa_auth_failures_total{reason=%q} %d\n", reason, count)
	}

	for status, count := range snap.TransactionsRecorded {
		writeMetric(w, "plixa_transactions_recorded_total{status=%q} %d\n", status, count)
	}
	writeMetric(w, "plixa_withdrawals_created_total %d\n", snap.WithdrawalsCreated)

	for status, count := range snap.EmailsSent {
		writeMetric(w, "plixa_emails_sent_total{status=%q} %d\n", status, count)
	}
	writeMetric(w, "plixa_email_dispatch_batches_total %d\n", snap.DispatchBatchCount)
	writeMetric(w, "plixa_email_dispatch_recipients_total %d\n", snap.DispatchBatchSizeTotal)
	writeMetric(w, "plixa_email_dispatch_duration_seconds_sum %.6f\n", float64(snap.DispatchDurationNs)/1e9)

	for status, count := range snap.AuditPublished {
		writeMetric(w, "plixa_audit_events_published_total{status=%q} %d\n", status, count)
	}
	for status, count := range snap.AuditProcessed {
		writeMetric(w, "plixa_audit_events_processed_total{status=%q} %d\n", status, count)
	}
	writeMetric(w, "plixa_audit_queue_depth %d\n", snap.AuditQueueDepth)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
