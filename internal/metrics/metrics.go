// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncAuthSuccess()
	IncAuthFailure(reason string) // reason: "missing_token", "invalid_token", "unknown_user", "disabled"

	// Payment metrics
	IncTransactionRecorded(status string) // status: "pending", "successful", "failed"
	IncWithdrawalCreated()

	// Email dispatch metrics
	IncEmailSent(status string) // status: "success" or "failed"
	ObserveDispatchBatchSize(size int)
	ObserveDispatchDuration(duration time.Duration)

	// Audit pipeline metrics
	IncAuditEventPublished(status string) // status: "success" or "dropped"
	IncAuditEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAuditBatchDuration(duration time.Duration)
	SetAuditQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
