package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncAuthSuccess is a no-op.
func (n *NoopRecorder) IncAuthSuccess() {}

// IncAuthFailure is a no-op.
func (n *NoopRecorder) IncAuthFailure(reason string) {}

// IncTransactionRecorded is a no-op.
func (n *NoopRecorder) IncTransactionRecorded(status string) {}

// IncWithdrawalCreated is a no-op.
func (n *NoopRecorder) IncWithdrawalCreated() {}

// IncEmailSent is a no-op.
func (n *NoopRecorder) IncEmailSent(status string) {}

// ObserveDispatchBatchSize is a no-op.
func (n *NoopRecorder) ObserveDispatchBatchSize(size int) {}

// ObserveDispatchDuration is a no-op.
func (n *NoopRecorder) ObserveDispatchDuration(duration time.Duration) {}

// IncAuditEventPublished is a no-op.
func (n *NoopRecorder) IncAuditEventPublished(status string) {}

// IncAuditEventProcessed is a no-op.
func (n *NoopRecorder) IncAuditEventProcessed(status string) {}

// ObserveAuditBatchDuration is a no-op.
func (n *NoopRecorder) ObserveAuditBatchDuration(duration time.Duration) {}

// SetAuditQueueDepth is a no-op.
func (n *NoopRecorder) SetAuditQueueDepth(depth int64) {}
