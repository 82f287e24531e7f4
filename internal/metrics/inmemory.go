package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthSuccesses          uint64
	AuthFailures           map[string]uint64
	TransactionsRecorded   map[string]uint64
	WithdrawalsCreated     uint64
	EmailsSent             map[string]uint64
	DispatchBatchCount     uint64
	DispatchBatchSizeTotal uint64
	DispatchDurationNs     int64
	AuditPublished         map[string]uint64
	AuditProcessed         map[string]uint64
	AuditQueueDepth        int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	authSuccesses          uint64
	withdrawalsCreated     uint64
	dispatchBatchCount     uint64
	dispatchBatchSizeTotal uint64
	dispatchDurationNs     int64
	auditQueueDepth        int64

	mu                   sync.Mutex
	authFailures         map[string]uint64
	transactionsRecorded map[string]uint64
	emailsSent           map[string]uint64
	auditPublished       map[string]uint64
	auditProcessed       map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		authFailures:         make(map[string]uint64),
		transactionsRecorded: make(map[string]uint64),
		emailsSent:           make(map[string]uint64),
		auditPublished:       make(map[string]uint64),
		auditProcessed:       make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		AuthSuccesses:          atomic.LoadUint64(&m.authSuccesses),
		AuthFailures:           copyCounts(m.authFailures),
		TransactionsRecorded:   copyCounts(m.transactionsRecorded),
		WithdrawalsCreated:     atomic.LoadUint64(&m.withdrawalsCreated),
		EmailsSent:             copyCounts(m.emailsSent),
		DispatchBatchCount:     atomic.LoadUint64(&m.dispatchBatchCount),
		DispatchBatchSizeTotal: atomic.LoadUint64(&m.dispatchBatchSizeTotal),
		DispatchDurationNs:     atomic.LoadInt64(&m.dispatchDurationNs),
		AuditPublished:         copyCounts(m.auditPublished),
		AuditProcessed:         copyCounts(m.auditProcessed),
		AuditQueueDepth:        atomic.LoadInt64(&m.auditQueueDepth),
	}
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// IncAuthSuccess increments the auth success counter.
func (m *InMemoryRecorder) IncAuthSuccess() {
	atomic.AddUint64(&m.authSuccesses, 1)
}

// IncAuthFailure increments the auth failure counter for a reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authFailures[reason]++
}

// IncTransactionRecorded increments the transaction counter for a status.
func (m *InMemoryRecorder) IncTransactionRecorded(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactionsRecorded[status]++
}

// IncWithdrawalCreated increments the withdrawal counter.
func (m *InMemoryRecorder) IncWithdrawalCreated() {
	atomic.AddUint64(&m.withdrawalsCreated, 1)
}

// IncEmailSent increments the email counter for an outcome.
func (m *InMemoryRecorder) IncEmailSent(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailsSent[status]++
}

// ObserveDispatchBatchSize records one dispatch batch.
func (m *InMemoryRecorder) ObserveDispatchBatchSize(size int) {
	atomic.AddUint64(&m.dispatchBatchCount, 1)
	atomic.AddUint64(&m.dispatchBatchSizeTotal, uint64(size))
}

// ObserveDispatchDuration records dispatch wall time.
func (m *InMemoryRecorder) ObserveDispatchDuration(duration time.Duration) {
	atomic.AddInt64(&m.dispatchDurationNs, duration.Nanoseconds())
}

// IncAuditEventPublished increments the audit publish counter.
func (m *InMemoryRecorder) IncAuditEventPublished(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditPublished[status]++
}

// IncAuditEventProcessed increments the audit process counter.
func (m *InMemoryRecorder) IncAuditEventProcessed(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditProcessed[status]++
}

// ObserveAuditBatchDuration is recorded alongside processed counts.
func (m *InMemoryRecorder) ObserveAuditBatchDuration(duration time.Duration) {}

// SetAuditQueueDepth records the current stream backlog.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	atomic.StoreInt64(&m.auditQueueDepth, depth)
}
