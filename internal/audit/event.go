// Package audit provides payment event capture and durable audit logging.
package audit

import (
	"fmt"
	"os"
	"time"
)

// Event types recorded in the audit trail.
const (
	EventUserCreated          = "user.created"
	EventTransactionInitiated = "transaction.initiated"
	EventTransactionSettled   = "transaction.settled"
	EventWithdrawalCreated    = "withdrawal.created"
	EventClusterDeployed      = "cluster.deployed"
	EventClusterTornDown      = "cluster.torn_down"
)

// EventPayload is the compressed event format for the Redis stream.
type EventPayload struct {
	Type           string `json:"ty"`
	Reference      string `json:"ref,omitempty"`
	OrganizationID string `json:"org,omitempty"`
	ClusterID      string `json:"cl,omitempty"`
	ActorEmail     string `json:"ae,omitempty"`
	Amount         string `json:"amt,omitempty"`
	OccurredAt     int64  `json:"t"` // Unix milliseconds
}

const maxMetaLength = 500

// knownEventTypes guards against publisher/worker drift.
var knownEventTypes = map[string]bool{
	EventUserCreated:          true,
	EventTransactionInitiated: true,
	EventTransactionSettled:   true,
	EventWithdrawalCreated:    true,
	EventClusterDeployed:      true,
	EventClusterTornDown:      true,
}

// ValidateEventPayload validates an audit event before persistence.
func ValidateEventPayload(payload EventPayload) error {
	if payload.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !knownEventTypes[payload.Type] {
		return fmt.Errorf("unknown event type %q", payload.Type)
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	if len(payload.Reference) > maxMetaLength {
		return fmt.Errorf("reference too long")
	}
	if len(payload.ActorEmail) > maxMetaLength {
		return fmt.Errorf("actor_email too long")
	}
	return nil
}

// NewConsumerID creates a stable-ish consumer ID for Redis consumer groups.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}
