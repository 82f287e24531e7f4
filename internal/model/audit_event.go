package model

import "time"

// AuditEvent is a durable record of a payment-relevant action, written by
// the audit worker from the Redis event stream.
type AuditEvent struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"` // Redis stream ID, idempotency key
	Type           string    `json:"type"`
	Reference      string    `json:"reference,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	ClusterID      string    `json:"cluster_id,omitempty"`
	ActorEmail     string    `json:"actor_email,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
