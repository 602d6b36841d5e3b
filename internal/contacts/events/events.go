// Package events publishes repaired contacts to Kafka and repairs contacts
// announced on the change topic.
package events

import (
	"time"

	"contactfix/pkg/model"
)

const (
	EventTypeReconciled = "contact.reconciled"
	EventTypeChanged    = "contact.changed"
	SchemaVersion       = "1"
)

type ReconciledEvent struct {
	ContactID    string              `json:"contact_id"`
	Name         string              `json:"name"`
	Added        []model.PhoneNumber `json:"added"`
	ReconciledAt time.Time           `json:"reconciled_at"`
}

type ChangedEvent struct {
	ContactID string `json:"contact_id"`
}
