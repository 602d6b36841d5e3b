package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contactfix/pkg/kafka"
	"contactfix/pkg/model"
)

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type ReconciledPublisher struct {
	producer messagePublisher
	source   string
	now      func() time.Time
}

func NewReconciledPublisher(producer messagePublisher, source string) *ReconciledPublisher {
	return &ReconciledPublisher{
		producer: producer,
		source:   source,
		now:      time.Now,
	}
}

// PublishReconciled announces a contact whose numbers were completed.
// Results without changes are not published.
func (p *ReconciledPublisher) PublishReconciled(ctx context.Context, result *model.FixResult, correlationID string) error {
	if result == nil || !result.Changed {
		return nil
	}
	if result.Contact == nil {
		return errors.New("reconciled result has no contact")
	}

	msg, err := kafka.NewMessage().
		WithKey(result.ContactID).
		WithValue(ReconciledEvent{
			ContactID:    result.ContactID,
			Name:         result.Contact.Name,
			Added:        result.Added,
			ReconciledAt: p.now().UTC(),
		}).
		WithEventType(EventTypeReconciled).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(correlationID).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build reconciled event: %w", err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish reconciled event for %s: %w", result.ContactID, err)
	}
	return nil
}
