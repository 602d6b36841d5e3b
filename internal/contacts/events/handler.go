package events

import (
	"context"
	"strings"

	apperrors "contactfix/pkg/errors"
	"contactfix/pkg/kafka"
	"contactfix/pkg/logger"
	"contactfix/pkg/model"
)

type Fixer interface {
	Fix(ctx context.Context, id string) (*model.FixResult, error)
}

// NewChangedHandler repairs the contact named by each change event. Deleted
// contacts are skipped; bad ids and permission failures are not retried.
func NewChangedHandler(fixer Fixer, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event ChangedEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}

		id := strings.TrimSpace(event.ContactID)
		if id == "" {
			id = msg.Key
		}
		if id == "" {
			return kafka.NewPermanentError("change event without contact id", kafka.ErrEmptyKey)
		}

		result, err := fixer.Fix(ctx, id)
		if err != nil {
			return classify(err, id, log)
		}

		log.Info("Contact change processed",
			"contact_id", id,
			"changed", result.Changed,
			"added", len(result.Added),
			"event_id", msg.GetEventID(),
		)
		return nil
	}
}

func classify(err error, id string, log *logger.Logger) error {
	switch apperrors.AsAppError(err).Code {
	case apperrors.CodeNotFound:
		log.Warn("Changed contact no longer exists", "contact_id", id)
		return nil
	case apperrors.CodeInternal, apperrors.CodeTimeout, apperrors.CodeUnavailable:
		return kafka.NewTransientError("fix failed", err)
	default:
		return kafka.NewPermanentError("fix rejected", err)
	}
}
