package events

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "contactfix/pkg/errors"
	"contactfix/pkg/kafka"
	"contactfix/pkg/logger"
	"contactfix/pkg/model"
)

type recordingPublisher struct {
	msgs []kafka.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg kafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type mockFixer struct {
	fixFunc func(ctx context.Context, id string) (*model.FixResult, error)
	calls   []string
}

func (m *mockFixer) Fix(ctx context.Context, id string) (*model.FixResult, error) {
	m.calls = append(m.calls, id)
	return m.fixFunc(ctx, id)
}

func TestPublishReconciled(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewReconciledPublisher(pub, "contacts")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	result := &model.FixResult{
		ContactID: "507f1f77bcf86cd799439011",
		Changed:   true,
		Added:     []model.PhoneNumber{{ID: "n2", Label: "mobile'", Number: "+250788123456"}},
		Contact:   &model.Contact{ID: "507f1f77bcf86cd799439011", Name: "Jean"},
	}

	if err := p.PublishReconciled(context.Background(), result, "req-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.msgs))
	}

	msg := pub.msgs[0]
	if msg.Key != result.ContactID {
		t.Errorf("key = %q, want %q", msg.Key, result.ContactID)
	}
	if msg.GetEventType() != EventTypeReconciled {
		t.Errorf("event type = %q", msg.GetEventType())
	}
	if msg.GetCorrelationID() != "req-1" {
		t.Errorf("correlation id = %q", msg.GetCorrelationID())
	}
	if msg.Headers[kafka.HeaderSource] != "contacts" {
		t.Errorf("source = %q", msg.Headers[kafka.HeaderSource])
	}
	if msg.GetEventID() == "" {
		t.Error("event id missing")
	}

	var event ReconciledEvent
	if err := msg.DecodeValue(&event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Name != "Jean" || len(event.Added) != 1 || !event.ReconciledAt.Equal(fixed) {
		t.Errorf("unexpected payload: %+v", event)
	}
}

func TestPublishReconciled_SkipsUnchanged(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewReconciledPublisher(pub, "contacts")

	if err := p.PublishReconciled(context.Background(), &model.FixResult{ContactID: "x"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.msgs) != 0 {
		t.Errorf("expected no message for an unchanged contact, got %d", len(pub.msgs))
	}
}

func TestPublishReconciled_ProducerError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewReconciledPublisher(&recordingPublisher{err: boom}, "contacts")

	err := p.PublishReconciled(context.Background(), &model.FixResult{
		ContactID: "x",
		Changed:   true,
		Contact:   &model.Contact{ID: "x"},
	}, "")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped producer error, got %v", err)
	}
}

func changedMessage(t *testing.T, key string, event ChangedEvent) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey(key).WithValue(event).WithEventType(EventTypeChanged).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return msg
}

func TestChangedHandler(t *testing.T) {
	tests := []struct {
		name          string
		msg           func(t *testing.T) kafka.Message
		fixErr        error
		wantErr       bool
		wantTransient bool
		wantCalledFor string
	}{
		{
			name:          "fixes contact from payload",
			msg:           func(t *testing.T) kafka.Message { return changedMessage(t, "k", ChangedEvent{ContactID: "c1"}) },
			wantCalledFor: "c1",
		},
		{
			name:          "falls back to message key",
			msg:           func(t *testing.T) kafka.Message { return changedMessage(t, "c2", ChangedEvent{}) },
			wantCalledFor: "c2",
		},
		{
			name:          "deleted contact is skipped",
			msg:           func(t *testing.T) kafka.Message { return changedMessage(t, "", ChangedEvent{ContactID: "gone"}) },
			fixErr:        apperrors.NotFoundWithID("Contact", "gone"),
			wantCalledFor: "gone",
		},
		{
			name:          "store failure is transient",
			msg:           func(t *testing.T) kafka.Message { return changedMessage(t, "", ChangedEvent{ContactID: "c3"}) },
			fixErr:        apperrors.Internal("Failed to fix contact", errors.New("socket closed")),
			wantErr:       true,
			wantTransient: true,
			wantCalledFor: "c3",
		},
		{
			name:          "invalid id is permanent",
			msg:           func(t *testing.T) kafka.Message { return changedMessage(t, "", ChangedEvent{ContactID: "bad"}) },
			fixErr:        apperrors.InvalidInput("Invalid contact ID format"),
			wantErr:       true,
			wantCalledFor: "bad",
		},
		{
			name:    "missing id is permanent",
			msg:     func(t *testing.T) kafka.Message { return changedMessage(t, "", ChangedEvent{}) },
			wantErr: true,
		},
		{
			name:    "undecodable payload is permanent",
			msg:     func(t *testing.T) kafka.Message { return kafka.Message{Value: []byte("{"), Headers: map[string]string{}} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixer := &mockFixer{fixFunc: func(_ context.Context, id string) (*model.FixResult, error) {
				if tt.fixErr != nil {
					return nil, tt.fixErr
				}
				return &model.FixResult{ContactID: id}, nil
			}}
			handler := NewChangedHandler(fixer, logger.Discard())

			err := handler(context.Background(), tt.msg(t))
			if tt.wantErr != (err != nil) {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				transient := kafka.ClassifyError(err) == kafka.ErrorTypeTransient
				if transient != tt.wantTransient {
					t.Errorf("transient = %v, want %v (%v)", transient, tt.wantTransient, err)
				}
			}
			if tt.wantCalledFor == "" {
				if len(fixer.calls) != 0 {
					t.Errorf("fixer should not be called, got %v", fixer.calls)
				}
				return
			}
			if len(fixer.calls) != 1 || fixer.calls[0] != tt.wantCalledFor {
				t.Errorf("fixer calls = %v, want [%s]", fixer.calls, tt.wantCalledFor)
			}
		})
	}
}
