// Package contacts wires the contact repository, service and event publisher
// shared by the contacts binaries.
package contacts

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"contactfix/internal/contacts/events"
	"contactfix/internal/contacts/metrics"
	"contactfix/internal/contacts/repository"
	"contactfix/internal/contacts/service"
	"contactfix/internal/contacts/validator"
	"contactfix/pkg/config"
	"contactfix/pkg/kafka"
	kafka_middleware "contactfix/pkg/kafka/middleware"
)

type Components struct {
	Service      service.ContactService
	Validator    *validator.ContactValidator
	KafkaMetrics *kafka_middleware.Metrics
}

// NewComponents requires cfg.SetMongo to have run. When Kafka is enabled the
// reconciled-event producer is created and handed to cfg.Client for shutdown.
func NewComponents(cfg *config.Config, source string, reg prometheus.Registerer) (*Components, error) {
	kafkaMetrics := kafka_middleware.NewMetrics(reg)
	publisher, err := newPublisher(cfg, source, kafkaMetrics)
	if err != nil {
		return nil, err
	}

	contactValidator := validator.NewContactValidator()
	contactService := service.NewContactService(
		repository.NewMongoContactRepository(cfg),
		contactValidator,
		cfg,
		publisher,
		metrics.New(reg),
	)

	cfg.Log.Info("Contact service initialized", "events_enabled", publisher != nil)
	return &Components{
		Service:      contactService,
		Validator:    contactValidator,
		KafkaMetrics: kafkaMetrics,
	}, nil
}

func newPublisher(cfg *config.Config, source string, kafkaMetrics *kafka_middleware.Metrics) (service.EventPublisher, error) {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Log, cfg.Kafka.TopicReconciled, cfg.Kafka.TopicDLQ)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciled event producer: %w", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafkaMetrics.ProducerMiddleware())
	cfg.Client.Publisher = producer

	return events.NewReconciledPublisher(producer, source), nil
}
