package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contactfix/internal/contacts"
	"contactfix/internal/contacts/events"
	"contactfix/internal/contacts/handler"
	"contactfix/pkg/config"
	"contactfix/pkg/kafka"
	kafka_middleware "contactfix/pkg/kafka/middleware"
	"contactfix/pkg/middleware"
)

const ServiceName = "reconciler"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(ServiceName)
	if !cfg.Kafka.Enabled {
		cfg.Log.Fatal("The reconciler consumes change events and needs KAFKA_ENABLED=true")
	}
	cfg.SetMongo()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	components, err := contacts.NewComponents(cfg, ServiceName, registry)
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Failed to initialize contacts", "error", err)
	}

	consumer, err := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Log,
		cfg.Kafka.TopicChanged,
		cfg.Kafka.ConsumerGroup,
		cfg.Kafka.TopicDLQ,
		events.NewChangedHandler(components.Service, cfg.Log),
	)
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Failed to create change consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(components.KafkaMetrics.ConsumerMiddleware())

	server := opsServer(cfg, registry)
	go func() {
		cfg.Log.Info("Starting ops server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Ops server failed", "error", err)
			stop()
		}
	}()

	cfg.Log.Info("Consuming change events", "topic", cfg.Kafka.TopicChanged, "group", cfg.Kafka.ConsumerGroup)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Change consumer stopped", "error", err)
	}

	shutdown(cfg, server, consumer)
}

// opsServer serves health and metrics; the reconciler has no API.
func opsServer(cfg *config.Config, registry *prometheus.Registry) *http.Server {
	router := httprouter.New()
	handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log).RegisterRoutes(router)
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	var h http.Handler = router
	h = middleware.Recovery(cfg.Log)(h)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func shutdown(cfg *config.Config, server *http.Server, consumer *kafka.Consumer) {
	cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close change consumer", "error", err)
	}
	if err := server.Shutdown(ctx); err != nil {
		cfg.Log.Error("Ops server shutdown failed", "error", err)
	}

	cfg.GracefulShutdown()
	cfg.Log.Info("Reconciler stopped gracefully")
}
