package kafka_middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"contactfix/pkg/kafka"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

type Metrics struct {
	published *prometheus.CounterVec
	consumed  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics registers the Kafka collectors on reg, or on the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contactfix",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Messages published, by topic and status",
		}, []string{"topic", "status"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contactfix",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Messages handled by consumers, by topic and status",
		}, []string{"topic", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contactfix",
			Subsystem: "kafka",
			Name:      "operation_duration_seconds",
			Help:      "Duration of publish and handle operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "topic"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.published, m.consumed, m.duration)
	return m
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		if m != nil {
			m.duration.WithLabelValues("publish", msg.Topic).Observe(time.Since(start).Seconds())
			m.published.WithLabelValues(msg.Topic, status(err)).Inc()
		}
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		if m != nil {
			m.duration.WithLabelValues("consume", msg.Topic).Observe(time.Since(start).Seconds())
			m.consumed.WithLabelValues(msg.Topic, status(err)).Inc()
		}
		return err
	}
}
