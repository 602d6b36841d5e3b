package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	kafka_config "contactfix/pkg/kafka/config"
	"contactfix/pkg/logger"
	"contactfix/pkg/retry"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader      messageReader
	dlqWriter   messageWriter
	topic       string
	groupID     string
	maxRetries  int
	retryPolicy retry.Policy
	fetchPause  time.Duration
	handler     MessageHandler
	middleware  []ConsumerMiddleware
	log         *logger.Logger
	closed      bool
	mu          sync.RWMutex
	wg          sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, log *logger.Logger, topic, groupID, dlqTopic string, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		ErrorLogger:       errorLogger(log, "topic", topic, "group", groupID),
	})

	var dlqWriter messageWriter
	if dlqTopic != "" {
		dlqWriter = newWriter(cfg, log, dlqTopic, kafka.RequireAll, 3)
	}

	c := newConsumer(reader, dlqWriter, topic, groupID, cfg.ConsumerMaxRetries, handler, log)
	return c, nil
}

func newConsumer(reader messageReader, dlqWriter messageWriter, topic, groupID string, maxRetries int, handler MessageHandler, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		dlqWriter:  dlqWriter,
		topic:      topic,
		groupID:    groupID,
		maxRetries: maxRetries,
		retryPolicy: retry.Policy{
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		fetchPause: time.Second,
		handler:    handler,
		log:        log,
	}
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until ctx is done. Every fetched message is committed once
// it was handled or parked on the DLQ, so one bad message never blocks the
// partition.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			c.log.Error("kafka consumer failed to fetch message", "topic", c.topic, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.fetchPause):
			}
			continue
		}

		msg := fromKafkaMessage(km)
		if err := c.processMessage(ctx, msg); err != nil {
			c.log.Error("kafka consumer gave up on message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", msg.Key,
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil {
			c.log.Error("kafka consumer failed to commit offset", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler
}

// processMessage runs the handler chain, retrying transient failures with
// backoff up to maxRetries times, and sends the message to the DLQ when it
// still fails.
func (c *Consumer) processMessage(ctx context.Context, msg Message) error {
	handler := c.chain()

	policy := c.retryPolicy
	policy.MaxTries = uint(c.maxRetries + 1)

	err := retry.Do(ctx, policy, func() error {
		err := handler(ctx, msg)
		if err != nil && !ShouldRetry(err, msg.GetRetryCount(), c.maxRetries) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, wait time.Duration) {
		msg.IncrementRetryCount()
		c.log.Warn("retrying kafka message",
			"topic", msg.Topic,
			"key", msg.Key,
			"attempt", msg.GetRetryCount(),
			"max_retries", c.maxRetries,
			"wait", wait,
			"error", err,
		)
	})
	if err == nil || ctx.Err() != nil {
		return err
	}

	if c.dlqWriter != nil {
		if dlqErr := c.sendToDLQ(ctx, msg, err); dlqErr != nil {
			c.log.Error("failed to send message to DLQ", "topic", msg.Topic, "key", msg.Key, "error", dlqErr, "original_error", err)
		} else {
			c.log.Warn("message sent to DLQ", "topic", msg.Topic, "key", msg.Key, "retries", msg.GetRetryCount(), "error", err)
		}
	}
	return err
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	msg.Headers[HeaderOriginalTopic] = c.topic
	msg.Headers[HeaderDLQError] = originalErr.Error()
	msg.Headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)
	msg.Headers[HeaderConsumerGroup] = c.groupID
	msg.Timestamp = time.Now().UTC()

	return c.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg))
}

// Close waits for Start to return, so cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	err := c.reader.Close()
	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
