package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"contactfix/pkg/logger"
	"contactfix/pkg/retry"
)

// Client owns the connections shared by the contacts binaries.
type Client struct {
	Mongo *mongo.Client

	// Publisher is the event producer, nil when Kafka is disabled.
	Publisher io.Closer
}

func NewClient() *Client {
	return &Client{}
}

// SetMongo connects and pings MongoDB, retrying with backoff while the
// server comes up.
func (c *Client) SetMongo(ctx context.Context, log *logger.Logger, mongoURI string, connTimeout time.Duration) error {
	var client *mongo.Client

	err := retry.Do(ctx, retry.Startup(), func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, connTimeout)
		defer cancel()

		candidate, err := mongo.Connect(attemptCtx, options.Client().ApplyURI(mongoURI))
		if err != nil {
			// a malformed URI will not fix itself
			return retry.Permanent(err)
		}
		if err := candidate.Ping(attemptCtx, nil); err != nil {
			_ = candidate.Disconnect(context.Background())
			return err
		}
		client = candidate
		return nil
	}, func(err error, wait time.Duration) {
		log.Warn("MongoDB not reachable yet", "error", err, "retry_in", wait)
	})
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
	return nil
}

// GracefulShutdown closes the publisher first so pending events are flushed
// before the store goes away.
func (c *Client) GracefulShutdown(ctx context.Context) error {
	var errs []error
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect MongoDB: %w", err))
		}
	}
	return errors.Join(errs...)
}
