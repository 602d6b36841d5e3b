// Package retry runs operations against the contact store and the message
// broker with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
	MaxTries        uint
}

// Startup is used while connecting to dependencies at boot.
func Startup() Policy {
	return Policy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsed:      30 * time.Second,
	}
}

// Write is used for store writes on the request path.
func Write() Policy {
	return Policy{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		MaxElapsed:      3 * time.Second,
		MaxTries:        3,
	}
}

// Notify is called before every wait with the error that caused it.
type Notify func(err error, wait time.Duration)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	if IsPermanent(err) {
		return err
	}
	return backoff.Permanent(err)
}

func IsPermanent(err error) bool {
	var pe *backoff.PermanentError
	return errors.As(err, &pe)
}

// Do runs fn until it succeeds, returns a permanent error, the policy gives up
// or ctx is done. The last error of fn is returned, unwrapped from Permanent.
func Do(ctx context.Context, p Policy, fn func() error, notify Notify) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Reset()

	opts := []backoff.RetryOption{backoff.WithBackOff(exp)}
	if p.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsed))
	}
	if p.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(p.MaxTries))
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(notify)))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, fn()
	}, opts...)
	return err
}
