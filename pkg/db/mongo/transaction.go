package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	apperrors "contactfix/pkg/errors"
)

// codeIllegalOperation is returned by standalone servers, which cannot run
// multi-document transactions.
const codeIllegalOperation = 20

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

// ExecuteTransaction runs fn in a transaction. On a standalone server fn runs
// once inside a plain session instead.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(markTransaction(sessCtx))
	})
	if isTransactionUnsupported(err) {
		err = fn(mongo.NewSessionContext(ctx, session))
	}

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

type transactionKey struct{}

func markTransaction(sessCtx mongo.SessionContext) mongo.SessionContext {
	return mongo.NewSessionContext(context.WithValue(sessCtx, transactionKey{}, true), sessCtx)
}

// InTransaction reports whether ctx runs inside a multi-document transaction
// started by ExecuteTransaction. The plain-session fallback is not one.
func InTransaction(ctx context.Context) bool {
	running, _ := ctx.Value(transactionKey{}).(bool)
	return running
}

func isTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == codeIllegalOperation
}

// NoTransaction runs fn with a session-less context. Used by tests and tools
// that work against fakes.
type NoTransaction struct{}

func (NoTransaction) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

// FakeTransaction runs fn with a session-less context that reports
// InTransaction. Used by tests that need transactional behavior without a server.
type FakeTransaction struct{}

func (FakeTransaction) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	return fn(markTransaction(mongo.NewSessionContext(ctx, nil)))
}
