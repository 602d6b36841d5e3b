package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	contactserrors "contactfix/internal/contacts/errors"
	"contactfix/pkg/config"
	mongotx "contactfix/pkg/db/mongo"
	"contactfix/pkg/model"
	"contactfix/pkg/retry"
)

const (
	CollectionName = "Contacts"
)

// Mongo error codes for authentication and authorization failures.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	FindByID(ctx context.Context, id string) (*model.Contact, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Contact, error)
	Count(ctx context.Context) (int64, error)

	FindByPhoneVariants(ctx context.Context, variants []string, limit int, offset int64) ([]*model.Contact, error)
	CountByPhoneVariants(ctx context.Context, variants []string) (int64, error)

	// ReplacePhoneNumbers overwrites the full number list of a contact.
	// Numbers without an id get one; normalized is stored alongside for lookups.
	ReplacePhoneNumbers(ctx context.Context, id string, numbers []model.PhoneNumber, normalized []string) ([]model.PhoneNumber, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoContactRepository struct {
	cfg         *config.Config
	db          *mongo.Database
	collection  *mongo.Collection
	txManager   mongotx.TransactionManager
	writePolicy retry.Policy
}

func NewMongoContactRepository(cfg *config.Config) ContactRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoContactRepository{
		cfg:         cfg,
		db:          db,
		collection:  db.Collection(CollectionName),
		txManager:   mongotx.NewTransactionManager(cfg.Client.Mongo),
		writePolicy: retry.Write(),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A transactional context is returned unchanged with a no-op cancel.
func (r *mongoContactRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if mongotx.InTransaction(ctx) {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// write retries fn on transient errors. Inside a transaction the driver
// already retries, so fn runs once.
func (r *mongoContactRepository) write(ctx context.Context, fn func() error) error {
	if mongotx.InTransaction(ctx) {
		return fn()
	}
	return retry.Do(ctx, r.writePolicy, func() error {
		err := fn()
		if err != nil && !isTransient(err) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, wait time.Duration) {
		r.cfg.Log.Warn("Retrying contact write", "error", err, "wait", wait)
	})
}

func isTransient(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var le mongo.LabeledError
	if errors.As(err, &le) {
		return le.HasErrorLabel("RetryableWriteError") || le.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// mapError turns authorization failures into ErrPermissionDenied.
func mapError(err error, action string) error {
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) && (srvErr.HasErrorCode(codeUnauthorized) || srvErr.HasErrorCode(codeAuthenticationFailed)) {
		return fmt.Errorf("%w: %v", contactserrors.ErrPermissionDenied, err)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func (r *mongoContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	contact.CreatedAt = now
	contact.UpdatedAt = now
	contact.PhoneNumbers = assignIDs(contact.PhoneNumbers)
	if contact.NormalizedNumbers == nil {
		contact.NormalizedNumbers = []string{}
	}

	var result *mongo.InsertOneResult
	err := r.write(ctx, func() error {
		var err error
		result, err = r.collection.InsertOne(ctx, contact)
		return err
	})
	if err != nil {
		return mapError(err, "create contact")
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		contact.ID = oid.Hex()
	}

	return nil
}

func (r *mongoContactRepository) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", contactserrors.ErrInvalidID, id)
	}
	filter := bson.M{"_id": objectID}

	var contact model.Contact
	err = r.collection.FindOne(ctx, filter).Decode(&contact)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", contactserrors.ErrNotFound, id)
		}
		return nil, mapError(err, "find contact")
	}
	return &contact, nil
}

func (r *mongoContactRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Contact, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *mongoContactRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *mongoContactRepository) FindByPhoneVariants(ctx context.Context, variants []string, limit int, offset int64) ([]*model.Contact, error) {
	return r.find(ctx, phoneFilter(variants), limit, offset)
}

func (r *mongoContactRepository) CountByPhoneVariants(ctx context.Context, variants []string) (int64, error) {
	return r.count(ctx, phoneFilter(variants))
}

func phoneFilter(variants []string) bson.M {
	return bson.M{"normalized_numbers": bson.M{"$in": variants}}
}

func (r *mongoContactRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Contact, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err, "query contacts")
	}
	defer cursor.Close(ctx)

	contacts := []*model.Contact{}
	if err = cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}

	return contacts, nil
}

func (r *mongoContactRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, mapError(err, "count contacts")
	}
	return n, nil
}

func (r *mongoContactRepository) ReplacePhoneNumbers(ctx context.Context, id string, numbers []model.PhoneNumber, normalized []string) ([]model.PhoneNumber, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", contactserrors.ErrInvalidID, id)
	}

	stored := assignIDs(numbers)
	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"phone_numbers":      stored,
			"normalized_numbers": normalized,
			"updated_at":         time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	var result *mongo.UpdateResult
	err = r.write(ctx, func() error {
		var err error
		result, err = r.collection.UpdateOne(ctx, filter, update)
		return err
	})
	if err != nil {
		return nil, mapError(err, "replace phone numbers")
	}

	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: %s", contactserrors.ErrNotFound, id)
	}

	return stored, nil
}

func (r *mongoContactRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// assignIDs returns a copy of numbers where every entry has an id.
func assignIDs(numbers []model.PhoneNumber) []model.PhoneNumber {
	out := make([]model.PhoneNumber, len(numbers))
	for i, pn := range numbers {
		if pn.ID == "" {
			pn.ID = uuid.NewString()
		}
		out[i] = pn
	}
	return out
}
