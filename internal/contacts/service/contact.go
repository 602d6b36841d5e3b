package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	contactserrors "contactfix/internal/contacts/errors"
	"contactfix/internal/contacts/metrics"
	"contactfix/internal/contacts/repository"
	"contactfix/internal/contacts/validator"
	"contactfix/pkg/config"
	apperrors "contactfix/pkg/errors"
	"contactfix/pkg/middleware"
	"contactfix/pkg/model"
	"contactfix/pkg/normalizer"
	"contactfix/pkg/sanitizer"
)

type ContactService interface {
	Create(ctx context.Context, contact *model.Contact) error
	GetByID(ctx context.Context, id string) (*model.Contact, error)
	GetAll(ctx context.Context, limit int, offset int64, onlyNeedsFix bool) ([]*model.Contact, int64, error)
	FindByPhone(ctx context.Context, phone string, limit int, offset int64) ([]*model.Contact, int64, error)

	Preview(ctx context.Context, id string) (*model.FixResult, error)
	Fix(ctx context.Context, id string) (*model.FixResult, error)
	FixBatch(ctx context.Context, ids []string) (*model.BatchResult, error)
	FixAll(ctx context.Context) (*model.BatchResult, error)
}

type EventPublisher interface {
	PublishReconciled(ctx context.Context, result *model.FixResult, correlationID string) error
}

type contactService struct {
	repo      repository.ContactRepository
	validator *validator.ContactValidator
	cfg       *config.Config
	publisher EventPublisher
	metrics   *metrics.Metrics

	scheme      normalizer.Scheme
	concurrency int
	pageSize    int
}

// NewContactService wires the contact use cases. publisher and m may be nil.
func NewContactService(
	repo repository.ContactRepository,
	validator *validator.ContactValidator,
	cfg *config.Config,
	publisher EventPublisher,
	m *metrics.Metrics,
) ContactService {
	s := &contactService{
		repo:        repo,
		validator:   validator,
		cfg:         cfg,
		publisher:   publisher,
		metrics:     m,
		scheme:      cfg.Scheme,
		concurrency: cfg.FixBatchConcurrency,
		pageSize:    cfg.FixBatchPageSize,
	}
	if s.scheme.LocalPrefix == "" || s.scheme.IntlPrefix == "" {
		s.scheme = normalizer.DefaultScheme()
	}
	if s.concurrency < 1 {
		s.concurrency = config.DefaultFixBatchConcurrency
	}
	if s.pageSize < 1 {
		s.pageSize = config.DefaultFixBatchPageSize
	}
	return s
}

func (s *contactService) Create(ctx context.Context, contact *model.Contact) error {
	contact.ID = ""
	contact.Name = sanitizer.NormalizeName(contact.Name)
	contact.PhoneNumbers = sanitizer.NormalizePhoneNumbers(contact.PhoneNumbers)

	if err := s.validator.Validate(contact); err != nil {
		s.cfg.Log.Warn("Contact validation failed",
			"name", contact.Name,
			"error", err,
		)
		return apperrors.Validation("Contact validation failed", map[string]any{
			"errors": err,
		})
	}

	contact.NormalizedNumbers = s.lookupKeys(contact.PhoneNumbers)
	if err := s.repo.Create(ctx, contact); err != nil {
		return s.mapRepoError(err, "", "create contact")
	}
	s.decorate(contact)

	s.cfg.Log.Info("Contact created",
		"contact_id", contact.ID,
		"phone_numbers", len(contact.PhoneNumbers),
		"needs_fix", contact.NeedsFix,
	)
	return nil
}

func (s *contactService) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Contact ID cannot be empty")
	}

	contact, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "get contact")
	}
	s.decorate(contact)
	return contact, nil
}

func (s *contactService) GetAll(ctx context.Context, limit int, offset int64, onlyNeedsFix bool) ([]*model.Contact, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	if onlyNeedsFix {
		return s.scanNeedsFix(ctx, limit, offset)
	}

	var count int64
	var contacts []*model.Contact
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		contacts, err = s.repo.FindAll(gctx, limit, offset)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, s.mapRepoError(err, "", "list contacts")
	}

	for _, c := range contacts {
		s.decorate(c)
	}
	return contacts, count, nil
}

// scanNeedsFix walks the whole collection because needs_fix is derived and
// not stored. It returns the requested window and the total number of matches.
func (s *contactService) scanNeedsFix(ctx context.Context, limit int, offset int64) ([]*model.Contact, int64, error) {
	matches := []*model.Contact{}
	var total int64

	err := s.eachPage(ctx, func(page []*model.Contact) error {
		for _, c := range page {
			s.decorate(c)
			if !c.NeedsFix {
				continue
			}
			if total >= offset && len(matches) < limit {
				matches = append(matches, c)
			}
			total++
		}
		return nil
	})
	if err != nil {
		return nil, 0, s.mapRepoError(err, "", "list contacts needing a fix")
	}
	return matches, total, nil
}

func (s *contactService) FindByPhone(ctx context.Context, phone string, limit int, offset int64) ([]*model.Contact, int64, error) {
	keys := s.lookupKeys([]model.PhoneNumber{{Number: phone}})
	if len(keys) == 0 {
		return nil, 0, apperrors.InvalidInput("Phone number cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var contacts []*model.Contact
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.CountByPhoneVariants(gctx, keys)
		return err
	})
	g.Go(func() error {
		var err error
		contacts, err = s.repo.FindByPhoneVariants(gctx, keys, limit, offset)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, s.mapRepoError(err, "", "find contacts by phone")
	}

	for _, c := range contacts {
		s.decorate(c)
	}
	return contacts, count, nil
}

func (s *contactService) Preview(ctx context.Context, id string) (*model.FixResult, error) {
	contact, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	added := s.scheme.Missing(contact.PhoneNumbers)
	if added == nil {
		added = []model.PhoneNumber{}
	}
	return &model.FixResult{
		ContactID: contact.ID,
		Changed:   len(added) > 0,
		Added:     added,
		Contact:   contact,
	}, nil
}

// Fix reads, reconciles and writes back one contact inside a transaction.
// A contact that needs nothing is not written.
func (s *contactService) Fix(ctx context.Context, id string) (*model.FixResult, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Contact ID cannot be empty")
	}

	start := time.Now()
	var result *model.FixResult

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		contact, err := s.repo.FindByID(sessCtx, id)
		if err != nil {
			return err
		}

		existing := len(contact.PhoneNumbers)
		numbers := s.scheme.Reconcile(contact.PhoneNumbers)
		if len(numbers) == existing {
			result = &model.FixResult{ContactID: id, Added: []model.PhoneNumber{}, Contact: contact}
			return nil
		}

		stored, err := s.repo.ReplacePhoneNumbers(sessCtx, id, numbers, s.lookupKeys(numbers))
		if err != nil {
			return err
		}
		contact.PhoneNumbers = stored
		result = &model.FixResult{ContactID: id, Changed: true, Added: stored[existing:], Contact: contact}
		return nil
	})
	if err != nil {
		s.metrics.ObserveFix(metrics.OutcomeFailed, 0, time.Since(start))
		return nil, s.mapRepoError(err, id, "fix contact")
	}

	s.decorate(result.Contact)
	if !result.Changed {
		s.metrics.ObserveFix(metrics.OutcomeUnchanged, 0, time.Since(start))
		return result, nil
	}

	s.metrics.ObserveFix(metrics.OutcomeFixed, len(result.Added), time.Since(start))
	s.cfg.Log.Info("Contact fixed",
		"contact_id", id,
		"added", len(result.Added),
	)
	s.publish(ctx, result)
	return result, nil
}

// publish failures are logged only; the fix is already committed.
func (s *contactService) publish(ctx context.Context, result *model.FixResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReconciled(ctx, result, middleware.RequestIDFromContext(ctx)); err != nil {
		s.cfg.Log.Error("Failed to publish reconciled event",
			"contact_id", result.ContactID,
			"error", err,
		)
	}
}

// FixBatch repairs the given contacts concurrently. An empty list repairs
// every contact that needs it. One failure never stops the others.
func (s *contactService) FixBatch(ctx context.Context, ids []string) (*model.BatchResult, error) {
	if len(ids) == 0 {
		return s.FixAll(ctx)
	}

	result := model.NewBatchResult()
	s.fixConcurrently(ctx, uniqueIDs(ids), result)
	return s.finishBatch(ctx, result, len(ids))
}

func (s *contactService) FixAll(ctx context.Context) (*model.BatchResult, error) {
	result := model.NewBatchResult()
	examined := 0

	err := s.eachPage(ctx, func(page []*model.Contact) error {
		examined += len(page)
		candidates := make([]string, 0, len(page))
		for _, c := range page {
			if s.scheme.NeedsReconciliation(c.PhoneNumbers) {
				candidates = append(candidates, c.ID)
			}
		}
		s.fixConcurrently(ctx, candidates, result)
		return ctx.Err()
	})
	if err != nil && ctx.Err() == nil {
		return nil, s.mapRepoError(err, "", "list contacts")
	}

	return s.finishBatch(ctx, result, examined)
}

func (s *contactService) fixConcurrently(ctx context.Context, ids []string, result *model.BatchResult) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			fixed, err := s.Fix(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed[id] = apperrors.AsAppError(err).Message
			case fixed.Changed:
				result.Fixed = append(result.Fixed, id)
			default:
				result.Unchanged = append(result.Unchanged, id)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *contactService) finishBatch(ctx context.Context, result *model.BatchResult, examined int) (*model.BatchResult, error) {
	slices.Sort(result.Fixed)
	slices.Sort(result.Unchanged)
	s.metrics.ObserveBatch(examined)

	s.cfg.Log.Info("Batch fix finished",
		"examined", examined,
		"fixed", len(result.Fixed),
		"unchanged", len(result.Unchanged),
		"failed", len(result.Failed),
	)

	if err := ctx.Err(); err != nil {
		return result, apperrors.Timeout("Batch fix interrupted before all contacts were processed")
	}
	return result, nil
}

// eachPage calls fn with consecutive pages of the collection in id order.
func (s *contactService) eachPage(ctx context.Context, fn func(page []*model.Contact) error) error {
	var offset int64
	for {
		page, err := s.repo.FindAll(ctx, s.pageSize, offset)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(page) < s.pageSize {
			return nil
		}
		offset += int64(len(page))
	}
}

// lookupKeys are the stored normalized_numbers: every scheme variant plus the
// E.164 form of each number when it parses.
func (s *contactService) lookupKeys(numbers []model.PhoneNumber) []string {
	keys := s.scheme.NormalizedSet(numbers)
	for _, pn := range numbers {
		keys = append(keys, sanitizer.E164(pn.Number))
	}
	return sanitizer.NormalizeStringSlice(keys, strings.TrimSpace)
}

func (s *contactService) decorate(contact *model.Contact) {
	contact.NeedsFix = s.scheme.NeedsReconciliation(contact.PhoneNumbers)
}

func (s *contactService) mapRepoError(err error, id, action string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, contactserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Contact", id)
	case errors.Is(err, contactserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid contact ID format")
	case errors.Is(err, contactserrors.ErrPermissionDenied):
		return apperrors.Forbidden("Permission to access contacts denied")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout(fmt.Sprintf("Timed out trying to %s", action))
	}

	s.cfg.Log.Error("Contact store operation failed",
		"action", action,
		"contact_id", id,
		"error", err,
	)
	return apperrors.Internal(fmt.Sprintf("Failed to %s", action), err)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
