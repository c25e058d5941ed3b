package app

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"expense-tracker-api/internal/model"
)

var ErrExpenseNotFound = errors.New("expense not found")

// Cleanup reasons attached to published receipt removals.
const (
	CleanupDeleted  = "expense_deleted"
	CleanupReplaced = "image_replaced"
	CleanupOrphaned = "write_failed"
)

type ExpenseStore interface {
	Create(ctx context.Context, expense *model.Expense) error
	ListByUserID(ctx context.Context, userID string) ([]model.Expense, error)
	GetByIDAndUserID(ctx context.Context, id, userID string) (*model.Expense, error)
	UpdateByIDAndUserID(ctx context.Context, id, userID string, updates map[string]interface{}) error
	DeleteByIDAndUserID(ctx context.Context, id, userID string) (bool, error)
}

type ExpenseListCache interface {
	GetList(ctx context.Context, userID string) ([]model.Expense, bool, error)
	SetList(ctx context.Context, userID string, expenses []model.Expense) error
	Invalidate(ctx context.Context, userID string) error
	MarkDirty(ctx context.Context, userID string) error
	IsDirty(ctx context.Context, userID string) (bool, error)
}

type ReceiptCleanupPublisher interface {
	PublishCleanup(ctx context.Context, objectKey, reason string) error
}

// ExpenseInput carries client-supplied fields. A nil pointer means the field
// was absent from the request.
type ExpenseInput struct {
	Title       *string
	Description *string
	Amount      *float64
	Date        *string
	Category    *string
	ImageURL    *string
	// ImageKey is set when ImageURL comes from an upload handled by this service.
	ImageKey string
}

type ExpenseService struct {
	store   ExpenseStore
	cache   ExpenseListCache
	cleanup ReceiptCleanupPublisher
	log     logrus.FieldLogger
}

// NewExpenseService wires the store with optional cache and cleanup publisher; either may be nil.
func NewExpenseService(store ExpenseStore, cache ExpenseListCache, cleanup ReceiptCleanupPublisher, log logrus.FieldLogger) *ExpenseService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ExpenseService{
		store:   store,
		cache:   cache,
		cleanup: cleanup,
		log:     log,
	}
}

func (s *ExpenseService) Create(ctx context.Context, userID string, input ExpenseInput) (*model.Expense, error) {
	expense, err := s.buildExpense(userID, input)
	if err == nil {
		err = s.store.Create(ctx, expense)
	}
	if err != nil {
		s.DiscardUpload(ctx, input.ImageKey)
		return nil, err
	}

	s.invalidate(ctx, userID)
	return expense, nil
}

func (s *ExpenseService) List(ctx context.Context, userID string) ([]model.Expense, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetList(ctx, userID)
		if err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("read expense cache failed")
		} else if ok {
			return cached, nil
		}
	}

	expenses, err := s.store.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.fillCache(ctx, userID, expenses)
	}
	return expenses, nil
}

// fillCache stores a freshly read list unless a write marked the owner dirty
// after the read may have started.
func (s *ExpenseService) fillCache(ctx context.Context, userID string, expenses []model.Expense) {
	dirty, err := s.cache.IsDirty(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("check expense cache dirty marker failed")
		return
	}
	if dirty {
		return
	}
	if err := s.cache.SetList(ctx, userID, expenses); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("write expense cache failed")
	}
}

// Get returns ErrExpenseNotFound for malformed ids, missing rows and rows of other owners alike.
func (s *ExpenseService) Get(ctx context.Context, userID, id string) (*model.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrExpenseNotFound
	}
	expense, err := s.store.GetByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}
	return expense, nil
}

// Update merges the fields present in input into the caller's record.
func (s *ExpenseService) Update(ctx context.Context, userID, id string, input ExpenseInput) (*model.Expense, error) {
	updated, replacedKey, err := s.update(ctx, userID, id, input)
	if err != nil {
		s.DiscardUpload(ctx, input.ImageKey)
		return nil, err
	}

	s.invalidate(ctx, userID)
	s.publishCleanup(ctx, replacedKey, CleanupReplaced)
	return updated, nil
}

func (s *ExpenseService) update(ctx context.Context, userID, id string, input ExpenseInput) (*model.Expense, string, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}

	merged := *existing
	updates, err := applyInput(&merged, input)
	if err != nil {
		return nil, "", err
	}
	if err := validateExpense(&merged); err != nil {
		return nil, "", err
	}

	var replacedKey string
	if input.ImageURL != nil && merged.ImageURL != existing.ImageURL {
		updates["image_key"] = input.ImageKey
		replacedKey = existing.ImageKey
	}
	if len(updates) == 0 {
		return existing, "", nil
	}

	if err := s.store.UpdateByIDAndUserID(ctx, id, userID, updates); err != nil {
		return nil, "", err
	}
	updated, err := s.store.GetByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil, "", err
	}
	if updated == nil {
		return nil, "", ErrExpenseNotFound
	}
	return updated, replacedKey, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteByIDAndUserID(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrExpenseNotFound
	}

	s.invalidate(ctx, userID)
	s.publishCleanup(ctx, existing.ImageKey, CleanupDeleted)
	return nil
}

func (s *ExpenseService) buildExpense(userID string, input ExpenseInput) (*model.Expense, error) {
	if input.Title == nil {
		return nil, requiredField("title")
	}
	if input.Amount == nil {
		return nil, requiredField("amount")
	}
	if input.Date == nil {
		return nil, requiredField("date")
	}
	if input.Category == nil {
		return nil, requiredField("category")
	}

	expense := &model.Expense{UserID: userID}
	if _, err := applyInput(expense, input); err != nil {
		return nil, err
	}
	expense.ImageKey = input.ImageKey
	if err := validateExpense(expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// applyInput copies present fields onto e and returns them as column updates.
func applyInput(e *model.Expense, input ExpenseInput) (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if input.Title != nil {
		e.Title = *input.Title
		updates["title"] = e.Title
	}
	if input.Description != nil {
		e.Description = *input.Description
		updates["description"] = e.Description
	}
	if input.Amount != nil {
		e.Amount = *input.Amount
		updates["amount"] = e.Amount
	}
	if input.Date != nil {
		date, err := parseDate(*input.Date)
		if err != nil {
			return nil, err
		}
		e.Date = date
		updates["date"] = e.Date
	}
	if input.Category != nil {
		e.Category = *input.Category
		updates["category"] = e.Category
	}
	if input.ImageURL != nil {
		e.ImageURL = strings.TrimSpace(*input.ImageURL)
		updates["image_url"] = e.ImageURL
	}
	return updates, nil
}

func (s *ExpenseService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	// Marker first: a reader that checks it before this point has its stale
	// list removed by the delete below.
	if err := s.cache.MarkDirty(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("mark expense cache dirty failed")
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("invalidate expense cache failed")
	}
}

// DiscardUpload queues a just-uploaded receipt whose record was never written.
func (s *ExpenseService) DiscardUpload(ctx context.Context, objectKey string) {
	s.publishCleanup(ctx, objectKey, CleanupOrphaned)
}

func (s *ExpenseService) publishCleanup(ctx context.Context, objectKey, reason string) {
	if s.cleanup == nil || objectKey == "" {
		return
	}
	if err := s.cleanup.PublishCleanup(ctx, objectKey, reason); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"object_key": objectKey,
			"reason":     reason,
		}).Warn("publish receipt cleanup failed")
	}
}
