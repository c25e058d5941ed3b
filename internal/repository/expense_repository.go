package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"expense-tracker-api/internal/model"
)

// ExpenseRepository scopes every query by owner.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(expense).Error; err != nil {
		return fmt.Errorf("create expense failed: %w", err)
	}
	return nil
}

// ListByUserID returns the owner's expenses, most recent date first.
func (r *ExpenseRepository) ListByUserID(ctx context.Context, userID string) ([]model.Expense, error) {
	expenses := make([]model.Expense, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Order("created_at DESC").
		Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("list expenses failed: %w", err)
	}
	return expenses, nil
}

func (r *ExpenseRepository) GetByIDAndUserID(ctx context.Context, id, userID string) (*model.Expense, error) {
	var expense model.Expense
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get expense failed: %w", err)
	}
	return &expense, nil
}

// UpdateByIDAndUserID applies the column/value pairs in updates to the row owned by userID.
// MySQL reports zero affected rows when values are unchanged, so callers re-read
// the row instead of relying on the affected count.
func (r *ExpenseRepository) UpdateByIDAndUserID(ctx context.Context, id, userID string, updates map[string]interface{}) error {
	if err := r.db.WithContext(ctx).
		Model(&model.Expense{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("update expense failed: %w", err)
	}
	return nil
}

// DeleteByIDAndUserID reports whether a row owned by userID was removed.
func (r *ExpenseRepository) DeleteByIDAndUserID(ctx context.Context, id, userID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Expense{})
	if res.Error != nil {
		return false, fmt.Errorf("delete expense failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
