package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expense-tracker-api/internal/model"
	"expense-tracker-api/internal/repository"
	"expense-tracker-api/internal/testutil"
)

type fakeCache struct {
	mu          sync.Mutex
	lists       map[string][]model.Expense
	dirty       map[string]bool
	invalidated []string
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{lists: make(map[string][]model.Expense), dirty: make(map[string]bool)}
}

// expireDirty drops all dirty markers, as their TTL would in redis.
func (c *fakeCache) expireDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = make(map[string]bool)
}

func (c *fakeCache) GetList(_ context.Context, userID string) ([]model.Expense, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	list, ok := c.lists[userID]
	return list, ok, nil
}

func (c *fakeCache) SetList(_ context.Context, userID string, expenses []model.Expense) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[userID] = expenses
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func (c *fakeCache) MarkDirty(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[userID] = true
	return nil
}

func (c *fakeCache) IsDirty(_ context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty[userID], nil
}

type cleanupCall struct {
	key    string
	reason string
}

type fakeCleanup struct {
	mu    sync.Mutex
	calls []cleanupCall
}

func (p *fakeCleanup) PublishCleanup(_ context.Context, objectKey, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, cleanupCall{key: objectKey, reason: reason})
	return nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func coffee() ExpenseInput {
	return ExpenseInput{
		Title:    strPtr("Coffee"),
		Amount:   floatPtr(4.5),
		Date:     strPtr("2024-01-01"),
		Category: strPtr("Food"),
	}
}

type expenseFixture struct {
	svc     *ExpenseService
	cache   *fakeCache
	cleanup *fakeCleanup
	ctx     context.Context
}

func newExpenseFixture(t *testing.T) *expenseFixture {
	t.Helper()
	cache := newFakeCache()
	cleanup := &fakeCleanup{}
	logger, _ := test.NewNullLogger()
	svc := NewExpenseService(repository.NewExpenseRepository(testutil.OpenInMemoryDB(t)), cache, cleanup, logger)
	return &expenseFixture{svc: svc, cache: cache, cleanup: cleanup, ctx: context.Background()}
}

func TestExpenseService_CreateAssignsOwner(t *testing.T) {
	f := newExpenseFixture(t)

	e, err := f.svc.Create(f.ctx, "u1", coffee())
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, 4.5, e.Amount)
	assert.Equal(t, 2024, e.Date.Year())
	assert.Contains(t, f.cache.invalidated, "u1")
}

func TestExpenseService_CreateValidation(t *testing.T) {
	f := newExpenseFixture(t)

	cases := map[string]func(*ExpenseInput){
		"title":    func(in *ExpenseInput) { in.Title = nil },
		"amount":   func(in *ExpenseInput) { in.Amount = nil },
		"date":     func(in *ExpenseInput) { in.Date = strPtr("not-a-date") },
		"category": func(in *ExpenseInput) { in.Category = strPtr("  ") },
	}
	for field, mutate := range cases {
		in := coffee()
		mutate(&in)
		_, err := f.svc.Create(f.ctx, "u1", in)
		var verr *ValidationError
		require.Truef(t, errors.As(err, &verr), "expected validation error for %s, got %v", field, err)
		assert.Equal(t, field, verr.Field)
	}
}

func TestExpenseService_CreateFailureDiscardsUpload(t *testing.T) {
	f := newExpenseFixture(t)

	in := coffee()
	in.Title = nil
	in.ImageURL = strPtr("https://storage.googleapis.com/b/1_r.png")
	in.ImageKey = "1_r.png"
	_, err := f.svc.Create(f.ctx, "u1", in)
	require.Error(t, err)
	assert.Equal(t, []cleanupCall{{key: "1_r.png", reason: CleanupOrphaned}}, f.cleanup.calls)
}

func TestExpenseService_ListUsesCache(t *testing.T) {
	f := newExpenseFixture(t)

	_, err := f.svc.Create(f.ctx, "u1", coffee())
	require.NoError(t, err)

	list, err := f.svc.List(f.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotContains(t, f.cache.lists, "u1", "list read right after a write must not be cached")

	f.cache.expireDirty()
	list, err = f.svc.List(f.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Contains(t, f.cache.lists, "u1")

	f.cache.lists["u1"] = []model.Expense{{ID: "cached"}}
	list, err = f.svc.List(f.ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cached", list[0].ID)

	_, err = f.svc.Create(f.ctx, "u1", coffee())
	require.NoError(t, err)
	list, err = f.svc.List(f.ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestExpenseService_ListFallsBackWhenCacheFails(t *testing.T) {
	f := newExpenseFixture(t)
	f.cache.getErr = errors.New("redis down")

	_, err := f.svc.Create(f.ctx, "u1", coffee())
	require.NoError(t, err)
	list, err := f.svc.List(f.ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExpenseService_GetNotFoundCases(t *testing.T) {
	f := newExpenseFixture(t)

	e, err := f.svc.Create(f.ctx, "u1", coffee())
	require.NoError(t, err)

	for _, tc := range []struct{ user, id string }{
		{"u1", "not-a-uuid"},
		{"u1", uuid.NewString()},
		{"u2", e.ID},
	} {
		_, err := f.svc.Get(f.ctx, tc.user, tc.id)
		assert.ErrorIs(t, err, ErrExpenseNotFound)
	}

	got, err := f.svc.Get(f.ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
}

func TestExpenseService_UpdateMergesPresentFields(t *testing.T) {
	f := newExpenseFixture(t)

	in := coffee()
	in.Description = strPtr("morning")
	e, err := f.svc.Create(f.ctx, "u1", in)
	require.NoError(t, err)

	updated, err := f.svc.Update(f.ctx, "u1", e.ID, ExpenseInput{Amount: floatPtr(6)})
	require.NoError(t, err)
	assert.Equal(t, 6.0, updated.Amount)
	assert.Equal(t, "Coffee", updated.Title)
	assert.Equal(t, "morning", updated.Description)
	assert.Equal(t, "Food", updated.Category)
	assert.True(t, e.Date.Equal(updated.Date))
}

func TestExpenseService_UpdateRejectsForeignAndInvalid(t *testing.T) {
	f := newExpenseFixture(t)

	e, err := f.svc.Create(f.ctx, "u1", coffee())
	require.NoError(t, err)

	_, err = f.svc.Update(f.ctx, "u2", e.ID, ExpenseInput{Title: strPtr("Mine now")})
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	_, err = f.svc.Update(f.ctx, "u1", e.ID, ExpenseInput{Title: strPtr("")})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	got, err := f.svc.Get(f.ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", got.Title)
}

func TestExpenseService_UpdateReplacingImageQueuesOldObject(t *testing.T) {
	f := newExpenseFixture(t)

	in := coffee()
	in.ImageURL = strPtr("https://storage.googleapis.com/b/1_old.png")
	in.ImageKey = "1_old.png"
	e, err := f.svc.Create(f.ctx, "u1", in)
	require.NoError(t, err)

	updated, err := f.svc.Update(f.ctx, "u1", e.ID, ExpenseInput{
		ImageURL: strPtr("https://storage.googleapis.com/b/2_new.png"),
		ImageKey: "2_new.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/b/2_new.png", updated.ImageURL)
	assert.Equal(t, "2_new.png", updated.ImageKey)
	assert.Equal(t, []cleanupCall{{key: "1_old.png", reason: CleanupReplaced}}, f.cleanup.calls)
}

func TestExpenseService_DeleteQueuesImage(t *testing.T) {
	f := newExpenseFixture(t)

	in := coffee()
	in.ImageURL = strPtr("https://storage.googleapis.com/b/1_r.png")
	in.ImageKey = "1_r.png"
	e, err := f.svc.Create(f.ctx, "u1", in)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(f.ctx, "u2", e.ID), ErrExpenseNotFound)
	require.NoError(t, f.svc.Delete(f.ctx, "u1", e.ID))
	assert.ErrorIs(t, f.svc.Delete(f.ctx, "u1", e.ID), ErrExpenseNotFound)

	_, err = f.svc.Get(f.ctx, "u1", e.ID)
	assert.ErrorIs(t, err, ErrExpenseNotFound)
	assert.Equal(t, []cleanupCall{{key: "1_r.png", reason: CleanupDeleted}}, f.cleanup.calls)
}

func TestNewExpenseService_DefaultsLogger(t *testing.T) {
	svc := NewExpenseService(nil, nil, nil, nil)
	assert.Equal(t, logrus.StandardLogger(), svc.log)
}
