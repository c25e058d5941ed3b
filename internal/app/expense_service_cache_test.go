package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	expensecache "expense-tracker-api/internal/cache"
	"expense-tracker-api/internal/model"
	"expense-tracker-api/internal/repository"
	"expense-tracker-api/internal/testutil"
)

// interleavingStore runs afterList once, between the list read and its return.
type interleavingStore struct {
	ExpenseStore
	afterList func()
}

func (s *interleavingStore) ListByUserID(ctx context.Context, userID string) ([]model.Expense, error) {
	list, err := s.ExpenseStore.ListByUserID(ctx, userID)
	if fn := s.afterList; fn != nil {
		s.afterList = nil
		fn()
	}
	return list, err
}

func TestExpenseService_ListDoesNotCacheSnapshotOlderThanWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	store := &interleavingStore{ExpenseStore: repository.NewExpenseRepository(testutil.OpenInMemoryDB(t))}
	svc := NewExpenseService(store, expensecache.NewExpenseCache(client, time.Minute), nil, logger)

	store.afterList = func() {
		_, err := svc.Create(ctx, "u1", coffee())
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, mr.Exists("expense:list:u1"))

	list, err = svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	mr.FastForward(10 * time.Second)
	list, err = svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, mr.Exists("expense:list:u1"))

	list, err = svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
