package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrpavithran/SmartCanteen/internal/db"
	"github.com/mrpavithran/SmartCanteen/internal/model"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("CANTEEN_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("CANTEEN_TEST_DB or DATABASE_URL not set")
		return nil
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	require.NoError(t, db.Migrate(context.Background(), pool))
	return pool
}

func seedUser(t *testing.T, store *Store, balance int64) model.User {
	t.Helper()
	now := time.Now().UTC()
	user := model.User{
		ID:        uuid.NewString(),
		Name:      "Repo Test",
		StudentID: fmt.Sprintf("R%d", now.UnixNano()),
		Role:      model.RoleStudent,
		PINHash:   "x",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	if balance > 0 {
		_, err := store.Recharge(context.Background(), user.ID, balance)
		require.NoError(t, err)
	}
	return user
}

func testOrder(userID string, total int64) model.Order {
	return model.Order{
		ID:     uuid.NewString(),
		UserID: userID,
		Items: []model.OrderItem{
			{Name: "Tea", Price: total, Quantity: 1},
		},
		TotalAmount: total,
		TokenNumber: 1234,
		Status:      model.OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestPlaceOrderDebitsAtomically(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	user := seedUser(t, store, 1000)

	placed, err := store.PlaceOrder(ctx, testOrder(user.ID, 600))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, placed.Status)

	balance, err := store.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 400, balance)

	// Overdraft leaves no order and no journal entry behind.
	_, err = store.PlaceOrder(ctx, testOrder(user.ID, 500))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err = store.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 400, balance)

	orders, err := store.ListOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	txs, err := store.ListTransactions(ctx, user.ID)
	require.NoError(t, err)
	// One recharge, one order debit.
	require.Len(t, txs, 2)
	assert.EqualValues(t, -600, txs[0].Amount)
	assert.EqualValues(t, 400, txs[0].BalanceAfter)
}

// Concurrent placements against one wallet must never drive the balance
// negative, whichever interleaving the database picks.
func TestPlaceOrderConcurrent(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	// Balance covers exactly 3 of the 10 attempted orders.
	user := seedUser(t, store, 300)

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.PlaceOrder(ctx, testOrder(user.ID, 100))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 3, succeeded)

	balance, err := store.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)

	orders, err := store.ListOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}

func TestAdvanceOrderStatusCAS(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	user := seedUser(t, store, 100)
	placed, err := store.PlaceOrder(ctx, testOrder(user.ID, 100))
	require.NoError(t, err)

	updated, err := store.AdvanceOrderStatus(ctx, placed.ID, model.OrderStatusPending, model.OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, updated.Status)

	// A second writer still holding the stale status loses.
	_, err = store.AdvanceOrderStatus(ctx, placed.ID, model.OrderStatusPending, model.OrderStatusPreparing)
	assert.ErrorIs(t, err, ErrStatusConflict)

	_, err = store.AdvanceOrderStatus(ctx, uuid.NewString(), model.OrderStatusPending, model.OrderStatusPreparing)
	assert.Error(t, err)
}

func TestDeleteUserGuardsActiveOrders(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	user := seedUser(t, store, 100)
	placed, err := store.PlaceOrder(ctx, testOrder(user.ID, 100))
	require.NoError(t, err)

	err = store.DeleteUser(ctx, user.ID)
	assert.ErrorIs(t, err, ErrActiveOrders)

	// Walk the order to a terminal state, then deletion goes through.
	_, err = store.AdvanceOrderStatus(ctx, placed.ID, model.OrderStatusPending, model.OrderStatusPreparing)
	require.NoError(t, err)
	_, err = store.AdvanceOrderStatus(ctx, placed.ID, model.OrderStatusPreparing, model.OrderStatusReady)
	require.NoError(t, err)
	_, err = store.AdvanceOrderStatus(ctx, placed.ID, model.OrderStatusReady, model.OrderStatusCompleted)
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, user.ID))

	_, err = store.GetUserByID(ctx, user.ID)
	assert.Error(t, err)
}

func TestCategoryDeleteGuard(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	category := model.Category{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Drinks %d", time.Now().UnixNano()),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateCategory(ctx, category))

	item := model.Item{
		ID:          uuid.NewString(),
		CategoryID:  category.ID,
		Name:        "Chai",
		Price:       150,
		IsAvailable: true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateItem(ctx, item))

	err := store.DeleteCategory(ctx, category.ID)
	assert.ErrorIs(t, err, ErrCategoryNotEmpty)

	require.NoError(t, store.DeleteItem(ctx, item.ID))
	require.NoError(t, store.DeleteCategory(ctx, category.ID))
}

func TestResetTokenOneShot(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	user := seedUser(t, store, 0)
	token := model.ResetToken{
		TokenHash: uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateResetToken(ctx, token))

	consumed, err := store.ConsumeResetToken(ctx, token.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, user.ID, consumed.UserID)

	_, err = store.ConsumeResetToken(ctx, token.TokenHash)
	assert.Error(t, err)

	// Expired tokens cannot be consumed even if still stored.
	expired := model.ResetToken{
		TokenHash: uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateResetToken(ctx, expired))
	_, err = store.ConsumeResetToken(ctx, expired.TokenHash)
	assert.Error(t, err)
}

func TestDuplicateStudentID(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	user := seedUser(t, store, 0)
	dup := user
	dup.ID = uuid.NewString()
	err := store.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}
