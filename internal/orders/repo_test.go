package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/pagination"
)

func TestRepositoryFindByIDPreloadsItems(t *testing.T) {
	gdb := setupOrdersTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	order := seedOrder(t, gdb, nil)
	first := seedOrderItem(t, gdb, order.ID, func(i *models.OrderItem) {
		i.CreatedAt = time.Now().Add(-2 * time.Minute)
	})
	second := seedOrderItem(t, gdb, order.ID, func(i *models.OrderItem) {
		i.Name = "Wool Twill"
		i.UnitPriceCents = 799
		i.Quantity = 1
		i.TotalCents = 799
		i.CreatedAt = time.Now().Add(-1 * time.Minute)
	})

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.Equal(t, first.ID, loaded.Items[0].ID)
	assert.Equal(t, second.ID, loaded.Items[1].ID)
	assert.Equal(t, int64(499), loaded.Items[0].UnitPriceCents)
}

func TestRepositoryFindByNumber(t *testing.T) {
	gdb := setupOrdersTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	order := seedOrder(t, gdb, nil)
	seedOrderItem(t, gdb, order.ID, nil)

	loaded, err := repo.FindByNumber(ctx, order.Number)
	require.NoError(t, err)
	assert.Equal(t, order.ID, loaded.ID)
	assert.Len(t, loaded.Items, 1)

	_, err = repo.FindByNumber(ctx, "LL-0000-NOPE")
	require.Error(t, err)
}

func TestRepositoryListScopesAndPaginates(t *testing.T) {
	gdb := setupOrdersTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	var mine []uuid.UUID
	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Minute
		order := seedOrder(t, gdb, func(o *models.Order) {
			o.UserID = userID
			o.CreatedAt = base.Add(offset)
		})
		mine = append(mine, order.ID)
	}
	seedOrder(t, gdb, func(o *models.Order) {
		o.Status = enums.OrderStatusPaid
		o.CreatedAt = base.Add(30 * time.Minute)
	})

	rows, cursor, err := repo.List(ctx, ListQuery{
		UserID:     &userID,
		Pagination: pagination.Params{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, mine[2], rows[0].ID)
	assert.Equal(t, mine[1], rows[1].ID)
	require.NotEmpty(t, cursor)

	rows, cursor, err = repo.List(ctx, ListQuery{
		UserID:     &userID,
		Pagination: pagination.Params{Limit: 2, Cursor: cursor},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine[0], rows[0].ID)
	assert.Empty(t, cursor)

	paid := enums.OrderStatusPaid
	rows, _, err = repo.List(ctx, ListQuery{
		Status:     &paid,
		Pagination: pagination.Params{},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.OrderStatusPaid, rows[0].Status)
}

func TestRepositoryListRejectsBadCursor(t *testing.T) {
	gdb := setupOrdersTestDB(t)
	repo := NewRepository(gdb)

	_, _, err := repo.List(context.Background(), ListQuery{
		Pagination: pagination.Params{Cursor: "not-a-cursor"},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRepositoryUpdateFields(t *testing.T) {
	gdb := setupOrdersTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	order := seedOrder(t, gdb, nil)
	paidAt := time.Now().UTC()

	require.NoError(t, repo.UpdateFields(ctx, order.ID, map[string]any{
		"status":      enums.OrderStatusPaid,
		"paid_at":     paidAt,
		"payment_ref": "sq-123",
	}))

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, loaded.Status)
	require.NotNil(t, loaded.PaidAt)
	require.NotNil(t, loaded.PaymentRef)
	assert.Equal(t, "sq-123", *loaded.PaymentRef)
}

func TestRepositoryFindPendingBefore(t *testing.T) {
	gdb := setupOrdersTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	cutoff := time.Now().UTC().Add(-time.Hour)

	stale := seedOrder(t, gdb, func(o *models.Order) {
		o.CreatedAt = cutoff.Add(-10 * time.Minute)
	})
	seedOrderItem(t, gdb, stale.ID, nil)
	seedOrder(t, gdb, func(o *models.Order) {
		o.CreatedAt = cutoff.Add(10 * time.Minute)
	})
	seedOrder(t, gdb, func(o *models.Order) {
		o.Status = enums.OrderStatusPaid
		o.CreatedAt = cutoff.Add(-10 * time.Minute)
	})

	rows, err := repo.FindPendingBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
	assert.Len(t, rows[0].Items, 1)
}
