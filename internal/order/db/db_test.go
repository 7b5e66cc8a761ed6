package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-restaurant/internal/database"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateSchema(context.Background(), bunDB))
	t.Cleanup(func() { bunDB.Close() })
	return db.New(bunDB), bunDB
}

func newOrder(status models.OrderStatus, total int64, items ...*models.OrderItem) *models.Order {
	now := time.Now().UTC()
	return &models.Order{
		ID:         uuid.NewString(),
		Status:     status,
		OrderType:  models.OrderTypeDineIn,
		TotalPrice: total,
		Items:      items,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newItem(name string, qty int, price int64) *models.OrderItem {
	return &models.OrderItem{
		ID:         uuid.NewString(),
		MenuItemID: uuid.NewString(),
		Name:       name,
		Quantity:   qty,
		UnitPrice:  price,
		Subtotal:   price * int64(qty),
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	ctx := context.Background()

	guest := &models.Guest{ID: uuid.NewString(), GuestName: "Lan", JoinedAt: time.Now().UTC()}
	_, err := bunDB.NewInsert().Model(guest).Exec(ctx)
	require.NoError(t, err)

	order := newOrder(models.OrderStatusPending, 70000, newItem("Pho", 2, 30000), newItem("Tea", 1, 10000))
	order.SetPayer(models.Payer{Kind: models.PayerGuest, ID: guest.ID})
	require.NoError(t, orderDB.CreateOrder(ctx, order))

	got, err := orderDB.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70000), got.TotalPrice)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Pho", got.Items[0].Name)
	assert.Equal(t, "Tea", got.Items[1].Name)
	require.NotNil(t, got.Guest)
	assert.Equal(t, "Lan", got.Guest.GuestName)
	assert.Nil(t, got.User)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	orderDB, _ := setupTestDB(t)

	_, err := orderDB.GetOrderByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestUpdateOrderStatus_CompareAndSet(t *testing.T) {
	orderDB, _ := setupTestDB(t)
	ctx := context.Background()

	order := newOrder(models.OrderStatusPending, 1000, newItem("Rice", 1, 1000))
	require.NoError(t, orderDB.CreateOrder(ctx, order))

	ok, err := orderDB.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPreparing)
	require.NoError(t, err)
	assert.True(t, ok)

	// a second writer still expecting pending loses
	ok, err = orderDB.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := orderDB.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, got.Status)
}

func TestOccupyAndReleaseTable(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	ctx := context.Background()

	table := &models.Table{ID: uuid.NewString(), TableName: "T1", Status: models.TableStatusAvailable, UpdatedAt: time.Now().UTC()}
	_, err := bunDB.NewInsert().Model(table).Exec(ctx)
	require.NoError(t, err)

	first, second := uuid.NewString(), uuid.NewString()

	ok, err := orderDB.OccupyTable(ctx, table.ID, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = orderDB.OccupyTable(ctx, table.ID, second)
	require.NoError(t, err)
	assert.False(t, ok, "occupied table must not be taken twice")

	ok, err = orderDB.ReleaseTable(ctx, table.ID, second)
	require.NoError(t, err)
	assert.False(t, ok, "only the occupying order may release")

	ok, err = orderDB.ReleaseTable(ctx, table.ID, first)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := orderDB.GetTableByID(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, got.Status)
	assert.Empty(t, got.CurrentOrderID)
}

func TestReserveOrderCode_OnlyOnce(t *testing.T) {
	orderDB, _ := setupTestDB(t)
	ctx := context.Background()

	order := newOrder(models.OrderStatusPending, 5000, newItem("Coffee", 1, 5000))
	require.NoError(t, orderDB.CreateOrder(ctx, order))

	ok, err := orderDB.ReserveOrderCode(ctx, order.ID, 123456)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = orderDB.ReserveOrderCode(ctx, order.ID, 654321)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := orderDB.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), got.PaymentOrderCode)
}

func TestListOrders_FiltersAndPaging(t *testing.T) {
	orderDB, _ := setupTestDB(t)
	ctx := context.Background()

	userID := uuid.NewString()
	for i := 0; i < 3; i++ {
		o := newOrder(models.OrderStatusPending, 1000, newItem("Bun", 1, 1000))
		o.UserID = userID
		o.CreatedAt = o.CreatedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, orderDB.CreateOrder(ctx, o))
	}
	served := newOrder(models.OrderStatusServed, 2000, newItem("Com", 1, 2000))
	require.NoError(t, orderDB.CreateOrder(ctx, served))

	orders, total, err := orderDB.ListOrders(ctx, db.OrderFilter{UserID: userID, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, orders, 2)
	assert.True(t, !orders[0].CreatedAt.Before(orders[1].CreatedAt), "newest first")

	orders, total, err = orderDB.ListOrders(ctx, db.OrderFilter{Status: models.OrderStatusServed})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, served.ID, orders[0].ID)
}

func TestSoftDeleteOrder_HidesFromQueries(t *testing.T) {
	orderDB, _ := setupTestDB(t)
	ctx := context.Background()

	order := newOrder(models.OrderStatusPending, 1000, newItem("Soup", 1, 1000))
	require.NoError(t, orderDB.CreateOrder(ctx, order))
	require.NoError(t, orderDB.SoftDeleteOrder(ctx, order.ID))

	_, err := orderDB.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, total, err := orderDB.ListOrders(ctx, db.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGetOrderStats(t *testing.T) {
	orderDB, _ := setupTestDB(t)
	ctx := context.Background()

	for _, o := range []*models.Order{
		newOrder(models.OrderStatusPending, 1000),
		newOrder(models.OrderStatusPreparing, 2000),
		newOrder(models.OrderStatusServed, 3000),
		newOrder(models.OrderStatusServed, 4000),
		newOrder(models.OrderStatusCancelled, 5000),
	} {
		require.NoError(t, orderDB.CreateOrder(ctx, o))
	}

	stats, err := orderDB.GetOrderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Preparing)
	assert.Equal(t, int64(2), stats.Served)
	assert.Equal(t, int64(1), stats.Cancelled)
	assert.Equal(t, int64(7000), stats.TotalRevenue)
}

func TestRunInTx_RollsBack(t *testing.T) {
	orderDB, _ := setupTestDB(t)
	ctx := context.Background()

	order := newOrder(models.OrderStatusPending, 1000, newItem("Cake", 1, 1000))
	err := orderDB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return sql.ErrTxDone
	})
	assert.ErrorIs(t, err, sql.ErrTxDone)

	_, err = orderDB.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestMarkOrdersPaid(t *testing.T) {
	orderDB, _ := setupTestDB(t)
	ctx := context.Background()

	a := newOrder(models.OrderStatusServed, 1000)
	b := newOrder(models.OrderStatusServed, 2000)
	require.NoError(t, orderDB.CreateOrder(ctx, a))
	require.NoError(t, orderDB.CreateOrder(ctx, b))

	n, err := orderDB.MarkOrdersPaid(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	orders, err := orderDB.GetOrdersByIDs(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	for _, o := range orders {
		assert.True(t, o.IsPaid)
	}
}
