package order

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/database"
	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return m.Called(order.ID).Error(0)
}

func (m *mockEvents) PublishOrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	return m.Called(order.ID, from, order.Status).Error(0)
}

func (m *mockEvents) PublishOrderPaid(ctx context.Context, order *models.Order) error {
	return m.Called(order.ID).Error(0)
}

type mockLoyalty struct {
	mock.Mock
}

func (m *mockLoyalty) AutoAddPointsFromOrder(ctx context.Context, userID, orderID string, amount int64) (int64, error) {
	args := m.Called(userID, orderID, amount)
	return args.Get(0).(int64), args.Error(1)
}

// memLock is an in-process TableLock.
type memLock struct {
	mu     sync.Mutex
	owners map[string]string
}

func (l *memLock) LockTable(_ context.Context, tableID, orderID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.owners[tableID]; held {
		return false, nil
	}
	l.owners[tableID] = orderID
	return true, nil
}

func (l *memLock) UnlockTable(_ context.Context, tableID, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[tableID] == orderID {
		delete(l.owners, tableID)
	}
	return nil
}

type fixture struct {
	svc     *OrderService
	bun     *bun.DB
	events  *mockEvents
	loyalty *mockLoyalty
	locks   *memLock
}

func newFixture(t *testing.T) *fixture {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateSchema(context.Background(), bunDB))
	t.Cleanup(func() { bunDB.Close() })

	store := db.New(bunDB)
	f := &fixture{
		bun:     bunDB,
		events:  &mockEvents{},
		loyalty: &mockLoyalty{},
		locks:   &memLock{owners: map[string]string{}},
	}
	f.events.On("PublishOrderCreated", mock.Anything).Return(nil).Maybe()
	f.events.On("PublishOrderStatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.events.On("PublishOrderPaid", mock.Anything).Return(nil).Maybe()

	f.svc = NewOrderService(store, NewTransactor(store), f.locks, f.events, f.loyalty, logger.NewNop())
	return f
}

func (f *fixture) insert(t *testing.T, model interface{}) {
	_, err := f.bun.NewInsert().Model(model).Exec(context.Background())
	require.NoError(t, err)
}

func (f *fixture) menuItem(t *testing.T, name string, price int64, available bool) *models.MenuItem {
	m := &models.MenuItem{ID: uuid.NewString(), Name: name, Price: price, Available: available}
	f.insert(t, m)
	return m
}

func (f *fixture) guest(t *testing.T) *models.Guest {
	g := &models.Guest{ID: uuid.NewString(), GuestName: "Minh", TableName: "T1", JoinedAt: time.Now().UTC()}
	f.insert(t, g)
	return g
}

func (f *fixture) user(t *testing.T) *models.User {
	u := &models.User{ID: uuid.NewString(), Name: "Hoa", Email: "hoa@example.com"}
	f.insert(t, u)
	return u
}

func (f *fixture) table(t *testing.T, status models.TableStatus) *models.Table {
	tb := &models.Table{ID: uuid.NewString(), TableName: "T1", Status: status, UpdatedAt: time.Now().UTC()}
	f.insert(t, tb)
	return tb
}

func (f *fixture) getTable(t *testing.T, id string) *models.Table {
	tb, err := db.New(f.bun).GetTableByID(context.Background(), id)
	require.NoError(t, err)
	return tb
}

func assertKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, kind), "unexpected error kind: %v", err)
	if msg != "" {
		assert.Equal(t, msg, apperr.PublicMessage(err))
	}
}

func TestCreate_DineInWithTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.guest(t)
	table := f.table(t, models.TableStatusAvailable)
	pho := f.menuItem(t, "Pho", 45000, true)
	tea := f.menuItem(t, "Iced tea", 10000, true)

	order, err := f.svc.Create(ctx, CreateOrderInput{
		GuestID: guest.ID,
		TableID: table.ID,
		Items: []ItemInput{
			{MenuItemID: pho.ID, Quantity: 2, Note: "no onion"},
			{MenuItemID: tea.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.OrderTypeDineIn, order.OrderType)
	assert.Equal(t, int64(100000), order.TotalPrice)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Pho", order.Items[0].Name)
	assert.Equal(t, int64(90000), order.Items[0].Subtotal)
	assert.Equal(t, "no onion", order.Items[0].Note)
	assert.Equal(t, models.Payer{Kind: models.PayerGuest, ID: guest.ID}, order.Payer())

	tb := f.getTable(t, table.ID)
	assert.Equal(t, models.TableStatusOccupied, tb.Status)
	assert.Equal(t, order.ID, tb.CurrentOrderID)

	ids, err := db.New(f.bun).GetGuestOrderIDs(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{order.ID}, ids)

	assert.Empty(t, f.locks.owners, "assignment lock must be released after create")
	f.events.AssertCalled(t, "PublishOrderCreated", order.ID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.guest(t)
	user := f.user(t)
	pho := f.menuItem(t, "Pho", 45000, true)
	soldOut := f.menuItem(t, "Bun cha", 50000, false)
	items := []ItemInput{{MenuItemID: pho.ID, Quantity: 1}}

	_, err := f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, UserID: user.ID, Items: items})
	assertKind(t, err, apperr.KindBadRequest, "Must provide either guest or user, not both or neither")

	_, err = f.svc.Create(ctx, CreateOrderInput{Items: items})
	assertKind(t, err, apperr.KindBadRequest, "")

	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: uuid.NewString(), Items: items})
	assertKind(t, err, apperr.KindNotFound, "Guest not found")

	_, err = f.svc.Create(ctx, CreateOrderInput{UserID: uuid.NewString(), Items: items})
	assertKind(t, err, apperr.KindNotFound, "User not found")

	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: "abc", Items: items})
	assertKind(t, err, apperr.KindBadRequest, "Invalid guest ID format")

	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID})
	assertKind(t, err, apperr.KindBadRequest, "Order must contain at least one item")

	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, Items: []ItemInput{{MenuItemID: pho.ID, Quantity: 0}}})
	assertKind(t, err, apperr.KindBadRequest, "")

	missing := uuid.NewString()
	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, Items: []ItemInput{{MenuItemID: missing, Quantity: 1}}})
	assertKind(t, err, apperr.KindNotFound, "Menu item with ID "+missing+" not found")

	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, Items: []ItemInput{{MenuItemID: soldOut.ID, Quantity: 1}}})
	assertKind(t, err, apperr.KindBadRequest, "Menu item 'Bun cha' is not available")

	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, OrderType: "TAKEAWAY", Items: items})
	assertKind(t, err, apperr.KindBadRequest, "Invalid order type")

	table := f.table(t, models.TableStatusAvailable)
	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, OrderType: models.OrderTypePickup, TableID: table.ID, Items: items})
	assertKind(t, err, apperr.KindBadRequest, "Only dine-in orders can be assigned a table")

	f.events.AssertNotCalled(t, "PublishOrderCreated", mock.Anything)
}

func TestCreate_UnavailableItemWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.guest(t)
	table := f.table(t, models.TableStatusAvailable)
	pho := f.menuItem(t, "Pho", 45000, true)
	soldOut := f.menuItem(t, "Bun cha", 50000, false)

	_, err := f.svc.Create(ctx, CreateOrderInput{
		GuestID: guest.ID,
		TableID: table.ID,
		Items:   []ItemInput{{MenuItemID: pho.ID, Quantity: 1}, {MenuItemID: soldOut.ID, Quantity: 1}},
	})
	assertKind(t, err, apperr.KindBadRequest, "Menu item 'Bun cha' is not available")

	page, err := f.svc.FindAll(ctx, ListOrdersInput{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Equal(t, models.TableStatusAvailable, f.getTable(t, table.ID).Status)
	assert.Empty(t, f.locks.owners)
}

func TestCreate_PricesAreSnapshotted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	pho := f.menuItem(t, "Pho", 45000, true)
	tea := f.menuItem(t, "Iced tea", 10000, true)

	order, err := f.svc.Create(ctx, CreateOrderInput{
		UserID: user.ID,
		Items:  []ItemInput{{MenuItemID: pho.ID, Quantity: 2}, {MenuItemID: tea.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.bun.NewUpdate().Model((*models.MenuItem)(nil)).
		Set("price = price * 2").
		Where("id IN (?)", bun.In([]string{pho.ID, tea.ID})).
		Exec(ctx)
	require.NoError(t, err)

	got, err := f.svc.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), got.TotalPrice)
	require.Len(t, got.Items, 2)
	prices := map[string]int64{}
	for _, it := range got.Items {
		prices[it.MenuItemID] = it.UnitPrice
	}
	assert.Equal(t, int64(45000), prices[pho.ID])
	assert.Equal(t, int64(10000), prices[tea.ID])
}

func TestCreate_TableUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.guest(t)
	pho := f.menuItem(t, "Pho", 45000, true)
	items := []ItemInput{{MenuItemID: pho.ID, Quantity: 1}}

	_, err := f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, TableID: uuid.NewString(), Items: items})
	assertKind(t, err, apperr.KindNotFound, "Table not found")

	occupied := f.table(t, models.TableStatusOccupied)
	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, TableID: occupied.ID, Items: items})
	assertKind(t, err, apperr.KindBadRequest, "Table T1 is not available")

	locked := f.table(t, models.TableStatusAvailable)
	f.locks.owners[locked.ID] = "someone-else"
	_, err = f.svc.Create(ctx, CreateOrderInput{GuestID: guest.ID, TableID: locked.ID, Items: items})
	assertKind(t, err, apperr.KindConflict, "")

	_, total, err := db.New(f.bun).ListOrders(ctx, db.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, total, "no order may be written when the table cannot be held")
}

func TestCreate_SameTableTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := f.guest(t)
	table := f.table(t, models.TableStatusAvailable)
	pho := f.menuItem(t, "Pho", 45000, true)
	in := CreateOrderInput{GuestID: guest.ID, TableID: table.ID, Items: []ItemInput{{MenuItemID: pho.ID, Quantity: 1}}}

	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, in)
	assertKind(t, err, apperr.KindBadRequest, "Table T1 is not available")
}

func TestCreate_EventFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.events.ExpectedCalls = nil
	f.events.On("PublishOrderCreated", mock.Anything).Return(errors.New("broker down"))
	user := f.user(t)
	pho := f.menuItem(t, "Pho", 45000, true)

	order, err := f.svc.Create(context.Background(), CreateOrderInput{
		UserID: user.ID,
		Items:  []ItemInput{{MenuItemID: pho.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, order.UserID)
	require.NotNil(t, order.User)
	assert.Equal(t, "Hoa", order.User.Name)
}

func TestCreateOnlineOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pho := f.menuItem(t, "Pho", 45000, true)
	items := []ItemInput{{MenuItemID: pho.ID, Quantity: 2}}

	order, err := f.svc.CreateOnlineOrder(ctx, CreateOnlineOrderInput{
		CustomerName:    " An ",
		CustomerPhone:   "0901234567",
		DeliveryAddress: "12 Le Loi",
		OrderType:       models.OrderTypeDelivery,
		Items:           items,
	})
	require.NoError(t, err)
	assert.Equal(t, "An", order.CustomerName)
	assert.Equal(t, int64(90000), order.TotalPrice)
	assert.True(t, order.Payer().IsZero())

	_, err = f.svc.CreateOnlineOrder(ctx, CreateOnlineOrderInput{
		CustomerName: "An", CustomerPhone: "0901234567", OrderType: models.OrderTypeDelivery, Items: items,
	})
	assertKind(t, err, apperr.KindBadRequest, "Delivery address is required for delivery orders")

	_, err = f.svc.CreateOnlineOrder(ctx, CreateOnlineOrderInput{
		CustomerName: "An", CustomerPhone: "0901234567", OrderType: models.OrderTypeDineIn, Items: items,
	})
	assertKind(t, err, apperr.KindBadRequest, "")

	_, err = f.svc.CreateOnlineOrder(ctx, CreateOnlineOrderInput{
		CustomerPhone: "0901234567", OrderType: models.OrderTypePickup, Items: items,
	})
	assertKind(t, err, apperr.KindBadRequest, "Customer name is required")
}

func (f *fixture) pendingOrder(t *testing.T, withUser bool) *models.Order {
	pho := f.menuItem(t, "Pho", 45000, true)
	in := CreateOrderInput{Items: []ItemInput{{MenuItemID: pho.ID, Quantity: 2}}}
	if withUser {
		in.UserID = f.user(t).ID
	} else {
		g := f.guest(t)
		in.GuestID = g.ID
		in.TableID = f.table(t, models.TableStatusAvailable).ID
	}
	order, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	return order
}

func TestUpdateStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.pendingOrder(t, false)

	updated, err := f.svc.UpdateStatus(ctx, order.ID, "preparing")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, updated.Status)
	f.events.AssertCalled(t, "PublishOrderStatusChanged", order.ID, models.OrderStatusPending, models.OrderStatusPreparing)

	_, err = f.svc.UpdateStatus(ctx, order.ID, "pending")
	assertKind(t, err, apperr.KindBadRequest, "Cannot change order status from preparing to pending")

	_, err = f.svc.UpdateStatus(ctx, order.ID, "cooking")
	assertKind(t, err, apperr.KindBadRequest, "Invalid order status")

	updated, err = f.svc.UpdateStatus(ctx, order.ID, "served")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusServed, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, order.ID, "cancelled")
	assertKind(t, err, apperr.KindForbidden, "Cannot update order with status: served")

	// served keeps the table until payment
	tb := f.getTable(t, order.TableID)
	assert.Equal(t, models.TableStatusOccupied, tb.Status)

	_, err = f.svc.UpdateStatus(ctx, uuid.NewString(), "served")
	assertKind(t, err, apperr.KindNotFound, "Order not found")
}

func TestCancel_ReleasesTable(t *testing.T) {
	f := newFixture(t)
	order := f.pendingOrder(t, false)

	cancelled, err := f.svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	tb := f.getTable(t, order.TableID)
	assert.Equal(t, models.TableStatusAvailable, tb.Status)
	assert.Empty(t, tb.CurrentOrderID)
}

func TestServed_CreditsLoyalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.pendingOrder(t, true)
	f.loyalty.On("AutoAddPointsFromOrder", order.UserID, order.ID, int64(90000)).Return(int64(90), nil).Once()

	_, err := f.svc.UpdateStatus(ctx, order.ID, "preparing")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, order.ID, "served")
	require.NoError(t, err)

	f.svc.Wait()
	f.loyalty.AssertExpectations(t)
}

func TestServed_StraightFromPendingCreditsLoyalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	rice := f.menuItem(t, "Com tam", 75000, true)
	order, err := f.svc.Create(ctx, CreateOrderInput{UserID: user.ID, Items: []ItemInput{{MenuItemID: rice.ID, Quantity: 2}}})
	require.NoError(t, err)
	require.Equal(t, int64(150000), order.TotalPrice)
	f.loyalty.On("AutoAddPointsFromOrder", user.ID, order.ID, int64(150000)).Return(int64(150), nil).Once()

	served, err := f.svc.UpdateStatus(ctx, order.ID, "served")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusServed, served.Status)

	f.svc.Wait()
	f.loyalty.AssertExpectations(t)
}

func TestUpdateStatus_TerminalStatusIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	served := f.pendingOrder(t, false)
	cancelled := f.pendingOrder(t, false)

	_, err := f.svc.UpdateStatus(ctx, served.ID, "served")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, cancelled.ID, "cancelled")
	require.NoError(t, err)

	for _, next := range []string{"pending", "preparing", "served", "cancelled"} {
		_, err = f.svc.UpdateStatus(ctx, served.ID, next)
		assertKind(t, err, apperr.KindForbidden, "Cannot update order with status: served")
		_, err = f.svc.UpdateStatus(ctx, cancelled.ID, next)
		assertKind(t, err, apperr.KindForbidden, "Cannot update order with status: cancelled")
	}
}

func TestServed_LoyaltyFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.pendingOrder(t, true)
	f.loyalty.On("AutoAddPointsFromOrder", order.UserID, order.ID, int64(90000)).Return(int64(0), errors.New("db gone"))

	_, err := f.svc.UpdateStatus(ctx, order.ID, "preparing")
	require.NoError(t, err)
	served, err := f.svc.UpdateStatus(ctx, order.ID, "served")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusServed, served.Status)

	f.svc.Wait()
}

func TestServed_GuestGetsNoLoyalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.pendingOrder(t, false)

	_, err := f.svc.UpdateStatus(ctx, order.ID, "preparing")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, order.ID, "served")
	require.NoError(t, err)

	f.svc.Wait()
	f.loyalty.AssertNotCalled(t, "AutoAddPointsFromOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestConcurrentTransitions_OneWins(t *testing.T) {
	f := newFixture(t)
	order := f.pendingOrder(t, false)

	var wg sync.WaitGroup
	results := make([]error, 2)
	targets := []string{"preparing", "cancelled"}
	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.UpdateStatus(context.Background(), order.ID, targets[i])
		}(i)
	}
	wg.Wait()

	got, err := f.svc.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Contains(t, []models.OrderStatus{models.OrderStatusPreparing, models.OrderStatusCancelled}, got.Status)

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	// Both may succeed only if they ran one after the other (pending→preparing→cancelled).
	if succeeded == 2 {
		assert.Equal(t, models.OrderStatusCancelled, got.Status)
	} else {
		assert.Equal(t, 1, succeeded)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.pendingOrder(t, false)

	note := "extra chili"
	ready := time.Now().Add(20 * time.Minute)
	preparing := models.OrderStatusPreparing
	updated, err := f.svc.Update(ctx, order.ID, UpdateOrderInput{
		SpecialInstructions: &note,
		EstimatedReadyTime:  &ready,
		Status:              &preparing,
	})
	require.NoError(t, err)
	assert.Equal(t, "extra chili", updated.SpecialInstructions)
	assert.Equal(t, models.OrderStatusPreparing, updated.Status)
	require.NotNil(t, updated.EstimatedReadyTime)

	pending := models.OrderStatusPending
	_, err = f.svc.Update(ctx, order.ID, UpdateOrderInput{Status: &pending})
	assertKind(t, err, apperr.KindBadRequest, "Cannot change order status from preparing to pending")

	_, err = f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, order.ID, UpdateOrderInput{SpecialInstructions: &note})
	assertKind(t, err, apperr.KindForbidden, "Cannot update order with status: cancelled")
}

func TestMarkAsPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.pendingOrder(t, false)

	paid, err := f.svc.MarkAsPaid(ctx, order.ID, true)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, models.TableStatusAvailable, f.getTable(t, order.TableID).Status)
	f.events.AssertCalled(t, "PublishOrderPaid", order.ID)

	unpaid, err := f.svc.MarkAsPaid(ctx, order.ID, false)
	require.NoError(t, err)
	assert.False(t, unpaid.IsPaid)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.pendingOrder(t, false)

	require.NoError(t, f.svc.Remove(ctx, order.ID))

	_, err := f.svc.FindByID(ctx, order.ID)
	assertKind(t, err, apperr.KindNotFound, "Order not found")

	assert.Equal(t, models.TableStatusAvailable, f.getTable(t, order.TableID).Status)

	ids, err := db.New(f.bun).GetGuestOrderIDs(ctx, order.GuestID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	err = f.svc.Remove(ctx, order.ID)
	assertKind(t, err, apperr.KindNotFound, "Order not found")
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guestOrder := f.pendingOrder(t, false)
	userOrder := f.pendingOrder(t, true)

	page, err := f.svc.FindAll(ctx, ListOrdersInput{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Orders, 1)

	_, err = f.svc.FindAll(ctx, ListOrdersInput{Status: "unknown"})
	assertKind(t, err, apperr.KindBadRequest, "Invalid order status")

	byGuest, err := f.svc.FindByGuest(ctx, guestOrder.GuestID)
	require.NoError(t, err)
	require.Len(t, byGuest, 1)
	assert.Equal(t, guestOrder.ID, byGuest[0].ID)

	byUser, err := f.svc.FindByUser(ctx, userOrder.UserID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, userOrder.ID, byUser[0].ID)

	_, err = f.svc.FindByID(ctx, "not-an-id")
	assertKind(t, err, apperr.KindBadRequest, "Invalid order ID format")

	now := time.Now()
	inPeriod, err := f.svc.FindOrdersInPeriod(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, inPeriod, 2)

	_, err = f.svc.FindOrdersInPeriod(ctx, now, now.Add(-time.Hour))
	assertKind(t, err, apperr.KindBadRequest, "Start date must be before end date")

	stats, err := f.svc.GetOrderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Zero(t, stats.TotalRevenue)
}
