package order

import (
	"context"
	"time"

	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order/db"
)

// Store is the persistence the order engine needs. *db.DB satisfies it.
type Store interface {
	GetMenuItemsByIDs(ctx context.Context, ids []string) (map[string]*models.MenuItem, error)
	GetGuestByID(ctx context.Context, id string) (*models.Guest, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetTableByID(ctx context.Context, id string) (*models.Table, error)
	OccupyTable(ctx context.Context, tableID, orderID string) (bool, error)
	ReleaseTable(ctx context.Context, tableID, orderID string) (bool, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	AppendGuestOrder(ctx context.Context, guestID, orderID string) error
	DetachGuestOrder(ctx context.Context, guestID, orderID string) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, filter db.OrderFilter) ([]*models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error)
	UpdateOrderDetails(ctx context.Context, order *models.Order) error
	SetOrderPaid(ctx context.Context, id string, paid bool) error
	SoftDeleteOrder(ctx context.Context, id string) error
	GetOrderStats(ctx context.Context) (*models.OrderStats, error)
}

// Transactor runs fn with a Store bound to one database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

type dbTransactor struct {
	db *db.DB
}

func NewTransactor(d *db.DB) Transactor {
	return dbTransactor{db: d}
}

func (t dbTransactor) InTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	return t.db.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		return fn(ctx, tx)
	})
}

type TableLock interface {
	LockTable(ctx context.Context, tableID, orderID string) (bool, error)
	UnlockTable(ctx context.Context, tableID, orderID string) error
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error
	PublishOrderPaid(ctx context.Context, order *models.Order) error
}

type LoyaltyCrediter interface {
	AutoAddPointsFromOrder(ctx context.Context, userID, orderID string, amount int64) (int64, error)
}

const sideEffectTimeout = 10 * time.Second
