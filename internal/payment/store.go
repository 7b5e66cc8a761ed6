package payment

import (
	"context"

	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order/db"
	"ms-restaurant/internal/payment/storage"

	"github.com/uptrace/bun"
)

// OrderStore is the slice of order persistence that payments touch. *db.DB satisfies it.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByIDs(ctx context.Context, ids []string) ([]*models.Order, error)
	GetGuestByID(ctx context.Context, id string) (*models.Guest, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	MarkOrdersPaid(ctx context.Context, ids []string) (int64, error)
	ClaimOrderPayment(ctx context.Context, id string) (bool, error)
	ReserveOrderCode(ctx context.Context, id string, code int64) (bool, error)
	ReleaseTable(ctx context.Context, tableID, orderID string) (bool, error)
	MarkGuestPaid(ctx context.Context, guestID, paymentID string) error
}

// Transactor runs fn with payment and order stores bound to the same transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, payments storage.Store, orders OrderStore) error) error
}

type bunTransactor struct {
	db  bun.IDB
	log *logger.Logger
}

func NewTransactor(idb bun.IDB, log *logger.Logger) Transactor {
	return bunTransactor{db: idb, log: log}
}

func (t bunTransactor) InTx(ctx context.Context, fn func(ctx context.Context, payments storage.Store, orders OrderStore) error) error {
	return t.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, storage.NewPostgreSQLStore(tx, t.log), db.New(tx))
	})
}

type EventPublisher interface {
	PublishPaymentCreated(ctx context.Context, payment *models.Payment) error
	PublishOrderPaid(ctx context.Context, order *models.Order) error
}
