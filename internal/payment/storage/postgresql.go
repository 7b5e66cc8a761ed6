package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/models"

	"github.com/uptrace/bun"
)

// PostgreSQLStore keeps payments and their order links. It runs on any bun dialect;
// tests use sqlite.
type PostgreSQLStore struct {
	db  bun.IDB
	log *logger.Logger
}

func NewPostgreSQLStore(db bun.IDB, log *logger.Logger) *PostgreSQLStore {
	return &PostgreSQLStore{db: db, log: log}
}

// SavePayment inserts the payment row and one payment_orders row per order id.
func (s *PostgreSQLStore) SavePayment(ctx context.Context, payment *models.Payment) error {
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	if _, err := s.db.NewInsert().Model(payment).Exec(ctx); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	if len(payment.OrderIDs) == 0 {
		return nil
	}

	links := make([]*models.PaymentOrder, len(payment.OrderIDs))
	for i, orderID := range payment.OrderIDs {
		links[i] = &models.PaymentOrder{PaymentID: payment.ID, OrderID: orderID}
	}
	if _, err := s.db.NewInsert().Model(&links).Exec(ctx); err != nil {
		return fmt.Errorf("insert payment orders: %w", err)
	}
	s.log.LogDatabase("INSERT", "payments", fmt.Sprintf("payment %s for %d orders", payment.ID, len(links)))
	return nil
}

func (s *PostgreSQLStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.NewSelect().Model(&payment).Where("p.id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadOrderIDs(ctx, []*models.Payment{&payment}); err != nil {
		return nil, err
	}
	return &payment, nil
}

// loadOrderIDs fills OrderIDs for every payment with a single query.
func (s *PostgreSQLStore) loadOrderIDs(ctx context.Context, payments []*models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	byID := make(map[string]*models.Payment, len(payments))
	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		p.OrderIDs = []string{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	var links []*models.PaymentOrder
	err := s.db.NewSelect().
		Model(&links).
		Where("po.payment_id IN (?)", bun.In(ids)).
		Order("po.order_id ASC").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("load payment orders: %w", err)
	}
	for _, l := range links {
		if p, ok := byID[l.PaymentID]; ok {
			p.OrderIDs = append(p.OrderIDs, l.OrderID)
		}
	}
	return nil
}

func (s *PostgreSQLStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model(payment).
		Column("method", "amount", "paid_at", "is_refunded", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// DeletePayment removes the payment and its order links. Orders keep their paid flag.
func (s *PostgreSQLStore) DeletePayment(ctx context.Context, id string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.PaymentOrder)(nil)).Where("payment_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete payment orders: %w", err)
		}
		res, err := tx.NewDelete().Model((*models.Payment)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrPaymentNotFound
		}
		return nil
	})
}

// ListPayments → newest first plus the unpaged total
func (s *PostgreSQLStore) ListPayments(ctx context.Context, limit, offset int) ([]*models.Payment, int, error) {
	payments := []*models.Payment{}
	total, err := s.db.NewSelect().
		Model(&payments).
		Order("p.created_at DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	if err := s.loadOrderIDs(ctx, payments); err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// GetPaymentByOrderID returns the most recent payment covering the order.
func (s *PostgreSQLStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.NewSelect().
		Model(&payment).
		Join("JOIN payment_orders AS po ON po.payment_id = p.id").
		Where("po.order_id = ?", orderID).
		Order("p.created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadOrderIDs(ctx, []*models.Payment{&payment}); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PostgreSQLStore) HealthCheck(ctx context.Context) error {
	var one int
	return s.db.NewSelect().ColumnExpr("1").Scan(ctx, &one)
}
