package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-restaurant/internal/models"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("record not found")

type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

// RunInTx runs fn against a DB bound to a single transaction.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *DB) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx})
	})
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// ---------------- MENU ----------------

// GetMenuItemsByIDs → items keyed by id, missing ids are simply absent
func (d *DB) GetMenuItemsByIDs(ctx context.Context, ids []string) (map[string]*models.MenuItem, error) {
	out := make(map[string]*models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []*models.MenuItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("mi.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

// ---------------- GUESTS & USERS ----------------

func (d *DB) GetGuestByID(ctx context.Context, id string) (*models.Guest, error) {
	var guest models.Guest
	err := d.Bun.NewSelect().Model(&guest).Where("g.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "guest "+id)
	}
	return &guest, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().Model(&user).Where("u.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "user "+id)
	}
	return &user, nil
}

// AppendGuestOrder adds orderID to the guest's order list.
func (d *DB) AppendGuestOrder(ctx context.Context, guestID, orderID string) error {
	link := &models.GuestOrder{GuestID: guestID, OrderID: orderID, CreatedAt: time.Now().UTC()}
	_, err := d.Bun.NewInsert().Model(link).Exec(ctx)
	return err
}

func (d *DB) DetachGuestOrder(ctx context.Context, guestID, orderID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.GuestOrder)(nil)).
		Where("guest_id = ?", guestID).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}

func (d *DB) GetGuestOrderIDs(ctx context.Context, guestID string) ([]string, error) {
	var ids []string
	err := d.Bun.NewSelect().
		Model((*models.GuestOrder)(nil)).
		Column("order_id").
		Where("guest_id = ?", guestID).
		Order("created_at ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// MarkGuestPaid records that the guest's session has been settled by paymentID.
func (d *DB) MarkGuestPaid(ctx context.Context, guestID, paymentID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Guest)(nil)).
		Set("is_paid = ?", true).
		Set("payment_id = ?", paymentID).
		Where("id = ?", guestID).
		Exec(ctx)
	return err
}

// ---------------- TABLES ----------------

func (d *DB) GetTableByID(ctx context.Context, id string) (*models.Table, error) {
	var table models.Table
	err := d.Bun.NewSelect().Model(&table).Where("t.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "table "+id)
	}
	return &table, nil
}

// OccupyTable assigns orderID to the table only if it is still available.
// It reports false when another writer got there first.
func (d *DB) OccupyTable(ctx context.Context, tableID, orderID string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Table)(nil)).
		Set("status = ?", models.TableStatusOccupied).
		Set("current_order_id = ?", orderID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", tableID).
		Where("status = ?", models.TableStatusAvailable).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseTable frees the table only while it still points at orderID.
func (d *DB) ReleaseTable(ctx context.Context, tableID, orderID string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Table)(nil)).
		Set("status = ?", models.TableStatusAvailable).
		Set("current_order_id = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", tableID).
		Where("current_order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ---------------- ORDERS ----------------

// CreateOrder → insert the order row and its line items
func (d *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	if _, err := d.Bun.NewInsert().Model(order).Exec(ctx); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i, item := range order.Items {
		item.OrderID = order.ID
		item.Position = i
	}
	if _, err := d.Bun.NewInsert().Model(&order.Items).Exec(ctx); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func (d *DB) withRelations(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("oi.position ASC")
		}).
		Relation("Guest").
		Relation("User")
}

// GetOrderByID → one non-deleted order with items and payer
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.withRelations(d.Bun.NewSelect().Model(&order)).
		Where("o.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "order "+id)
	}
	order.DropEmptyRelations()
	return &order, nil
}

type OrderFilter struct {
	Status  models.OrderStatus
	GuestID string
	UserID  string
	From    time.Time
	To      time.Time
	Offset  int
	Limit   int
}

func (f OrderFilter) apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f.Status != "" {
		q = q.Where("o.status = ?", f.Status)
	}
	if f.GuestID != "" {
		q = q.Where("o.guest_id = ?", f.GuestID)
	}
	if f.UserID != "" {
		q = q.Where("o.user_id = ?", f.UserID)
	}
	if !f.From.IsZero() {
		q = q.Where("o.created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("o.created_at <= ?", f.To)
	}
	return q
}

// ListOrders → newest first, with the total number of matches ignoring paging
func (d *DB) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, int, error) {
	total, err := filter.apply(d.Bun.NewSelect().Model((*models.Order)(nil))).Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	orders := []*models.Order{}
	q := filter.apply(d.withRelations(d.Bun.NewSelect().Model(&orders))).
		Order("o.created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	for _, o := range orders {
		o.DropEmptyRelations()
	}
	return orders, total, nil
}

// GetOrdersByIDs → plain order rows, deleted and unknown ids are skipped
func (d *DB) GetOrdersByIDs(ctx context.Context, ids []string) ([]*models.Order, error) {
	orders := []*models.Order{}
	if len(ids) == 0 {
		return orders, nil
	}
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("o.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus moves the order from one status to another.
// It reports false if the order was no longer in the expected status.
func (d *DB) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateOrderDetails → persist the editable free-form fields
func (d *DB) UpdateOrderDetails(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model(order).
		Column("special_instructions", "delivery_address", "customer_phone", "estimated_ready_time", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) SetOrderPaid(ctx context.Context, id string, paid bool) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("is_paid = ?", paid).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// MarkOrdersPaid flags every order in ids as paid and returns how many rows changed.
func (d *DB) MarkOrdersPaid(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("is_paid = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClaimOrderPayment marks one order paid unless it already is.
// Concurrent confirmations of the same order see exactly one true.
func (d *DB) ClaimOrderPayment(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("is_paid = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("is_paid = ?", false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReserveOrderCode stores code on the order unless one is already set.
func (d *DB) ReserveOrderCode(ctx context.Context, id string, code int64) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_order_code = ?", code).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("payment_order_code IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SoftDeleteOrder flags the order and stamps deleted_at, hiding it from every query.
func (d *DB) SoftDeleteOrder(ctx context.Context, id string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("is_deleted = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	_, err = d.Bun.NewDelete().
		Model((*models.Order)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// GetOrderStats → counts per status plus revenue of served orders
func (d *DB) GetOrderStats(ctx context.Context) (*models.OrderStats, error) {
	var stats models.OrderStats
	err := d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("CAST(COALESCE(SUM(CASE WHEN o.status = ? THEN 1 ELSE 0 END), 0) AS BIGINT) AS pending", models.OrderStatusPending).
		ColumnExpr("CAST(COALESCE(SUM(CASE WHEN o.status = ? THEN 1 ELSE 0 END), 0) AS BIGINT) AS preparing", models.OrderStatusPreparing).
		ColumnExpr("CAST(COALESCE(SUM(CASE WHEN o.status = ? THEN 1 ELSE 0 END), 0) AS BIGINT) AS served", models.OrderStatusServed).
		ColumnExpr("CAST(COALESCE(SUM(CASE WHEN o.status = ? THEN 1 ELSE 0 END), 0) AS BIGINT) AS cancelled", models.OrderStatusCancelled).
		ColumnExpr("CAST(COALESCE(SUM(CASE WHEN o.status = ? THEN o.total_price ELSE 0 END), 0) AS BIGINT) AS total_revenue", models.OrderStatusServed).
		Scan(ctx, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
