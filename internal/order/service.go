package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/metrics"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order/db"
	"ms-restaurant/internal/utils"
)

type OrderService struct {
	Store   Store
	Tx      Transactor
	Locks   TableLock
	Events  EventPublisher
	Loyalty LoyaltyCrediter
	log     *logger.Logger

	credits sync.WaitGroup
}

func NewOrderService(store Store, tx Transactor, locks TableLock, events EventPublisher, loyalty LoyaltyCrediter, log *logger.Logger) *OrderService {
	return &OrderService{
		Store:   store,
		Tx:      tx,
		Locks:   locks,
		Events:  events,
		Loyalty: loyalty,
		log:     log,
	}
}

// Wait blocks until in-flight loyalty credits have finished.
func (s *OrderService) Wait() {
	s.credits.Wait()
}

type ItemInput struct {
	MenuItemID string
	Quantity   int
	Note       string
}

type CreateOrderInput struct {
	GuestID             string
	UserID              string
	TableID             string
	OrderType           models.OrderType
	Items               []ItemInput
	SpecialInstructions string
	DeliveryAddress     string
	CustomerName        string
	CustomerPhone       string
	EstimatedReadyTime  *time.Time
}

type CreateOnlineOrderInput struct {
	CustomerName        string
	CustomerPhone       string
	DeliveryAddress     string
	OrderType           models.OrderType
	GuestID             string
	UserID              string
	Items               []ItemInput
	SpecialInstructions string
	EstimatedReadyTime  *time.Time
}

type ListOrdersInput struct {
	Status  string
	GuestID string
	UserID  string
	Page    int
	Limit   int
}

// ---------------- CREATE ----------------

func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	// Step 1: exactly one payer, and it must exist
	payer, err := models.NewPayer(strings.TrimSpace(in.GuestID), strings.TrimSpace(in.UserID))
	if err != nil {
		return nil, apperr.BadRequest("Must provide either guest or user, not both or neither")
	}
	if payer, err = s.resolvePayer(ctx, payer); err != nil {
		return nil, err
	}

	// Step 2: order type and table compatibility
	orderType := in.OrderType
	if orderType == "" {
		orderType = models.OrderTypeDineIn
	}
	if !orderType.Valid() {
		return nil, apperr.BadRequest("Invalid order type")
	}
	tableRef := strings.TrimSpace(in.TableID)
	if tableRef != "" && orderType != models.OrderTypeDineIn {
		return nil, apperr.BadRequest("Only dine-in orders can be assigned a table")
	}

	// Step 3: price every line against the live menu
	items, total, err := s.priceItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:                  utils.NewID(),
		Status:              models.OrderStatusPending,
		OrderType:           orderType,
		TotalPrice:          total,
		Items:               items,
		SpecialInstructions: in.SpecialInstructions,
		DeliveryAddress:     in.DeliveryAddress,
		CustomerName:        in.CustomerName,
		CustomerPhone:       in.CustomerPhone,
		EstimatedReadyTime:  in.EstimatedReadyTime,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	order.SetPayer(payer)

	// Step 4: hold the table while the order is written
	var table *models.Table
	if tableRef != "" {
		var release func()
		table, release, err = s.holdTable(ctx, tableRef, order.ID)
		if err != nil {
			return nil, err
		}
		defer release()
		order.TableID = table.ID
	}

	// Step 5: order, guest link and table occupancy commit together
	err = s.Tx.InTx(ctx, func(ctx context.Context, store Store) error {
		if err := store.CreateOrder(ctx, order); err != nil {
			return err
		}
		if payer.Kind == models.PayerGuest {
			if err := store.AppendGuestOrder(ctx, payer.ID, order.ID); err != nil {
				return fmt.Errorf("link order to guest: %w", err)
			}
		}
		if table != nil {
			ok, err := store.OccupyTable(ctx, table.ID, order.ID)
			if err != nil {
				return fmt.Errorf("occupy table: %w", err)
			}
			if !ok {
				return apperr.BadRequest("Table %s is not available", table.TableName)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("ORDER", fmt.Sprintf("Failed to create order %s: %v", order.ID, err))
		return nil, err
	}

	s.log.LogOrder("CREATE", order.ID, fmt.Sprintf("%d items, total %d, payer %s:%s", len(items), total, payer.Kind, payer.ID))
	return s.afterCreate(ctx, order)
}

// CreateOnlineOrder accepts delivery and pickup orders where the payer is optional.
func (s *OrderService) CreateOnlineOrder(ctx context.Context, in CreateOnlineOrderInput) (*models.Order, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, apperr.BadRequest("Customer name is required")
	}
	if strings.TrimSpace(in.CustomerPhone) == "" {
		return nil, apperr.BadRequest("Customer phone is required")
	}
	if in.OrderType != models.OrderTypeDelivery && in.OrderType != models.OrderTypePickup {
		return nil, apperr.BadRequest("Online orders must be %s or %s", models.OrderTypeDelivery, models.OrderTypePickup)
	}
	if in.OrderType == models.OrderTypeDelivery && strings.TrimSpace(in.DeliveryAddress) == "" {
		return nil, apperr.BadRequest("Delivery address is required for delivery orders")
	}

	payer, err := models.OptionalPayer(strings.TrimSpace(in.GuestID), strings.TrimSpace(in.UserID))
	if err != nil {
		return nil, apperr.BadRequest("Cannot provide both guest and user")
	}
	if !payer.IsZero() {
		if payer, err = s.resolvePayer(ctx, payer); err != nil {
			return nil, err
		}
	}

	items, total, err := s.priceItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:                  utils.NewID(),
		Status:              models.OrderStatusPending,
		OrderType:           in.OrderType,
		TotalPrice:          total,
		Items:               items,
		SpecialInstructions: in.SpecialInstructions,
		DeliveryAddress:     in.DeliveryAddress,
		CustomerName:        strings.TrimSpace(in.CustomerName),
		CustomerPhone:       strings.TrimSpace(in.CustomerPhone),
		EstimatedReadyTime:  in.EstimatedReadyTime,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	order.SetPayer(payer)

	err = s.Tx.InTx(ctx, func(ctx context.Context, store Store) error {
		if err := store.CreateOrder(ctx, order); err != nil {
			return err
		}
		if payer.Kind == models.PayerGuest {
			return store.AppendGuestOrder(ctx, payer.ID, order.ID)
		}
		return nil
	})
	if err != nil {
		s.log.Error("ORDER", fmt.Sprintf("Failed to create online order %s: %v", order.ID, err))
		return nil, err
	}

	s.log.LogOrder("CREATE_ONLINE", order.ID, fmt.Sprintf("%s for %s, total %d", order.OrderType, order.CustomerName, total))
	return s.afterCreate(ctx, order)
}

func (s *OrderService) afterCreate(ctx context.Context, order *models.Order) (*models.Order, error) {
	metrics.OrdersCreated.WithLabelValues(string(order.OrderType)).Inc()

	created, err := s.Store.GetOrderByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("reload order %s: %w", order.ID, err)
	}

	s.publish("order created", created.ID, func(ctx context.Context) error {
		return s.Events.PublishOrderCreated(ctx, created)
	})
	return created, nil
}

// resolvePayer checks the payer id and that the guest or user exists.
func (s *OrderService) resolvePayer(ctx context.Context, payer models.Payer) (models.Payer, error) {
	id, err := utils.ParseID(payer.ID, string(payer.Kind))
	if err != nil {
		return models.Payer{}, err
	}
	payer.ID = id

	switch payer.Kind {
	case models.PayerGuest:
		_, err = s.Store.GetGuestByID(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return models.Payer{}, apperr.NotFound("Guest not found")
		}
	case models.PayerUser:
		_, err = s.Store.GetUserByID(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return models.Payer{}, apperr.NotFound("User not found")
		}
	}
	if err != nil {
		return models.Payer{}, err
	}
	return payer, nil
}

// priceItems snapshots name and price of each requested menu item, keeping request order.
func (s *OrderService) priceItems(ctx context.Context, inputs []ItemInput) ([]*models.OrderItem, int64, error) {
	if len(inputs) == 0 {
		return nil, 0, apperr.BadRequest("Order must contain at least one item")
	}

	ids := make([]string, len(inputs))
	for i, in := range inputs {
		id, err := utils.ParseID(in.MenuItemID, "menu item")
		if err != nil {
			return nil, 0, err
		}
		if in.Quantity < 1 {
			return nil, 0, apperr.BadRequest("Quantity for menu item %s must be at least 1", id)
		}
		ids[i] = id
	}

	menu, err := s.Store.GetMenuItemsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load menu items: %w", err)
	}

	var total int64
	items := make([]*models.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		menuItem, ok := menu[ids[i]]
		if !ok {
			return nil, 0, apperr.NotFound("Menu item with ID %s not found", ids[i])
		}
		if !menuItem.Available {
			return nil, 0, apperr.BadRequest("Menu item '%s' is not available", menuItem.Name)
		}
		subtotal := menuItem.Price * int64(in.Quantity)
		total += subtotal
		items = append(items, &models.OrderItem{
			ID:         utils.NewID(),
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   in.Quantity,
			Note:       in.Note,
			UnitPrice:  menuItem.Price,
			Subtotal:   subtotal,
		})
	}
	return items, total, nil
}

// holdTable validates a dine-in table and takes its assignment lock.
// The returned func releases the lock.
func (s *OrderService) holdTable(ctx context.Context, rawID, orderID string) (*models.Table, func(), error) {
	tableID, err := utils.ParseID(rawID, "table")
	if err != nil {
		return nil, nil, err
	}
	table, err := s.Store.GetTableByID(ctx, tableID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, apperr.NotFound("Table not found")
	}
	if err != nil {
		return nil, nil, err
	}
	if table.Status != models.TableStatusAvailable {
		return nil, nil, apperr.BadRequest("Table %s is not available", table.TableName)
	}

	release := func() {}
	if s.Locks != nil {
		ok, err := s.Locks.LockTable(ctx, table.ID, orderID)
		if err != nil {
			return nil, nil, fmt.Errorf("table lock: %w", err)
		}
		if !ok {
			return nil, nil, apperr.Conflict("Table %s is being assigned to another order", table.TableName)
		}
		release = func() {
			if err := s.Locks.UnlockTable(context.WithoutCancel(ctx), table.ID, orderID); err != nil {
				s.log.Warn("TABLE", fmt.Sprintf("Failed to unlock table %s: %v", table.ID, err))
			}
		}
	}
	s.log.LogTable("HOLD", table.ID, fmt.Sprintf("held for order %s", orderID))
	return table, release, nil
}

// publish sends an event without letting its failure reach the caller.
func (s *OrderService) publish(what, orderID string, send func(ctx context.Context) error) {
	if s.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s event for order %s: %v", what, orderID, err))
	}
}

// ---------------- QUERIES ----------------

func (s *OrderService) FindAll(ctx context.Context, in ListOrdersInput) (*models.OrderPage, error) {
	filter := db.OrderFilter{}
	if in.Status != "" {
		status := models.OrderStatus(in.Status)
		if !status.Valid() {
			return nil, apperr.BadRequest("Invalid order status")
		}
		filter.Status = status
	}
	if in.GuestID != "" {
		id, err := utils.ParseID(in.GuestID, "guest")
		if err != nil {
			return nil, err
		}
		filter.GuestID = id
	}
	if in.UserID != "" {
		id, err := utils.ParseID(in.UserID, "user")
		if err != nil {
			return nil, err
		}
		filter.UserID = id
	}

	page, limit, offset := utils.Paginate(in.Page, in.Limit)
	filter.Limit, filter.Offset = limit, offset

	orders, total, err := s.Store.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &models.OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: utils.TotalPages(total, limit),
	}, nil
}

func (s *OrderService) FindByID(ctx context.Context, rawID string) (*models.Order, error) {
	id, err := utils.ParseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, id)
}

func (s *OrderService) loadOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.Store.GetOrderByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) FindByGuest(ctx context.Context, rawGuestID string) ([]*models.Order, error) {
	guestID, err := utils.ParseID(rawGuestID, "guest")
	if err != nil {
		return nil, err
	}
	orders, _, err := s.Store.ListOrders(ctx, db.OrderFilter{GuestID: guestID})
	return orders, err
}

func (s *OrderService) FindByUser(ctx context.Context, rawUserID string) ([]*models.Order, error) {
	userID, err := utils.ParseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	orders, _, err := s.Store.ListOrders(ctx, db.OrderFilter{UserID: userID})
	return orders, err
}

// FindOrdersInPeriod returns orders created within [start, end].
func (s *OrderService) FindOrdersInPeriod(ctx context.Context, start, end time.Time) ([]*models.Order, error) {
	if start.IsZero() || end.IsZero() {
		return nil, apperr.BadRequest("Start and end dates are required")
	}
	if start.After(end) {
		return nil, apperr.BadRequest("Start date must be before end date")
	}
	orders, _, err := s.Store.ListOrders(ctx, db.OrderFilter{From: start.UTC(), To: end.UTC()})
	return orders, err
}

func (s *OrderService) GetOrderStats(ctx context.Context) (*models.OrderStats, error) {
	return s.Store.GetOrderStats(ctx)
}
