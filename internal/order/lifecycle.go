package order

import (
	"context"
	"fmt"
	"time"

	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/metrics"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/utils"
)

// UpdateOrderInput holds the editable fields. Nil means unchanged.
type UpdateOrderInput struct {
	SpecialInstructions *string
	DeliveryAddress     *string
	CustomerPhone       *string
	EstimatedReadyTime  *time.Time
	Status              *models.OrderStatus
}

func (s *OrderService) UpdateStatus(ctx context.Context, rawID string, rawStatus string) (*models.Order, error) {
	status := models.OrderStatus(rawStatus)
	if !status.Valid() {
		return nil, apperr.BadRequest("Invalid order status")
	}
	id, err := utils.ParseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(order.Status, status); err != nil {
		return nil, err
	}

	from := order.Status
	err = s.Tx.InTx(ctx, func(ctx context.Context, store Store) error {
		return s.applyTransition(ctx, store, order, status)
	})
	if err != nil {
		return nil, err
	}
	return s.afterTransition(ctx, order.ID, from)
}

func (s *OrderService) Cancel(ctx context.Context, rawID string) (*models.Order, error) {
	return s.UpdateStatus(ctx, rawID, string(models.OrderStatusCancelled))
}

// Update edits optional fields of a non-terminal order. A status in the input goes through
// the same transition rules as UpdateStatus.
func (s *OrderService) Update(ctx context.Context, rawID string, in UpdateOrderInput) (*models.Order, error) {
	id, err := utils.ParseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, apperr.Forbidden("Cannot update order with status: %s", order.Status)
	}

	from := order.Status
	changeStatus := in.Status != nil && *in.Status != order.Status
	if changeStatus {
		if !in.Status.Valid() {
			return nil, apperr.BadRequest("Invalid order status")
		}
		if err := checkTransition(order.Status, *in.Status); err != nil {
			return nil, err
		}
	}

	changed := false
	if in.SpecialInstructions != nil {
		order.SpecialInstructions = *in.SpecialInstructions
		changed = true
	}
	if in.DeliveryAddress != nil {
		order.DeliveryAddress = *in.DeliveryAddress
		changed = true
	}
	if in.CustomerPhone != nil {
		order.CustomerPhone = *in.CustomerPhone
		changed = true
	}
	if in.EstimatedReadyTime != nil {
		t := in.EstimatedReadyTime.UTC()
		order.EstimatedReadyTime = &t
		changed = true
	}

	err = s.Tx.InTx(ctx, func(ctx context.Context, store Store) error {
		if changed {
			if err := store.UpdateOrderDetails(ctx, order); err != nil {
				return fmt.Errorf("update order details: %w", err)
			}
		}
		if changeStatus {
			return s.applyTransition(ctx, store, order, *in.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changeStatus {
		return s.afterTransition(ctx, order.ID, from)
	}
	s.log.LogOrder("UPDATE", order.ID, "details updated")
	return s.loadOrder(ctx, order.ID)
}

// applyTransition writes a status change that checkTransition has already allowed.
// The update is conditional on the status read earlier so concurrent changes cannot both win.
func (s *OrderService) applyTransition(ctx context.Context, store Store, order *models.Order, to models.OrderStatus) error {
	ok, err := store.UpdateOrderStatus(ctx, order.ID, order.Status, to)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if !ok {
		return apperr.Conflict("Order %s was modified concurrently, please retry", order.ID)
	}
	if to == models.OrderStatusCancelled && order.TableID != "" {
		if _, err := store.ReleaseTable(ctx, order.TableID, order.ID); err != nil {
			return fmt.Errorf("release table: %w", err)
		}
	}
	return nil
}

// afterTransition reloads the order and runs the side effects of a committed status change.
func (s *OrderService) afterTransition(ctx context.Context, orderID string, from models.OrderStatus) (*models.Order, error) {
	updated, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitions.WithLabelValues(string(from), string(updated.Status)).Inc()
	s.log.LogOrder("STATUS", updated.ID, fmt.Sprintf("%s -> %s", from, updated.Status))

	s.publish("status changed", updated.ID, func(ctx context.Context) error {
		return s.Events.PublishOrderStatusChanged(ctx, updated, from)
	})

	if updated.Status == models.OrderStatusServed && updated.UserID != "" {
		s.creditLoyalty(updated.UserID, updated.ID, updated.TotalPrice)
	}
	return updated, nil
}

// creditLoyalty awards points in the background. Failures are logged, never returned.
func (s *OrderService) creditLoyalty(userID, orderID string, amount int64) {
	if s.Loyalty == nil {
		return
	}
	s.credits.Add(1)
	go func() {
		defer s.credits.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		points, err := s.Loyalty.AutoAddPointsFromOrder(ctx, userID, orderID, amount)
		if err != nil {
			metrics.LoyaltyCreditFailures.Inc()
			s.log.Error("LOYALTY", fmt.Sprintf("Failed to credit points for order %s: %v", orderID, err))
			return
		}
		if points > 0 {
			s.log.LogLoyalty("CREDIT", userID, fmt.Sprintf("%d points for order %s", points, orderID))
		}
	}()
}

// MarkAsPaid sets the paid flag directly. Marking a dine-in order paid frees its table.
func (s *OrderService) MarkAsPaid(ctx context.Context, rawID string, isPaid bool) (*models.Order, error) {
	id, err := utils.ParseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	wasPaid := order.IsPaid

	err = s.Tx.InTx(ctx, func(ctx context.Context, store Store) error {
		if err := store.SetOrderPaid(ctx, order.ID, isPaid); err != nil {
			return err
		}
		if isPaid && order.TableID != "" {
			if _, err := store.ReleaseTable(ctx, order.TableID, order.ID); err != nil {
				return fmt.Errorf("release table: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.loadOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.log.LogOrder("PAID", updated.ID, fmt.Sprintf("isPaid=%t", isPaid))
	if isPaid && !wasPaid {
		s.publish("order paid", updated.ID, func(ctx context.Context) error {
			return s.Events.PublishOrderPaid(ctx, updated)
		})
	}
	return updated, nil
}

// Remove soft-deletes the order after detaching it from its guest and table.
func (s *OrderService) Remove(ctx context.Context, rawID string) error {
	id, err := utils.ParseID(rawID, "order")
	if err != nil {
		return err
	}
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return err
	}

	err = s.Tx.InTx(ctx, func(ctx context.Context, store Store) error {
		if order.GuestID != "" {
			if err := store.DetachGuestOrder(ctx, order.GuestID, order.ID); err != nil {
				return fmt.Errorf("detach from guest: %w", err)
			}
		}
		if order.TableID != "" {
			if _, err := store.ReleaseTable(ctx, order.TableID, order.ID); err != nil {
				return fmt.Errorf("release table: %w", err)
			}
		}
		return store.SoftDeleteOrder(ctx, order.ID)
	})
	if err != nil {
		return err
	}
	s.log.LogOrder("REMOVE", order.ID, "soft deleted")
	return nil
}
