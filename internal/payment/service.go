package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/config"
	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/metrics"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order/db"
	"ms-restaurant/internal/payment/gateway"
	"ms-restaurant/internal/payment/storage"
	"ms-restaurant/internal/utils"
)

const sideEffectTimeout = 10 * time.Second

type PaymentService struct {
	Payments storage.Store
	Orders   OrderStore
	Tx       Transactor
	Gateway  gateway.Gateway
	Events   EventPublisher
	urls     config.GatewayConfig
	log      *logger.Logger
}

// NewPaymentService wires the service. gw may be nil when no gateway is configured.
func NewPaymentService(payments storage.Store, orders OrderStore, tx Transactor, gw gateway.Gateway, events EventPublisher, cfg config.GatewayConfig, log *logger.Logger) *PaymentService {
	return &PaymentService{
		Payments: payments,
		Orders:   orders,
		Tx:       tx,
		Gateway:  gw,
		Events:   events,
		urls:     cfg,
		log:      log,
	}
}

type CreatePaymentInput struct {
	Method   string
	Amount   int64
	PaidAt   *time.Time
	GuestID  string
	UserID   string
	OrderIDs []string
}

type UpdatePaymentInput struct {
	Method     *string
	Amount     *int64
	PaidAt     *time.Time
	IsRefunded *bool
}

// Create records a manual payment covering one or more orders.
// Either every order is settled or nothing is written.
func (s *PaymentService) Create(ctx context.Context, in CreatePaymentInput) (*models.Payment, error) {
	payer, err := models.NewPayer(strings.TrimSpace(in.GuestID), strings.TrimSpace(in.UserID))
	if err != nil {
		return nil, apperr.BadRequest("Either guest or user must be provided, but not both")
	}
	if payer, err = s.resolvePayer(ctx, payer); err != nil {
		return nil, err
	}

	method := models.PaymentMethod(in.Method)
	if !method.Manual() {
		return nil, apperr.BadRequest("Payment method must be %s or %s", models.PaymentMethodCash, models.PaymentMethodQR)
	}
	if err := utils.MustPositive("Amount", in.Amount); err != nil {
		return nil, err
	}

	orderIDs, err := uniqueIDs(in.OrderIDs)
	if err != nil {
		return nil, err
	}

	orders, err := s.Orders.GetOrdersByIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) != len(orderIDs) {
		return nil, apperr.NotFound("One or more orders not found")
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:       utils.NewID(),
		Method:   method,
		Amount:   in.Amount,
		PaidAt:   now,
		OrderIDs: orderIDs,
	}
	if in.PaidAt != nil {
		payment.PaidAt = in.PaidAt.UTC()
	}
	payment.SetPayer(payer)

	err = s.Tx.InTx(ctx, func(ctx context.Context, payments storage.Store, txOrders OrderStore) error {
		if err := payments.SavePayment(ctx, payment); err != nil {
			return err
		}
		if _, err := txOrders.MarkOrdersPaid(ctx, orderIDs); err != nil {
			return fmt.Errorf("mark orders paid: %w", err)
		}
		for _, o := range orders {
			if o.TableID == "" {
				continue
			}
			if _, err := txOrders.ReleaseTable(ctx, o.TableID, o.ID); err != nil {
				return fmt.Errorf("release table %s: %w", o.TableID, err)
			}
		}
		if payer.Kind == models.PayerGuest {
			if err := txOrders.MarkGuestPaid(ctx, payer.ID, payment.ID); err != nil {
				return fmt.Errorf("mark guest paid: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("PAYMENT", fmt.Sprintf("Failed to record payment for %d orders: %v", len(orderIDs), err))
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(method)).Inc()
	s.log.LogPayment("CREATE", payment.ID, fmt.Sprintf("%s %d for orders %v", method, payment.Amount, orderIDs))

	s.publish(payment.ID, func(ctx context.Context) error {
		return s.Events.PublishPaymentCreated(ctx, payment)
	})
	for _, o := range orders {
		o.IsPaid = true
		paid := o
		s.publish(payment.ID, func(ctx context.Context) error {
			return s.Events.PublishOrderPaid(ctx, paid)
		})
	}
	return payment, nil
}

func (s *PaymentService) resolvePayer(ctx context.Context, payer models.Payer) (models.Payer, error) {
	id, err := utils.ParseID(payer.ID, string(payer.Kind))
	if err != nil {
		return models.Payer{}, err
	}
	payer.ID = id

	if payer.Kind == models.PayerGuest {
		_, err = s.Orders.GetGuestByID(ctx, id)
	} else {
		_, err = s.Orders.GetUserByID(ctx, id)
	}
	if errors.Is(err, db.ErrNotFound) {
		if payer.Kind == models.PayerGuest {
			return models.Payer{}, apperr.NotFound("Guest not found")
		}
		return models.Payer{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return models.Payer{}, err
	}
	return payer, nil
}

// uniqueIDs validates ids. A repeated id is rejected rather than settled twice.
func uniqueIDs(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, apperr.BadRequest("At least one order is required")
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		id, err := utils.ParseID(r, "order")
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			return nil, apperr.BadRequest("Duplicate order ID %s", id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (s *PaymentService) publish(paymentID string, send func(ctx context.Context) error) {
	if s.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish event for payment %s: %v", paymentID, err))
	}
}

func (s *PaymentService) FindAll(ctx context.Context, page, limit int) (*models.PaymentPage, error) {
	page, limit, offset := utils.Paginate(page, limit)
	payments, total, err := s.Payments.ListPayments(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &models.PaymentPage{
		Payments:   payments,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: utils.TotalPages(total, limit),
	}, nil
}

func (s *PaymentService) FindByID(ctx context.Context, rawID string) (*models.Payment, error) {
	id, err := utils.ParseID(rawID, "payment")
	if err != nil {
		return nil, err
	}
	payment, err := s.Payments.GetPayment(ctx, id)
	if errors.Is(err, storage.ErrPaymentNotFound) {
		return nil, apperr.NotFound("Payment not found")
	}
	return payment, err
}

func (s *PaymentService) Update(ctx context.Context, rawID string, in UpdatePaymentInput) (*models.Payment, error) {
	payment, err := s.FindByID(ctx, rawID)
	if err != nil {
		return nil, err
	}

	if in.Method != nil {
		method := models.PaymentMethod(*in.Method)
		if !method.Valid() {
			return nil, apperr.BadRequest("Invalid payment method")
		}
		payment.Method = method
	}
	if in.Amount != nil {
		if err := utils.MustPositive("Amount", *in.Amount); err != nil {
			return nil, err
		}
		payment.Amount = *in.Amount
	}
	if in.PaidAt != nil {
		payment.PaidAt = in.PaidAt.UTC()
	}
	if in.IsRefunded != nil {
		payment.IsRefunded = *in.IsRefunded
	}

	if err := s.Payments.UpdatePayment(ctx, payment); err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			return nil, apperr.NotFound("Payment not found")
		}
		return nil, err
	}
	s.log.LogPayment("UPDATE", payment.ID, fmt.Sprintf("method=%s amount=%d refunded=%t", payment.Method, payment.Amount, payment.IsRefunded))
	return payment, nil
}

func (s *PaymentService) Remove(ctx context.Context, rawID string) error {
	id, err := utils.ParseID(rawID, "payment")
	if err != nil {
		return err
	}
	if err := s.Payments.DeletePayment(ctx, id); err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			return apperr.NotFound("Payment not found")
		}
		return err
	}
	s.log.LogPayment("REMOVE", id, "payment deleted")
	return nil
}
