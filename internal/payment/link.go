package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/metrics"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order/db"
	"ms-restaurant/internal/payment/gateway"
	"ms-restaurant/internal/payment/storage"
	"ms-restaurant/internal/utils"
)

const (
	maxDescriptionLen = 25
	codeAttempts      = 5
)

type CreateLinkInput struct {
	OrderID     string
	Amount      int64
	Description string
	ReturnURL   string
	CancelURL   string
}

type PaymentLink struct {
	CheckoutURL string `json:"checkoutUrl"`
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	QRCode      string `json:"qrCode"`
}

type ConfirmInput struct {
	OrderID   string
	OrderCode int64
	Amount    float64
}

// CreatePaymentLink opens a hosted checkout for one order. The order keeps a single
// order code for its lifetime, so repeated calls reuse it.
func (s *PaymentService) CreatePaymentLink(ctx context.Context, in CreateLinkInput) (*PaymentLink, error) {
	if s.Gateway == nil {
		return nil, apperr.BadRequest("Payment gateway is not configured")
	}
	order, err := s.loadOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, apperr.BadRequest("Order is already paid")
	}
	if in.Amount < 0 {
		return nil, apperr.BadRequest("Amount must be greater than 0")
	}

	code, err := s.orderCode(ctx, order)
	if err != nil {
		return nil, err
	}

	amount := in.Amount
	if amount == 0 {
		amount = order.TotalPrice
	}
	description := in.Description
	if description == "" {
		description = "Order " + lastN(order.ID, 8)
	}

	items := make([]gateway.LinkItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = gateway.LinkItem{Name: it.Name, Quantity: it.Quantity, Price: it.UnitPrice}
	}

	link, err := s.Gateway.CreateLink(ctx, gateway.LinkRequest{
		OrderCode:   code,
		Amount:      amount,
		Description: truncate(description, maxDescriptionLen),
		ReturnURL:   firstNonEmpty(in.ReturnURL, s.urls.ReturnURL),
		CancelURL:   firstNonEmpty(in.CancelURL, s.urls.CancelURL),
		Items:       items,
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	qr, err := qrDataURL(link.CheckoutURL)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	s.log.LogPayment("LINK", order.ID, fmt.Sprintf("order code %d, amount %d", code, amount))

	return &PaymentLink{
		CheckoutURL: link.CheckoutURL,
		OrderCode:   code,
		Amount:      amount,
		QRCode:      qr,
	}, nil
}

// orderCode returns the order's code, reserving a fresh one if it has none.
func (s *PaymentService) orderCode(ctx context.Context, order *models.Order) (int64, error) {
	if order.PaymentOrderCode != 0 {
		return order.PaymentOrderCode, nil
	}

	var lastErr error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := utils.GenerateOrderCode()
		if err != nil {
			return 0, err
		}
		ok, err := s.Orders.ReserveOrderCode(ctx, order.ID, code)
		if err != nil {
			// most likely the code is taken by another order
			lastErr = err
			continue
		}
		if ok {
			return code, nil
		}
		// a concurrent request reserved first; use its code
		winner, err := s.Orders.GetOrderByID(ctx, order.ID)
		if err != nil {
			return 0, err
		}
		if winner.PaymentOrderCode != 0 {
			return winner.PaymentOrderCode, nil
		}
	}
	return 0, fmt.Errorf("reserve order code for %s: %w", order.ID, lastErr)
}

// ConfirmPayment checks the gateway for a link's outcome and settles the order when it paid.
func (s *PaymentService) ConfirmPayment(ctx context.Context, in ConfirmInput) (*models.Payment, error) {
	order, err := s.loadOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentOrderCode == 0 || order.PaymentOrderCode != in.OrderCode {
		return nil, apperr.BadRequest("Order code does not match")
	}
	if math.Round(in.Amount) != math.Round(float64(order.TotalPrice)) {
		return nil, apperr.BadRequest("Amount does not match order total")
	}

	if order.IsPaid {
		if existing, err := s.Payments.GetPaymentByOrderID(ctx, order.ID); err == nil {
			metrics.PaymentConfirmations.WithLabelValues("duplicate").Inc()
			return existing, nil
		}
	}

	if s.Gateway == nil {
		return nil, apperr.BadRequest("Payment gateway is not configured")
	}
	info, err := s.Gateway.GetInfo(ctx, in.OrderCode)
	if errors.Is(err, gateway.ErrSessionNotFound) {
		return nil, apperr.BadRequest("Payment link not found for order code %d", in.OrderCode)
	}
	if err != nil {
		return nil, gatewayError(err)
	}
	if !info.Succeeded() {
		metrics.PaymentConfirmations.WithLabelValues("failed").Inc()
		s.log.LogPayment("CONFIRM", order.ID, fmt.Sprintf("not successful, status %s", info.Status))
		return nil, apperr.BadRequest("Payment not successful, status: %s", info.Status)
	}

	method := models.PaymentMethod(info.Channel)
	if method == "" {
		method = models.PaymentMethodStripe
	}
	payment := &models.Payment{
		ID:       utils.NewID(),
		Method:   method,
		Amount:   order.TotalPrice,
		PaidAt:   time.Now().UTC(),
		OrderIDs: []string{order.ID},
	}
	if info.TransactionAt != nil {
		payment.PaidAt = info.TransactionAt.UTC()
	}
	switch {
	case order.UserID != "":
		payment.SetPayer(models.Payer{Kind: models.PayerUser, ID: order.UserID})
	case order.GuestID != "":
		payment.SetPayer(models.Payer{Kind: models.PayerGuest, ID: order.GuestID})
	}

	alreadyPaid := false
	err = s.Tx.InTx(ctx, func(ctx context.Context, payments storage.Store, orders OrderStore) error {
		claimed, err := orders.ClaimOrderPayment(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		if !claimed {
			alreadyPaid = true
			return nil
		}
		if order.TableID != "" {
			if _, err := orders.ReleaseTable(ctx, order.TableID, order.ID); err != nil {
				return fmt.Errorf("release table: %w", err)
			}
		}
		return payments.SavePayment(ctx, payment)
	})
	if err != nil {
		s.log.Error("PAYMENT", fmt.Sprintf("Failed to confirm payment for order %s: %v", order.ID, err))
		return nil, err
	}

	if alreadyPaid {
		// another confirmation or a manual payment settled it first
		metrics.PaymentConfirmations.WithLabelValues("duplicate").Inc()
		existing, err := s.Payments.GetPaymentByOrderID(ctx, order.ID)
		if errors.Is(err, storage.ErrPaymentNotFound) {
			return nil, apperr.Conflict("Order %s is already marked as paid", order.ID)
		}
		return existing, err
	}

	metrics.PaymentConfirmations.WithLabelValues("succeeded").Inc()
	metrics.PaymentsRecorded.WithLabelValues(string(payment.Method)).Inc()
	s.log.LogPayment("CONFIRM", payment.ID, fmt.Sprintf("order %s paid via %s", order.ID, payment.Method))

	order.IsPaid = true
	s.publish(payment.ID, func(ctx context.Context) error {
		return s.Events.PublishPaymentCreated(ctx, payment)
	})
	s.publish(payment.ID, func(ctx context.Context) error {
		return s.Events.PublishOrderPaid(ctx, order)
	})
	return payment, nil
}

func (s *PaymentService) loadOrder(ctx context.Context, rawID string) (*models.Order, error) {
	id, err := utils.ParseID(rawID, "order")
	if err != nil {
		return nil, err
	}
	order, err := s.Orders.GetOrderByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// gatewayError surfaces the provider's message to the caller as a bad request.
func gatewayError(err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return &apperr.Error{Kind: apperr.KindBadRequest, Message: gwErr.Message, Err: err}
	}
	return apperr.External("Payment gateway request failed", err)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
