package kafka

import (
	"time"

	"ms-restaurant/internal/models"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderPaid          = "order.paid"
	EventPaymentCreated     = "payment.created"
)

type OrderEvent struct {
	Type           string             `json:"type"`
	OrderID        string             `json:"orderId"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previousStatus,omitempty"`
	OrderType      models.OrderType   `json:"orderType"`
	TotalPrice     int64              `json:"totalPrice"`
	IsPaid         bool               `json:"isPaid"`
	GuestID        string             `json:"guestId,omitempty"`
	UserID         string             `json:"userId,omitempty"`
	TableID        string             `json:"tableId,omitempty"`
	OccurredAt     time.Time          `json:"occurredAt"`
}

func newOrderEvent(eventType string, order *models.Order, from models.OrderStatus) OrderEvent {
	return OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		Status:         order.Status,
		PreviousStatus: from,
		OrderType:      order.OrderType,
		TotalPrice:     order.TotalPrice,
		IsPaid:         order.IsPaid,
		GuestID:        order.GuestID,
		UserID:         order.UserID,
		TableID:        order.TableID,
		OccurredAt:     time.Now().UTC(),
	}
}

type PaymentEvent struct {
	Type       string               `json:"type"`
	PaymentID  string               `json:"paymentId"`
	OrderIDs   []string             `json:"orderIds"`
	Amount     int64                `json:"amount"`
	Method     models.PaymentMethod `json:"method"`
	GuestID    string               `json:"guestId,omitempty"`
	UserID     string               `json:"userId,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}

func newPaymentEvent(p *models.Payment) PaymentEvent {
	return PaymentEvent{
		Type:       EventPaymentCreated,
		PaymentID:  p.ID,
		OrderIDs:   p.OrderIDs,
		Amount:     p.Amount,
		Method:     p.Method,
		GuestID:    p.GuestID,
		UserID:     p.UserID,
		OccurredAt: time.Now().UTC(),
	}
}
