package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodQR   PaymentMethod = "qr"

	// PaymentMethodStripe is recorded for payments confirmed through the hosted checkout.
	PaymentMethodStripe PaymentMethod = "stripe"
)

// Manual reports whether staff may record the method directly.
func (m PaymentMethod) Manual() bool {
	return m == PaymentMethodCash || m == PaymentMethodQR
}

func (m PaymentMethod) Valid() bool {
	return m.Manual() || m == PaymentMethodStripe
}

type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID         string        `bun:"id,pk" json:"id"`
	Method     PaymentMethod `bun:"method,notnull" json:"method"`
	Amount     int64         `bun:"amount,notnull" json:"amount"`
	PaidAt     time.Time     `bun:"paid_at,notnull" json:"paidAt"`
	GuestID    string        `bun:"guest_id,nullzero" json:"guestId,omitempty"`
	UserID     string        `bun:"user_id,nullzero" json:"userId,omitempty"`
	IsRefunded bool          `bun:"is_refunded,notnull" json:"isRefunded"`
	CreatedAt  time.Time     `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt  time.Time     `bun:"updated_at,notnull" json:"updatedAt"`

	OrderIDs []string `bun:"-" json:"orders"`
}

func (p *Payment) Payer() Payer {
	switch {
	case p.GuestID != "":
		return Payer{Kind: PayerGuest, ID: p.GuestID}
	case p.UserID != "":
		return Payer{Kind: PayerUser, ID: p.UserID}
	default:
		return Payer{}
	}
}

func (p *Payment) SetPayer(payer Payer) {
	p.GuestID, p.UserID = "", ""
	switch payer.Kind {
	case PayerGuest:
		p.GuestID = payer.ID
	case PayerUser:
		p.UserID = payer.ID
	}
}

type PaymentOrder struct {
	bun.BaseModel `bun:"table:payment_orders,alias:po"`

	PaymentID string `bun:"payment_id,pk"`
	OrderID   string `bun:"order_id,pk"`
}

type PaymentPage struct {
	Payments   []*Payment `json:"payments"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}
