package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusServed,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal statuses accept no further changes.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusServed || s == OrderStatusCancelled
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "DINE_IN"
	OrderTypeDelivery OrderType = "DELIVERY"
	OrderTypePickup   OrderType = "PICKUP"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDineIn || t == OrderTypeDelivery || t == OrderTypePickup
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID                  string      `bun:"id,pk" json:"id"`
	GuestID             string      `bun:"guest_id,nullzero" json:"guestId,omitempty"`
	UserID              string      `bun:"user_id,nullzero" json:"userId,omitempty"`
	TableID             string      `bun:"table_id,nullzero" json:"tableId,omitempty"`
	Status              OrderStatus `bun:"status,notnull" json:"status"`
	OrderType           OrderType   `bun:"order_type,notnull" json:"orderType"`
	TotalPrice          int64       `bun:"total_price,notnull" json:"totalPrice"`
	IsPaid              bool        `bun:"is_paid,notnull" json:"isPaid"`
	SpecialInstructions string      `bun:"special_instructions,nullzero" json:"specialInstructions,omitempty"`
	DeliveryAddress     string      `bun:"delivery_address,nullzero" json:"deliveryAddress,omitempty"`
	CustomerName        string      `bun:"customer_name,nullzero" json:"customerName,omitempty"`
	CustomerPhone       string      `bun:"customer_phone,nullzero" json:"customerPhone,omitempty"`
	EstimatedReadyTime  *time.Time  `bun:"estimated_ready_time,nullzero" json:"estimatedReadyTime,omitempty"`
	PaymentOrderCode    int64       `bun:"payment_order_code,nullzero,unique" json:"paymentOrderCode,omitempty"`
	IsDeleted           bool        `bun:"is_deleted,notnull" json:"-"`
	CreatedAt           time.Time   `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt           time.Time   `bun:"updated_at,notnull" json:"updatedAt"`
	DeletedAt           time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"-"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items"`
	Guest *Guest       `bun:"rel:belongs-to,join:guest_id=id" json:"guest,omitempty"`
	User  *User        `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

// Payer returns the order's payer; online orders may have none.
func (o *Order) Payer() Payer {
	switch {
	case o.GuestID != "":
		return Payer{Kind: PayerGuest, ID: o.GuestID}
	case o.UserID != "":
		return Payer{Kind: PayerUser, ID: o.UserID}
	default:
		return Payer{}
	}
}

func (o *Order) SetPayer(p Payer) {
	o.GuestID, o.UserID = "", ""
	switch p.Kind {
	case PayerGuest:
		o.GuestID = p.ID
	case PayerUser:
		o.UserID = p.ID
	}
}

// DropEmptyRelations clears joined relations whose foreign key is null.
func (o *Order) DropEmptyRelations() {
	if o.GuestID == "" || (o.Guest != nil && o.Guest.ID == "") {
		o.Guest = nil
	}
	if o.UserID == "" || (o.User != nil && o.User.ID == "") {
		o.User = nil
	}
	if o.Items == nil {
		o.Items = []*OrderItem{}
	}
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID         string `bun:"id,pk" json:"id"`
	OrderID    string `bun:"order_id,notnull" json:"-"`
	Position   int    `bun:"position,notnull" json:"-"`
	MenuItemID string `bun:"menu_item_id,notnull" json:"menuItemId"`
	Name       string `bun:"name,notnull" json:"name"`
	Quantity   int    `bun:"quantity,notnull" json:"quantity"`
	Note       string `bun:"note,nullzero" json:"note,omitempty"`
	UnitPrice  int64  `bun:"unit_price,notnull" json:"unitPrice"`
	Subtotal   int64  `bun:"subtotal,notnull" json:"subtotal"`
}

// OrderStats aggregates non-deleted orders. Revenue counts served orders only.
type OrderStats struct {
	Total        int64 `bun:"total" json:"total"`
	Pending      int64 `bun:"pending" json:"pending"`
	Preparing    int64 `bun:"preparing" json:"preparing"`
	Served       int64 `bun:"served" json:"served"`
	Cancelled    int64 `bun:"cancelled" json:"cancelled"`
	TotalRevenue int64 `bun:"total_revenue" json:"totalRevenue"`
}

type OrderPage struct {
	Orders     []*Order `json:"orders"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"totalPages"`
}
