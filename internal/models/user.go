package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the read side of a registered customer account.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID    string `bun:"id,pk" json:"id"`
	Name  string `bun:"name,notnull" json:"name"`
	Email string `bun:"email,nullzero" json:"email,omitempty"`
}

type Guest struct {
	bun.BaseModel `bun:"table:guests,alias:g"`

	ID         string    `bun:"id,pk" json:"id"`
	TableName  string    `bun:"table_name,nullzero" json:"tableName,omitempty"`
	GuestName  string    `bun:"guest_name,notnull" json:"guestName"`
	GuestPhone string    `bun:"guest_phone,nullzero" json:"guestPhone,omitempty"`
	IsPaid     bool      `bun:"is_paid,notnull" json:"isPaid"`
	PaymentID  string    `bun:"payment_id,nullzero" json:"paymentId,omitempty"`
	JoinedAt   time.Time `bun:"joined_at,notnull" json:"joinedAt"`
}

// GuestOrder links a guest session to the orders it placed.
type GuestOrder struct {
	bun.BaseModel `bun:"table:guest_orders,alias:gor"`

	GuestID   string    `bun:"guest_id,pk"`
	OrderID   string    `bun:"order_id,pk"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
