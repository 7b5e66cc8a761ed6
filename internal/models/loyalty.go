package models

import (
	"time"

	"github.com/uptrace/bun"
)

type LoyaltyAccount struct {
	bun.BaseModel `bun:"table:loyalty_accounts,alias:la"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull,unique" json:"userId"`
	Points    int64     `bun:"points,notnull" json:"points"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

type LoyaltyTxType string

const (
	LoyaltyEarn   LoyaltyTxType = "earn"
	LoyaltyAdd    LoyaltyTxType = "add"
	LoyaltyRedeem LoyaltyTxType = "redeem"
)

// LoyaltyTransaction is one ledger line. OrderID is unique so an order earns at most once.
type LoyaltyTransaction struct {
	bun.BaseModel `bun:"table:loyalty_transactions,alias:lt"`

	ID        string        `bun:"id,pk" json:"id"`
	UserID    string        `bun:"user_id,notnull" json:"userId"`
	OrderID   string        `bun:"order_id,nullzero,unique" json:"orderId,omitempty"`
	Type      LoyaltyTxType `bun:"type,notnull" json:"type"`
	Points    int64         `bun:"points,notnull" json:"points"`
	CreatedAt time.Time     `bun:"created_at,notnull" json:"createdAt"`
}
