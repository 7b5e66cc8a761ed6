package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusReserved  TableStatus = "reserved"
)

type Table struct {
	bun.BaseModel `bun:"table:tables,alias:t"`

	ID             string      `bun:"id,pk" json:"id"`
	TableName      string      `bun:"table_name,notnull" json:"tableName"`
	Location       string      `bun:"location,nullzero" json:"location,omitempty"`
	Status         TableStatus `bun:"status,notnull" json:"status"`
	CurrentOrderID string      `bun:"current_order_id,nullzero" json:"currentOrderId,omitempty"`
	UpdatedAt      time.Time   `bun:"updated_at,notnull" json:"updatedAt"`
}

type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`

	ID        string `bun:"id,pk" json:"id"`
	Name      string `bun:"name,notnull" json:"name"`
	Price     int64  `bun:"price,notnull" json:"price"`
	Available bool   `bun:"available,notnull" json:"available"`
	Category  string `bun:"category,nullzero" json:"category,omitempty"`
}
