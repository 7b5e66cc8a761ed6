package database

import (
	"context"
	"fmt"

	"ms-restaurant/internal/models"

	"github.com/uptrace/bun"
)

// Models lists every table in creation order.
var Models = []interface{}{
	(*models.User)(nil),
	(*models.Guest)(nil),
	(*models.MenuItem)(nil),
	(*models.Table)(nil),
	(*models.Order)(nil),
	(*models.OrderItem)(nil),
	(*models.GuestOrder)(nil),
	(*models.Payment)(nil),
	(*models.PaymentOrder)(nil),
	(*models.LoyaltyAccount)(nil),
	(*models.LoyaltyTransaction)(nil),
}

// CreateSchema builds the tables straight from the bun models.
// Production schema comes from the SQL migrations; this serves tests and local sqlite runs.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range Models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}
