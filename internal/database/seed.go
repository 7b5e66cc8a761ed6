package database

import (
	"context"
	"fmt"
	"time"

	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SeedDemoData inserts a small menu, a few tables and a demo customer.
// Rows that already exist are left alone, so it can run on every start.
func SeedDemoData(ctx context.Context, db bun.IDB, log *logger.Logger) error {
	now := time.Now().UTC()

	menu := []*models.MenuItem{
		{Name: "Pho bo", Price: 65000, Category: "noodles"},
		{Name: "Bun cha", Price: 55000, Category: "noodles"},
		{Name: "Com tam", Price: 50000, Category: "rice"},
		{Name: "Goi cuon", Price: 35000, Category: "starters"},
		{Name: "Ca phe sua da", Price: 25000, Category: "drinks"},
	}
	for _, m := range menu {
		m.ID = seedID("menu:" + m.Name)
		m.Available = true
	}

	tables := make([]*models.Table, 0, 6)
	for i := 1; i <= 6; i++ {
		location := "indoor"
		if i > 4 {
			location = "terrace"
		}
		name := fmt.Sprintf("T%d", i)
		tables = append(tables, &models.Table{
			ID:        seedID("table:" + name),
			TableName: name,
			Location:  location,
			Status:    models.TableStatusAvailable,
			UpdatedAt: now,
		})
	}

	user := &models.User{ID: seedID("user:demo"), Name: "Demo Customer", Email: "demo@restaurant.local"}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&menu).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("seed menu items: %w", err)
		}
		if _, err := tx.NewInsert().Model(&tables).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("seed tables: %w", err)
		}
		if _, err := tx.NewInsert().Model(user).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		log.Info("SEED", fmt.Sprintf("Demo data ready: %d menu items, %d tables, user %s", len(menu), len(tables), user.ID))
		return nil
	})
}

// seedID keeps demo ids stable between runs.
func seedID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("ms-restaurant/"+name)).String()
}
