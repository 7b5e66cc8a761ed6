package storage

import (
	"context"
	"errors"

	"ms-restaurant/internal/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

type Store interface {
	// Payment operations
	SavePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error
	DeletePayment(ctx context.Context, id string) error
	ListPayments(ctx context.Context, limit, offset int) ([]*models.Payment, int, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)

	// Health and maintenance
	HealthCheck(ctx context.Context) error
}
