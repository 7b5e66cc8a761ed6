package order

import (
	"testing"

	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		kind     apperr.Kind
	}{
		{models.OrderStatusPending, models.OrderStatusPreparing, ""},
		{models.OrderStatusPending, models.OrderStatusCancelled, ""},
		{models.OrderStatusPreparing, models.OrderStatusServed, ""},
		{models.OrderStatusPreparing, models.OrderStatusCancelled, ""},
		{models.OrderStatusPending, models.OrderStatusServed, ""},
		{models.OrderStatusPending, models.OrderStatusPending, apperr.KindBadRequest},
		{models.OrderStatusPreparing, models.OrderStatusPending, apperr.KindBadRequest},
		{models.OrderStatusServed, models.OrderStatusCancelled, apperr.KindForbidden},
		{models.OrderStatusCancelled, models.OrderStatusPending, apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := checkTransition(tt.from, tt.to)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
		})
	}
}
