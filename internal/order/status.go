package order

import (
	"ms-restaurant/internal/apperr"
	"ms-restaurant/internal/models"
)

// transitions is the only source of allowed status moves. Terminal statuses have no entry.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusPreparing, models.OrderStatusServed, models.OrderStatusCancelled},
	models.OrderStatusPreparing: {models.OrderStatusServed, models.OrderStatusCancelled},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition returns Forbidden when leaving a terminal status and BadRequest for any other move
// outside the table.
func checkTransition(from, to models.OrderStatus) error {
	if from.Terminal() {
		return apperr.Forbidden("Cannot update order with status: %s", from)
	}
	if !CanTransition(from, to) {
		return apperr.BadRequest("Cannot change order status from %s to %s", from, to)
	}
	return nil
}
