package ledger

import "agrimarket-ledger/internal/models"

// orderTransitions is the fixed lifecycle graph. Delivered and cancelled
// are terminal; cancellation is reachable from pending or confirmed only.
var orderTransitions = map[string]map[string]bool{
	models.OrderStatusPending: {
		models.OrderStatusConfirmed: true,
		models.OrderStatusCancelled: true,
	},
	models.OrderStatusConfirmed: {
		models.OrderStatusDelivered: true,
		models.OrderStatusCancelled: true,
	},
	models.OrderStatusDelivered: {},
	models.OrderStatusCancelled: {},
}

// CanTransition reports whether from -> to is an edge of the lifecycle
// graph. Unknown statuses have no edges.
func CanTransition(from, to string) bool {
	return orderTransitions[from][to]
}

// IsTerminalStatus reports whether an order status admits no further
// transitions.
func IsTerminalStatus(status string) bool {
	targets, ok := orderTransitions[status]
	return ok && len(targets) == 0
}

// ValidOrderStatus reports whether the value names a known status.
func ValidOrderStatus(status string) bool {
	_, ok := orderTransitions[status]
	return ok
}
