package ledger

import (
	"testing"

	"agrimarket-ledger/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusConfirmed, models.OrderStatusDelivered, true},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, true},

		// delivery requires confirmation first
		{models.OrderStatusPending, models.OrderStatusDelivered, false},
		// terminal states admit nothing
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusDelivered, models.OrderStatusConfirmed, false},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
		// no self-loops or backward edges
		{models.OrderStatusPending, models.OrderStatusPending, false},
		{models.OrderStatusConfirmed, models.OrderStatusPending, false},
		// unknown statuses have no edges
		{"shipped", models.OrderStatusDelivered, false},
		{models.OrderStatusPending, "shipped", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(models.OrderStatusDelivered))
	assert.True(t, IsTerminalStatus(models.OrderStatusCancelled))
	assert.False(t, IsTerminalStatus(models.OrderStatusPending))
	assert.False(t, IsTerminalStatus(models.OrderStatusConfirmed))
	assert.False(t, IsTerminalStatus("shipped"))
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	} {
		assert.True(t, ValidOrderStatus(s), s)
	}
	assert.False(t, ValidOrderStatus("shipped"))
	assert.False(t, ValidOrderStatus(""))
}
