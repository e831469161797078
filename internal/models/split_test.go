package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSettlement(t *testing.T) {
	cases := []struct {
		amount   int64
		n        int
		expected []int64
	}{
		{1000, 1, []int64{1000}},
		{1000, 2, []int64{500, 500}},
		{1000, 3, []int64{334, 333, 333}},
		{1001, 2, []int64{501, 500}},
		{5, 3, []int64{3, 1, 1}},
		{0, 2, []int64{0, 0}},
	}

	for _, tc := range cases {
		shares := SplitSettlement(tc.amount, tc.n)
		assert.Equal(t, tc.expected, shares, "amount=%d n=%d", tc.amount, tc.n)

		var sum int64
		for _, s := range shares {
			sum += s
		}
		assert.Equal(t, tc.amount, sum, "shares must sum to amount")
	}
}

func TestSplitSettlementInvalidCount(t *testing.T) {
	assert.Nil(t, SplitSettlement(1000, 0))
	assert.Nil(t, SplitSettlement(1000, -1))
}
