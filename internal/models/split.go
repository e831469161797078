package models

// SplitSettlement divides a settled amount pro-rata across n recipients.
// Shares always sum to amount; the remainder paise go to the first share.
func SplitSettlement(amount int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	base := amount / int64(n)
	shares := make([]int64, n)
	for i := range shares {
		shares[i] = base
	}
	shares[0] += amount - base*int64(n)
	return shares
}
