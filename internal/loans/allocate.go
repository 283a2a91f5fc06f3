package loans

// Allocate re-derives installment display statuses from the cumulative paid
// amount. The walk is greedy FIFO over installments ordered by due date:
// fully covered entries become paid, the first partially covered one becomes
// partial, the rest stay pending. Because the input is the cumulative total
// (not the latest receipt) the result converges regardless of payment order,
// and a single large payment can retroactively settle many old installments.
//
// The returned slice is aligned index-for-index with installments.
func Allocate(totalPaid float64, installments []Repayment) []RepaymentStatus {
	statuses := make([]RepaymentStatus, len(installments))
	remaining := totalPaid
	for i, inst := range installments {
		switch {
		case remaining >= inst.Amount:
			statuses[i] = RepaymentPaid
			remaining -= inst.Amount
		case remaining > 0:
			statuses[i] = RepaymentPartial
			remaining = 0
		default:
			statuses[i] = RepaymentPending
		}
	}
	return statuses
}
