package loans

import "time"

// BuildSchedule materializes the repayment schedule for approved terms: count
// installments of amount/count each, spaced 7 days (weekly) or one calendar
// month (monthly) from start. Month arithmetic uses time.AddDate, so a start
// on the 31st rolls over short months the same way the rest of the system
// computes dates. The split is an equal division; the last installment is not
// adjusted for rounding residue.
//
// PaymentDate is preset to DueDate and only becomes meaningful once the
// allocation pass marks the entry paid. The function is pure and must be
// invoked exactly once per loan, inside the approval transaction.
func BuildSchedule(approvedAmount float64, count int, mode PaymentMode, start time.Time) []Repayment {
	if count <= 0 {
		return nil
	}

	installment := approvedAmount / float64(count)
	schedule := make([]Repayment, 0, count)
	for i := 0; i < count; i++ {
		var due time.Time
		if mode == PaymentModeWeekly {
			due = start.AddDate(0, 0, i*7)
		} else {
			due = start.AddDate(0, i, 0)
		}
		schedule = append(schedule, Repayment{
			Amount:      installment,
			DueDate:     due,
			PaymentDate: due,
			Status:      RepaymentPending,
		})
	}
	return schedule
}
