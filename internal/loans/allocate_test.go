package loans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testSchedule(amounts ...float64) []Repayment {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	schedule := make([]Repayment, len(amounts))
	for i, amount := range amounts {
		schedule[i] = Repayment{
			ID:      int64(i + 1),
			Amount:  amount,
			DueDate: base.AddDate(0, i, 0),
			Status:  RepaymentPending,
		}
	}
	return schedule
}

func TestAllocateNothingPaid(t *testing.T) {
	statuses := Allocate(0, testSchedule(100, 100, 100))
	require.Equal(t, []RepaymentStatus{RepaymentPending, RepaymentPending, RepaymentPending}, statuses)
}

func TestAllocateExactCover(t *testing.T) {
	statuses := Allocate(200, testSchedule(100, 100, 100))
	require.Equal(t, []RepaymentStatus{RepaymentPaid, RepaymentPaid, RepaymentPending}, statuses)
}

func TestAllocatePartialMiddle(t *testing.T) {
	statuses := Allocate(150, testSchedule(100, 100, 100))
	require.Equal(t, []RepaymentStatus{RepaymentPaid, RepaymentPartial, RepaymentPending}, statuses)
}

func TestAllocateOverpayment(t *testing.T) {
	statuses := Allocate(500, testSchedule(100, 100, 100))
	require.Equal(t, []RepaymentStatus{RepaymentPaid, RepaymentPaid, RepaymentPaid}, statuses)
}

func TestAllocateConvergesRegardlessOfHistory(t *testing.T) {
	// Running the allocation for the same cumulative total always yields the
	// same statuses, whatever the entries were marked before.
	schedule := testSchedule(100, 100, 100)
	schedule[0].Status = RepaymentPaid
	schedule[1].Status = RepaymentPartial

	statuses := Allocate(50, schedule)
	require.Equal(t, []RepaymentStatus{RepaymentPartial, RepaymentPending, RepaymentPending}, statuses)
}

func TestAllocateSingleLargePaymentSettlesManyInstallments(t *testing.T) {
	statuses := Allocate(1050, testSchedule(100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100))
	for i := 0; i < 10; i++ {
		require.Equal(t, RepaymentPaid, statuses[i])
	}
	require.Equal(t, RepaymentPartial, statuses[10])
	require.Equal(t, RepaymentPending, statuses[11])
}

func TestAllocateEmptySchedule(t *testing.T) {
	require.Empty(t, Allocate(500, nil))
}
