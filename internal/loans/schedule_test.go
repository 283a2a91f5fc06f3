package loans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildScheduleMonthly(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	schedule := BuildSchedule(12000, 12, PaymentModeMonthly, start)

	require.Len(t, schedule, 12)
	for i, entry := range schedule {
		require.InDelta(t, 1000.0, entry.Amount, 1e-9)
		require.Equal(t, start.AddDate(0, i, 0), entry.DueDate)
		require.Equal(t, entry.DueDate, entry.PaymentDate)
		require.Equal(t, RepaymentPending, entry.Status)
	}
	require.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), schedule[11].DueDate)
}

func TestBuildScheduleWeekly(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	schedule := BuildSchedule(700, 7, PaymentModeWeekly, start)

	require.Len(t, schedule, 7)
	for i, entry := range schedule {
		require.InDelta(t, 100.0, entry.Amount, 1e-9)
		require.Equal(t, start.AddDate(0, 0, i*7), entry.DueDate)
	}
}

func TestBuildScheduleMonthEndOverflow(t *testing.T) {
	// A start on Jan 31 rolls through short months the way AddDate does:
	// Jan 31 + 1 month lands in early March on a leap year.
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	schedule := BuildSchedule(3000, 3, PaymentModeMonthly, start)

	require.Len(t, schedule, 3)
	require.Equal(t, start, schedule[0].DueDate)
	require.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), schedule[1].DueDate)
	require.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), schedule[2].DueDate)
}

func TestBuildScheduleUnevenSplit(t *testing.T) {
	schedule := BuildSchedule(1000, 3, PaymentModeMonthly, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.Len(t, schedule, 3)
	for _, entry := range schedule {
		require.InDelta(t, 1000.0/3.0, entry.Amount, 1e-9)
	}
}

func TestBuildScheduleRejectsNonPositiveCount(t *testing.T) {
	require.Nil(t, BuildSchedule(1000, 0, PaymentModeMonthly, time.Now()))
	require.Nil(t, BuildSchedule(1000, -4, PaymentModeWeekly, time.Now()))
}
