package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskTypeOverdueSweep is the nightly scan for installments past their due
// date. The sweep only reports; installment and loan rows are never modified,
// a later payment can still settle an overdue entry through the normal
// allocation pass.
const TaskTypeOverdueSweep = "loans:overdue_sweep"

// NewOverdueSweepTask constructs the cron task.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOverdueSweep, nil)
}

// NewOverdueSweepHandler returns the asynq handler for the overdue sweep.
func NewOverdueSweepHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		rows, err := pool.Query(ctx, `
			SELECT lr.loan_id, COUNT(*)
			FROM loan_repayments lr
			JOIN loans l ON lr.loan_id = l.id
			WHERE lr.status <> 'paid'
			  AND lr.due_date < NOW()
			  AND l.status = 'active'
			GROUP BY lr.loan_id
			ORDER BY lr.loan_id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		loans := 0
		installments := 0
		for rows.Next() {
			var loanID int64
			var count int
			if err := rows.Scan(&loanID, &count); err != nil {
				return err
			}
			loans++
			installments += count
			logger.Info("overdue installments",
				slog.Int64("loan_id", loanID),
				slog.Int("count", count))
		}
		if err := rows.Err(); err != nil {
			return err
		}

		logger.Info("overdue sweep finished",
			slog.Int("loans", loans),
			slog.Int("installments", installments))
		return nil
	}
}
