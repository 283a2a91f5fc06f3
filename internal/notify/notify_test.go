package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-credit/meridian/jobs"
)

type contactRow struct {
	fullname string
	email    *string
	amount   float64
	duration int
	mode     string
	method   *string
	err      error
}

func (r contactRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.fullname
	*dest[1].(**string) = r.email
	*dest[2].(*float64) = r.amount
	*dest[3].(*int) = r.duration
	*dest[4].(*string) = r.mode
	*dest[5].(**string) = r.method
	return nil
}

type fakeContacts struct {
	row contactRow
}

func (f *fakeContacts) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.row
}

type fakeQueue struct {
	sent []jobs.SendEmailPayload
	err  error
}

func (q *fakeQueue) EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.sent = append(q.sent, payload)
	return &asynq.TaskInfo{}, nil
}

func approvedContact() contactRow {
	email := "kwame@example.com"
	return contactRow{
		fullname: "Kwame Boateng",
		email:    &email,
		amount:   12000,
		duration: 12,
		mode:     "monthly",
	}
}

func TestLoanApprovedEnqueuesEmail(t *testing.T) {
	queue := &fakeQueue{}
	svc := newService(&fakeContacts{row: approvedContact()}, queue, slog.Default())

	require.NoError(t, svc.LoanApproved(context.Background(), 7))
	require.Len(t, queue.sent, 1)
	require.Equal(t, "kwame@example.com", queue.sent[0].To)
	require.Equal(t, "Loan #7 Approved", queue.sent[0].Subject)
	require.Contains(t, queue.sent[0].Body, "Kwame Boateng")
	require.Contains(t, queue.sent[0].Body, "12 monthly installments")
}

func TestLoanApprovedSkipsMissingEmail(t *testing.T) {
	queue := &fakeQueue{}
	row := approvedContact()
	row.email = nil
	svc := newService(&fakeContacts{row: row}, queue, slog.Default())

	require.NoError(t, svc.LoanApproved(context.Background(), 7))
	require.Empty(t, queue.sent)
}

func TestLoanApprovedPropagatesLookupError(t *testing.T) {
	queue := &fakeQueue{}
	svc := newService(&fakeContacts{row: contactRow{err: pgx.ErrNoRows}}, queue, slog.Default())

	err := svc.LoanApproved(context.Background(), 7)
	require.ErrorIs(t, err, pgx.ErrNoRows)
	require.Empty(t, queue.sent)
}

func TestLoanApprovedPropagatesQueueError(t *testing.T) {
	queueErr := errors.New("queue down")
	svc := newService(&fakeContacts{row: approvedContact()}, &fakeQueue{err: queueErr}, slog.Default())

	require.ErrorIs(t, svc.LoanApproved(context.Background(), 7), queueErr)
}

func TestLoanDisbursedNamesMethod(t *testing.T) {
	queue := &fakeQueue{}
	row := approvedContact()
	method := "mobile_money"
	row.method = &method
	svc := newService(&fakeContacts{row: row}, queue, slog.Default())

	require.NoError(t, svc.LoanDisbursed(context.Background(), 7))
	require.Len(t, queue.sent, 1)
	require.Equal(t, "Loan #7 Disbursed", queue.sent[0].Subject)
	require.True(t, strings.Contains(queue.sent[0].Body, "mobile_money"))
}

func TestLoanDisbursedDefaultsMethodWording(t *testing.T) {
	queue := &fakeQueue{}
	svc := newService(&fakeContacts{row: approvedContact()}, queue, slog.Default())

	require.NoError(t, svc.LoanDisbursed(context.Background(), 7))
	require.Len(t, queue.sent, 1)
	require.Contains(t, queue.sent[0].Body, "your selected channel")
}
