// Package notify composes borrower emails for workflow events and hands them
// to the background queue. Delivery is best effort; the loan workflow never
// waits on or fails because of a notification.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-credit/meridian/jobs"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Enqueuer hands a composed email to the background queue.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// Service builds and enqueues notification emails.
type Service struct {
	db      rowQuerier
	queue   Enqueuer
	logger  *slog.Logger
	printer *message.Printer
}

// NewService constructs the notifier.
func NewService(pool *pgxpool.Pool, client *jobs.Client, logger *slog.Logger) *Service {
	return newService(pool, client, logger)
}

func newService(db rowQuerier, queue Enqueuer, logger *slog.Logger) *Service {
	return &Service{
		db:      db,
		queue:   queue,
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

type loanContact struct {
	fullname string
	email    *string
	amount   float64
	duration int
	mode     string
	method   *string
}

func (s *Service) loanContact(ctx context.Context, loanID int64) (*loanContact, error) {
	var c loanContact
	err := s.db.QueryRow(ctx, `
		SELECT c.fullname, c.email,
			COALESCE(l.approved_amount, l.requested_amount),
			COALESCE(l.loan_duration, 0),
			COALESCE(l.payment_mode, ''),
			l.disbursement_method
		FROM loans l
		JOIN clients c ON l.client_id = c.id
		WHERE l.id = $1`,
		loanID,
	).Scan(&c.fullname, &c.email, &c.amount, &c.duration, &c.mode, &c.method)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LoanApproved emails the borrower their approved terms.
func (s *Service) LoanApproved(ctx context.Context, loanID int64) error {
	contact, err := s.loanContact(ctx, loanID)
	if err != nil {
		return err
	}
	if contact.email == nil {
		s.logger.Info("borrower has no email, skipping approval notice",
			slog.Int64("loan_id", loanID))
		return nil
	}

	body := s.printer.Sprintf(
		"Dear %s,\n\nYour loan application has been approved.\n\nApproved amount: GHS %.2f\nDuration: %d %s installments\n\nDisbursement will follow shortly. Thank you for choosing Meridian Credit.\n",
		contact.fullname, contact.amount, contact.duration, contact.mode)

	_, err = s.queue.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      *contact.email,
		Subject: fmt.Sprintf("Loan #%d Approved", loanID),
		Body:    body,
	})
	return err
}

// LoanDisbursed emails the borrower that the money is on its way.
func (s *Service) LoanDisbursed(ctx context.Context, loanID int64) error {
	contact, err := s.loanContact(ctx, loanID)
	if err != nil {
		return err
	}
	if contact.email == nil {
		s.logger.Info("borrower has no email, skipping disbursement notice",
			slog.Int64("loan_id", loanID))
		return nil
	}

	method := "your selected channel"
	if contact.method != nil {
		method = *contact.method
	}
	body := s.printer.Sprintf(
		"Dear %s,\n\nYour loan of GHS %.2f has been disbursed via %s.\n\nYour repayment schedule is now active. Thank you for choosing Meridian Credit.\n",
		contact.fullname, contact.amount, method)

	_, err = s.queue.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      *contact.email,
		Subject: fmt.Sprintf("Loan #%d Disbursed", loanID),
		Body:    body,
	})
	return err
}
