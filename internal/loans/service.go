package loans

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-credit/meridian/internal/shared"
)

// Notifier delivers borrower-facing notifications. Implementations must not
// block the request path; failures are logged and never surfaced.
type Notifier interface {
	LoanApproved(ctx context.Context, loanID int64) error
	LoanDisbursed(ctx context.Context, loanID int64) error
}

// AuditSink records workflow actions for the audit trail.
type AuditSink interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Recorder counts domain events for monitoring. A nil Recorder disables it.
type Recorder interface {
	PhaseTransition(stage string)
	PaymentRecorded(amount float64)
}

// Service drives the four-phase loan workflow and the repayment ledger.
type Service struct {
	repo     Repository
	audit    AuditSink
	notifier Notifier
	metrics  Recorder
	logger   *slog.Logger
}

// NewService constructs the loan service. audit, notifier and metrics may be
// nil; the corresponding side effects are then skipped.
func NewService(repo Repository, audit AuditSink, notifier Notifier, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, notifier: notifier, metrics: metrics, logger: logger}
}

// Register opens a new loan at phase 1 with the borrower's basic identity.
func (s *Service) Register(ctx context.Context, actor shared.Actor, req RegisterLoanRequest) (*StructuredLoan, error) {
	var loanID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		clientID, err := repo.CreateClient(ctx, Client{
			Fullname:  req.Fullname,
			Contact:   req.Contact,
			Email:     req.Email,
			Location:  req.Location,
			Landmark:  req.Landmark,
			Business:  req.Business,
			CreatedBy: actor.ID,
		})
		if err != nil {
			return err
		}
		loanID, err = repo.CreateLoan(ctx, Loan{
			ClientID:        clientID,
			RequestedAmount: req.RequestedAmount,
			Status:          StatusRegistered,
			Phase:           PhaseRegistration,
			RegisteredBy:    actor.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "loan.register", loanID, map[string]any{
		"requested_amount": req.RequestedAmount,
	})
	if s.metrics != nil {
		s.metrics.PhaseTransition("register")
	}
	return s.Get(ctx, loanID)
}

// CaptureDetails fills in the phase-2 KYC data and advances the loan to the
// capturing phase. Client fields and child collections are written even when a
// concurrent capture wins the phase flip: the phase advances once, the detail
// fields reflect the last writer.
func (s *Service) CaptureDetails(ctx context.Context, actor shared.Actor, loanID int64, req CaptureDetailsRequest) (*StructuredLoan, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Phase > PhaseCapturing {
			return fmt.Errorf("%w: loan is not in registration or capturing phase", shared.ErrPhaseViolation)
		}

		if err := repo.UpdateClientCapture(ctx, loan.ClientID, req); err != nil {
			return err
		}
		if req.Witnesses != nil {
			if err := repo.ReplaceWitnesses(ctx, loan.ClientID, req.Witnesses); err != nil {
				return err
			}
		}
		if req.BusinessLocations != nil {
			if err := repo.ReplaceBusinessLocations(ctx, loan.ClientID, req.BusinessLocations); err != nil {
				return err
			}
		}
		if req.Residences != nil {
			if err := repo.ReplaceResidences(ctx, loan.ClientID, req.Residences); err != nil {
				return err
			}
		}

		advanced, err := repo.AdvanceToCaptured(ctx, loanID, actor.ID)
		if err != nil {
			return err
		}
		if advanced && s.metrics != nil {
			s.metrics.PhaseTransition("capture")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "loan.capture", loanID, nil)
	return s.Get(ctx, loanID)
}

// Approve fixes the financial terms, advances the loan to phase 3 and
// materializes the repayment schedule inside the same transaction. Exactly one
// of several concurrent approvals succeeds; the rest see a phase violation.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, loanID int64, req ApproveLoanRequest) (*StructuredLoan, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Phase != PhaseCapturing {
			return fmt.Errorf("%w: loan is not in capturing phase", shared.ErrPhaseViolation)
		}

		ok, err := repo.ApplyApproval(ctx, loanID, req, actor.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: loan is not in capturing phase", shared.ErrPhaseViolation)
		}

		schedule := BuildSchedule(req.ApprovedAmount, req.LoanDuration, req.PaymentMode, req.PaymentStartDate)
		return repo.InsertRepayments(ctx, loanID, schedule)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "loan.approve", loanID, map[string]any{
		"approved_amount": req.ApprovedAmount,
		"loan_duration":   req.LoanDuration,
		"payment_mode":    string(req.PaymentMode),
	})
	if s.metrics != nil {
		s.metrics.PhaseTransition("approve")
	}
	s.notify(ctx, loanID, "approval", func(ctx context.Context) error {
		return s.notifier.LoanApproved(ctx, loanID)
	})
	return s.Get(ctx, loanID)
}

// Disburse pays the approved amount out and activates the loan.
func (s *Service) Disburse(ctx context.Context, actor shared.Actor, loanID int64, req DisburseLoanRequest) (*StructuredLoan, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Phase != PhaseApproval {
			return fmt.Errorf("%w: loan is not in approval phase", shared.ErrPhaseViolation)
		}

		ok, err := repo.ApplyDisbursement(ctx, loanID, req, actor.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: loan is not in approval phase", shared.ErrPhaseViolation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "loan.disburse", loanID, map[string]any{
		"disbursement_method": req.DisbursementMethod,
	})
	if s.metrics != nil {
		s.metrics.PhaseTransition("disburse")
	}
	s.notify(ctx, loanID, "disbursement", func(ctx context.Context) error {
		return s.notifier.LoanDisbursed(ctx, loanID)
	})
	return s.Get(ctx, loanID)
}

// Edit applies a partial update to the borrower identity and the requested
// amount. Allowed only while the loan has not been approved.
func (s *Service) Edit(ctx context.Context, actor shared.Actor, loanID int64, req EditLoanRequest) (*StructuredLoan, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Phase > PhaseCapturing {
			return fmt.Errorf("%w: loan can only be edited before approval", shared.ErrPhaseViolation)
		}

		if err := repo.UpdateClientContact(ctx, loan.ClientID, req); err != nil {
			return err
		}
		if req.RequestedAmount != nil {
			if err := repo.UpdateRequestedAmount(ctx, loanID, *req.RequestedAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "loan.edit", loanID, nil)
	return s.Get(ctx, loanID)
}

// Delete removes the loan and every dependent row. Allowed only while the
// loan has not been approved.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, loanID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Phase > PhaseCapturing {
			return fmt.Errorf("%w: loan can only be deleted before approval", shared.ErrPhaseViolation)
		}
		return repo.DeleteLoanCascade(ctx, loanID, loan.ClientID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actor, "loan.delete", loanID, nil)
	return nil
}

// RecordPayment appends a receipt to the payment ledger, re-aggregates the
// paid total and re-derives every installment status from it. The ledger is
// the source of truth: installment statuses are a pure function of the
// cumulative total, so repeated runs converge to the same state. When the
// remaining balance hits zero the loan flips to completed.
func (s *Service) RecordPayment(ctx context.Context, actor shared.Actor, loanID int64, req RecordPaymentRequest) (*PaymentResult, error) {
	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		loan, err := repo.GetLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.Phase != PhaseDisbursement {
			return fmt.Errorf("%w: loan is not active", shared.ErrPhaseViolation)
		}
		if loan.Status == StatusCompleted {
			return fmt.Errorf("%w: loan is already completed", shared.ErrPhaseViolation)
		}

		if _, err := repo.InsertPayment(ctx, Payment{
			LoanID:      loanID,
			Reference:   paymentReference(),
			Amount:      req.Amount,
			PaymentDate: req.PaymentDate,
			ReceivedBy:  actor.ID,
			Notes:       req.Notes,
		}); err != nil {
			return err
		}

		totalPaid, err := repo.SumPayments(ctx, loanID)
		if err != nil {
			return err
		}

		schedule, err := repo.ListRepaymentsByDue(ctx, loanID)
		if err != nil {
			return err
		}

		statuses := Allocate(totalPaid, schedule)
		for i, entry := range schedule {
			if entry.Status == statuses[i] {
				continue
			}
			paidAt := entry.DueDate
			if statuses[i] != RepaymentPending {
				paidAt = req.PaymentDate
			}
			if err := repo.SetRepaymentStatus(ctx, entry.ID, statuses[i], paidAt); err != nil {
				return err
			}
		}

		approved := loan.RequestedAmount
		if loan.ApprovedAmount != nil {
			approved = *loan.ApprovedAmount
		}
		remaining := approved - totalPaid
		if remaining < 0 {
			remaining = 0
		}
		if remaining == 0 {
			if err := repo.MarkCompleted(ctx, loanID); err != nil {
				return err
			}
		}

		result = PaymentResult{
			RemainingBalance: remaining,
			TotalPaid:        totalPaid,
			NextDueAmount:    nextDueAmount(totalPaid, schedule),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, "loan.payment", loanID, map[string]any{
		"amount": req.Amount,
	})
	if s.metrics != nil {
		s.metrics.PaymentRecorded(req.Amount)
	}
	return &result, nil
}

// Get returns the phase-sectioned view of one loan.
func (s *Service) Get(ctx context.Context, loanID int64) (*StructuredLoan, error) {
	detail, err := s.repo.GetDetail(ctx, loanID)
	if err != nil {
		return nil, err
	}
	view := Structure(*detail)
	return &view, nil
}

// List returns one page of structured loans with listing stats. Phases on the
// request scopes the listing to the caller's role window.
func (s *Service) List(ctx context.Context, req ListLoansRequest) (*LoanList, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	details, total, stats, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}

	views := make([]StructuredLoan, 0, len(details))
	for _, detail := range details {
		views = append(views, Structure(detail))
	}
	return &LoanList{
		Loans:      views,
		Total:      total,
		TotalPages: TotalPages(total, req.Limit),
		Stats:      stats,
	}, nil
}

// Repayments returns the loan's full schedule ordered by due date.
func (s *Service) Repayments(ctx context.Context, loanID int64) ([]Repayment, error) {
	if _, err := s.repo.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	schedule, err := s.repo.ListRepaymentsByDue(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		schedule = []Repayment{}
	}
	return schedule, nil
}

// Payments returns the loan's receipt history, newest first.
func (s *Service) Payments(ctx context.Context, loanID int64) ([]PaymentWithReceiver, error) {
	if _, err := s.repo.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentHistory(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []PaymentWithReceiver{}
	}
	return payments, nil
}

// Balance summarizes the money position of a loan.
func (s *Service) Balance(ctx context.Context, loanID int64) (*Balance, error) {
	loan, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	totalPaid, err := s.repo.SumPayments(ctx, loanID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.repo.ListRepaymentsByDue(ctx, loanID)
	if err != nil {
		return nil, err
	}

	totalAmount := loan.RequestedAmount
	if loan.ApprovedAmount != nil {
		totalAmount = *loan.ApprovedAmount
	}
	remaining := totalAmount - totalPaid
	if remaining < 0 {
		remaining = 0
	}
	return &Balance{
		TotalAmount:      totalAmount,
		TotalPaid:        totalPaid,
		RemainingBalance: remaining,
		NextDueAmount:    nextDueAmount(totalPaid, schedule),
	}, nil
}

// nextDueAmount sums the amounts of installments still pending after
// allocating the cumulative total. A partially covered installment no longer
// counts toward it. Zero once every installment is at least partially settled.
func nextDueAmount(totalPaid float64, schedule []Repayment) float64 {
	var due float64
	for i, status := range Allocate(totalPaid, schedule) {
		if status == RepaymentPending {
			due += schedule[i].Amount
		}
	}
	return due
}

func paymentReference() string {
	return "PAY-" + uuid.NewString()
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, loanID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "loan",
		EntityID: strconv.FormatInt(loanID, 10),
		Meta:     meta,
		At:       time.Now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, loanID int64, event string, fn func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Warn("notification dispatch failed",
			slog.String("event", event),
			slog.Int64("loan_id", loanID),
			slog.Any("error", err))
	}
}
