package loans

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-credit/meridian/internal/shared"
)

type memoryLoanRepo struct {
	clients    map[int64]*Client
	loans      map[int64]*Loan
	witnesses  map[int64][]Witness
	businesses map[int64][]Place
	residences map[int64][]Place
	repayments map[int64][]Repayment
	payments   map[int64][]Payment
	userNames  map[int64]string

	nextClientID    int64
	nextLoanID      int64
	nextRepaymentID int64
	nextPaymentID   int64
}

func newMemoryLoanRepo() *memoryLoanRepo {
	return &memoryLoanRepo{
		clients:    make(map[int64]*Client),
		loans:      make(map[int64]*Loan),
		witnesses:  make(map[int64][]Witness),
		businesses: make(map[int64][]Place),
		residences: make(map[int64][]Place),
		repayments: make(map[int64][]Repayment),
		payments:   make(map[int64][]Payment),
		userNames: map[int64]string{
			1: "Ama Call Center",
			2: "Kojo Sales",
			3: "Efua Analyst",
			4: "Yaw Manager",
		},
	}
}

func (r *memoryLoanRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryLoanRepo) CreateClient(ctx context.Context, c Client) (int64, error) {
	r.nextClientID++
	c.ID = r.nextClientID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.clients[c.ID] = &c
	return c.ID, nil
}

func (r *memoryLoanRepo) CreateLoan(ctx context.Context, l Loan) (int64, error) {
	r.nextLoanID++
	l.ID = r.nextLoanID
	l.RegistrationDate = time.Now()
	l.CreatedAt = l.RegistrationDate
	l.UpdatedAt = l.RegistrationDate
	r.loans[l.ID] = &l
	return l.ID, nil
}

func (r *memoryLoanRepo) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	loan, ok := r.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *loan
	return &copied, nil
}

func (r *memoryLoanRepo) UpdateClientCapture(ctx context.Context, clientID int64, patch CaptureDetailsRequest) error {
	client, ok := r.clients[clientID]
	if !ok {
		return ErrNotFound
	}
	if patch.DOB != nil {
		client.DOB = patch.DOB
	}
	if patch.MaritalStatus != nil {
		client.MaritalStatus = patch.MaritalStatus
	}
	if patch.ProfileImage != nil {
		client.ProfileImage = patch.ProfileImage
	}
	if patch.Occupation != nil {
		client.Occupation = patch.Occupation
	}
	if patch.IDType != nil {
		client.IDType = patch.IDType
	}
	if patch.IDNumber != nil {
		client.IDNumber = patch.IDNumber
	}
	if patch.IDFrontImage != nil {
		client.IDFrontImage = patch.IDFrontImage
	}
	if patch.IDBackImage != nil {
		client.IDBackImage = patch.IDBackImage
	}
	client.UpdatedAt = time.Now()
	return nil
}

func (r *memoryLoanRepo) ReplaceWitnesses(ctx context.Context, clientID int64, inputs []WitnessInput) error {
	out := make([]Witness, 0, len(inputs))
	for i, in := range inputs {
		out = append(out, Witness{
			ID:            int64(i + 1),
			ClientID:      clientID,
			Fullname:      in.Fullname,
			Contact:       in.Contact,
			MaritalStatus: in.MaritalStatus,
			Email:         in.Email,
			Occupation:    in.Occupation,
		})
	}
	r.witnesses[clientID] = out
	return nil
}

func (r *memoryLoanRepo) ReplaceBusinessLocations(ctx context.Context, clientID int64, inputs []PlaceInput) error {
	r.businesses[clientID] = placesFromInputs(clientID, inputs)
	return nil
}

func (r *memoryLoanRepo) ReplaceResidences(ctx context.Context, clientID int64, inputs []PlaceInput) error {
	r.residences[clientID] = placesFromInputs(clientID, inputs)
	return nil
}

func placesFromInputs(clientID int64, inputs []PlaceInput) []Place {
	out := make([]Place, 0, len(inputs))
	for i, in := range inputs {
		out = append(out, Place{
			ID:         int64(i + 1),
			ClientID:   clientID,
			Name:       in.Name,
			Address:    in.Address,
			GPSAddress: in.GPSAddress,
			Region:     in.Region,
		})
	}
	return out
}

func (r *memoryLoanRepo) AdvanceToCaptured(ctx context.Context, loanID, actorID int64) (bool, error) {
	loan, ok := r.loans[loanID]
	if !ok {
		return false, ErrNotFound
	}
	if loan.Phase >= PhaseCapturing {
		return false, nil
	}
	now := time.Now()
	loan.Phase = PhaseCapturing
	loan.Status = StatusCaptured
	loan.CapturedBy = &actorID
	loan.CapturingDate = &now
	loan.UpdatedAt = now
	return true, nil
}

func (r *memoryLoanRepo) ApplyApproval(ctx context.Context, loanID int64, terms ApproveLoanRequest, actorID int64) (bool, error) {
	loan, ok := r.loans[loanID]
	if !ok {
		return false, ErrNotFound
	}
	if loan.Phase != PhaseCapturing {
		return false, nil
	}
	now := time.Now()
	mode := terms.PaymentMode
	loan.Phase = PhaseApproval
	loan.Status = StatusApproved
	loan.ApprovedAmount = &terms.ApprovedAmount
	loan.LoanDuration = &terms.LoanDuration
	loan.PaymentMode = &mode
	loan.ProcessingFee = &terms.ProcessingFee
	loan.InterestRate = &terms.InterestRate
	loan.PaymentStartDate = &terms.PaymentStartDate
	loan.PaymentEndDate = &terms.PaymentEndDate
	loan.ApprovedBy = &actorID
	loan.ApprovalDate = &now
	loan.UpdatedAt = now
	return true, nil
}

func (r *memoryLoanRepo) InsertRepayments(ctx context.Context, loanID int64, schedule []Repayment) error {
	for _, entry := range schedule {
		r.nextRepaymentID++
		entry.ID = r.nextRepaymentID
		entry.LoanID = loanID
		entry.CreatedAt = time.Now()
		r.repayments[loanID] = append(r.repayments[loanID], entry)
	}
	return nil
}

func (r *memoryLoanRepo) ApplyDisbursement(ctx context.Context, loanID int64, req DisburseLoanRequest, actorID int64) (bool, error) {
	loan, ok := r.loans[loanID]
	if !ok {
		return false, ErrNotFound
	}
	if loan.Phase != PhaseApproval {
		return false, nil
	}
	now := time.Now()
	method := req.DisbursementMethod
	loan.Phase = PhaseDisbursement
	loan.Status = StatusActive
	loan.DisbursedBy = &actorID
	loan.DisbursementDate = &now
	loan.DisbursementMethod = &method
	loan.DisbursementNotes = req.DisbursementNotes
	loan.UpdatedAt = now
	return true, nil
}

func (r *memoryLoanRepo) UpdateClientContact(ctx context.Context, clientID int64, patch EditLoanRequest) error {
	client, ok := r.clients[clientID]
	if !ok {
		return ErrNotFound
	}
	if patch.Fullname != nil {
		client.Fullname = *patch.Fullname
	}
	if patch.Contact != nil {
		client.Contact = *patch.Contact
	}
	if patch.Email != nil {
		client.Email = patch.Email
	}
	if patch.Location != nil {
		client.Location = *patch.Location
	}
	if patch.Landmark != nil {
		client.Landmark = patch.Landmark
	}
	if patch.Business != nil {
		client.Business = patch.Business
	}
	return nil
}

func (r *memoryLoanRepo) UpdateRequestedAmount(ctx context.Context, loanID int64, amount float64) error {
	loan, ok := r.loans[loanID]
	if !ok {
		return ErrNotFound
	}
	loan.RequestedAmount = amount
	return nil
}

func (r *memoryLoanRepo) DeleteLoanCascade(ctx context.Context, loanID, clientID int64) error {
	delete(r.loans, loanID)
	delete(r.clients, clientID)
	delete(r.witnesses, clientID)
	delete(r.businesses, clientID)
	delete(r.residences, clientID)
	delete(r.repayments, loanID)
	delete(r.payments, loanID)
	return nil
}

func (r *memoryLoanRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	r.nextPaymentID++
	p.ID = r.nextPaymentID
	p.CreatedAt = time.Now()
	r.payments[p.LoanID] = append(r.payments[p.LoanID], p)
	return p.ID, nil
}

func (r *memoryLoanRepo) SumPayments(ctx context.Context, loanID int64) (float64, error) {
	var total float64
	for _, p := range r.payments[loanID] {
		total += p.Amount
	}
	return total, nil
}

func (r *memoryLoanRepo) ListRepaymentsByDue(ctx context.Context, loanID int64) ([]Repayment, error) {
	schedule := append([]Repayment(nil), r.repayments[loanID]...)
	sort.Slice(schedule, func(i, j int) bool {
		if schedule[i].DueDate.Equal(schedule[j].DueDate) {
			return schedule[i].ID < schedule[j].ID
		}
		return schedule[i].DueDate.Before(schedule[j].DueDate)
	})
	return schedule, nil
}

func (r *memoryLoanRepo) SetRepaymentStatus(ctx context.Context, repaymentID int64, status RepaymentStatus, paidAt time.Time) error {
	for loanID, schedule := range r.repayments {
		for i := range schedule {
			if schedule[i].ID == repaymentID {
				r.repayments[loanID][i].Status = status
				r.repayments[loanID][i].PaymentDate = paidAt
				return nil
			}
		}
	}
	return ErrNotFound
}

func (r *memoryLoanRepo) MarkCompleted(ctx context.Context, loanID int64) error {
	loan, ok := r.loans[loanID]
	if !ok {
		return ErrNotFound
	}
	loan.Status = StatusCompleted
	return nil
}

func (r *memoryLoanRepo) GetDetail(ctx context.Context, loanID int64) (*LoanDetail, error) {
	loan, ok := r.loans[loanID]
	if !ok {
		return nil, ErrNotFound
	}
	client := r.clients[loan.ClientID]
	detail := LoanDetail{
		Loan:              *loan,
		Client:            *client,
		Witnesses:         r.witnesses[loan.ClientID],
		BusinessLocations: r.businesses[loan.ClientID],
		Residences:        r.residences[loan.ClientID],
	}
	detail.RegisteredByName = r.userName(loan.RegisteredBy)
	if loan.CapturedBy != nil {
		detail.CapturedByName = r.userName(*loan.CapturedBy)
	}
	if loan.ApprovedBy != nil {
		detail.ApprovedByName = r.userName(*loan.ApprovedBy)
	}
	if loan.DisbursedBy != nil {
		detail.DisbursedByName = r.userName(*loan.DisbursedBy)
	}
	return &detail, nil
}

func (r *memoryLoanRepo) userName(id int64) *string {
	name, ok := r.userNames[id]
	if !ok {
		return nil
	}
	return &name
}

func (r *memoryLoanRepo) List(ctx context.Context, req ListLoansRequest) ([]LoanDetail, int, ListStats, error) {
	var matched []LoanDetail
	stats := ListStats{}

	ids := make([]int64, 0, len(r.loans))
	for id := range r.loans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		loan := r.loans[id]
		if len(req.Phases) > 0 && !containsPhase(req.Phases, loan.Phase) {
			continue
		}
		client := r.clients[loan.ClientID]
		if req.Search != "" && !strings.Contains(strings.ToLower(client.Fullname), strings.ToLower(req.Search)) {
			continue
		}

		stats.TotalRegistrations++
		if loan.Status == StatusRegistered {
			stats.Registered++
		}
		if loan.Status == StatusCaptured {
			stats.Captured++
		}
		stats.TotalRequested += loan.RequestedAmount

		if req.Status != nil && loan.Status != *req.Status {
			continue
		}
		if req.Phase != nil && loan.Phase != *req.Phase {
			continue
		}
		detail, err := r.GetDetail(ctx, id)
		if err != nil {
			return nil, 0, ListStats{}, err
		}
		matched = append(matched, *detail)
	}

	total := len(matched)
	if req.Offset < len(matched) {
		matched = matched[req.Offset:]
	} else {
		matched = nil
	}
	if req.Limit > 0 && req.Limit < len(matched) {
		matched = matched[:req.Limit]
	}
	return matched, total, stats, nil
}

func containsPhase(phases []int, phase int) bool {
	for _, p := range phases {
		if p == phase {
			return true
		}
	}
	return false
}

func (r *memoryLoanRepo) ListPaymentHistory(ctx context.Context, loanID int64) ([]PaymentWithReceiver, error) {
	var out []PaymentWithReceiver
	for _, p := range r.payments[loanID] {
		out = append(out, PaymentWithReceiver{
			Payment:        p,
			ReceivedByName: r.userName(p.ReceivedBy),
		})
	}
	return out, nil
}

var (
	callCenter = shared.Actor{ID: 1, Name: "Ama Call Center", Role: "Call Center"}
	salesExec  = shared.Actor{ID: 2, Name: "Kojo Sales", Role: "Sales Executive"}
	analyst    = shared.Actor{ID: 3, Name: "Efua Analyst", Role: "Credit Risk Analyst"}
	manager    = shared.Actor{ID: 4, Name: "Yaw Manager", Role: "Manager"}
)

func newTestService(repo Repository) *Service {
	return NewService(repo, nil, nil, nil, nil)
}

func registerTestLoan(t *testing.T, svc *Service) int64 {
	t.Helper()
	loan, err := svc.Register(context.Background(), callCenter, RegisterLoanRequest{
		Fullname:        "Kwame Boateng",
		Contact:         "0244000000",
		Location:        "Accra",
		RequestedAmount: 10000,
	})
	require.NoError(t, err)
	return loan.ID
}

func captureTestLoan(t *testing.T, svc *Service, loanID int64) {
	t.Helper()
	occupation := "Trader"
	_, err := svc.CaptureDetails(context.Background(), salesExec, loanID, CaptureDetailsRequest{
		Occupation: &occupation,
		Witnesses: []WitnessInput{
			{Fullname: "Abena Osei", Contact: "0200000000"},
		},
	})
	require.NoError(t, err)
}

func approveTestLoan(t *testing.T, svc *Service, loanID int64, amount float64, duration int, mode PaymentMode) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Approve(context.Background(), analyst, loanID, ApproveLoanRequest{
		ApprovedAmount:   amount,
		LoanDuration:     duration,
		PaymentMode:      mode,
		ProcessingFee:    100,
		InterestRate:     10,
		PaymentStartDate: start,
		PaymentEndDate:   start.AddDate(0, duration, 0),
	})
	require.NoError(t, err)
}

func disburseTestLoan(t *testing.T, svc *Service, loanID int64) {
	t.Helper()
	_, err := svc.Disburse(context.Background(), manager, loanID, DisburseLoanRequest{
		DisbursementMethod: "mobile_money",
	})
	require.NoError(t, err)
}

func TestRegisterCreatesPhaseOneLoan(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loan, err := svc.Register(context.Background(), callCenter, RegisterLoanRequest{
		Fullname:        "Kwame Boateng",
		Contact:         "0244000000",
		Location:        "Accra",
		RequestedAmount: 10000,
	})
	require.NoError(t, err)

	require.Equal(t, StatusRegistered, loan.LoanStatus.Status)
	require.Equal(t, PhaseRegistration, loan.LoanStatus.Phase)
	require.Equal(t, "Kwame Boateng", loan.Registered.ClientName)
	require.Nil(t, loan.Captured)
	require.Nil(t, loan.Approved)
	require.Nil(t, loan.Disbursement)
}

func TestCaptureAdvancesToPhaseTwo(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)

	captureTestLoan(t, svc, loanID)

	loan, err := svc.Get(context.Background(), loanID)
	require.NoError(t, err)
	require.Equal(t, PhaseCapturing, loan.LoanStatus.Phase)
	require.Equal(t, StatusCaptured, loan.LoanStatus.Status)
	require.NotNil(t, loan.Captured)
	require.Len(t, loan.Captured.Witnesses, 1)
	require.Equal(t, &salesExec.ID, loan.Captured.CapturedBy)
}

func TestCaptureRaceFirstWriterWinsPhase(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)

	captureTestLoan(t, svc, loanID)

	// A second capture still succeeds and overwrites the detail fields, but
	// the phase markers stay with the first writer.
	occupation := "Farmer"
	other := shared.Actor{ID: 2, Name: "Kojo Sales", Role: "Loan Officer"}
	_, err := svc.CaptureDetails(context.Background(), other, loanID, CaptureDetailsRequest{
		Occupation: &occupation,
	})
	require.NoError(t, err)

	loan, err := svc.Get(context.Background(), loanID)
	require.NoError(t, err)
	require.Equal(t, PhaseCapturing, loan.LoanStatus.Phase)
	require.Equal(t, &salesExec.ID, loan.Captured.CapturedBy)
	require.Equal(t, &occupation, loan.Captured.Occupation)
}

func TestCaptureRejectedAfterApproval(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)
	approveTestLoan(t, svc, loanID, 12000, 12, PaymentModeMonthly)

	occupation := "Trader"
	_, err := svc.CaptureDetails(context.Background(), salesExec, loanID, CaptureDetailsRequest{
		Occupation: &occupation,
	})
	require.ErrorIs(t, err, shared.ErrPhaseViolation)
}

func TestApproveBuildsMonthlySchedule(t *testing.T) {
	repo := newMemoryLoanRepo()
	svc := newTestService(repo)
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)

	approveTestLoan(t, svc, loanID, 12000, 12, PaymentModeMonthly)

	loan, err := svc.Get(context.Background(), loanID)
	require.NoError(t, err)
	require.Equal(t, PhaseApproval, loan.LoanStatus.Phase)
	require.Equal(t, StatusApproved, loan.LoanStatus.Status)

	schedule, err := svc.Repayments(context.Background(), loanID)
	require.NoError(t, err)
	require.Len(t, schedule, 12)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, entry := range schedule {
		require.InDelta(t, 1000.0, entry.Amount, 1e-9)
		require.Equal(t, start.AddDate(0, i, 0), entry.DueDate)
		require.Equal(t, RepaymentPending, entry.Status)
	}
}

func TestApproveRequiresCapturingPhase(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Approve(context.Background(), analyst, loanID, ApproveLoanRequest{
		ApprovedAmount:   12000,
		LoanDuration:     12,
		PaymentMode:      PaymentModeMonthly,
		PaymentStartDate: start,
		PaymentEndDate:   start.AddDate(1, 0, 0),
	})
	require.ErrorIs(t, err, shared.ErrPhaseViolation)
}

func TestApproveTwiceFailsSecondAttempt(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)
	approveTestLoan(t, svc, loanID, 12000, 12, PaymentModeMonthly)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Approve(context.Background(), analyst, loanID, ApproveLoanRequest{
		ApprovedAmount:   9000,
		LoanDuration:     9,
		PaymentMode:      PaymentModeMonthly,
		PaymentStartDate: start,
		PaymentEndDate:   start.AddDate(0, 9, 0),
	})
	require.ErrorIs(t, err, shared.ErrPhaseViolation)

	// The schedule stays the one from the first approval.
	schedule, err := svc.Repayments(context.Background(), loanID)
	require.NoError(t, err)
	require.Len(t, schedule, 12)
}

func TestDisburseActivatesLoan(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)
	approveTestLoan(t, svc, loanID, 12000, 12, PaymentModeMonthly)

	disburseTestLoan(t, svc, loanID)

	loan, err := svc.Get(context.Background(), loanID)
	require.NoError(t, err)
	require.Equal(t, PhaseDisbursement, loan.LoanStatus.Phase)
	require.Equal(t, StatusActive, loan.LoanStatus.Status)
	require.NotNil(t, loan.Disbursement)
}

func TestDisburseRequiresApprovalPhase(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)

	_, err := svc.Disburse(context.Background(), manager, loanID, DisburseLoanRequest{
		DisbursementMethod: "cash",
	})
	require.ErrorIs(t, err, shared.ErrPhaseViolation)
}

func activeLoan(t *testing.T, svc *Service) int64 {
	t.Helper()
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)
	approveTestLoan(t, svc, loanID, 12000, 12, PaymentModeMonthly)
	disburseTestLoan(t, svc, loanID)
	return loanID
}

func TestRecordPaymentSettlesFirstInstallment(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := activeLoan(t, svc)

	result, err := svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount:      1000,
		PaymentDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.InDelta(t, 11000.0, result.RemainingBalance, 1e-9)
	require.InDelta(t, 1000.0, result.TotalPaid, 1e-9)
	require.InDelta(t, 11000.0, result.NextDueAmount, 1e-9)

	schedule, err := svc.Repayments(context.Background(), loanID)
	require.NoError(t, err)
	require.Equal(t, RepaymentPaid, schedule[0].Status)
	require.Equal(t, RepaymentPending, schedule[1].Status)
}

func TestRecordPaymentPartialAndTopUp(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := activeLoan(t, svc)
	when := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	result, err := svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount: 1500, PaymentDate: when,
	})
	require.NoError(t, err)
	// The partial second installment drops out of the pending sum.
	require.InDelta(t, 10000.0, result.NextDueAmount, 1e-9)

	schedule, err := svc.Repayments(context.Background(), loanID)
	require.NoError(t, err)
	require.Equal(t, RepaymentPaid, schedule[0].Status)
	require.Equal(t, RepaymentPartial, schedule[1].Status)

	result, err = svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount: 500, PaymentDate: when.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.InDelta(t, 10000.0, result.RemainingBalance, 1e-9)

	schedule, err = svc.Repayments(context.Background(), loanID)
	require.NoError(t, err)
	require.Equal(t, RepaymentPaid, schedule[1].Status)
	require.Equal(t, RepaymentPending, schedule[2].Status)
}

func TestRecordPaymentNextDueSumsPendingInstallments(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := activeLoan(t, svc)
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// One installment settled leaves eleven pending.
	result, err := svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount: 1000, PaymentDate: when,
	})
	require.NoError(t, err)
	require.InDelta(t, 11000.0, result.NextDueAmount, 1e-9)

	// Ten settled plus one partial leaves a single pending installment.
	result, err = svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount: 9500, PaymentDate: when.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	require.InDelta(t, 1000.0, result.NextDueAmount, 1e-9)

	balance, err := svc.Balance(context.Background(), loanID)
	require.NoError(t, err)
	require.InDelta(t, 1000.0, balance.NextDueAmount, 1e-9)
}

func TestRecordPaymentCompletesLoan(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := activeLoan(t, svc)

	result, err := svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount:      12000,
		PaymentDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.InDelta(t, 0.0, result.RemainingBalance, 1e-9)
	require.InDelta(t, 0.0, result.NextDueAmount, 1e-9)

	loan, err := svc.Get(context.Background(), loanID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, loan.LoanStatus.Status)

	schedule, err := svc.Repayments(context.Background(), loanID)
	require.NoError(t, err)
	for _, entry := range schedule {
		require.Equal(t, RepaymentPaid, entry.Status)
	}
}

func TestRecordPaymentOverpaymentFloorsBalance(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := activeLoan(t, svc)

	result, err := svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount:      15000,
		PaymentDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.InDelta(t, 0.0, result.RemainingBalance, 1e-9)
	require.InDelta(t, 15000.0, result.TotalPaid, 1e-9)
}

func TestRecordPaymentRejectedBeforeDisbursement(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)
	approveTestLoan(t, svc, loanID, 12000, 12, PaymentModeMonthly)

	_, err := svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount:      1000,
		PaymentDate: time.Now(),
	})
	require.ErrorIs(t, err, shared.ErrPhaseViolation)
}

func TestRecordPaymentRejectedOnCompletedLoan(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := activeLoan(t, svc)

	_, err := svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount: 12000, PaymentDate: time.Now(),
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount: 100, PaymentDate: time.Now(),
	})
	require.ErrorIs(t, err, shared.ErrPhaseViolation)
}

func TestEditRestrictedAfterApproval(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)
	approveTestLoan(t, svc, loanID, 12000, 12, PaymentModeMonthly)

	amount := 9000.0
	_, err := svc.Edit(context.Background(), callCenter, loanID, EditLoanRequest{
		RequestedAmount: &amount,
	})
	require.ErrorIs(t, err, shared.ErrPhaseViolation)
}

func TestEditUpdatesContactAndAmount(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)

	contact := "0209999999"
	amount := 8000.0
	loan, err := svc.Edit(context.Background(), callCenter, loanID, EditLoanRequest{
		Contact:         &contact,
		RequestedAmount: &amount,
	})
	require.NoError(t, err)
	require.Equal(t, contact, loan.Registered.ClientContact)
	require.InDelta(t, amount, loan.Registered.RequestedAmount, 1e-9)
}

func TestDeleteRestrictedAfterApproval(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)
	captureTestLoan(t, svc, loanID)
	approveTestLoan(t, svc, loanID, 12000, 12, PaymentModeMonthly)

	err := svc.Delete(context.Background(), callCenter, loanID)
	require.ErrorIs(t, err, shared.ErrPhaseViolation)
}

func TestDeleteRemovesLoan(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := registerTestLoan(t, svc)

	require.NoError(t, svc.Delete(context.Background(), callCenter, loanID))

	_, err := svc.Get(context.Background(), loanID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBalanceOnActiveLoan(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	loanID := activeLoan(t, svc)

	_, err := svc.RecordPayment(context.Background(), manager, loanID, RecordPaymentRequest{
		Amount: 2500, PaymentDate: time.Now(),
	})
	require.NoError(t, err)

	balance, err := svc.Balance(context.Background(), loanID)
	require.NoError(t, err)
	require.InDelta(t, 12000.0, balance.TotalAmount, 1e-9)
	require.InDelta(t, 2500.0, balance.TotalPaid, 1e-9)
	require.InDelta(t, 9500.0, balance.RemainingBalance, 1e-9)
	require.InDelta(t, 9000.0, balance.NextDueAmount, 1e-9)
}

func TestListScopedToPhaseWindow(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	first := registerTestLoan(t, svc)
	second := registerTestLoan(t, svc)
	captureTestLoan(t, svc, second)
	_ = first

	list, err := svc.List(context.Background(), ListLoansRequest{Phases: []int{2}})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	require.Len(t, list.Loans, 1)
	require.Equal(t, second, list.Loans[0].ID)
	require.Equal(t, 1, list.Stats.TotalRegistrations)
	require.Equal(t, 1, list.Stats.Captured)
}

func TestGetUnknownLoan(t *testing.T) {
	svc := newTestService(newMemoryLoanRepo())
	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.True(t, errors.Is(err, ErrNotFound))
}
