package loans

import "time"

// LoanStatus tracks where a loan sits in its lifecycle.
type LoanStatus string

const (
	StatusRegistered LoanStatus = "registered"
	StatusCaptured   LoanStatus = "captured"
	StatusApproved   LoanStatus = "approved"
	StatusActive     LoanStatus = "active"
	StatusCompleted  LoanStatus = "completed"
	StatusDefaulted  LoanStatus = "defaulted"
)

// Workflow phases. Phase is monotonically non-decreasing for the life of a loan.
const (
	PhaseRegistration = 1
	PhaseCapturing    = 2
	PhaseApproval     = 3
	PhaseDisbursement = 4
)

// PaymentMode selects the installment spacing.
type PaymentMode string

const (
	PaymentModeWeekly  PaymentMode = "weekly"
	PaymentModeMonthly PaymentMode = "monthly"
)

// RepaymentStatus is the derived display state of a schedule entry.
type RepaymentStatus string

const (
	RepaymentPending RepaymentStatus = "pending"
	RepaymentPartial RepaymentStatus = "partial"
	RepaymentPaid    RepaymentStatus = "paid"
)

// Client is the borrower attached to a loan. Basic identity is captured at
// registration; the KYC fields are filled in during the capturing phase.
type Client struct {
	ID            int64      `json:"id"`
	Fullname      string     `json:"fullname"`
	Contact       string     `json:"contact"`
	Email         *string    `json:"email,omitempty"`
	Location      string     `json:"location"`
	Landmark      *string    `json:"landmark,omitempty"`
	Business      *string    `json:"business,omitempty"`
	DOB           *time.Time `json:"dob,omitempty"`
	MaritalStatus *string    `json:"marital_status,omitempty"`
	ProfileImage  *string    `json:"profile_image,omitempty"`
	Occupation    *string    `json:"occupation,omitempty"`
	IDType        *string    `json:"id_type,omitempty"`
	IDNumber      *string    `json:"id_number,omitempty"`
	IDFrontImage  *string    `json:"id_front_image,omitempty"`
	IDBackImage   *string    `json:"id_back_image,omitempty"`
	CreatedBy     int64      `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Witness is a capture-phase guarantor record, replaced wholesale on recapture.
type Witness struct {
	ID               int64   `json:"id"`
	ClientID         int64   `json:"client_id"`
	Fullname         string  `json:"fullname"`
	Contact          string  `json:"contact"`
	MaritalStatus    *string `json:"marital_status,omitempty"`
	Email            *string `json:"email,omitempty"`
	Occupation       *string `json:"occupation,omitempty"`
	ResidenceAddress *string `json:"residence_address,omitempty"`
	ResidenceGPS     *string `json:"residence_gps,omitempty"`
	IDType           *string `json:"id_type,omitempty"`
	IDNumber         *string `json:"id_number,omitempty"`
	IDFrontImage     *string `json:"id_front_image,omitempty"`
	IDBackImage      *string `json:"id_back_image,omitempty"`
	ProfilePic       *string `json:"profile_pic,omitempty"`
}

// Place covers both business locations and residences captured in phase 2.
type Place struct {
	ID         int64   `json:"id"`
	ClientID   int64   `json:"client_id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	GPSAddress *string `json:"gps_address,omitempty"`
	Region     *string `json:"region,omitempty"`
}

// Loan is the central workflow entity.
type Loan struct {
	ID              int64      `json:"id"`
	ClientID        int64      `json:"client_id"`
	RequestedAmount float64    `json:"requested_amount"`
	Status          LoanStatus `json:"status"`
	Phase           int        `json:"phase"`

	RegisteredBy     int64     `json:"registered_by"`
	RegistrationDate time.Time `json:"registration_date"`

	CapturedBy    *int64     `json:"captured_by,omitempty"`
	CapturingDate *time.Time `json:"capturing_date,omitempty"`

	ApprovedAmount   *float64     `json:"approved_amount,omitempty"`
	LoanDuration     *int         `json:"loan_duration,omitempty"`
	PaymentMode      *PaymentMode `json:"payment_mode,omitempty"`
	ProcessingFee    *float64     `json:"processing_fee,omitempty"`
	InterestRate     *float64     `json:"interest_rate,omitempty"`
	PaymentStartDate *time.Time   `json:"payment_start_date,omitempty"`
	PaymentEndDate   *time.Time   `json:"payment_end_date,omitempty"`
	ApprovedBy       *int64       `json:"approved_by,omitempty"`
	ApprovalDate     *time.Time   `json:"approval_date,omitempty"`

	DisbursedBy        *int64     `json:"disbursed_by,omitempty"`
	DisbursementDate   *time.Time `json:"disbursement_date,omitempty"`
	DisbursementMethod *string    `json:"disbursement_method,omitempty"`
	DisbursementNotes  *string    `json:"disbursement_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repayment is one schedule entry materialized at approval. Immutable except
// for Status and PaymentDate, which the allocation pass re-derives.
type Repayment struct {
	ID          int64           `json:"id"`
	LoanID      int64           `json:"loan_id"`
	Amount      float64         `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	PaymentDate time.Time       `json:"payment_date"`
	Status      RepaymentStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Payment is one actual money receipt. Append-only; the sum of a loan's
// payments is the authoritative total-paid figure.
type Payment struct {
	ID          int64     `json:"id"`
	LoanID      int64     `json:"loan_id"`
	Reference   string    `json:"reference"`
	Amount      float64   `json:"amount"`
	PaymentDate time.Time `json:"payment_date"`
	ReceivedBy  int64     `json:"received_by"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentWithReceiver decorates a ledger entry with the cashier's name.
type PaymentWithReceiver struct {
	Payment
	ReceivedByName *string `json:"received_by_name,omitempty"`
}

// Balance summarizes the money position of a loan.
type Balance struct {
	TotalAmount      float64 `json:"total_amount"`
	TotalPaid        float64 `json:"total_paid"`
	RemainingBalance float64 `json:"remaining_balance"`
	NextDueAmount    float64 `json:"next_due_amount"`
}

// PaymentResult is returned by RecordPayment so callers can show an immediate
// balance update without a second query.
type PaymentResult struct {
	RemainingBalance float64 `json:"remaining_balance"`
	TotalPaid        float64 `json:"total_paid"`
	NextDueAmount    float64 `json:"next_due_amount"`
}
