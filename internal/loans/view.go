package loans

import (
	"math"
	"time"
)

// LoanDetail is the flat persisted row set for one loan: the loan row joined
// with its client, the resolver names of the four phase actors, and the
// capture-phase child collections.
type LoanDetail struct {
	Loan
	Client            Client
	RegisteredByName  *string
	CapturedByName    *string
	ApprovedByName    *string
	DisbursedByName   *string
	Witnesses         []Witness
	BusinessLocations []Place
	Residences        []Place
}

// RegisteredSection groups the phase-1 registration data.
type RegisteredSection struct {
	ClientID         int64     `json:"client_id"`
	ClientName       string    `json:"client_name"`
	ClientContact    string    `json:"client_contact"`
	ClientEmail      *string   `json:"client_email,omitempty"`
	ClientLocation   string    `json:"client_location"`
	ClientLandmark   *string   `json:"client_landmark,omitempty"`
	ClientBusiness   *string   `json:"client_business,omitempty"`
	RequestedAmount  float64   `json:"requested_amount"`
	RegisteredBy     int64     `json:"registered_by"`
	RegisteredByName *string   `json:"registered_by_name,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
}

// CapturedSection groups the phase-2 KYC data.
type CapturedSection struct {
	CapturedBy        *int64     `json:"captured_by,omitempty"`
	CapturedByName    *string    `json:"captured_by_name,omitempty"`
	CapturingDate     *time.Time `json:"capturing_date,omitempty"`
	DOB               *time.Time `json:"dob,omitempty"`
	MaritalStatus     *string    `json:"marital_status,omitempty"`
	Occupation        *string    `json:"occupation,omitempty"`
	ProfileImage      *string    `json:"profile_image,omitempty"`
	IDType            *string    `json:"id_type,omitempty"`
	IDNumber          *string    `json:"id_number,omitempty"`
	IDFrontImage      *string    `json:"id_front_image,omitempty"`
	IDBackImage       *string    `json:"id_back_image,omitempty"`
	Witnesses         []Witness  `json:"witnesses"`
	BusinessLocations []Place    `json:"business_locations"`
	Residences        []Place    `json:"residences"`
}

// ApprovedSection groups the phase-3 financial terms.
type ApprovedSection struct {
	ApprovedAmount   *float64     `json:"approved_amount,omitempty"`
	LoanDuration     *int         `json:"loan_duration,omitempty"`
	PaymentMode      *PaymentMode `json:"payment_mode,omitempty"`
	ProcessingFee    *float64     `json:"processing_fee,omitempty"`
	InterestRate     *float64     `json:"interest_rate,omitempty"`
	PaymentStartDate *time.Time   `json:"payment_start_date,omitempty"`
	PaymentEndDate   *time.Time   `json:"payment_end_date,omitempty"`
	ApprovedBy       *int64       `json:"approved_by,omitempty"`
	ApprovedByName   *string      `json:"approved_by_name,omitempty"`
	ApprovalDate     *time.Time   `json:"approval_date,omitempty"`
}

// DisbursementSection groups the phase-4 payout data.
type DisbursementSection struct {
	DisbursedBy        *int64     `json:"disbursed_by,omitempty"`
	DisbursedByName    *string    `json:"disbursed_by_name,omitempty"`
	DisbursementDate   *time.Time `json:"disbursement_date,omitempty"`
	DisbursementMethod *string    `json:"disbursement_method,omitempty"`
	DisbursementNotes  *string    `json:"disbursement_notes,omitempty"`
}

// StatusSection carries the workflow markers.
type StatusSection struct {
	Status           LoanStatus `json:"status"`
	Phase            int        `json:"phase"`
	PaymentStartDate *time.Time `json:"payment_start_date,omitempty"`
}

// StructuredLoan is the phase-sectioned read view used by every read path.
type StructuredLoan struct {
	ID           int64                `json:"id"`
	Registered   RegisteredSection    `json:"registered"`
	Captured     *CapturedSection     `json:"captured"`
	Approved     *ApprovedSection     `json:"approved"`
	Disbursement *DisbursementSection `json:"disbursement"`
	LoanStatus   StatusSection        `json:"loan_status"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Structure assembles the sectioned view from the flat row set. It is a pure
// transform with no side effects: sections for phases the loan has not entered
// come back nil, so a freshly registered loan renders with only the
// registration block populated.
func Structure(d LoanDetail) StructuredLoan {
	view := StructuredLoan{
		ID: d.Loan.ID,
		Registered: RegisteredSection{
			ClientID:         d.Client.ID,
			ClientName:       d.Client.Fullname,
			ClientContact:    d.Client.Contact,
			ClientEmail:      d.Client.Email,
			ClientLocation:   d.Client.Location,
			ClientLandmark:   d.Client.Landmark,
			ClientBusiness:   d.Client.Business,
			RequestedAmount:  d.Loan.RequestedAmount,
			RegisteredBy:     d.Loan.RegisteredBy,
			RegisteredByName: d.RegisteredByName,
			RegistrationDate: d.Loan.RegistrationDate,
		},
		LoanStatus: StatusSection{
			Status:           d.Loan.Status,
			Phase:            d.Loan.Phase,
			PaymentStartDate: d.Loan.PaymentStartDate,
		},
		CreatedAt: d.Loan.CreatedAt,
		UpdatedAt: d.Loan.UpdatedAt,
	}

	if d.Loan.Phase >= PhaseCapturing || d.Loan.CapturedBy != nil {
		witnesses := d.Witnesses
		if witnesses == nil {
			witnesses = []Witness{}
		}
		locations := d.BusinessLocations
		if locations == nil {
			locations = []Place{}
		}
		residences := d.Residences
		if residences == nil {
			residences = []Place{}
		}
		view.Captured = &CapturedSection{
			CapturedBy:        d.Loan.CapturedBy,
			CapturedByName:    d.CapturedByName,
			CapturingDate:     d.Loan.CapturingDate,
			DOB:               d.Client.DOB,
			MaritalStatus:     d.Client.MaritalStatus,
			Occupation:        d.Client.Occupation,
			ProfileImage:      d.Client.ProfileImage,
			IDType:            d.Client.IDType,
			IDNumber:          d.Client.IDNumber,
			IDFrontImage:      d.Client.IDFrontImage,
			IDBackImage:       d.Client.IDBackImage,
			Witnesses:         witnesses,
			BusinessLocations: locations,
			Residences:        residences,
		}
	}

	if d.Loan.Phase >= PhaseApproval {
		view.Approved = &ApprovedSection{
			ApprovedAmount:   d.Loan.ApprovedAmount,
			LoanDuration:     d.Loan.LoanDuration,
			PaymentMode:      d.Loan.PaymentMode,
			ProcessingFee:    d.Loan.ProcessingFee,
			InterestRate:     d.Loan.InterestRate,
			PaymentStartDate: d.Loan.PaymentStartDate,
			PaymentEndDate:   d.Loan.PaymentEndDate,
			ApprovedBy:       d.Loan.ApprovedBy,
			ApprovedByName:   d.ApprovedByName,
			ApprovalDate:     d.Loan.ApprovalDate,
		}
	}

	if d.Loan.Phase >= PhaseDisbursement {
		view.Disbursement = &DisbursementSection{
			DisbursedBy:        d.Loan.DisbursedBy,
			DisbursedByName:    d.DisbursedByName,
			DisbursementDate:   d.Loan.DisbursementDate,
			DisbursementMethod: d.Loan.DisbursementMethod,
			DisbursementNotes:  d.Loan.DisbursementNotes,
		}
	}

	return view
}

// TotalPages computes ceil(total/limit) for listings.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
