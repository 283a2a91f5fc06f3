package loans

import "time"

// RegisterLoanRequest opens a loan at phase 1 with the borrower's basic identity.
type RegisterLoanRequest struct {
	Fullname        string  `json:"fullname" validate:"required,max=200"`
	Contact         string  `json:"contact" validate:"required,max=30"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	Location        string  `json:"location" validate:"required,max=200"`
	Landmark        *string `json:"landmark,omitempty"`
	Business        *string `json:"business,omitempty"`
	RequestedAmount float64 `json:"requested_amount" validate:"required,gt=0"`
}

// WitnessInput is one guarantor supplied during capture.
type WitnessInput struct {
	Fullname         string  `json:"fullname" validate:"required,max=200"`
	Contact          string  `json:"contact" validate:"required,max=30"`
	MaritalStatus    *string `json:"marital_status,omitempty"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Occupation       *string `json:"occupation,omitempty"`
	ResidenceAddress *string `json:"residence_address,omitempty"`
	ResidenceGPS     *string `json:"residence_gps,omitempty"`
	IDType           *string `json:"id_type,omitempty"`
	IDNumber         *string `json:"id_number,omitempty"`
	IDFrontImage     *string `json:"id_front_image,omitempty"`
	IDBackImage      *string `json:"id_back_image,omitempty"`
	ProfilePic       *string `json:"profile_pic,omitempty"`
}

// PlaceInput is one business location or residence supplied during capture.
type PlaceInput struct {
	Name       string  `json:"name" validate:"required,max=200"`
	Address    string  `json:"address" validate:"required,max=300"`
	GPSAddress *string `json:"gps_address,omitempty"`
	Region     *string `json:"region,omitempty"`
}

// CaptureDetailsRequest carries the phase-2 KYC patch. Child collections are
// replaced wholesale, not merged.
type CaptureDetailsRequest struct {
	DOB               *time.Time     `json:"dob,omitempty"`
	MaritalStatus     *string        `json:"marital_status,omitempty" validate:"omitempty,oneof=single married divorced widowed"`
	ProfileImage      *string        `json:"profile_image,omitempty"`
	Occupation        *string        `json:"occupation,omitempty"`
	IDType            *string        `json:"id_type,omitempty"`
	IDNumber          *string        `json:"id_number,omitempty"`
	IDFrontImage      *string        `json:"id_front_image,omitempty"`
	IDBackImage       *string        `json:"id_back_image,omitempty"`
	Witnesses         []WitnessInput `json:"witnesses,omitempty" validate:"omitempty,dive"`
	BusinessLocations []PlaceInput   `json:"business_locations,omitempty" validate:"omitempty,dive"`
	Residences        []PlaceInput   `json:"residences,omitempty" validate:"omitempty,dive"`
}

// ApproveLoanRequest carries the financial terms fixed at approval.
type ApproveLoanRequest struct {
	ApprovedAmount   float64     `json:"approved_amount" validate:"required,gt=0"`
	LoanDuration     int         `json:"loan_duration" validate:"required,gt=0"`
	PaymentMode      PaymentMode `json:"payment_mode" validate:"required,oneof=weekly monthly"`
	ProcessingFee    float64     `json:"processing_fee" validate:"gte=0"`
	InterestRate     float64     `json:"interest_rate" validate:"gte=0,lte=100"`
	PaymentStartDate time.Time   `json:"payment_start_date" validate:"required"`
	PaymentEndDate   time.Time   `json:"payment_end_date" validate:"required"`
}

// DisburseLoanRequest records how the money left the building.
type DisburseLoanRequest struct {
	DisbursementMethod string  `json:"disbursement_method" validate:"required,oneof=cash bank_transfer mobile_money cheque"`
	DisbursementNotes  *string `json:"disbursement_notes,omitempty"`
}

// EditLoanRequest is a partial update allowed only in phases 1-2.
type EditLoanRequest struct {
	Fullname        *string  `json:"fullname,omitempty" validate:"omitempty,max=200"`
	Contact         *string  `json:"contact,omitempty" validate:"omitempty,max=30"`
	Email           *string  `json:"email,omitempty" validate:"omitempty,email"`
	Location        *string  `json:"location,omitempty" validate:"omitempty,max=200"`
	Landmark        *string  `json:"landmark,omitempty"`
	Business        *string  `json:"business,omitempty"`
	RequestedAmount *float64 `json:"requested_amount,omitempty" validate:"omitempty,gt=0"`
}

// RecordPaymentRequest appends a money receipt to the ledger.
type RecordPaymentRequest struct {
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	PaymentDate time.Time `json:"payment_date" validate:"required"`
	Notes       *string   `json:"notes,omitempty"`
}

// ListLoansRequest filters the loan listing.
type ListLoansRequest struct {
	Status *LoanStatus `json:"status,omitempty"`
	Phase  *int        `json:"phase,omitempty" validate:"omitempty,gte=1,lte=4"`
	Search string      `json:"search,omitempty"`
	// Phases scopes the listing to the caller's role window; empty means all.
	Phases []int `json:"-"`
	Limit  int   `json:"limit" validate:"gte=0,lte=200"`
	Offset int   `json:"offset" validate:"gte=0"`
}

// ListStats is the headline block shown above the loan listing.
type ListStats struct {
	TotalRegistrations int     `json:"total_registrations"`
	Registered         int     `json:"registered"`
	Captured           int     `json:"captured"`
	TotalRequested     float64 `json:"total_requested"`
}

// LoanList is a page of structured loans plus listing stats.
type LoanList struct {
	Loans      []StructuredLoan `json:"loans"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	Stats      ListStats        `json:"stats"`
}
