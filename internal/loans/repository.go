package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-credit/meridian/internal/platform/db"
	"github.com/meridian-credit/meridian/internal/shared"
)

// ErrNotFound is returned when a loan id does not exist.
var ErrNotFound = fmt.Errorf("loan %w", shared.ErrNotFound)

// Repository is the persistence port for the loan workflow. The guarded
// Advance/Apply methods embed the phase predicate in the UPDATE itself and
// report whether a row was actually moved, which is how concurrent transition
// attempts are detected.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	CreateClient(ctx context.Context, c Client) (int64, error)
	CreateLoan(ctx context.Context, l Loan) (int64, error)
	GetLoan(ctx context.Context, id int64) (*Loan, error)

	UpdateClientCapture(ctx context.Context, clientID int64, patch CaptureDetailsRequest) error
	ReplaceWitnesses(ctx context.Context, clientID int64, witnesses []WitnessInput) error
	ReplaceBusinessLocations(ctx context.Context, clientID int64, places []PlaceInput) error
	ReplaceResidences(ctx context.Context, clientID int64, places []PlaceInput) error
	AdvanceToCaptured(ctx context.Context, loanID, actorID int64) (bool, error)

	ApplyApproval(ctx context.Context, loanID int64, terms ApproveLoanRequest, actorID int64) (bool, error)
	InsertRepayments(ctx context.Context, loanID int64, schedule []Repayment) error
	ApplyDisbursement(ctx context.Context, loanID int64, req DisburseLoanRequest, actorID int64) (bool, error)

	UpdateClientContact(ctx context.Context, clientID int64, patch EditLoanRequest) error
	UpdateRequestedAmount(ctx context.Context, loanID int64, amount float64) error
	DeleteLoanCascade(ctx context.Context, loanID, clientID int64) error

	InsertPayment(ctx context.Context, p Payment) (int64, error)
	SumPayments(ctx context.Context, loanID int64) (float64, error)
	ListRepaymentsByDue(ctx context.Context, loanID int64) ([]Repayment, error)
	SetRepaymentStatus(ctx context.Context, repaymentID int64, status RepaymentStatus, paidAt time.Time) error
	MarkCompleted(ctx context.Context, loanID int64) error

	GetDetail(ctx context.Context, loanID int64) (*LoanDetail, error)
	List(ctx context.Context, req ListLoansRequest) ([]LoanDetail, int, ListStats, error)
	ListPaymentHistory(ctx context.Context, loanID int64) ([]PaymentWithReceiver, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) CreateClient(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (fullname, contact, email, location, landmark, business, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		c.Fullname, c.Contact, textOrNil(c.Email), c.Location, textOrNil(c.Landmark), textOrNil(c.Business), c.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create client: %w", err)
	}
	return id, nil
}

func (r *repository) CreateLoan(ctx context.Context, l Loan) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO loans (client_id, requested_amount, status, phase, registered_by, registration_date)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id`,
		l.ClientID, l.RequestedAmount, string(l.Status), l.Phase, l.RegisteredBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create loan: %w", err)
	}
	return id, nil
}

const loanColumns = `id, client_id, requested_amount, status, phase,
	registered_by, registration_date, captured_by, capturing_date,
	approved_amount, loan_duration, payment_mode, processing_fee, interest_rate,
	payment_start_date, payment_end_date, approved_by, approval_date,
	disbursed_by, disbursement_date, disbursement_method, disbursement_notes,
	created_at, updated_at`

func (r *repository) GetLoan(ctx context.Context, id int64) (*Loan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return loan, nil
}

func (r *repository) UpdateClientCapture(ctx context.Context, clientID int64, patch CaptureDetailsRequest) error {
	var sets []string
	var args []interface{}
	argPos := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if patch.DOB != nil {
		add("dob", *patch.DOB)
	}
	if patch.MaritalStatus != nil {
		add("marital_status", *patch.MaritalStatus)
	}
	if patch.ProfileImage != nil {
		add("profile_image", *patch.ProfileImage)
	}
	if patch.Occupation != nil {
		add("occupation", *patch.Occupation)
	}
	if patch.IDType != nil {
		add("id_type", *patch.IDType)
	}
	if patch.IDNumber != nil {
		add("id_number", *patch.IDNumber)
	}
	if patch.IDFrontImage != nil {
		add("id_front_image", *patch.IDFrontImage)
	}
	if patch.IDBackImage != nil {
		add("id_back_image", *patch.IDBackImage)
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE clients SET updated_at = NOW()"
	for _, s := range sets {
		query += ", " + s
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, clientID)

	_, err := r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) ReplaceWitnesses(ctx context.Context, clientID int64, witnesses []WitnessInput) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM client_witnesses WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("clear witnesses: %w", err)
	}
	for _, w := range witnesses {
		_, err := r.db.Exec(ctx, `
			INSERT INTO client_witnesses (client_id, fullname, contact, marital_status, email, occupation,
				residence_address, residence_gps, id_type, id_number, id_front_image, id_back_image, profile_pic)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			clientID, w.Fullname, w.Contact, textOrNil(w.MaritalStatus), textOrNil(w.Email), textOrNil(w.Occupation),
			textOrNil(w.ResidenceAddress), textOrNil(w.ResidenceGPS), textOrNil(w.IDType), textOrNil(w.IDNumber),
			textOrNil(w.IDFrontImage), textOrNil(w.IDBackImage), textOrNil(w.ProfilePic),
		)
		if err != nil {
			return fmt.Errorf("insert witness: %w", err)
		}
	}
	return nil
}

func (r *repository) ReplaceBusinessLocations(ctx context.Context, clientID int64, places []PlaceInput) error {
	return r.replacePlaces(ctx, "business_locations", clientID, places)
}

func (r *repository) ReplaceResidences(ctx context.Context, clientID int64, places []PlaceInput) error {
	return r.replacePlaces(ctx, "residences", clientID, places)
}

func (r *repository) replacePlaces(ctx context.Context, table string, clientID int64, places []PlaceInput) error {
	if _, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE client_id = $1`, table), clientID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, p := range places {
		_, err := r.db.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (client_id, name, address, gps_address, region)
			VALUES ($1, $2, $3, $4, $5)`, table),
			clientID, p.Name, p.Address, textOrNil(p.GPSAddress), textOrNil(p.Region),
		)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

// AdvanceToCaptured flips the loan to phase 2 only while phase < 2. A false
// return means a concurrent capture already advanced the loan; the detail
// fields written alongside still stand (first writer wins on phase, last
// writer wins on fields).
func (r *repository) AdvanceToCaptured(ctx context.Context, loanID, actorID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE loans SET status = $1, phase = $2, captured_by = $3,
			capturing_date = NOW(), updated_at = NOW()
		WHERE id = $4 AND phase < 2`,
		string(StatusCaptured), PhaseCapturing, actorID, loanID,
	)
	if err != nil {
		return false, fmt.Errorf("advance to captured: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyApproval persists the approved terms and moves the loan to phase 3,
// but only from phase 2 exactly. Zero rows affected signals a lost race.
func (r *repository) ApplyApproval(ctx context.Context, loanID int64, terms ApproveLoanRequest, actorID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE loans SET status = $1, phase = $2,
			approved_amount = $3, loan_duration = $4, payment_mode = $5,
			processing_fee = $6, interest_rate = $7,
			payment_start_date = $8, payment_end_date = $9,
			approved_by = $10, approval_date = NOW(), updated_at = NOW()
		WHERE id = $11 AND phase = 2`,
		string(StatusApproved), PhaseApproval,
		terms.ApprovedAmount, terms.LoanDuration, string(terms.PaymentMode),
		terms.ProcessingFee, terms.InterestRate,
		terms.PaymentStartDate, terms.PaymentEndDate,
		actorID, loanID,
	)
	if err != nil {
		return false, fmt.Errorf("apply approval: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) InsertRepayments(ctx context.Context, loanID int64, schedule []Repayment) error {
	for _, entry := range schedule {
		_, err := r.db.Exec(ctx, `
			INSERT INTO loan_repayments (loan_id, amount, due_date, payment_date, status)
			VALUES ($1, $2, $3, $4, $5)`,
			loanID, entry.Amount, entry.DueDate, entry.PaymentDate, string(entry.Status),
		)
		if err != nil {
			return fmt.Errorf("insert repayment: %w", err)
		}
	}
	return nil
}

// ApplyDisbursement moves the loan to phase 4/active from phase 3 exactly.
func (r *repository) ApplyDisbursement(ctx context.Context, loanID int64, req DisburseLoanRequest, actorID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE loans SET status = $1, phase = $2, disbursed_by = $3,
			disbursement_method = $4, disbursement_notes = $5,
			disbursement_date = NOW(), updated_at = NOW()
		WHERE id = $6 AND phase = 3`,
		string(StatusActive), PhaseDisbursement, actorID,
		req.DisbursementMethod, textOrNil(req.DisbursementNotes), loanID,
	)
	if err != nil {
		return false, fmt.Errorf("apply disbursement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) UpdateClientContact(ctx context.Context, clientID int64, patch EditLoanRequest) error {
	var sets []string
	var args []interface{}
	argPos := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if patch.Fullname != nil {
		add("fullname", *patch.Fullname)
	}
	if patch.Contact != nil {
		add("contact", *patch.Contact)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Landmark != nil {
		add("landmark", *patch.Landmark)
	}
	if patch.Business != nil {
		add("business", *patch.Business)
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE clients SET updated_at = NOW()"
	for _, s := range sets {
		query += ", " + s
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, clientID)

	_, err := r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) UpdateRequestedAmount(ctx context.Context, loanID int64, amount float64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE loans SET requested_amount = $1, updated_at = NOW() WHERE id = $2`,
		amount, loanID,
	)
	return err
}

func (r *repository) DeleteLoanCascade(ctx context.Context, loanID, clientID int64) error {
	statements := []struct {
		query string
		arg   int64
	}{
		{`DELETE FROM client_witnesses WHERE client_id = $1`, clientID},
		{`DELETE FROM business_locations WHERE client_id = $1`, clientID},
		{`DELETE FROM residences WHERE client_id = $1`, clientID},
		{`DELETE FROM loan_repayments WHERE loan_id = $1`, loanID},
		{`DELETE FROM loan_payments WHERE loan_id = $1`, loanID},
		{`DELETE FROM loans WHERE id = $1`, loanID},
		{`DELETE FROM clients WHERE id = $1`, clientID},
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt.query, stmt.arg); err != nil {
			return fmt.Errorf("delete loan cascade: %w", err)
		}
	}
	return nil
}

func (r *repository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO loan_payments (loan_id, reference, amount, payment_date, received_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		p.LoanID, p.Reference, p.Amount, p.PaymentDate, p.ReceivedBy, textOrNil(p.Notes),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (r *repository) SumPayments(ctx context.Context, loanID int64) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM loan_payments WHERE loan_id = $1`,
		loanID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

func (r *repository) ListRepaymentsByDue(ctx context.Context, loanID int64) ([]Repayment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, loan_id, amount, due_date, payment_date, status, created_at
		FROM loan_repayments
		WHERE loan_id = $1
		ORDER BY due_date ASC, id ASC`,
		loanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedule []Repayment
	for rows.Next() {
		var entry Repayment
		var status string
		if err := rows.Scan(&entry.ID, &entry.LoanID, &entry.Amount, &entry.DueDate,
			&entry.PaymentDate, &status, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Status = RepaymentStatus(status)
		schedule = append(schedule, entry)
	}
	return schedule, rows.Err()
}

func (r *repository) SetRepaymentStatus(ctx context.Context, repaymentID int64, status RepaymentStatus, paidAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE loan_repayments SET status = $1, payment_date = $2 WHERE id = $3`,
		string(status), paidAt, repaymentID,
	)
	return err
}

func (r *repository) MarkCompleted(ctx context.Context, loanID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE loans SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(StatusCompleted), loanID,
	)
	return err
}

func (r *repository) GetDetail(ctx context.Context, loanID int64) (*LoanDetail, error) {
	row := r.db.QueryRow(ctx, `
		SELECT l.id, l.client_id, l.requested_amount, l.status, l.phase,
			l.registered_by, l.registration_date, l.captured_by, l.capturing_date,
			l.approved_amount, l.loan_duration, l.payment_mode, l.processing_fee, l.interest_rate,
			l.payment_start_date, l.payment_end_date, l.approved_by, l.approval_date,
			l.disbursed_by, l.disbursement_date, l.disbursement_method, l.disbursement_notes,
			l.created_at, l.updated_at,
			c.id, c.fullname, c.contact, c.email, c.location, c.landmark, c.business,
			c.dob, c.marital_status, c.profile_image, c.occupation,
			c.id_type, c.id_number, c.id_front_image, c.id_back_image,
			u1.fullname, u2.fullname, u3.fullname, u4.fullname
		FROM loans l
		JOIN clients c ON l.client_id = c.id
		LEFT JOIN users u1 ON l.registered_by = u1.id
		LEFT JOIN users u2 ON l.captured_by = u2.id
		LEFT JOIN users u3 ON l.approved_by = u3.id
		LEFT JOIN users u4 ON l.disbursed_by = u4.id
		WHERE l.id = $1`,
		loanID,
	)

	detail, err := scanDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.loadChildren(ctx, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

func (r *repository) loadChildren(ctx context.Context, detail *LoanDetail) error {
	witnesses, err := r.listWitnesses(ctx, detail.Client.ID)
	if err != nil {
		return err
	}
	detail.Witnesses = witnesses

	locations, err := r.listPlaces(ctx, "business_locations", detail.Client.ID)
	if err != nil {
		return err
	}
	detail.BusinessLocations = locations

	residences, err := r.listPlaces(ctx, "residences", detail.Client.ID)
	if err != nil {
		return err
	}
	detail.Residences = residences
	return nil
}

func (r *repository) listWitnesses(ctx context.Context, clientID int64) ([]Witness, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, client_id, fullname, contact, marital_status, email, occupation,
			residence_address, residence_gps, id_type, id_number,
			id_front_image, id_back_image, profile_pic
		FROM client_witnesses
		WHERE client_id = $1
		ORDER BY id ASC`,
		clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var witnesses []Witness
	for rows.Next() {
		var w Witness
		var maritalStatus, email, occupation, resAddr, resGPS pgtype.Text
		var idType, idNumber, idFront, idBack, profilePic pgtype.Text
		if err := rows.Scan(&w.ID, &w.ClientID, &w.Fullname, &w.Contact,
			&maritalStatus, &email, &occupation, &resAddr, &resGPS,
			&idType, &idNumber, &idFront, &idBack, &profilePic); err != nil {
			return nil, err
		}
		w.MaritalStatus = textPtr(maritalStatus)
		w.Email = textPtr(email)
		w.Occupation = textPtr(occupation)
		w.ResidenceAddress = textPtr(resAddr)
		w.ResidenceGPS = textPtr(resGPS)
		w.IDType = textPtr(idType)
		w.IDNumber = textPtr(idNumber)
		w.IDFrontImage = textPtr(idFront)
		w.IDBackImage = textPtr(idBack)
		w.ProfilePic = textPtr(profilePic)
		witnesses = append(witnesses, w)
	}
	return witnesses, rows.Err()
}

func (r *repository) listPlaces(ctx context.Context, table string, clientID int64) ([]Place, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT id, client_id, name, address, gps_address, region
		FROM %s
		WHERE client_id = $1
		ORDER BY id ASC`, table),
		clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []Place
	for rows.Next() {
		var p Place
		var gps, region pgtype.Text
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Name, &p.Address, &gps, &region); err != nil {
			return nil, err
		}
		p.GPSAddress = textPtr(gps)
		p.Region = textPtr(region)
		places = append(places, p)
	}
	return places, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListLoansRequest) ([]LoanDetail, int, ListStats, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if len(req.Phases) > 0 {
		conditions = append(conditions, fmt.Sprintf("l.phase = ANY($%d)", argPos))
		args = append(args, req.Phases)
		argPos++
	}

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.Phase != nil {
		conditions = append(conditions, fmt.Sprintf("l.phase = $%d", argPos))
		args = append(args, *req.Phase)
		argPos++
	}
	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(c.fullname ILIKE $%d OR c.contact ILIKE $%d OR c.email ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM loans l JOIN clients c ON l.client_id = c.id %s`, whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, ListStats{}, err
	}

	query := fmt.Sprintf(`
		SELECT l.id, l.client_id, l.requested_amount, l.status, l.phase,
			l.registered_by, l.registration_date, l.captured_by, l.capturing_date,
			l.approved_amount, l.loan_duration, l.payment_mode, l.processing_fee, l.interest_rate,
			l.payment_start_date, l.payment_end_date, l.approved_by, l.approval_date,
			l.disbursed_by, l.disbursement_date, l.disbursement_method, l.disbursement_notes,
			l.created_at, l.updated_at,
			c.id, c.fullname, c.contact, c.email, c.location, c.landmark, c.business,
			c.dob, c.marital_status, c.profile_image, c.occupation,
			c.id_type, c.id_number, c.id_front_image, c.id_back_image,
			u1.fullname, u2.fullname, u3.fullname, u4.fullname
		FROM loans l
		JOIN clients c ON l.client_id = c.id
		LEFT JOIN users u1 ON l.registered_by = u1.id
		LEFT JOIN users u2 ON l.captured_by = u2.id
		LEFT JOIN users u3 ON l.approved_by = u3.id
		LEFT JOIN users u4 ON l.disbursed_by = u4.id
		%s
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, ListStats{}, err
	}
	defer rows.Close()

	var details []LoanDetail
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, 0, ListStats{}, err
		}
		details = append(details, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, ListStats{}, err
	}

	for i := range details {
		if details[i].Loan.Phase >= PhaseCapturing {
			if err := r.loadChildren(ctx, &details[i]); err != nil {
				return nil, 0, ListStats{}, err
			}
		}
	}

	stats, err := r.listStats(ctx, req)
	if err != nil {
		return nil, 0, ListStats{}, err
	}

	return details, total, stats, nil
}

// listStats ignores status/phase filters so the caller still sees the full
// breakdown within its role scope.
func (r *repository) listStats(ctx context.Context, req ListLoansRequest) (ListStats, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if len(req.Phases) > 0 {
		conditions = append(conditions, fmt.Sprintf("l.phase = ANY($%d)", argPos))
		args = append(args, req.Phases)
		argPos++
	}
	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(c.fullname ILIKE $%d OR c.contact ILIKE $%d OR c.email ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*)::int,
			COUNT(*) FILTER (WHERE l.status = 'registered')::int,
			COUNT(*) FILTER (WHERE l.status = 'captured')::int,
			COALESCE(SUM(l.requested_amount), 0)::float8
		FROM loans l
		JOIN clients c ON l.client_id = c.id
		%s`, whereClause)

	var stats ListStats
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&stats.TotalRegistrations, &stats.Registered, &stats.Captured, &stats.TotalRequested,
	)
	if err != nil {
		return ListStats{}, fmt.Errorf("list stats: %w", err)
	}
	return stats, nil
}

func (r *repository) ListPaymentHistory(ctx context.Context, loanID int64) ([]PaymentWithReceiver, error) {
	rows, err := r.db.Query(ctx, `
		SELECT lp.id, lp.loan_id, lp.reference, lp.amount, lp.payment_date,
			lp.received_by, lp.notes, lp.created_at, u.fullname
		FROM loan_payments lp
		LEFT JOIN users u ON lp.received_by = u.id
		WHERE lp.loan_id = $1
		ORDER BY lp.payment_date DESC, lp.id DESC`,
		loanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []PaymentWithReceiver
	for rows.Next() {
		var p PaymentWithReceiver
		var notes, receiverName pgtype.Text
		if err := rows.Scan(&p.ID, &p.LoanID, &p.Reference, &p.Amount, &p.PaymentDate,
			&p.ReceivedBy, &notes, &p.CreatedAt, &receiverName); err != nil {
			return nil, err
		}
		p.Notes = textPtr(notes)
		p.ReceivedByName = textPtr(receiverName)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanLoan(row pgx.Row) (*Loan, error) {
	var l Loan
	var status, paymentMode pgtype.Text
	var capturedBy, approvedBy, disbursedBy pgtype.Int8
	var capturingDate, approvalDate, disbursementDate pgtype.Timestamptz
	var paymentStart, paymentEnd pgtype.Timestamptz
	var approvedAmount, processingFee, interestRate pgtype.Float8
	var loanDuration pgtype.Int4
	var method, notes pgtype.Text

	err := row.Scan(&l.ID, &l.ClientID, &l.RequestedAmount, &status, &l.Phase,
		&l.RegisteredBy, &l.RegistrationDate, &capturedBy, &capturingDate,
		&approvedAmount, &loanDuration, &paymentMode, &processingFee, &interestRate,
		&paymentStart, &paymentEnd, &approvedBy, &approvalDate,
		&disbursedBy, &disbursementDate, &method, &notes,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}

	l.Status = LoanStatus(status.String)
	applyLoanNullables(&l, capturedBy, capturingDate, approvedAmount, loanDuration,
		paymentMode, processingFee, interestRate, paymentStart, paymentEnd,
		approvedBy, approvalDate, disbursedBy, disbursementDate, method, notes)
	return &l, nil
}

func scanDetail(row pgx.Row) (*LoanDetail, error) {
	var d LoanDetail
	var status, paymentMode pgtype.Text
	var capturedBy, approvedBy, disbursedBy pgtype.Int8
	var capturingDate, approvalDate, disbursementDate pgtype.Timestamptz
	var paymentStart, paymentEnd pgtype.Timestamptz
	var approvedAmount, processingFee, interestRate pgtype.Float8
	var loanDuration pgtype.Int4
	var method, notes pgtype.Text

	var email, landmark, business pgtype.Text
	var dob pgtype.Timestamptz
	var maritalStatus, profileImage, occupation pgtype.Text
	var idType, idNumber, idFront, idBack pgtype.Text
	var registeredName, capturedName, approvedName, disbursedName pgtype.Text

	err := row.Scan(&d.Loan.ID, &d.Loan.ClientID, &d.Loan.RequestedAmount, &status, &d.Loan.Phase,
		&d.Loan.RegisteredBy, &d.Loan.RegistrationDate, &capturedBy, &capturingDate,
		&approvedAmount, &loanDuration, &paymentMode, &processingFee, &interestRate,
		&paymentStart, &paymentEnd, &approvedBy, &approvalDate,
		&disbursedBy, &disbursementDate, &method, &notes,
		&d.Loan.CreatedAt, &d.Loan.UpdatedAt,
		&d.Client.ID, &d.Client.Fullname, &d.Client.Contact, &email, &d.Client.Location, &landmark, &business,
		&dob, &maritalStatus, &profileImage, &occupation,
		&idType, &idNumber, &idFront, &idBack,
		&registeredName, &capturedName, &approvedName, &disbursedName)
	if err != nil {
		return nil, err
	}

	d.Loan.Status = LoanStatus(status.String)
	applyLoanNullables(&d.Loan, capturedBy, capturingDate, approvedAmount, loanDuration,
		paymentMode, processingFee, interestRate, paymentStart, paymentEnd,
		approvedBy, approvalDate, disbursedBy, disbursementDate, method, notes)

	d.Client.Email = textPtr(email)
	d.Client.Landmark = textPtr(landmark)
	d.Client.Business = textPtr(business)
	if dob.Valid {
		val := dob.Time
		d.Client.DOB = &val
	}
	d.Client.MaritalStatus = textPtr(maritalStatus)
	d.Client.ProfileImage = textPtr(profileImage)
	d.Client.Occupation = textPtr(occupation)
	d.Client.IDType = textPtr(idType)
	d.Client.IDNumber = textPtr(idNumber)
	d.Client.IDFrontImage = textPtr(idFront)
	d.Client.IDBackImage = textPtr(idBack)

	d.RegisteredByName = textPtr(registeredName)
	d.CapturedByName = textPtr(capturedName)
	d.ApprovedByName = textPtr(approvedName)
	d.DisbursedByName = textPtr(disbursedName)
	return &d, nil
}

func applyLoanNullables(l *Loan,
	capturedBy pgtype.Int8, capturingDate pgtype.Timestamptz,
	approvedAmount pgtype.Float8, loanDuration pgtype.Int4,
	paymentMode pgtype.Text, processingFee, interestRate pgtype.Float8,
	paymentStart, paymentEnd pgtype.Timestamptz,
	approvedBy pgtype.Int8, approvalDate pgtype.Timestamptz,
	disbursedBy pgtype.Int8, disbursementDate pgtype.Timestamptz,
	method, notes pgtype.Text,
) {
	if capturedBy.Valid {
		val := capturedBy.Int64
		l.CapturedBy = &val
	}
	if capturingDate.Valid {
		val := capturingDate.Time
		l.CapturingDate = &val
	}
	if approvedAmount.Valid {
		val := approvedAmount.Float64
		l.ApprovedAmount = &val
	}
	if loanDuration.Valid {
		val := int(loanDuration.Int32)
		l.LoanDuration = &val
	}
	if paymentMode.Valid {
		val := PaymentMode(paymentMode.String)
		l.PaymentMode = &val
	}
	if processingFee.Valid {
		val := processingFee.Float64
		l.ProcessingFee = &val
	}
	if interestRate.Valid {
		val := interestRate.Float64
		l.InterestRate = &val
	}
	if paymentStart.Valid {
		val := paymentStart.Time
		l.PaymentStartDate = &val
	}
	if paymentEnd.Valid {
		val := paymentEnd.Time
		l.PaymentEndDate = &val
	}
	if approvedBy.Valid {
		val := approvedBy.Int64
		l.ApprovedBy = &val
	}
	if approvalDate.Valid {
		val := approvalDate.Time
		l.ApprovalDate = &val
	}
	if disbursedBy.Valid {
		val := disbursedBy.Int64
		l.DisbursedBy = &val
	}
	if disbursementDate.Valid {
		val := disbursementDate.Time
		l.DisbursementDate = &val
	}
	if method.Valid {
		val := method.String
		l.DisbursementMethod = &val
	}
	if notes.Valid {
		val := notes.String
		l.DisbursementNotes = &val
	}
}

func textOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	val := t.String
	return &val
}
