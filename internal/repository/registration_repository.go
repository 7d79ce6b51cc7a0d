package repository

import (
	"context"
	"database/sql"

	"github.com/appletondrawingclub/registration-api/internal/model"
)

// RegistrationRepo provides persistence for registration rows. All
// timestamp fields are stored in UTC. Concurrency correctness is pushed
// to the table's constraints: unique (event_id, email) prevents duplicate
// registrations and the unique index on stripe_event_id guarantees a
// webhook event is applied to at most one row.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, event_id, name, email, quantity, payment_method,
	payment_status, processing_status, newsletter_signup, stripe_customer_id,
	stripe_session_id, stripe_event_id, stripe_refund_id, refunded_at,
	refund_reason, refund_amount, created_at`

// Insert persists a new registration. Constraint violations are mapped to
// ErrDuplicateRegistration / ErrEventNotFound; the row is re-read after the
// insert so database defaults (created_at) are populated on the model.
func (r *RegistrationRepo) Insert(ctx context.Context, reg *model.Registration) error {
	const q = `INSERT INTO registrations
		(id, event_id, name, email, quantity, payment_method, payment_status,
		 processing_status, newsletter_signup, stripe_customer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		reg.ID, reg.EventID, reg.Name, reg.Email, reg.Quantity, reg.PaymentMethod,
		reg.PaymentStatus, reg.ProcessingStatus, reg.NewsletterSignup, reg.StripeCustomerID,
	)
	if err != nil {
		return MapInsertError(err)
	}
	fresh, err := r.GetByID(ctx, reg.ID)
	if err != nil {
		return err
	}
	*reg = *fresh
	return nil
}

// GetByID returns a single registration by its id, or ErrRegistrationNotFound.
func (r *RegistrationRepo) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// ExistsByStripeEvent reports whether any registration has already been
// stamped with the given Stripe event id. This is the webhook idempotency
// guard: a redelivered event that finds a match is a no-op.
func (r *RegistrationRepo) ExistsByStripeEvent(ctx context.Context, stripeEventID string) (bool, error) {
	const q = `SELECT COUNT(1) FROM registrations WHERE stripe_event_id = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, stripeEventID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkCompleted transitions a registration to paid-and-processed and stamps
// the Stripe event and session ids. The stripe_event_id predicate keeps the
// stamp write-once even if two deliveries race past the existence check.
func (r *RegistrationRepo) MarkCompleted(ctx context.Context, id, stripeEventID, stripeSessionID string) (*model.Registration, error) {
	const q = `UPDATE registrations
		SET payment_status = ?, processing_status = ?, stripe_event_id = ?, stripe_session_id = ?
		WHERE id = ? AND stripe_event_id IS NULL`
	res, err := r.db.ExecContext(ctx, q,
		model.PaymentStatusCompleted, model.ProcessingStatusCompleted,
		stripeEventID, stripeSessionID, id,
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the id is unknown or the row was already reconciled.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, ErrRegistrationNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// FindBySession returns the registration tied to a checkout session, or
// ErrRegistrationNotFound. Used by refund reconciliation to locate the
// original row through the charge's payment intent.
func (r *RegistrationRepo) FindBySession(ctx context.Context, stripeSessionID string) (*model.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE stripe_session_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, stripeSessionID))
}

// LatestCompletedByEmail returns the most recent completed registration for
// a billing email. This is the refund fallback heuristic when a charge
// cannot be tied back to a session; it is best-effort and documented as
// untested against real refund traffic.
func (r *RegistrationRepo) LatestCompletedByEmail(ctx context.Context, email string) (*model.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations
		WHERE email = ? AND payment_status = ?
		ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email, model.PaymentStatusCompleted))
}

// MarkRefunded records a refund against a completed registration. The
// payment_status predicate enforces the forward-only lifecycle: a pending
// row can never jump straight to refunded.
func (r *RegistrationRepo) MarkRefunded(ctx context.Context, id string, ref model.Refund) error {
	const q = `UPDATE registrations
		SET payment_status = ?, refunded_at = ?, refund_reason = ?, refund_amount = ?, stripe_refund_id = ?
		WHERE id = ? AND payment_status = ?`
	res, err := r.db.ExecContext(ctx, q,
		model.PaymentStatusRefunded, ref.RefundedAt.UTC(), ref.Reason, ref.Amount,
		ref.StripeRefundID, id, model.PaymentStatusCompleted,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return ErrRegistrationNotFound
		}
		return ErrNotCompleted
	}
	return nil
}

// ListByEvent returns all registrations for an event, newest first. Used by
// the admin listing endpoint.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations
		WHERE event_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *reg)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RegistrationRepo) scanOne(row *sql.Row) (*model.Registration, error) {
	reg, err := scanRegistration(row)
	if err == sql.ErrNoRows {
		return nil, ErrRegistrationNotFound
	}
	return reg, err
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var reg model.Registration
	var sessionID, stripeEventID, refundID, refundReason sql.NullString
	var refundedAt sql.NullTime
	var refundAmount sql.NullFloat64
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Quantity,
		&reg.PaymentMethod, &reg.PaymentStatus, &reg.ProcessingStatus,
		&reg.NewsletterSignup, &reg.StripeCustomerID,
		&sessionID, &stripeEventID, &refundID, &refundedAt, &refundReason, &refundAmount,
		&reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sessionID.Valid {
		reg.StripeSessionID = &sessionID.String
	}
	if stripeEventID.Valid {
		reg.StripeEventID = &stripeEventID.String
	}
	if refundID.Valid {
		reg.StripeRefundID = &refundID.String
	}
	if refundedAt.Valid {
		t := refundedAt.Time.UTC()
		reg.RefundedAt = &t
	}
	if refundReason.Valid {
		reg.RefundReason = &refundReason.String
	}
	if refundAmount.Valid {
		reg.RefundAmount = &refundAmount.Float64
	}
	reg.CreatedAt = reg.CreatedAt.UTC()
	return &reg, nil
}
