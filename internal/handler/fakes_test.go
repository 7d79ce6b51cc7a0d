package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/stripe/stripe-go/v82"

	"github.com/appletondrawingclub/registration-api/internal/email"
	"github.com/appletondrawingclub/registration-api/internal/model"
	"github.com/appletondrawingclub/registration-api/internal/payment"
	"github.com/appletondrawingclub/registration-api/internal/queue"
	"github.com/appletondrawingclub/registration-api/internal/repository"
)

// fakeStore is an in-memory RegistrationStore tracking every mutation so
// tests can assert that rejected requests never touch the store.
type fakeStore struct {
	mu            sync.Mutex
	rows          map[string]*model.Registration
	inserts       int
	completedCall int
	refundedCall  int
	insertErr     error
	failAll       bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*model.Registration{}}
}

var errStoreDown = errors.New("store unavailable")

func (s *fakeStore) Insert(_ context.Context, reg *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, r := range s.rows {
		if r.EventID == reg.EventID && r.Email == reg.Email {
			return repository.ErrDuplicateRegistration
		}
	}
	s.inserts++
	cp := *reg
	s.rows[reg.ID] = &cp
	return nil
}

func (s *fakeStore) ExistsByStripeEvent(_ context.Context, stripeEventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errStoreDown
	}
	for _, r := range s.rows {
		if r.StripeEventID != nil && *r.StripeEventID == stripeEventID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) MarkCompleted(_ context.Context, id, stripeEventID, stripeSessionID string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStoreDown
	}
	r, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	s.completedCall++
	if r.StripeEventID == nil {
		r.PaymentStatus = model.PaymentStatusCompleted
		r.ProcessingStatus = model.ProcessingStatusCompleted
		r.StripeEventID = &stripeEventID
		r.StripeSessionID = &stripeSessionID
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) FindBySession(_ context.Context, stripeSessionID string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.StripeSessionID != nil && *r.StripeSessionID == stripeSessionID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrRegistrationNotFound
}

func (s *fakeStore) LatestCompletedByEmail(_ context.Context, email string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.Registration
	for _, r := range s.rows {
		if r.Email == email && r.PaymentStatus == model.PaymentStatusCompleted {
			if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
				latest = r
			}
		}
	}
	if latest == nil {
		return nil, repository.ErrRegistrationNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeStore) MarkRefunded(_ context.Context, id string, ref model.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	if r.PaymentStatus != model.PaymentStatusCompleted {
		return repository.ErrNotCompleted
	}
	s.refundedCall++
	r.PaymentStatus = model.PaymentStatusRefunded
	r.StripeRefundID = &ref.StripeRefundID
	r.RefundAmount = &ref.Amount
	t := ref.RefundedAt
	r.RefundedAt = &t
	return nil
}

func (s *fakeStore) ListByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Registration
	for _, r := range s.rows {
		if r.EventID == eventID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) get(id string) *model.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

// fakeResolver counts customer resolutions; tests assert it is never
// reached for rejected input.
type fakeResolver struct {
	calls int
	id    string
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.id == "" {
		return "cus_test", nil
	}
	return f.id, nil
}

// fakeGateway returns canned sessions instead of calling Stripe.
type fakeGateway struct {
	created    []payment.SessionParams
	session    *stripe.CheckoutSession
	sessionErr error
	byIntent   map[string]*stripe.CheckoutSession
}

func (f *fakeGateway) CreateSession(_ context.Context, p payment.SessionParams) (*stripe.CheckoutSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	f.created = append(f.created, p)
	if f.session != nil {
		return f.session, nil
	}
	return &stripe.CheckoutSession{ID: "cs_test", ClientSecret: "cs_test_secret"}, nil
}

func (f *fakeGateway) GetSession(_ context.Context, _ string) (*stripe.CheckoutSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeGateway) SessionByPaymentIntent(_ context.Context, pi string) (*stripe.CheckoutSession, error) {
	if f.byIntent == nil {
		return nil, nil
	}
	return f.byIntent[pi], nil
}

// fakeEmail records every confirmation send.
type fakeEmail struct {
	sent []email.ConfirmationParams
	err  error
}

func (f *fakeEmail) SendConfirmation(_ context.Context, p email.ConfirmationParams) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

// fakeNewsletter records subscribe attempts.
type fakeNewsletter struct {
	subscribed []string
}

func (f *fakeNewsletter) Subscribe(_ context.Context, email string) bool {
	f.subscribed = append(f.subscribed, email)
	return true
}

// fakeEvents serves a single event detail.
type fakeEvents struct {
	detail *model.EventDetail
	err    error
}

func (f *fakeEvents) GetDetail(_ context.Context, _ string) (*model.EventDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

// collectPublished returns a ConfirmedPublisher that appends into dst.
func collectPublished(dst *[]queue.RegistrationConfirmedEvent) ConfirmedPublisher {
	return func(_ context.Context, ev queue.RegistrationConfirmedEvent) error {
		*dst = append(*dst, ev)
		return nil
	}
}

// testEventDetail is a $20 life-drawing session used across tests.
func testEventDetail() *model.EventDetail {
	return &model.EventDetail{
		ID:       "evt-figure-night",
		Title:    "Figure Drawing Night",
		Date:     "2025-03-14",
		Time:     "6:30 PM",
		Price:    20,
		Capacity: 30,
		Location: model.Location{
			ID:      "loc-1",
			Name:    "The Draw",
			Address: "800 N Richmond St, Appleton",
		},
	}
}
