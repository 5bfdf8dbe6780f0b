package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/payment"
	"github.com/vietanh2810/rally-api/internal/repository"
)

type fakeGateway struct {
	confirmCalls int
	confirmErr   error
	intents      []int64
	charged      map[string]payment.Confirmation
}

func (g *fakeGateway) Initialize(context.Context) error { return nil }
func (g *fakeGateway) Dispose() error                   { return nil }
func (g *fakeGateway) PublishableKey() string           { return "pk_test" }

func (g *fakeGateway) CreateIntent(_ context.Context, amountCents int64, currency string) (payment.Intent, error) {
	g.intents = append(g.intents, amountCents)
	return payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", AmountCents: amountCents, Currency: currency}, nil
}

func (g *fakeGateway) Confirm(_ context.Context, intentID, _ string, amountCents int64) (payment.Confirmation, error) {
	g.confirmCalls++
	if g.confirmErr != nil {
		return payment.Confirmation{}, g.confirmErr
	}
	if prev, ok := g.charged[intentID]; ok {
		return payment.Confirmation{}, &payment.AlreadyCapturedError{Confirmation: prev}
	}

	conf := payment.Confirmation{
		Status:            "succeeded",
		ProviderPaymentID: intentID,
		TransactionID:     "ch_" + intentID,
		CardBrand:         "visa",
		CardLast4:         "4242",
		AmountCents:       amountCents,
	}
	if g.charged == nil {
		g.charged = map[string]payment.Confirmation{}
	}
	g.charged[intentID] = conf
	return conf, nil
}

type fakeEvents struct {
	events     map[uint]domain.Event
	increments int
}

func (f *fakeEvents) FindByID(_ context.Context, id uint) (domain.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return domain.Event{}, repository.ErrEventNotFound
	}
	return ev, nil
}

func (f *fakeEvents) IncrementRegisteredCount(_ context.Context, id uint, delta int) (domain.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return domain.Event{}, repository.ErrEventNotFound
	}
	ev.RegisteredCount += delta
	f.events[id] = ev
	f.increments++
	return ev, nil
}

type fakeRegistrations struct {
	createErr         error
	reconciliationErr error
	registrations     []domain.Registration
	reconciliations   []domain.Reconciliation
}

func (f *fakeRegistrations) Create(_ context.Context, reg domain.Registration) (domain.Registration, error) {
	if f.createErr != nil {
		return domain.Registration{}, f.createErr
	}
	reg.ID = uint(len(f.registrations) + 1)
	f.registrations = append(f.registrations, reg)
	return reg, nil
}

func (f *fakeRegistrations) FindByProviderPayment(_ context.Context, providerPaymentID string) (domain.Registration, error) {
	for _, reg := range f.registrations {
		if reg.PaymentDetails != nil && reg.PaymentDetails.ProviderPaymentID == providerPaymentID {
			return reg, nil
		}
	}
	return domain.Registration{}, repository.ErrRegistrationNotFound
}

func (f *fakeRegistrations) CreateReconciliation(_ context.Context, rec domain.Reconciliation) (domain.Reconciliation, error) {
	if f.reconciliationErr != nil {
		return domain.Reconciliation{}, f.reconciliationErr
	}
	rec.ID = uint(len(f.reconciliations) + 1)
	f.reconciliations = append(f.reconciliations, rec)
	return rec, nil
}

func (f *fakeRegistrations) FindReconciliation(_ context.Context, id uint) (domain.Reconciliation, error) {
	for _, rec := range f.reconciliations {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.Reconciliation{}, repository.ErrReconciliationNotFound
}

func (f *fakeRegistrations) FindReconciliationByPayment(_ context.Context, providerPaymentID string) (domain.Reconciliation, error) {
	for _, rec := range f.reconciliations {
		if rec.Payment.ProviderPaymentID == providerPaymentID {
			return rec, nil
		}
	}
	return domain.Reconciliation{}, repository.ErrReconciliationNotFound
}

func (f *fakeRegistrations) ListReconciliations(_ context.Context, status domain.ReconciliationStatus) ([]domain.Reconciliation, error) {
	var out []domain.Reconciliation
	for _, rec := range f.reconciliations {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRegistrations) ResolveReconciliation(ctx context.Context, recID uint, reg domain.Registration) (domain.Registration, error) {
	for i, rec := range f.reconciliations {
		if rec.ID != recID || rec.Status != domain.ReconciliationOpen {
			continue
		}
		created, err := f.Create(ctx, reg)
		if err != nil {
			return domain.Registration{}, err
		}
		f.reconciliations[i].Status = domain.ReconciliationResolved
		f.reconciliations[i].RegistrationID = &created.ID
		return created, nil
	}
	return domain.Registration{}, repository.ErrReconciliationNotFound
}

type fakeUsers struct {
	appended map[uint][]domain.RegisteredEvent
}

func (f *fakeUsers) AppendRegisteredEvent(_ context.Context, userID uint, entry domain.RegisteredEvent) error {
	if f.appended == nil {
		f.appended = map[uint][]domain.RegisteredEvent{}
	}
	f.appended[userID] = append(f.appended[userID], entry)
	return nil
}

type fakeNotifier struct {
	published []domain.Event
}

func (f *fakeNotifier) PublishCapacity(event domain.Event) {
	f.published = append(f.published, event)
}

type checkoutFixture struct {
	svc      *CheckoutService
	gateway  *fakeGateway
	events   *fakeEvents
	regs     *fakeRegistrations
	users    *fakeUsers
	notifier *fakeNotifier
}

func teamEvent() domain.Event {
	return domain.Event{
		ID:       1,
		Title:    "Night Rally",
		Date:     time.Date(2026, 11, 7, 19, 0, 0, 0, time.UTC),
		Location: "Old Quarry",
		Status:   domain.EventActive,
		Capacity: 10,
		Pricing: domain.TeamPricing{
			BaseCents:        10000,
			ExtraMemberCents: 2500,
			MinTeamSize:      2,
			MaxTeamSize:      4,
			ShirtSizes:       []string{"S", "M", "L"},
		},
	}
}

func individualEvent() domain.Event {
	return domain.Event{
		ID:       2,
		Title:    "Time Trial",
		Date:     time.Date(2026, 11, 14, 9, 0, 0, 0, time.UTC),
		Location: "Ring Road",
		Status:   domain.EventActive,
		Pricing:  domain.IndividualPricing{PriceCents: 3500},
	}
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		gateway: &fakeGateway{},
		events: &fakeEvents{events: map[uint]domain.Event{
			1: teamEvent(),
			2: individualEvent(),
		}},
		regs:     &fakeRegistrations{},
		users:    &fakeUsers{},
		notifier: &fakeNotifier{},
	}
	f.svc = NewCheckoutService(f.events, f.regs, f.users, f.gateway, f.notifier)
	f.svc.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func members(n int) []domain.Member {
	out := make([]domain.Member, n)
	for i := range out {
		out[i] = domain.Member{
			Name:      "Driver " + string(rune('A'+i)),
			Email:     "driver" + string(rune('a'+i)) + "@example.com",
			Phone:     "555-0100",
			ShirtSize: "M",
		}
	}
	return out
}

var paid = PaymentInput{IntentID: "pi_1", PaymentMethodID: "pm_card_visa"}

func TestRegisterTeam_Success(t *testing.T) {
	f := newCheckoutFixture()

	reg, err := f.svc.RegisterTeam(context.Background(), 1, 9, members(3), paid)
	require.NoError(t, err)

	assert.Equal(t, 1, f.gateway.confirmCalls)
	require.Len(t, f.regs.registrations, 1)
	assert.Equal(t, domain.PaymentPaid, reg.PaymentStatus)
	assert.Equal(t, domain.RegistrationConfirmed, reg.Status)
	assert.Equal(t, int64(12500), reg.TotalCents)
	require.NotNil(t, reg.PaymentDetails)
	assert.Equal(t, "ch_pi_1", reg.PaymentDetails.TransactionID)
	assert.Equal(t, "4242", reg.PaymentDetails.CardLast4)
	assert.Equal(t, "Night Rally", reg.Event.Title)

	require.Len(t, f.users.appended[9], 1)
	assert.Equal(t, reg.ID, f.users.appended[9][0].RegistrationID)
	assert.Equal(t, 1, f.events.events[1].RegisteredCount)
	require.Len(t, f.notifier.published, 1)
	assert.Equal(t, 1, f.notifier.published[0].RegisteredCount)
}

func TestRegisterTeam_StoresTrimmedMembers(t *testing.T) {
	f := newCheckoutFixture()

	padded := members(2)
	padded[0].Name = "  Driver A "
	padded[0].Email = " drivera@example.com"
	padded[1].ShirtSize = " L "

	reg, err := f.svc.RegisterTeam(context.Background(), 1, 9, padded, paid)
	require.NoError(t, err)

	require.Len(t, reg.Members, 2)
	assert.Equal(t, "Driver A", reg.Members[0].Name)
	assert.Equal(t, "drivera@example.com", reg.Members[0].Email)
	assert.Equal(t, "L", reg.Members[1].ShirtSize)
}

func TestCheckout_DeclineWritesNothing(t *testing.T) {
	f := newCheckoutFixture()
	f.gateway.confirmErr = &payment.DeclineError{Code: "card_declined", Message: "Your card was declined."}

	_, err := f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)

	var decline *payment.DeclineError
	require.ErrorAs(t, err, &decline)
	assert.Equal(t, "Your card was declined.", decline.Message)
	assert.Empty(t, f.regs.registrations)
	assert.Empty(t, f.regs.reconciliations)
	assert.Empty(t, f.users.appended)
	assert.Zero(t, f.events.increments)
}

func TestCheckout_TransportAndConfigErrorsStayDistinct(t *testing.T) {
	for _, gwErr := range []error{
		&payment.TransportError{Err: errors.New("connection reset")},
		payment.ErrNotConfigured,
		payment.ErrAmountMismatch,
	} {
		f := newCheckoutFixture()
		f.gateway.confirmErr = gwErr

		_, err := f.svc.RegisterIndividual(context.Background(), 2, 9, domain.IndividualForm{
			Name: "Solo", Email: "solo@example.com", Phone: "555", EmergencyContact: "Mom", AcceptedTerms: true,
		}, paid)

		assert.ErrorIs(t, err, gwErr)
		var captured *CapturedNotRecordedError
		assert.False(t, errors.As(err, &captured))
		assert.Empty(t, f.regs.registrations)
	}
}

func TestCheckout_CapturedButNotRecorded(t *testing.T) {
	f := newCheckoutFixture()
	f.regs.createErr = errors.New("write timeout")

	_, err := f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)

	var captured *CapturedNotRecordedError
	require.ErrorAs(t, err, &captured)
	assert.Equal(t, "pi_1", captured.ProviderPaymentID)
	assert.Equal(t, "ch_pi_1", captured.TransactionID)
	assert.NotEmpty(t, captured.Reference)
	assert.Contains(t, err.Error(), "payment succeeded")
	assert.Contains(t, err.Error(), "do not pay again")
	assert.Equal(t, 1, f.gateway.confirmCalls)

	require.Len(t, f.regs.reconciliations, 1)
	rec := f.regs.reconciliations[0]
	assert.Equal(t, domain.ReconciliationOpen, rec.Status)
	assert.Equal(t, captured.Reference, rec.Reference)
	assert.Equal(t, int64(10000), rec.Draft.TotalCents)
	assert.Zero(t, f.events.increments)

	// Submitting the same payment again never reaches the gateway.
	_, err = f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	require.ErrorAs(t, err, &captured)
	assert.Equal(t, rec.Reference, captured.Reference)
	assert.Equal(t, 1, f.gateway.confirmCalls)
}

func TestCheckout_ReconciliationSaveFailureStillReportsCapture(t *testing.T) {
	f := newCheckoutFixture()
	f.regs.createErr = errors.New("connection refused")
	f.regs.reconciliationErr = errors.New("connection refused")

	_, err := f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)

	var captured *CapturedNotRecordedError
	require.ErrorAs(t, err, &captured)
	assert.Equal(t, "pi_1", captured.ProviderPaymentID)
	assert.NotEmpty(t, captured.Reference)
	assert.Empty(t, f.regs.reconciliations)
	assert.Empty(t, f.regs.registrations)
}

func TestCheckout_ResubmitOfCapturedIntentIsNeverADecline(t *testing.T) {
	f := newCheckoutFixture()
	f.regs.createErr = errors.New("connection refused")
	f.regs.reconciliationErr = errors.New("connection refused")

	_, err := f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	var captured *CapturedNotRecordedError
	require.ErrorAs(t, err, &captured)

	// Database still down: the gateway reports the earlier capture.
	_, err = f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	require.ErrorAs(t, err, &captured)
	var decline *payment.DeclineError
	assert.False(t, errors.As(err, &decline))
	assert.Equal(t, "ch_pi_1", captured.TransactionID)
	assert.Len(t, f.gateway.charged, 1)

	// Database back: the capture is recorded for reconciliation, not charged again.
	f.regs.createErr = nil
	f.regs.reconciliationErr = nil
	_, err = f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	require.ErrorAs(t, err, &captured)
	require.Len(t, f.regs.reconciliations, 1)
	rec := f.regs.reconciliations[0]
	assert.Equal(t, captured.Reference, rec.Reference)
	assert.Equal(t, "pi_1", rec.Payment.ProviderPaymentID)
	assert.Equal(t, "4242", rec.Payment.CardLast4)
	assert.Empty(t, f.regs.registrations)
	assert.Len(t, f.gateway.charged, 1)

	reg, err := f.svc.RetryReconciliation(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "ch_pi_1", reg.PaymentDetails.TransactionID)
}

func TestCheckout_DoubleSubmitAfterSuccess(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	require.NoError(t, err)

	_, err = f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	assert.ErrorIs(t, err, ErrPaymentAlreadyUsed)
	assert.Len(t, f.regs.registrations, 1)
	assert.Empty(t, f.regs.reconciliations)
	assert.Equal(t, 1, f.events.events[1].RegisteredCount)
}

func TestRetryReconciliation_PaymentAlreadyRegistered(t *testing.T) {
	f := newCheckoutFixture()
	details := domain.PaymentDetails{ProviderPaymentID: "pi_7", TransactionID: "ch_pi_7"}
	f.regs.registrations = append(f.regs.registrations, domain.Registration{ID: 1, PaymentDetails: &details})
	f.regs.reconciliations = append(f.regs.reconciliations, domain.Reconciliation{
		ID:      1,
		Payment: details,
		Status:  domain.ReconciliationOpen,
	})

	_, err := f.svc.RetryReconciliation(context.Background(), 1)

	assert.ErrorIs(t, err, ErrPaymentAlreadyUsed)
	assert.Len(t, f.regs.registrations, 1)
	assert.Equal(t, domain.ReconciliationOpen, f.regs.reconciliations[0].Status)
}

func TestRetryReconciliation(t *testing.T) {
	f := newCheckoutFixture()
	f.regs.createErr = errors.New("write timeout")

	_, err := f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	require.Error(t, err)

	f.regs.createErr = nil
	reg, err := f.svc.RetryReconciliation(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, f.gateway.confirmCalls)
	assert.Equal(t, domain.PaymentPaid, reg.PaymentStatus)
	assert.Equal(t, "ch_pi_1", reg.PaymentDetails.TransactionID)
	assert.Equal(t, domain.ReconciliationResolved, f.regs.reconciliations[0].Status)
	assert.Equal(t, 1, f.events.events[1].RegisteredCount)
	require.Len(t, f.users.appended[9], 1)

	_, err = f.svc.RetryReconciliation(context.Background(), 1)
	assert.ErrorIs(t, err, ErrReconciliationResolved)

	_, err = f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	assert.ErrorIs(t, err, ErrPaymentAlreadyUsed)
	assert.Equal(t, 1, f.gateway.confirmCalls)
}

func TestRegisterTeam_Validation(t *testing.T) {
	tests := []struct {
		name    string
		members []domain.Member
		in      PaymentInput
		wantErr error
	}{
		{name: "too few", members: members(1), in: paid, wantErr: ErrRosterSize},
		{name: "too many", members: members(5), in: paid, wantErr: ErrRosterSize},
		{
			name: "missing email",
			members: func() []domain.Member {
				m := members(2)
				m[1].Email = " "
				return m
			}(),
			in:      paid,
			wantErr: domain.ErrMissingField,
		},
		{
			name: "unknown shirt size",
			members: func() []domain.Member {
				m := members(2)
				m[0].ShirtSize = "XXL"
				return m
			}(),
			in:      paid,
			wantErr: ErrInvalidShirtSize,
		},
		{name: "no payment", members: members(2), in: PaymentInput{}, wantErr: ErrMissingPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()

			_, err := f.svc.RegisterTeam(context.Background(), 1, 9, tt.members, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.gateway.confirmCalls)
			assert.Empty(t, f.regs.registrations)
		})
	}
}

func TestRegisterTeam_EventState(t *testing.T) {
	f := newCheckoutFixture()

	full := teamEvent()
	full.RegisteredCount = full.Capacity
	f.events.events[1] = full
	_, err := f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	assert.ErrorIs(t, err, ErrEventFull)

	past := teamEvent()
	past.Status = domain.EventPast
	f.events.events[1] = past
	_, err = f.svc.RegisterTeam(context.Background(), 1, 9, members(2), paid)
	assert.ErrorIs(t, err, ErrEventClosed)

	_, err = f.svc.RegisterTeam(context.Background(), 99, 9, members(2), paid)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.svc.RegisterTeam(context.Background(), 2, 9, members(2), paid)
	assert.ErrorIs(t, err, domain.ErrWrongEventType)

	assert.Zero(t, f.gateway.confirmCalls)
}

func TestRegisterIndividual_TermsFirst(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.RegisterIndividual(context.Background(), 2, 9, domain.IndividualForm{
		Name: "Solo", Email: "solo@example.com", Phone: "555", EmergencyContact: "Mom",
	}, paid)
	assert.ErrorIs(t, err, domain.ErrTermsNotAccepted)
	assert.Zero(t, f.gateway.confirmCalls)
}

func TestRegisterIndividual_FreeEventSkipsPayment(t *testing.T) {
	f := newCheckoutFixture()
	free := individualEvent()
	free.Pricing = domain.IndividualPricing{PriceCents: 0}
	f.events.events[2] = free

	reg, err := f.svc.RegisterIndividual(context.Background(), 2, 9, domain.IndividualForm{
		Name: "Solo", Email: "solo@example.com", Phone: "555", EmergencyContact: "Mom", AcceptedTerms: true,
	}, PaymentInput{})
	require.NoError(t, err)

	assert.Zero(t, f.gateway.confirmCalls)
	assert.Nil(t, reg.PaymentDetails)
	assert.Equal(t, domain.RegistrationConfirmed, reg.Status)
}

func TestCreateIntent(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.CreateIntent(context.Background(), 0, "usd")
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	intent, err := f.svc.CreateIntent(context.Background(), 4200, "usd")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	assert.Equal(t, []int64{4200}, f.gateway.intents)
}
