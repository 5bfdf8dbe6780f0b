package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/payment"
	"github.com/vietanh2810/rally-api/internal/repository"
)

var (
	ErrEventFull              = errors.New("event is full")
	ErrEventClosed            = errors.New("event is no longer accepting registrations")
	ErrMissingPayment         = errors.New("payment intent and payment method are required")
	ErrInvalidShirtSize       = errors.New("shirt size is not offered for this event")
	ErrPaymentAlreadyUsed     = errors.New("this payment has already been used for a registration")
	ErrReconciliationNotFound = repository.ErrReconciliationNotFound
	ErrReconciliationResolved = errors.New("reconciliation is already resolved")

	errCapturedWithoutRegistration = errors.New("payment intent was captured earlier without a registration")
)

// CapturedNotRecordedError means the card was charged but the registration
// could not be written. The client must not pay again.
type CapturedNotRecordedError struct {
	Reference         string
	TransactionID     string
	ProviderPaymentID string
	Err               error
}

func (e *CapturedNotRecordedError) Error() string {
	return fmt.Sprintf("payment succeeded but the registration could not be recorded (reference %s); "+
		"please contact support and do not pay again", e.Reference)
}

func (e *CapturedNotRecordedError) Unwrap() error {
	return e.Err
}

type CheckoutEventRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	IncrementRegisteredCount(ctx context.Context, id uint, delta int) (domain.Event, error)
}

type CheckoutRegistrationRepository interface {
	Create(ctx context.Context, reg domain.Registration) (domain.Registration, error)
	FindByProviderPayment(ctx context.Context, providerPaymentID string) (domain.Registration, error)
	CreateReconciliation(ctx context.Context, rec domain.Reconciliation) (domain.Reconciliation, error)
	FindReconciliation(ctx context.Context, id uint) (domain.Reconciliation, error)
	FindReconciliationByPayment(ctx context.Context, providerPaymentID string) (domain.Reconciliation, error)
	ListReconciliations(ctx context.Context, status domain.ReconciliationStatus) ([]domain.Reconciliation, error)
	ResolveReconciliation(ctx context.Context, recID uint, reg domain.Registration) (domain.Registration, error)
}

type RegisteredEventAppender interface {
	AppendRegisteredEvent(ctx context.Context, userID uint, entry domain.RegisteredEvent) error
}

// CapacityNotifier is told about every change of an event's registered count.
type CapacityNotifier interface {
	PublishCapacity(event domain.Event)
}

// PaymentInput references a payment intent the card widget has collected a
// payment method for.
type PaymentInput struct {
	IntentID        string
	PaymentMethodID string
}

type CheckoutService struct {
	events   CheckoutEventRepository
	regs     CheckoutRegistrationRepository
	users    RegisteredEventAppender
	gateway  payment.Gateway
	notifier CapacityNotifier
	now      func() time.Time
}

func NewCheckoutService(
	events CheckoutEventRepository,
	regs CheckoutRegistrationRepository,
	users RegisteredEventAppender,
	gateway payment.Gateway,
	notifier CapacityNotifier,
) *CheckoutService {
	return &CheckoutService{
		events:   events,
		regs:     regs,
		users:    users,
		gateway:  gateway,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *CheckoutService) PublishableKey() string {
	return s.gateway.PublishableKey()
}

func (s *CheckoutService) CreateIntent(ctx context.Context, amountCents int64, currency string) (payment.Intent, error) {
	if amountCents <= 0 {
		return payment.Intent{}, payment.ErrInvalidAmount
	}

	intent, err := s.gateway.CreateIntent(ctx, amountCents, currency)
	if err != nil {
		return payment.Intent{}, fmt.Errorf("s.gateway.CreateIntent -> %w", err)
	}

	return intent, nil
}

// BuildTeamDraft runs the posted members through a team roster, so the same
// bounds and required fields apply as in the interactive form.
func (s *CheckoutService) BuildTeamDraft(event domain.Event, userID uint, members []domain.Member) (domain.RegistrationDraft, error) {
	pricing, ok := event.Pricing.(domain.TeamPricing)
	if !ok {
		return domain.RegistrationDraft{}, domain.ErrWrongEventType
	}
	if len(members) < pricing.MinTeamSize || len(members) > pricing.MaxTeamSize {
		return domain.RegistrationDraft{}, fmt.Errorf("%w: %d not in [%d, %d]",
			ErrRosterSize, len(members), pricing.MinTeamSize, pricing.MaxTeamSize)
	}

	roster, err := domain.NewTeamRoster(event)
	if err != nil {
		return domain.RegistrationDraft{}, err
	}
	for roster.Len() < len(members) {
		if err = roster.AddMember(); err != nil {
			return domain.RegistrationDraft{}, err
		}
	}

	for i, m := range members {
		size := strings.TrimSpace(m.ShirtSize)
		if pricing.RequiresShirts() && size != "" && !slices.Contains(pricing.ShirtSizes, size) {
			return domain.RegistrationDraft{}, fmt.Errorf("%w: member %d chose %q", ErrInvalidShirtSize, i+1, m.ShirtSize)
		}

		fields := map[domain.MemberField]string{
			domain.FieldName:             m.Name,
			domain.FieldEmail:            m.Email,
			domain.FieldPhone:            m.Phone,
			domain.FieldEmergencyContact: m.EmergencyContact,
			domain.FieldShirtSize:        m.ShirtSize,
		}
		for field, value := range fields {
			if err = roster.UpdateMember(i, field, value); err != nil {
				return domain.RegistrationDraft{}, err
			}
		}
	}

	return roster.Submit(userID)
}

func (s *CheckoutService) RegisterTeam(ctx context.Context, eventID, userID uint, members []domain.Member, in PaymentInput) (domain.Registration, error) {
	event, err := s.openEvent(ctx, eventID)
	if err != nil {
		return domain.Registration{}, err
	}

	draft, err := s.BuildTeamDraft(event, userID, members)
	if err != nil {
		return domain.Registration{}, err
	}

	return s.Checkout(ctx, draft, in)
}

func (s *CheckoutService) RegisterIndividual(ctx context.Context, eventID, userID uint, form domain.IndividualForm, in PaymentInput) (domain.Registration, error) {
	event, err := s.openEvent(ctx, eventID)
	if err != nil {
		return domain.Registration{}, err
	}

	draft, err := form.Submit(event, userID)
	if err != nil {
		return domain.Registration{}, err
	}

	return s.Checkout(ctx, draft, in)
}

func (s *CheckoutService) openEvent(ctx context.Context, eventID uint) (domain.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}
	if event.Status != domain.EventActive {
		return domain.Event{}, ErrEventClosed
	}
	if event.IsFull() {
		return domain.Event{}, ErrEventFull
	}
	return event, nil
}

// Checkout confirms the payment for draft and writes the paid registration in
// a single write. Payment failures are returned unchanged and nothing is
// written. A failed write after a successful charge is recorded as an open
// reconciliation and reported as *CapturedNotRecordedError.
func (s *CheckoutService) Checkout(ctx context.Context, draft domain.RegistrationDraft, in PaymentInput) (domain.Registration, error) {
	if draft.TotalCents == 0 {
		return s.recordFree(ctx, draft)
	}
	if in.IntentID == "" || in.PaymentMethodID == "" {
		return domain.Registration{}, ErrMissingPayment
	}

	rec, err := s.regs.FindReconciliationByPayment(ctx, in.IntentID)
	switch {
	case err == nil && rec.Status == domain.ReconciliationOpen:
		return domain.Registration{}, &CapturedNotRecordedError{
			Reference:         rec.Reference,
			TransactionID:     rec.Payment.TransactionID,
			ProviderPaymentID: rec.Payment.ProviderPaymentID,
		}
	case err == nil:
		return domain.Registration{}, ErrPaymentAlreadyUsed
	case !errors.Is(err, repository.ErrReconciliationNotFound):
		return domain.Registration{}, fmt.Errorf("s.regs.FindReconciliationByPayment -> %w", err)
	}

	confirmation, err := s.gateway.Confirm(ctx, in.IntentID, in.PaymentMethodID, draft.TotalCents)
	var captured *payment.AlreadyCapturedError
	if errors.As(err, &captured) {
		return domain.Registration{}, s.alreadyCaptured(ctx, draft, detailsFrom(captured.Confirmation))
	}
	if err != nil {
		zap.L().Warn("payment confirmation failed",
			zap.String("payment_intent", in.IntentID),
			zap.Uint("event_id", draft.EventID),
			zap.Uint("user_id", draft.UserID),
			zap.Error(err))
		return domain.Registration{}, err
	}

	details := detailsFrom(confirmation)

	created, err := s.regs.Create(ctx, domain.NewPaidRegistration(draft, details, s.now()))
	if err != nil {
		return domain.Registration{}, s.capturedNotRecorded(ctx, draft, details, err)
	}

	s.afterRegistration(ctx, created)

	return created, nil
}

func detailsFrom(c payment.Confirmation) domain.PaymentDetails {
	return domain.PaymentDetails{
		TransactionID:     c.TransactionID,
		CardBrand:         c.CardBrand,
		CardLast4:         c.CardLast4,
		ProviderPaymentID: c.ProviderPaymentID,
	}
}

// alreadyCaptured handles an intent an earlier submit charged. If that submit
// wrote its registration the payment is spent; otherwise the charge has no
// registration and goes to reconciliation like a failed write.
func (s *CheckoutService) alreadyCaptured(ctx context.Context, draft domain.RegistrationDraft, details domain.PaymentDetails) error {
	existing, err := s.regs.FindByProviderPayment(ctx, details.ProviderPaymentID)
	switch {
	case err == nil:
		zap.L().Info("payment intent already used",
			zap.String("payment_intent", details.ProviderPaymentID),
			zap.Uint("registration_id", existing.ID),
			zap.Uint("user_id", draft.UserID))
		return ErrPaymentAlreadyUsed
	case errors.Is(err, repository.ErrRegistrationNotFound):
		return s.capturedNotRecorded(ctx, draft, details, errCapturedWithoutRegistration)
	default:
		return s.capturedNotRecorded(ctx, draft, details, fmt.Errorf("s.regs.FindByProviderPayment -> %w", err))
	}
}

func (s *CheckoutService) recordFree(ctx context.Context, draft domain.RegistrationDraft) (domain.Registration, error) {
	reg := domain.NewPaidRegistration(draft, domain.PaymentDetails{}, s.now())
	reg.PaymentDetails = nil

	created, err := s.regs.Create(ctx, reg)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.regs.Create -> %w", err)
	}

	s.afterRegistration(ctx, created)

	return created, nil
}

func (s *CheckoutService) capturedNotRecorded(ctx context.Context, draft domain.RegistrationDraft, details domain.PaymentDetails, cause error) error {
	reference := uuid.NewString()
	fields := []zap.Field{
		zap.String("reference", reference),
		zap.String("payment_intent", details.ProviderPaymentID),
		zap.String("transaction_id", details.TransactionID),
		zap.Uint("event_id", draft.EventID),
		zap.Uint("user_id", draft.UserID),
		zap.Int64("total_cents", draft.TotalCents),
	}
	zap.L().Error("payment captured but registration not recorded", append(fields, zap.Error(cause))...)

	_, err := s.regs.CreateReconciliation(ctx, domain.Reconciliation{
		Reference: reference,
		Payment:   details,
		Draft:     draft,
		Reason:    cause.Error(),
		Status:    domain.ReconciliationOpen,
	})
	if err != nil {
		zap.L().Error("failed to save reconciliation record", append(fields, zap.Error(err))...)
	}

	return &CapturedNotRecordedError{
		Reference:         reference,
		TransactionID:     details.TransactionID,
		ProviderPaymentID: details.ProviderPaymentID,
		Err:               cause,
	}
}

// afterRegistration only logs failures: the registration itself is already stored.
func (s *CheckoutService) afterRegistration(ctx context.Context, reg domain.Registration) {
	fields := []zap.Field{
		zap.Uint("registration_id", reg.ID),
		zap.Uint("event_id", reg.EventID),
		zap.Uint("user_id", reg.UserID),
	}
	if reg.PaymentDetails != nil {
		fields = append(fields, zap.String("transaction_id", reg.PaymentDetails.TransactionID))
	}

	if err := s.users.AppendRegisteredEvent(ctx, reg.UserID, reg.Summary()); err != nil {
		zap.L().Error("failed to append registered event to user", append(fields, zap.Error(err))...)
	}

	event, err := s.events.IncrementRegisteredCount(ctx, reg.EventID, 1)
	if err != nil {
		zap.L().Error("failed to increment registered count", append(fields, zap.Error(err))...)
		return
	}

	if s.notifier != nil {
		s.notifier.PublishCapacity(event)
	}
}

func (s *CheckoutService) ListReconciliations(ctx context.Context, status domain.ReconciliationStatus) ([]domain.Reconciliation, error) {
	recs, err := s.regs.ListReconciliations(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("s.regs.ListReconciliations -> %w", err)
	}
	return recs, nil
}

// RetryReconciliation replays the registration write of an open
// reconciliation. The payment is never confirmed again.
func (s *CheckoutService) RetryReconciliation(ctx context.Context, id uint) (domain.Registration, error) {
	rec, err := s.regs.FindReconciliation(ctx, id)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.regs.FindReconciliation -> %w", err)
	}
	if rec.Status != domain.ReconciliationOpen {
		return domain.Registration{}, ErrReconciliationResolved
	}

	existing, err := s.regs.FindByProviderPayment(ctx, rec.Payment.ProviderPaymentID)
	switch {
	case err == nil:
		zap.L().Warn("reconciliation payment already has a registration",
			zap.Uint("reconciliation_id", rec.ID),
			zap.Uint("registration_id", existing.ID))
		return domain.Registration{}, ErrPaymentAlreadyUsed
	case !errors.Is(err, repository.ErrRegistrationNotFound):
		return domain.Registration{}, fmt.Errorf("s.regs.FindByProviderPayment -> %w", err)
	}

	reg := domain.NewPaidRegistration(rec.Draft, rec.Payment, rec.CreatedAt)
	created, err := s.regs.ResolveReconciliation(ctx, rec.ID, reg)
	if err != nil {
		return domain.Registration{}, fmt.Errorf("s.regs.ResolveReconciliation -> %w", err)
	}

	zap.L().Info("reconciliation resolved",
		zap.Uint("reconciliation_id", rec.ID),
		zap.String("reference", rec.Reference),
		zap.Uint("registration_id", created.ID))

	s.afterRegistration(ctx, created)

	return created, nil
}
