package v1

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/rally-api/internal/api/middleware"
	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/payment"
	"github.com/vietanh2810/rally-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubUsers struct {
	users map[uint]domain.User
}

func (s *stubUsers) GetUser(_ context.Context, id uint) (domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, service.ErrUserNotFound
	}
	return user, nil
}

type stubCheckout struct {
	reg   domain.Registration
	err   error
	calls int

	gotEventID uint
	gotUserID  uint
	gotMembers []domain.Member
	gotForm    domain.IndividualForm
	gotPayment service.PaymentInput
}

func (s *stubCheckout) RegisterTeam(_ context.Context, eventID, userID uint, members []domain.Member, in service.PaymentInput) (domain.Registration, error) {
	s.calls++
	s.gotEventID, s.gotUserID, s.gotMembers, s.gotPayment = eventID, userID, members, in
	return s.reg, s.err
}

func (s *stubCheckout) RegisterIndividual(_ context.Context, eventID, userID uint, form domain.IndividualForm, in service.PaymentInput) (domain.Registration, error) {
	s.calls++
	s.gotEventID, s.gotUserID, s.gotForm, s.gotPayment = eventID, userID, form, in
	return s.reg, s.err
}

type stubRegistrations struct {
	csv string
	err error
}

func (s *stubRegistrations) ListRegistrations(context.Context, uint) ([]domain.Registration, error) {
	return nil, s.err
}

func (s *stubRegistrations) GetRegistration(context.Context, uint) (domain.Registration, error) {
	return domain.Registration{}, service.ErrRegistrationNotFound
}

func (s *stubRegistrations) UpdateCheckIn(context.Context, uint, domain.CheckInPatch) (domain.Registration, error) {
	return domain.Registration{}, s.err
}

func (s *stubRegistrations) ExportCSV(_ context.Context, w io.Writer, _ uint) error {
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, s.csv)
	return err
}

type stubPayments struct {
	key    string
	intent payment.Intent
	err    error
}

func (s *stubPayments) PublishableKey() string { return s.key }

func (s *stubPayments) CreateIntent(_ context.Context, amountCents int64, currency string) (payment.Intent, error) {
	if s.err != nil {
		return payment.Intent{}, s.err
	}
	intent := s.intent
	intent.AmountCents = amountCents
	intent.Currency = currency
	return intent, nil
}

func (s *stubPayments) ListReconciliations(context.Context, domain.ReconciliationStatus) ([]domain.Reconciliation, error) {
	return []domain.Reconciliation{}, nil
}

func (s *stubPayments) RetryReconciliation(context.Context, uint) (domain.Registration, error) {
	return domain.Registration{}, service.ErrReconciliationResolved
}

func withUser(id uint) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, id)
		ctx.Next()
	}
}

func perform(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPaymentHandler_CreateIntent(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		body     string
		svcErr   error
		wantCode int
		wantBody string
	}{
		{
			name:     "created",
			method:   http.MethodPost,
			body:     `{"amount": 7500, "currency": "usd"}`,
			wantCode: http.StatusOK,
			wantBody: `{"clientSecret":"pi_1_secret_abc"}`,
		},
		{
			name:     "zero amount",
			method:   http.MethodPost,
			body:     `{"amount": 0}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "negative amount",
			method:   http.MethodPost,
			body:     `{"amount": -5}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			body:     `{"amount": "lots"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "provider failure",
			method:   http.MethodPost,
			body:     `{"amount": 7500}`,
			svcErr:   &payment.TransportError{Err: io.ErrUnexpectedEOF},
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "wrong verb",
			method:   http.MethodGet,
			wantCode: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPaymentHandler(&stubPayments{
				intent: payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret_abc"},
				err:    tt.svcErr,
			})
			router := gin.New()
			router.HandleMethodNotAllowed = true
			router.POST("/payments/intent", h.HandleCreateIntent)

			rec := perform(router, tt.method, "/payments/intent", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "unexpected EOF")
			}
		})
	}
}

func TestPaymentHandler_Config(t *testing.T) {
	router := gin.New()
	router.GET("/with", NewPaymentHandler(&stubPayments{key: "pk_test_1"}).HandlePaymentConfig)
	router.GET("/without", NewPaymentHandler(&stubPayments{}).HandlePaymentConfig)

	rec := perform(router, http.MethodGet, "/with", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"publishableKey":"pk_test_1"}`, rec.Body.String())

	rec = perform(router, http.MethodGet, "/without", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckoutErr(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCode      int
		wantText      string
		wantReference string
	}{
		{
			name:          "captured but not recorded",
			err:           &service.CapturedNotRecordedError{Reference: "ref-1", Err: errors.New("insert failed")},
			wantCode:      http.StatusInternalServerError,
			wantReference: "ref-1",
		},
		{
			name:     "declined",
			err:      fmt.Errorf("confirm -> %w", &payment.DeclineError{Code: "card_declined", Message: "Your card was declined."}),
			wantCode: http.StatusPaymentRequired,
			wantText: "Your card was declined.",
		},
		{name: "not configured", err: payment.ErrNotConfigured, wantCode: http.StatusServiceUnavailable},
		{name: "transport", err: &payment.TransportError{Err: io.ErrUnexpectedEOF}, wantCode: http.StatusBadGateway},
		{name: "event not found", err: fmt.Errorf("s.events.FindByID -> %w", service.ErrEventNotFound), wantCode: http.StatusNotFound},
		{name: "event full", err: service.ErrEventFull, wantCode: http.StatusConflict},
		{name: "event closed", err: service.ErrEventClosed, wantCode: http.StatusConflict},
		{name: "payment reused", err: service.ErrPaymentAlreadyUsed, wantCode: http.StatusConflict},
		{name: "missing field", err: &domain.MissingFieldError{Index: 1, Field: domain.FieldEmail}, wantCode: http.StatusUnprocessableEntity},
		{name: "terms", err: domain.ErrTermsNotAccepted, wantCode: http.StatusUnprocessableEntity},
		{name: "roster size", err: fmt.Errorf("%w: 5 not in [2, 4]", service.ErrRosterSize), wantCode: http.StatusUnprocessableEntity},
		{name: "amount mismatch", err: payment.ErrAmountMismatch, wantCode: http.StatusUnprocessableEntity},
		{name: "unexpected", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkoutErr(tt.err, 3)

			assert.Equal(t, tt.wantCode, got.HTTPStatusCode)
			assert.Equal(t, tt.wantReference, got.Reference)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, got.ErrorText)
			}
			if tt.wantReference != "" {
				assert.Contains(t, got.ErrorText, "do not pay again")
				assert.Contains(t, got.ErrorText, tt.wantReference)
			}
		})
	}
}

func newRegistrationRouter(checkout *stubCheckout, regs *stubRegistrations) *gin.Engine {
	users := &stubUsers{users: map[uint]domain.User{7: {ID: 7, Email: "racer@rally.test"}}}
	h := NewRegistrationHandler(checkout, regs, users)

	router := gin.New()
	router.POST("/anon/events/:eventID/registrations/team", h.HandleRegisterTeam)
	authed := router.Group("", withUser(7))
	authed.POST("/events/:eventID/registrations/team", h.HandleRegisterTeam)
	authed.POST("/events/:eventID/registrations/individual", h.HandleRegisterIndividual)
	router.GET("/admin/registrations/export.csv", h.HandleExportCSV)

	return router
}

func TestRegistrationHandler_RegisterTeam(t *testing.T) {
	body := `{
		"members": [
			{"name": "Ana", "email": "ana@rally.test", "phone": "555-0100", "shirtSize": "M"},
			{"name": "Bo", "email": "bo@rally.test", "phone": "555-0101", "shirtSize": "L"}
		],
		"intentId": "pi_1",
		"paymentMethodId": "pm_1"
	}`

	t.Run("registered", func(t *testing.T) {
		checkout := &stubCheckout{reg: domain.Registration{ID: 11, EventID: 3, UserID: 7, PaymentStatus: domain.PaymentPaid}}
		rec := perform(newRegistrationRouter(checkout, &stubRegistrations{}), http.MethodPost, "/events/3/registrations/team", body)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"paymentStatus":"paid"`)
		assert.Equal(t, uint(3), checkout.gotEventID)
		assert.Equal(t, uint(7), checkout.gotUserID)
		require.Len(t, checkout.gotMembers, 2)
		assert.Equal(t, "L", checkout.gotMembers[1].ShirtSize)
		assert.Equal(t, service.PaymentInput{IntentID: "pi_1", PaymentMethodID: "pm_1"}, checkout.gotPayment)
	})

	t.Run("declined", func(t *testing.T) {
		checkout := &stubCheckout{err: &payment.DeclineError{Code: "card_declined", Message: "Your card was declined."}}
		rec := perform(newRegistrationRouter(checkout, &stubRegistrations{}), http.MethodPost, "/events/3/registrations/team", body)

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.JSONEq(t, `{"status":"Payment declined.","error":"Your card was declined."}`, rec.Body.String())
	})

	t.Run("captured but not recorded", func(t *testing.T) {
		checkout := &stubCheckout{err: &service.CapturedNotRecordedError{Reference: "ref-9", Err: errors.New("insert failed")}}
		rec := perform(newRegistrationRouter(checkout, &stubRegistrations{}), http.MethodPost, "/events/3/registrations/team", body)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), `"reference":"ref-9"`)
		assert.NotContains(t, rec.Body.String(), "insert failed")
	})

	t.Run("no members", func(t *testing.T) {
		checkout := &stubCheckout{}
		rec := perform(newRegistrationRouter(checkout, &stubRegistrations{}), http.MethodPost, "/events/3/registrations/team", `{"members": []}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Zero(t, checkout.calls)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		checkout := &stubCheckout{}
		rec := perform(newRegistrationRouter(checkout, &stubRegistrations{}), http.MethodPost, "/anon/events/3/registrations/team", body)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, checkout.calls)
	})
}

func TestRegistrationHandler_RegisterIndividualChecksTermsFirst(t *testing.T) {
	checkout := &stubCheckout{}
	router := newRegistrationRouter(checkout, &stubRegistrations{})

	rec := perform(router, http.MethodPost, "/events/4/registrations/individual", `{"email": "not-an-email"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrTermsNotAccepted.Error())
	assert.Zero(t, checkout.calls)

	checkout.reg = domain.Registration{ID: 12}
	rec = perform(router, http.MethodPost, "/events/4/registrations/individual",
		`{"name": "Cy", "email": "cy@example.com", "phone": "555-0102", "acceptedTerms": true, "intentId": "pi_2", "paymentMethodId": "pm_2"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, checkout.gotForm.AcceptedTerms)
	assert.Equal(t, "Cy", checkout.gotForm.Name)
}

func TestRegistrationHandler_ExportCSV(t *testing.T) {
	regs := &stubRegistrations{csv: "Registration ID,Event\n1,Night Rally\n"}
	router := newRegistrationRouter(&stubCheckout{}, regs)

	rec := perform(router, http.MethodGet, "/admin/registrations/export.csv?eventId=3", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment; filename="))
	assert.Equal(t, regs.csv, rec.Body.String())

	rec = perform(router, http.MethodGet, "/admin/registrations/export.csv?eventId=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	regs.err = errors.New("db down")
	rec = perform(router, http.MethodGet, "/admin/registrations/export.csv", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, bytes.Contains(rec.Body.Bytes(), []byte("db down")))
}

func TestUserHandler_GetMe(t *testing.T) {
	users := &stubUsers{users: map[uint]domain.User{7: {ID: 7, Email: "racer@rally.test", Name: "Racer"}}}
	h := NewUserHandler(&accountStub{stubUsers: users})

	router := gin.New()
	router.GET("/me", withUser(7), h.HandleGetMe)
	router.GET("/ghost", withUser(99), h.HandleGetMe)
	router.GET("/anon", h.HandleGetMe)

	rec := perform(router, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"racer@rally.test"`)
	assert.NotContains(t, rec.Body.String(), "password")

	assert.Equal(t, http.StatusNotFound, perform(router, http.MethodGet, "/ghost", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(router, http.MethodGet, "/anon", "").Code)
}

type accountStub struct {
	*stubUsers
}

func (accountStub) PlaceOrder(context.Context, uint, []service.OrderLine) (domain.Order, error) {
	return domain.Order{}, service.ErrEmptyOrder
}
