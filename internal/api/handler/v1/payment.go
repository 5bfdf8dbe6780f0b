package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/rally-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/rally-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/payment"
	"github.com/vietanh2810/rally-api/internal/service"
)

var errInvalidReconciliationStatus = errors.New("status must be open or resolved")

type PaymentService interface {
	PublishableKey() string
	CreateIntent(ctx context.Context, amountCents int64, currency string) (payment.Intent, error)
	ListReconciliations(ctx context.Context, status domain.ReconciliationStatus) ([]domain.Reconciliation, error)
	RetryReconciliation(ctx context.Context, id uint) (domain.Registration, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{
		svc: svc,
	}
}

// HandleCreateIntent godoc
// @Summary      Create a payment intent
// @Description  Returns the client secret the card widget needs. The amount is in cents.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        input  body      request.PaymentIntentRequest  true  "Amount and currency"
// @Success      200    {object}  response.IntentResponse
// @Failure      400    {object}  response.Err
// @Failure      405    {string}  string
// @Failure      500    {object}  response.Err
// @Router       /payments/intent [post]
func (h *PaymentHandler) HandleCreateIntent(ctx *gin.Context) {
	var req request.PaymentIntentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	intent, err := h.svc.CreateIntent(ctx.Request.Context(), req.Amount, req.Currency)
	if err != nil {
		var declined *payment.DeclineError
		switch {
		case errors.Is(err, payment.ErrInvalidAmount):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		case errors.As(err, &declined):
			response.RenderErr(ctx, response.ErrBadRequest(errors.New(declined.Message)))
		default:
			err = fmt.Errorf("HandleCreateIntent -> h.svc.CreateIntent -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, response.IntentResponse{ClientSecret: intent.ClientSecret})
}

// HandlePaymentConfig godoc
// @Summary      Get the publishable key for the card widget
// @Tags         payments
// @Produce      json
// @Success      200  {object}  response.PaymentConfigResponse
// @Failure      503  {object}  response.Err
// @Router       /payments/config [get]
func (h *PaymentHandler) HandlePaymentConfig(ctx *gin.Context) {
	key := h.svc.PublishableKey()
	if key == "" {
		response.RenderErr(ctx, response.ErrPaymentUnavailable(payment.ErrNotConfigured))
		return
	}

	ctx.JSON(http.StatusOK, response.PaymentConfigResponse{PublishableKey: key})
}

// HandleListReconciliations godoc
// @Summary      List captured payments without a registration
// @Tags         admin
// @Produce      json
// @Param        status  query     string  false  "open (default) or resolved"
// @Success      200     {array}   domain.Reconciliation
// @Failure      400     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /admin/reconciliations [get]
// @Security BearerAuth
func (h *PaymentHandler) HandleListReconciliations(ctx *gin.Context) {
	status := domain.ReconciliationStatus(ctx.DefaultQuery("status", string(domain.ReconciliationOpen)))
	if status != domain.ReconciliationOpen && status != domain.ReconciliationResolved {
		response.RenderErr(ctx, response.ErrBadRequest(errInvalidReconciliationStatus))
		return
	}

	recs, err := h.svc.ListReconciliations(ctx.Request.Context(), status)
	if err != nil {
		err = fmt.Errorf("HandleListReconciliations -> h.svc.ListReconciliations -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, recs)
}

// HandleRetryReconciliation godoc
// @Summary      Record the registration of a captured payment
// @Description  Replays the registration write from the stored draft. The card is not charged again.
// @Tags         admin
// @Produce      json
// @Param        reconciliationID  path      int  true  "Reconciliation ID"
// @Success      201               {object}  domain.Registration
// @Failure      400               {object}  response.Err
// @Failure      404               {object}  response.Err
// @Failure      409               {object}  response.Err
// @Failure      500               {object}  response.Err
// @Router       /admin/reconciliations/{reconciliationID}/retry [post]
// @Security BearerAuth
func (h *PaymentHandler) HandleRetryReconciliation(ctx *gin.Context) {
	recID, respErr := parseID(ctx, "reconciliationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	reg, err := h.svc.RetryReconciliation(ctx.Request.Context(), recID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReconciliationNotFound):
			response.RenderErr(ctx, response.ErrNotFound("reconciliation", "ID", recID))
		case errors.Is(err, service.ErrReconciliationResolved), errors.Is(err, service.ErrPaymentAlreadyUsed):
			response.RenderErr(ctx, response.ErrConflict(err))
		default:
			err = fmt.Errorf("HandleRetryReconciliation -> h.svc.RetryReconciliation -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusCreated, reg)
}
