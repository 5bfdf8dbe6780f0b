package v1

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/rally-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/rally-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/payment"
	"github.com/vietanh2810/rally-api/internal/service"
)

type CheckoutService interface {
	RegisterTeam(ctx context.Context, eventID, userID uint, members []domain.Member, in service.PaymentInput) (domain.Registration, error)
	RegisterIndividual(ctx context.Context, eventID, userID uint, form domain.IndividualForm, in service.PaymentInput) (domain.Registration, error)
}

type RegistrationService interface {
	ListRegistrations(ctx context.Context, eventID uint) ([]domain.Registration, error)
	GetRegistration(ctx context.Context, id uint) (domain.Registration, error)
	UpdateCheckIn(ctx context.Context, id uint, patch domain.CheckInPatch) (domain.Registration, error)
	ExportCSV(ctx context.Context, w io.Writer, eventID uint) error
}

type RegistrationHandler struct {
	checkout CheckoutService
	svc      RegistrationService
	uSvc     UserService
}

func NewRegistrationHandler(checkout CheckoutService, svc RegistrationService, uSvc UserService) *RegistrationHandler {
	return &RegistrationHandler{
		checkout: checkout,
		svc:      svc,
		uSvc:     uSvc,
	}
}

// HandleRegisterTeam godoc
// @Summary      Register a team
// @Description  Confirms the payment intent and records a paid registration. A 500 carrying a reference means the card was charged: do not pay again.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                              true  "Event ID"
// @Param        input    body      request.TeamRegistrationRequest  true  "Team roster and payment"
// @Success      201      {object}  domain.Registration
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      402      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Failure      502      {object}  response.Err
// @Failure      503      {object}  response.Err
// @Router       /events/{eventID}/registrations/team [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleRegisterTeam(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseID(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.TeamRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	reg, err := h.checkout.RegisterTeam(ctx.Request.Context(), eventID, user.ID, req.DomainMembers(), req.Payment())
	if err != nil {
		response.RenderErr(ctx, checkoutErr(err, eventID))
		return
	}

	ctx.JSON(http.StatusCreated, reg)
}

// HandleRegisterIndividual godoc
// @Summary      Register for an individual event
// @Description  Terms must be accepted. A 500 carrying a reference means the card was charged: do not pay again.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                                    true  "Event ID"
// @Param        input    body      request.IndividualRegistrationRequest  true  "Registrant and payment"
// @Success      201      {object}  domain.Registration
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      402      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Failure      502      {object}  response.Err
// @Failure      503      {object}  response.Err
// @Router       /events/{eventID}/registrations/individual [post]
// @Security BearerAuth
func (h *RegistrationHandler) HandleRegisterIndividual(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseID(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.IndividualRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrValidation(err))
		return
	}

	reg, err := h.checkout.RegisterIndividual(ctx.Request.Context(), eventID, user.ID, req.Form(), req.Payment())
	if err != nil {
		response.RenderErr(ctx, checkoutErr(err, eventID))
		return
	}

	ctx.JSON(http.StatusCreated, reg)
}

// checkoutErr keeps each payment outcome distinguishable for the client.
func checkoutErr(err error, eventID uint) *response.Err {
	var (
		captured  *service.CapturedNotRecordedError
		declined  *payment.DeclineError
		transport *payment.TransportError
		missing   *domain.MissingFieldError
	)

	switch {
	case errors.As(err, &captured):
		return response.ErrPaymentCapturedNotRecorded(err, captured.Reference)
	case errors.As(err, &declined):
		return response.ErrPaymentDeclined(err, declined.Message)
	case errors.Is(err, payment.ErrNotConfigured):
		return response.ErrPaymentUnavailable(err)
	case errors.As(err, &transport):
		return response.ErrPaymentTransport(err)
	case errors.Is(err, service.ErrEventNotFound):
		return response.ErrNotFound("event", "ID", eventID)
	case errors.Is(err, service.ErrEventFull),
		errors.Is(err, service.ErrEventClosed),
		errors.Is(err, service.ErrPaymentAlreadyUsed):
		return response.ErrConflict(err)
	case errors.As(err, &missing),
		errors.Is(err, domain.ErrTermsNotAccepted),
		errors.Is(err, domain.ErrWrongEventType),
		errors.Is(err, domain.ErrMemberIndex),
		errors.Is(err, domain.ErrRosterFull),
		errors.Is(err, service.ErrRosterSize),
		errors.Is(err, service.ErrInvalidShirtSize),
		errors.Is(err, service.ErrMissingPayment),
		errors.Is(err, payment.ErrAmountMismatch),
		errors.Is(err, payment.ErrInvalidAmount):
		return response.ErrValidation(err)
	default:
		return response.ErrInternalServerError(fmt.Errorf("checkout -> %w", err))
	}
}

// HandleListRegistrations godoc
// @Summary      List registrations
// @Tags         admin
// @Produce      json
// @Param        eventId  query     int  false  "Only registrations of this event"
// @Success      200      {array}   domain.Registration
// @Failure      400      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /admin/registrations [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleListRegistrations(ctx *gin.Context) {
	eventID, respErr := eventIDQuery(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	regs, err := h.svc.ListRegistrations(ctx.Request.Context(), eventID)
	if err != nil {
		err = fmt.Errorf("HandleListRegistrations -> h.svc.ListRegistrations -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, regs)
}

// HandleGetRegistration godoc
// @Summary      Get a registration
// @Tags         admin
// @Produce      json
// @Param        registrationID  path      int  true  "Registration ID"
// @Success      200             {object}  domain.Registration
// @Failure      400             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /admin/registrations/{registrationID} [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleGetRegistration(ctx *gin.Context) {
	regID, respErr := parseID(ctx, "registrationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	reg, err := h.svc.GetRegistration(ctx.Request.Context(), regID)
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("registration", "ID", regID))
			return
		}

		err = fmt.Errorf("HandleGetRegistration -> h.svc.GetRegistration -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, reg)
}

// HandleCheckIn godoc
// @Summary      Update check-in and shirt collection
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        registrationID  path      int                     true  "Registration ID"
// @Param        input           body      request.CheckInRequest  true  "Day-of-event flags"
// @Success      200             {object}  domain.Registration
// @Failure      400             {object}  response.Err
// @Failure      404             {object}  response.Err
// @Failure      422             {object}  response.Err
// @Failure      500             {object}  response.Err
// @Router       /admin/registrations/{registrationID}/check-in [patch]
// @Security BearerAuth
func (h *RegistrationHandler) HandleCheckIn(ctx *gin.Context) {
	regID, respErr := parseID(ctx, "registrationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.CheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	reg, err := h.svc.UpdateCheckIn(ctx.Request.Context(), regID, req.ToPatch())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRegistrationNotFound):
			response.RenderErr(ctx, response.ErrNotFound("registration", "ID", regID))
		case errors.Is(err, domain.ErrMemberIndex):
			response.RenderErr(ctx, response.ErrValidation(err))
		default:
			err = fmt.Errorf("HandleCheckIn -> h.svc.UpdateCheckIn -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, reg)
}

// HandleExportCSV godoc
// @Summary      Export registrations as CSV
// @Description  One row per team member.
// @Tags         admin
// @Produce      text/csv
// @Param        eventId  query     int  false  "Only registrations of this event"
// @Success      200      {string}  string  "CSV file"
// @Failure      400      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /admin/registrations/export.csv [get]
// @Security BearerAuth
func (h *RegistrationHandler) HandleExportCSV(ctx *gin.Context) {
	eventID, respErr := eventIDQuery(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.ExportCSV(ctx.Request.Context(), &buf, eventID); err != nil {
		err = fmt.Errorf("HandleExportCSV -> h.svc.ExportCSV -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	filename := fmt.Sprintf("registrations-%s.csv", time.Now().Format("2006-01-02"))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func eventIDQuery(ctx *gin.Context) (uint, *response.Err) {
	raw := ctx.Query("eventId")
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid eventId %q", raw))
	}

	return uint(id), nil
}
