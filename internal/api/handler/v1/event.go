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
	"github.com/vietanh2810/rally-api/internal/service"
)

var errInvalidStatusFilter = errors.New("status must be active or past")

type EventService interface {
	ListEvents(ctx context.Context, status domain.EventStatus, opts domain.ListOptions) ([]domain.Event, error)
	GetEvent(ctx context.Context, id uint) (domain.Event, error)
	CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error)
	UpdateEvent(ctx context.Context, id uint, patch domain.EventPatch) (domain.Event, error)
	DeleteEvent(ctx context.Context, id uint) error
	Quote(ctx context.Context, id uint, teamSize int) (int64, error)
}

type EventHandler struct {
	svc EventService
}

func NewEventHandler(svc EventService) *EventHandler {
	return &EventHandler{
		svc: svc,
	}
}

// HandleListEvents godoc
// @Summary      List events
// @Description  Events are ordered by date, newest first.
// @Tags         events
// @Produce      json
// @Param        status    query     string  false  "active or past"
// @Param        page      query     int     false  "page, starting at 1"
// @Param        pageSize  query     int     false  "page size"
// @Success      200       {array}   response.Event
// @Failure      400       {object}  response.Err
// @Failure      500       {object}  response.Err
// @Router       /events [get]
func (h *EventHandler) HandleListEvents(ctx *gin.Context) {
	opts, respErr := parseListOptions(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	status := domain.EventStatus(ctx.Query("status"))
	if status != "" && status != domain.EventActive && status != domain.EventPast {
		response.RenderErr(ctx, response.ErrBadRequest(errInvalidStatusFilter))
		return
	}

	events, err := h.svc.ListEvents(ctx.Request.Context(), status, opts)
	if err != nil {
		err = fmt.Errorf("HandleListEvents -> h.svc.ListEvents -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.NewEvents(events))
}

// HandleGetEvent godoc
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Param        eventID  path      int  true  "Event ID"
// @Success      200      {object}  response.Event
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID} [get]
func (h *EventHandler) HandleGetEvent(ctx *gin.Context) {
	eventID, respErr := parseID(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	event, err := h.svc.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
			return
		}

		err = fmt.Errorf("HandleGetEvent -> h.svc.GetEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.NewEvent(event))
}

// HandleQuote godoc
// @Summary      Quote the total cost of a registration
// @Description  Team events price by headcount; individual events ignore teamSize.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                   true  "Event ID"
// @Param        input    body      request.QuoteRequest  true  "Headcount"
// @Success      200      {object}  response.QuoteResponse
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /events/{eventID}/quote [post]
func (h *EventHandler) HandleQuote(ctx *gin.Context) {
	eventID, respErr := parseID(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.QuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	total, err := h.svc.Quote(ctx.Request.Context(), eventID, req.TeamSize)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
		case errors.Is(err, service.ErrRosterSize):
			response.RenderErr(ctx, response.ErrValidation(err))
		default:
			err = fmt.Errorf("HandleQuote -> h.svc.Quote -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, response.QuoteResponse{
		EventID:   eventID,
		TeamSize:  req.TeamSize,
		TotalCost: total,
	})
}

// HandleCreateEvent godoc
// @Summary      Create an event
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        input  body      request.EventRequest  true  "Event"
// @Success      201    {object}  response.Event
// @Failure      400    {object}  response.Err
// @Failure      422    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /admin/events [post]
// @Security BearerAuth
func (h *EventHandler) HandleCreateEvent(ctx *gin.Context) {
	var req request.EventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	event, err := req.ToDomain()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	created, err := h.svc.CreateEvent(ctx.Request.Context(), event)
	if err != nil {
		if isEventShapeErr(err) {
			response.RenderErr(ctx, response.ErrValidation(err))
			return
		}

		err = fmt.Errorf("HandleCreateEvent -> h.svc.CreateEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, response.NewEvent(created))
}

// HandleUpdateEvent godoc
// @Summary      Update an event
// @Description  Only the fields present in the body are changed.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        eventID  path      int                        true  "Event ID"
// @Param        input    body      request.EventPatchRequest  true  "Changed fields"
// @Success      200      {object}  response.Event
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      422      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /admin/events/{eventID} [patch]
// @Security BearerAuth
func (h *EventHandler) HandleUpdateEvent(ctx *gin.Context) {
	eventID, respErr := parseID(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.EventPatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	updated, err := h.svc.UpdateEvent(ctx.Request.Context(), eventID, patch)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
		case isEventShapeErr(err):
			response.RenderErr(ctx, response.ErrValidation(err))
		default:
			err = fmt.Errorf("HandleUpdateEvent -> h.svc.UpdateEvent -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusOK, response.NewEvent(updated))
}

// HandleDeleteEvent godoc
// @Summary      Delete an event
// @Tags         admin
// @Param        eventID  path      int  true  "Event ID"
// @Success      204
// @Failure      400      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /admin/events/{eventID} [delete]
// @Security BearerAuth
func (h *EventHandler) HandleDeleteEvent(ctx *gin.Context) {
	eventID, respErr := parseID(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if err := h.svc.DeleteEvent(ctx.Request.Context(), eventID); err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "ID", eventID))
			return
		}

		err = fmt.Errorf("HandleDeleteEvent -> h.svc.DeleteEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.Status(http.StatusNoContent)
}

func isEventShapeErr(err error) bool {
	return errors.Is(err, domain.ErrInvalidEventShape) ||
		errors.Is(err, domain.ErrInvalidTeamSize) ||
		errors.Is(err, domain.ErrNegativePrice)
}
