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

type AccountService interface {
	UserService
	PlaceOrder(ctx context.Context, userID uint, lines []service.OrderLine) (domain.Order, error)
}

type UserHandler struct {
	svc AccountService
}

func NewUserHandler(svc AccountService) *UserHandler {
	return &UserHandler{
		svc: svc,
	}
}

// HandleGetMe godoc
// @Summary      Get the current user
// @Description  Includes the user's registered events and merchandise orders.
// @Tags         users
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      401  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /users/me [get]
// @Security BearerAuth
func (h *UserHandler) HandleGetMe(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.svc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// HandlePlaceOrder godoc
// @Summary      Order merchandise
// @Description  Prices and titles are taken from the catalog. The order is appended to the user's history.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input  body      request.OrderRequest  true  "Order lines"
// @Success      201    {object}  domain.Order
// @Failure      400    {object}  response.Err
// @Failure      401    {object}  response.Err
// @Failure      422    {object}  response.Err
// @Failure      500    {object}  response.Err
// @Router       /users/me/orders [post]
// @Security BearerAuth
func (h *UserHandler) HandlePlaceOrder(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.svc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.OrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	order, err := h.svc.PlaceOrder(ctx.Request.Context(), user.ID, req.Lines())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMerchandiseItemNotFound),
			errors.Is(err, service.ErrEmptyOrder),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrOutOfStock),
			errors.Is(err, service.ErrInvalidSize):
			response.RenderErr(ctx, response.ErrValidation(err))
		default:
			err = fmt.Errorf("HandlePlaceOrder -> h.svc.PlaceOrder -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}
		return
	}

	ctx.JSON(http.StatusCreated, order)
}
