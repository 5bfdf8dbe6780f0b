package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/rally-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/rally-api/internal/api/middleware"
	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/service"
)

var errNoUserInContext = errors.New("no authenticated user in context")

type UserService interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

// HandleHealthcheck godoc
// @Summary      Healthcheck
// @Tags         health
// @Produce      json
// @Success      200
// @Router       / [get]
func HandleHealthcheck(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func getUserFromContext(ctx *gin.Context, uSvc UserService) (domain.User, *response.Err) {
	value, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return domain.User{}, response.ErrUnauthenticated(errNoUserInContext)
	}
	userID, ok := value.(uint)
	if !ok || userID == 0 {
		return domain.User{}, response.ErrUnauthenticated(errNoUserInContext)
	}

	user, err := uSvc.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, response.ErrNotFound("user", "ID", userID)
		}

		err = fmt.Errorf("getUserFromContext -> uSvc.GetUser -> %w", err)
		return domain.User{}, response.ErrInternalServerError(err)
	}

	return user, nil
}

func parseID(ctx *gin.Context, param string) (uint, *response.Err) {
	raw := ctx.Param(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid %s %q", param, raw))
	}

	return uint(id), nil
}

func parseListOptions(ctx *gin.Context) (domain.ListOptions, *response.Err) {
	var opts domain.ListOptions

	if raw := ctx.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return opts, response.ErrBadRequest(fmt.Errorf("invalid page %q", raw))
		}
		opts.Page = page
	}
	if raw := ctx.Query("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return opts, response.ErrBadRequest(fmt.Errorf("invalid pageSize %q", raw))
		}
		opts.PageSize = size
	}

	return opts.Normalize(), nil
}
