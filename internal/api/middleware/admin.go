package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vietanh2810/rally-api/internal/config"
	"github.com/vietanh2810/rally-api/internal/domain"
	"github.com/vietanh2810/rally-api/internal/service"
)

// SessionState is the outcome of resolving who is asking for an admin page.
type SessionState string

const (
	SessionUnknown  SessionState = "unknown"
	SessionAdmin    SessionState = "authenticated-admin"
	SessionNotAdmin SessionState = "unauthenticated-or-non-admin"
)

const adminRetryAfterSecs = "5"

type AdminUserFinder interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

// AdminGate lets a request through only once the caller is known to be the
// configured admin. Nothing of the protected handler runs before that.
type AdminGate struct {
	conf  *config.APIConfig
	auth  *Authenticator
	users AdminUserFinder
}

func NewAdminGate(conf *config.APIConfig, users AdminUserFinder) *AdminGate {
	return &AdminGate{
		conf:  conf,
		auth:  NewAuthenticator(conf.JWTSigningKey),
		users: users,
	}
}

func (g *AdminGate) Resolve(r *http.Request) (SessionState, domain.User) {
	claims, err := g.auth.Claims(r)
	if err != nil {
		return SessionNotAdmin, domain.User{}
	}

	user, err := g.users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return SessionNotAdmin, domain.User{}
		}

		zap.L().Warn("admin session could not be resolved",
			zap.Uint("user_id", claims.UserID),
			zap.Error(err))
		return SessionUnknown, domain.User{}
	}

	adminEmail := g.conf.AdminEmail()
	if adminEmail == "" || user.Email != adminEmail {
		return SessionNotAdmin, domain.User{}
	}

	return SessionAdmin, user
}

// Require redirects non-admins home and answers 503 while the session is
// still unknown. Neither response carries a body.
func (g *AdminGate) Require() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		state, user := g.Resolve(ctx.Request)

		switch state {
		case SessionAdmin:
			ctx.Set(ContextUserIDKey, user.ID)
			ctx.Next()
		case SessionUnknown:
			ctx.Header("Retry-After", adminRetryAfterSecs)
			ctx.AbortWithStatus(http.StatusServiceUnavailable)
		default:
			home := g.conf.HomeURL
			if home == "" {
				home = "/"
			}
			ctx.Header("Location", home)
			ctx.AbortWithStatus(http.StatusFound)
		}
	}
}
