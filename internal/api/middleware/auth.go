package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vietanh2810/rally-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/rally-api/internal/pkg/jwthelper"
)

const (
	// ContextUserIDKey holds the authenticated user's ID in the gin context.
	ContextUserIDKey = "userID"
	// SessionCookie carries the same token as the Authorization header for
	// pages that cannot set headers.
	SessionCookie = "session"
)

var (
	errMissingToken      = errors.New("missing bearer token")
	errUserAgentMismatch = errors.New("token was issued to a different user agent")
)

type Authenticator struct {
	signingKey []byte
}

func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{
		signingKey: []byte(signingKey),
	}
}

func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, err := a.Claims(ctx.Request)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthenticated(err))
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Next()
	}
}

// Claims extracts and verifies the token of r.
func (a *Authenticator) Claims(r *http.Request) (*jwthelper.UserClaims, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return nil, errMissingToken
	}

	claims, err := jwthelper.ParseToken(a.signingKey, token)
	if err != nil {
		return nil, err
	}
	if claims.UserAgent != r.UserAgent() {
		return nil, errUserAgentMismatch
	}

	return claims, nil
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}

	return ""
}
