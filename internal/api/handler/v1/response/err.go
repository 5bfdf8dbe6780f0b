package response

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Err is the JSON body of every failed request.
type Err struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
	Reference      string `json:"reference,omitempty"`
}

func (e *Err) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.ErrorText
}

// RenderErr aborts the request with e. Server side failures are logged; the
// client only sees the public text.
func RenderErr(ctx *gin.Context, e *Err) {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		zap.L().Error(e.StatusText,
			zap.String("request_id", requestid.Get(ctx)),
			zap.String("path", ctx.FullPath()),
			zap.Int("status", e.HTTPStatusCode),
			zap.String("reference", e.Reference),
			zap.Error(e.Err))
	}

	ctx.AbortWithStatusJSON(e.HTTPStatusCode, e)
}

func ErrBadRequest(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Bad request.",
		ErrorText:      err.Error(),
	}
}

// ErrValidation reports form input that can be corrected and resubmitted.
func ErrValidation(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Invalid input.",
		ErrorText:      err.Error(),
	}
}

func ErrConflict(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
		StatusText:     "Conflict.",
		ErrorText:      err.Error(),
	}
}

func ErrNotFound(resource, key string, value any) *Err {
	err := fmt.Errorf("%s with %s %v not found", resource, key, value)
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusNotFound,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthenticated(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthenticated.",
		ErrorText:      "a valid bearer token is required",
	}
}

func ErrWrongCredentials(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Wrong credentials.",
		ErrorText:      "email or password is incorrect",
	}
}

func ErrPermissionDenied(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied.",
		ErrorText:      err.Error(),
	}
}

func ErrInternalServerError(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error.",
		ErrorText:      "something went wrong, please try again",
	}
}

// ErrPaymentDeclined shows the provider's message verbatim.
func ErrPaymentDeclined(err error, providerMessage string) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusPaymentRequired,
		StatusText:     "Payment declined.",
		ErrorText:      providerMessage,
	}
}

func ErrPaymentUnavailable(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusServiceUnavailable,
		StatusText:     "Payments unavailable.",
		ErrorText:      "payments are not configured, please contact the organizers",
	}
}

func ErrPaymentTransport(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusBadGateway,
		StatusText:     "Payment provider unreachable.",
		ErrorText:      "the payment could not be processed, please try again",
	}
}

// ErrPaymentCapturedNotRecorded must never read like a payment failure.
func ErrPaymentCapturedNotRecorded(err error, reference string) *Err {
	msg := "your payment succeeded but we could not complete your registration. " +
		"Please contact support with reference " + reference + " and do not pay again"

	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Payment captured, registration not recorded.",
		ErrorText:      msg,
		Reference:      reference,
	}
}

func ErrUploadsUnavailable(err error) *Err {
	return &Err{
		Err:            err,
		HTTPStatusCode: http.StatusServiceUnavailable,
		StatusText:     "Uploads unavailable.",
		ErrorText:      "media storage is not configured",
	}
}
