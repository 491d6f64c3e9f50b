package router

import (
	"errors"
	"net/http"

	"github.com/compozy/sqlagent/engine/core"
	"github.com/compozy/sqlagent/engine/infra/server/appstate"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Error codes
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrRequestTimeoutCode     = "REQUEST_TIMEOUT"
	ErrTooManyRequestsCode    = "TOO_MANY_REQUESTS"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
)

const ErrMsgAppStateNotInitialized = "application state not initialized"

// Response shapes. Detail errors are used by the query endpoints, status
// errors by the table endpoints.
const (
	StyleDetail = iota
	StyleStatus
)

// RequestError represents errors that can occur during request handling
type RequestError struct {
	Reason     string
	StatusCode int
	Style      int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a RequestError rendered as {"detail": reason}.
func NewRequestError(statusCode int, reason string, err error) *RequestError {
	return &RequestError{StatusCode: statusCode, Reason: reason, Style: StyleDetail, Err: err}
}

// NewStatusError creates a RequestError rendered as
// {"status": "error", "message": reason}.
func NewStatusError(statusCode int, reason string, err error) *RequestError {
	return &RequestError{StatusCode: statusCode, Reason: reason, Style: StyleStatus, Err: err}
}

// IsRequestError checks if the given error is a RequestError
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// Code maps the status to a stable error code for logs.
func (e *RequestError) Code() string {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrBadRequestCode
	case http.StatusNotFound:
		return ErrNotFoundCode
	case http.StatusRequestTimeout:
		return ErrRequestTimeoutCode
	case http.StatusTooManyRequests:
		return ErrTooManyRequestsCode
	case http.StatusServiceUnavailable:
		return ErrServiceUnavailableCode
	}
	if code := core.CodeOf(e.Err); code != "" {
		return code
	}
	return ErrInternalCode
}

// Body is the JSON payload written for the error.
func (e *RequestError) Body() gin.H {
	if e.Style == StyleStatus {
		return gin.H{"status": "error", "message": e.Reason}
	}
	return gin.H{"detail": e.Reason}
}

// RespondWithError writes err and aborts the chain.
func RespondWithError(c *gin.Context, err *RequestError) {
	log := logger.FromContext(c.Request.Context())
	fields := []any{
		"status", err.StatusCode,
		"code", err.Code(),
		"path", c.Request.URL.Path,
	}
	if requestID := c.Writer.Header().Get(HeaderRequestID); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if err.Err != nil {
		fields = append(fields, "error", core.RedactError(err.Err))
	}
	if err.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Debug("request rejected", fields...)
	}
	c.AbortWithStatusJSON(err.StatusCode, err.Body())
}

// RespondOK writes a 200 JSON body.
func RespondOK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// ErrorHandler renders errors attached with c.Error when the handler did not
// write a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last().Err
		var reqErr *RequestError
		if !errors.As(last, &reqErr) {
			reqErr = NewRequestError(http.StatusInternalServerError, last.Error(), last)
		}
		RespondWithError(c, reqErr)
	}
}

// GetAppState returns the state attached by appstate.StateMiddleware,
// responding with 500 when it is missing.
func GetAppState(c *gin.Context) *appstate.State {
	state, err := appstate.GetState(c.Request.Context())
	if err != nil {
		RespondWithError(c, NewRequestError(http.StatusInternalServerError, ErrMsgAppStateNotInitialized, err))
		return nil
	}
	return state
}
