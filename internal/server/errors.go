package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps a settlement error to an HTTP status.
func statusFor(err error) int {
	code, ok := codes.Of(err)
	if !ok {
		switch {
		case errors.Is(err, runtime.ErrAccountNotLocked), errors.Is(err, runtime.ErrReadOnlyAccount):
			return http.StatusConflict
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return http.StatusGatewayTimeout
		default:
			return http.StatusInternalServerError
		}
	}

	switch code {
	case codes.ProgramPaused:
		return http.StatusServiceUnavailable
	case codes.OrderNotFound, codes.NotInitialized:
		return http.StatusNotFound
	case codes.OrderAlreadyExists, codes.AlreadyInitialized, codes.RefundFailed:
		return http.StatusConflict
	}
	switch code.Category() {
	case codes.CategoryAuthorization:
		return http.StatusForbidden
	case codes.CategoryPrecondition:
		return http.StatusBadRequest
	case codes.CategoryArithmetic, codes.CategorySwapOutcome, codes.CategoryCustody:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// codedError writes err as an ErrorResponse. Internal errors hide their
// message outside dev mode.
func (h *Handlers) codedError(c echo.Context, err error, receipt any) error {
	status := statusFor(err)
	resp := ErrorResponse{Code: status, Receipt: receipt}
	if code, ok := codes.Of(err); ok {
		resp.Error = code.Message()
		resp.Kind = code.String()
		resp.ProgramCode = uint32(code)
		if h.DevMode {
			resp.Details = err.Error()
		}
		return c.JSON(status, resp)
	}
	if status == http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("path", c.Path()).Error("request failed")
		resp.Error = "internal server error"
		if h.DevMode {
			resp.Details = err.Error()
		}
		return c.JSON(status, resp)
	}
	resp.Error = err.Error()
	return c.JSON(status, resp)
}
