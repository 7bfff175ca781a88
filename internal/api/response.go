package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"folio/internal/fx"
	"folio/internal/report"
	"folio/pkg/folio"
)

// Error codes for failures that do not come from the store.
const (
	errCodeMissingRate     = "MISSING_RATE"
	errCodeMissingCurrency = "MISSING_CURRENCY"
	errCodeUnknownReport   = "UNKNOWN_REPORT"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeSuccess writes a successful response with data.
func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code: 0,
		Data: data,
	})
}

// writeSuccessWithMessage writes a successful response with data and message.
func writeSuccessWithMessage(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// writeErrorResponse writes an error response with proper HTTP status and error details.
// Structured errors override httpStatus with the status their code maps to.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, httpStatus int, err error) {
	response := ErrorResponse{
		Code:    httpStatus,
		Message: err.Error(),
	}
	if r != nil {
		response.RequestID = middleware.GetReqID(r.Context())
	}

	var folioErr *folio.Error
	switch {
	case errors.Is(err, fx.ErrMissingRate):
		httpStatus = http.StatusUnprocessableEntity
		response.ErrorCode = errCodeMissingRate
	case errors.Is(err, fx.ErrMissingCurrency):
		httpStatus = http.StatusUnprocessableEntity
		response.ErrorCode = errCodeMissingCurrency
	case errors.Is(err, report.ErrUnknownReport):
		httpStatus = http.StatusNotFound
		response.ErrorCode = errCodeUnknownReport
	case errors.As(err, &folioErr):
		httpStatus = mapErrorCodeToHTTPStatus(folioErr.Code)
		response.ErrorCode = string(folioErr.Code)
	}
	response.Code = httpStatus

	if lw, ok := w.(interface{ SetErrorMessage(string) }); ok {
		lw.SetErrorMessage(response.Message)
	}
	writeJSON(w, httpStatus, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code folio.ErrorCode) int {
	switch code {
	case folio.ErrCodeInvalidInput, folio.ErrCodeValidation:
		return http.StatusBadRequest
	case folio.ErrCodeNotFound:
		return http.StatusNotFound
	case folio.ErrCodeDuplicate:
		return http.StatusConflict
	case folio.ErrCodeUpstream:
		return http.StatusBadGateway
	case folio.ErrCodeDatabase, folio.ErrCodeInternal:
		return http.StatusInternalServerError
	case folio.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
