package errors

import (
	"context"
	"errors"
	"net/http"
)

// ErrorResponse is the JSON body returned by the front door on failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// HTTPStatus maps an error to the status code the front door returns.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return 499
	}

	switch CodeOf(err) {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeAuditDisabled, ErrCodeIndexNotFound:
		return http.StatusNotFound
	case ErrCodeLLMUnauthorized:
		return http.StatusBadGateway
	case ErrCodeLLMQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrCodeLLMTimeout, ErrCodeSearchTimeout, ErrCodeRetrievalTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeSessionStoreFailed, ErrCodeExternalService:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse renders err as an ErrorResponse. Non-standard errors are
// reported as internal without leaking their text.
func ToResponse(err error) ErrorResponse {
	se, ok := AsStandard(err)
	if !ok {
		return ErrorResponse{
			Error: "internal error",
			Code:  string(ErrCodeInternal),
		}
	}
	resp := ErrorResponse{
		Error: se.Message,
		Code:  string(se.Code),
	}
	if se.Code == ErrCodeInvalidRequest {
		resp.Details = se.Details
	}
	return resp
}
