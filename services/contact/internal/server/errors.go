package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"

	"fiapcontacts/internal/util"
	"fiapcontacts/services/contact/internal/app"
)

// ErrorResponse is the JSON error envelope of every non-2xx response.
type ErrorResponse struct {
	Status    int           `json:"-"`
	Message   string        `json:"error" doc:"Human readable message" example:"email is already used by another contact"`
	Code      string        `json:"code" doc:"Stable machine readable error code" example:"CONTACT_DUPLICATE_EMAIL"`
	RequestID string        `json:"requestId,omitempty" doc:"Correlation id echoed from X-Request-Id"`
	Details   []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail points at one offending input.
type ErrorDetail struct {
	Reason   string `json:"reason" example:"email must be a valid email address"`
	Location string `json:"location,omitempty" example:"body.email"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

func (e *ErrorResponse) GetStatus() int {
	return e.Status
}

var installErrorsOnce sync.Once

// installErrorModel makes huma emit ErrorResponse for framework-generated
// errors (bad params, malformed bodies) and document it in the OpenAPI description.
func installErrorModel() {
	installErrorsOnce.Do(func() {
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			return newErrorResponse(status, errorCodeForStatus(status), msg, errs...)
		}
		huma.NewErrorWithContext = func(ctx huma.Context, status int, msg string, errs ...error) huma.StatusError {
			resp := newErrorResponse(status, errorCodeForStatus(status), msg, errs...)
			if ctx != nil {
				resp.RequestID = util.RequestIDFromContext(ctx.Context())
			}
			return resp
		}
	})
}

func newErrorResponse(status int, code, msg string, errs ...error) *ErrorResponse {
	resp := &ErrorResponse{Status: status, Message: msg, Code: code}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var detailer huma.ErrorDetailer
		if errors.As(err, &detailer) {
			d := detailer.ErrorDetail()
			resp.Details = append(resp.Details, ErrorDetail{Reason: d.Message, Location: d.Location})
			continue
		}
		resp.Details = append(resp.Details, ErrorDetail{Reason: err.Error()})
	}
	return resp
}

func errorCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "REQUEST_INVALID"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "REQUEST_TOO_LARGE"
	case http.StatusUnsupportedMediaType:
		return "REQUEST_UNSUPPORTED_MEDIA_TYPE"
	case http.StatusUnprocessableEntity:
		return "REQUEST_VALIDATION_FAILED"
	case http.StatusTooManyRequests:
		return "REQUEST_RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "SYSTEM_UNAVAILABLE"
	}
	if status >= http.StatusInternalServerError {
		return "SYSTEM_INTERNAL_ERROR"
	}
	return "REQUEST_ERROR"
}

// contactError maps core errors onto API errors. Unexpected failures are
// logged and surfaced without their message.
func contactError(ctx context.Context, err error) error {
	requestID := util.RequestIDFromContext(ctx)
	var verr *app.ValidationError
	var resp *ErrorResponse
	switch {
	case errors.As(err, &verr):
		status, code := http.StatusUnprocessableEntity, "CONTACT_VALIDATION_FAILED"
		if errors.Is(err, app.ErrMissingRequiredField) {
			status, code = http.StatusBadRequest, "CONTACT_MISSING_FIELD"
		}
		resp = &ErrorResponse{Status: status, Code: code, Message: errors.Unwrap(verr).Error()}
		for _, msg := range verr.Messages {
			resp.Details = append(resp.Details, ErrorDetail{Reason: msg, Location: "body." + fieldOf(msg)})
		}
	case errors.Is(err, app.ErrDuplicateEmail):
		resp = &ErrorResponse{
			Status:  http.StatusConflict,
			Code:    "CONTACT_DUPLICATE_EMAIL",
			Message: app.ErrDuplicateEmail.Error(),
			Details: []ErrorDetail{{Reason: "email already registered", Location: "body.email"}},
		}
	case errors.Is(err, app.ErrDuplicatePhone):
		resp = &ErrorResponse{
			Status:  http.StatusConflict,
			Code:    "CONTACT_DUPLICATE_PHONE",
			Message: app.ErrDuplicatePhone.Error(),
			Details: []ErrorDetail{{Reason: "area code and phone number already registered", Location: "body.phoneNumber"}},
		}
	default:
		util.LoggerFromContext(ctx).ErrorContext(ctx, "contact operation failed", "err", err)
		resp = &ErrorResponse{Status: http.StatusInternalServerError, Code: "SYSTEM_INTERNAL_ERROR", Message: "internal error"}
	}
	resp.RequestID = requestID
	return resp
}

func contactNotFound(ctx context.Context, id int64) error {
	return &ErrorResponse{
		Status:    http.StatusNotFound,
		Code:      "CONTACT_NOT_FOUND",
		Message:   "contact not found",
		RequestID: util.RequestIDFromContext(ctx),
		Details:   []ErrorDetail{{Reason: fmt.Sprintf("no contact with id %d", id), Location: "path.id"}},
	}
}

// fieldOf extracts the json field name that leads every validation message.
func fieldOf(msg string) string {
	field, _, _ := strings.Cut(msg, " ")
	return field
}

// writeJSON and writeError serve the plain net/http endpoints outside huma.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Message:   msg,
		Code:      code,
		RequestID: util.RequestIDFromContext(r.Context()),
	})
}
