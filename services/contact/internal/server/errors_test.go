package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"

	"fiapcontacts/services/contact/internal/app"
)

func TestContactErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate email", app.ErrDuplicateEmail, http.StatusConflict, "CONTACT_DUPLICATE_EMAIL"},
		{"duplicate phone", app.ErrDuplicatePhone, http.StatusConflict, "CONTACT_DUPLICATE_PHONE"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "SYSTEM_INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var resp *ErrorResponse
			if !errors.As(contactError(context.Background(), tc.err), &resp) {
				t.Fatalf("expected *ErrorResponse")
			}
			if resp.Status != tc.status || resp.Code != tc.code {
				t.Fatalf("got %d %s, want %d %s", resp.Status, resp.Code, tc.status, tc.code)
			}
		})
	}
}

func TestContactErrorHidesInternalMessage(t *testing.T) {
	resp := contactError(context.Background(), errors.New("pq: password authentication failed")).(*ErrorResponse)
	if resp.Message != "internal error" {
		t.Fatalf("internal error message leaked: %q", resp.Message)
	}
}

func TestInstalledErrorModelCollectsDetails(t *testing.T) {
	installErrorModel()
	err := huma.NewError(http.StatusUnprocessableEntity, "validation failed",
		&huma.ErrorDetail{Message: "expected integer", Location: "path.id"},
		errors.New("plain failure"),
	)
	resp, ok := err.(*ErrorResponse)
	if !ok {
		t.Fatalf("huma.NewError returned %T", err)
	}
	if resp.Code != "REQUEST_VALIDATION_FAILED" || len(resp.Details) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Details[0].Location != "path.id" || resp.Details[1].Reason != "plain failure" {
		t.Fatalf("unexpected details: %+v", resp.Details)
	}
}

func TestFieldOf(t *testing.T) {
	if got := fieldOf("areaCode is required"); got != "areaCode" {
		t.Fatalf("fieldOf = %q", got)
	}
}
