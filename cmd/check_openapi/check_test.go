package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const contractDoc = `
openapi: 3.1.0
paths:
  /contacts:
    get: {operationId: list-contacts}
    post: {operationId: create-contact}
  /contacts/{id}:
    get: {operationId: get-contact}
    put: {operationId: update-contact}
    delete: {operationId: delete-contact}
components:
  schemas:
    Contact:
      type: object
      required: [id, name, areaCode, phoneNumber, email, createdAt, updatedAt]
      properties:
        id: {type: integer, format: int64}
        name: {type: string}
        areaCode: {type: string}
        phoneNumber: {type: string}
        email: {type: string, format: email}
        createdAt: {type: string, format: date-time}
        updatedAt: {type: string, format: date-time}
    ContactList:
      type: object
      required: [items, count]
      properties:
        items:
          type: array
          items: {$ref: "#/components/schemas/Contact"}
        count: {type: integer, format: int64}
    ErrorResponse:
      type: object
      required: [error, code]
      properties:
        error: {type: string}
        code: {type: string}
        requestId: {type: string}
        details:
          type: array
          items: {$ref: "#/components/schemas/ErrorDetail"}
    ErrorDetail:
      type: object
      required: [reason]
      properties:
        reason: {type: string}
        location: {type: string}
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return path
}

func mustLoad(t *testing.T, content string) openAPIDoc {
	t.Helper()
	doc, err := loadDoc(context.Background(), writeDoc(t, content))
	if err != nil {
		t.Fatalf("load doc: %v", err)
	}
	return doc
}

func TestCheckContractAcceptsValidDoc(t *testing.T) {
	if err := checkContract(mustLoad(t, contractDoc)); err != nil {
		t.Fatalf("checkContract: %v", err)
	}
}

func TestCheckContractRejectsBrokenDocs(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		wantErr string
	}{
		{"optional email", "required: [id, name, areaCode, phoneNumber, email, createdAt, updatedAt]", "required: [id, name, areaCode, phoneNumber]", "Contact.email"},
		{"error code missing", "required: [error, code]", "required: [error]", `"code"`},
		{"details not referencing detail", `items: {$ref: "#/components/schemas/ErrorDetail"}`, `items: {type: string}`, "ErrorDetail"},
		{"delete route missing", "    delete: {operationId: delete-contact}\n", "", "DELETE /contacts/{id}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			broken := strings.Replace(contractDoc, tc.old, tc.new, 1)
			if broken == contractDoc {
				t.Fatalf("fixture replacement %q did not apply", tc.old)
			}
			err := checkContract(mustLoad(t, broken))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCompareDocsDetectsDrift(t *testing.T) {
	baseline := mustLoad(t, contractDoc)

	withExtra := strings.Replace(contractDoc, "        location: {type: string}\n", "        location: {type: string}\n        hint: {type: string}\n", 1)
	if err := compareDocs(baseline, mustLoad(t, withExtra)); err != nil {
		t.Fatalf("adding an optional property should be compatible: %v", err)
	}

	retyped := strings.Replace(contractDoc, "count: {type: integer, format: int64}", "count: {type: string}", 1)
	if err := compareDocs(baseline, mustLoad(t, retyped)); err == nil || !strings.Contains(err.Error(), "ContactList") {
		t.Fatalf("expected ContactList drift, got %v", err)
	}
}

func TestLoadDocFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(contractDoc))
	}))
	defer srv.Close()

	doc, err := loadDoc(context.Background(), srv.URL+"/openapi.yaml")
	if err != nil {
		t.Fatalf("load from url: %v", err)
	}
	if err := checkContract(doc); err != nil {
		t.Fatalf("checkContract: %v", err)
	}
	if _, err := loadDoc(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatalf("expected error for 404")
	}
}
