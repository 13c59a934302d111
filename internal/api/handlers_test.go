package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oliveiradevtech/onboarding-service/internal/app"
	"github.com/oliveiradevtech/onboarding-service/internal/domain"
	"github.com/oliveiradevtech/onboarding-service/internal/store"
)

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"customer not found", store.ErrCustomerNotFound, http.StatusNotFound, "not_found"},
		{"profile not found", store.ErrProfileNotFound, http.StatusNotFound, "not_found"},
		{"duplicate email", store.ErrDuplicateEmail, http.StatusConflict, "duplicate"},
		{"duplicate document", store.ErrDuplicateDocument, http.StatusConflict, "duplicate"},
		{"version conflict", store.ErrVersionConflict, http.StatusConflict, "version_conflict"},
		{"not eligible", fmt.Errorf("%w: score too low", app.ErrNotEligible), http.StatusConflict, "not_eligible"},
		{"publish failed", fmt.Errorf("%w: dial timeout", app.ErrPublishFailed), http.StatusBadGateway, "transport_failure"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if body["error"] != tt.wantCode {
				t.Fatalf("expected error code %q, got %q", tt.wantCode, body["error"])
			}
		})
	}
}

func TestRespondWithServiceError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithServiceError(rec, domain.NewValidationError("email is invalid"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	var body struct {
		Error    string   `json:"error"`
		Problems []string `json:"problems"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Error != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q", body.Error)
	}
	if len(body.Problems) != 1 || body.Problems[0] != "email is invalid" {
		t.Fatalf("expected the problem list surfaced, got %v", body.Problems)
	}
}
