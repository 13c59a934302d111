/**
 * @description
 * This file contains the HTTP handler functions for the onboarding service.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate business logic in the service layer, and writing the HTTP
 * response. Error mapping lives in respondWithServiceError so every handler
 * reports the same taxonomy: validation problems as 422, unknown customers as
 * 404, policy rejections as 409 and broker outages as 502.
 */
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oliveiradevtech/onboarding-service/internal/app"
	"github.com/oliveiradevtech/onboarding-service/internal/domain"
	"github.com/oliveiradevtech/onboarding-service/internal/store"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.Service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

type registerCustomerRequest struct {
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	DocumentID        string     `json:"document_id"`
	Address           string     `json:"address"`
	City              string     `json:"city"`
	State             string     `json:"state"`
	PostalCode        string     `json:"postal_code"`
	BirthDate         *time.Time `json:"birth_date,omitempty"`
	EstimatedIncome   int64      `json:"estimated_income"` // in centavos
	CreditHistoryHint string     `json:"credit_history_hint,omitempty"`
}

// handleRegisterCustomer handles the request to register a new customer.
func (h *Handler) handleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req registerCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	customer, err := h.service.RegisterCustomer(r.Context(), domain.NewCustomerParams{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		DocumentID:        req.DocumentID,
		Address:           req.Address,
		City:              req.City,
		State:             req.State,
		PostalCode:        req.PostalCode,
		BirthDate:         req.BirthDate,
		EstimatedIncome:   req.EstimatedIncome,
		CreditHistoryHint: req.CreditHistoryHint,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, customer)
}

type customerResponse struct {
	Customer *domain.Customer         `json:"customer"`
	Profile  *domain.FinancialProfile `json:"financial_profile,omitempty"`
	State    domain.CreditState       `json:"credit_state"`
}

// handleGetCustomer handles the request to fetch a customer with its
// financial profile and derived credit state.
func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerIDParam(w, r)
	if !ok {
		return
	}

	customer, profile, err := h.service.GetCustomer(r.Context(), customerID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, customerResponse{
		Customer: customer,
		Profile:  profile,
		State:    domain.DeriveCreditState(customer, profile),
	})
}

// handleDeactivateCustomer handles the request to soft-delete a customer.
func (h *Handler) handleDeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeactivateCustomer(r.Context(), customerID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSubmitFinancialInfo handles the request to create or update a
// customer's financial profile.
func (h *Handler) handleSubmitFinancialInfo(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerIDParam(w, r)
	if !ok {
		return
	}

	var req app.FinancialInfoInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	profile, err := h.service.SubmitFinancialInfo(r.Context(), customerID, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// handleApproveCreditLimit handles the request to activate a credit limit
// within the suggested bounds.
func (h *Handler) handleApproveCreditLimit(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		RequestedLimit int64 `json:"requested_limit"` // in centavos
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	profile, err := h.service.ApproveCreditLimit(r.Context(), customerID, req.RequestedLimit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// handleGetEligibility handles the request for a customer's derived credit
// standing.
func (h *Handler) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.service.Eligibility(r.Context(), customerID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// handleRequestCardIssuance handles the request to issue cards for an
// eligible customer.
func (h *Handler) handleRequestCardIssuance(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerIDParam(w, r)
	if !ok {
		return
	}

	receipt, err := h.service.RequestCardIssuance(r.Context(), customerID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, receipt)
}

// handleGetCardStatus handles the request for a customer's card issuance
// status.
func (h *Handler) handleGetCardStatus(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.service.CardStatus(r.Context(), customerID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// customerIDParam parses the {id} path parameter, writing a 400 on failure.
func customerIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Customer id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// respondWithServiceError translates service and domain errors to HTTP.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationErrors
	switch {
	case errors.As(err, &validation):
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "validation_failed",
			"problems": validation.Problems,
		})
	case errors.Is(err, store.ErrCustomerNotFound), errors.Is(err, store.ErrProfileNotFound):
		respondWithError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicateDocument):
		respondWithError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, store.ErrVersionConflict):
		respondWithError(w, http.StatusConflict, "version_conflict", "The record was modified concurrently, retry the request")
	case errors.Is(err, app.ErrNotEligible):
		respondWithError(w, http.StatusConflict, "not_eligible", err.Error())
	case errors.Is(err, app.ErrPublishFailed):
		respondWithError(w, http.StatusBadGateway, "transport_failure", "Could not reach the messaging broker, try again later")
	default:
		respondWithError(w, http.StatusInternalServerError, "internal", "Internal Server Error")
	}
}

func respondWithError(w http.ResponseWriter, code int, errCode, message string) {
	respondWithJSON(w, code, map[string]string{"error": errCode, "message": message})
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
