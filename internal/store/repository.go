/**
 * @description
 * This file defines the Repository interface: the persistence contract the
 * choreography coordinator and HTTP handlers depend on. Keeping the contract
 * as an interface lets tests swap in stubs without a database.
 *
 * @notes
 * - Credit-assessment and card-status writes are single-statement atomic
 *   updates: the inbound event fully determines the new field values, so
 *   last-write-wins is safe under redelivery.
 * - Financial-profile writes go through an optimistic version check;
 *   ErrVersionConflict signals a lost race and the caller decides whether to
 *   retry (consumers nack for redelivery, HTTP surfaces a conflict).
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/oliveiradevtech/onboarding-service/internal/domain"
)

var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrProfileNotFound   = errors.New("financial profile not found")
	ErrVersionConflict   = errors.New("aggregate was modified concurrently")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateDocument = errors.New("document id already registered")
	ErrDuplicateProfile  = errors.New("financial profile already exists")
)

// CardStatusParams carries the card fields overwritten by inbound issuance
// events.
type CardStatusParams struct {
	Status        string
	CardID        *uuid.UUID
	MaskedNumber  string
	FailureReason *string
	UpdatedAt     time.Time
}

// Repository is the persistence contract for the onboarding service.
type Repository interface {
	// Customer aggregate
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	CustomerExists(ctx context.Context, id uuid.UUID) (bool, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
	DocumentRegistered(ctx context.Context, documentID string) (bool, error)
	MarkAnalysisRequested(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkIssuanceRequested(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateCreditAssessment(ctx context.Context, id uuid.UUID, ranking, score int, aptForCard bool, at time.Time) error
	UpdateCardStatus(ctx context.Context, id uuid.UUID, params CardStatusParams) error
	DeactivateCustomer(ctx context.Context, id uuid.UUID) error

	// Financial profile aggregate
	CreateFinancialProfile(ctx context.Context, f *domain.FinancialProfile) error
	GetFinancialProfileByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.FinancialProfile, error)
	UpdateFinancialProfile(ctx context.Context, f *domain.FinancialProfile) error

	// Analysis expiry contract consumed by the periodic sweep.
	ListAnalysisExpired(ctx context.Context, now time.Time, limit int) ([]domain.FinancialProfile, error)
}
