/**
 * @description
 * This file contains the outbound half of the choreography coordinator: the
 * synchronous use cases that create customers, manage financial data, and
 * request card issuance, publishing integration events to the broker as they
 * go.
 *
 * Key behaviors:
 * - Customer registration publishes a CustomerRegistered event best-effort:
 *   a broker outage is logged and the registration still succeeds. There is
 *   no local retry queue; a durable outbox would close that gap but is a
 *   known, deliberate omission here.
 * - Card issuance requests are user-triggered, so a failed publish surfaces
 *   to the caller as ErrPublishFailed, distinct from ErrNotEligible.
 *
 * @dependencies
 * - github.com/google/uuid: correlation and proposal ids.
 * - internal/domain, internal/store, internal/config, pkg/rabbitmq.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/oliveiradevtech/onboarding-service/internal/config"
	"github.com/oliveiradevtech/onboarding-service/internal/domain"
	"github.com/oliveiradevtech/onboarding-service/internal/store"
)

var (
	// ErrNotEligible means the customer does not pass the issuance gate.
	ErrNotEligible = errors.New("customer is not eligible for card issuance")
	// ErrPublishFailed means the broker rejected or timed out a user-triggered
	// publish. Distinct from eligibility failures so callers can tell a policy
	// rejection from a transport problem.
	ErrPublishFailed = errors.New("failed to publish integration event")
)

// defaultAge is reported to the analysis service when the customer has no
// birth date on record.
const defaultAge = 30

// EventPublisher is the broker client contract the coordinator needs.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload interface{}) error
}

// Service is the choreography coordinator's synchronous entry point.
type Service struct {
	repo      store.Repository
	publisher EventPublisher
	cfg       config.Config

	now func() time.Time
}

// NewService creates the onboarding service.
func NewService(repo store.Repository, publisher EventPublisher, cfg config.Config) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterCustomer validates and persists a new customer, then publishes the
// registration event that kicks off credit analysis. Messaging outages never
// fail a registration.
func (s *Service) RegisterCustomer(ctx context.Context, p domain.NewCustomerParams) (*domain.Customer, error) {
	customer, err := domain.NewCustomer(p)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailRegistered(ctx, customer.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, store.ErrDuplicateEmail
	}
	taken, err = s.repo.DocumentRegistered(ctx, customer.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("check document: %w", err)
	}
	if taken {
		return nil, store.ErrDuplicateDocument
	}

	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	hint := p.CreditHistoryHint
	if hint == "" {
		hint = domain.DefaultCreditHistoryHint
	}
	if err := s.requestCreditAnalysis(ctx, customer, hint); err != nil {
		// Best effort: the customer exists either way. Analysis starts once
		// the broker is reachable again (the expiry sweep re-requests it).
		log.Printf("level=warn component=onboarding msg=\"could not publish registration event\" customer_id=%s err=%v", customer.ID, err)
	}

	return customer, nil
}

// RequestReanalysis republishes the analysis-request event for an existing
// customer. Used by the periodic expiry sweep.
func (s *Service) RequestReanalysis(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return err
	}
	return s.requestCreditAnalysis(ctx, customer, domain.DefaultCreditHistoryHint)
}

func (s *Service) requestCreditAnalysis(ctx context.Context, customer *domain.Customer, hint string) error {
	now := s.now()
	event := domain.CustomerRegisteredEvent{
		CustomerID:        customer.ID,
		Name:              customer.Name,
		DocumentID:        customer.DocumentID,
		Email:             customer.Email,
		EstimatedIncome:   customer.EstimatedIncome,
		Age:               customer.Age(now, defaultAge),
		CreditHistoryHint: hint,
		BirthDate:         customer.BirthDate,
		RegisteredAt:      now,
	}

	if err := s.publish(ctx, s.cfg.CustomerRegisteredKey, event); err != nil {
		return err
	}

	if err := s.repo.MarkAnalysisRequested(ctx, customer.ID, now); err != nil {
		log.Printf("level=warn component=onboarding msg=\"could not mark analysis requested\" customer_id=%s err=%v", customer.ID, err)
	}
	return nil
}

// IssuanceReceipt is returned to the caller when an issuance request was
// accepted and published.
type IssuanceReceipt struct {
	CustomerID     uuid.UUID `json:"customer_id"`
	CardCount      int       `json:"card_count"`
	LimitPerCard   int64     `json:"limit_per_card"` // in centavos
	TotalLimit     int64     `json:"total_limit"`    // in centavos
	CorrelationID  string    `json:"correlation_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	RequestedAt    time.Time `json:"requested_at"`
}

// RequestCardIssuance checks the issuance gate, builds an idempotent issuance
// request and publishes it. The gate requires aptitude plus a score of at
// least 501, a distinct threshold from the 600 aptitude cut.
// Publish failures here are fatal for the operation and surface to the caller.
func (s *Service) RequestCardIssuance(ctx context.Context, customerID uuid.UUID) (*IssuanceReceipt, error) {
	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !customer.AptForCard || customer.Score < domain.MinScoreForIssuance {
		return nil, fmt.Errorf("%w: requires aptitude and score >= %d, got apt=%t score=%d",
			ErrNotEligible, domain.MinScoreForIssuance, customer.AptForCard, customer.Score)
	}

	cardCount := 1
	if customer.Score >= domain.MinScoreForIssuance {
		cardCount = 2
	}
	totalLimit := int64(customer.Score) * 1000 // score * 10 currency units, in centavos
	limitPerCard := totalLimit / int64(cardCount)

	now := s.now()
	event := domain.CardIssuanceRequestedEvent{
		CustomerID:     customer.ID,
		ProposalID:     uuid.New(),
		AccountID:      uuid.New(),
		ProductCode:    domain.ProductCodeCreditCard,
		CardCount:      cardCount,
		LimitPerCard:   limitPerCard,
		CorrelationID:  uuid.NewString(),
		IdempotencyKey: domain.IdempotencyKey(customer.ID, now),
		Delivery: domain.CardDelivery{
			Method: domain.DeliveryMethodDefault,
			Address: domain.DeliveryAddress{
				Street:     customer.Address,
				City:       customer.City,
				State:      customer.State,
				PostalCode: customer.PostalCode,
			},
		},
		RequestedAt: now,
	}

	if err := s.publish(ctx, s.cfg.CardIssuanceRequestedKey, event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	if err := s.repo.MarkIssuanceRequested(ctx, customer.ID, now); err != nil {
		log.Printf("level=warn component=onboarding msg=\"could not mark issuance requested\" customer_id=%s err=%v", customer.ID, err)
	}

	log.Printf("level=info component=onboarding msg=\"card issuance requested\" customer_id=%s cards=%d limit_per_card=%d", customer.ID, cardCount, limitPerCard)
	return &IssuanceReceipt{
		CustomerID:     customer.ID,
		CardCount:      cardCount,
		LimitPerCard:   limitPerCard,
		TotalLimit:     totalLimit,
		CorrelationID:  event.CorrelationID,
		IdempotencyKey: event.IdempotencyKey,
		RequestedAt:    now,
	}, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, payload interface{}) error {
	timeout := s.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pubCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.publisher.Publish(pubCtx, s.cfg.EventsExchange, routingKey, payload)
}

// DeactivateCustomer soft-deletes a customer. Events still in flight for it
// will be dropped by the consumers once the row is inactive.
func (s *Service) DeactivateCustomer(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeactivateCustomer(ctx, id); err != nil {
		return err
	}
	log.Printf("level=info component=onboarding msg=\"customer deactivated\" customer_id=%s", id)
	return nil
}

// GetCustomer returns a customer with its financial profile, which may be nil
// when no financial data or analysis exists yet.
func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, *domain.FinancialProfile, error) {
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.repo.GetFinancialProfileByCustomerID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			return customer, nil, nil
		}
		return nil, nil, err
	}
	return customer, profile, nil
}

// FinancialInfoInput carries a financial-data submission.
type FinancialInfoInput struct {
	Income           int64 `json:"income"`        // in centavos
	ProvenIncome     int64 `json:"proven_income"` // in centavos
	TotalDebt        int64 `json:"total_debt"`    // in centavos
	OpenCredits12m   int   `json:"open_credits_12m"`
	Delinquencies12m int   `json:"delinquencies_12m"`
}

// SubmitFinancialInfo creates the financial profile on first submission and
// updates income and debt figures on subsequent ones.
func (s *Service) SubmitFinancialInfo(ctx context.Context, customerID uuid.UUID, in FinancialInfoInput) (*domain.FinancialProfile, error) {
	exists, err := s.repo.CustomerExists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrCustomerNotFound
	}

	now := s.now()
	profile, err := s.repo.GetFinancialProfileByCustomerID(ctx, customerID)
	if errors.Is(err, store.ErrProfileNotFound) {
		profile, err = domain.NewFinancialProfile(customerID, in.Income, in.ProvenIncome)
		if err != nil {
			return nil, err
		}
		if err := profile.UpdateDebts(in.TotalDebt, in.OpenCredits12m, in.Delinquencies12m, now); err != nil {
			return nil, err
		}
		if err := s.repo.CreateFinancialProfile(ctx, profile); err != nil {
			return nil, err
		}
		return profile, nil
	}
	if err != nil {
		return nil, err
	}

	if err := profile.UpdateIncome(in.Income, in.ProvenIncome, now); err != nil {
		return nil, err
	}
	if err := profile.UpdateDebts(in.TotalDebt, in.OpenCredits12m, in.Delinquencies12m, now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFinancialProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ApproveCreditLimit activates a credit limit within the bounds suggested by
// the last analysis.
func (s *Service) ApproveCreditLimit(ctx context.Context, customerID uuid.UUID, requested int64) (*domain.FinancialProfile, error) {
	profile, err := s.repo.GetFinancialProfileByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := profile.ApproveLimit(requested, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFinancialProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// EligibilityView is the derived credit standing of a customer.
type EligibilityView struct {
	CustomerID      uuid.UUID          `json:"customer_id"`
	State           domain.CreditState `json:"state"`
	AptForCard      bool               `json:"apt_for_card"`
	Score           int                `json:"score"`
	Ranking         int                `json:"ranking"`
	RankingLabel    string             `json:"ranking_label"`
	PaymentCapacity int64              `json:"payment_capacity"` // in centavos
	AtRisk          bool               `json:"at_risk"`
	AnalysisExpired bool               `json:"analysis_expired"`
	NextAnalysisDue *time.Time         `json:"next_analysis_due,omitempty"`
}

// Eligibility derives the customer's current credit standing.
func (s *Service) Eligibility(ctx context.Context, customerID uuid.UUID) (*EligibilityView, error) {
	customer, profile, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	view := &EligibilityView{
		CustomerID:      customer.ID,
		State:           domain.DeriveCreditState(customer, profile),
		AptForCard:      customer.AptForCard,
		Score:           customer.Score,
		Ranking:         customer.Ranking,
		RankingLabel:    customer.RankingLabel(),
		AnalysisExpired: true,
	}
	if profile != nil {
		view.PaymentCapacity = profile.PaymentCapacity()
		view.AtRisk = profile.AtRisk()
		view.AnalysisExpired = profile.AnalysisExpired(s.now())
		view.NextAnalysisDue = profile.NextRecommendedAnalysisAt
	}
	return view, nil
}

// CardStatusView reports where a customer stands in the issuance flow.
type CardStatusView struct {
	CustomerID       uuid.UUID          `json:"customer_id"`
	State            domain.CreditState `json:"state"`
	CardStatus       string             `json:"card_status,omitempty"`
	CardID           *uuid.UUID         `json:"card_id,omitempty"`
	CardMaskedNumber string             `json:"card_masked_number,omitempty"`
	FailureReason    *string            `json:"failure_reason,omitempty"`
	EligibleCards    int                `json:"eligible_cards"`
}

// CardStatus derives the customer's card issuance status.
func (s *Service) CardStatus(ctx context.Context, customerID uuid.UUID) (*CardStatusView, error) {
	customer, profile, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	eligible := 0
	if customer.AptForCard && customer.Score >= domain.MinScoreForIssuance {
		eligible = 2
	}
	return &CardStatusView{
		CustomerID:       customer.ID,
		State:            domain.DeriveCreditState(customer, profile),
		CardStatus:       customer.CardStatus,
		CardID:           customer.CardID,
		CardMaskedNumber: customer.CardMaskedNumber,
		FailureReason:    customer.CardFailureReason,
		EligibleCards:    eligible,
	}, nil
}
