/**
 * @description
 * This file defines the integration-event contracts exchanged with the
 * credit-analysis and card-issuance services over RabbitMQ. Outbound events
 * are published by this service; inbound events are consumed from it with
 * at-least-once semantics, so every inbound payload carries a Validate method
 * the consumers run before touching any aggregate.
 *
 * @notes
 * - Outbound events carry a correlation id plus an idempotency key built from
 *   the customer id and a second-resolution timestamp, so the downstream
 *   issuance service can deduplicate retried publishes.
 */
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Product and delivery codes used on issuance requests.
const (
	ProductCodeCreditCard = "CREDIT_CARD_PLATINUM"
	DeliveryMethodDefault = "CORREIOS_SEDEX"
)

// IdempotencyKey builds the deduplication key for outbound issuance requests:
// customer id plus a second-resolution UTC timestamp.
func IdempotencyKey(customerID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s_%s", customerID, at.UTC().Format("20060102150405"))
}

// CustomerRegisteredEvent is published after a customer is created so the
// credit-analysis service can start scoring.
type CustomerRegisteredEvent struct {
	CustomerID        uuid.UUID  `json:"customer_id"`
	Name              string     `json:"name"`
	DocumentID        string     `json:"document_id"`
	Email             string     `json:"email"`
	EstimatedIncome   int64      `json:"estimated_income"` // in centavos
	Age               int        `json:"age"`
	CreditHistoryHint string     `json:"credit_history_hint"`
	BirthDate         *time.Time `json:"birth_date,omitempty"`
	RegisteredAt      time.Time  `json:"registered_at"`
}

// DeliveryAddress is the card delivery destination copied from the customer
// profile at request time.
type DeliveryAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// CardDelivery describes how and where the issued cards should be delivered.
type CardDelivery struct {
	Method  string          `json:"method"`
	Address DeliveryAddress `json:"address"`
}

// CardIssuanceRequestedEvent is published when an issuance request passes the
// eligibility gate.
type CardIssuanceRequestedEvent struct {
	CustomerID     uuid.UUID    `json:"customer_id"`
	ProposalID     uuid.UUID    `json:"proposal_id"`
	AccountID      uuid.UUID    `json:"account_id"`
	ProductCode    string       `json:"product_code"`
	CardCount      int          `json:"card_count"`
	LimitPerCard   int64        `json:"limit_per_card"` // in centavos
	CorrelationID  string       `json:"correlation_id"`
	IdempotencyKey string       `json:"idempotency_key"`
	Delivery       CardDelivery `json:"delivery"`
	RequestedAt    time.Time    `json:"requested_at"`
}

// CreditAnalysisCompletedEvent is consumed when the credit-analysis service
// finishes scoring a customer.
type CreditAnalysisCompletedEvent struct {
	CustomerID      uuid.UUID `json:"customer_id"`
	Score           int       `json:"score"`
	Ranking         int       `json:"ranking"`
	EligibleForCard bool      `json:"eligible_for_card"`
	Reason          string    `json:"reason"`
	SuggestedLimit  int64     `json:"suggested_limit"` // in centavos
	MaxCards        int       `json:"max_cards"`
	RiskNarrative   string    `json:"risk_narrative"`
	Recommendations string    `json:"recommendations"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// Validate checks the payload. Completed analyses always carry a ranking of
// at least 1; ranking 0 (unrated) cannot be the outcome of an analysis.
func (e CreditAnalysisCompletedEvent) Validate() error {
	errs := &ValidationErrors{}
	if e.CustomerID == uuid.Nil {
		errs.add("customer id cannot be empty")
	}
	if e.Score < ScoreMin || e.Score > ScoreMax {
		errs.add(fmt.Sprintf("score must be between %d and %d", ScoreMin, ScoreMax))
	}
	if e.Ranking < 1 || e.Ranking > RankingMax {
		errs.add(fmt.Sprintf("ranking must be between 1 and %d", RankingMax))
	}
	if e.Reason == "" {
		errs.add("reason cannot be empty")
	}
	return errs.orNil()
}

// CreditAnalysisFailedEvent is consumed when the credit-analysis service
// could not score a customer.
type CreditAnalysisFailedEvent struct {
	CustomerID  uuid.UUID `json:"customer_id"`
	Reason      string    `json:"reason"`
	Retryable   bool      `json:"retryable"`
	AttemptedAt time.Time `json:"attempted_at"`
}

func (e CreditAnalysisFailedEvent) Validate() error {
	errs := &ValidationErrors{}
	if e.CustomerID == uuid.Nil {
		errs.add("customer id cannot be empty")
	}
	if e.Reason == "" {
		errs.add("reason cannot be empty")
	}
	return errs.orNil()
}

// CardIssuedEvent is consumed when the card-issuance service completes a
// request.
type CardIssuedEvent struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	CardID       uuid.UUID `json:"card_id"`
	MaskedNumber string    `json:"masked_number"`
	CardType     string    `json:"card_type"`
	Status       string    `json:"status"`
	IssuedAt     time.Time `json:"issued_at"`
}

func (e CardIssuedEvent) Validate() error {
	errs := &ValidationErrors{}
	if e.CustomerID == uuid.Nil {
		errs.add("customer id cannot be empty")
	}
	if e.CardID == uuid.Nil {
		errs.add("card id cannot be empty")
	}
	if e.Status == "" {
		errs.add("status cannot be empty")
	}
	return errs.orNil()
}

// CardIssuanceFailedEvent is consumed when the card-issuance service rejects
// or fails a request.
type CardIssuanceFailedEvent struct {
	CustomerID  uuid.UUID `json:"customer_id"`
	Reason      string    `json:"reason"`
	AttemptedAt time.Time `json:"attempted_at"`
}

func (e CardIssuanceFailedEvent) Validate() error {
	errs := &ValidationErrors{}
	if e.CustomerID == uuid.Nil {
		errs.add("customer id cannot be empty")
	}
	if e.Reason == "" {
		errs.add("reason cannot be empty")
	}
	return errs.orNil()
}
