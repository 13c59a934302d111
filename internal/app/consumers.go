/**
 * @description
 * This file contains the inbound half of the choreography coordinator: the
 * message handlers for events produced by the credit-analysis and
 * card-issuance services. Delivery is at-least-once, so every handler is
 * idempotent: the customer's event-determined fields are written with
 * last-write-wins atomic updates, and re-applying the same event converges on
 * the same state.
 *
 * Disposition rules:
 * - Malformed or invalid payloads are dead-lettered (no requeue), never
 *   silently dropped.
 * - Events for unknown customers are logged and acknowledged; the message can
 *   never succeed, so redelivery would only loop.
 * - Persistence failures and version conflicts are requeued for retry.
 */
package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/oliveiradevtech/onboarding-service/internal/domain"
	"github.com/oliveiradevtech/onboarding-service/internal/store"
	"github.com/oliveiradevtech/onboarding-service/pkg/rabbitmq"
)

// consumeTimeout bounds the database work done for a single delivery.
const consumeTimeout = 15 * time.Second

// EventConsumers holds the inbound message handlers.
type EventConsumers struct {
	repo store.Repository

	now func() time.Time
}

// NewEventConsumers creates the inbound handlers.
func NewEventConsumers(repo store.Repository) *EventConsumers {
	return &EventConsumers{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// HandleCreditAnalysisCompleted applies a finished credit analysis: the
// customer's score, ranking and aptitude are updated atomically, and the
// financial profile records the analysis detail and next recommended date.
func (c *EventConsumers) HandleCreditAnalysisCompleted(body []byte) rabbitmq.Result {
	var event domain.CreditAnalysisCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=error component=consumer event=credit.analysis.completed msg=\"malformed payload\" err=%v", err)
		return rabbitmq.DeadLetter
	}
	if err := event.Validate(); err != nil {
		log.Printf("level=error component=consumer event=credit.analysis.completed msg=\"invalid payload\" customer_id=%s err=%v", event.CustomerID, err)
		return rabbitmq.DeadLetter
	}

	ctx, cancel := context.WithTimeout(context.Background(), consumeTimeout)
	defer cancel()

	now := c.now()
	apt := domain.ComputeAptitude(event.Ranking, event.Score)
	err := c.repo.UpdateCreditAssessment(ctx, event.CustomerID, event.Ranking, event.Score, apt, now)
	if errors.Is(err, store.ErrCustomerNotFound) {
		log.Printf("level=warn component=consumer event=credit.analysis.completed msg=\"unknown customer, dropping\" customer_id=%s", event.CustomerID)
		return rabbitmq.Ack
	}
	if err != nil {
		log.Printf("level=error component=consumer event=credit.analysis.completed msg=\"could not update assessment\" customer_id=%s err=%v", event.CustomerID, err)
		return rabbitmq.Requeue
	}

	result := domain.AnalysisResult{
		Score:           event.Score,
		Ranking:         event.Ranking,
		SuggestedLimit:  event.SuggestedLimit,
		RiskNarrative:   event.RiskNarrative,
		Recommendations: event.Recommendations,
	}
	if !event.EligibleForCard && event.Reason != "" {
		reason := event.Reason
		result.RefusalReason = &reason
	}
	if res := c.applyToProfile(ctx, event.CustomerID, func(f *domain.FinancialProfile) error {
		return f.RegisterAnalysis(result, now)
	}); res != rabbitmq.Ack {
		return res
	}

	log.Printf("level=info component=consumer event=credit.analysis.completed msg=\"analysis applied\" customer_id=%s score=%d ranking=%d apt=%t", event.CustomerID, event.Score, event.Ranking, apt)
	return rabbitmq.Ack
}

// HandleCreditAnalysisFailed records the refusal reason and failure timestamp
// so the customer surfaces as ANALYSIS_FAILED instead of pending forever.
func (c *EventConsumers) HandleCreditAnalysisFailed(body []byte) rabbitmq.Result {
	var event domain.CreditAnalysisFailedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=error component=consumer event=credit.analysis.failed msg=\"malformed payload\" err=%v", err)
		return rabbitmq.DeadLetter
	}
	if err := event.Validate(); err != nil {
		log.Printf("level=error component=consumer event=credit.analysis.failed msg=\"invalid payload\" customer_id=%s err=%v", event.CustomerID, err)
		return rabbitmq.DeadLetter
	}

	ctx, cancel := context.WithTimeout(context.Background(), consumeTimeout)
	defer cancel()

	if ok, res := c.requireCustomer(ctx, event.CustomerID, "credit.analysis.failed"); !ok {
		return res
	}

	now := c.now()
	if res := c.applyToProfile(ctx, event.CustomerID, func(f *domain.FinancialProfile) error {
		return f.RecordAnalysisFailure(event.Reason, now)
	}); res != rabbitmq.Ack {
		return res
	}

	log.Printf("level=warn component=consumer event=credit.analysis.failed msg=\"analysis failure recorded\" customer_id=%s reason=%q retryable=%t", event.CustomerID, event.Reason, event.Retryable)
	return rabbitmq.Ack
}

// HandleCardIssued records the issued card's id, masked number and reported
// status, and remembers the card type on the financial profile.
func (c *EventConsumers) HandleCardIssued(body []byte) rabbitmq.Result {
	var event domain.CardIssuedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=error component=consumer event=card.issued msg=\"malformed payload\" err=%v", err)
		return rabbitmq.DeadLetter
	}
	if err := event.Validate(); err != nil {
		log.Printf("level=error component=consumer event=card.issued msg=\"invalid payload\" customer_id=%s err=%v", event.CustomerID, err)
		return rabbitmq.DeadLetter
	}

	ctx, cancel := context.WithTimeout(context.Background(), consumeTimeout)
	defer cancel()

	cardID := event.CardID
	err := c.repo.UpdateCardStatus(ctx, event.CustomerID, store.CardStatusParams{
		Status:       event.Status,
		CardID:       &cardID,
		MaskedNumber: event.MaskedNumber,
		UpdatedAt:    c.now(),
	})
	if errors.Is(err, store.ErrCustomerNotFound) {
		log.Printf("level=warn component=consumer event=card.issued msg=\"unknown customer, dropping\" customer_id=%s", event.CustomerID)
		return rabbitmq.Ack
	}
	if err != nil {
		log.Printf("level=error component=consumer event=card.issued msg=\"could not update card status\" customer_id=%s err=%v", event.CustomerID, err)
		return rabbitmq.Requeue
	}

	cardType := event.CardType
	if cardType == "" {
		cardType = domain.ProductCodeCreditCard
	}
	now := c.now()
	if res := c.applyToProfile(ctx, event.CustomerID, func(f *domain.FinancialProfile) error {
		return f.RecordIssuedCard(cardType, now)
	}); res != rabbitmq.Ack {
		return res
	}

	log.Printf("level=info component=consumer event=card.issued msg=\"card issued\" customer_id=%s card_id=%s status=%s", event.CustomerID, event.CardID, event.Status)
	return rabbitmq.Ack
}

// HandleCardIssuanceFailed marks the customer's card issuance as failed with
// the downstream reason.
func (c *EventConsumers) HandleCardIssuanceFailed(body []byte) rabbitmq.Result {
	var event domain.CardIssuanceFailedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=error component=consumer event=card.issuance.failed msg=\"malformed payload\" err=%v", err)
		return rabbitmq.DeadLetter
	}
	if err := event.Validate(); err != nil {
		log.Printf("level=error component=consumer event=card.issuance.failed msg=\"invalid payload\" customer_id=%s err=%v", event.CustomerID, err)
		return rabbitmq.DeadLetter
	}

	ctx, cancel := context.WithTimeout(context.Background(), consumeTimeout)
	defer cancel()

	reason := event.Reason
	err := c.repo.UpdateCardStatus(ctx, event.CustomerID, store.CardStatusParams{
		Status:        domain.CardStatusFailed,
		FailureReason: &reason,
		UpdatedAt:     c.now(),
	})
	if errors.Is(err, store.ErrCustomerNotFound) {
		log.Printf("level=warn component=consumer event=card.issuance.failed msg=\"unknown customer, dropping\" customer_id=%s", event.CustomerID)
		return rabbitmq.Ack
	}
	if err != nil {
		log.Printf("level=error component=consumer event=card.issuance.failed msg=\"could not update card status\" customer_id=%s err=%v", event.CustomerID, err)
		return rabbitmq.Requeue
	}

	log.Printf("level=warn component=consumer event=card.issuance.failed msg=\"issuance failure recorded\" customer_id=%s reason=%q", event.CustomerID, event.Reason)
	return rabbitmq.Ack
}

// requireCustomer reports whether the customer exists. When it does not, or
// the lookup fails, the accompanying Result tells the handler how to dispose
// of the delivery: Ack drops events for unknown customers, Requeue retries
// lookup failures.
func (c *EventConsumers) requireCustomer(ctx context.Context, customerID uuid.UUID, eventName string) (bool, rabbitmq.Result) {
	exists, err := c.repo.CustomerExists(ctx, customerID)
	if err != nil {
		log.Printf("level=error component=consumer event=%s msg=\"customer lookup failed\" customer_id=%s err=%v", eventName, customerID, err)
		return false, rabbitmq.Requeue
	}
	if !exists {
		log.Printf("level=warn component=consumer event=%s msg=\"unknown customer, dropping\" customer_id=%s", eventName, customerID)
		return false, rabbitmq.Ack
	}
	return true, rabbitmq.Ack
}

// applyToProfile loads (or lazily creates) the customer's financial profile,
// runs mutate on it and persists the result. Version conflicts requeue the
// delivery so the whole handler re-runs against fresh state.
func (c *EventConsumers) applyToProfile(ctx context.Context, customerID uuid.UUID, mutate func(*domain.FinancialProfile) error) rabbitmq.Result {
	profile, err := c.repo.GetFinancialProfileByCustomerID(ctx, customerID)
	if errors.Is(err, store.ErrProfileNotFound) {
		profile, err = domain.NewFinancialProfile(customerID, 0, 0)
		if err != nil {
			log.Printf("level=error component=consumer msg=\"could not build financial profile\" customer_id=%s err=%v", customerID, err)
			return rabbitmq.DeadLetter
		}
		if err := mutate(profile); err != nil {
			log.Printf("level=error component=consumer msg=\"could not apply event to profile\" customer_id=%s err=%v", customerID, err)
			return rabbitmq.DeadLetter
		}
		err = c.repo.CreateFinancialProfile(ctx, profile)
		if errors.Is(err, store.ErrDuplicateProfile) {
			// Lost a create race; retry against the stored profile.
			return rabbitmq.Requeue
		}
		if err != nil {
			log.Printf("level=error component=consumer msg=\"could not create financial profile\" customer_id=%s err=%v", customerID, err)
			return rabbitmq.Requeue
		}
		return rabbitmq.Ack
	}
	if err != nil {
		log.Printf("level=error component=consumer msg=\"could not load financial profile\" customer_id=%s err=%v", customerID, err)
		return rabbitmq.Requeue
	}

	if err := mutate(profile); err != nil {
		log.Printf("level=error component=consumer msg=\"could not apply event to profile\" customer_id=%s err=%v", customerID, err)
		return rabbitmq.DeadLetter
	}
	if err := c.repo.UpdateFinancialProfile(ctx, profile); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			log.Printf("level=warn component=consumer msg=\"profile version conflict, requeueing\" customer_id=%s", customerID)
		} else {
			log.Printf("level=error component=consumer msg=\"could not persist financial profile\" customer_id=%s err=%v", customerID, err)
		}
		return rabbitmq.Requeue
	}
	return rabbitmq.Ack
}
