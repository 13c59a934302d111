package app

import (
	"context"
	"testing"
	"time"

	"github.com/oliveiradevtech/onboarding-service/internal/domain"
	"github.com/oliveiradevtech/onboarding-service/pkg/rabbitmq"
)

// Exercises the whole happy path: registration publishes an analysis request,
// the analysis outcome arrives as an event, and the now-eligible customer
// requests card issuance.
func TestOnboardingFlow(t *testing.T) {
	repo := newMemRepo()
	publisher := &publisherStub{}
	service := newTestService(repo, publisher)

	analyzedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	consumers := newTestConsumers(repo, analyzedAt)

	customer, err := service.RegisterCustomer(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("RegisterCustomer returned error: %v", err)
	}

	view, err := service.Eligibility(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("Eligibility returned error: %v", err)
	}
	if view.State != domain.StateAnalysisPending {
		t.Fatalf("expected state %s after registration, got %s", domain.StateAnalysisPending, view.State)
	}

	body := mustJSON(t, domain.CreditAnalysisCompletedEvent{
		CustomerID:     customer.ID,
		Score:          650,
		Ranking:        4,
		Reason:         "scored",
		SuggestedLimit: 650000,
	})
	if res := consumers.HandleCreditAnalysisCompleted(body); res != rabbitmq.Ack {
		t.Fatalf("expected Ack, got %v", res)
	}

	view, err = service.Eligibility(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("Eligibility returned error: %v", err)
	}
	if view.State != domain.StateAnalyzedApt || !view.AptForCard {
		t.Fatalf("expected an apt customer after analysis, got %+v", view)
	}
	wantDue := analyzedAt.AddDate(0, 0, 270)
	if view.NextAnalysisDue == nil || !view.NextAnalysisDue.Equal(wantDue) {
		t.Fatalf("expected next analysis due %v, got %v", wantDue, view.NextAnalysisDue)
	}

	receipt, err := service.RequestCardIssuance(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("RequestCardIssuance returned error: %v", err)
	}
	if receipt.CardCount != 2 || receipt.LimitPerCard != 325000 {
		t.Fatalf("expected 2 cards at 325000 centavos each for score 650, got %+v", receipt)
	}

	events := publisher.published()
	if len(events) != 2 {
		t.Fatalf("expected registration + issuance events, got %d", len(events))
	}
	issuance, ok := events[1].payload.(domain.CardIssuanceRequestedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", events[1].payload)
	}
	if issuance.IdempotencyKey == "" || issuance.CorrelationID == "" {
		t.Fatal("issuance event must carry idempotency key and correlation id")
	}

	status, err := service.CardStatus(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("CardStatus returned error: %v", err)
	}
	if status.State != domain.StateIssuanceRequested {
		t.Fatalf("expected state %s, got %s", domain.StateIssuanceRequested, status.State)
	}
}
