package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oliveiradevtech/onboarding-service/internal/domain"
)

func newTestJobs(repo *memRepo, publisher *publisherStub) *Jobs {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJobs(repo, newTestService(repo, publisher), logger, testConfig())
}

func seedProfileDue(t *testing.T, repo *memRepo, due *time.Time) {
	t.Helper()
	id := seedAnalyzedCustomer(t, repo, 3, 620)
	profile, err := domain.NewFinancialProfile(id, 850000, 0)
	if err != nil {
		t.Fatalf("NewFinancialProfile returned error: %v", err)
	}
	profile.NextRecommendedAnalysisAt = due
	if err := repo.CreateFinancialProfile(context.Background(), profile); err != nil {
		t.Fatalf("CreateFinancialProfile returned error: %v", err)
	}
}

func TestSweepExpiredAnalyses_RequestsReanalysis(t *testing.T) {
	repo := newMemRepo()
	publisher := &publisherStub{}
	past := time.Now().UTC().AddDate(0, 0, -1)
	seedProfileDue(t, repo, &past)
	seedProfileDue(t, repo, nil) // never recommended counts as due

	future := time.Now().UTC().AddDate(0, 0, 30)
	seedProfileDue(t, repo, &future)

	jobs := newTestJobs(repo, publisher)
	jobs.SweepExpiredAnalyses()

	events := publisher.published()
	if len(events) != 2 {
		t.Fatalf("expected 2 reanalysis requests, got %d", len(events))
	}
	for _, e := range events {
		if e.routingKey != "customer.registered" {
			t.Fatalf("expected routing key customer.registered, got %q", e.routingKey)
		}
	}
}

func TestSweepExpiredAnalyses_NothingDue(t *testing.T) {
	repo := newMemRepo()
	publisher := &publisherStub{}
	future := time.Now().UTC().AddDate(0, 0, 30)
	seedProfileDue(t, repo, &future)

	jobs := newTestJobs(repo, publisher)
	jobs.SweepExpiredAnalyses()

	if len(publisher.published()) != 0 {
		t.Fatal("expected no reanalysis requests when nothing is due")
	}
}

func TestSweepExpiredAnalyses_ListFailureAborts(t *testing.T) {
	repo := newMemRepo()
	repo.listErr = errors.New("db unavailable")
	publisher := &publisherStub{}

	jobs := newTestJobs(repo, publisher)
	jobs.SweepExpiredAnalyses()

	if len(publisher.published()) != 0 {
		t.Fatal("expected no publishes when the listing fails")
	}
}

func TestSweepExpiredAnalyses_ContinuesPastPublishFailures(t *testing.T) {
	repo := newMemRepo()
	publisher := &publisherStub{err: errors.New("broker down")}
	past := time.Now().UTC().AddDate(0, 0, -1)
	seedProfileDue(t, repo, &past)
	seedProfileDue(t, repo, &past)

	jobs := newTestJobs(repo, publisher)
	jobs.SweepExpiredAnalyses() // must not panic or abort mid-sweep
}
