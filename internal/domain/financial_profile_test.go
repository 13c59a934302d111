package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestProfile(t *testing.T) *FinancialProfile {
	t.Helper()
	f, err := NewFinancialProfile(uuid.New(), 850000, 800000)
	if err != nil {
		t.Fatalf("NewFinancialProfile returned error: %v", err)
	}
	return f
}

func TestNewFinancialProfile_Validation(t *testing.T) {
	if _, err := NewFinancialProfile(uuid.Nil, 0, 0); err == nil {
		t.Fatal("expected empty customer id to be rejected")
	}
	if _, err := NewFinancialProfile(uuid.New(), -1, 0); err == nil {
		t.Fatal("expected negative income to be rejected")
	}
	if _, err := NewFinancialProfile(uuid.New(), 0, -1); err == nil {
		t.Fatal("expected negative proven income to be rejected")
	}
}

func TestRegisterAnalysis(t *testing.T) {
	f := newTestProfile(t)
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	err := f.RegisterAnalysis(AnalysisResult{
		Score:          650,
		Ranking:        4,
		SuggestedLimit: 650000,
		RiskNarrative:  "stable income",
	}, now)
	if err != nil {
		t.Fatalf("RegisterAnalysis returned error: %v", err)
	}

	if f.Score != 650 || f.Ranking != 4 {
		t.Fatalf("expected score=650 ranking=4, got score=%d ranking=%d", f.Score, f.Ranking)
	}
	if !f.AptForCard {
		t.Fatal("ranking 4 with score 650 must be apt")
	}
	if f.LastAnalysisAt == nil || !f.LastAnalysisAt.Equal(now) {
		t.Fatal("expected last analysis timestamp recorded")
	}
	wantDue := now.AddDate(0, 0, 270)
	if f.NextRecommendedAnalysisAt == nil || !f.NextRecommendedAnalysisAt.Equal(wantDue) {
		t.Fatalf("expected next analysis due %v, got %v", wantDue, f.NextRecommendedAnalysisAt)
	}
	if f.AnalysisExpired(now) {
		t.Fatal("a freshly analyzed profile must not count as expired")
	}
	if f.AnalysisExpired(wantDue.Add(time.Second)) != true {
		t.Fatal("a profile past its recommended date must count as expired")
	}
}

func TestRegisterAnalysis_ClearsPreviousFailure(t *testing.T) {
	f := newTestProfile(t)
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	if err := f.RecordAnalysisFailure("bureau unavailable", now); err != nil {
		t.Fatalf("RecordAnalysisFailure returned error: %v", err)
	}
	if err := f.RegisterAnalysis(AnalysisResult{Score: 700, Ranking: 5}, now.Add(time.Hour)); err != nil {
		t.Fatalf("RegisterAnalysis returned error: %v", err)
	}
	if f.AnalysisFailedAt != nil {
		t.Fatal("a successful analysis must clear the failure marker")
	}
}

func TestRegisterAnalysis_InvalidResultLeavesProfileUntouched(t *testing.T) {
	f := newTestProfile(t)
	now := time.Now().UTC()
	if err := f.RegisterAnalysis(AnalysisResult{Score: 500, Ranking: 3}, now); err != nil {
		t.Fatalf("RegisterAnalysis returned error: %v", err)
	}
	before := *f

	for _, r := range []AnalysisResult{
		{Score: 1001, Ranking: 3},
		{Score: -1, Ranking: 3},
		{Score: 500, Ranking: 6},
		{Score: 500, Ranking: -1},
		{Score: 500, Ranking: 3, SuggestedLimit: -1},
	} {
		if err := f.RegisterAnalysis(r, now.Add(time.Hour)); err == nil {
			t.Errorf("expected result %+v to be rejected", r)
		}
	}

	if f.Score != before.Score || f.Ranking != before.Ranking || !f.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatal("rejected analyses must not touch the profile")
	}
}

func TestRecordAnalysisFailure(t *testing.T) {
	f := newTestProfile(t)
	now := time.Now().UTC()
	if err := f.RegisterAnalysis(AnalysisResult{Score: 700, Ranking: 4}, now); err != nil {
		t.Fatalf("RegisterAnalysis returned error: %v", err)
	}

	at := now.Add(time.Hour)
	if err := f.RecordAnalysisFailure("bureau timeout", at); err != nil {
		t.Fatalf("RecordAnalysisFailure returned error: %v", err)
	}
	if f.RefusalReason == nil || *f.RefusalReason != "bureau timeout" {
		t.Fatal("expected refusal reason recorded")
	}
	if f.AnalysisFailedAt == nil || !f.AnalysisFailedAt.Equal(at) {
		t.Fatal("expected failure timestamp recorded")
	}
	if f.AptForCard {
		t.Fatal("a failed analysis must revoke aptitude")
	}

	if err := f.RecordAnalysisFailure("   ", at); err == nil {
		t.Fatal("expected blank reason to be rejected")
	}
}

func TestApproveLimit(t *testing.T) {
	f := newTestProfile(t)
	now := time.Now().UTC()
	if err := f.RegisterAnalysis(AnalysisResult{Score: 700, Ranking: 4, SuggestedLimit: 700000}, now); err != nil {
		t.Fatalf("RegisterAnalysis returned error: %v", err)
	}

	if err := f.ApproveLimit(0, now); err == nil {
		t.Fatal("expected zero limit to be rejected")
	}
	if err := f.ApproveLimit(700001, now); err == nil {
		t.Fatal("expected limit above the suggested one to be rejected")
	}
	if err := f.ApproveLimit(500000, now); err != nil {
		t.Fatalf("ApproveLimit returned error: %v", err)
	}
	if f.ActiveLimit != 500000 {
		t.Fatalf("expected active limit 500000, got %d", f.ActiveLimit)
	}

	// A later, lower suggested limit does not claw back the active one.
	if err := f.RegisterAnalysis(AnalysisResult{Score: 620, Ranking: 3, SuggestedLimit: 300000}, now.Add(time.Hour)); err != nil {
		t.Fatalf("RegisterAnalysis returned error: %v", err)
	}
	if f.ActiveLimit != 500000 {
		t.Fatalf("expected active limit untouched by re-analysis, got %d", f.ActiveLimit)
	}
}

func TestRecordIssuedCard(t *testing.T) {
	f := newTestProfile(t)
	now := time.Now().UTC()

	if err := f.RecordIssuedCard("CREDIT_CARD_PLATINUM", now); err != nil {
		t.Fatalf("RecordIssuedCard returned error: %v", err)
	}
	if err := f.RecordIssuedCard("CREDIT_CARD_PLATINUM", now.Add(time.Hour)); err != nil {
		t.Fatalf("duplicate RecordIssuedCard returned error: %v", err)
	}
	if len(f.IssuedCardTypes) != 1 {
		t.Fatalf("expected deduplicated card types, got %v", f.IssuedCardTypes)
	}
	if err := f.RecordIssuedCard(" ", now); err == nil {
		t.Fatal("expected blank card type to be rejected")
	}
}

func TestCardTypeSet(t *testing.T) {
	set := ParseCardTypeSet(" CREDIT_CARD_PLATINUM , DEBIT , CREDIT_CARD_PLATINUM ,,")
	if len(set) != 2 {
		t.Fatalf("expected 2 entries after parse, got %v", set)
	}
	if !set.Contains("DEBIT") || set.Contains("PREPAID") {
		t.Fatal("Contains gave wrong answers")
	}
	if got := set.String(); got != "CREDIT_CARD_PLATINUM,DEBIT" {
		t.Fatalf("expected insertion-ordered storage form, got %q", got)
	}
	if !set.Remove("DEBIT") || set.Remove("DEBIT") {
		t.Fatal("Remove must report whether the entry was present")
	}
	if got := set.String(); got != "CREDIT_CARD_PLATINUM" {
		t.Fatalf("expected single entry after removal, got %q", got)
	}
}

func TestProfileDerivedValues(t *testing.T) {
	f := newTestProfile(t)
	now := time.Now().UTC()
	if err := f.RegisterAnalysis(AnalysisResult{Score: 550, Ranking: 2}, now); err != nil {
		t.Fatalf("RegisterAnalysis returned error: %v", err)
	}
	if err := f.UpdateDebts(1200000, 2, 0, now); err != nil {
		t.Fatalf("UpdateDebts returned error: %v", err)
	}

	// 30% of the proven income minus a twelfth of the debt.
	want := int64(800000)*30/100 - 1200000/12
	if got := f.PaymentCapacity(); got != want {
		t.Fatalf("expected payment capacity %d, got %d", want, got)
	}
	if !f.AtRisk() {
		t.Fatal("a score of 550 must flag the profile as at risk")
	}
	if f.RankingLabel() != "poor" {
		t.Fatalf("expected ranking label %q, got %q", "poor", f.RankingLabel())
	}
}
