package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validParams() NewCustomerParams {
	return NewCustomerParams{
		Name:            "Maria Souza",
		Email:           "maria.souza@example.com",
		Phone:           "(11) 98877-6655",
		DocumentID:      "529.982.247-25",
		Address:         "Rua das Laranjeiras, 100",
		City:            "Sao Paulo",
		State:           "sp",
		PostalCode:      "01310-100",
		EstimatedIncome: 850000,
	}
}

func TestNewCustomer(t *testing.T) {
	c, err := NewCustomer(validParams())
	if err != nil {
		t.Fatalf("NewCustomer returned error: %v", err)
	}

	if c.DocumentID != "52998224725" {
		t.Errorf("expected document stripped to digits, got %q", c.DocumentID)
	}
	if c.State != "SP" {
		t.Errorf("expected state upper-cased, got %q", c.State)
	}
	if c.PostalCode != "01310100" {
		t.Errorf("expected postal code stripped to digits, got %q", c.PostalCode)
	}
	if !c.Active {
		t.Error("new customers must start active")
	}
	if c.AptForCard || c.Ranking != 0 || c.Score != 0 {
		t.Error("new customers must start unrated and not apt")
	}
	if c.AnalysisRequestedAt != nil {
		t.Error("analysis must not be marked requested at construction time")
	}
}

func TestNewCustomer_CollectsAllProblems(t *testing.T) {
	p := validParams()
	p.Name = "Jo"
	p.Email = "not-an-email"
	p.DocumentID = "529.982.247-24" // bad check digit
	p.PostalCode = "12345"

	_, err := NewCustomer(p)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationErrors
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verr.Problems) != 4 {
		t.Fatalf("expected 4 problems reported together, got %d: %v", len(verr.Problems), verr.Problems)
	}
}

func TestNewCustomer_DocumentValidation(t *testing.T) {
	tests := []struct {
		name     string
		document string
		valid    bool
	}{
		{"valid with punctuation", "529.982.247-25", true},
		{"valid bare digits", "52998224725", true},
		{"wrong check digit", "52998224726", false},
		{"all same digits", "11111111111", false},
		{"too short", "5299822472", false},
		{"too long", "529982247251", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			p.DocumentID = tt.document
			_, err := NewCustomer(p)
			if tt.valid && err != nil {
				t.Fatalf("expected document %q to be accepted, got %v", tt.document, err)
			}
			if !tt.valid && err == nil {
				t.Fatalf("expected document %q to be rejected", tt.document)
			}
		})
	}
}

func TestNewCustomer_RejectsNegativeIncome(t *testing.T) {
	p := validParams()
	p.EstimatedIncome = -1
	if _, err := NewCustomer(p); err == nil {
		t.Fatal("expected negative income to be rejected")
	}
}

func TestApplyCreditAssessment(t *testing.T) {
	c, err := NewCustomer(validParams())
	if err != nil {
		t.Fatalf("NewCustomer returned error: %v", err)
	}
	at := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	if err := c.ApplyCreditAssessment(4, 650, at); err != nil {
		t.Fatalf("ApplyCreditAssessment returned error: %v", err)
	}
	if c.Ranking != 4 || c.Score != 650 {
		t.Fatalf("expected ranking=4 score=650, got ranking=%d score=%d", c.Ranking, c.Score)
	}
	if !c.AptForCard {
		t.Fatal("ranking 4 with score 650 must be apt")
	}
	if c.RankingUpdatedAt == nil || !c.RankingUpdatedAt.Equal(at) {
		t.Fatal("assessment must record when the ranking was updated")
	}

	// Re-applying the same assessment converges on the same state.
	before := *c
	if err := c.ApplyCreditAssessment(4, 650, at); err != nil {
		t.Fatalf("second ApplyCreditAssessment returned error: %v", err)
	}
	if c.Ranking != before.Ranking || c.Score != before.Score || c.AptForCard != before.AptForCard {
		t.Fatal("re-applying the same assessment must not change the outcome")
	}

	// A worse assessment revokes aptitude.
	if err := c.ApplyCreditAssessment(2, 550, at.Add(time.Hour)); err != nil {
		t.Fatalf("ApplyCreditAssessment returned error: %v", err)
	}
	if c.AptForCard {
		t.Fatal("ranking 2 with score 550 must not be apt")
	}
}

func TestApplyCreditAssessment_RejectsOutOfRange(t *testing.T) {
	c, err := NewCustomer(validParams())
	if err != nil {
		t.Fatalf("NewCustomer returned error: %v", err)
	}
	at := time.Now().UTC()

	for _, tt := range []struct{ ranking, score int }{
		{6, 500},
		{-1, 500},
		{3, 1001},
		{3, -1},
	} {
		if err := c.ApplyCreditAssessment(tt.ranking, tt.score, at); err == nil {
			t.Errorf("expected ranking=%d score=%d to be rejected", tt.ranking, tt.score)
		}
	}
	if c.RankingUpdatedAt != nil {
		t.Fatal("rejected assessments must not touch the customer")
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	c := &Customer{}
	if got := c.Age(now, 30); got != 30 {
		t.Fatalf("expected fallback age 30 without a birth date, got %d", got)
	}

	birthday := time.Date(1990, 8, 31, 0, 0, 0, 0, time.UTC)
	c.BirthDate = &birthday
	if got := c.Age(now, 30); got != 36 {
		t.Fatalf("expected age 36 on the birthday, got %d", got)
	}

	notYet := time.Date(1990, 9, 1, 0, 0, 0, 0, time.UTC)
	c.BirthDate = &notYet
	if got := c.Age(now, 30); got != 35 {
		t.Fatalf("expected age 35 the day before the birthday, got %d", got)
	}
}

func TestUpdateProfile_KeepsDocumentImmutable(t *testing.T) {
	c, err := NewCustomer(validParams())
	if err != nil {
		t.Fatalf("NewCustomer returned error: %v", err)
	}
	doc := c.DocumentID

	if err := c.UpdateProfile("Maria Souza Lima", "maria.lima@example.com", "11988776655", "Avenida Paulista, 1000", "Sao Paulo", "SP", "01311000"); err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if c.DocumentID != doc {
		t.Fatal("document id must not change on profile updates")
	}
	if c.Name != "Maria Souza Lima" {
		t.Fatalf("expected name updated, got %q", c.Name)
	}
}

func TestUpdateProfile_RejectsInvalidInput(t *testing.T) {
	c, err := NewCustomer(validParams())
	if err != nil {
		t.Fatalf("NewCustomer returned error: %v", err)
	}

	err = c.UpdateProfile(strings.Repeat("a", 151), c.Email, c.Phone, c.Address, c.City, c.State, c.PostalCode)
	if err == nil {
		t.Fatal("expected over-long name to be rejected")
	}
	if c.Name != "Maria Souza" {
		t.Fatal("rejected updates must not touch the customer")
	}
}
