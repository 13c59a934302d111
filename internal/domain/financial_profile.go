/**
 * @description
 * This file defines the FinancialProfile aggregate: a 1:1 companion of the
 * customer that holds financial figures and the credit-analysis trail. It is
 * created lazily on the first financial-data submission or first analysis
 * result, and mutated in place from then on.
 *
 * @notes
 * - Monetary fields are int64 centavos.
 * - "In risk" is always derived (AtRisk), never persisted as a column.
 * - NextRecommendedAnalysisAt is derived from the ranking at analysis time
 *   and never set directly.
 */
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FinancialProfile holds the financial side of a customer.
type FinancialProfile struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`

	Income       int64 `json:"income"`        // in centavos
	ProvenIncome int64 `json:"proven_income"` // in centavos

	Score            int   `json:"score"`
	Ranking          int   `json:"ranking"`
	SuggestedLimit   int64 `json:"suggested_limit"` // in centavos
	ActiveLimit      int64 `json:"active_limit"`    // in centavos
	TotalDebt        int64 `json:"total_debt"`      // in centavos
	OpenCredits12m   int   `json:"open_credits_12m"`
	Delinquencies12m int   `json:"delinquencies_12m"`
	AptForCard       bool  `json:"apt_for_card"`

	IssuedCardTypes CardTypeSet `json:"issued_card_types"`

	LastAnalysisAt            *time.Time `json:"last_analysis_at,omitempty"`
	NextRecommendedAnalysisAt *time.Time `json:"next_recommended_analysis_at,omitempty"`
	AnalysisFailedAt          *time.Time `json:"analysis_failed_at,omitempty"`

	RefusalReason   *string `json:"refusal_reason,omitempty"`
	RiskNarrative   string  `json:"risk_narrative,omitempty"`
	Recommendations string  `json:"recommendations,omitempty"`

	Active    bool      `json:"active"`
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFinancialProfile creates the financial companion record for a customer.
func NewFinancialProfile(customerID uuid.UUID, income, provenIncome int64) (*FinancialProfile, error) {
	if customerID == uuid.Nil {
		return nil, NewValidationError("customer id cannot be empty")
	}
	if income < 0 {
		return nil, NewValidationError("income cannot be negative")
	}
	if provenIncome < 0 {
		return nil, NewValidationError("proven income cannot be negative")
	}

	now := time.Now().UTC()
	return &FinancialProfile{
		ID:           uuid.New(),
		CustomerID:   customerID,
		Income:       income,
		ProvenIncome: provenIncome,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AnalysisResult carries the outcome of a completed credit analysis into
// RegisterAnalysis.
type AnalysisResult struct {
	Score           int
	Ranking         int
	SuggestedLimit  int64 // in centavos
	RefusalReason   *string
	RiskNarrative   string
	Recommendations string
}

// RegisterAnalysis records a completed credit analysis. Validation failures
// leave the profile untouched. On success the analysis timestamps are set,
// the next recommended analysis date is derived from the ranking, and card
// aptitude is recomputed from the single engine definition.
func (f *FinancialProfile) RegisterAnalysis(r AnalysisResult, now time.Time) error {
	if r.Score < ScoreMin || r.Score > ScoreMax {
		return NewValidationError(fmt.Sprintf("score must be between %d and %d", ScoreMin, ScoreMax))
	}
	if r.Ranking < RankingMin || r.Ranking > RankingMax {
		return NewValidationError(fmt.Sprintf("ranking must be between %d and %d", RankingMin, RankingMax))
	}
	if r.SuggestedLimit < 0 {
		return NewValidationError("suggested limit cannot be negative")
	}

	due := NextAnalysisDueDate(r.Ranking, now)
	f.Score = r.Score
	f.Ranking = r.Ranking
	f.SuggestedLimit = r.SuggestedLimit
	f.AptForCard = ComputeAptitude(r.Ranking, r.Score)
	f.RefusalReason = r.RefusalReason
	f.RiskNarrative = r.RiskNarrative
	f.Recommendations = r.Recommendations
	f.LastAnalysisAt = &now
	f.NextRecommendedAnalysisAt = &due
	f.AnalysisFailedAt = nil
	f.UpdatedAt = now
	return nil
}

// RecordAnalysisFailure records a failed or refused analysis. Previously
// approved limits are not cleared; the customer simply stops being apt until
// a future successful analysis.
func (f *FinancialProfile) RecordAnalysisFailure(reason string, at time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("refusal reason cannot be empty")
	}
	f.RefusalReason = &reason
	f.AnalysisFailedAt = &at
	f.AptForCard = false
	f.UpdatedAt = at
	return nil
}

// ApproveLimit activates a credit limit. The approved value must be positive
// and may not exceed the limit suggested by the last analysis. The check runs
// at approval time only; a later, lower suggested limit does not claw back an
// already active one.
func (f *FinancialProfile) ApproveLimit(requested int64, now time.Time) error {
	if requested <= 0 {
		return NewValidationError("approved limit must be greater than zero")
	}
	if requested > f.SuggestedLimit {
		return NewValidationError("approved limit cannot exceed the suggested limit")
	}
	f.ActiveLimit = requested
	f.UpdatedAt = now
	return nil
}

// UpdateIncome replaces the income figures.
func (f *FinancialProfile) UpdateIncome(income, provenIncome int64, now time.Time) error {
	if income < 0 {
		return NewValidationError("income cannot be negative")
	}
	if provenIncome < 0 {
		return NewValidationError("proven income cannot be negative")
	}
	f.Income = income
	f.ProvenIncome = provenIncome
	f.UpdatedAt = now
	return nil
}

// UpdateDebts replaces the debt figures.
func (f *FinancialProfile) UpdateDebts(totalDebt int64, openCredits12m, delinquencies12m int, now time.Time) error {
	if totalDebt < 0 {
		return NewValidationError("total debt cannot be negative")
	}
	if openCredits12m < 0 {
		return NewValidationError("open credits cannot be negative")
	}
	if delinquencies12m < 0 {
		return NewValidationError("delinquencies cannot be negative")
	}
	f.TotalDebt = totalDebt
	f.OpenCredits12m = openCredits12m
	f.Delinquencies12m = delinquencies12m
	f.UpdatedAt = now
	return nil
}

// RecordIssuedCard appends a card type to the issued set. Re-recording an
// already issued type is a no-op.
func (f *FinancialProfile) RecordIssuedCard(cardType string, now time.Time) error {
	if strings.TrimSpace(cardType) == "" {
		return NewValidationError("card type cannot be empty")
	}
	if f.IssuedCardTypes.Add(cardType) {
		f.UpdatedAt = now
	}
	return nil
}

// PaymentCapacity derives the profile's monthly payment capacity in centavos.
func (f *FinancialProfile) PaymentCapacity() int64 {
	return PaymentCapacity(f.ProvenIncome, f.Income, f.TotalDebt)
}

// AtRisk derives whether the profile is in a risk situation.
func (f *FinancialProfile) AtRisk() bool {
	return IsAtRisk(f.Score, f.Delinquencies12m, f.PaymentCapacity())
}

// AnalysisExpired reports whether the profile needs a new credit analysis.
func (f *FinancialProfile) AnalysisExpired(now time.Time) bool {
	return IsAnalysisExpired(f.NextRecommendedAnalysisAt, now)
}

// RankingLabel returns the descriptive label of the profile's ranking.
func (f *FinancialProfile) RankingLabel() string {
	return DescribeRanking(f.Ranking)
}

// CardTypeSet is an append-only, de-duplicated set of issued card types.
// The comma-joined string form is a storage detail, not the domain type.
type CardTypeSet []string

// ParseCardTypeSet rebuilds a set from its comma-joined storage form.
func ParseCardTypeSet(s string) CardTypeSet {
	var set CardTypeSet
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			set.Add(trimmed)
		}
	}
	return set
}

// Add inserts a card type, preserving insertion order. It reports whether the
// set changed.
func (s *CardTypeSet) Add(cardType string) bool {
	if s.Contains(cardType) {
		return false
	}
	*s = append(*s, cardType)
	return true
}

// Contains reports whether the set holds the given card type.
func (s CardTypeSet) Contains(cardType string) bool {
	for _, t := range s {
		if t == cardType {
			return true
		}
	}
	return false
}

// Remove deletes a card type, reporting whether it was present.
func (s *CardTypeSet) Remove(cardType string) bool {
	for i, t := range *s {
		if t == cardType {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

// String renders the comma-joined storage form.
func (s CardTypeSet) String() string {
	return strings.Join(s, ",")
}
