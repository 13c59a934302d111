package domain

// CreditState is the derived position of a customer in the credit/issuance
// flow. It is computed from aggregate fields on demand and never stored; the
// aggregates stay the single source of truth.
type CreditState string

const (
	StateRegistered        CreditState = "REGISTERED"
	StateAnalysisPending   CreditState = "ANALYSIS_PENDING"
	StateAnalyzedApt       CreditState = "ANALYZED_APT"
	StateAnalyzedNotApt    CreditState = "ANALYZED_NOT_APT"
	StateAnalysisFailed    CreditState = "ANALYSIS_FAILED"
	StateIssuanceRequested CreditState = "ISSUANCE_REQUESTED"
	StateIssued            CreditState = "ISSUED"
	StateIssuanceFailed    CreditState = "ISSUANCE_FAILED"
)

// DeriveCreditState computes the credit state from the customer and its
// financial profile (which may not exist yet). Later stages win over earlier
// ones; within the analysis stage, a failure recorded after the last
// successful assessment takes precedence.
func DeriveCreditState(c *Customer, f *FinancialProfile) CreditState {
	switch c.CardStatus {
	case CardStatusIssued:
		return StateIssued
	case CardStatusFailed:
		return StateIssuanceFailed
	}
	if c.IssuanceRequestedAt != nil {
		return StateIssuanceRequested
	}

	if f != nil && f.AnalysisFailedAt != nil {
		if c.RankingUpdatedAt == nil || f.AnalysisFailedAt.After(*c.RankingUpdatedAt) {
			return StateAnalysisFailed
		}
	}

	if c.RankingUpdatedAt != nil {
		if c.AptForCard {
			return StateAnalyzedApt
		}
		return StateAnalyzedNotApt
	}

	if c.AnalysisRequestedAt != nil {
		return StateAnalysisPending
	}
	return StateRegistered
}
