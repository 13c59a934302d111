/**
 * @description
 * This file contains the credit eligibility engine: pure functions over score,
 * ranking and financial figures. They perform no I/O and never mutate their
 * inputs; callers persist whatever they derive from the results.
 *
 * @notes
 * - Aptitude has exactly one definition here. Both the customer aggregate and
 *   the financial profile call ComputeAptitude; keeping a single source for
 *   the rule is what the tests in eligibility_test.go guard.
 * - Monetary amounts are int64 centavos to avoid floating-point drift with
 *   financial data.
 */
package domain

import "time"

const (
	// ScoreMin and ScoreMax bound the externally computed credit score.
	ScoreMin = 0
	ScoreMax = 1000

	// RankingMin and RankingMax bound the credit-quality bucket.
	RankingMin = 0
	RankingMax = 5

	// MinRankingForCard and MinScoreForCard define card aptitude.
	MinRankingForCard = 3
	MinScoreForCard   = 600

	// MinScoreForIssuance gates explicit card issuance requests. It is a
	// distinct constant from MinScoreForCard on purpose: the issuance gate in
	// the upstream policy is 501, not 600. Do not unify them; callers depend
	// on the difference being observable.
	MinScoreForIssuance = 501

	// RiskDelinquencyThreshold is the 12-month delinquency count at which a
	// customer is considered at risk.
	RiskDelinquencyThreshold = 3
)

// ComputeAptitude reports whether a customer with the given ranking and score
// is apt to receive a credit card.
func ComputeAptitude(ranking, score int) bool {
	return ranking >= MinRankingForCard && score >= MinScoreForCard
}

// DescribeRanking maps a ranking bucket to its descriptive label. Inputs
// outside [RankingMin, RankingMax] must be rejected before reaching this
// function; it returns "unknown" for them rather than guessing.
func DescribeRanking(ranking int) string {
	switch ranking {
	case 0:
		return "unrated"
	case 1:
		return "very poor"
	case 2:
		return "poor"
	case 3:
		return "acceptable"
	case 4:
		return "good"
	case 5:
		return "excellent"
	default:
		return "unknown"
	}
}

// NextAnalysisDueDate returns when a customer with the given ranking must be
// re-analyzed. Worse rankings get shorter intervals; unrated customers are
// re-checked after 15 days.
func NextAnalysisDueDate(ranking int, now time.Time) time.Time {
	var days int
	switch ranking {
	case 5:
		days = 365
	case 4:
		days = 270
	case 3:
		days = 180
	case 2:
		days = 90
	case 1:
		days = 30
	default:
		days = 15
	}
	return now.AddDate(0, 0, days)
}

// PaymentCapacity estimates the monthly payment capacity in centavos:
// 30% of the proven income (falling back to the estimated income when no
// income is proven) minus one twelfth of the total debt. Never negative.
func PaymentCapacity(provenIncome, income, totalDebt int64) int64 {
	base := provenIncome
	if base <= 0 {
		base = income
	}
	capacity := base*30/100 - totalDebt/12
	if capacity < 0 {
		return 0
	}
	return capacity
}

// IsAtRisk reports whether a customer is in a risk situation: low score, too
// many recent delinquencies, or negative payment capacity. PaymentCapacity
// never returns a negative value today, so the last clause cannot fire; it is
// kept for alternate capacity formulas rather than silently dropped.
func IsAtRisk(score, delinquencies12m int, capacity int64) bool {
	return score < MinScoreForCard || delinquencies12m >= RiskDelinquencyThreshold || capacity < 0
}

// IsAnalysisExpired reports whether a credit analysis is due: true when no
// analysis was ever recommended, or when the recommended date has passed.
func IsAnalysisExpired(nextRecommendedAnalysisAt *time.Time, now time.Time) bool {
	if nextRecommendedAnalysisAt == nil {
		return true
	}
	return now.After(*nextRecommendedAnalysisAt)
}
