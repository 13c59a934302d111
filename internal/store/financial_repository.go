/**
 * @description
 * PostgreSQL persistence for the financial-profile aggregate. Updates use an
 * optimistic version check: the UPDATE only matches when the row still has
 * the version the caller loaded, so overlapping handlers cannot silently
 * clobber each other's writes.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oliveiradevtech/onboarding-service/internal/domain"
)

const financialProfileColumns = `
    id, customer_id, income, proven_income, score, ranking, suggested_limit,
    active_limit, total_debt, open_credits_12m, delinquencies_12m,
    apt_for_card, issued_card_types, last_analysis_at,
    next_recommended_analysis_at, analysis_failed_at, refusal_reason,
    risk_narrative, recommendations, active, version, created_at, updated_at`

func scanFinancialProfile(row pgx.Row) (*domain.FinancialProfile, error) {
	var f domain.FinancialProfile
	var issuedTypes string
	err := row.Scan(
		&f.ID, &f.CustomerID, &f.Income, &f.ProvenIncome, &f.Score, &f.Ranking,
		&f.SuggestedLimit, &f.ActiveLimit, &f.TotalDebt, &f.OpenCredits12m,
		&f.Delinquencies12m, &f.AptForCard, &issuedTypes, &f.LastAnalysisAt,
		&f.NextRecommendedAnalysisAt, &f.AnalysisFailedAt, &f.RefusalReason,
		&f.RiskNarrative, &f.Recommendations, &f.Active, &f.Version,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan financial profile: %w", err)
	}
	f.IssuedCardTypes = domain.ParseCardTypeSet(issuedTypes)
	return &f, nil
}

// CreateFinancialProfile inserts the companion profile for a customer. A
// concurrent insert for the same customer surfaces as ErrDuplicateProfile so
// the caller can reload and retry.
func (r *PostgresRepository) CreateFinancialProfile(ctx context.Context, f *domain.FinancialProfile) error {
	query := `
        INSERT INTO financial_profiles (
            id, customer_id, income, proven_income, score, ranking,
            suggested_limit, active_limit, total_debt, open_credits_12m,
            delinquencies_12m, apt_for_card, issued_card_types,
            last_analysis_at, next_recommended_analysis_at, analysis_failed_at,
            refusal_reason, risk_narrative, recommendations, active, version,
            created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,1,$21,$21)
    `
	_, err := r.db.Exec(ctx, query,
		f.ID, f.CustomerID, f.Income, f.ProvenIncome, f.Score, f.Ranking,
		f.SuggestedLimit, f.ActiveLimit, f.TotalDebt, f.OpenCredits12m,
		f.Delinquencies12m, f.AptForCard, f.IssuedCardTypes.String(),
		f.LastAnalysisAt, f.NextRecommendedAnalysisAt, f.AnalysisFailedAt,
		f.RefusalReason, f.RiskNarrative, f.Recommendations, f.Active,
		f.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateProfile
		}
		return fmt.Errorf("insert financial profile: %w", err)
	}
	f.Version = 1
	return nil
}

// GetFinancialProfileByCustomerID fetches the active profile for a customer.
func (r *PostgresRepository) GetFinancialProfileByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.FinancialProfile, error) {
	query := `SELECT` + financialProfileColumns + ` FROM financial_profiles WHERE customer_id = $1 AND active`
	return scanFinancialProfile(r.db.QueryRow(ctx, query, customerID))
}

// UpdateFinancialProfile writes back a loaded profile. The statement matches
// only when the stored version equals the version the caller loaded;
// otherwise ErrVersionConflict is returned and nothing is written.
func (r *PostgresRepository) UpdateFinancialProfile(ctx context.Context, f *domain.FinancialProfile) error {
	query := `
        UPDATE financial_profiles
        SET income = $1, proven_income = $2, score = $3, ranking = $4,
            suggested_limit = $5, active_limit = $6, total_debt = $7,
            open_credits_12m = $8, delinquencies_12m = $9, apt_for_card = $10,
            issued_card_types = $11, last_analysis_at = $12,
            next_recommended_analysis_at = $13, analysis_failed_at = $14,
            refusal_reason = $15, risk_narrative = $16, recommendations = $17,
            active = $18, version = version + 1, updated_at = $19
        WHERE id = $20 AND version = $21
    `
	tag, err := r.db.Exec(ctx, query,
		f.Income, f.ProvenIncome, f.Score, f.Ranking, f.SuggestedLimit,
		f.ActiveLimit, f.TotalDebt, f.OpenCredits12m, f.Delinquencies12m,
		f.AptForCard, f.IssuedCardTypes.String(), f.LastAnalysisAt,
		f.NextRecommendedAnalysisAt, f.AnalysisFailedAt, f.RefusalReason,
		f.RiskNarrative, f.Recommendations, f.Active, f.UpdatedAt, f.ID,
		f.Version,
	)
	if err != nil {
		return fmt.Errorf("update financial profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	f.Version++
	return nil
}

// ListAnalysisExpired returns active profiles whose recommended re-analysis
// date is unset or already past. This is the listing contract behind the
// periodic re-analysis sweep.
func (r *PostgresRepository) ListAnalysisExpired(ctx context.Context, now time.Time, limit int) ([]domain.FinancialProfile, error) {
	query := `SELECT` + financialProfileColumns + `
        FROM financial_profiles
        WHERE active AND (next_recommended_analysis_at IS NULL OR next_recommended_analysis_at < $1)
        ORDER BY next_recommended_analysis_at NULLS FIRST
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired analyses: %w", err)
	}
	defer rows.Close()

	var profiles []domain.FinancialProfile
	for rows.Next() {
		f, err := scanFinancialProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *f)
	}
	return profiles, rows.Err()
}
