/**
 * @description
 * PostgreSQL implementation of the customer side of the Repository, using a
 * pgx connection pool. Queries are handwritten SQL; there is no ORM layer.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5, github.com/jackc/pgx/v5/pgxpool
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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oliveiradevtech/onboarding-service/internal/domain"
)

// PostgresRepository implements Repository on top of a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the tables this service owns if they do not exist yet.
// There is no migration tooling; the service owns its two tables.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS customers (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL,
            document_id TEXT NOT NULL UNIQUE,
            address TEXT NOT NULL,
            city TEXT NOT NULL,
            state TEXT NOT NULL,
            postal_code TEXT NOT NULL,
            birth_date TIMESTAMPTZ,
            estimated_income BIGINT NOT NULL DEFAULT 0,
            score INT NOT NULL DEFAULT 0,
            ranking INT NOT NULL DEFAULT 0,
            ranking_updated_at TIMESTAMPTZ,
            apt_for_card BOOLEAN NOT NULL DEFAULT FALSE,
            analysis_requested_at TIMESTAMPTZ,
            issuance_requested_at TIMESTAMPTZ,
            card_status TEXT NOT NULL DEFAULT '',
            card_id UUID,
            card_masked_number TEXT NOT NULL DEFAULT '',
            card_failure_reason TEXT,
            card_status_updated_at TIMESTAMPTZ,
            active BOOLEAN NOT NULL DEFAULT TRUE,
            version BIGINT NOT NULL DEFAULT 1,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS financial_profiles (
            id UUID PRIMARY KEY,
            customer_id UUID NOT NULL UNIQUE REFERENCES customers(id),
            income BIGINT NOT NULL DEFAULT 0,
            proven_income BIGINT NOT NULL DEFAULT 0,
            score INT NOT NULL DEFAULT 0,
            ranking INT NOT NULL DEFAULT 0,
            suggested_limit BIGINT NOT NULL DEFAULT 0,
            active_limit BIGINT NOT NULL DEFAULT 0,
            total_debt BIGINT NOT NULL DEFAULT 0,
            open_credits_12m INT NOT NULL DEFAULT 0,
            delinquencies_12m INT NOT NULL DEFAULT 0,
            apt_for_card BOOLEAN NOT NULL DEFAULT FALSE,
            issued_card_types TEXT NOT NULL DEFAULT '',
            last_analysis_at TIMESTAMPTZ,
            next_recommended_analysis_at TIMESTAMPTZ,
            analysis_failed_at TIMESTAMPTZ,
            refusal_reason TEXT,
            risk_narrative TEXT NOT NULL DEFAULT '',
            recommendations TEXT NOT NULL DEFAULT '',
            active BOOLEAN NOT NULL DEFAULT TRUE,
            version BIGINT NOT NULL DEFAULT 1,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
    `)
	return err
}

const customerColumns = `
    id, name, email, phone, document_id, address, city, state, postal_code,
    birth_date, estimated_income, score, ranking, ranking_updated_at,
    apt_for_card, analysis_requested_at, issuance_requested_at, card_status,
    card_id, card_masked_number, card_failure_reason, card_status_updated_at,
    active, version, created_at, updated_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.DocumentID, &c.Address, &c.City,
		&c.State, &c.PostalCode, &c.BirthDate, &c.EstimatedIncome, &c.Score,
		&c.Ranking, &c.RankingUpdatedAt, &c.AptForCard, &c.AnalysisRequestedAt,
		&c.IssuanceRequestedAt, &c.CardStatus, &c.CardID, &c.CardMaskedNumber,
		&c.CardFailureReason, &c.CardStatusUpdatedAt, &c.Active, &c.Version,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return &c, nil
}

// CreateCustomer inserts a new customer row. Unique violations on email or
// document id surface as the corresponding sentinel errors.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	query := `
        INSERT INTO customers (
            id, name, email, phone, document_id, address, city, state,
            postal_code, birth_date, estimated_income, active, version,
            created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1,$13,$13)
    `
	_, err := r.db.Exec(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.DocumentID, c.Address, c.City,
		c.State, c.PostalCode, c.BirthDate, c.EstimatedIncome, c.Active,
		c.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "customers_email_key" {
				return ErrDuplicateEmail
			}
			return ErrDuplicateDocument
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetCustomerByID fetches an active customer by id.
func (r *PostgresRepository) GetCustomerByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT` + customerColumns + ` FROM customers WHERE id = $1 AND active`
	return scanCustomer(r.db.QueryRow(ctx, query, id))
}

// CustomerExists reports whether an active customer with the id exists.
func (r *PostgresRepository) CustomerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1 AND active)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("customer exists: %w", err)
	}
	return exists, nil
}

// EmailRegistered reports whether the email is already taken.
func (r *PostgresRepository) EmailRegistered(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("email registered: %w", err)
	}
	return exists, nil
}

// DocumentRegistered reports whether the document id is already taken.
func (r *PostgresRepository) DocumentRegistered(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE document_id = $1)`, documentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("document registered: %w", err)
	}
	return exists, nil
}

// MarkAnalysisRequested records that a credit analysis was requested for the
// customer (registration event published, or a re-analysis sweep fired).
func (r *PostgresRepository) MarkAnalysisRequested(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.markTimestamp(ctx, id, "analysis_requested_at", at)
}

// MarkIssuanceRequested records that a card issuance request was published.
func (r *PostgresRepository) MarkIssuanceRequested(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.markTimestamp(ctx, id, "issuance_requested_at", at)
}

func (r *PostgresRepository) markTimestamp(ctx context.Context, id uuid.UUID, column string, at time.Time) error {
	query := fmt.Sprintf(`
        UPDATE customers
        SET %s = $1, version = version + 1, updated_at = $1
        WHERE id = $2 AND active
    `, column)
	tag, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// UpdateCreditAssessment overwrites the credit fields in a single atomic
// statement. The inbound event fully determines the new values, so
// redelivering the same event reproduces the same row.
func (r *PostgresRepository) UpdateCreditAssessment(ctx context.Context, id uuid.UUID, ranking, score int, aptForCard bool, at time.Time) error {
	query := `
        UPDATE customers
        SET ranking = $1, score = $2, apt_for_card = $3,
            ranking_updated_at = $4, version = version + 1, updated_at = $4
        WHERE id = $5 AND active
    `
	tag, err := r.db.Exec(ctx, query, ranking, score, aptForCard, at, id)
	if err != nil {
		return fmt.Errorf("update credit assessment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// UpdateCardStatus overwrites the card issuance fields in a single atomic
// statement, idempotently under redelivery.
func (r *PostgresRepository) UpdateCardStatus(ctx context.Context, id uuid.UUID, params CardStatusParams) error {
	query := `
        UPDATE customers
        SET card_status = $1, card_id = $2, card_masked_number = $3,
            card_failure_reason = $4, card_status_updated_at = $5,
            version = version + 1, updated_at = $5
        WHERE id = $6 AND active
    `
	tag, err := r.db.Exec(ctx, query,
		params.Status, params.CardID, params.MaskedNumber,
		params.FailureReason, params.UpdatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update card status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// DeactivateCustomer flags a customer inactive. Rows are never hard-deleted.
func (r *PostgresRepository) DeactivateCustomer(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE customers
        SET active = FALSE, version = version + 1, updated_at = NOW()
        WHERE id = $1 AND active
    `, id)
	if err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
