/**
 * @description
 * This file defines the Customer aggregate. A customer is created once at
 * registration, mutated in place over its lifetime, and never hard-deleted;
 * deactivation flips the Active flag.
 *
 * @notes
 * - Construction goes through NewCustomer, which validates every field and
 *   returns the full list of problems. There is no exported way to obtain a
 *   customer that skipped validation.
 * - Score and ranking are only ever written by the choreography coordinator in
 *   response to an inbound analysis event; ApplyCreditAssessment is the single
 *   mutation path and always recomputes aptitude. AptForCard is never set
 *   independently of score/ranking.
 */
package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	nameMinLength    = 3
	nameMaxLength    = 150
	addressMinLength = 5
	addressMaxLength = 200
	cityMinLength    = 2
	cityMaxLength    = 100
	stateLength      = 2
	documentLength   = 11
	phoneMinDigits   = 10
	phoneMaxDigits   = 11
	postalCodeDigits = 8
	emailMaxLength   = 150
)

// Card issuance statuses recorded from inbound card events.
const (
	CardStatusIssued = "ISSUED"
	CardStatusFailed = "FAILED"
)

// DefaultCreditHistoryHint is used when registration carries no hint for the
// analysis service.
const DefaultCreditHistoryHint = "REGULAR"

// Customer is the onboarding aggregate. Credit fields (Score, Ranking,
// RankingUpdatedAt, AptForCard) are owned by the inbound-analysis path; card
// fields are owned by the inbound-issuance path.
type Customer struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	DocumentID      string     `json:"document_id"`
	Address         string     `json:"address"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	PostalCode      string     `json:"postal_code"`
	BirthDate       *time.Time `json:"birth_date,omitempty"`
	EstimatedIncome int64      `json:"estimated_income"` // in centavos

	Score            int        `json:"score"`
	Ranking          int        `json:"ranking"`
	RankingUpdatedAt *time.Time `json:"ranking_updated_at,omitempty"`
	AptForCard       bool       `json:"apt_for_card"`

	AnalysisRequestedAt *time.Time `json:"analysis_requested_at,omitempty"`
	IssuanceRequestedAt *time.Time `json:"issuance_requested_at,omitempty"`

	CardStatus          string     `json:"card_status,omitempty"`
	CardID              *uuid.UUID `json:"card_id,omitempty"`
	CardMaskedNumber    string     `json:"card_masked_number,omitempty"`
	CardFailureReason   *string    `json:"card_failure_reason,omitempty"`
	CardStatusUpdatedAt *time.Time `json:"card_status_updated_at,omitempty"`

	Active    bool      `json:"active"`
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCustomerParams carries the registration input for NewCustomer.
type NewCustomerParams struct {
	Name              string
	Email             string
	Phone             string
	DocumentID        string
	Address           string
	City              string
	State             string
	PostalCode        string
	BirthDate         *time.Time
	EstimatedIncome   int64 // in centavos
	CreditHistoryHint string
}

// NewCustomer validates the registration input and returns a fresh customer.
// All field problems are collected and returned together as ValidationErrors.
func NewCustomer(p NewCustomerParams) (*Customer, error) {
	if err := validateCustomerFields(p.Name, p.Email, p.Phone, p.DocumentID, p.Address, p.City, p.State, p.PostalCode); err != nil {
		return nil, err
	}
	if p.EstimatedIncome < 0 {
		return nil, NewValidationError("estimated income cannot be negative")
	}

	now := time.Now().UTC()
	return &Customer{
		ID:              uuid.New(),
		Name:            p.Name,
		Email:           p.Email,
		Phone:           p.Phone,
		DocumentID:      digitsOnly(p.DocumentID),
		Address:         p.Address,
		City:            p.City,
		State:           strings.ToUpper(p.State),
		PostalCode:      digitsOnly(p.PostalCode),
		BirthDate:       p.BirthDate,
		EstimatedIncome: p.EstimatedIncome,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// UpdateProfile replaces the mutable profile fields after re-validating them.
// The document id is immutable after registration.
func (c *Customer) UpdateProfile(name, email, phone, address, city, state, postalCode string) error {
	if err := validateCustomerFields(name, email, phone, c.DocumentID, address, city, state, postalCode); err != nil {
		return err
	}
	c.Name = name
	c.Email = email
	c.Phone = phone
	c.Address = address
	c.City = city
	c.State = strings.ToUpper(state)
	c.PostalCode = digitsOnly(postalCode)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyCreditAssessment overwrites score and ranking from an inbound analysis
// result and recomputes card aptitude. Applying the same assessment twice
// yields the same state, which is what makes redeliveries safe.
func (c *Customer) ApplyCreditAssessment(ranking, score int, at time.Time) error {
	if ranking < RankingMin || ranking > RankingMax {
		return NewValidationError(fmt.Sprintf("ranking must be between %d and %d", RankingMin, RankingMax))
	}
	if score < ScoreMin || score > ScoreMax {
		return NewValidationError(fmt.Sprintf("score must be between %d and %d", ScoreMin, ScoreMax))
	}

	c.Ranking = ranking
	c.Score = score
	c.RankingUpdatedAt = &at
	c.AptForCard = ComputeAptitude(ranking, score)
	c.UpdatedAt = at
	return nil
}

// CanIssueCard reports whether the customer may be sent to card issuance at
// all. The stricter score gate for explicit issuance requests lives in the
// coordinator, not here.
func (c *Customer) CanIssueCard() bool {
	return c.AptForCard && c.Active && c.Ranking >= MinRankingForCard && c.Score >= MinScoreForCard
}

// RankingLabel returns the descriptive label of the customer's ranking.
func (c *Customer) RankingLabel() string {
	return DescribeRanking(c.Ranking)
}

// Age derives the customer's age in full years, or the given default when no
// birth date is on record.
func (c *Customer) Age(now time.Time, fallback int) int {
	if c.BirthDate == nil {
		return fallback
	}
	age := now.Year() - c.BirthDate.Year()
	if c.BirthDate.AddDate(age, 0, 0).After(now) {
		age--
	}
	return age
}

func validateCustomerFields(name, email, phone, document, address, city, state, postalCode string) error {
	errs := &ValidationErrors{}

	switch {
	case strings.TrimSpace(name) == "":
		errs.add("name is required")
	case len(name) < nameMinLength:
		errs.add(fmt.Sprintf("name must have at least %d characters", nameMinLength))
	case len(name) > nameMaxLength:
		errs.add(fmt.Sprintf("name cannot exceed %d characters", nameMaxLength))
	}

	if strings.TrimSpace(email) == "" {
		errs.add("email is required")
	} else if !validEmail(email) {
		errs.add("email is invalid")
	}

	if strings.TrimSpace(phone) == "" {
		errs.add("phone is required")
	} else if n := len(digitsOnly(phone)); n < phoneMinDigits || n > phoneMaxDigits {
		errs.add(fmt.Sprintf("phone must have between %d and %d digits", phoneMinDigits, phoneMaxDigits))
	}

	if strings.TrimSpace(document) == "" {
		errs.add("document id is required")
	} else if !validDocumentID(document) {
		errs.add("document id is invalid")
	}

	switch {
	case strings.TrimSpace(address) == "":
		errs.add("address is required")
	case len(address) < addressMinLength:
		errs.add(fmt.Sprintf("address must have at least %d characters", addressMinLength))
	case len(address) > addressMaxLength:
		errs.add(fmt.Sprintf("address cannot exceed %d characters", addressMaxLength))
	}

	switch {
	case strings.TrimSpace(city) == "":
		errs.add("city is required")
	case len(city) < cityMinLength:
		errs.add(fmt.Sprintf("city must have at least %d characters", cityMinLength))
	case len(city) > cityMaxLength:
		errs.add(fmt.Sprintf("city cannot exceed %d characters", cityMaxLength))
	}

	if strings.TrimSpace(state) == "" {
		errs.add("state is required")
	} else if len(state) != stateLength {
		errs.add(fmt.Sprintf("state must be a %d-letter abbreviation", stateLength))
	}

	if strings.TrimSpace(postalCode) == "" {
		errs.add("postal code is required")
	} else if len(digitsOnly(postalCode)) != postalCodeDigits {
		errs.add(fmt.Sprintf("postal code must have %d digits", postalCodeDigits))
	}

	return errs.orNil()
}

func validEmail(email string) bool {
	if len(email) > emailMaxLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// validDocumentID runs the CPF check-digit algorithm over the document number.
func validDocumentID(document string) bool {
	digits := digitsOnly(document)
	if len(digits) != documentLength {
		return false
	}
	if strings.Count(digits, string(digits[0])) == documentLength {
		return false
	}

	check := func(upTo int) int {
		sum := 0
		for i := 0; i < upTo; i++ {
			sum += int(digits[i]-'0') * (upTo + 1 - i)
		}
		rest := sum % 11
		if rest < 2 {
			return 0
		}
		return 11 - rest
	}

	if int(digits[9]-'0') != check(9) {
		return false
	}
	return int(digits[10]-'0') == check(10)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
