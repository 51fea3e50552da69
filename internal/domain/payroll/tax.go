package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type BracketKind string

const (
	// BracketFlat charges Amount.
	BracketFlat BracketKind = "flat"
	// BracketRate charges Rate percent of the whole income.
	BracketRate BracketKind = "rate"
	// BracketMarginal charges Amount plus Rate percent of the income above the
	// previous bracket's upper bound.
	BracketMarginal BracketKind = "marginal"
)

func (k BracketKind) Valid() bool {
	switch k {
	case BracketFlat, BracketRate, BracketMarginal:
		return true
	}
	return false
}

type TaxBracket struct {
	UpperBound decimal.Decimal `json:"upper_bound"`
	Kind       BracketKind     `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
}

// TaxTable is one version of the progressive schedule. Brackets are sorted by
// ascending UpperBound and each bound is inclusive.
type TaxTable struct {
	Version     int          `json:"version"`
	Brackets    []TaxBracket `json:"brackets"`
	Active      bool         `json:"active"`
	CreatedBy   *string      `json:"created_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ActivatedAt *time.Time   `json:"activated_at,omitempty"`
}

func (t TaxTable) TopBound() decimal.Decimal {
	if len(t.Brackets) == 0 {
		return decimal.Zero
	}
	return t.Brackets[len(t.Brackets)-1].UpperBound
}

func (t *TaxTable) Validate() error {
	var errs validator.ValidationErrors

	if len(t.Brackets) == 0 {
		errs = append(errs, validator.ValidationError{Field: "brackets", Message: "at least one bracket is required"})
	}
	prev := decimal.Zero
	for i, b := range t.Brackets {
		field := "brackets[" + validator.Itoa(i) + "]"
		if !b.Kind.Valid() {
			errs = append(errs, validator.ValidationError{Field: field + ".kind", Message: "must be 'flat', 'rate' or 'marginal'"})
		}
		if b.UpperBound.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field + ".upper_bound", Message: "must be non-negative"})
		}
		if i > 0 && !b.UpperBound.GreaterThan(prev) {
			errs = append(errs, validator.ValidationError{Field: field + ".upper_bound", Message: "must be greater than the previous bracket"})
		}
		if b.Amount.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field + ".amount", Message: "must be non-negative"})
		}
		if b.Rate.IsNegative() || b.Rate.GreaterThan(hundred) {
			errs = append(errs, validator.ValidationError{Field: field + ".rate", Message: "must be between 0 and 100"})
		}
		prev = b.UpperBound
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
