package scheme

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scheme maps to the insurance_scheme table. BenefitCategory is the
// explicit tag automatic deductions match against.
type Scheme struct {
	ID                       uuid.UUID        `db:"id" json:"id"`
	PolicyID                 uuid.UUID        `db:"policy_id" json:"policyId"`
	SchemeName               string           `db:"scheme_name" json:"schemeName"`
	SchemeCode               string           `db:"scheme_code" json:"schemeCode"`
	BenefitCategory          string           `db:"benefit_category" json:"benefitCategory"`
	AnnualLimit              decimal.Decimal  `db:"annual_limit" json:"annualLimit"`
	PerVisitLimit            *decimal.Decimal `db:"per_visit_limit" json:"perVisitLimit,omitempty"`
	PreauthorizationRequired bool             `db:"preauthorization_required" json:"preauthorizationRequired"`
	IsActive                 bool             `db:"is_active" json:"isActive"`
	CreatedAt                time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time        `db:"updated_at" json:"updatedAt"`
}

// SchemeBenefit maps to the scheme_benefit table.
type SchemeBenefit struct {
	ID                 uuid.UUID        `db:"id" json:"id"`
	SchemeID           uuid.UUID        `db:"scheme_id" json:"schemeId"`
	BenefitCategory    string           `db:"benefit_category" json:"benefitCategory"`
	BenefitName        string           `db:"benefit_name" json:"benefitName"`
	BenefitCode        *string          `db:"benefit_code" json:"benefitCode,omitempty"`
	CoverageAmount     *decimal.Decimal `db:"coverage_amount" json:"coverageAmount,omitempty"`
	CoveragePercentage *decimal.Decimal `db:"coverage_percentage" json:"coveragePercentage,omitempty"`
	SessionLimit       *int             `db:"session_limit" json:"sessionLimit,omitempty"`
	FrequencyLimit     *string          `db:"frequency_limit" json:"frequencyLimit,omitempty"`
	IsPreauthorized    bool             `db:"is_preauthorized" json:"isPreauthorized"`
	IsActive           bool             `db:"is_active" json:"isActive"`
	CreatedAt          time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updatedAt"`
}

// Coverage mapping coverage types.
const (
	CoverageCovered         = "covered"
	CoverageNotCovered      = "not_covered"
	CoveragePreauthRequired = "preauth_required"
)

// CoverageMapping maps to the coverage_mapping table. At most one active
// row may exist per (scheme, code system, code).
type CoverageMapping struct {
	ID           uuid.UUID `db:"id" json:"id"`
	SchemeID     uuid.UUID `db:"scheme_id" json:"schemeId"`
	CodeType     string    `db:"code_type" json:"codeType"`
	Code         string    `db:"code" json:"code"`
	CoverageType string    `db:"coverage_type" json:"coverageType"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
