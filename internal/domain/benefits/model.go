package benefits

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erless/coverage/internal/domain/insurer"
	"github.com/erless/coverage/internal/domain/scheme"
)

// BenefitUtilization maps to the benefit_utilization table. Rows are
// append-only; balances are always derived by summing.
type BenefitUtilization struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	MemberPolicyID  uuid.UUID       `db:"member_policy_id" json:"memberPolicyId"`
	SchemeID        uuid.UUID       `db:"scheme_id" json:"schemeId"`
	ClaimID         *uuid.UUID      `db:"claim_id" json:"claimId,omitempty"`
	UtilizationDate time.Time       `db:"utilization_date" json:"utilizationDate"`
	AmountUtilized  decimal.Decimal `db:"amount_utilized" json:"amountUtilized"`
	FinancialYear   string          `db:"financial_year" json:"financialYear"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// Candidate is an active enrollment: a member scheme joined to its
// scheme, member policy and policy, with every ancestor active.
type Candidate struct {
	MemberPolicyID uuid.UUID       `json:"memberPolicyId"`
	Scheme         *scheme.Scheme  `json:"scheme"`
	Policy         *insurer.Policy `json:"policy"`
}

// UtilizationStatus is the utilized/limit/remaining triple reported per
// scheme in eligibility results.
type UtilizationStatus struct {
	Utilized  decimal.Decimal `json:"utilized"`
	Limit     decimal.Decimal `json:"limit"`
	Remaining decimal.Decimal `json:"remaining"`
}

// SchemeEligibility is the per-scheme outcome of an eligibility check.
type SchemeEligibility struct {
	MemberPolicyID    uuid.UUID               `json:"memberPolicyId"`
	Scheme            *scheme.Scheme          `json:"scheme"`
	Policy            *insurer.Policy         `json:"policy"`
	CoverageMapping   *scheme.CoverageMapping `json:"coverageMapping,omitempty"`
	IsCovered         bool                    `json:"isCovered"`
	EligibleAmount    decimal.Decimal         `json:"eligibleAmount"`
	RemainingLimit    decimal.Decimal         `json:"remainingLimit"`
	UtilizationStatus UtilizationStatus       `json:"utilizationStatus"`
}

// EligibilityResult aggregates per-scheme outcomes for one check.
type EligibilityResult struct {
	PatientID         uuid.UUID            `json:"patientId"`
	ProcedureCode     string               `json:"procedureCode"`
	AmountRequested   decimal.Decimal      `json:"amountRequested"`
	FinancialYear     string               `json:"financialYear"`
	IsEligible        bool                 `json:"isEligible"`
	Results           []*SchemeEligibility `json:"results"`
	RecommendedScheme *SchemeEligibility   `json:"recommendedScheme,omitempty"`
}

// ClaimFormFields carries the prefill values for a claim form.
type ClaimFormFields struct {
	InsurerName      string   `json:"insurerName"`
	PolicyNumber     string   `json:"policyNumber"`
	AvailableSchemes []string `json:"availableSchemes"`
}

// ClaimFormTemplate is the claim-form prefill payload for a policy.
type ClaimFormTemplate struct {
	Policy     *insurer.Policy  `json:"policy"`
	Insurer    *insurer.Insurer `json:"insurer"`
	Schemes    []*scheme.Scheme `json:"schemes"`
	FormFields ClaimFormFields  `json:"formFields"`
}

// PreauthSchemeCheck is the per-scheme preauthorization verdict.
type PreauthSchemeCheck struct {
	SchemeID             uuid.UUID `json:"schemeId"`
	SchemeName           string    `json:"schemeName"`
	RequiresPreauth      bool      `json:"requiresPreauth"`
	AutoApprovalEligible bool      `json:"autoApprovalEligible"`
	Reasons              []string  `json:"reasons,omitempty"`
}

// PreauthResult aggregates preauthorization checks across the member's
// schemes.
type PreauthResult struct {
	PatientID              uuid.UUID             `json:"patientId"`
	ProcedureCode          string                `json:"procedureCode"`
	Amount                 decimal.Decimal       `json:"amount"`
	Urgency                string                `json:"urgency"`
	OverallRequiresPreauth bool                  `json:"overallRequiresPreauth"`
	Schemes                []*PreauthSchemeCheck `json:"schemes"`
}

// BenefitRow is one flattened row of a patient's active benefit tree.
type BenefitRow struct {
	InsurerID    uuid.UUID             `json:"insurerId"`
	InsurerName  string                `json:"insurerName"`
	PolicyID     uuid.UUID             `json:"policyId"`
	PolicyNumber string                `json:"policyNumber"`
	PolicyName   string                `json:"policyName"`
	Scheme       *scheme.Scheme        `json:"scheme"`
	Benefit      *scheme.SchemeBenefit `json:"benefit,omitempty"`
}

// SchemeBenefitsView groups a scheme with its active benefits.
type SchemeBenefitsView struct {
	Scheme   *scheme.Scheme          `json:"scheme"`
	Benefits []*scheme.SchemeBenefit `json:"benefits"`
}

// PolicyBenefitsView groups a policy's schemes.
type PolicyBenefitsView struct {
	PolicyID     uuid.UUID             `json:"policyId"`
	PolicyNumber string                `json:"policyNumber"`
	PolicyName   string                `json:"policyName"`
	Schemes      []*SchemeBenefitsView `json:"schemes"`
}

// InsurerBenefitsView groups an insurer's policies.
type InsurerBenefitsView struct {
	InsurerID   uuid.UUID             `json:"insurerId"`
	InsurerName string                `json:"insurerName"`
	Policies    []*PolicyBenefitsView `json:"policies"`
}

// CoverageSummary totals a patient's active coverage.
type CoverageSummary struct {
	TotalActivePolicies    int             `json:"totalActivePolicies"`
	TotalActiveSchemes     int             `json:"totalActiveSchemes"`
	TotalAvailableBenefits int             `json:"totalAvailableBenefits"`
	TotalAnnualCoverage    decimal.Decimal `json:"totalAnnualCoverage"`
	Insurers               []string        `json:"insurers"`
}

// RealTimeBenefits is the grouped real-time lookup payload.
type RealTimeBenefits struct {
	PatientID       uuid.UUID              `json:"patientId"`
	Insurers        []*InsurerBenefitsView `json:"insurers"`
	CoverageSummary CoverageSummary        `json:"coverageSummary"`
	GeneratedAt     time.Time              `json:"generatedAt"`
}

// ServiceCoverageDetail is one matching benefit in a service coverage
// check, ordered best coverage first.
type ServiceCoverageDetail struct {
	SchemeID              uuid.UUID        `json:"schemeId"`
	SchemeName            string           `json:"schemeName"`
	BenefitName           string           `json:"benefitName"`
	CoverageAmount        *decimal.Decimal `json:"coverageAmount,omitempty"`
	CoveragePercentage    *decimal.Decimal `json:"coveragePercentage,omitempty"`
	IsPreauthorized       bool             `json:"isPreauthorized"`
	SchemeRequiresPreauth bool             `json:"schemeRequiresPreauth"`
}

// ServiceCoverageResult answers whether a service is covered for a
// patient and under what terms.
type ServiceCoverageResult struct {
	PatientID                uuid.UUID                `json:"patientId"`
	ServiceCode              string                   `json:"serviceCode"`
	ServiceCategory          string                   `json:"serviceCategory"`
	IsCovered                bool                     `json:"isCovered"`
	CoverageDetails          []*ServiceCoverageDetail `json:"coverageDetails"`
	PreauthorizationRequired bool                     `json:"preauthorizationRequired"`
}
