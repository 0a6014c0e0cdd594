package member

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemberPolicy maps to the member_policy table, linking a patient to a
// purchased policy.
type MemberPolicy struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patientId"`
	PolicyID     uuid.UUID `db:"policy_id" json:"policyId"`
	MemberNumber string    `db:"member_number" json:"memberNumber"`
	MemberType   string    `db:"member_type" json:"memberType"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// MemberScheme maps to the member_scheme table.
type MemberScheme struct {
	ID             uuid.UUID `db:"id" json:"id"`
	MemberPolicyID uuid.UUID `db:"member_policy_id" json:"memberPolicyId"`
	SchemeID       uuid.UUID `db:"scheme_id" json:"schemeId"`
	IsActive       bool      `db:"is_active" json:"isActive"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// MemberPolicyDetail is the read view returned for a member's policies,
// joined with policy and insurer names.
type MemberPolicyDetail struct {
	MemberPolicy
	PolicyNumber string `db:"policy_number" json:"policyNumber"`
	PolicyName   string `db:"policy_name" json:"policyName"`
	InsurerName  string `db:"insurer_name" json:"insurerName"`
}

// BenefitSummaryRow reports one scheme's utilization position for a
// financial year.
type BenefitSummaryRow struct {
	MemberPolicyID uuid.UUID       `json:"memberPolicyId"`
	SchemeID       uuid.UUID       `json:"schemeId"`
	SchemeName     string          `json:"schemeName"`
	AnnualLimit    decimal.Decimal `json:"annualLimit"`
	TotalUtilized  decimal.Decimal `json:"totalUtilized"`
	Remaining      decimal.Decimal `json:"remaining"`
	FinancialYear  string          `json:"financialYear"`
}
