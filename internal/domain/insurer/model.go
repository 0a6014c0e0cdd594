package insurer

import (
	"time"

	"github.com/google/uuid"
)

// Insurer maps to the insurer table.
type Insurer struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Policy maps to the insurance_policy table.
type Policy struct {
	ID            uuid.UUID `db:"id" json:"id"`
	InsurerID     uuid.UUID `db:"insurer_id" json:"insurerId"`
	PolicyNumber  string    `db:"policy_number" json:"policyNumber"`
	Name          string    `db:"name" json:"name"`
	EffectiveDate time.Time `db:"effective_date" json:"effectiveDate"`
	IsActive      bool      `db:"is_active" json:"isActive"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// PolicySnapshot is the structured before/after image stored with every
// policy history row.
type PolicySnapshot struct {
	PolicyNumber  string    `json:"policyNumber"`
	Name          string    `json:"name"`
	EffectiveDate time.Time `json:"effectiveDate"`
	IsActive      bool      `json:"isActive"`
}

// Snapshot captures the policy's current audited fields.
func (p *Policy) Snapshot() *PolicySnapshot {
	return &PolicySnapshot{
		PolicyNumber:  p.PolicyNumber,
		Name:          p.Name,
		EffectiveDate: p.EffectiveDate,
		IsActive:      p.IsActive,
	}
}

// Policy history change types.
const (
	ChangeCreated   = "created"
	ChangeUpdated   = "updated"
	ChangeCancelled = "cancelled"
)

// PolicyHistory maps to the policy_history table. Rows are append-only.
type PolicyHistory struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	PolicyID          uuid.UUID       `db:"policy_id" json:"policyId"`
	ChangeType        string          `db:"change_type" json:"changeType"`
	ChangeDescription string          `db:"change_description" json:"changeDescription"`
	PreviousValues    *PolicySnapshot `db:"previous_values" json:"previousValues,omitempty"`
	NewValues         *PolicySnapshot `db:"new_values" json:"newValues,omitempty"`
	EffectiveDate     time.Time       `db:"effective_date" json:"effectiveDate"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// PolicyExclusion maps to the policy_exclusion table.
type PolicyExclusion struct {
	ID                uuid.UUID `db:"id" json:"id"`
	PolicyID          uuid.UUID `db:"policy_id" json:"policyId"`
	ExcludedCondition string    `db:"excluded_condition" json:"excludedCondition"`
	Description       *string   `db:"description" json:"description,omitempty"`
	IsActive          bool      `db:"is_active" json:"isActive"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}
