package benefits

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erless/coverage/internal/domain/insurer"
	"github.com/erless/coverage/internal/domain/scheme"
)

type UtilizationRepository interface {
	Insert(ctx context.Context, u *BenefitUtilization) error
	// SumForYear totals a member's utilization of one scheme in one
	// financial year.
	SumForYear(ctx context.Context, memberPolicyID, schemeID uuid.UUID, financialYear string) (decimal.Decimal, error)
	History(ctx context.Context, patientID uuid.UUID, financialYear string, schemeID *uuid.UUID) ([]*BenefitUtilization, error)
	// LockScheme takes a row lock on the scheme. Only meaningful inside a
	// transaction; it serializes concurrent deductions per scheme.
	LockScheme(ctx context.Context, schemeID uuid.UUID) error
	PatientForMemberPolicy(ctx context.Context, memberPolicyID uuid.UUID) (uuid.UUID, error)
}

type CandidateRepository interface {
	// ActiveCandidates returns the patient's enrollments where the member
	// scheme, scheme, member policy and policy are all active.
	ActiveCandidates(ctx context.Context, patientID uuid.UUID) ([]*Candidate, error)
	// FindActiveMapping returns nil when no active mapping exists; absence
	// is not an error.
	FindActiveMapping(ctx context.Context, schemeID uuid.UUID, codeType, code string) (*scheme.CoverageMapping, error)
}

type TemplateRepository interface {
	PolicyWithInsurer(ctx context.Context, policyID uuid.UUID) (*insurer.Policy, *insurer.Insurer, error)
	SchemesByPolicy(ctx context.Context, policyID uuid.UUID) ([]*scheme.Scheme, error)
}

type LookupRepository interface {
	ActiveBenefitRows(ctx context.Context, patientID uuid.UUID) ([]*BenefitRow, error)
	ServiceCoverageRows(ctx context.Context, patientID uuid.UUID, serviceCode, serviceCategory string) ([]*ServiceCoverageDetail, error)
}
