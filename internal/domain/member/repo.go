package member

import (
	"context"

	"github.com/google/uuid"
)

type MemberPolicyRepository interface {
	Create(ctx context.Context, mp *MemberPolicy) error
	GetByID(ctx context.Context, id uuid.UUID) (*MemberPolicy, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MemberPolicyDetail, error)
}

type MemberSchemeRepository interface {
	Create(ctx context.Context, ms *MemberScheme) error
	ListByMemberPolicy(ctx context.Context, memberPolicyID uuid.UUID) ([]*MemberScheme, error)
}

// SummaryRepository computes per-scheme utilization positions for a
// patient's active enrollments in one financial year.
type SummaryRepository interface {
	BenefitSummary(ctx context.Context, patientID uuid.UUID, financialYear string) ([]*BenefitSummaryRow, error)
}
