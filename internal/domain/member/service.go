package member

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/erless/coverage/pkg/apierrors"
)

type Service struct {
	memberPolicies MemberPolicyRepository
	memberSchemes  MemberSchemeRepository
	summaries      SummaryRepository
}

func NewService(memberPolicies MemberPolicyRepository, memberSchemes MemberSchemeRepository, summaries SummaryRepository) *Service {
	return &Service{memberPolicies: memberPolicies, memberSchemes: memberSchemes, summaries: summaries}
}

var validMemberTypes = map[string]bool{
	"primary": true, "spouse": true, "dependent": true,
}

// EnrollMember links a patient to a policy.
func (s *Service) EnrollMember(ctx context.Context, mp *MemberPolicy) error {
	if mp.PatientID == uuid.Nil {
		return apierrors.NewValidation("patientId is required", nil)
	}
	if mp.PolicyID == uuid.Nil {
		return apierrors.NewValidation("policyId is required", nil)
	}
	if mp.MemberNumber == "" {
		return apierrors.NewValidation("memberNumber is required", nil)
	}
	if mp.MemberType != "" && !validMemberTypes[mp.MemberType] {
		return apierrors.Validationf("invalid memberType: %s", mp.MemberType)
	}
	return s.memberPolicies.Create(ctx, mp)
}

// AssignScheme attaches a scheme to an existing member enrollment.
func (s *Service) AssignScheme(ctx context.Context, ms *MemberScheme) error {
	if ms.MemberPolicyID == uuid.Nil {
		return apierrors.NewValidation("memberPolicyId is required", nil)
	}
	if ms.SchemeID == uuid.Nil {
		return apierrors.NewValidation("schemeId is required", nil)
	}
	if _, err := s.memberPolicies.GetByID(ctx, ms.MemberPolicyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apierrors.NotFound("member policy", ms.MemberPolicyID.String())
		}
		return err
	}
	return s.memberSchemes.Create(ctx, ms)
}

// GetMemberPolicies returns the patient's active policies with insurer
// details. An unknown patient yields an empty list, not an error.
func (s *Service) GetMemberPolicies(ctx context.Context, patientID uuid.UUID) ([]*MemberPolicyDetail, error) {
	return s.memberPolicies.ListByPatient(ctx, patientID)
}

func (s *Service) GetMemberSchemes(ctx context.Context, memberPolicyID uuid.UUID) ([]*MemberScheme, error) {
	return s.memberSchemes.ListByMemberPolicy(ctx, memberPolicyID)
}

// GetMemberBenefitSummary reports per-scheme utilization for the year.
// financialYear defaults to the current calendar year.
func (s *Service) GetMemberBenefitSummary(ctx context.Context, patientID uuid.UUID, financialYear string) ([]*BenefitSummaryRow, error) {
	if financialYear == "" {
		financialYear = fmt.Sprintf("%d", time.Now().Year())
	}
	return s.summaries.BenefitSummary(ctx, patientID, financialYear)
}
