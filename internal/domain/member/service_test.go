package member

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/erless/coverage/pkg/apierrors"
)

// -- Mock Repositories --

type mockMemberPolicyRepo struct {
	items map[uuid.UUID]*MemberPolicy
}

func newMockMemberPolicyRepo() *mockMemberPolicyRepo {
	return &mockMemberPolicyRepo{items: make(map[uuid.UUID]*MemberPolicy)}
}

func (m *mockMemberPolicyRepo) Create(_ context.Context, mp *MemberPolicy) error {
	mp.ID = uuid.New()
	mp.IsActive = true
	if mp.MemberType == "" {
		mp.MemberType = "primary"
	}
	mp.CreatedAt = time.Now()
	m.items[mp.ID] = mp
	return nil
}

func (m *mockMemberPolicyRepo) GetByID(_ context.Context, id uuid.UUID) (*MemberPolicy, error) {
	mp, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return mp, nil
}

func (m *mockMemberPolicyRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*MemberPolicyDetail, error) {
	var result []*MemberPolicyDetail
	for _, mp := range m.items {
		if mp.PatientID == patientID && mp.IsActive {
			result = append(result, &MemberPolicyDetail{MemberPolicy: *mp, PolicyNumber: "POL-1", PolicyName: "Gold", InsurerName: "Acme"})
		}
	}
	return result, nil
}

type mockMemberSchemeRepo struct {
	rows []*MemberScheme
}

func (m *mockMemberSchemeRepo) Create(_ context.Context, ms *MemberScheme) error {
	ms.ID = uuid.New()
	ms.IsActive = true
	m.rows = append(m.rows, ms)
	return nil
}

func (m *mockMemberSchemeRepo) ListByMemberPolicy(_ context.Context, memberPolicyID uuid.UUID) ([]*MemberScheme, error) {
	var result []*MemberScheme
	for _, ms := range m.rows {
		if ms.MemberPolicyID == memberPolicyID {
			result = append(result, ms)
		}
	}
	return result, nil
}

type mockSummaryRepo struct {
	rows map[string][]*BenefitSummaryRow // keyed by patientID|financialYear
}

func (m *mockSummaryRepo) BenefitSummary(_ context.Context, patientID uuid.UUID, financialYear string) ([]*BenefitSummaryRow, error) {
	return m.rows[patientID.String()+"|"+financialYear], nil
}

func newTestService() (*Service, *mockMemberPolicyRepo, *mockMemberSchemeRepo, *mockSummaryRepo) {
	policies := newMockMemberPolicyRepo()
	schemes := &mockMemberSchemeRepo{}
	summaries := &mockSummaryRepo{rows: make(map[string][]*BenefitSummaryRow)}
	return NewService(policies, schemes, summaries), policies, schemes, summaries
}

// -- Tests --

func TestEnrollMember(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	var ve *apierrors.ValidationError
	if err := svc.EnrollMember(ctx, &MemberPolicy{PolicyID: uuid.New(), MemberNumber: "M1"}); !errors.As(err, &ve) {
		t.Errorf("expected validation error for missing patientId, got %v", err)
	}
	if err := svc.EnrollMember(ctx, &MemberPolicy{PatientID: uuid.New(), PolicyID: uuid.New(), MemberNumber: "M1", MemberType: "pet"}); !errors.As(err, &ve) {
		t.Errorf("expected validation error for bad memberType, got %v", err)
	}

	mp := &MemberPolicy{PatientID: uuid.New(), PolicyID: uuid.New(), MemberNumber: "MBR-001"}
	if err := svc.EnrollMember(ctx, mp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mp.MemberType != "primary" {
		t.Errorf("memberType = %s, want primary", mp.MemberType)
	}
}

func TestAssignScheme(t *testing.T) {
	svc, _, schemes, _ := newTestService()
	ctx := context.Background()

	mp := &MemberPolicy{PatientID: uuid.New(), PolicyID: uuid.New(), MemberNumber: "MBR-001"}
	if err := svc.EnrollMember(ctx, mp); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	err := svc.AssignScheme(ctx, &MemberScheme{MemberPolicyID: uuid.New(), SchemeID: uuid.New()})
	var nf *apierrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found for unknown member policy, got %v", err)
	}

	ms := &MemberScheme{MemberPolicyID: mp.ID, SchemeID: uuid.New()}
	if err := svc.AssignScheme(ctx, ms); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schemes.rows) != 1 {
		t.Errorf("expected 1 member scheme, got %d", len(schemes.rows))
	}
}

func TestGetMemberPolicies_UnknownPatientEmpty(t *testing.T) {
	svc, _, _, _ := newTestService()
	items, err := svc.GetMemberPolicies(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty result, got %d", len(items))
	}
}

func TestGetMemberBenefitSummary_DefaultsYear(t *testing.T) {
	svc, _, _, summaries := newTestService()
	patientID := uuid.New()
	year := fmt.Sprintf("%d", time.Now().Year())
	summaries.rows[patientID.String()+"|"+year] = []*BenefitSummaryRow{
		{SchemeName: "Outpatient", AnnualLimit: decimal.NewFromInt(10000), TotalUtilized: decimal.NewFromInt(4000), Remaining: decimal.NewFromInt(6000)},
	}

	rows, err := svc.GetMemberBenefitSummary(context.Background(), patientID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].Remaining.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("remaining = %s, want 6000", rows[0].Remaining)
	}
}
