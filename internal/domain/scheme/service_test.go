package scheme

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/erless/coverage/pkg/apierrors"
)

// -- Mock Repositories --

type mockSchemeRepo struct {
	items map[uuid.UUID]*Scheme
}

func newMockSchemeRepo() *mockSchemeRepo {
	return &mockSchemeRepo{items: make(map[uuid.UUID]*Scheme)}
}

func (m *mockSchemeRepo) Create(_ context.Context, s *Scheme) error {
	s.ID = uuid.New()
	s.IsActive = true
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	m.items[s.ID] = s
	return nil
}

func (m *mockSchemeRepo) GetByID(_ context.Context, id uuid.UUID) (*Scheme, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockSchemeRepo) ListByPolicy(_ context.Context, policyID uuid.UUID) ([]*Scheme, error) {
	var result []*Scheme
	for _, s := range m.items {
		if s.PolicyID == policyID && s.IsActive {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockSchemeRepo) Update(_ context.Context, s *Scheme) error {
	if _, ok := m.items[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.items[s.ID] = s
	return nil
}

type mockBenefitRepo struct {
	rows []*SchemeBenefit
}

func (m *mockBenefitRepo) CreateBatch(_ context.Context, benefits []*SchemeBenefit) error {
	for _, b := range benefits {
		b.ID = uuid.New()
		b.IsActive = true
		m.rows = append(m.rows, b)
	}
	return nil
}

func (m *mockBenefitRepo) ListByScheme(_ context.Context, schemeID uuid.UUID) ([]*SchemeBenefit, error) {
	var result []*SchemeBenefit
	for _, b := range m.rows {
		if b.SchemeID == schemeID {
			result = append(result, b)
		}
	}
	return result, nil
}

type mockMappingRepo struct {
	rows []*CoverageMapping
}

func (m *mockMappingRepo) Create(_ context.Context, cm *CoverageMapping) error {
	for _, existing := range m.rows {
		if existing.SchemeID == cm.SchemeID && existing.CodeType == cm.CodeType && existing.Code == cm.Code && existing.IsActive {
			return ErrDuplicateMapping
		}
	}
	cm.ID = uuid.New()
	cm.IsActive = true
	cm.CreatedAt = time.Now()
	m.rows = append(m.rows, cm)
	return nil
}

func (m *mockMappingRepo) FindActive(_ context.Context, schemeID uuid.UUID, codeType, code string) ([]*CoverageMapping, error) {
	var result []*CoverageMapping
	for i := len(m.rows) - 1; i >= 0; i-- {
		cm := m.rows[i]
		if cm.SchemeID == schemeID && cm.CodeType == codeType && cm.Code == code && cm.IsActive {
			result = append(result, cm)
		}
	}
	return result, nil
}

func newTestService() (*Service, *mockSchemeRepo, *mockBenefitRepo, *mockMappingRepo) {
	schemes := newMockSchemeRepo()
	benefits := &mockBenefitRepo{}
	mappings := &mockMappingRepo{}
	svc := NewService(schemes, benefits, mappings, zerolog.Nop())
	return svc, schemes, benefits, mappings
}

func seedScheme(t *testing.T, svc *Service) *Scheme {
	t.Helper()
	sc := &Scheme{
		PolicyID:        uuid.New(),
		SchemeName:      "Outpatient Care",
		SchemeCode:      "OPD",
		BenefitCategory: "outpatient",
		AnnualLimit:     decimal.NewFromInt(10000),
	}
	if err := svc.CreateScheme(context.Background(), sc); err != nil {
		t.Fatalf("seed scheme: %v", err)
	}
	return sc
}

// -- Scheme tests --

func TestCreateScheme_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	var ve *apierrors.ValidationError

	err := svc.CreateScheme(ctx, &Scheme{SchemeName: "X", SchemeCode: "X", AnnualLimit: decimal.NewFromInt(1)})
	if !errors.As(err, &ve) {
		t.Errorf("expected validation error for missing policyId, got %v", err)
	}

	err = svc.CreateScheme(ctx, &Scheme{PolicyID: uuid.New(), SchemeName: "X", SchemeCode: "X"})
	if !errors.As(err, &ve) {
		t.Errorf("expected validation error for zero annualLimit, got %v", err)
	}
}

func TestCreateScheme_DefaultsCategory(t *testing.T) {
	svc, _, _, _ := newTestService()
	sc := &Scheme{
		PolicyID:    uuid.New(),
		SchemeName:  "Basic",
		SchemeCode:  "BSC",
		AnnualLimit: decimal.NewFromInt(5000),
	}
	if err := svc.CreateScheme(context.Background(), sc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.BenefitCategory != "general" {
		t.Errorf("benefitCategory = %s, want general", sc.BenefitCategory)
	}
}

func TestGetScheme_WithBenefits(t *testing.T) {
	svc, _, _, _ := newTestService()
	sc := seedScheme(t, svc)

	benefits := []*SchemeBenefit{
		{BenefitCategory: "outpatient", BenefitName: "GP Consultation"},
		{BenefitCategory: "outpatient", BenefitName: "Specialist Consultation"},
	}
	if err := svc.AddSchemeBenefits(context.Background(), sc.ID, benefits); err != nil {
		t.Fatalf("add benefits: %v", err)
	}

	got, gotBenefits, err := svc.GetScheme(context.Background(), sc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SchemeCode != "OPD" {
		t.Errorf("schemeCode = %s", got.SchemeCode)
	}
	if len(gotBenefits) != 2 {
		t.Errorf("expected 2 benefits, got %d", len(gotBenefits))
	}
}

func TestAddSchemeBenefits_UnknownScheme(t *testing.T) {
	svc, _, _, _ := newTestService()
	err := svc.AddSchemeBenefits(context.Background(), uuid.New(), []*SchemeBenefit{
		{BenefitCategory: "dental", BenefitName: "Cleaning"},
	})
	var nf *apierrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

// -- Coverage mapping tests --

func TestCreateCoverageMapping_RejectsDuplicate(t *testing.T) {
	svc, _, _, _ := newTestService()
	sc := seedScheme(t, svc)
	ctx := context.Background()

	first := &CoverageMapping{SchemeID: sc.ID, CodeType: "CPT", Code: "99213", CoverageType: CoverageCovered}
	if err := svc.CreateCoverageMapping(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := &CoverageMapping{SchemeID: sc.ID, CodeType: "CPT", Code: "99213", CoverageType: CoveragePreauthRequired}
	err := svc.CreateCoverageMapping(ctx, dup)
	var ve *apierrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for duplicate mapping, got %v", err)
	}
}

func TestCreateCoverageMapping_InvalidCoverageType(t *testing.T) {
	svc, _, _, _ := newTestService()
	sc := seedScheme(t, svc)

	m := &CoverageMapping{SchemeID: sc.ID, CodeType: "CPT", Code: "99213", CoverageType: "maybe"}
	err := svc.CreateCoverageMapping(context.Background(), m)
	var ve *apierrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetCoverageMapping(t *testing.T) {
	svc, _, _, _ := newTestService()
	sc := seedScheme(t, svc)
	ctx := context.Background()

	m := &CoverageMapping{SchemeID: sc.ID, CodeType: "CPT", Code: "99213", CoverageType: CoverageCovered}
	if err := svc.CreateCoverageMapping(ctx, m); err != nil {
		t.Fatalf("create mapping: %v", err)
	}

	got, err := svc.GetCoverageMapping(ctx, sc.ID, "CPT", "99213")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CoverageType != CoverageCovered {
		t.Errorf("coverageType = %s", got.CoverageType)
	}

	_, err = svc.GetCoverageMapping(ctx, sc.ID, "CPT", "00000")
	var nf *apierrors.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestGetCoverageMapping_DuplicatesResolveToNewest(t *testing.T) {
	svc, _, _, mappings := newTestService()
	sc := seedScheme(t, svc)

	// Legacy duplicates inserted before the unique index existed.
	older := &CoverageMapping{ID: uuid.New(), SchemeID: sc.ID, CodeType: "CPT", Code: "70450",
		CoverageType: CoverageCovered, IsActive: true, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &CoverageMapping{ID: uuid.New(), SchemeID: sc.ID, CodeType: "CPT", Code: "70450",
		CoverageType: CoveragePreauthRequired, IsActive: true, CreatedAt: time.Now()}
	mappings.rows = append(mappings.rows, older, newer)

	got, err := svc.GetCoverageMapping(context.Background(), sc.ID, "CPT", "70450")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("expected newest mapping to win, got %s", got.CoverageType)
	}
}
