package scheme

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/erless/coverage/pkg/apierrors"
)

var validCoverageTypes = map[string]bool{
	CoverageCovered: true, CoverageNotCovered: true, CoveragePreauthRequired: true,
}

type Service struct {
	schemes  SchemeRepository
	benefits BenefitRepository
	mappings MappingRepository
	log      zerolog.Logger
}

func NewService(schemes SchemeRepository, benefits BenefitRepository, mappings MappingRepository, log zerolog.Logger) *Service {
	return &Service{schemes: schemes, benefits: benefits, mappings: mappings, log: log}
}

// -- Scheme methods --

func (s *Service) CreateScheme(ctx context.Context, sc *Scheme) error {
	if sc.PolicyID == uuid.Nil {
		return apierrors.NewValidation("policyId is required", nil)
	}
	if sc.SchemeName == "" {
		return apierrors.NewValidation("schemeName is required", nil)
	}
	if sc.SchemeCode == "" {
		return apierrors.NewValidation("schemeCode is required", nil)
	}
	if sc.BenefitCategory == "" {
		sc.BenefitCategory = "general"
	}
	if !sc.AnnualLimit.IsPositive() {
		return apierrors.NewValidation("annualLimit must be positive", nil)
	}
	if sc.PerVisitLimit != nil && !sc.PerVisitLimit.IsPositive() {
		return apierrors.NewValidation("perVisitLimit must be positive", nil)
	}
	return s.schemes.Create(ctx, sc)
}

// GetScheme returns the scheme with its active benefits attached.
func (s *Service) GetScheme(ctx context.Context, id uuid.UUID) (*Scheme, []*SchemeBenefit, error) {
	sc, err := s.schemes.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apierrors.NotFound("scheme", id.String())
	}
	if err != nil {
		return nil, nil, err
	}
	benefits, err := s.benefits.ListByScheme(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return sc, benefits, nil
}

func (s *Service) ListSchemesByPolicy(ctx context.Context, policyID uuid.UUID) ([]*Scheme, error) {
	return s.schemes.ListByPolicy(ctx, policyID)
}

func (s *Service) UpdateScheme(ctx context.Context, sc *Scheme) error {
	if sc.SchemeName == "" {
		return apierrors.NewValidation("schemeName is required", nil)
	}
	if sc.SchemeCode == "" {
		return apierrors.NewValidation("schemeCode is required", nil)
	}
	if !sc.AnnualLimit.IsPositive() {
		return apierrors.NewValidation("annualLimit must be positive", nil)
	}
	err := s.schemes.Update(ctx, sc)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierrors.NotFound("scheme", sc.ID.String())
	}
	return err
}

// -- Benefit methods --

func (s *Service) AddSchemeBenefits(ctx context.Context, schemeID uuid.UUID, benefits []*SchemeBenefit) error {
	if len(benefits) == 0 {
		return apierrors.NewValidation("at least one benefit is required", nil)
	}
	if _, err := s.schemes.GetByID(ctx, schemeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apierrors.NotFound("scheme", schemeID.String())
		}
		return err
	}
	for _, b := range benefits {
		if b.BenefitName == "" {
			return apierrors.NewValidation("benefitName is required", nil)
		}
		if b.BenefitCategory == "" {
			return apierrors.NewValidation("benefitCategory is required", nil)
		}
		b.SchemeID = schemeID
	}
	return s.benefits.CreateBatch(ctx, benefits)
}

func (s *Service) ListSchemeBenefits(ctx context.Context, schemeID uuid.UUID) ([]*SchemeBenefit, error) {
	return s.benefits.ListByScheme(ctx, schemeID)
}

// -- Coverage mapping methods --

func (s *Service) CreateCoverageMapping(ctx context.Context, m *CoverageMapping) error {
	if m.SchemeID == uuid.Nil {
		return apierrors.NewValidation("schemeId is required", nil)
	}
	if m.CodeType == "" {
		return apierrors.NewValidation("codeType is required", nil)
	}
	if m.Code == "" {
		return apierrors.NewValidation("code is required", nil)
	}
	if !validCoverageTypes[m.CoverageType] {
		return apierrors.Validationf("invalid coverageType: %s", m.CoverageType)
	}
	if _, err := s.schemes.GetByID(ctx, m.SchemeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apierrors.NotFound("scheme", m.SchemeID.String())
		}
		return err
	}
	err := s.mappings.Create(ctx, m)
	if errors.Is(err, ErrDuplicateMapping) {
		return apierrors.Validationf("active coverage mapping already exists for %s %s", m.CodeType, m.Code)
	}
	return err
}

// GetCoverageMapping returns the single active mapping for the key, or
// NotFound. Duplicate survivors from before the unique index resolve to
// the newest row with a warning.
func (s *Service) GetCoverageMapping(ctx context.Context, schemeID uuid.UUID, codeType, code string) (*CoverageMapping, error) {
	rows, err := s.mappings.FindActive(ctx, schemeID, codeType, code)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apierrors.NotFound("coverage mapping", codeType+"/"+code)
	}
	if len(rows) > 1 {
		s.log.Warn().
			Str("scheme_id", schemeID.String()).
			Str("code_type", codeType).
			Str("code", code).
			Int("count", len(rows)).
			Msg("multiple active coverage mappings, using newest")
	}
	return rows[0], nil
}
