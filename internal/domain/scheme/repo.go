package scheme

import (
	"context"

	"github.com/google/uuid"
)

type SchemeRepository interface {
	Create(ctx context.Context, s *Scheme) error
	GetByID(ctx context.Context, id uuid.UUID) (*Scheme, error)
	ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*Scheme, error)
	Update(ctx context.Context, s *Scheme) error
}

type BenefitRepository interface {
	CreateBatch(ctx context.Context, benefits []*SchemeBenefit) error
	ListByScheme(ctx context.Context, schemeID uuid.UUID) ([]*SchemeBenefit, error)
}

type MappingRepository interface {
	Create(ctx context.Context, m *CoverageMapping) error
	// FindActive returns all active rows for the key, newest first. More
	// than one row indicates legacy duplicates that predate the unique
	// index.
	FindActive(ctx context.Context, schemeID uuid.UUID, codeType, code string) ([]*CoverageMapping, error)
}
