package insurer

import (
	"context"

	"github.com/google/uuid"
)

type InsurerRepository interface {
	Create(ctx context.Context, i *Insurer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Insurer, error)
	List(ctx context.Context, limit, offset int) ([]*Insurer, int, error)
	Update(ctx context.Context, i *Insurer) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type PolicyRepository interface {
	Create(ctx context.Context, p *Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	ListByInsurer(ctx context.Context, insurerID uuid.UUID, limit, offset int) ([]*Policy, int, error)
	Update(ctx context.Context, p *Policy) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type HistoryRepository interface {
	Create(ctx context.Context, h *PolicyHistory) error
	ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*PolicyHistory, error)
}

type ExclusionRepository interface {
	Create(ctx context.Context, e *PolicyExclusion) error
	ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*PolicyExclusion, error)
}
