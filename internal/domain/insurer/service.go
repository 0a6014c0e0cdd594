package insurer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/erless/coverage/pkg/apierrors"
)

// TxRunner executes fn inside a database transaction. Production wiring
// uses db.RunInTx; tests substitute a pass-through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	insurers   InsurerRepository
	policies   PolicyRepository
	history    HistoryRepository
	exclusions ExclusionRepository
	runTx      TxRunner
}

func NewService(insurers InsurerRepository, policies PolicyRepository, history HistoryRepository, exclusions ExclusionRepository, runTx TxRunner) *Service {
	if runTx == nil {
		runTx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{insurers: insurers, policies: policies, history: history, exclusions: exclusions, runTx: runTx}
}

var validChangeTypes = map[string]bool{
	ChangeCreated: true, ChangeUpdated: true, ChangeCancelled: true,
}

// -- Insurer methods --

func (s *Service) CreateInsurer(ctx context.Context, i *Insurer) error {
	if i.Name == "" {
		return apierrors.NewValidation("name is required", nil)
	}
	if i.Code == "" {
		return apierrors.NewValidation("code is required", nil)
	}
	return s.insurers.Create(ctx, i)
}

func (s *Service) GetInsurer(ctx context.Context, id uuid.UUID) (*Insurer, error) {
	i, err := s.insurers.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.NotFound("insurer", id.String())
	}
	return i, err
}

func (s *Service) ListInsurers(ctx context.Context, limit, offset int) ([]*Insurer, int, error) {
	return s.insurers.List(ctx, limit, offset)
}

func (s *Service) UpdateInsurer(ctx context.Context, i *Insurer) error {
	if i.Name == "" {
		return apierrors.NewValidation("name is required", nil)
	}
	if i.Code == "" {
		return apierrors.NewValidation("code is required", nil)
	}
	err := s.insurers.Update(ctx, i)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierrors.NotFound("insurer", i.ID.String())
	}
	return err
}

func (s *Service) DeactivateInsurer(ctx context.Context, id uuid.UUID) error {
	err := s.insurers.Deactivate(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierrors.NotFound("insurer", id.String())
	}
	return err
}

// -- Policy methods --

// CreatePolicy inserts the policy and its "created" history row in a
// single transaction. A failed history write aborts the insert.
func (s *Service) CreatePolicy(ctx context.Context, p *Policy) error {
	if p.InsurerID == uuid.Nil {
		return apierrors.NewValidation("insurerId is required", nil)
	}
	if p.PolicyNumber == "" {
		return apierrors.NewValidation("policyNumber is required", nil)
	}
	if p.Name == "" {
		return apierrors.NewValidation("name is required", nil)
	}
	if p.EffectiveDate.IsZero() {
		return apierrors.NewValidation("effectiveDate is required", nil)
	}
	if _, err := s.insurers.GetByID(ctx, p.InsurerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apierrors.NotFound("insurer", p.InsurerID.String())
		}
		return err
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.policies.Create(ctx, p); err != nil {
			return err
		}
		h := &PolicyHistory{
			PolicyID:          p.ID,
			ChangeType:        ChangeCreated,
			ChangeDescription: fmt.Sprintf("policy %s created", p.PolicyNumber),
			NewValues:         p.Snapshot(),
			EffectiveDate:     p.EffectiveDate,
		}
		if err := s.history.Create(ctx, h); err != nil {
			return apierrors.Integrity("policy history write failed", err)
		}
		return nil
	})
}

func (s *Service) GetPolicy(ctx context.Context, id uuid.UUID) (*Policy, error) {
	p, err := s.policies.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.NotFound("policy", id.String())
	}
	return p, err
}

func (s *Service) ListPoliciesByInsurer(ctx context.Context, insurerID uuid.UUID, limit, offset int) ([]*Policy, int, error) {
	return s.policies.ListByInsurer(ctx, insurerID, limit, offset)
}

// UpdatePolicy applies the mutable fields of upd to the stored policy and
// records the before/after snapshots, all in one transaction.
func (s *Service) UpdatePolicy(ctx context.Context, id uuid.UUID, upd *Policy) (*Policy, error) {
	if upd.PolicyNumber == "" {
		return nil, apierrors.NewValidation("policyNumber is required", nil)
	}
	if upd.Name == "" {
		return nil, apierrors.NewValidation("name is required", nil)
	}
	existing, err := s.policies.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.NotFound("policy", id.String())
	}
	if err != nil {
		return nil, err
	}

	prev := existing.Snapshot()
	existing.PolicyNumber = upd.PolicyNumber
	existing.Name = upd.Name
	if !upd.EffectiveDate.IsZero() {
		existing.EffectiveDate = upd.EffectiveDate
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.policies.Update(ctx, existing); err != nil {
			return err
		}
		h := &PolicyHistory{
			PolicyID:          existing.ID,
			ChangeType:        ChangeUpdated,
			ChangeDescription: fmt.Sprintf("policy %s updated", existing.PolicyNumber),
			PreviousValues:    prev,
			NewValues:         existing.Snapshot(),
			EffectiveDate:     existing.EffectiveDate,
		}
		if err := s.history.Create(ctx, h); err != nil {
			return apierrors.Integrity("policy history write failed", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// DeactivatePolicy soft-deactivates the policy with a mandatory reason,
// recording a "cancelled" history row in the same transaction.
func (s *Service) DeactivatePolicy(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return apierrors.NewValidation("reason is required", nil)
	}
	existing, err := s.policies.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apierrors.NotFound("policy", id.String())
	}
	if err != nil {
		return err
	}

	prev := existing.Snapshot()
	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.policies.Deactivate(ctx, existing.ID); err != nil {
			return err
		}
		after := existing.Snapshot()
		after.IsActive = false
		h := &PolicyHistory{
			PolicyID:          existing.ID,
			ChangeType:        ChangeCancelled,
			ChangeDescription: reason,
			PreviousValues:    prev,
			NewValues:         after,
			EffectiveDate:     time.Now(),
		}
		if err := s.history.Create(ctx, h); err != nil {
			return apierrors.Integrity("policy history write failed", err)
		}
		return nil
	})
}

// -- Policy history methods --

func (s *Service) GetPolicyHistory(ctx context.Context, policyID uuid.UUID) ([]*PolicyHistory, error) {
	if _, err := s.policies.GetByID(ctx, policyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apierrors.NotFound("policy", policyID.String())
		}
		return nil, err
	}
	return s.history.ListByPolicy(ctx, policyID)
}

// RecordPolicyChange appends an externally sourced history row, e.g. a
// change notice received from the insurer.
func (s *Service) RecordPolicyChange(ctx context.Context, h *PolicyHistory) error {
	if h.PolicyID == uuid.Nil {
		return apierrors.NewValidation("policyId is required", nil)
	}
	if !validChangeTypes[h.ChangeType] {
		return apierrors.Validationf("invalid changeType: %s", h.ChangeType)
	}
	if h.ChangeDescription == "" {
		return apierrors.NewValidation("changeDescription is required", nil)
	}
	if h.EffectiveDate.IsZero() {
		h.EffectiveDate = time.Now()
	}
	if _, err := s.policies.GetByID(ctx, h.PolicyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apierrors.NotFound("policy", h.PolicyID.String())
		}
		return err
	}
	return s.history.Create(ctx, h)
}

// -- Exclusion methods --

func (s *Service) CreateExclusion(ctx context.Context, e *PolicyExclusion) error {
	if e.PolicyID == uuid.Nil {
		return apierrors.NewValidation("policyId is required", nil)
	}
	if e.ExcludedCondition == "" {
		return apierrors.NewValidation("excludedCondition is required", nil)
	}
	if _, err := s.policies.GetByID(ctx, e.PolicyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apierrors.NotFound("policy", e.PolicyID.String())
		}
		return err
	}
	return s.exclusions.Create(ctx, e)
}

func (s *Service) ListExclusions(ctx context.Context, policyID uuid.UUID) ([]*PolicyExclusion, error) {
	return s.exclusions.ListByPolicy(ctx, policyID)
}
