package benefits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/erless/coverage/internal/domain/scheme"
	"github.com/erless/coverage/internal/platform/cache"
	"github.com/erless/coverage/pkg/apierrors"
)

// Procedure codes are looked up in the CPT code system.
const codeTypeCPT = "CPT"

// TxRunner executes fn inside a database transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	utilization UtilizationRepository
	candidates  CandidateRepository
	templates   TemplateRepository
	lookup      LookupRepository
	runTx       TxRunner

	// emergencyLimit is the auto-approval threshold for emergency claims.
	emergencyLimit decimal.Decimal
	cache          cache.Cache
	cacheTTL       time.Duration
	log            zerolog.Logger
}

func NewService(utilization UtilizationRepository, candidates CandidateRepository, templates TemplateRepository, lookup LookupRepository, runTx TxRunner, emergencyLimit decimal.Decimal, c cache.Cache, cacheTTL time.Duration, log zerolog.Logger) *Service {
	if runTx == nil {
		runTx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return &Service{
		utilization:    utilization,
		candidates:     candidates,
		templates:      templates,
		lookup:         lookup,
		runTx:          runTx,
		emergencyLimit: emergencyLimit,
		cache:          c,
		cacheTTL:       cacheTTL,
		log:            log,
	}
}

func defaultFinancialYear(financialYear string) string {
	if financialYear != "" {
		return financialYear
	}
	return fmt.Sprintf("%d", time.Now().Year())
}

func realtimeCacheKey(patientID uuid.UUID) string {
	return "benefits:realtime:" + patientID.String()
}

// -- Eligibility --

// CheckEligibility evaluates every active scheme the patient is enrolled
// in against a procedure code and requested amount. The check is
// read-only and records nothing.
func (s *Service) CheckEligibility(ctx context.Context, patientID uuid.UUID, procedureCode string, amountRequested decimal.Decimal, financialYear string) (*EligibilityResult, error) {
	if patientID == uuid.Nil {
		return nil, apierrors.NewValidation("patientId is required", nil)
	}
	if procedureCode == "" {
		return nil, apierrors.NewValidation("procedureCode is required", nil)
	}
	if !amountRequested.IsPositive() {
		return nil, apierrors.NewValidation("amountRequested must be positive", nil)
	}
	financialYear = defaultFinancialYear(financialYear)

	candidates, err := s.candidates.ActiveCandidates(ctx, patientID)
	if err != nil {
		return nil, apierrors.StoreUnavailable(err)
	}

	result := &EligibilityResult{
		PatientID:       patientID,
		ProcedureCode:   procedureCode,
		AmountRequested: amountRequested,
		FinancialYear:   financialYear,
		Results:         []*SchemeEligibility{},
	}

	for _, cand := range candidates {
		mapping, err := s.candidates.FindActiveMapping(ctx, cand.Scheme.ID, codeTypeCPT, procedureCode)
		if err != nil {
			return nil, apierrors.StoreUnavailable(err)
		}
		utilized, err := s.utilization.SumForYear(ctx, cand.MemberPolicyID, cand.Scheme.ID, financialYear)
		if err != nil {
			return nil, apierrors.StoreUnavailable(err)
		}

		remaining := cand.Scheme.AnnualLimit.Sub(utilized)
		covered := mapping != nil && mapping.CoverageType != scheme.CoverageNotCovered

		eligible := decimal.Zero
		if covered {
			available := remaining
			if available.IsNegative() {
				available = decimal.Zero
			}
			eligible = decimal.Min(amountRequested, available)
		}

		result.Results = append(result.Results, &SchemeEligibility{
			MemberPolicyID:  cand.MemberPolicyID,
			Scheme:          cand.Scheme,
			Policy:          cand.Policy,
			CoverageMapping: mapping,
			IsCovered:       covered,
			EligibleAmount:  eligible,
			RemainingLimit:  remaining,
			UtilizationStatus: UtilizationStatus{
				Utilized:  utilized,
				Limit:     cand.Scheme.AnnualLimit,
				Remaining: remaining,
			},
		})
	}

	for _, r := range result.Results {
		if r.EligibleAmount.IsPositive() {
			result.IsEligible = true
			break
		}
	}
	result.RecommendedScheme = recommendScheme(result.Results)
	return result, nil
}

// recommendScheme picks the result with the highest eligible amount.
// Ties break on the lexicographically lowest scheme id so repeated
// checks always recommend the same scheme.
func recommendScheme(results []*SchemeEligibility) *SchemeEligibility {
	var best *SchemeEligibility
	for _, r := range results {
		if !r.EligibleAmount.IsPositive() {
			continue
		}
		if best == nil {
			best = r
			continue
		}
		switch r.EligibleAmount.Cmp(best.EligibleAmount) {
		case 1:
			best = r
		case 0:
			if r.Scheme.ID.String() < best.Scheme.ID.String() {
				best = r
			}
		}
	}
	return best
}

// -- Utilization ledger --

// RecordUtilization appends a utilization row. This is the integration
// point claims processing calls after adjudication; it performs no limit
// check of its own.
func (s *Service) RecordUtilization(ctx context.Context, u *BenefitUtilization) error {
	if u.MemberPolicyID == uuid.Nil {
		return apierrors.NewValidation("memberPolicyId is required", nil)
	}
	if u.SchemeID == uuid.Nil {
		return apierrors.NewValidation("schemeId is required", nil)
	}
	if !u.AmountUtilized.IsPositive() {
		return apierrors.NewValidation("amountUtilized must be positive", nil)
	}
	if u.UtilizationDate.IsZero() {
		u.UtilizationDate = time.Now()
	}
	u.FinancialYear = defaultFinancialYear(u.FinancialYear)

	if err := s.utilization.Insert(ctx, u); err != nil {
		return err
	}
	s.invalidateRealtime(ctx, u.MemberPolicyID)
	return nil
}

// ProcessAutomaticDeduction resolves the patient's best matching scheme
// for a benefit category and deducts the amount. The check-then-insert
// runs in one transaction under a scheme row lock, so concurrent
// deductions cannot push past the annual limit.
func (s *Service) ProcessAutomaticDeduction(ctx context.Context, claimID, patientID uuid.UUID, amount decimal.Decimal, benefitCategory string) (*BenefitUtilization, error) {
	if patientID == uuid.Nil {
		return nil, apierrors.NewValidation("patientId is required", nil)
	}
	if !amount.IsPositive() {
		return nil, apierrors.NewValidation("amount must be positive", nil)
	}
	if benefitCategory == "" {
		return nil, apierrors.NewValidation("benefitCategory is required", nil)
	}
	financialYear := defaultFinancialYear("")

	candidates, err := s.candidates.ActiveCandidates(ctx, patientID)
	if err != nil {
		return nil, apierrors.StoreUnavailable(err)
	}

	var matches []*Candidate
	for _, cand := range candidates {
		if strings.EqualFold(cand.Scheme.BenefitCategory, benefitCategory) {
			matches = append(matches, cand)
		}
	}
	if len(matches) == 0 {
		return nil, apierrors.NotFound("scheme for benefit category", benefitCategory)
	}

	target, err := s.pickMostRemaining(ctx, matches, financialYear)
	if err != nil {
		return nil, err
	}

	u := &BenefitUtilization{
		MemberPolicyID:  target.MemberPolicyID,
		SchemeID:        target.Scheme.ID,
		UtilizationDate: time.Now(),
		AmountUtilized:  amount,
		FinancialYear:   financialYear,
	}
	if claimID != uuid.Nil {
		u.ClaimID = &claimID
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.utilization.LockScheme(ctx, target.Scheme.ID); err != nil {
			return err
		}
		utilized, err := s.utilization.SumForYear(ctx, target.MemberPolicyID, target.Scheme.ID, financialYear)
		if err != nil {
			return err
		}
		if utilized.Add(amount).Cmp(target.Scheme.AnnualLimit) > 0 {
			return apierrors.CapacityExceeded(target.Scheme.ID.String(), financialYear)
		}
		return s.utilization.Insert(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRealtime(ctx, u.MemberPolicyID)
	return u, nil
}

// pickMostRemaining prefers the candidate with the most remaining annual
// limit, ties broken by lowest scheme id.
func (s *Service) pickMostRemaining(ctx context.Context, matches []*Candidate, financialYear string) (*Candidate, error) {
	var best *Candidate
	var bestRemaining decimal.Decimal
	for _, cand := range matches {
		utilized, err := s.utilization.SumForYear(ctx, cand.MemberPolicyID, cand.Scheme.ID, financialYear)
		if err != nil {
			return nil, apierrors.StoreUnavailable(err)
		}
		remaining := cand.Scheme.AnnualLimit.Sub(utilized)
		if best == nil {
			best, bestRemaining = cand, remaining
			continue
		}
		switch remaining.Cmp(bestRemaining) {
		case 1:
			best, bestRemaining = cand, remaining
		case 0:
			if cand.Scheme.ID.String() < best.Scheme.ID.String() {
				best = cand
			}
		}
	}
	return best, nil
}

func (s *Service) GetMemberUtilizationHistory(ctx context.Context, patientID uuid.UUID, financialYear string, schemeID *uuid.UUID) ([]*BenefitUtilization, error) {
	if patientID == uuid.Nil {
		return nil, apierrors.NewValidation("patientId is required", nil)
	}
	return s.utilization.History(ctx, patientID, financialYear, schemeID)
}

// -- Claim template --

func (s *Service) GetClaimFormTemplate(ctx context.Context, policyID uuid.UUID) (*ClaimFormTemplate, error) {
	p, ins, err := s.templates.PolicyWithInsurer(ctx, policyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierrors.NotFound("policy", policyID.String())
	}
	if err != nil {
		return nil, err
	}
	schemes, err := s.templates.SchemesByPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(schemes))
	for _, sc := range schemes {
		names = append(names, sc.SchemeName)
	}

	return &ClaimFormTemplate{
		Policy:  p,
		Insurer: ins,
		Schemes: schemes,
		FormFields: ClaimFormFields{
			InsurerName:      ins.Name,
			PolicyNumber:     p.PolicyNumber,
			AvailableSchemes: names,
		},
	}, nil
}

// -- Preauthorization --

// CheckPreauthorizationRequirement reports whether any of the patient's
// schemes demand preauthorization for the procedure. Emergency claims
// under the configured limit are auto-approval eligible and never force
// preauthorization.
func (s *Service) CheckPreauthorizationRequirement(ctx context.Context, patientID uuid.UUID, procedureCode string, amount decimal.Decimal, urgency string) (*PreauthResult, error) {
	if patientID == uuid.Nil {
		return nil, apierrors.NewValidation("patientId is required", nil)
	}
	if procedureCode == "" {
		return nil, apierrors.NewValidation("procedureCode is required", nil)
	}
	if !amount.IsPositive() {
		return nil, apierrors.NewValidation("amount must be positive", nil)
	}

	candidates, err := s.candidates.ActiveCandidates(ctx, patientID)
	if err != nil {
		return nil, apierrors.StoreUnavailable(err)
	}

	autoApproval := urgency == "emergency" && amount.Cmp(s.emergencyLimit) < 0

	result := &PreauthResult{
		PatientID:     patientID,
		ProcedureCode: procedureCode,
		Amount:        amount,
		Urgency:       urgency,
		Schemes:       []*PreauthSchemeCheck{},
	}

	for _, cand := range candidates {
		mapping, err := s.candidates.FindActiveMapping(ctx, cand.Scheme.ID, codeTypeCPT, procedureCode)
		if err != nil {
			return nil, apierrors.StoreUnavailable(err)
		}

		check := &PreauthSchemeCheck{
			SchemeID:             cand.Scheme.ID,
			SchemeName:           cand.Scheme.SchemeName,
			AutoApprovalEligible: autoApproval,
		}
		if cand.Scheme.PreauthorizationRequired {
			check.RequiresPreauth = true
			check.Reasons = append(check.Reasons, "scheme requires preauthorization")
		}
		if mapping != nil && mapping.CoverageType == scheme.CoveragePreauthRequired {
			check.RequiresPreauth = true
			check.Reasons = append(check.Reasons, "procedure mapped as preauth_required")
		}
		if cand.Scheme.PerVisitLimit != nil && amount.Cmp(*cand.Scheme.PerVisitLimit) > 0 {
			check.RequiresPreauth = true
			check.Reasons = append(check.Reasons, "amount exceeds per-visit limit")
		}
		if check.RequiresPreauth && !autoApproval {
			result.OverallRequiresPreauth = true
		}
		result.Schemes = append(result.Schemes, check)
	}
	return result, nil
}

// -- Real-time lookup --

// PerformRealTimeLookup builds the patient's full active benefit tree
// grouped insurer, policy, scheme, benefits, with a coverage summary.
// Results are cached briefly when a cache is configured.
func (s *Service) PerformRealTimeLookup(ctx context.Context, patientID uuid.UUID) (*RealTimeBenefits, error) {
	if patientID == uuid.Nil {
		return nil, apierrors.NewValidation("patientId is required", nil)
	}

	if s.cache != nil {
		var cached RealTimeBenefits
		if err := s.cache.GetJSON(ctx, realtimeCacheKey(patientID), &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn().Err(err).Msg("benefit cache read failed")
		}
	}

	rows, err := s.lookup.ActiveBenefitRows(ctx, patientID)
	if err != nil {
		return nil, apierrors.StoreUnavailable(err)
	}
	if len(rows) == 0 {
		return nil, apierrors.NotFound("active coverage for patient", patientID.String())
	}

	result := groupBenefitRows(patientID, rows)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, realtimeCacheKey(patientID), result, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("benefit cache write failed")
		}
	}
	return result, nil
}

func groupBenefitRows(patientID uuid.UUID, rows []*BenefitRow) *RealTimeBenefits {
	result := &RealTimeBenefits{
		PatientID:   patientID,
		Insurers:    []*InsurerBenefitsView{},
		GeneratedAt: time.Now(),
	}
	summary := &result.CoverageSummary
	summary.TotalAnnualCoverage = decimal.Zero

	insurerIdx := map[uuid.UUID]*InsurerBenefitsView{}
	policyIdx := map[uuid.UUID]*PolicyBenefitsView{}
	schemeIdx := map[uuid.UUID]*SchemeBenefitsView{}

	for _, row := range rows {
		iv, ok := insurerIdx[row.InsurerID]
		if !ok {
			iv = &InsurerBenefitsView{InsurerID: row.InsurerID, InsurerName: row.InsurerName, Policies: []*PolicyBenefitsView{}}
			insurerIdx[row.InsurerID] = iv
			result.Insurers = append(result.Insurers, iv)
			summary.Insurers = append(summary.Insurers, row.InsurerName)
		}
		pv, ok := policyIdx[row.PolicyID]
		if !ok {
			pv = &PolicyBenefitsView{PolicyID: row.PolicyID, PolicyNumber: row.PolicyNumber, PolicyName: row.PolicyName, Schemes: []*SchemeBenefitsView{}}
			policyIdx[row.PolicyID] = pv
			iv.Policies = append(iv.Policies, pv)
			summary.TotalActivePolicies++
		}
		sv, ok := schemeIdx[row.Scheme.ID]
		if !ok {
			sv = &SchemeBenefitsView{Scheme: row.Scheme, Benefits: []*scheme.SchemeBenefit{}}
			schemeIdx[row.Scheme.ID] = sv
			pv.Schemes = append(pv.Schemes, sv)
			summary.TotalActiveSchemes++
			summary.TotalAnnualCoverage = summary.TotalAnnualCoverage.Add(row.Scheme.AnnualLimit)
		}
		if row.Benefit != nil {
			sv.Benefits = append(sv.Benefits, row.Benefit)
			summary.TotalAvailableBenefits++
		}
	}
	return result
}

// CheckServiceCoverage answers whether a concrete service is covered by
// any of the patient's active scheme benefits.
func (s *Service) CheckServiceCoverage(ctx context.Context, patientID uuid.UUID, serviceCode, serviceCategory string) (*ServiceCoverageResult, error) {
	if patientID == uuid.Nil {
		return nil, apierrors.NewValidation("patientId is required", nil)
	}
	if serviceCode == "" && serviceCategory == "" {
		return nil, apierrors.NewValidation("serviceCode or serviceCategory is required", nil)
	}

	details, err := s.lookup.ServiceCoverageRows(ctx, patientID, serviceCode, serviceCategory)
	if err != nil {
		return nil, apierrors.StoreUnavailable(err)
	}

	result := &ServiceCoverageResult{
		PatientID:       patientID,
		ServiceCode:     serviceCode,
		ServiceCategory: serviceCategory,
		IsCovered:       len(details) > 0,
		CoverageDetails: details,
	}
	if result.CoverageDetails == nil {
		result.CoverageDetails = []*ServiceCoverageDetail{}
	}
	for _, d := range details {
		if d.IsPreauthorized || d.SchemeRequiresPreauth {
			result.PreauthorizationRequired = true
			break
		}
	}
	return result, nil
}

// invalidateRealtime drops the cached benefit tree for the patient that
// owns the member policy. Best effort; failures only log.
func (s *Service) invalidateRealtime(ctx context.Context, memberPolicyID uuid.UUID) {
	if s.cache == nil {
		return
	}
	patientID, err := s.utilization.PatientForMemberPolicy(ctx, memberPolicyID)
	if err != nil {
		s.log.Warn().Err(err).Msg("benefit cache invalidation lookup failed")
		return
	}
	if err := s.cache.Delete(ctx, realtimeCacheKey(patientID)); err != nil {
		s.log.Warn().Err(err).Msg("benefit cache invalidation failed")
	}
}
