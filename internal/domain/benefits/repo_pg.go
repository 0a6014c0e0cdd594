package benefits

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/erless/coverage/internal/domain/insurer"
	"github.com/erless/coverage/internal/domain/scheme"
	"github.com/erless/coverage/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Utilization PG Repo --

type utilizationRepoPG struct{ pool *pgxpool.Pool }

func NewUtilizationRepoPG(pool *pgxpool.Pool) UtilizationRepository {
	return &utilizationRepoPG{pool: pool}
}

func (r *utilizationRepoPG) Insert(ctx context.Context, u *BenefitUtilization) error {
	u.ID = uuid.New()
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO benefit_utilization (id, member_policy_id, scheme_id, claim_id, utilization_date, amount_utilized, financial_year)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		u.ID, u.MemberPolicyID, u.SchemeID, u.ClaimID, u.UtilizationDate, u.AmountUtilized, u.FinancialYear).Scan(&u.CreatedAt)
}

func (r *utilizationRepoPG) SumForYear(ctx context.Context, memberPolicyID, schemeID uuid.UUID, financialYear string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_utilized), 0)
		FROM benefit_utilization
		WHERE member_policy_id = $1 AND scheme_id = $2 AND financial_year = $3`,
		memberPolicyID, schemeID, financialYear).Scan(&total)
	return total, err
}

func (r *utilizationRepoPG) History(ctx context.Context, patientID uuid.UUID, financialYear string, schemeID *uuid.UUID) ([]*BenefitUtilization, error) {
	q := `
		SELECT bu.id, bu.member_policy_id, bu.scheme_id, bu.claim_id, bu.utilization_date, bu.amount_utilized, bu.financial_year, bu.created_at
		FROM benefit_utilization bu
		JOIN member_policy mp ON mp.id = bu.member_policy_id
		WHERE mp.patient_id = $1`
	args := []interface{}{patientID}
	if financialYear != "" {
		args = append(args, financialYear)
		q += ` AND bu.financial_year = $2`
	}
	if schemeID != nil {
		args = append(args, *schemeID)
		if financialYear != "" {
			q += ` AND bu.scheme_id = $3`
		} else {
			q += ` AND bu.scheme_id = $2`
		}
	}
	q += ` ORDER BY bu.created_at DESC`

	rows, err := conn(ctx, r.pool).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BenefitUtilization
	for rows.Next() {
		var u BenefitUtilization
		if err := rows.Scan(&u.ID, &u.MemberPolicyID, &u.SchemeID, &u.ClaimID, &u.UtilizationDate, &u.AmountUtilized, &u.FinancialYear, &u.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &u)
	}
	return items, nil
}

func (r *utilizationRepoPG) LockScheme(ctx context.Context, schemeID uuid.UUID) error {
	var id uuid.UUID
	return conn(ctx, r.pool).QueryRow(ctx, `SELECT id FROM insurance_scheme WHERE id = $1 FOR UPDATE`, schemeID).Scan(&id)
}

func (r *utilizationRepoPG) PatientForMemberPolicy(ctx context.Context, memberPolicyID uuid.UUID) (uuid.UUID, error) {
	var patientID uuid.UUID
	err := conn(ctx, r.pool).QueryRow(ctx, `SELECT patient_id FROM member_policy WHERE id = $1`, memberPolicyID).Scan(&patientID)
	return patientID, err
}

// -- Candidate PG Repo --

type candidateRepoPG struct{ pool *pgxpool.Pool }

func NewCandidateRepoPG(pool *pgxpool.Pool) CandidateRepository {
	return &candidateRepoPG{pool: pool}
}

func (r *candidateRepoPG) ActiveCandidates(ctx context.Context, patientID uuid.UUID) ([]*Candidate, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT mp.id,
			s.id, s.policy_id, s.scheme_name, s.scheme_code, s.benefit_category,
			s.annual_limit, s.per_visit_limit, s.preauthorization_required, s.is_active, s.created_at, s.updated_at,
			p.id, p.insurer_id, p.policy_number, p.name, p.effective_date, p.is_active, p.created_at, p.updated_at
		FROM member_policy mp
		JOIN member_scheme ms ON ms.member_policy_id = mp.id AND ms.is_active
		JOIN insurance_scheme s ON s.id = ms.scheme_id AND s.is_active
		JOIN insurance_policy p ON p.id = mp.policy_id AND p.is_active
		WHERE mp.patient_id = $1 AND mp.is_active
		ORDER BY s.id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Candidate
	for rows.Next() {
		var c Candidate
		var s scheme.Scheme
		var p insurer.Policy
		if err := rows.Scan(&c.MemberPolicyID,
			&s.ID, &s.PolicyID, &s.SchemeName, &s.SchemeCode, &s.BenefitCategory,
			&s.AnnualLimit, &s.PerVisitLimit, &s.PreauthorizationRequired, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
			&p.ID, &p.InsurerID, &p.PolicyNumber, &p.Name, &p.EffectiveDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		c.Scheme = &s
		c.Policy = &p
		items = append(items, &c)
	}
	return items, nil
}

func (r *candidateRepoPG) FindActiveMapping(ctx context.Context, schemeID uuid.UUID, codeType, code string) (*scheme.CoverageMapping, error) {
	var m scheme.CoverageMapping
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, scheme_id, code_type, code, coverage_type, is_active, created_at, updated_at
		FROM coverage_mapping
		WHERE scheme_id = $1 AND code_type = $2 AND code = $3 AND is_active
		ORDER BY created_at DESC
		LIMIT 1`, schemeID, codeType, code).
		Scan(&m.ID, &m.SchemeID, &m.CodeType, &m.Code, &m.CoverageType, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// -- Template PG Repo --

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepoPG{pool: pool}
}

func (r *templateRepoPG) PolicyWithInsurer(ctx context.Context, policyID uuid.UUID) (*insurer.Policy, *insurer.Insurer, error) {
	var p insurer.Policy
	var i insurer.Insurer
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT p.id, p.insurer_id, p.policy_number, p.name, p.effective_date, p.is_active, p.created_at, p.updated_at,
			i.id, i.name, i.code, i.is_active, i.created_at, i.updated_at
		FROM insurance_policy p
		JOIN insurer i ON i.id = p.insurer_id
		WHERE p.id = $1`, policyID).
		Scan(&p.ID, &p.InsurerID, &p.PolicyNumber, &p.Name, &p.EffectiveDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
			&i.ID, &i.Name, &i.Code, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}
	return &p, &i, nil
}

func (r *templateRepoPG) SchemesByPolicy(ctx context.Context, policyID uuid.UUID) ([]*scheme.Scheme, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, policy_id, scheme_name, scheme_code, benefit_category,
			annual_limit, per_visit_limit, preauthorization_required, is_active, created_at, updated_at
		FROM insurance_scheme
		WHERE policy_id = $1 AND is_active ORDER BY scheme_name`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*scheme.Scheme
	for rows.Next() {
		var s scheme.Scheme
		if err := rows.Scan(&s.ID, &s.PolicyID, &s.SchemeName, &s.SchemeCode, &s.BenefitCategory,
			&s.AnnualLimit, &s.PerVisitLimit, &s.PreauthorizationRequired, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, nil
}

// -- Lookup PG Repo --

type lookupRepoPG struct{ pool *pgxpool.Pool }

func NewLookupRepoPG(pool *pgxpool.Pool) LookupRepository {
	return &lookupRepoPG{pool: pool}
}

func (r *lookupRepoPG) ActiveBenefitRows(ctx context.Context, patientID uuid.UUID) ([]*BenefitRow, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT i.id, i.name,
			p.id, p.policy_number, p.name,
			s.id, s.policy_id, s.scheme_name, s.scheme_code, s.benefit_category,
			s.annual_limit, s.per_visit_limit, s.preauthorization_required, s.is_active, s.created_at, s.updated_at,
			sb.id, sb.benefit_category, sb.benefit_name, sb.benefit_code,
			sb.coverage_amount, sb.coverage_percentage, sb.session_limit, sb.frequency_limit,
			sb.is_preauthorized, sb.is_active, sb.created_at, sb.updated_at
		FROM member_policy mp
		JOIN insurance_policy p ON p.id = mp.policy_id AND p.is_active
		JOIN insurer i ON i.id = p.insurer_id
		JOIN member_scheme ms ON ms.member_policy_id = mp.id AND ms.is_active
		JOIN insurance_scheme s ON s.id = ms.scheme_id AND s.is_active
		LEFT JOIN scheme_benefit sb ON sb.scheme_id = s.id AND sb.is_active
		WHERE mp.patient_id = $1 AND mp.is_active
		ORDER BY i.name, p.policy_number, s.scheme_name, sb.benefit_name`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BenefitRow
	for rows.Next() {
		var row BenefitRow
		var s scheme.Scheme
		var b scheme.SchemeBenefit
		var bID *uuid.UUID
		var bCategory, bName *string
		var bPreauth, bActive *bool
		var bCreated, bUpdated *time.Time
		if err := rows.Scan(&row.InsurerID, &row.InsurerName,
			&row.PolicyID, &row.PolicyNumber, &row.PolicyName,
			&s.ID, &s.PolicyID, &s.SchemeName, &s.SchemeCode, &s.BenefitCategory,
			&s.AnnualLimit, &s.PerVisitLimit, &s.PreauthorizationRequired, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
			&bID, &bCategory, &bName, &b.BenefitCode,
			&b.CoverageAmount, &b.CoveragePercentage, &b.SessionLimit, &b.FrequencyLimit,
			&bPreauth, &bActive, &bCreated, &bUpdated); err != nil {
			return nil, err
		}
		row.Scheme = &s
		if bID != nil {
			b.ID = *bID
			b.SchemeID = s.ID
			b.BenefitCategory = *bCategory
			b.BenefitName = *bName
			b.IsPreauthorized = *bPreauth
			b.IsActive = *bActive
			b.CreatedAt = *bCreated
			b.UpdatedAt = *bUpdated
			row.Benefit = &b
		}
		items = append(items, &row)
	}
	return items, nil
}

func (r *lookupRepoPG) ServiceCoverageRows(ctx context.Context, patientID uuid.UUID, serviceCode, serviceCategory string) ([]*ServiceCoverageDetail, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT s.id, s.scheme_name, sb.benefit_name,
			sb.coverage_amount, sb.coverage_percentage, sb.is_preauthorized, s.preauthorization_required
		FROM member_policy mp
		JOIN insurance_policy p ON p.id = mp.policy_id AND p.is_active
		JOIN member_scheme ms ON ms.member_policy_id = mp.id AND ms.is_active
		JOIN insurance_scheme s ON s.id = ms.scheme_id AND s.is_active
		JOIN scheme_benefit sb ON sb.scheme_id = s.id AND sb.is_active
		WHERE mp.patient_id = $1 AND mp.is_active
			AND (sb.benefit_code = $2 OR lower(sb.benefit_category) = lower($3))
		ORDER BY sb.coverage_percentage DESC NULLS LAST, sb.coverage_amount DESC NULLS LAST`,
		patientID, serviceCode, serviceCategory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ServiceCoverageDetail
	for rows.Next() {
		var d ServiceCoverageDetail
		if err := rows.Scan(&d.SchemeID, &d.SchemeName, &d.BenefitName,
			&d.CoverageAmount, &d.CoveragePercentage, &d.IsPreauthorized, &d.SchemeRequiresPreauth); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, nil
}
