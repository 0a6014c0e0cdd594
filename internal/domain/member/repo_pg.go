package member

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erless/coverage/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// -- MemberPolicy PG Repo --

type memberPolicyRepoPG struct{ pool *pgxpool.Pool }

func NewMemberPolicyRepoPG(pool *pgxpool.Pool) MemberPolicyRepository {
	return &memberPolicyRepoPG{pool: pool}
}

func (r *memberPolicyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *memberPolicyRepoPG) Create(ctx context.Context, mp *MemberPolicy) error {
	mp.ID = uuid.New()
	mp.IsActive = true
	if mp.MemberType == "" {
		mp.MemberType = "primary"
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO member_policy (id, patient_id, policy_id, member_number, member_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		mp.ID, mp.PatientID, mp.PolicyID, mp.MemberNumber, mp.MemberType).Scan(&mp.CreatedAt, &mp.UpdatedAt)
}

func (r *memberPolicyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MemberPolicy, error) {
	var mp MemberPolicy
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, policy_id, member_number, member_type, is_active, created_at, updated_at
		FROM member_policy WHERE id = $1`, id).
		Scan(&mp.ID, &mp.PatientID, &mp.PolicyID, &mp.MemberNumber, &mp.MemberType, &mp.IsActive, &mp.CreatedAt, &mp.UpdatedAt)
	return &mp, err
}

func (r *memberPolicyRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MemberPolicyDetail, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT mp.id, mp.patient_id, mp.policy_id, mp.member_number, mp.member_type,
			mp.is_active, mp.created_at, mp.updated_at,
			p.policy_number, p.name, i.name
		FROM member_policy mp
		JOIN insurance_policy p ON p.id = mp.policy_id
		JOIN insurer i ON i.id = p.insurer_id
		WHERE mp.patient_id = $1 AND mp.is_active AND p.is_active
		ORDER BY mp.created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MemberPolicyDetail
	for rows.Next() {
		var d MemberPolicyDetail
		if err := rows.Scan(&d.ID, &d.PatientID, &d.PolicyID, &d.MemberNumber, &d.MemberType,
			&d.IsActive, &d.CreatedAt, &d.UpdatedAt,
			&d.PolicyNumber, &d.PolicyName, &d.InsurerName); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, nil
}

// -- MemberScheme PG Repo --

type memberSchemeRepoPG struct{ pool *pgxpool.Pool }

func NewMemberSchemeRepoPG(pool *pgxpool.Pool) MemberSchemeRepository {
	return &memberSchemeRepoPG{pool: pool}
}

func (r *memberSchemeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *memberSchemeRepoPG) Create(ctx context.Context, ms *MemberScheme) error {
	ms.ID = uuid.New()
	ms.IsActive = true
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO member_scheme (id, member_policy_id, scheme_id)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		ms.ID, ms.MemberPolicyID, ms.SchemeID).Scan(&ms.CreatedAt, &ms.UpdatedAt)
}

func (r *memberSchemeRepoPG) ListByMemberPolicy(ctx context.Context, memberPolicyID uuid.UUID) ([]*MemberScheme, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, member_policy_id, scheme_id, is_active, created_at, updated_at
		FROM member_scheme WHERE member_policy_id = $1 AND is_active`, memberPolicyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MemberScheme
	for rows.Next() {
		var ms MemberScheme
		if err := rows.Scan(&ms.ID, &ms.MemberPolicyID, &ms.SchemeID, &ms.IsActive, &ms.CreatedAt, &ms.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &ms)
	}
	return items, nil
}

// -- Benefit summary PG Repo --

type summaryRepoPG struct{ pool *pgxpool.Pool }

func NewSummaryRepoPG(pool *pgxpool.Pool) SummaryRepository {
	return &summaryRepoPG{pool: pool}
}

func (r *summaryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *summaryRepoPG) BenefitSummary(ctx context.Context, patientID uuid.UUID, financialYear string) ([]*BenefitSummaryRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT mp.id, s.id, s.scheme_name, s.annual_limit,
			COALESCE(SUM(bu.amount_utilized), 0) AS total_utilized
		FROM member_policy mp
		JOIN member_scheme ms ON ms.member_policy_id = mp.id AND ms.is_active
		JOIN insurance_scheme s ON s.id = ms.scheme_id AND s.is_active
		LEFT JOIN benefit_utilization bu
			ON bu.member_policy_id = mp.id AND bu.scheme_id = s.id AND bu.financial_year = $2
		WHERE mp.patient_id = $1 AND mp.is_active
		GROUP BY mp.id, s.id, s.scheme_name, s.annual_limit
		ORDER BY s.scheme_name`, patientID, financialYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BenefitSummaryRow
	for rows.Next() {
		row := &BenefitSummaryRow{FinancialYear: financialYear}
		if err := rows.Scan(&row.MemberPolicyID, &row.SchemeID, &row.SchemeName, &row.AnnualLimit, &row.TotalUtilized); err != nil {
			return nil, err
		}
		row.Remaining = row.AnnualLimit.Sub(row.TotalUtilized)
		items = append(items, row)
	}
	return items, nil
}
