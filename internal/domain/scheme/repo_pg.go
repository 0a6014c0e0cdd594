package scheme

import (
	"context"
	"errors"

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

// ErrDuplicateMapping is returned when an insert collides with the
// partial unique index on active coverage mappings.
var ErrDuplicateMapping = errors.New("active coverage mapping already exists")

// -- Scheme PG Repo --

type schemeRepoPG struct{ pool *pgxpool.Pool }

func NewSchemeRepoPG(pool *pgxpool.Pool) SchemeRepository {
	return &schemeRepoPG{pool: pool}
}

func (r *schemeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const schemeCols = `id, policy_id, scheme_name, scheme_code, benefit_category,
	annual_limit, per_visit_limit, preauthorization_required, is_active, created_at, updated_at`

func scanScheme(row pgx.Row) (*Scheme, error) {
	var s Scheme
	err := row.Scan(&s.ID, &s.PolicyID, &s.SchemeName, &s.SchemeCode, &s.BenefitCategory,
		&s.AnnualLimit, &s.PerVisitLimit, &s.PreauthorizationRequired, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *schemeRepoPG) Create(ctx context.Context, s *Scheme) error {
	s.ID = uuid.New()
	s.IsActive = true
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO insurance_scheme (id, policy_id, scheme_name, scheme_code, benefit_category,
			annual_limit, per_visit_limit, preauthorization_required)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		s.ID, s.PolicyID, s.SchemeName, s.SchemeCode, s.BenefitCategory,
		s.AnnualLimit, s.PerVisitLimit, s.PreauthorizationRequired).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *schemeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Scheme, error) {
	return scanScheme(r.conn(ctx).QueryRow(ctx, `SELECT `+schemeCols+` FROM insurance_scheme WHERE id = $1`, id))
}

func (r *schemeRepoPG) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*Scheme, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+schemeCols+` FROM insurance_scheme
		WHERE policy_id = $1 AND is_active ORDER BY scheme_name`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Scheme
	for rows.Next() {
		s, err := scanScheme(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

func (r *schemeRepoPG) Update(ctx context.Context, s *Scheme) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_scheme SET scheme_name=$2, scheme_code=$3, benefit_category=$4,
			annual_limit=$5, per_visit_limit=$6, preauthorization_required=$7, is_active=$8, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.SchemeName, s.SchemeCode, s.BenefitCategory,
		s.AnnualLimit, s.PerVisitLimit, s.PreauthorizationRequired, s.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// -- SchemeBenefit PG Repo --

type benefitRepoPG struct{ pool *pgxpool.Pool }

func NewBenefitRepoPG(pool *pgxpool.Pool) BenefitRepository {
	return &benefitRepoPG{pool: pool}
}

func (r *benefitRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const benefitCols = `id, scheme_id, benefit_category, benefit_name, benefit_code,
	coverage_amount, coverage_percentage, session_limit, frequency_limit,
	is_preauthorized, is_active, created_at, updated_at`

func (r *benefitRepoPG) CreateBatch(ctx context.Context, benefits []*SchemeBenefit) error {
	for _, b := range benefits {
		b.ID = uuid.New()
		b.IsActive = true
		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO scheme_benefit (id, scheme_id, benefit_category, benefit_name, benefit_code,
				coverage_amount, coverage_percentage, session_limit, frequency_limit, is_preauthorized)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at`,
			b.ID, b.SchemeID, b.BenefitCategory, b.BenefitName, b.BenefitCode,
			b.CoverageAmount, b.CoveragePercentage, b.SessionLimit, b.FrequencyLimit, b.IsPreauthorized).
			Scan(&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *benefitRepoPG) ListByScheme(ctx context.Context, schemeID uuid.UUID) ([]*SchemeBenefit, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+benefitCols+` FROM scheme_benefit
		WHERE scheme_id = $1 AND is_active ORDER BY benefit_name`, schemeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*SchemeBenefit
	for rows.Next() {
		var b SchemeBenefit
		if err := rows.Scan(&b.ID, &b.SchemeID, &b.BenefitCategory, &b.BenefitName, &b.BenefitCode,
			&b.CoverageAmount, &b.CoveragePercentage, &b.SessionLimit, &b.FrequencyLimit,
			&b.IsPreauthorized, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &b)
	}
	return items, nil
}

// -- CoverageMapping PG Repo --

type mappingRepoPG struct{ pool *pgxpool.Pool }

func NewMappingRepoPG(pool *pgxpool.Pool) MappingRepository {
	return &mappingRepoPG{pool: pool}
}

func (r *mappingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *mappingRepoPG) Create(ctx context.Context, m *CoverageMapping) error {
	m.ID = uuid.New()
	m.IsActive = true
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO coverage_mapping (id, scheme_id, code_type, code, coverage_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		m.ID, m.SchemeID, m.CodeType, m.Code, m.CoverageType).Scan(&m.CreatedAt, &m.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateMapping
	}
	return err
}

func (r *mappingRepoPG) FindActive(ctx context.Context, schemeID uuid.UUID, codeType, code string) ([]*CoverageMapping, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, scheme_id, code_type, code, coverage_type, is_active, created_at, updated_at
		FROM coverage_mapping
		WHERE scheme_id = $1 AND code_type = $2 AND code = $3 AND is_active
		ORDER BY created_at DESC`, schemeID, codeType, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*CoverageMapping
	for rows.Next() {
		var m CoverageMapping
		if err := rows.Scan(&m.ID, &m.SchemeID, &m.CodeType, &m.Code, &m.CoverageType, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, nil
}
