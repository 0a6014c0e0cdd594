package insurer

import (
	"context"
	"encoding/json"

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

// -- Insurer PG Repo --

type insurerRepoPG struct{ pool *pgxpool.Pool }

func NewInsurerRepoPG(pool *pgxpool.Pool) InsurerRepository {
	return &insurerRepoPG{pool: pool}
}

func (r *insurerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const insurerCols = `id, name, code, is_active, created_at, updated_at`

func (r *insurerRepoPG) scanRow(row pgx.Row) (*Insurer, error) {
	var i Insurer
	err := row.Scan(&i.ID, &i.Name, &i.Code, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return &i, err
}

func (r *insurerRepoPG) Create(ctx context.Context, i *Insurer) error {
	i.ID = uuid.New()
	i.IsActive = true
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO insurer (id, name, code)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		i.ID, i.Name, i.Code).Scan(&i.CreatedAt, &i.UpdatedAt)
}

func (r *insurerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Insurer, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+insurerCols+` FROM insurer WHERE id = $1`, id))
}

func (r *insurerRepoPG) List(ctx context.Context, limit, offset int) ([]*Insurer, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM insurer`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+insurerCols+` FROM insurer ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Insurer
	for rows.Next() {
		i, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, i)
	}
	return items, total, nil
}

func (r *insurerRepoPG) Update(ctx context.Context, i *Insurer) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurer SET name=$2, code=$3, is_active=$4, updated_at=NOW()
		WHERE id = $1`,
		i.ID, i.Name, i.Code, i.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *insurerRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE insurer SET is_active=FALSE, updated_at=NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// -- Policy PG Repo --

type policyRepoPG struct{ pool *pgxpool.Pool }

func NewPolicyRepoPG(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepoPG{pool: pool}
}

func (r *policyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const policyCols = `id, insurer_id, policy_number, name, effective_date, is_active, created_at, updated_at`

func (r *policyRepoPG) scanRow(row pgx.Row) (*Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.InsurerID, &p.PolicyNumber, &p.Name, &p.EffectiveDate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *policyRepoPG) Create(ctx context.Context, p *Policy) error {
	p.ID = uuid.New()
	p.IsActive = true
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO insurance_policy (id, insurer_id, policy_number, name, effective_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		p.ID, p.InsurerID, p.PolicyNumber, p.Name, p.EffectiveDate).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *policyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+policyCols+` FROM insurance_policy WHERE id = $1`, id))
}

func (r *policyRepoPG) ListByInsurer(ctx context.Context, insurerID uuid.UUID, limit, offset int) ([]*Policy, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM insurance_policy WHERE insurer_id = $1`, insurerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+policyCols+` FROM insurance_policy
		WHERE insurer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		insurerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Policy
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *policyRepoPG) Update(ctx context.Context, p *Policy) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_policy SET policy_number=$2, name=$3, effective_date=$4, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.PolicyNumber, p.Name, p.EffectiveDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *policyRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE insurance_policy SET is_active=FALSE, updated_at=NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// -- PolicyHistory PG Repo --

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *historyRepoPG) Create(ctx context.Context, h *PolicyHistory) error {
	h.ID = uuid.New()
	prev, err := marshalSnapshot(h.PreviousValues)
	if err != nil {
		return err
	}
	next, err := marshalSnapshot(h.NewValues)
	if err != nil {
		return err
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO policy_history (id, policy_id, change_type, change_description, previous_values, new_values, effective_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		h.ID, h.PolicyID, h.ChangeType, h.ChangeDescription, prev, next, h.EffectiveDate).Scan(&h.CreatedAt)
}

func (r *historyRepoPG) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*PolicyHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, policy_id, change_type, change_description, previous_values, new_values, effective_date, created_at
		FROM policy_history WHERE policy_id = $1 ORDER BY created_at DESC`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PolicyHistory
	for rows.Next() {
		var h PolicyHistory
		var prev, next []byte
		if err := rows.Scan(&h.ID, &h.PolicyID, &h.ChangeType, &h.ChangeDescription, &prev, &next, &h.EffectiveDate, &h.CreatedAt); err != nil {
			return nil, err
		}
		if h.PreviousValues, err = unmarshalSnapshot(prev); err != nil {
			return nil, err
		}
		if h.NewValues, err = unmarshalSnapshot(next); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, nil
}

func marshalSnapshot(s *PolicySnapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func unmarshalSnapshot(raw []byte) (*PolicySnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s PolicySnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// -- PolicyExclusion PG Repo --

type exclusionRepoPG struct{ pool *pgxpool.Pool }

func NewExclusionRepoPG(pool *pgxpool.Pool) ExclusionRepository {
	return &exclusionRepoPG{pool: pool}
}

func (r *exclusionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *exclusionRepoPG) Create(ctx context.Context, e *PolicyExclusion) error {
	e.ID = uuid.New()
	e.IsActive = true
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO policy_exclusion (id, policy_id, excluded_condition, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		e.ID, e.PolicyID, e.ExcludedCondition, e.Description).Scan(&e.CreatedAt, &e.UpdatedAt)
}

func (r *exclusionRepoPG) ListByPolicy(ctx context.Context, policyID uuid.UUID) ([]*PolicyExclusion, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, policy_id, excluded_condition, description, is_active, created_at, updated_at
		FROM policy_exclusion WHERE policy_id = $1 AND is_active ORDER BY created_at DESC`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PolicyExclusion
	for rows.Next() {
		var e PolicyExclusion
		if err := rows.Scan(&e.ID, &e.PolicyID, &e.ExcludedCondition, &e.Description, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, nil
}
