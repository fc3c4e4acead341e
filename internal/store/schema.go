package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SchemaManager applies the orgtrace schema: tables, indexes, the
// colleague_pairs materialized view, and the query functions. All DDL
// is idempotent (IF NOT EXISTS / OR REPLACE) and applied inside a
// single transaction, so Setup is safe to run on every startup.
type SchemaManager struct {
	db  Execer
	log *zap.Logger
}

// NewSchemaManager wraps an Execer (database/sql or pgxpool adapter).
func NewSchemaManager(db Execer, log *zap.Logger) *SchemaManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SchemaManager{db: db, log: log}
}

// Setup creates the schema if it does not exist.
func (m *SchemaManager) Setup(ctx context.Context) error {
	return m.db.Tx(ctx, func(tx Execer) error {
		return m.apply(ctx, tx)
	})
}

// Reset drops every orgtrace relation and recreates the schema.
func (m *SchemaManager) Reset(ctx context.Context) error {
	return m.db.Tx(ctx, func(tx Execer) error {
		if err := m.drop(ctx, tx); err != nil {
			return err
		}
		return m.apply(ctx, tx)
	})
}

// RefreshColleaguePairs rebuilds the colleague_pairs materialized view.
// Call after bulk ingest; the view is not auto-maintained.
func (m *SchemaManager) RefreshColleaguePairs(ctx context.Context) error {
	if err := m.db.ExecContext(ctx, "SELECT refresh_colleague_pairs()"); err != nil {
		return fmt.Errorf("refresh colleague_pairs: %w", err)
	}
	m.log.Debug("colleague_pairs refreshed")
	return nil
}

func (m *SchemaManager) apply(ctx context.Context, tx Execer) error {
	steps := []struct {
		what  string
		stmts []string
	}{
		{"extensions", extensionDDL},
		{"tables", tableDDL},
		{"indexes", indexDDL},
		{"materialized views", matviewDDL},
		{"functions", functionDDL},
	}
	for _, step := range steps {
		for _, stmt := range step.stmts {
			if err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("creating %s: %w", step.what, err)
			}
		}
		m.log.Debug("schema step applied", zap.String("step", step.what))
	}
	return nil
}

func (m *SchemaManager) drop(ctx context.Context, tx Execer) error {
	drops := []string{
		"DROP MATERIALIZED VIEW IF EXISTS colleague_pairs",
		"DROP TABLE IF EXISTS employment CASCADE",
		"DROP TABLE IF EXISTS people CASCADE",
		"DROP TABLE IF EXISTS organizations CASCADE",
	}
	for _, stmt := range drops {
		if err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dropping schema: %w", err)
		}
	}
	m.log.Info("schema dropped")
	return nil
}

var extensionDDL = []string{
	"CREATE EXTENSION IF NOT EXISTS btree_gist",
	"CREATE EXTENSION IF NOT EXISTS pg_trgm",
}

var tableDDL = []string{
	`CREATE TABLE IF NOT EXISTS people (
		id SERIAL PRIMARY KEY,
		name VARCHAR(500) NOT NULL,
		clean_name VARCHAR(500) NOT NULL,
		tel VARCHAR(50),
		email VARCHAR(320),
		disambiguation_key INTEGER NOT NULL DEFAULT 1,
		metadata JSONB DEFAULT '{}',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS organizations (
		id SERIAL PRIMARY KEY,
		name VARCHAR(1000) NOT NULL,
		department VARCHAR(500),
		url VARCHAR(1000) UNIQUE,
		parent_org_id INTEGER REFERENCES organizations(id) ON DELETE SET NULL,
		metadata JSONB DEFAULT '{}',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS employment (
		id SERIAL PRIMARY KEY,
		person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
		org_id INTEGER NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		rank VARCHAR(500),
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		tenure_days INTEGER,
		raw_name VARCHAR(500),
		metadata JSONB DEFAULT '{}',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,

		CONSTRAINT valid_date_range CHECK (start_date <= end_date)
	)`,

	// NULL ranks must still collide, hence COALESCE in the key.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_employment_exact_duplicate
		ON employment (person_id, org_id, COALESCE(rank, ''), start_date, end_date)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_people_unique_person
		ON people (name, disambiguation_key)`,
}

var indexDDL = []string{
	"CREATE INDEX IF NOT EXISTS idx_people_name ON people(name)",
	"CREATE INDEX IF NOT EXISTS idx_people_clean_name ON people(clean_name)",
	"CREATE INDEX IF NOT EXISTS idx_people_tel ON people(tel) WHERE tel IS NOT NULL",
	"CREATE INDEX IF NOT EXISTS idx_people_name_trgm ON people USING gin(name gin_trgm_ops)",

	"CREATE INDEX IF NOT EXISTS idx_org_name ON organizations(name)",
	"CREATE INDEX IF NOT EXISTS idx_org_name_trgm ON organizations USING gin(name gin_trgm_ops)",
	"CREATE INDEX IF NOT EXISTS idx_org_parent_org_id ON organizations(parent_org_id)",

	"CREATE INDEX IF NOT EXISTS idx_employment_person ON employment(person_id)",
	"CREATE INDEX IF NOT EXISTS idx_employment_org ON employment(org_id)",
	"CREATE INDEX IF NOT EXISTS idx_employment_dates ON employment(start_date, end_date)",
	"CREATE INDEX IF NOT EXISTS idx_employment_person_dates ON employment(person_id, start_date, end_date)",
	"CREATE INDEX IF NOT EXISTS idx_employment_org_dates ON employment(org_id, start_date, end_date)",
	"CREATE INDEX IF NOT EXISTS idx_employment_daterange ON employment USING gist(daterange(start_date, end_date, '[]'))",
	"CREATE INDEX IF NOT EXISTS idx_employment_colleague_lookup ON employment(org_id, start_date, end_date, person_id)",
}

var matviewDDL = []string{
	`CREATE MATERIALIZED VIEW IF NOT EXISTS colleague_pairs AS
	WITH overlapping_employments AS (
		SELECT
			e1.person_id AS person1_id,
			e2.person_id AS person2_id,
			e1.org_id,
			GREATEST(e1.start_date, e2.start_date) AS overlap_start,
			LEAST(e1.end_date, e2.end_date) AS overlap_end,
			LEAST(e1.end_date, e2.end_date) - GREATEST(e1.start_date, e2.start_date) + 1 AS overlap_days
		FROM employment e1
		JOIN employment e2 ON e1.org_id = e2.org_id
		WHERE e1.person_id != e2.person_id
		AND e1.start_date <= e2.end_date
		AND e2.start_date <= e1.end_date
	)
	SELECT
		p1.name AS person1_name,
		p2.name AS person2_name,
		o.name AS organization,
		oe.overlap_start,
		oe.overlap_end,
		oe.overlap_days
	FROM overlapping_employments oe
	JOIN people p1 ON oe.person1_id = p1.id
	JOIN people p2 ON oe.person2_id = p2.id
	JOIN organizations o ON oe.org_id = o.id
	WHERE oe.overlap_days > 0`,

	"CREATE INDEX IF NOT EXISTS idx_colleague_pairs_person1 ON colleague_pairs(person1_name)",
	"CREATE INDEX IF NOT EXISTS idx_colleague_pairs_person2 ON colleague_pairs(person2_name)",
	"CREATE INDEX IF NOT EXISTS idx_colleague_pairs_org ON colleague_pairs(organization)",
}

var functionDDL = []string{
	`CREATE OR REPLACE FUNCTION refresh_colleague_pairs()
	RETURNS void AS $$
	BEGIN
		REFRESH MATERIALIZED VIEW colleague_pairs;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION find_colleagues_at_date(
		p_person_name VARCHAR(500),
		p_target_date DATE
	)
	RETURNS TABLE(
		colleague_name VARCHAR(500),
		organization VARCHAR(1000),
		colleague_rank VARCHAR(500),
		start_date DATE,
		end_date DATE,
		overlap_days INTEGER
	) AS $$
	BEGIN
		RETURN QUERY
		WITH person_orgs AS (
			SELECT DISTINCT e.org_id, o.name AS org_name
			FROM employment e
			JOIN people p ON e.person_id = p.id
			JOIN organizations o ON e.org_id = o.id
			WHERE p.name = p_person_name
			AND p_target_date BETWEEN e.start_date AND e.end_date
		)
		SELECT DISTINCT
			p2.name::VARCHAR(500) AS colleague_name,
			po.org_name::VARCHAR(1000) AS organization,
			e2.rank::VARCHAR(500) AS colleague_rank,
			e2.start_date,
			e2.end_date,
			(LEAST(e2.end_date, p_target_date) - GREATEST(e2.start_date, p_target_date) + 1)::INTEGER AS overlap_days
		FROM employment e2
		JOIN people p2 ON e2.person_id = p2.id
		JOIN person_orgs po ON e2.org_id = po.org_id
		WHERE p2.name != p_person_name
		AND p_target_date BETWEEN e2.start_date AND e2.end_date
		ORDER BY colleague_name;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION find_all_colleagues(
		p_person_name VARCHAR(500)
	)
	RETURNS TABLE(
		colleague_name VARCHAR(500),
		organization VARCHAR(1000),
		colleague_rank VARCHAR(500),
		colleague_start_date DATE,
		colleague_end_date DATE,
		person_start_date DATE,
		person_end_date DATE,
		overlap_start_date DATE,
		overlap_end_date DATE,
		overlap_days INTEGER
	) AS $$
	BEGIN
		RETURN QUERY
		WITH person_employments AS (
			SELECT e.org_id, e.start_date, e.end_date, o.name AS org_name
			FROM employment e
			JOIN people p ON e.person_id = p.id
			JOIN organizations o ON e.org_id = o.id
			WHERE p.name = p_person_name
		),
		colleague_overlaps AS (
			SELECT DISTINCT
				p2.name AS colleague_name,
				pe.org_name AS organization,
				e2.rank AS colleague_rank,
				e2.start_date AS colleague_start_date,
				e2.end_date AS colleague_end_date,
				pe.start_date AS person_start_date,
				pe.end_date AS person_end_date,
				GREATEST(e2.start_date, pe.start_date) AS overlap_start,
				LEAST(e2.end_date, pe.end_date) AS overlap_end
			FROM employment e2
			JOIN people p2 ON e2.person_id = p2.id
			JOIN person_employments pe ON e2.org_id = pe.org_id
			WHERE p2.name != p_person_name
			AND e2.start_date <= pe.end_date
			AND e2.end_date >= pe.start_date
		)
		SELECT
			co.colleague_name::VARCHAR(500),
			co.organization::VARCHAR(1000),
			co.colleague_rank::VARCHAR(500),
			co.colleague_start_date,
			co.colleague_end_date,
			co.person_start_date,
			co.person_end_date,
			co.overlap_start AS overlap_start_date,
			co.overlap_end AS overlap_end_date,
			(co.overlap_end - co.overlap_start + 1)::INTEGER AS overlap_days
		FROM colleague_overlaps co
		WHERE co.overlap_start <= co.overlap_end
		ORDER BY co.colleague_name, co.organization, co.overlap_start;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION find_organizations_by_depth(
		p_depth INTEGER
	)
	RETURNS TABLE(
		id INTEGER,
		name VARCHAR(1000),
		department VARCHAR(500),
		url VARCHAR(1000),
		parent_org_id INTEGER,
		metadata JSONB
	) AS $$
	BEGIN
		RETURN QUERY
		SELECT
			o.id,
			o.name,
			o.department,
			o.url,
			o.parent_org_id,
			o.metadata
		FROM organizations o
		WHERE
			o.metadata ? 'parts' AND
			jsonb_typeof(o.metadata->'parts') = 'array' AND
			jsonb_array_length(o.metadata->'parts') = p_depth
		ORDER BY o.name;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION get_org_descendants_diff(
		p_parent_org_id INT,
		p_start_date TEXT,
		p_end_date TEXT
	)
	RETURNS TABLE(
		org_id INT,
		name TEXT,
		status TEXT,
		details JSONB
	)
	LANGUAGE sql AS $$
	WITH RECURSIVE org_hierarchy AS (
		SELECT * FROM organizations WHERE id = p_parent_org_id
		UNION ALL
		SELECT o.* FROM organizations o
		JOIN org_hierarchy h ON o.parent_org_id = h.id
	),
	start_state AS (
		SELECT id, name, metadata FROM org_hierarchy
		WHERE
			id != p_parent_org_id
			AND p_start_date::date >= COALESCE((metadata->>'first_observed')::date, '1900-01-01'::date)
			AND p_start_date::date <= COALESCE((metadata->>'last_observed')::date, '9999-12-31'::date)
	),
	end_state AS (
		SELECT id, name, metadata FROM org_hierarchy
		WHERE
			id != p_parent_org_id
			AND p_end_date::date >= COALESCE((metadata->>'first_observed')::date, '1900-01-01'::date)
			AND p_end_date::date <= COALESCE((metadata->>'last_observed')::date, '9999-12-31'::date)
	)
	SELECT
		COALESCE(s.id, e.id) AS org_id,
		COALESCE(e.name, s.name) AS name,
		CASE
			WHEN s.id IS NULL THEN 'added'
			WHEN e.id IS NULL THEN 'removed'
			ELSE 'unchanged'
		END::TEXT AS status,
		e.metadata AS details
	FROM start_state s
	FULL OUTER JOIN end_state e ON s.id = e.id;
	$$`,
}
