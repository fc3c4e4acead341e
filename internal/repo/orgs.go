package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/store"
)

const orgColumns = `id, name, department, url, parent_org_id, metadata, created_at, updated_at`

// Orgs is the repository for the organizations table.
type Orgs struct {
	q   store.Querier
	log *zap.Logger
}

func NewOrgs(q store.Querier, log *zap.Logger) *Orgs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orgs{q: q, log: log}
}

// WithQuerier returns a copy bound to q, typically a transaction.
func (r *Orgs) WithQuerier(q store.Querier) *Orgs {
	return &Orgs{q: q, log: r.log}
}

// OrgParams are the writable organization fields.
type OrgParams struct {
	Name        string
	Department  *string
	URL         *string
	ParentOrgID *int
	Attrs       Attrs
}

// Upsert inserts an organization or, when the URL is already known,
// fills missing fields and merges metadata. Rows without a URL are
// plain inserts; nothing identifies them across runs.
func (r *Orgs) Upsert(ctx context.Context, o OrgParams) (int, error) {
	meta, err := o.Attrs.jsonValue()
	if err != nil {
		return 0, fmt.Errorf("encode org metadata: %w", err)
	}

	var id int
	if o.URL == nil || *o.URL == "" {
		err = r.q.QueryRow(ctx, `
			INSERT INTO organizations (name, department, url, parent_org_id, metadata)
			VALUES ($1, $2, NULL, $3, $4)
			RETURNING id`,
			o.Name, o.Department, o.ParentOrgID, meta,
		).Scan(&id)
	} else {
		err = r.q.QueryRow(ctx, `
			INSERT INTO organizations (name, department, url, parent_org_id, metadata)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (url) DO UPDATE SET
				department = COALESCE(EXCLUDED.department, organizations.department),
				parent_org_id = COALESCE(EXCLUDED.parent_org_id, organizations.parent_org_id),
				metadata = organizations.metadata || EXCLUDED.metadata,
				updated_at = CURRENT_TIMESTAMP
			RETURNING id`,
			o.Name, o.Department, *o.URL, o.ParentOrgID, meta,
		).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("upsert org %q: %w", o.Name, err)
	}
	return id, nil
}

// ByID returns the organization with the given id, or ErrNotFound.
func (r *Orgs) ByID(ctx context.Context, id int) (*Org, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	o, err := scanOrg(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("organization %d: %w", id, store.ErrNotFound)
	}
	return o, err
}

// ByURL returns the organization with the given URL, or nil when none
// exists. Callers use the nil result to decide resolve-or-create.
func (r *Orgs) ByURL(ctx context.Context, url string) (*Org, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE url = $1`, url)
	o, err := scanOrg(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// ByName returns the first organization with the given name, or nil.
func (r *Orgs) ByName(ctx context.Context, name string) (*Org, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE name = $1 ORDER BY id LIMIT 1`, name)
	o, err := scanOrg(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

// Children lists the direct children of an organization.
func (r *Orgs) Children(ctx context.Context, parentID int) ([]Org, error) {
	return r.queryOrgs(ctx, `SELECT `+orgColumns+` FROM organizations WHERE parent_org_id = $1 ORDER BY name`, parentID)
}

// UpdateParent re-points an organization's parent link. Returns false
// when the organization does not exist.
func (r *Orgs) UpdateParent(ctx context.Context, orgID int, parentID *int) (bool, error) {
	var id int
	err := r.q.QueryRow(ctx, `
		UPDATE organizations
		SET parent_org_id = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING id`,
		parentID, orgID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update parent of org %d: %w", orgID, err)
	}
	return true, nil
}

// Ancestors walks parent links from the organization to the root and
// returns the chain root first, excluding the organization itself.
func (r *Orgs) Ancestors(ctx context.Context, orgID int) ([]Org, error) {
	return r.queryOrgs(ctx, `
		WITH RECURSIVE chain AS (
			SELECT o.*, 0 AS depth FROM organizations o WHERE o.id = $1
			UNION ALL
			SELECT o.*, c.depth + 1 FROM organizations o
			JOIN chain c ON o.id = c.parent_org_id
		)
		SELECT `+orgColumns+` FROM chain
		WHERE id != $1
		ORDER BY depth DESC`, orgID)
}

// Descendants returns the whole subtree under an organization,
// excluding the organization itself.
func (r *Orgs) Descendants(ctx context.Context, orgID int) ([]Org, error) {
	return r.queryOrgs(ctx, `
		WITH RECURSIVE org_hierarchy AS (
			SELECT * FROM organizations WHERE id = $1
			UNION ALL
			SELECT o.* FROM organizations o
			JOIN org_hierarchy h ON o.parent_org_id = h.id
		)
		SELECT `+orgColumns+` FROM org_hierarchy
		WHERE id != $1
		ORDER BY name`, orgID)
}

// DescendantsAtDate filters the subtree to organizations whose
// observed window covers the date. Units without observation metadata
// count as always active.
func (r *Orgs) DescendantsAtDate(ctx context.Context, orgID int, date time.Time) ([]Org, error) {
	return r.queryOrgs(ctx, `
		WITH RECURSIVE org_hierarchy AS (
			SELECT * FROM organizations WHERE id = $1
			UNION ALL
			SELECT o.* FROM organizations o
			JOIN org_hierarchy h ON o.parent_org_id = h.id
		)
		SELECT `+orgColumns+` FROM org_hierarchy
		WHERE id != $1
		AND $2::date >= COALESCE((metadata->>'first_observed')::date, '1900-01-01'::date)
		AND $2::date <= COALESCE((metadata->>'last_observed')::date, '9999-12-31'::date)
		ORDER BY name`, orgID, date)
}

// TimelineDates collects every first_observed and last_observed date
// in the subtree, ascending and distinct.
func (r *Orgs) TimelineDates(ctx context.Context, orgID int) ([]time.Time, error) {
	rows, err := r.q.Query(ctx, `
		WITH RECURSIVE org_hierarchy AS (
			SELECT id, metadata FROM organizations WHERE id = $1
			UNION ALL
			SELECT o.id, o.metadata FROM organizations o
			JOIN org_hierarchy h ON o.parent_org_id = h.id
		)
		SELECT DISTINCT d FROM (
			SELECT (metadata->>'first_observed')::date AS d
			FROM org_hierarchy WHERE metadata ? 'first_observed'
			UNION
			SELECT (metadata->>'last_observed')::date
			FROM org_hierarchy WHERE metadata ? 'last_observed'
		) dates
		WHERE d IS NOT NULL
		ORDER BY d`, orgID)
	if err != nil {
		return nil, fmt.Errorf("timeline dates for org %d: %w", orgID, err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan timeline date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DescendantsDiff compares the active subtree at two dates via the
// get_org_descendants_diff function.
func (r *Orgs) DescendantsDiff(ctx context.Context, orgID int, start, end time.Time) ([]DescendantDiff, error) {
	rows, err := r.q.Query(ctx,
		`SELECT org_id, name, status, details FROM get_org_descendants_diff($1, $2, $3)`,
		orgID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("descendants diff for org %d: %w", orgID, err)
	}
	defer rows.Close()

	var out []DescendantDiff
	for rows.Next() {
		var d DescendantDiff
		var details []byte
		if err := rows.Scan(&d.OrgID, &d.Name, &d.Status, &details); err != nil {
			return nil, fmt.Errorf("scan descendants diff: %w", err)
		}
		d.Details = scanAttrs(details)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ByDepth lists organizations at a hierarchy depth via
// find_organizations_by_depth. Depth counts path parts, 1 is top
// level.
func (r *Orgs) ByDepth(ctx context.Context, depth int) ([]Org, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, name, department, url, parent_org_id, metadata FROM find_organizations_by_depth($1)`,
		depth)
	if err != nil {
		return nil, fmt.Errorf("organizations at depth %d: %w", depth, err)
	}
	defer rows.Close()

	var out []Org
	for rows.Next() {
		var o Org
		var meta []byte
		if err := rows.Scan(&o.ID, &o.Name, &o.Department, &o.URL, &o.ParentOrgID, &meta); err != nil {
			return nil, fmt.Errorf("scan org: %w", err)
		}
		o.Attrs = scanAttrs(meta)
		out = append(out, o)
	}
	return out, rows.Err()
}

// HierarchyEdge is the minimal projection used by graph building.
type HierarchyEdge struct {
	ID          int
	Name        string
	ParentOrgID *int
}

// Hierarchy returns every organization's id, name, and parent link.
func (r *Orgs) Hierarchy(ctx context.Context) ([]HierarchyEdge, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, parent_org_id FROM organizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("org hierarchy: %w", err)
	}
	defer rows.Close()

	var out []HierarchyEdge
	for rows.Next() {
		var h HierarchyEdge
		if err := rows.Scan(&h.ID, &h.Name, &h.ParentOrgID); err != nil {
			return nil, fmt.Errorf("scan hierarchy edge: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Count returns the number of organizations.
func (r *Orgs) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count organizations: %w", err)
	}
	return n, nil
}

func (r *Orgs) queryOrgs(ctx context.Context, sql string, args ...any) ([]Org, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	var out []Org
	for rows.Next() {
		var o Org
		var meta []byte
		err := rows.Scan(&o.ID, &o.Name, &o.Department, &o.URL, &o.ParentOrgID,
			&meta, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan org: %w", err)
		}
		o.Attrs = scanAttrs(meta)
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrg(row pgx.Row) (*Org, error) {
	var o Org
	var meta []byte
	err := row.Scan(&o.ID, &o.Name, &o.Department, &o.URL, &o.ParentOrgID,
		&meta, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Attrs = scanAttrs(meta)
	return &o, nil
}
