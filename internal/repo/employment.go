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

// Employments is the repository for the employment table and the
// colleague query functions built on it.
type Employments struct {
	q   store.Querier
	log *zap.Logger
}

func NewEmployments(q store.Querier, log *zap.Logger) *Employments {
	if log == nil {
		log = zap.NewNop()
	}
	return &Employments{q: q, log: log}
}

// WithQuerier returns a copy bound to q, typically a transaction.
func (r *Employments) WithQuerier(q store.Querier) *Employments {
	return &Employments{q: q, log: r.log}
}

// EmploymentParams are the writable employment fields.
type EmploymentParams struct {
	PersonID   int
	OrgID      int
	Rank       *string
	StartDate  time.Time
	EndDate    time.Time
	TenureDays *int
	RawName    *string
	Attrs      Attrs
}

// Upsert inserts an employment record. On an exact duplicate of
// (person, unit, rank, interval) it refreshes tenure, raw name, and
// merges metadata instead. The conflict target must match
// idx_employment_exact_duplicate, cast included.
func (r *Employments) Upsert(ctx context.Context, e EmploymentParams) (int, error) {
	meta, err := e.Attrs.jsonValue()
	if err != nil {
		return 0, fmt.Errorf("encode employment metadata: %w", err)
	}

	var id int
	err = r.q.QueryRow(ctx, `
		INSERT INTO employment (
			person_id, org_id, rank, start_date, end_date,
			tenure_days, raw_name, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (person_id, org_id, (COALESCE(rank, ''::character varying)), start_date, end_date)
		DO UPDATE SET
			tenure_days = COALESCE(EXCLUDED.tenure_days, employment.tenure_days),
			raw_name = COALESCE(EXCLUDED.raw_name, employment.raw_name),
			metadata = employment.metadata || EXCLUDED.metadata
		RETURNING id`,
		e.PersonID, e.OrgID, e.Rank, e.StartDate, e.EndDate,
		e.TenureDays, e.RawName, meta,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert employment person=%d org=%d: %w", e.PersonID, e.OrgID, err)
	}
	return id, nil
}

// ByID returns one employment record joined with its person and
// organization names, or ErrNotFound.
func (r *Employments) ByID(ctx context.Context, id int) (*EmploymentDetail, error) {
	var d EmploymentDetail
	var meta []byte
	err := r.q.QueryRow(ctx, `
		SELECT e.id, e.person_id, e.org_id, e.rank, e.start_date, e.end_date,
			e.tenure_days, e.raw_name, e.metadata, e.created_at,
			p.name, o.name
		FROM employment e
		JOIN people p ON e.person_id = p.id
		JOIN organizations o ON e.org_id = o.id
		WHERE e.id = $1`, id,
	).Scan(&d.ID, &d.PersonID, &d.OrgID, &d.Rank, &d.StartDate, &d.EndDate,
		&d.TenureDays, &d.RawName, &meta, &d.CreatedAt,
		&d.PersonName, &d.OrgName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("employment %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("employment %d: %w", id, err)
	}
	d.Attrs = scanAttrs(meta)
	return &d, nil
}

// ByPersonID lists a person's employment records ordered by start
// date.
func (r *Employments) ByPersonID(ctx context.Context, personID, limit int) ([]Employment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, person_id, org_id, rank, start_date, end_date,
			tenure_days, raw_name, metadata, created_at
		FROM employment
		WHERE person_id = $1
		ORDER BY start_date
		LIMIT $2`, personID, limit)
	if err != nil {
		return nil, fmt.Errorf("employment for person %d: %w", personID, err)
	}
	defer rows.Close()

	var out []Employment
	for rows.Next() {
		var e Employment
		var meta []byte
		err := rows.Scan(&e.ID, &e.PersonID, &e.OrgID, &e.Rank, &e.StartDate,
			&e.EndDate, &e.TenureDays, &e.RawName, &meta, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan employment: %w", err)
		}
		e.Attrs = scanAttrs(meta)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MostRecentByPersonID returns the record with the latest start date,
// or nil when the person has none.
func (r *Employments) MostRecentByPersonID(ctx context.Context, personID int) (*Employment, error) {
	recs, err := r.ByPersonID(ctx, personID, 1000)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	most := recs[0]
	for _, rec := range recs[1:] {
		if rec.StartDate.After(most.StartDate) {
			most = rec
		}
	}
	return &most, nil
}

// Snapshot lists every employment edge active on the date.
func (r *Employments) Snapshot(ctx context.Context, date time.Time) ([]SnapshotRow, error) {
	return r.querySnapshot(ctx, `
		SELECT p.id, p.name, o.id, o.name, e.rank, e.start_date, e.end_date
		FROM employment e
		JOIN people p ON e.person_id = p.id
		JOIN organizations o ON e.org_id = o.id
		WHERE $1::date BETWEEN e.start_date AND e.end_date`, date)
}

// AllHistory lists every employment edge across all time: the input
// of full-graph building.
func (r *Employments) AllHistory(ctx context.Context) ([]SnapshotRow, error) {
	return r.querySnapshot(ctx, `
		SELECT p.id, p.name, o.id, o.name, e.rank, e.start_date, e.end_date
		FROM employment e
		JOIN people p ON e.person_id = p.id
		JOIN organizations o ON e.org_id = o.id`)
}

func (r *Employments) querySnapshot(ctx context.Context, sql string, args ...any) ([]SnapshotRow, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("employment snapshot: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		err := rows.Scan(&s.PersonID, &s.PersonName, &s.OrgID, &s.OrgName,
			&s.Rank, &s.StartDate, &s.EndDate)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Colleague is a name-level colleague hit shared by the ANY-name
// queries.
type Colleague struct {
	Name         string
	Organization string
	Rank         *string
}

// ColleaguesForNamesAtDate lists distinct colleagues of any of the
// given names active on the date.
func (r *Employments) ColleaguesForNamesAtDate(ctx context.Context, names []string, date time.Time) ([]Colleague, error) {
	return r.queryColleagues(ctx, `
		SELECT DISTINCT p2.name, o.name, e2.rank
		FROM employment e1
		JOIN people p1 ON e1.person_id = p1.id
		JOIN employment e2 ON e1.org_id = e2.org_id AND e1.id != e2.id
		JOIN people p2 ON e2.person_id = p2.id
		JOIN organizations o ON e1.org_id = o.id
		WHERE p1.name = ANY($1)
		AND $2::date BETWEEN e1.start_date AND e1.end_date
		AND $2::date BETWEEN e2.start_date AND e2.end_date`,
		names, date)
}

// AllColleaguesForNames lists distinct colleagues of any of the given
// names across all time. Co-tenure is not required here; any shared
// unit counts.
func (r *Employments) AllColleaguesForNames(ctx context.Context, names []string) ([]Colleague, error) {
	return r.queryColleagues(ctx, `
		SELECT DISTINCT p2.name, o.name, e2.rank
		FROM employment e1
		JOIN people p1 ON e1.person_id = p1.id
		JOIN employment e2 ON e1.org_id = e2.org_id AND e1.id != e2.id
		JOIN people p2 ON e2.person_id = p2.id
		JOIN organizations o ON e1.org_id = o.id
		WHERE p1.name = ANY($1)`,
		names)
}

func (r *Employments) queryColleagues(ctx context.Context, sql string, args ...any) ([]Colleague, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("colleague query: %w", err)
	}
	defer rows.Close()

	var out []Colleague
	for rows.Next() {
		var c Colleague
		if err := rows.Scan(&c.Name, &c.Organization, &c.Rank); err != nil {
			return nil, fmt.Errorf("scan colleague: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ColleagueStintsAtDate returns detailed colleague stints on a date
// via the find_colleagues_at_date function.
func (r *Employments) ColleagueStintsAtDate(ctx context.Context, personName string, date time.Time) ([]ColleagueAtDate, error) {
	rows, err := r.q.Query(ctx,
		`SELECT colleague_name, organization, colleague_rank, start_date, end_date, overlap_days
		FROM find_colleagues_at_date($1, $2)`,
		personName, date)
	if err != nil {
		return nil, fmt.Errorf("colleagues at date for %q: %w", personName, err)
	}
	defer rows.Close()

	var out []ColleagueAtDate
	for rows.Next() {
		var c ColleagueAtDate
		err := rows.Scan(&c.Name, &c.Organization, &c.Rank, &c.StartDate,
			&c.EndDate, &c.OverlapDays)
		if err != nil {
			return nil, fmt.Errorf("scan colleague stint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ColleagueOverlaps returns every overlapping colleague stint across
// all time via the find_all_colleagues function.
func (r *Employments) ColleagueOverlaps(ctx context.Context, personName string) ([]ColleagueOverlap, error) {
	rows, err := r.q.Query(ctx,
		`SELECT colleague_name, organization, colleague_rank,
			colleague_start_date, colleague_end_date,
			person_start_date, person_end_date,
			overlap_start_date, overlap_end_date, overlap_days
		FROM find_all_colleagues($1)`,
		personName)
	if err != nil {
		return nil, fmt.Errorf("colleague overlaps for %q: %w", personName, err)
	}
	defer rows.Close()

	var out []ColleagueOverlap
	for rows.Next() {
		var c ColleagueOverlap
		err := rows.Scan(&c.Name, &c.Organization, &c.Rank,
			&c.ColleagueStart, &c.ColleagueEnd,
			&c.PersonStart, &c.PersonEnd,
			&c.OverlapStart, &c.OverlapEnd, &c.OverlapDays)
		if err != nil {
			return nil, fmt.Errorf("scan colleague overlap: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CareerForNames returns career entries for any of the given names,
// ordered by start date.
func (r *Employments) CareerForNames(ctx context.Context, names []string) ([]CareerEntry, error) {
	return r.queryCareer(ctx, `
		SELECT p.name, p.id, e.rank, o.name, o.id, e.start_date, e.end_date
		FROM employment e
		JOIN people p ON e.person_id = p.id
		JOIN organizations o ON e.org_id = o.id
		WHERE p.name = ANY($1)
		ORDER BY e.start_date`, names)
}

// CareerForPersonID returns one identity's career entries ordered by
// start date.
func (r *Employments) CareerForPersonID(ctx context.Context, personID int) ([]CareerEntry, error) {
	return r.queryCareer(ctx, `
		SELECT p.name, p.id, e.rank, o.name, o.id, e.start_date, e.end_date
		FROM employment e
		JOIN people p ON e.person_id = p.id
		JOIN organizations o ON e.org_id = o.id
		WHERE p.id = $1
		ORDER BY e.start_date`, personID)
}

func (r *Employments) queryCareer(ctx context.Context, sql string, args ...any) ([]CareerEntry, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("career query: %w", err)
	}
	defer rows.Close()

	var out []CareerEntry
	for rows.Next() {
		var e CareerEntry
		err := rows.Scan(&e.PersonName, &e.PersonID, &e.Rank, &e.OrgName,
			&e.OrgID, &e.StartDate, &e.EndDate)
		if err != nil {
			return nil, fmt.Errorf("scan career entry: %w", err)
		}
		e.TenureDays = int(e.EndDate.Sub(e.StartDate).Hours() / 24)
		out = append(out, e)
	}
	return out, rows.Err()
}

// OverlappingPeople finds people whose employment overlapped the
// subject's within the unit family (the unit itself, its ancestors,
// and its descendants) of any unit the subject served at. A non-empty
// nameFilter switches to case-insensitive substring matching and
// disables the limit.
func (r *Employments) OverlappingPeople(ctx context.Context, personID int, nameFilter string, limit int) ([]OverlapPerson, error) {
	rows, err := r.q.Query(ctx, `
		WITH RECURSIVE person_units AS (
			SELECT org_id, start_date, end_date
			FROM employment
			WHERE person_id = $1
		),
		descendants AS (
			SELECT DISTINCT org_id AS unit_id, org_id AS family_id FROM person_units
			UNION
			SELECT d.unit_id, o.id FROM descendants d
			JOIN organizations o ON o.parent_org_id = d.family_id
		),
		ancestors AS (
			SELECT DISTINCT org_id AS unit_id, org_id AS family_id FROM person_units
			UNION
			SELECT a.unit_id, po.parent_org_id FROM ancestors a
			JOIN organizations po ON po.id = a.family_id
			WHERE po.parent_org_id IS NOT NULL
		),
		family AS (
			SELECT unit_id, family_id FROM descendants
			UNION
			SELECT unit_id, family_id FROM ancestors
		)
		SELECT DISTINCT
			p2.id, p2.name, e2.org_id, o.name, e2.rank,
			GREATEST(e2.start_date, pu.start_date) AS overlap_start,
			LEAST(e2.end_date, pu.end_date) AS overlap_end,
			(LEAST(e2.end_date, pu.end_date) - GREATEST(e2.start_date, pu.start_date) + 1) AS overlap_days
		FROM person_units pu
		JOIN family f ON f.unit_id = pu.org_id
		JOIN employment e2 ON e2.org_id = f.family_id
		JOIN people p2 ON p2.id = e2.person_id
		JOIN organizations o ON o.id = e2.org_id
		WHERE e2.person_id != $1
		AND e2.start_date <= pu.end_date
		AND e2.end_date >= pu.start_date
		AND ($2 = '' OR p2.name ILIKE '%' || $2 || '%')
		ORDER BY overlap_days DESC
		LIMIT CASE WHEN $2 = '' THEN $3::bigint ELSE NULL END`,
		personID, nameFilter, limit)
	if err != nil {
		return nil, fmt.Errorf("overlapping people for person %d: %w", personID, err)
	}
	defer rows.Close()

	var out []OverlapPerson
	for rows.Next() {
		var p OverlapPerson
		err := rows.Scan(&p.PersonID, &p.Name, &p.OrgID, &p.OrgName, &p.Rank,
			&p.OverlapStart, &p.OverlapEnd, &p.OverlapDays)
		if err != nil {
			return nil, fmt.Errorf("scan overlap person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TurnoverRow is one employee stint at an organization.
type TurnoverRow struct {
	EmployeeName string
	Rank         *string
	StartDate    time.Time
	EndDate      time.Time
	TenureDays   *int
}

// TurnoverForOrg lists stints at a named organization, optionally
// bounded to records contained in [from, to].
func (r *Employments) TurnoverForOrg(ctx context.Context, orgName string, from, to *time.Time) ([]TurnoverRow, error) {
	sql := `
		SELECT p.name, e.rank, e.start_date, e.end_date, e.tenure_days
		FROM employment e
		JOIN people p ON e.person_id = p.id
		JOIN organizations o ON e.org_id = o.id
		WHERE o.name = $1`
	args := []any{orgName}
	if from != nil && to != nil {
		sql += ` AND e.start_date >= $2 AND e.end_date <= $3`
		args = append(args, *from, *to)
	}
	sql += ` ORDER BY e.start_date`

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("turnover for %q: %w", orgName, err)
	}
	defer rows.Close()

	var out []TurnoverRow
	for rows.Next() {
		var t TurnoverRow
		err := rows.Scan(&t.EmployeeName, &t.Rank, &t.StartDate, &t.EndDate, &t.TenureDays)
		if err != nil {
			return nil, fmt.Errorf("scan turnover row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SuccessionRow is a predecessor/successor pair for the same rank at
// the same organization.
type SuccessionRow struct {
	Organization   string
	Role           string
	Predecessor    string
	Successor      string
	PredecessorEnd time.Time
	SuccessorStart time.Time
	GapDays        int
}

// Successions finds predecessor/successor pairs where the successor
// started within maxGapDays of the predecessor's end.
func (r *Employments) Successions(ctx context.Context, maxGapDays int) ([]SuccessionRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT
			o.name, e1.rank, p1.name, p2.name,
			e1.end_date, e2.start_date,
			e2.start_date - e1.end_date AS gap_days
		FROM employment e1
		JOIN employment e2 ON e1.org_id = e2.org_id AND e1.rank = e2.rank
		JOIN people p1 ON e1.person_id = p1.id
		JOIN people p2 ON e2.person_id = p2.id
		JOIN organizations o ON e1.org_id = o.id
		WHERE p1.name != p2.name
		AND e2.start_date > e1.end_date
		AND e2.start_date - e1.end_date <= $1
		ORDER BY gap_days`, maxGapDays)
	if err != nil {
		return nil, fmt.Errorf("succession patterns: %w", err)
	}
	defer rows.Close()

	var out []SuccessionRow
	for rows.Next() {
		var s SuccessionRow
		err := rows.Scan(&s.Organization, &s.Role, &s.Predecessor, &s.Successor,
			&s.PredecessorEnd, &s.SuccessorStart, &s.GapDays)
		if err != nil {
			return nil, fmt.Errorf("scan succession row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of employment records.
func (r *Employments) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM employment`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count employment: %w", err)
	}
	return n, nil
}
