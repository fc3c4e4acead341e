// Package doctor provides health checks for an orgtrace database.
//
// The doctor command validates that the store is usable: required
// extensions, tables and query functions exist, the colleague_pairs
// view is populated, and the data passes basic sanity checks.
//
// Example usage:
//
//	d := doctor.New(st)
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kasw/orgtrace/internal/store"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Tables", "Functions").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	// Group checks by category
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	// Print each category
	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				// Indent details
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks on an orgtrace store.
type Doctor struct {
	db store.Querier

	// Cached data from checks (populated during Run)
	tablesOK       bool
	employmentRows int64
}

// New creates a new Doctor instance.
func New(db store.Querier) *Doctor {
	return &Doctor{db: db}
}

// Run executes all health checks and returns a report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	// Run checks in order, building up cached data
	if err := d.checkExtensions(ctx, report); err != nil {
		return nil, fmt.Errorf("checking extensions: %w", err)
	}
	if err := d.checkTables(ctx, report); err != nil {
		return nil, fmt.Errorf("checking tables: %w", err)
	}
	if err := d.checkFunctions(ctx, report); err != nil {
		return nil, fmt.Errorf("checking functions: %w", err)
	}
	if !d.tablesOK {
		return report, nil
	}
	if err := d.checkColleaguePairs(ctx, report); err != nil {
		return nil, fmt.Errorf("checking colleague pairs: %w", err)
	}
	if err := d.checkDataHealth(ctx, report); err != nil {
		return nil, fmt.Errorf("checking data health: %w", err)
	}

	return report, nil
}

// checkExtensions validates the extensions the schema and the fuzzy
// name search depend on.
func (d *Doctor) checkExtensions(ctx context.Context, report *Report) error {
	required := []string{"pg_trgm", "btree_gist"}

	installed, err := d.stringSet(ctx, `SELECT extname FROM pg_extension`)
	if err != nil {
		return err
	}

	var missing []string
	for _, ext := range required {
		if !installed[ext] {
			missing = append(missing, ext)
		}
	}

	if len(missing) > 0 {
		report.AddCheck(CheckResult{
			Category: "Extensions",
			Name:     "installed",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("Missing extensions: %s", strings.Join(missing, ", ")),
			Details:  "Fuzzy name search falls back to substring matching without pg_trgm",
			FixHint:  "Run 'orgtrace migrate' (requires CREATE EXTENSION privileges)",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Extensions",
			Name:     "installed",
			Status:   StatusPass,
			Message:  "pg_trgm and btree_gist installed",
		})
	}
	return nil
}

// checkTables validates the core tables exist.
func (d *Doctor) checkTables(ctx context.Context, report *Report) error {
	required := []string{"people", "organizations", "employment"}

	existing, err := d.stringSet(ctx, `
		SELECT c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema()
		AND c.relkind = 'r'`)
	if err != nil {
		return err
	}

	var missing []string
	for _, table := range required {
		if !existing[table] {
			missing = append(missing, table)
		}
	}

	if len(missing) > 0 {
		report.AddCheck(CheckResult{
			Category: "Tables",
			Name:     "exist",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Missing tables: %s", strings.Join(missing, ", ")),
			FixHint:  "Run 'orgtrace migrate' to create the schema",
		})
		return nil
	}

	d.tablesOK = true
	report.AddCheck(CheckResult{
		Category: "Tables",
		Name:     "exist",
		Status:   StatusPass,
		Message:  "people, organizations and employment tables exist",
	})
	return nil
}

// checkFunctions validates the query functions the repositories call.
func (d *Doctor) checkFunctions(ctx context.Context, report *Report) error {
	required := []string{
		"refresh_colleague_pairs",
		"find_colleagues_at_date",
		"find_all_colleagues",
		"find_organizations_by_depth",
		"get_org_descendants_diff",
	}

	existing, err := d.stringSet(ctx, `
		SELECT p.proname
		FROM pg_proc p
		JOIN pg_namespace n ON p.pronamespace = n.oid
		WHERE n.nspname = current_schema()`)
	if err != nil {
		return err
	}

	var missing []string
	for _, fn := range required {
		if !existing[fn] {
			missing = append(missing, fn)
		}
	}

	if len(missing) > 0 {
		report.AddCheck(CheckResult{
			Category: "Functions",
			Name:     "complete",
			Status:   StatusFail,
			Message:  fmt.Sprintf("%d query functions missing", len(missing)),
			Details:  strings.Join(missing, "\n"),
			FixHint:  "Run 'orgtrace migrate' to recreate them",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Functions",
			Name:     "complete",
			Status:   StatusPass,
			Message:  fmt.Sprintf("All %d query functions present", len(required)),
		})
	}
	return nil
}

// checkColleaguePairs validates the colleague_pairs materialized view
// exists and is not stale relative to the employment table.
func (d *Doctor) checkColleaguePairs(ctx context.Context, report *Report) error {
	var exists bool
	err := d.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_class c
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE c.relname = 'colleague_pairs'
			AND n.nspname = current_schema()
			AND c.relkind = 'm'
		)`).Scan(&exists)
	if err != nil {
		return err
	}

	if !exists {
		report.AddCheck(CheckResult{
			Category: "Colleague Pairs",
			Name:     "exists",
			Status:   StatusFail,
			Message:  "colleague_pairs materialized view does not exist",
			FixHint:  "Run 'orgtrace migrate' to create it",
		})
		return nil
	}

	report.AddCheck(CheckResult{
		Category: "Colleague Pairs",
		Name:     "exists",
		Status:   StatusPass,
		Message:  "colleague_pairs materialized view exists",
	})

	var pairs int64
	if err := d.db.QueryRow(ctx, `SELECT COUNT(*) FROM colleague_pairs`).Scan(&pairs); err != nil {
		return err
	}
	if err := d.db.QueryRow(ctx, `SELECT COUNT(*) FROM employment`).Scan(&d.employmentRows); err != nil {
		return err
	}

	if pairs == 0 && d.employmentRows > 0 {
		report.AddCheck(CheckResult{
			Category: "Colleague Pairs",
			Name:     "fresh",
			Status:   StatusWarn,
			Message:  "colleague_pairs is empty but employment has rows",
			Details:  "The view is only rebuilt after ingest; standalone writes leave it stale",
			FixHint:  "Run SELECT refresh_colleague_pairs()",
		})
	} else {
		report.AddCheck(CheckResult{
			Category: "Colleague Pairs",
			Name:     "fresh",
			Status:   StatusPass,
			Message:  fmt.Sprintf("colleague_pairs contains %d pairs", pairs),
		})
	}
	return nil
}

// checkDataHealth runs sanity checks over the graph data.
func (d *Doctor) checkDataHealth(ctx context.Context, report *Report) error {
	var people, orgs int64
	if err := d.db.QueryRow(ctx, `SELECT COUNT(*) FROM people`).Scan(&people); err != nil {
		return err
	}
	if err := d.db.QueryRow(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&orgs); err != nil {
		return err
	}

	if people == 0 && orgs == 0 {
		report.AddCheck(CheckResult{
			Category: "Data Health",
			Name:     "data",
			Status:   StatusWarn,
			Message:  "Store is empty",
			Details:  "No people or organizations to query",
			FixHint:  "Run 'orgtrace seed' and 'orgtrace ingest' to load data",
		})
		return nil
	}

	report.AddCheck(CheckResult{
		Category: "Data Health",
		Name:     "data",
		Status:   StatusPass,
		Message: fmt.Sprintf("%d people, %d organizations, %d employment records",
			people, orgs, d.employmentRows),
	})

	// People without a single employment record are usually the residue
	// of rolled-back ingest batches.
	var idle int64
	err := d.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM people p
		WHERE NOT EXISTS (SELECT 1 FROM employment e WHERE e.person_id = p.id)`).
		Scan(&idle)
	if err != nil {
		return err
	}
	if idle > 0 {
		report.AddCheck(CheckResult{
			Category: "Data Health",
			Name:     "idle_people",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d people have no employment records", idle),
		})
	}

	// Observed windows in metadata must be ordered; the timeline and
	// diff queries silently exclude units where they are not.
	var badWindows int64
	err = d.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM organizations
		WHERE metadata ? 'first_observed' AND metadata ? 'last_observed'
		AND (metadata->>'first_observed')::date > (metadata->>'last_observed')::date`).
		Scan(&badWindows)
	if err != nil {
		return err
	}
	if badWindows > 0 {
		report.AddCheck(CheckResult{
			Category: "Data Health",
			Name:     "observed_windows",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d organizations have inverted observed windows", badWindows),
			FixHint:  "Re-run 'orgtrace seed' with corrected first/last observed dates",
		})
	}

	if idle == 0 && badWindows == 0 {
		report.AddCheck(CheckResult{
			Category: "Data Health",
			Name:     "consistent",
			Status:   StatusPass,
			Message:  "No orphan people or inverted observed windows",
		})
	}
	return nil
}

// stringSet runs a single-column query and collects the values.
func (d *Doctor) stringSet(ctx context.Context, sql string) (map[string]bool, error) {
	rows, err := d.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out[s] = true
	}
	return out, rows.Err()
}
