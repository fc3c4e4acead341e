// Package querysvc answers read queries over the employment history:
// colleagues, career progression, network snapshots, and turnover
// analytics. Name inputs optionally go through fuzzy resolution first.
package querysvc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kasw/orgtrace/internal/nameres"
	"github.com/kasw/orgtrace/internal/repo"
)

// ancestorConcurrency bounds parallel ancestor lookups during career
// enrichment.
const ancestorConcurrency = 8

// Service bundles the read-side queries.
type Service struct {
	emp      *repo.Employments
	orgs     *repo.Orgs
	resolver *nameres.Resolver
	log      *zap.Logger
}

func NewService(emp *repo.Employments, orgs *repo.Orgs, resolver *nameres.Resolver, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{emp: emp, orgs: orgs, resolver: resolver, log: log}
}

// resolveNames expands a name query through the fuzzy resolver when
// asked. An empty resolution means no identity matched; callers treat
// it as an empty result, not an error.
func (s *Service) resolveNames(ctx context.Context, name string, fuzzy bool) ([]string, error) {
	if !fuzzy || s.resolver == nil {
		return []string{name}, nil
	}
	names, err := s.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		s.log.Debug("fuzzy name resolution",
			zap.String("query", name), zap.Strings("names", names))
	}
	return names, nil
}

// Resolve expands a name query through the fuzzy resolver.
func (s *Service) Resolve(ctx context.Context, name string) ([]string, error) {
	return s.resolveNames(ctx, name, true)
}

// ColleaguesAtDate lists the distinct colleagues of a person on a
// date. A nil date means today.
func (s *Service) ColleaguesAtDate(ctx context.Context, name string, date *time.Time, fuzzy bool) ([]repo.Colleague, error) {
	names, err := s.resolveNames(ctx, name, fuzzy)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	at := time.Now()
	if date != nil {
		at = *date
	}
	return s.emp.ColleaguesForNamesAtDate(ctx, names, at)
}

// AllColleagues lists the distinct colleagues of a person across all
// time.
func (s *Service) AllColleagues(ctx context.Context, name string, fuzzy bool) ([]repo.Colleague, error) {
	names, err := s.resolveNames(ctx, name, fuzzy)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return s.emp.AllColleaguesForNames(ctx, names)
}

// ColleagueStintsAtDate returns detailed colleague stints with
// overlap day counts for a single exact name on a date.
func (s *Service) ColleagueStintsAtDate(ctx context.Context, name string, date time.Time) ([]repo.ColleagueAtDate, error) {
	return s.emp.ColleagueStintsAtDate(ctx, name, date)
}

// ColleagueOverlaps returns every overlapping colleague stint of a
// single exact name across all time.
func (s *Service) ColleagueOverlaps(ctx context.Context, name string) ([]repo.ColleagueOverlap, error) {
	return s.emp.ColleagueOverlaps(ctx, name)
}

// CareerOptions control career progression queries.
type CareerOptions struct {
	Fuzzy bool
	// IncludeAncestors attaches each entry's ancestor chain.
	IncludeAncestors bool
	// Merge collapses entries sharing (rank, organization) into their
	// union interval.
	Merge bool
}

// CareerByName returns career entries for a name ordered by start
// date.
func (s *Service) CareerByName(ctx context.Context, name string, opts CareerOptions) ([]repo.CareerEntry, error) {
	names, err := s.resolveNames(ctx, name, opts.Fuzzy)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	entries, err := s.emp.CareerForNames(ctx, names)
	if err != nil {
		return nil, err
	}
	if opts.IncludeAncestors {
		if err := s.attachAncestors(ctx, entries); err != nil {
			return nil, err
		}
	}
	if opts.Merge {
		entries = mergeCareer(entries)
	}
	return entries, nil
}

// CareerByPersonID returns one identity's career entries ordered by
// start date.
func (s *Service) CareerByPersonID(ctx context.Context, personID int, includeAncestors bool) ([]repo.CareerEntry, error) {
	entries, err := s.emp.CareerForPersonID(ctx, personID)
	if err != nil {
		return nil, err
	}
	if includeAncestors {
		if err := s.attachAncestors(ctx, entries); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// attachAncestors fetches each distinct organization's ancestor chain
// once and fans it out to the entries.
func (s *Service) attachAncestors(ctx context.Context, entries []repo.CareerEntry) error {
	orgIDs := make(map[int]struct{})
	for _, e := range entries {
		orgIDs[e.OrgID] = struct{}{}
	}

	ancestors := make(map[int][]repo.Org, len(orgIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ancestorConcurrency)

	type result struct {
		orgID int
		chain []repo.Org
	}
	results := make(chan result, len(orgIDs))
	for id := range orgIDs {
		g.Go(func() error {
			chain, err := s.orgs.Ancestors(gctx, id)
			if err != nil {
				return err
			}
			results <- result{orgID: id, chain: chain}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	close(results)
	for r := range results {
		ancestors[r.orgID] = r.chain
	}

	for i := range entries {
		entries[i].Ancestors = ancestors[entries[i].OrgID]
	}
	return nil
}

// mergeCareer collapses entries sharing (rank, organization) into one
// entry spanning the union of their intervals, recomputing tenure.
// First-seen order is preserved.
func mergeCareer(entries []repo.CareerEntry) []repo.CareerEntry {
	type key struct {
		rank string
		org  string
	}
	keyOf := func(e repo.CareerEntry) key {
		k := key{org: e.OrgName}
		if e.Rank != nil {
			k.rank = *e.Rank
		}
		return k
	}

	index := make(map[key]int)
	var out []repo.CareerEntry
	for _, e := range entries {
		k := keyOf(e)
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, e)
			continue
		}
		if e.StartDate.Before(out[i].StartDate) {
			out[i].StartDate = e.StartDate
		}
		if e.EndDate.After(out[i].EndDate) {
			out[i].EndDate = e.EndDate
		}
		out[i].TenureDays = int(out[i].EndDate.Sub(out[i].StartDate).Hours() / 24)
	}
	return out
}

// NetworkSnapshot lists every employment edge active on a date.
func (s *Service) NetworkSnapshot(ctx context.Context, date time.Time) ([]repo.SnapshotRow, error) {
	return s.emp.Snapshot(ctx, date)
}

// AllEmployment lists every employment edge across all time.
func (s *Service) AllEmployment(ctx context.Context) ([]repo.SnapshotRow, error) {
	return s.emp.AllHistory(ctx)
}

// TemporalOverlap finds people whose employment overlapped the
// subject's within the unit family of any unit the subject served at.
func (s *Service) TemporalOverlap(ctx context.Context, personID int, nameFilter string, limit int) ([]repo.OverlapPerson, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.emp.OverlappingPeople(ctx, personID, nameFilter, limit)
}

// EmploymentByPersonID lists a person's employment records. With
// recent set, only the record with the latest start date is returned.
func (s *Service) EmploymentByPersonID(ctx context.Context, personID, limit int, recent bool) ([]repo.Employment, error) {
	if limit <= 0 {
		limit = 50
	}
	if recent {
		most, err := s.emp.MostRecentByPersonID(ctx, personID)
		if err != nil || most == nil {
			return nil, err
		}
		return []repo.Employment{*most}, nil
	}
	return s.emp.ByPersonID(ctx, personID, limit)
}

// Turnover summarizes employee stints at a named organization,
// optionally bounded to [from, to].
type Turnover struct {
	Organization   string
	TotalEmployees int
	AvgTenureDays  float64
	Employees      []repo.TurnoverRow
}

func (s *Service) OrgTurnover(ctx context.Context, orgName string, from, to *time.Time) (*Turnover, error) {
	rows, err := s.emp.TurnoverForOrg(ctx, orgName, from, to)
	if err != nil {
		return nil, err
	}
	t := &Turnover{Organization: orgName, TotalEmployees: len(rows), Employees: rows}
	var sum, n int
	for _, r := range rows {
		if r.TenureDays != nil {
			sum += *r.TenureDays
			n++
		}
	}
	if n > 0 {
		t.AvgTenureDays = float64(sum) / float64(n)
	}
	return t, nil
}

// Successions finds predecessor/successor pairs where the successor
// took over the same rank at the same organization within maxGapDays.
func (s *Service) Successions(ctx context.Context, maxGapDays int) ([]repo.SuccessionRow, error) {
	if maxGapDays <= 0 {
		maxGapDays = 90
	}
	return s.emp.Successions(ctx, maxGapDays)
}
