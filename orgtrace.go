// Package orgtrace tracks people and organizational units over time:
// who served where and when, who overlapped with whom, and how the
// unit hierarchy changed. It exposes identity disambiguation on
// ingest, fuzzy name resolution on query, and graph queries over the
// employment history.
package orgtrace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kasw/orgtrace/internal/disambig"
	"github.com/kasw/orgtrace/internal/graph"
	"github.com/kasw/orgtrace/internal/ingest"
	"github.com/kasw/orgtrace/internal/nameres"
	"github.com/kasw/orgtrace/internal/orgsvc"
	"github.com/kasw/orgtrace/internal/querysvc"
	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/store"
)

// Config configures a Handle.
type Config struct {
	Store store.Config

	// Resolver tuning; zero values take the package defaults.
	TrigramThreshold  float64
	PrimaryThreshold  float64
	PairwiseThreshold float64
	MaxSimilarNames   int
	MinStrongLinks    int
	DisablePairwise   bool

	// CohesionThreshold is the minimum disambiguation score for a
	// record to join an existing identity cluster.
	CohesionThreshold int

	Logger *zap.Logger
}

// Handle is the facade over the store, the services, and the graph
// caches. It is safe for concurrent use.
type Handle struct {
	st     *store.Store
	people *repo.People
	orgs   *repo.Orgs
	emp    *repo.Employments
	schema *store.SchemaManager

	orgsvc   *orgsvc.Service
	querysvc *querysvc.Service
	ingest   *ingest.Service
	graphs   *graph.Service

	log *zap.Logger
}

// Open connects to the store and wires the services.
func Open(ctx context.Context, cfg Config) (*Handle, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	st, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		return nil, err
	}

	people := repo.NewPeople(st, log)
	orgs := repo.NewOrgs(st, log)
	emp := repo.NewEmployments(st, log)
	schema := store.NewSchemaManager(store.PoolExecer{Pool: st.Pool()}, log)

	graphs := graph.NewService(emp, orgs, log)

	var resolverOpts []nameres.Option
	if cfg.TrigramThreshold > 0 {
		resolverOpts = append(resolverOpts, nameres.WithTrigramThreshold(cfg.TrigramThreshold))
	}
	if cfg.PrimaryThreshold > 0 {
		resolverOpts = append(resolverOpts, nameres.WithPrimaryThreshold(cfg.PrimaryThreshold))
	}
	if cfg.PairwiseThreshold > 0 {
		resolverOpts = append(resolverOpts, nameres.WithPairwiseThreshold(cfg.PairwiseThreshold))
	}
	if cfg.MaxSimilarNames > 0 {
		resolverOpts = append(resolverOpts, nameres.WithMaxResults(cfg.MaxSimilarNames))
	}
	if cfg.MinStrongLinks > 0 {
		resolverOpts = append(resolverOpts, nameres.WithMinStrongLinks(cfg.MinStrongLinks))
	}
	if cfg.DisablePairwise {
		resolverOpts = append(resolverOpts, nameres.WithPairwiseFilter(false))
	}
	resolverOpts = append(resolverOpts, nameres.WithLogger(log))
	resolver := nameres.New(people, resolverOpts...)

	orgSvc := orgsvc.NewService(st, orgs, log, orgsvc.WithInvalidator(graphs.Invalidate))
	querySvc := querysvc.NewService(emp, orgs, resolver, log)

	var disOpts []disambig.Option
	if cfg.CohesionThreshold > 0 {
		disOpts = append(disOpts, disambig.WithThreshold(cfg.CohesionThreshold))
	}
	disOpts = append(disOpts, disambig.WithLogger(log))
	dis := disambig.New(ingest.NewOrgAncestors(orgs), disOpts...)

	ingestSvc := ingest.NewService(st, people, emp, orgSvc, dis, schema, log,
		ingest.WithInvalidator(graphs.Invalidate))

	return &Handle{
		st:       st,
		people:   people,
		orgs:     orgs,
		emp:      emp,
		schema:   schema,
		orgsvc:   orgSvc,
		querysvc: querySvc,
		ingest:   ingestSvc,
		graphs:   graphs,
		log:      log,
	}, nil
}

// Close releases the store pool.
func (h *Handle) Close() { h.st.Close() }

// SetupSchema creates the schema, indexes, views, and functions.
func (h *Handle) SetupSchema(ctx context.Context) error { return h.schema.Setup(ctx) }

// ResetSchema drops and recreates the schema.
func (h *Handle) ResetSchema(ctx context.Context) error { return h.schema.Reset(ctx) }

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", ErrInvalidArgument, s)
	}
	return d, nil
}

// Colleague is one distinct colleague hit.
type Colleague struct {
	Name         string
	Organization string
	Rank         string
}

// FindColleagues lists the distinct colleagues of a person. An empty
// date means all time; otherwise only intervals covering the date
// count. With fuzzy set the name goes through fuzzy resolution first.
func (h *Handle) FindColleagues(ctx context.Context, name, date string, fuzzy bool) ([]Colleague, error) {
	var (
		rows []repo.Colleague
		err  error
	)
	if date == "" {
		rows, err = h.querysvc.AllColleagues(ctx, name, fuzzy)
	} else {
		var d time.Time
		if d, err = parseDate(date); err != nil {
			return nil, err
		}
		rows, err = h.querysvc.ColleaguesAtDate(ctx, name, &d, fuzzy)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Colleague, len(rows))
	for i, r := range rows {
		out[i] = Colleague{Name: r.Name, Organization: r.Organization, Rank: deref(r.Rank)}
	}
	return out, nil
}

// OrgSummary is a compact organization reference.
type OrgSummary struct {
	ID          int
	Name        string
	Department  string
	URL         string
	ParentOrgID *int
}

// CareerEntry is one stint in a career, ordered by start date.
type CareerEntry struct {
	PersonName   string
	PersonID     int
	Rank         string
	Organization string
	OrgID        int
	StartDate    time.Time
	EndDate      time.Time
	TenureDays   int
	Ancestors    []OrgSummary
}

// CareerOptions control career progression queries.
type CareerOptions struct {
	Fuzzy bool
	// IncludeAncestors attaches each entry's unit ancestor chain.
	IncludeAncestors bool
	// Merge collapses entries sharing (rank, unit) into their union
	// interval, recomputing tenure.
	Merge bool
}

// CareerProgressionByName returns the career of every identity
// matching the name.
func (h *Handle) CareerProgressionByName(ctx context.Context, name string, opts CareerOptions) ([]CareerEntry, error) {
	entries, err := h.querysvc.CareerByName(ctx, name, querysvc.CareerOptions{
		Fuzzy:            opts.Fuzzy,
		IncludeAncestors: opts.IncludeAncestors,
		Merge:            opts.Merge,
	})
	if err != nil {
		return nil, err
	}
	return careerEntries(entries), nil
}

// CareerProgressionByPersonID returns one identity's career.
func (h *Handle) CareerProgressionByPersonID(ctx context.Context, personID int, includeAncestors bool) ([]CareerEntry, error) {
	entries, err := h.querysvc.CareerByPersonID(ctx, personID, includeAncestors)
	if err != nil {
		return nil, err
	}
	return careerEntries(entries), nil
}

func careerEntries(entries []repo.CareerEntry) []CareerEntry {
	out := make([]CareerEntry, len(entries))
	for i, e := range entries {
		out[i] = CareerEntry{
			PersonName:   e.PersonName,
			PersonID:     e.PersonID,
			Rank:         deref(e.Rank),
			Organization: e.OrgName,
			OrgID:        e.OrgID,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			TenureDays:   e.TenureDays,
			Ancestors:    orgSummaries(e.Ancestors),
		}
	}
	return out
}

func orgSummaries(orgs []repo.Org) []OrgSummary {
	if orgs == nil {
		return nil
	}
	out := make([]OrgSummary, len(orgs))
	for i, o := range orgs {
		out[i] = OrgSummary{
			ID:          o.ID,
			Name:        o.Name,
			Department:  deref(o.Department),
			URL:         deref(o.URL),
			ParentOrgID: o.ParentOrgID,
		}
	}
	return out
}

// Person is an identity with optional career and ancestor enrichment.
type Person struct {
	ID                int
	Name              string
	CleanName         string
	Tel               string
	Email             string
	DisambiguationKey int
	Career            []CareerEntry
	Ancestors         []OrgSummary
}

// PersonLookupOptions control FindPersonByName.
type PersonLookupOptions struct {
	Fuzzy bool
	// IncludeProfile attaches the career list.
	IncludeProfile bool
	// IncludeAncestors attaches the ancestor chain of the most recent
	// employment's unit, or that unit alone when the chain is empty.
	IncludeAncestors bool
}

// FindPersonByName resolves a name to identities. Enrichment of the
// matched identities runs concurrently.
func (h *Handle) FindPersonByName(ctx context.Context, name string, opts PersonLookupOptions) ([]Person, error) {
	names := []string{name}
	if opts.Fuzzy {
		resolved, err := h.querysvc.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(resolved) == 0 {
			return nil, fmt.Errorf("person %q: %w", name, ErrNotFound)
		}
		names = resolved
	}

	var persons []Person
	for _, n := range names {
		p, err := h.people.ByName(ctx, n)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		persons = append(persons, Person{
			ID:                p.ID,
			Name:              p.Name,
			CleanName:         p.CleanName,
			Tel:               deref(p.Tel),
			Email:             deref(p.Email),
			DisambiguationKey: p.DisambiguationKey,
		})
	}
	if len(persons) == 0 {
		return nil, fmt.Errorf("person %q: %w", name, ErrNotFound)
	}

	if opts.IncludeProfile || opts.IncludeAncestors {
		g, gctx := errgroup.WithContext(ctx)
		for i := range persons {
			g.Go(func() error {
				return h.enrichPerson(gctx, &persons[i], opts)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return persons, nil
}

func (h *Handle) enrichPerson(ctx context.Context, p *Person, opts PersonLookupOptions) error {
	if opts.IncludeProfile {
		entries, err := h.querysvc.CareerByPersonID(ctx, p.ID, false)
		if err != nil {
			return err
		}
		p.Career = careerEntries(entries)
	}
	if !opts.IncludeAncestors {
		return nil
	}

	recent, err := h.emp.MostRecentByPersonID(ctx, p.ID)
	if err != nil || recent == nil {
		return err
	}
	chain, err := h.orgs.Ancestors(ctx, recent.OrgID)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		org, err := h.orgs.ByID(ctx, recent.OrgID)
		if err != nil {
			return err
		}
		chain = []repo.Org{*org}
	}
	p.Ancestors = orgSummaries(chain)
	return nil
}

// SnapshotEntry is one employment edge active on a date.
type SnapshotEntry struct {
	PersonID   int
	PersonName string
	OrgID      int
	OrgName    string
	Rank       string
	StartDate  time.Time
	EndDate    time.Time
}

// NetworkSnapshot lists every employment active on the date.
func (h *Handle) NetworkSnapshot(ctx context.Context, date string) ([]SnapshotEntry, error) {
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := h.querysvc.NetworkSnapshot(ctx, d)
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotEntry, len(rows))
	for i, r := range rows {
		out[i] = SnapshotEntry{
			PersonID:   r.PersonID,
			PersonName: r.PersonName,
			OrgID:      r.OrgID,
			OrgName:    r.OrgName,
			Rank:       deref(r.Rank),
			StartDate:  r.StartDate,
			EndDate:    r.EndDate,
		}
	}
	return out, nil
}

// OverlapPerson is one temporally overlapping person hit.
type OverlapPerson struct {
	PersonID     int
	Name         string
	OrgID        int
	Organization string
	Rank         string
	OverlapStart time.Time
	OverlapEnd   time.Time
	OverlapDays  int
}

// FindPeopleByTemporalOverlap finds people whose employment
// overlapped the subject's within the unit family of any unit the
// subject served at. A non-empty nameFilter disables the limit.
func (h *Handle) FindPeopleByTemporalOverlap(ctx context.Context, personID int, nameFilter string, limit int) ([]OverlapPerson, error) {
	rows, err := h.querysvc.TemporalOverlap(ctx, personID, nameFilter, limit)
	if err != nil {
		return nil, err
	}
	out := make([]OverlapPerson, len(rows))
	for i, r := range rows {
		out[i] = OverlapPerson{
			PersonID:     r.PersonID,
			Name:         r.Name,
			OrgID:        r.OrgID,
			Organization: r.OrgName,
			Rank:         deref(r.Rank),
			OverlapStart: r.OverlapStart,
			OverlapEnd:   r.OverlapEnd,
			OverlapDays:  r.OverlapDays,
		}
	}
	return out, nil
}

// PathNode is one node on a reported path.
type PathNode struct {
	Kind string // "person" or "org"
	ID   int
	Name string
}

// PathStint is employment metadata on a traversed edge.
type PathStint struct {
	Rank      string
	StartDate time.Time
	EndDate   time.Time
}

// PathStep is one traversed edge with its metadata.
type PathStep struct {
	From   PathNode
	To     PathNode
	Stints []PathStint
}

// PathResult is a resolved shortest path. Nil means the endpoints are
// disconnected.
type PathResult struct {
	Nodes []PathNode
	Steps []PathStep
}

// PathRequest controls ShortestPath.
type PathRequest struct {
	// Temporal searches the colleague graph, where every hop requires
	// overlapping tenure at a shared unit.
	Temporal bool
	// PeopleOnly drops unit nodes from full-graph paths.
	PeopleOnly bool
	// IncludeMetadata attaches employment stints per traversed edge.
	IncludeMetadata bool
}

// ShortestPath finds the shortest path between any name in from and
// any name in to, over the colleague graph when temporal or the full
// history graph otherwise.
func (h *Handle) ShortestPath(ctx context.Context, from, to []string, req PathRequest) (*PathResult, error) {
	if len(from) == 0 || len(to) == 0 {
		return nil, fmt.Errorf("%w: empty endpoint set", ErrInvalidArgument)
	}

	if req.Temporal {
		return h.temporalPath(ctx, from, to)
	}

	g, err := h.graphs.Full(ctx)
	if err != nil {
		return nil, err
	}
	p, err := g.ShortestPath(from, to, graph.PathOptions{
		PeopleOnly:      req.PeopleOnly,
		IncludeMetadata: req.IncludeMetadata,
	})
	if err != nil || p == nil {
		return nil, err
	}

	out := &PathResult{Nodes: pathNodes(p.Nodes)}
	for _, s := range p.Steps {
		step := PathStep{From: pathNode(s.From), To: pathNode(s.To)}
		for _, st := range s.Stints {
			step.Stints = append(step.Stints, PathStint{
				Rank:      deref(st.Rank),
				StartDate: st.StartDate,
				EndDate:   st.EndDate,
			})
		}
		out.Steps = append(out.Steps, step)
	}
	return out, nil
}

func (h *Handle) temporalPath(ctx context.Context, from, to []string) (*PathResult, error) {
	g, err := h.graphs.Colleague(ctx)
	if err != nil {
		return nil, err
	}

	var best []graph.NodeRef
	resolved := false
	for _, a := range from {
		for _, b := range to {
			p, err := g.TemporalPath(a, b)
			if IsNotFound(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			resolved = true
			if p != nil && (best == nil || len(p) < len(best)) {
				best = p
			}
		}
	}
	if !resolved {
		return nil, fmt.Errorf("no colleague graph node for %v, %v: %w", from, to, ErrNotFound)
	}
	if best == nil {
		return nil, nil
	}
	return &PathResult{Nodes: pathNodes(best)}, nil
}

func pathNode(r graph.NodeRef) PathNode {
	return PathNode{Kind: r.Kind, ID: r.ID, Name: r.Name}
}

func pathNodes(refs []graph.NodeRef) []PathNode {
	out := make([]PathNode, len(refs))
	for i, r := range refs {
		out[i] = pathNode(r)
	}
	return out
}

// Centralities holds per-person centrality scores keyed by name.
type Centralities struct {
	Betweenness map[string]float64
	Closeness   map[string]float64
	Degree      map[string]float64
}

// PersonCentralities computes centralities over the person projection
// of the full graph.
func (h *Handle) PersonCentralities(ctx context.Context) (*Centralities, error) {
	g, err := h.graphs.Full(ctx)
	if err != nil {
		return nil, err
	}
	c := g.PersonCentralities()
	return &Centralities{
		Betweenness: c.Betweenness,
		Closeness:   c.Closeness,
		Degree:      c.Degree,
	}, nil
}

// BaseOrganizations lists the top-level units.
func (h *Handle) BaseOrganizations(ctx context.Context) ([]OrgSummary, error) {
	orgs, err := h.orgsvc.Base(ctx)
	if err != nil {
		return nil, err
	}
	return orgSummaries(orgs), nil
}

// OrganizationsByDepth lists units at a hierarchy depth. Depth starts
// at 1.
func (h *Handle) OrganizationsByDepth(ctx context.Context, depth int) ([]OrgSummary, error) {
	orgs, err := h.orgsvc.ByDepth(ctx, depth)
	if err != nil {
		return nil, err
	}
	return orgSummaries(orgs), nil
}

// ActiveDescendants lists the descendants of a unit active on the
// date.
func (h *Handle) ActiveDescendants(ctx context.Context, rootID int, date string) ([]OrgSummary, error) {
	d, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	orgs, err := h.orgsvc.SubtreeAtDate(ctx, rootID, d)
	if err != nil {
		return nil, err
	}
	return orgSummaries(orgs), nil
}

// OrgChildren lists the direct children of a unit.
func (h *Handle) OrgChildren(ctx context.Context, orgID int) ([]OrgSummary, error) {
	orgs, err := h.orgsvc.Children(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return orgSummaries(orgs), nil
}

// OrgSubtree lists every descendant of a unit regardless of dates.
func (h *Handle) OrgSubtree(ctx context.Context, orgID int) ([]OrgSummary, error) {
	orgs, err := h.orgsvc.Subtree(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return orgSummaries(orgs), nil
}

// SetOrgParent updates a unit's parent link. A nil parent detaches the
// unit to top level.
func (h *Handle) SetOrgParent(ctx context.Context, orgID int, parentID *int) error {
	return h.orgsvc.UpdateParent(ctx, orgID, parentID)
}

// OrgTimelineDates lists the dates on which a unit's subtree changed
// observation state, ascending. With distinct set, dates with no
// structural change are dropped.
func (h *Handle) OrgTimelineDates(ctx context.Context, rootID int, distinct bool) ([]string, error) {
	dates, err := h.orgsvc.Timeline(ctx, rootID, distinct)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(dateLayout)
	}
	return out, nil
}

// DescendantChange is one subtree difference entry.
type DescendantChange struct {
	OrgID   int
	Name    string
	Status  string // added, removed, or unchanged
	Details map[string]any
}

// OrgDescendantsDiff tags each descendant of a unit as added, removed,
// or unchanged between two dates.
func (h *Handle) OrgDescendantsDiff(ctx context.Context, rootID int, startDate, endDate string) ([]DescendantChange, error) {
	start, err := parseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(endDate)
	if err != nil {
		return nil, err
	}
	diffs, err := h.orgsvc.Diff(ctx, rootID, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]DescendantChange, len(diffs))
	for i, d := range diffs {
		out[i] = DescendantChange{OrgID: d.OrgID, Name: d.Name, Status: d.Status, Details: d.Details}
	}
	return out, nil
}

// OrgSeed is one row of hierarchy seed data.
type OrgSeed struct {
	Name          string
	URL           string
	ParentURL     string
	EntityType    string
	FirstObserved string
	LastObserved  string
	Parts         []string
}

// SeedResult reports preseed outcomes per input row.
type SeedResult struct {
	Created int
	Updated int
	Failed  int
}

// PreseedOrganizations loads a hierarchy seed in one transaction.
func (h *Handle) PreseedOrganizations(ctx context.Context, seeds []OrgSeed) (SeedResult, error) {
	records := make([]orgsvc.SeedRecord, len(seeds))
	for i, s := range seeds {
		records[i] = orgsvc.SeedRecord(s)
	}
	res, err := h.orgsvc.Preseed(ctx, records)
	return SeedResult(res), err
}

// EmploymentRecord is one raw employment row for ingest.
type EmploymentRecord struct {
	RawName       string
	CleanName     string
	LowerName     string
	Rank          string
	Org           string
	URL           string
	ParentOrgName string
	ParentOrgURL  string
	StartDate     time.Time
	EndDate       time.Time
	TenureDays    *int
	Tel           string
	Email         string
	Type          string
}

// IngestResult counts a batch outcome at employment-row granularity.
type IngestResult struct {
	TotalProcessed int
	Successful     int
	Failed         int
}

// BulkInsertRecords disambiguates and writes a batch of employment
// records.
func (h *Handle) BulkInsertRecords(ctx context.Context, records []EmploymentRecord) (IngestResult, error) {
	recs := make([]disambig.Record, len(records))
	for i, r := range records {
		recs[i] = disambig.Record(r)
	}
	res, err := h.ingest.BulkInsert(ctx, recs)
	return IngestResult(res), err
}

// AddEmploymentRecord writes a single employment record without
// disambiguation.
func (h *Handle) AddEmploymentRecord(ctx context.Context, record EmploymentRecord) error {
	return h.ingest.AddRecord(ctx, disambig.Record(record))
}

// TurnoverReport summarizes employee stints at a unit.
type TurnoverReport struct {
	Organization   string
	TotalEmployees int
	AvgTenureDays  float64
	Employees      []TurnoverEntry
}

// TurnoverEntry is one stint in a turnover report.
type TurnoverEntry struct {
	EmployeeName string
	Rank         string
	StartDate    time.Time
	EndDate      time.Time
	TenureDays   int
}

// OrganizationTurnover summarizes stints at a named unit, optionally
// bounded to [startDate, endDate].
func (h *Handle) OrganizationTurnover(ctx context.Context, orgName, startDate, endDate string) (*TurnoverReport, error) {
	var from, to *time.Time
	if startDate != "" && endDate != "" {
		s, err := parseDate(startDate)
		if err != nil {
			return nil, err
		}
		e, err := parseDate(endDate)
		if err != nil {
			return nil, err
		}
		from, to = &s, &e
	}
	t, err := h.querysvc.OrgTurnover(ctx, orgName, from, to)
	if err != nil {
		return nil, err
	}
	out := &TurnoverReport{
		Organization:   t.Organization,
		TotalEmployees: t.TotalEmployees,
		AvgTenureDays:  t.AvgTenureDays,
	}
	for _, e := range t.Employees {
		out.Employees = append(out.Employees, TurnoverEntry{
			EmployeeName: e.EmployeeName,
			Rank:         deref(e.Rank),
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			TenureDays:   derefInt(e.TenureDays),
		})
	}
	return out, nil
}

// SuccessionEntry is a predecessor/successor pair for the same rank
// at the same unit.
type SuccessionEntry struct {
	Organization   string
	Role           string
	Predecessor    string
	Successor      string
	PredecessorEnd time.Time
	SuccessorStart time.Time
	GapDays        int
}

// SuccessionPatterns finds predecessor/successor pairs where the
// successor started within maxGapDays of the predecessor's end.
func (h *Handle) SuccessionPatterns(ctx context.Context, maxGapDays int) ([]SuccessionEntry, error) {
	rows, err := h.querysvc.Successions(ctx, maxGapDays)
	if err != nil {
		return nil, err
	}
	out := make([]SuccessionEntry, len(rows))
	for i, r := range rows {
		out[i] = SuccessionEntry{
			Organization:   r.Organization,
			Role:           r.Role,
			Predecessor:    r.Predecessor,
			Successor:      r.Successor,
			PredecessorEnd: r.PredecessorEnd,
			SuccessorStart: r.SuccessorStart,
			GapDays:        r.GapDays,
		}
	}
	return out, nil
}

// Stats counts the stored entities.
type Stats struct {
	People            int
	Organizations     int
	EmploymentRecords int
}

// Stats gathers entity counts concurrently.
func (h *Handle) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := h.people.CountDistinctNames(gctx)
		s.People = n
		return err
	})
	g.Go(func() error {
		n, err := h.orgs.Count(gctx)
		s.Organizations = n
		return err
	})
	g.Go(func() error {
		n, err := h.emp.Count(gctx)
		s.EmploymentRecords = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
