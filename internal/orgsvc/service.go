// Package orgsvc exposes organization hierarchy operations: seeding,
// subtree queries, change timelines, and structural diffs.
package orgsvc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/store"
)

// Beginner starts a transaction; *store.Store satisfies it.
type Beginner interface {
	store.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service wraps the organizations repository with hierarchy-level
// operations.
type Service struct {
	db         Beginner
	orgs       *repo.Orgs
	log        *zap.Logger
	invalidate func()
}

// Option configures a Service.
type Option func(*Service)

// WithInvalidator registers a hook run after any write that changes
// the hierarchy, used to drop graph caches.
func WithInvalidator(fn func()) Option {
	return func(s *Service) { s.invalidate = fn }
}

func NewService(db Beginner, orgs *repo.Orgs, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{db: db, orgs: orgs, log: log, invalidate: func() {}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedRecord is one row of hierarchy seed data.
type SeedRecord struct {
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

type seededOrg struct {
	id   int
	name string
}

// Preseed loads a hierarchy seed in one transaction, shallowest rows
// first so parents exist before their children. Parents are resolved
// from an in-memory url map filled as rows commit, falling back to the
// store for organizations seeded in earlier runs. A store error rolls
// back the whole seed and reports every row failed.
func (s *Service) Preseed(ctx context.Context, records []SeedRecord) (SeedResult, error) {
	s.log.Info("preseeding organizations", zap.Int("records", len(records)))

	sorted := make([]SeedRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Parts) < len(sorted[j].Parts)
	})

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return SeedResult{Failed: len(records)}, err
	}
	defer tx.Rollback(ctx)

	orgs := s.orgs.WithQuerier(tx)
	byURL := make(map[string]seededOrg)
	var res SeedResult

	for _, rec := range sorted {
		if rec.Name == "" || rec.URL == "" {
			s.log.Warn("skipping seed record with missing name or url",
				zap.String("name", rec.Name), zap.String("url", rec.URL))
			res.Failed++
			continue
		}

		existing, err := orgs.ByURL(ctx, rec.URL)
		if err != nil {
			return SeedResult{Failed: len(records)}, fmt.Errorf("preseed lookup %q: %w", rec.URL, err)
		}

		var parentID *int
		var department *string
		if rec.ParentURL != "" {
			parent, ok := byURL[rec.ParentURL]
			if !ok {
				stored, err := orgs.ByURL(ctx, rec.ParentURL)
				if err != nil {
					return SeedResult{Failed: len(records)}, fmt.Errorf("preseed parent lookup %q: %w", rec.ParentURL, err)
				}
				if stored != nil {
					parent = seededOrg{id: stored.ID, name: stored.Name}
					ok = true
				}
			}
			if ok {
				parentID = &parent.id
				department = &parent.name
			} else {
				s.log.Warn("parent not found, seeding as top level",
					zap.String("org", rec.Name), zap.String("parent_url", rec.ParentURL))
			}
		}

		attrs := repo.Attrs{"type": "organization", "source": "pre-seeded"}
		if rec.EntityType != "" {
			attrs["entity_type"] = rec.EntityType
		}
		if rec.FirstObserved != "" {
			attrs["first_observed"] = rec.FirstObserved
		}
		if rec.LastObserved != "" {
			attrs["last_observed"] = rec.LastObserved
		}
		if len(rec.Parts) > 0 {
			attrs["parts"] = rec.Parts
		}

		url := rec.URL
		id, err := orgs.Upsert(ctx, repo.OrgParams{
			Name:        rec.Name,
			Department:  department,
			URL:         &url,
			ParentOrgID: parentID,
			Attrs:       attrs,
		})
		if err != nil {
			return SeedResult{Failed: len(records)}, fmt.Errorf("preseed %q: %w", rec.Name, err)
		}

		if existing != nil {
			res.Updated++
		} else {
			res.Created++
		}
		byURL[rec.URL] = seededOrg{id: id, name: rec.Name}
	}

	if err := tx.Commit(ctx); err != nil {
		return SeedResult{Failed: len(records)}, fmt.Errorf("commit preseed: %w", err)
	}
	s.invalidate()

	s.log.Info("preseed complete",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed))
	return res, nil
}

// ParseOrgName splits a colon-delimited full name into the specific
// unit name (last segment) and the joined leading segments as the
// department.
func ParseOrgName(fullName string) (name string, department *string) {
	parts := strings.Split(fullName, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	name = parts[len(parts)-1]
	if len(parts) > 1 {
		d := strings.Join(parts[:len(parts)-1], " : ")
		department = &d
	}
	return name, department
}

// ResolveOrgID finds an organization by URL or creates it, creating
// its parent first when the parent is also unknown.
func (s *Service) ResolveOrgID(ctx context.Context, fullName, url, parentName, parentURL string) (int, error) {
	return s.resolveOrgID(ctx, s.orgs, fullName, url, parentName, parentURL)
}

// ResolveOrgIDIn is ResolveOrgID bound to a caller-held transaction.
func (s *Service) ResolveOrgIDIn(ctx context.Context, q store.Querier, fullName, url, parentName, parentURL string) (int, error) {
	return s.resolveOrgID(ctx, s.orgs.WithQuerier(q), fullName, url, parentName, parentURL)
}

func (s *Service) resolveOrgID(ctx context.Context, orgs *repo.Orgs, fullName, url, parentName, parentURL string) (int, error) {
	if url != "" {
		org, err := orgs.ByURL(ctx, url)
		if err != nil {
			return 0, err
		}
		if org != nil {
			return org.ID, nil
		}
	}

	parentID, err := s.resolveParentID(ctx, orgs, parentName, parentURL)
	if err != nil {
		return 0, err
	}

	s.log.Debug("organization not found by url, creating",
		zap.String("name", fullName), zap.String("url", url))
	name, department := ParseOrgName(fullName)
	params := repo.OrgParams{
		Name:        name,
		Department:  department,
		ParentOrgID: parentID,
		Attrs:       repo.Attrs{"type": "organization", "source_full_name": fullName},
	}
	if url != "" {
		params.URL = &url
	}
	return orgs.Upsert(ctx, params)
}

func (s *Service) resolveParentID(ctx context.Context, orgs *repo.Orgs, parentName, parentURL string) (*int, error) {
	if parentName == "" {
		return nil, nil
	}

	if parentURL != "" {
		parent, err := orgs.ByURL(ctx, parentURL)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			return &parent.ID, nil
		}

		name, department := ParseOrgName(parentName)
		url := parentURL
		id, err := orgs.Upsert(ctx, repo.OrgParams{
			Name:       name,
			Department: department,
			URL:        &url,
			Attrs:      repo.Attrs{"type": "organization", "source": "inferred_parent"},
		})
		if err != nil {
			return nil, fmt.Errorf("create parent org %q: %w", parentName, err)
		}
		s.log.Debug("created inferred parent org",
			zap.String("name", parentName), zap.Int("id", id))
		return &id, nil
	}

	s.log.Warn("parent org not resolvable without url, skipping link",
		zap.String("parent", parentName))
	return nil, nil
}

// Subtree returns every descendant of an organization.
func (s *Service) Subtree(ctx context.Context, orgID int) ([]repo.Org, error) {
	return s.orgs.Descendants(ctx, orgID)
}

// Children returns the direct children of an organization.
func (s *Service) Children(ctx context.Context, orgID int) ([]repo.Org, error) {
	return s.orgs.Children(ctx, orgID)
}

// SubtreeAtDate returns the descendants active on a date.
func (s *Service) SubtreeAtDate(ctx context.Context, orgID int, date time.Time) ([]repo.Org, error) {
	return s.orgs.DescendantsAtDate(ctx, orgID, date)
}

// Timeline returns the dates on which an organization's subtree was
// first or last observed, ascending. With distinct set, dates whose
// active descendant set matches the previous kept date are dropped, so
// each remaining date marks a structural change.
func (s *Service) Timeline(ctx context.Context, orgID int, distinct bool) ([]time.Time, error) {
	dates, err := s.orgs.TimelineDates(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !distinct || len(dates) < 2 {
		return dates, nil
	}

	var out []time.Time
	var prev map[int]struct{}
	for _, d := range dates {
		active, err := s.orgs.DescendantsAtDate(ctx, orgID, d)
		if err != nil {
			return nil, err
		}
		set := make(map[int]struct{}, len(active))
		for _, o := range active {
			set[o.ID] = struct{}{}
		}
		if prev != nil && sameIDs(prev, set) {
			continue
		}
		out = append(out, d)
		prev = set
	}
	return out, nil
}

func sameIDs(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// Diff tags each descendant of an organization as added, removed, or
// unchanged between two dates.
func (s *Service) Diff(ctx context.Context, orgID int, start, end time.Time) ([]repo.DescendantDiff, error) {
	return s.orgs.DescendantsDiff(ctx, orgID, start, end)
}

// ByDepth lists organizations at a hierarchy depth. Depth starts at 1.
func (s *Service) ByDepth(ctx context.Context, depth int) ([]repo.Org, error) {
	if depth < 1 {
		return nil, fmt.Errorf("%w: depth must be 1 or greater, got %d", store.ErrInvalidArgument, depth)
	}
	return s.orgs.ByDepth(ctx, depth)
}

// Base lists the top-level organizations.
func (s *Service) Base(ctx context.Context) ([]repo.Org, error) {
	return s.orgs.ByDepth(ctx, 1)
}

// Hierarchy returns the id, name, parent projection of every
// organization.
func (s *Service) Hierarchy(ctx context.Context) ([]repo.HierarchyEdge, error) {
	return s.orgs.Hierarchy(ctx)
}

// UpdateParent re-points an organization's parent and drops graph
// caches.
func (s *Service) UpdateParent(ctx context.Context, orgID int, parentID *int) error {
	ok, err := s.orgs.UpdateParent(ctx, orgID, parentID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("organization %d: %w", orgID, store.ErrNotFound)
	}
	s.invalidate()
	return nil
}
