// Package ingest loads raw employment records into the store: records
// are grouped by name, disambiguated into per-person clusters, and
// written one transaction per cluster.
package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/disambig"
	"github.com/kasw/orgtrace/internal/orgsvc"
	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/store"
)

// Beginner starts a transaction; *store.Store satisfies it.
type Beginner interface {
	store.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Refresher refreshes the colleague pairs view after a batch.
type Refresher interface {
	RefreshColleaguePairs(ctx context.Context) error
}

// Service writes employment data.
type Service struct {
	db         Beginner
	people     *repo.People
	emp        *repo.Employments
	orgs       *orgsvc.Service
	dis        *disambig.Disambiguator
	schema     Refresher
	log        *zap.Logger
	invalidate func()
}

// Option configures a Service.
type Option func(*Service)

// WithInvalidator registers a hook run after a successful batch, used
// to drop graph caches.
func WithInvalidator(fn func()) Option {
	return func(s *Service) { s.invalidate = fn }
}

func NewService(
	db Beginner,
	people *repo.People,
	emp *repo.Employments,
	orgs *orgsvc.Service,
	dis *disambig.Disambiguator,
	schema Refresher,
	log *zap.Logger,
	opts ...Option,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		db: db, people: people, emp: emp, orgs: orgs,
		dis: dis, schema: schema, log: log,
		invalidate: func() {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result counts the batch outcome at employment-record granularity.
type Result struct {
	TotalProcessed int
	Successful     int
	Failed         int
}

// BulkInsert groups the records by clean name, splits each group into
// identity clusters, and writes each cluster in its own transaction
// with an ascending disambiguation key. A failed cluster rolls back
// only itself and counts its records failed. After the batch the
// colleague pairs view is refreshed and graph caches are dropped.
func (s *Service) BulkInsert(ctx context.Context, records []disambig.Record) (Result, error) {
	res := Result{TotalProcessed: len(records)}

	groups := make(map[string][]disambig.Record)
	var order []string
	for _, rec := range records {
		if _, ok := groups[rec.CleanName]; !ok {
			order = append(order, rec.CleanName)
		}
		groups[rec.CleanName] = append(groups[rec.CleanName], rec)
	}
	s.log.Info("ingesting employment records",
		zap.Int("records", len(records)), zap.Int("names", len(groups)))

	for _, name := range order {
		group := groups[name]
		clusters, err := s.dis.Cluster(ctx, group)
		if err != nil {
			s.log.Error("disambiguation failed, skipping name group",
				zap.String("name", name), zap.Error(err))
			res.Failed += len(group)
			continue
		}

		for i, cluster := range clusters {
			ok, failed, err := s.writeCluster(ctx, name, i+1, cluster)
			if err != nil {
				s.log.Error("cluster write failed, rolled back",
					zap.String("name", name),
					zap.Int("disambiguation_key", i+1),
					zap.Error(err))
				res.Failed += len(cluster)
				continue
			}
			res.Successful += ok
			res.Failed += failed
		}
	}

	if s.schema != nil {
		if err := s.schema.RefreshColleaguePairs(ctx); err != nil {
			s.log.Error("refreshing colleague pairs failed", zap.Error(err))
		}
	}
	s.invalidate()

	s.log.Info("ingest finished",
		zap.Int("successful", res.Successful), zap.Int("failed", res.Failed))
	return res, nil
}

// writeCluster writes one identity and its employment records in a
// single transaction. Records whose organization cannot be resolved
// are skipped and counted failed; any store error aborts the cluster.
func (s *Service) writeCluster(ctx context.Context, name string, key int, cluster []disambig.Record) (ok, failed int, err error) {
	if len(cluster) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	people := s.people.WithQuerier(tx)
	emp := s.emp.WithQuerier(tx)

	first := cluster[0]
	personID, err := people.Upsert(ctx, repo.PersonParams{
		Name:              name,
		CleanName:         first.CleanName,
		Tel:               optional(first.Tel),
		Email:             optional(first.Email),
		DisambiguationKey: key,
		Attrs:             personAttrs(first),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("upsert person %q: %w", name, err)
	}

	for _, rec := range cluster {
		orgID, err := s.orgs.ResolveOrgIDIn(ctx, tx, rec.Org, rec.URL, rec.ParentOrgName, rec.ParentOrgURL)
		if err != nil {
			return 0, 0, fmt.Errorf("resolve org %q: %w", rec.Org, err)
		}
		if orgID == 0 {
			s.log.Warn("organization unresolved, skipping employment",
				zap.String("org", rec.Org))
			failed++
			continue
		}

		_, err = emp.Upsert(ctx, repo.EmploymentParams{
			PersonID:   personID,
			OrgID:      orgID,
			Rank:       optional(rec.Rank),
			StartDate:  rec.StartDate,
			EndDate:    rec.EndDate,
			TenureDays: rec.TenureDays,
			RawName:    optional(rec.RawName),
			Attrs: repo.Attrs{
				"lower_name":                rec.LowerName,
				"source_url_for_employment": rec.URL,
			},
		})
		if err != nil {
			return 0, 0, fmt.Errorf("upsert employment at %q: %w", rec.Org, err)
		}
		ok++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit cluster: %w", err)
	}
	return ok, failed, nil
}

// AddRecord writes a single employment record without disambiguation,
// in one transaction.
func (s *Service) AddRecord(ctx context.Context, rec disambig.Record) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	people := s.people.WithQuerier(tx)
	emp := s.emp.WithQuerier(tx)

	personID, err := people.Upsert(ctx, repo.PersonParams{
		Name:      rec.CleanName,
		CleanName: rec.CleanName,
		Tel:       optional(rec.Tel),
		Email:     optional(rec.Email),
		Attrs:     personAttrs(rec),
	})
	if err != nil {
		return fmt.Errorf("upsert person %q: %w", rec.CleanName, err)
	}

	orgID, err := s.orgs.ResolveOrgIDIn(ctx, tx, rec.Org, rec.URL, rec.ParentOrgName, rec.ParentOrgURL)
	if err != nil {
		return fmt.Errorf("resolve org %q: %w", rec.Org, err)
	}

	_, err = emp.Upsert(ctx, repo.EmploymentParams{
		PersonID:   personID,
		OrgID:      orgID,
		Rank:       optional(rec.Rank),
		StartDate:  rec.StartDate,
		EndDate:    rec.EndDate,
		TenureDays: rec.TenureDays,
		RawName:    optional(rec.RawName),
		Attrs: repo.Attrs{
			"lower_name":                rec.LowerName,
			"source_url_for_employment": rec.URL,
		},
	})
	if err != nil {
		return fmt.Errorf("upsert employment at %q: %w", rec.Org, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	s.invalidate()
	return nil
}

func personAttrs(rec disambig.Record) repo.Attrs {
	typ := rec.Type
	if typ == "" {
		typ = "person"
	}
	return repo.Attrs{"raw_name": rec.RawName, "type": typ}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// OrgAncestors resolves a unit's top-level ancestor from the store:
// the root of its parent chain, the unit itself when it has no parent,
// or UNKNOWN for units not yet ingested.
type OrgAncestors struct {
	orgs *repo.Orgs
}

func NewOrgAncestors(orgs *repo.Orgs) *OrgAncestors {
	return &OrgAncestors{orgs: orgs}
}

func (a *OrgAncestors) TopAncestorName(ctx context.Context, orgURL string) (string, error) {
	if orgURL == "" {
		return "UNKNOWN", nil
	}
	org, err := a.orgs.ByURL(ctx, orgURL)
	if err != nil {
		return "", err
	}
	if org == nil {
		return "UNKNOWN", nil
	}
	chain, err := a.orgs.Ancestors(ctx, org.ID)
	if err != nil {
		return "", err
	}
	if len(chain) > 0 {
		return chain[0].Name, nil
	}
	return org.Name, nil
}
