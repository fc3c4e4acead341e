// Package disambig splits same-name employment records into clusters,
// one per distinct identity, using career-cohesion heuristics.
package disambig

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/rank"
)

// Record is one raw employment record as it arrives from a directory
// scrape, before any identity has been assigned.
type Record struct {
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

// AncestorSource resolves a unit URL to the name of its top-level
// ancestor. Unknown units resolve to "UNKNOWN".
type AncestorSource interface {
	TopAncestorName(ctx context.Context, orgURL string) (string, error)
}

// Cohesion scoring terms. Tuned against directory data; the absolute
// values only matter relative to the threshold.
const (
	scoreSameParentMinistry = 5
	scoreLogicalPromotion   = 3
	scoreLateralMove        = 1
	scoreIllogicalDemotion  = -10
	scoreImmediateSucc      = 4
	scoreQuickSucc          = 2
	scoreSoftOverlap        = -2

	demotionTolerance = 3

	immediateSuccessionDays = 30
	quickSuccessionDays     = 180
)

const defaultThreshold = 1

const unknownMinistry = "UNKNOWN"

// Disambiguator clusters records for a single clean name.
type Disambiguator struct {
	ancestors AncestorSource
	parser    *rank.Parser
	threshold int
	log       *zap.Logger
}

// Option configures a Disambiguator.
type Option func(*Disambiguator)

// WithThreshold overrides the minimum cohesion score a record needs to
// join an existing cluster.
func WithThreshold(threshold int) Option {
	return func(d *Disambiguator) { d.threshold = threshold }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Disambiguator) { d.log = log }
}

func New(ancestors AncestorSource, opts ...Option) *Disambiguator {
	d := &Disambiguator{
		ancestors: ancestors,
		parser:    rank.NewParser(),
		threshold: defaultThreshold,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type enriched struct {
	rec            Record
	rankScore      int
	parentMinistry string
	permitsOverlap bool
}

// Cluster splits the records, all sharing one clean name, into
// clusters that each represent a distinct identity. Records are
// processed chronologically; ties between equally cohesive clusters go
// to the earliest-created cluster.
func (d *Disambiguator) Cluster(ctx context.Context, records []Record) ([][]Record, error) {
	enrichedRecords := make([]enriched, 0, len(records))
	for _, rec := range records {
		e, err := d.enrich(ctx, rec)
		if err != nil {
			return nil, err
		}
		enrichedRecords = append(enrichedRecords, e)
	}

	sort.SliceStable(enrichedRecords, func(i, j int) bool {
		a, b := enrichedRecords[i].rec, enrichedRecords[j].rec
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.RawName < b.RawName
	})

	var clusters [][]enriched
	for _, e := range enrichedRecords {
		best := -1
		maxScore := -999

		for i, cluster := range clusters {
			if hasHardConflict(e, cluster) {
				continue
			}
			score := 0
			for _, member := range cluster {
				score += d.cohesion(e, member)
			}
			if score > maxScore {
				maxScore = score
				best = i
			}
		}

		if best != -1 && maxScore >= d.threshold {
			clusters[best] = append(clusters[best], e)
		} else {
			clusters = append(clusters, []enriched{e})
		}
	}

	out := make([][]Record, len(clusters))
	for i, cluster := range clusters {
		out[i] = make([]Record, len(cluster))
		for j, e := range cluster {
			out[i][j] = e.rec
		}
	}
	if len(out) > 1 {
		d.log.Debug("name split into multiple identities",
			zap.String("clean_name", records[0].CleanName),
			zap.Int("identities", len(out)))
	}
	return out, nil
}

func (d *Disambiguator) enrich(ctx context.Context, rec Record) (enriched, error) {
	ministry := unknownMinistry
	if rec.URL != "" {
		name, err := d.ancestors.TopAncestorName(ctx, rec.URL)
		if err != nil {
			return enriched{}, fmt.Errorf("resolve ministry for %q: %w", rec.URL, err)
		}
		ministry = name
	}
	return enriched{
		rec:            rec,
		rankScore:      d.parser.Parse(rec.Rank),
		parentMinistry: ministry,
		permitsOverlap: d.parser.PermitsOverlap(rec.Rank),
	}, nil
}

func overlaps(a, b Record) bool {
	return !a.StartDate.After(b.EndDate) && !a.EndDate.Before(b.StartDate)
}

// hasHardConflict reports whether the record overlaps a cluster member
// with both roles full-time. Overlapping advisory or board roles are
// soft conflicts, handled by scoring.
func hasHardConflict(e enriched, cluster []enriched) bool {
	for _, member := range cluster {
		if !overlaps(e.rec, member.rec) {
			continue
		}
		if !e.permitsOverlap && !member.permitsOverlap {
			return true
		}
	}
	return false
}

// cohesion scores how plausibly the new record continues the career
// represented by an existing cluster member.
func (d *Disambiguator) cohesion(newRec, member enriched) int {
	score := 0
	if newRec.parentMinistry == member.parentMinistry {
		score += scoreSameParentMinistry
	}

	if overlaps(newRec.rec, member.rec) {
		score += scoreSoftOverlap
		return score
	}

	switch {
	case newRec.rankScore > member.rankScore:
		score += scoreLogicalPromotion
	case newRec.rankScore == member.rankScore:
		score += scoreLateralMove
	case member.rankScore-newRec.rankScore > demotionTolerance:
		score += scoreIllogicalDemotion
	}

	gapDays := int(newRec.rec.StartDate.Sub(member.rec.EndDate).Hours() / 24)
	switch {
	case gapDays >= 0 && gapDays < immediateSuccessionDays:
		score += scoreImmediateSucc
	case gapDays >= immediateSuccessionDays && gapDays < quickSuccessionDays:
		score += scoreQuickSucc
	}

	return score
}
