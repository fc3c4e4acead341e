// Package nameres resolves a free-form name query to the clean names
// it plausibly refers to, in three stages: a store prefilter, a
// token-set refinement against the query, and pairwise corroboration
// among the survivors.
package nameres

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/store"
)

// CandidateSource supplies the stage-one candidate pool, normally the
// people repository's trigram search with its substring fallback.
type CandidateSource interface {
	SearchCleanNames(ctx context.Context, query string, minSim float64, limit int) ([]repo.NameCandidate, error)
}

// Defaults mirror the resolver's tuning for directory data.
const (
	DefaultTrigramThreshold  = 0.3
	DefaultPrimaryThreshold  = 0.3
	DefaultPairwiseThreshold = 0.8
	DefaultMaxResults        = 10
	DefaultMinStrongLinks    = 1

	// Stage one always over-fetches so the refinement stages have a
	// meaningful pool to work with.
	minCandidatePool = 20
)

// Resolver runs the three-stage pipeline.
type Resolver struct {
	source CandidateSource
	log    *zap.Logger

	trigramThreshold  float64
	primaryThreshold  float64
	pairwiseThreshold float64
	maxResults        int
	pairwiseEnabled   bool
	minStrongLinks    int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTrigramThreshold sets the stage-one similarity floor.
func WithTrigramThreshold(v float64) Option {
	return func(r *Resolver) { r.trigramThreshold = v }
}

// WithPrimaryThreshold sets the stage-two token-set floor against the
// query, as a fraction.
func WithPrimaryThreshold(v float64) Option {
	return func(r *Resolver) { r.primaryThreshold = v }
}

// WithPairwiseThreshold sets the stage-three link strength floor, as a
// fraction.
func WithPairwiseThreshold(v float64) Option {
	return func(r *Resolver) { r.pairwiseThreshold = v }
}

// WithMaxResults caps the resolved name list.
func WithMaxResults(k int) Option {
	return func(r *Resolver) { r.maxResults = k }
}

// WithPairwiseFilter toggles stage three.
func WithPairwiseFilter(enabled bool) Option {
	return func(r *Resolver) { r.pairwiseEnabled = enabled }
}

// WithMinStrongLinks sets how many strong pairwise links a survivor
// needs.
func WithMinStrongLinks(n int) Option {
	return func(r *Resolver) { r.minStrongLinks = n }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

func New(source CandidateSource, opts ...Option) *Resolver {
	r := &Resolver{
		source:            source,
		log:               zap.NewNop(),
		trigramThreshold:  DefaultTrigramThreshold,
		primaryThreshold:  DefaultPrimaryThreshold,
		pairwiseThreshold: DefaultPairwiseThreshold,
		maxResults:        DefaultMaxResults,
		pairwiseEnabled:   true,
		minStrongLinks:    DefaultMinStrongLinks,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type scoredName struct {
	name    string
	primary int
	links   int
}

// Resolve returns up to maxResults clean names the query plausibly
// refers to, best first. An empty result means no name survived the
// pipeline; that is not an error.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty name query", store.ErrInvalidArgument)
	}

	pool := r.maxResults * 5
	if pool < minCandidatePool {
		pool = minCandidatePool
	}
	candidates, err := r.source.SearchCleanNames(ctx, query, r.trigramThreshold, pool)
	if err != nil {
		return nil, fmt.Errorf("candidate search: %w", err)
	}
	if len(candidates) == 0 {
		r.log.Debug("no stage-one candidates", zap.String("query", query))
		return nil, nil
	}

	// Stage two: token-set ratio against the query. Thresholds are
	// integer percentages.
	primaryFloor := int(r.primaryThreshold * 100)
	refined := make([]scoredName, 0, len(candidates))
	for _, cand := range candidates {
		score := TokenSetRatio(query, cand.CleanName)
		if score >= primaryFloor {
			refined = append(refined, scoredName{name: cand.CleanName, primary: score})
		}
	}
	if len(refined) == 0 {
		r.log.Debug("no candidates passed primary refinement",
			zap.String("query", query), zap.Int("floor", primaryFloor))
		return nil, nil
	}
	sort.SliceStable(refined, func(i, j int) bool {
		return refined[i].primary > refined[j].primary
	})

	// Stage three: pairwise corroboration. Skipped when disabled or
	// when the pool is too small to corroborate anything.
	if r.pairwiseEnabled && len(refined) > 1 && len(refined) > r.minStrongLinks {
		pairwiseFloor := int(r.pairwiseThreshold * 100)
		kept := refined[:0:0]
		for i, cand := range refined {
			links := 0
			for j, other := range refined {
				if i == j {
					continue
				}
				if TokenSetRatio(cand.name, other.name) >= pairwiseFloor {
					links++
				}
			}
			if links >= r.minStrongLinks {
				cand.links = links
				kept = append(kept, cand)
			}
		}
		if len(kept) == 0 {
			r.log.Debug("no candidates passed pairwise corroboration",
				zap.String("query", query))
			return nil, nil
		}
		sort.SliceStable(kept, func(i, j int) bool {
			if kept[i].links != kept[j].links {
				return kept[i].links > kept[j].links
			}
			return kept[i].primary > kept[j].primary
		})
		refined = kept
	}

	if len(refined) > r.maxResults {
		refined = refined[:r.maxResults]
	}
	names := make([]string, len(refined))
	for i, cand := range refined {
		names[i] = cand.name
	}
	r.log.Debug("resolved name query",
		zap.String("query", query), zap.Strings("names", names))
	return names, nil
}
