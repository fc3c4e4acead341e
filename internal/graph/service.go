package graph

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/repo"
)

// Service owns the two cached graphs. Each graph builds lazily on
// first use and is dropped by Invalidate; readers always work on a
// consistent snapshot because a built graph is never mutated, only
// replaced.
type Service struct {
	emp  *repo.Employments
	orgs *repo.Orgs
	log  *zap.Logger

	mu        sync.RWMutex
	full      *Full
	colleague *Colleague
}

func NewService(emp *repo.Employments, orgs *repo.Orgs, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{emp: emp, orgs: orgs, log: log}
}

// Full returns the cached full history graph, building it if needed.
func (s *Service) Full(ctx context.Context) (*Full, error) {
	s.mu.RLock()
	f := s.full
	s.mu.RUnlock()
	if f != nil {
		return f, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full != nil {
		return s.full, nil
	}

	history, err := s.emp.AllHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load employment history: %w", err)
	}
	hierarchy, err := s.orgs.Hierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load org hierarchy: %w", err)
	}
	s.full = NewFull(history, hierarchy)
	s.log.Debug("full graph built",
		zap.Int("nodes", s.full.Order()),
		zap.Int("employment_edges", len(history)))
	return s.full, nil
}

// Colleague returns the cached colleague graph, building it if needed.
func (s *Service) Colleague(ctx context.Context) (*Colleague, error) {
	s.mu.RLock()
	c := s.colleague
	s.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.colleague != nil {
		return s.colleague, nil
	}

	history, err := s.emp.AllHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load employment history: %w", err)
	}
	s.colleague = NewColleague(history)
	s.log.Debug("colleague graph built", zap.Int("people", s.colleague.Order()))
	return s.colleague, nil
}

// Invalidate drops both cached graphs. The next read rebuilds from the
// store. Call after any write that changes employment or hierarchy.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.full = nil
	s.colleague = nil
	s.mu.Unlock()
	s.log.Debug("graph caches invalidated")
}
