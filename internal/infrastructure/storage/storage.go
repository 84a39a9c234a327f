package storage

import (
	"context"
	"slices"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// InMemoryRepository keeps every saved run in process memory
type InMemoryRepository struct {
	mu            sync.RWMutex
	runs          []model.ScanRun
	quotes        map[string][]model.FundingQuote
	opportunities map[string][]model.EnrichedOpportunity
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		quotes:        make(map[string][]model.FundingQuote),
		opportunities: make(map[string][]model.EnrichedOpportunity),
	}
}

func (r *InMemoryRepository) SaveRun(ctx context.Context, run model.ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *InMemoryRepository) SaveQuotes(ctx context.Context, runID string, quotes []model.FundingQuote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes[runID] = append(r.quotes[runID], quotes...)
	return nil
}

func (r *InMemoryRepository) SaveOpportunities(ctx context.Context, runID string, opps []model.EnrichedOpportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opportunities[runID] = append(r.opportunities[runID], opps...)
	return nil
}

// Runs returns saved runs in insertion order
func (r *InMemoryRepository) Runs() []model.ScanRun {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.runs)
}

func (r *InMemoryRepository) Quotes(runID string) []model.FundingQuote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.quotes[runID])
}

func (r *InMemoryRepository) Opportunities(runID string) []model.EnrichedOpportunity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.opportunities[runID])
}

func (r *InMemoryRepository) Close() error {
	return nil
}

var _ port.OpportunityRepository = (*InMemoryRepository)(nil)
