package composite

import (
	"context"
	"errors"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type Repo struct {
	repos []port.OpportunityRepository
}

func New(repos ...port.OpportunityRepository) *Repo {
	// 构造时过滤 nil
	out := make([]port.OpportunityRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

// Len 有效后端数量
func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) SaveRun(ctx context.Context, run model.ScanRun) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveRun(ctx, run); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) SaveQuotes(ctx context.Context, runID string, quotes []model.FundingQuote) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveQuotes(ctx, runID, quotes); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) SaveOpportunities(ctx context.Context, runID string, opps []model.EnrichedOpportunity) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveOpportunities(ctx, runID, opps); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Close() error {
	var errs []error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ port.OpportunityRepository = (*Repo)(nil)
