package scan

import (
	"context"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type noopRepo struct{}

func NewNoopRepo() port.OpportunityRepository { return &noopRepo{} }

func (n *noopRepo) SaveRun(ctx context.Context, run model.ScanRun) error {
	return nil
}
func (n *noopRepo) SaveQuotes(ctx context.Context, runID string, quotes []model.FundingQuote) error {
	return nil
}
func (n *noopRepo) SaveOpportunities(ctx context.Context, runID string, opps []model.EnrichedOpportunity) error {
	return nil
}
func (n *noopRepo) Close() error { return nil }

type noopNotifier struct{}

func NewNoopNotifier() port.Notifier { return noopNotifier{} }

func (noopNotifier) Notify(ctx context.Context, opps []model.EnrichedOpportunity) error { return nil }
