package port

import (
	"context"

	"fundarb/internal/domain/model"
)

// OpportunityRepository 扫描结果持久化
type OpportunityRepository interface {
	SaveRun(ctx context.Context, run model.ScanRun) error
	SaveQuotes(ctx context.Context, runID string, quotes []model.FundingQuote) error
	SaveOpportunities(ctx context.Context, runID string, opps []model.EnrichedOpportunity) error

	// Connection management
	Close() error
}
