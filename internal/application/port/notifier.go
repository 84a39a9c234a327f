package port

import (
	"context"

	"fundarb/internal/domain/model"
)

// Notifier 机会推送
type Notifier interface {
	Notify(ctx context.Context, opps []model.EnrichedOpportunity) error
}
