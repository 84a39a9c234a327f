package composite

import (
	"context"
	"errors"
	"testing"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct {
	*storage.InMemoryRepository
	err error
}

func (f failingRepo) SaveRun(ctx context.Context, run model.ScanRun) error { return f.err }

func (f failingRepo) Close() error { return f.err }

func TestCompositeFansOut(t *testing.T) {
	a := storage.NewInMemoryRepository()
	b := storage.NewInMemoryRepository()
	repo := New(a, nil, b)
	require.Equal(t, 2, repo.Len())

	ctx := context.Background()
	require.NoError(t, repo.SaveRun(ctx, model.ScanRun{ID: "r1"}))
	require.NoError(t, repo.SaveQuotes(ctx, "r1", []model.FundingQuote{{Exchange: "bybit", Symbol: "BTC/USDT:USDT"}}))
	require.NoError(t, repo.SaveOpportunities(ctx, "r1", []model.EnrichedOpportunity{{}}))

	for _, r := range []*storage.InMemoryRepository{a, b} {
		assert.Len(t, r.Runs(), 1)
		assert.Len(t, r.Quotes("r1"), 1)
		assert.Len(t, r.Opportunities("r1"), 1)
	}
}

func TestCompositeKeepsFirstErrorAndContinues(t *testing.T) {
	boom := errors.New("boom")
	healthy := storage.NewInMemoryRepository()
	var broken port.OpportunityRepository = failingRepo{InMemoryRepository: storage.NewInMemoryRepository(), err: boom}
	repo := New(broken, healthy)

	err := repo.SaveRun(context.Background(), model.ScanRun{ID: "r1"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, healthy.Runs(), 1)

	assert.ErrorIs(t, repo.Close(), boom)
}
