package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PersonalQT/internal/domain/models"
	"PersonalQT/internal/store"
	"PersonalQT/pkg/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister[T any] struct {
	mu    sync.Mutex
	items []T
	err   error
	calls int
	pages []models.ListParams
}

func (s *stubLister[T]) List(_ context.Context, p models.ListParams) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.pages = append(s.pages, p)
	if s.err != nil {
		return nil, s.err
	}
	if p.Skip >= len(s.items) {
		return []T{}, nil
	}
	end := p.Skip + p.Limit
	if end > len(s.items) {
		end = len(s.items)
	}
	return append([]T(nil), s.items[p.Skip:end]...), nil
}

func (s *stubLister[T]) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixture struct {
	cats    *stubLister[models.Category]
	trades  *stubLister[models.StockTrade]
	cases   *stubLister[models.FailureCase]
	reviews *stubLister[models.DailyReview]
	funds   *stubLister[models.DailyFund]
	store   *store.Store
}

func newFixture() *fixture {
	return &fixture{
		cats:    &stubLister[models.Category]{items: []models.Category{{ID: uuid.New(), Name: "A"}}},
		trades:  &stubLister[models.StockTrade]{items: []models.StockTrade{{StockCode: "600519"}}},
		cases:   &stubLister[models.FailureCase]{},
		reviews: &stubLister[models.DailyReview]{items: []models.DailyReview{{Content: "x"}}},
		funds:   &stubLister[models.DailyFund]{items: []models.DailyFund{{}, {}}},
		store:   store.New(),
	}
}

func (f *fixture) loader(opts ...LoaderOption) *Loader {
	return NewLoader(Sources{
		Categories:   f.cats,
		StockTrades:  f.trades,
		FailureCases: f.cases,
		DailyReviews: f.reviews,
		DailyFunds:   f.funds,
	}, f.store, opts...)
}

func TestFetchCommitsToStore(t *testing.T) {
	f := newFixture()
	l := f.loader()

	got, err := l.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.cats.items, got)
	assert.Equal(t, f.cats.items, f.store.Categories())
	assert.Empty(t, f.store.StockTrades())
}

func TestFetchFailureLeavesCollectionUntouched(t *testing.T) {
	f := newFixture()
	prior := []models.DailyFund{{Notes: nil}}
	f.store.SetDailyFunds(prior)

	boom := errors.New("backend down")
	f.funds.err = boom

	_, err := f.loader().Fetch(context.Background(), models.CollectionDailyFunds)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, prior, f.store.DailyFunds())
}

func TestFetchAllJoinsErrorsAndCommitsTheRest(t *testing.T) {
	f := newFixture()
	boom := errors.New("reviews down")
	f.reviews.err = boom

	err := f.loader().FetchAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	snap := f.store.Snapshot()
	assert.Len(t, snap.Categories, 1)
	assert.Len(t, snap.StockTrades, 1)
	assert.Len(t, snap.DailyFunds, 2)
	assert.Empty(t, snap.DailyReviews)
}

func TestFetchAllSucceeds(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.loader().FetchAll(context.Background()))
	assert.Equal(t, 1, f.store.Count(models.CollectionCategories))
	assert.Equal(t, 2, f.store.Count(models.CollectionDailyFunds))
}

func TestFetchUnknownCollection(t *testing.T) {
	_, err := newFixture().loader().Fetch(context.Background(), "orders")
	assert.Error(t, err)
}

func TestFetchWalksPages(t *testing.T) {
	f := newFixture()
	f.funds.items = make([]models.DailyFund, 5)

	n, err := f.loader(WithPageSize(2)).Fetch(context.Background(), models.CollectionDailyFunds)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, f.funds.Calls())
	assert.Equal(t, models.ListParams{Skip: 4, Limit: 2}, f.funds.pages[2])
}

func TestFetchRejectsListBeyondPageLimit(t *testing.T) {
	f := newFixture()
	prior := []models.Category{{Name: "kept"}}
	f.store.SetCategories(prior)
	f.cats.items = make([]models.Category, maxPages+50)

	_, err := f.loader(WithPageSize(1)).Fetch(context.Background(), models.CollectionCategories)
	require.ErrorIs(t, err, ErrTooManyPages)
	assert.Equal(t, prior, f.store.Categories())
	assert.Equal(t, maxPages+1, f.cats.Calls())
}

func TestFetchAcceptsListEndingAtPageLimit(t *testing.T) {
	f := newFixture()
	f.cats.items = make([]models.Category, maxPages)

	n, err := f.loader(WithPageSize(1)).Fetch(context.Background(), models.CollectionCategories)
	require.NoError(t, err)
	assert.Equal(t, maxPages, n)
	assert.Len(t, f.store.Categories(), maxPages)
}

func TestFetchReadsThroughCache(t *testing.T) {
	f := newFixture()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	l := f.loader(WithCache(mc, time.Minute))
	ctx := context.Background()

	_, err := l.FetchCategories(ctx)
	require.NoError(t, err)
	f.store.SetCategories(nil)

	got, err := l.FetchCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cats.Calls())
	assert.Equal(t, f.cats.items[0].ID, got[0].ID)
	assert.Len(t, f.store.Categories(), 1)

	_, err = l.FetchCategories(ctx, Force())
	require.NoError(t, err)
	assert.Equal(t, 2, f.cats.Calls())

	require.NoError(t, l.Invalidate(ctx, models.CollectionCategories))
	_, err = l.FetchCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, f.cats.Calls())

	require.NoError(t, l.Invalidate(ctx))
	ok, err := mc.Exists(ctx, cacheKey(models.CollectionCategories))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncJobForcesRefresh(t *testing.T) {
	f := newFixture()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	l := f.loader(WithCache(mc, time.Minute))

	job := l.SyncJob()
	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, f.cats.Calls())
	assert.Equal(t, "sync-collections", job.Name())
}
