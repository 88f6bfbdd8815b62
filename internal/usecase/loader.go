package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PersonalQT/internal/domain/models"
	drepo "PersonalQT/internal/domain/repository"
	"PersonalQT/internal/store"
	"PersonalQT/pkg/cache"
	xhttp "PersonalQT/pkg/http"
	applogger "PersonalQT/pkg/logger"
	"PersonalQT/pkg/scheduler"
)

const (
	cachePrefix = "loader"
	// maxPages stops a misbehaving backend from paging forever.
	maxPages = 100
)

// ErrTooManyPages means a list did not end within maxPages pages.
var ErrTooManyPages = errors.New("loader: list exceeds page limit")

// Sources are the backend lists the loader reads from.
type Sources struct {
	Categories   drepo.Lister[models.Category]
	StockTrades  drepo.Lister[models.StockTrade]
	FailureCases drepo.Lister[models.FailureCase]
	DailyReviews drepo.Lister[models.DailyReview]
	DailyFunds   drepo.Lister[models.DailyFund]
}

// LoaderOption configures Loader.
type LoaderOption func(*Loader)

// WithCache reads through c, keeping fetched collections for ttl.
func WithCache(c cache.Service, ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		l.cache = c
		l.ttl = ttl
	}
}

// WithPageSize sets the page size used to walk each collection.
func WithPageSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithLoaderMetrics records fetch outcomes.
func WithLoaderMetrics(m drepo.Metrics) LoaderOption {
	return func(l *Loader) {
		if m != nil {
			l.metrics = m
		}
	}
}

// WithLoaderLogger sets the loader logger.
func WithLoaderLogger(lg *applogger.Logger) LoaderOption {
	return func(l *Loader) {
		if lg != nil {
			l.log = lg
		}
	}
}

// FetchOption tunes a single fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	force bool
}

// Force skips the cache and refreshes it.
func Force() FetchOption {
	return func(o *fetchOptions) { o.force = true }
}

// Loader fetches whole collections from the backend and commits each one to
// the store through its setter. A failed fetch leaves its collection as it was.
type Loader struct {
	src      Sources
	store    *store.Store
	cache    cache.Service
	ttl      time.Duration
	pageSize int
	metrics  drepo.Metrics
	log      *applogger.Logger
}

// NewLoader creates a Loader committing into st.
func NewLoader(src Sources, st *store.Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		src:      src,
		store:    st,
		ttl:      time.Minute,
		pageSize: 100,
		metrics:  drepo.NopMetrics{},
		log:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("loader")
	return l
}

func (l *Loader) FetchCategories(ctx context.Context, opts ...FetchOption) ([]models.Category, error) {
	return fetch(ctx, l, models.CollectionCategories, l.src.Categories, l.store.SetCategories, opts)
}

func (l *Loader) FetchStockTrades(ctx context.Context, opts ...FetchOption) ([]models.StockTrade, error) {
	return fetch(ctx, l, models.CollectionStockTrades, l.src.StockTrades, l.store.SetStockTrades, opts)
}

func (l *Loader) FetchFailureCases(ctx context.Context, opts ...FetchOption) ([]models.FailureCase, error) {
	return fetch(ctx, l, models.CollectionFailureCases, l.src.FailureCases, l.store.SetFailureCases, opts)
}

func (l *Loader) FetchDailyReviews(ctx context.Context, opts ...FetchOption) ([]models.DailyReview, error) {
	return fetch(ctx, l, models.CollectionDailyReviews, l.src.DailyReviews, l.store.SetDailyReviews, opts)
}

func (l *Loader) FetchDailyFunds(ctx context.Context, opts ...FetchOption) ([]models.DailyFund, error) {
	return fetch(ctx, l, models.CollectionDailyFunds, l.src.DailyFunds, l.store.SetDailyFunds, opts)
}

// Fetch loads one collection by name and returns how many records it holds.
func (l *Loader) Fetch(ctx context.Context, c models.Collection, opts ...FetchOption) (int, error) {
	var n int
	var err error
	switch c {
	case models.CollectionCategories:
		n, err = count(l.FetchCategories(ctx, opts...))
	case models.CollectionStockTrades:
		n, err = count(l.FetchStockTrades(ctx, opts...))
	case models.CollectionFailureCases:
		n, err = count(l.FetchFailureCases(ctx, opts...))
	case models.CollectionDailyReviews:
		n, err = count(l.FetchDailyReviews(ctx, opts...))
	case models.CollectionDailyFunds:
		n, err = count(l.FetchDailyFunds(ctx, opts...))
	default:
		return 0, fmt.Errorf("loader: unknown collection %q", c)
	}
	return n, err
}

// FetchAll loads every collection concurrently. Each success is committed on
// its own; failures are joined into the returned error.
func (l *Loader) FetchAll(ctx context.Context, opts ...FetchOption) error {
	start := time.Now()
	collections := models.Collections()
	errs := make([]error, len(collections))

	var wg sync.WaitGroup
	for i, c := range collections {
		wg.Add(1)
		go func(i int, c models.Collection) {
			defer wg.Done()
			_, errs[i] = l.Fetch(ctx, c, opts...)
		}(i, c)
	}
	wg.Wait()

	err := errors.Join(errs...)
	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}
	l.log.Info("sync finished",
		applogger.Int("collections", len(collections)),
		applogger.Int("failed", failed),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return err
}

// Invalidate drops cached copies of the given collections, or of all of
// them when none are named.
func (l *Loader) Invalidate(ctx context.Context, collections ...models.Collection) error {
	if l.cache == nil {
		return nil
	}
	if len(collections) == 0 {
		return l.cache.DeleteByPattern(ctx, cache.BuildPattern(cachePrefix))
	}
	keys := make([]string, len(collections))
	for i, c := range collections {
		keys[i] = cacheKey(c)
	}
	return l.cache.Delete(ctx, keys...)
}

// SyncJob wraps FetchAll for the scheduler. Scheduled runs always go to the
// backend.
func (l *Loader) SyncJob() scheduler.Job {
	return scheduler.JobFunc{
		JobName: "sync-collections",
		Fn: func(ctx context.Context) error {
			return l.FetchAll(ctx, Force())
		},
	}
}

func fetch[T any](ctx context.Context, l *Loader, c models.Collection, src drepo.Lister[T], commit func([]T), opts []FetchOption) ([]T, error) {
	if src == nil {
		return nil, fmt.Errorf("loader: no source for %s", c)
	}
	o := fetchOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	key := cacheKey(c)

	var items []T
	hit := false
	if l.cache != nil && !o.force {
		hit = l.cache.Get(ctx, key, &items) == nil
		l.metrics.RecordCacheLookup(c.String(), hit)
	}

	if !hit {
		var err error
		items, err = listAll(ctx, src, l.pageSize)
		if err != nil {
			l.metrics.RecordFetch(c.String(), time.Since(start).Seconds(), err)
			l.metrics.RecordError("fetch_" + xhttp.Classify(err).String())
			l.log.Error("fetch failed", applogger.String("collection", c.String()), applogger.Error(err))
			return nil, fmt.Errorf("fetch %s: %w", c, err)
		}
		if l.cache != nil {
			if err := l.cache.Set(ctx, key, items, l.ttl); err != nil {
				l.log.Warn("cache write failed", applogger.String("collection", c.String()), applogger.Error(err))
			}
		}
	}

	commit(items)
	l.metrics.RecordFetch(c.String(), time.Since(start).Seconds(), nil)
	l.log.Debug("collection committed",
		applogger.String("collection", c.String()),
		applogger.Int("count", len(items)),
		applogger.Bool("cached", hit),
	)
	return items, nil
}

// listAll walks the list endpoint page by page until a short page. A list
// still going after maxPages full pages is an error, never a partial result.
func listAll[T any](ctx context.Context, src drepo.Lister[T], pageSize int) ([]T, error) {
	all := []T{}
	for page := 0; page <= maxPages; page++ {
		batch, err := src.List(ctx, models.ListParams{Skip: page * pageSize, Limit: pageSize})
		if err != nil {
			return nil, err
		}
		if page == maxPages {
			if len(batch) == 0 {
				return all, nil
			}
			return nil, fmt.Errorf("%w: more than %d pages of %d", ErrTooManyPages, maxPages, pageSize)
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			return all, nil
		}
	}
	return all, nil
}

func cacheKey(c models.Collection) string {
	return cache.GenerateKey(cachePrefix, c.String())
}

func count[T any](items []T, err error) (int, error) {
	return len(items), err
}
