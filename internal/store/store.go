package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"PersonalQT/internal/domain/models"
	"PersonalQT/internal/domain/repository"
	applogger "PersonalQT/pkg/logger"
)

var ErrClosed = errors.New("store: closed")

// Change announces that a collection was replaced.
type Change struct {
	Collection models.Collection `json:"collection"`
	Count      int               `json:"count"`
	At         time.Time         `json:"at"`
}

// Snapshot is a point-in-time copy of every collection.
type Snapshot struct {
	Categories   []models.Category    `json:"categories"`
	StockTrades  []models.StockTrade  `json:"stockTrades"`
	FailureCases []models.FailureCase `json:"failureCases"`
	DailyReviews []models.DailyReview `json:"dailyReviews"`
	DailyFunds   []models.DailyFund   `json:"dailyFunds"`
}

// Option configures Store.
type Option func(*Store)

// WithMetrics records every mutation.
func WithMetrics(m repository.Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSubscriberBuffer sets how many pending changes a subscriber may hold
// before further changes are dropped for it.
func WithSubscriberBuffer(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// Store owns the five collections. Collections are only ever replaced
// whole, one at a time, through the Set* methods; getters hand out copies.
type Store struct {
	mu           sync.RWMutex
	categories   []models.Category
	stockTrades  []models.StockTrade
	failureCases []models.FailureCase
	dailyReviews []models.DailyReview
	dailyFunds   []models.DailyFund
	// sealed is set by Close under mu; later writes are dropped.
	sealed bool

	subMu  sync.Mutex
	subs   map[int]chan Change
	nextID int
	closed bool
	buffer int

	metrics repository.Metrics
	log     *applogger.Logger
	now     func() time.Time
}

// New creates a store with every collection empty.
func New(opts ...Option) *Store {
	s := &Store{
		subs:    make(map[int]chan Change),
		buffer:  16,
		metrics: repository.NopMetrics{},
		log:     applogger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("store")
	s.reset()
	return s
}

func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.categories)
}

func (s *Store) StockTrades() []models.StockTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.stockTrades)
}

func (s *Store) FailureCases() []models.FailureCase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.failureCases)
}

func (s *Store) DailyReviews() []models.DailyReview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.dailyReviews)
}

func (s *Store) DailyFunds() []models.DailyFund {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.dailyFunds)
}

// SetCategories replaces the categories collection.
func (s *Store) SetCategories(v []models.Category) {
	replace(s, &s.categories, models.CollectionCategories, v)
}

// SetStockTrades replaces the stock trades collection.
func (s *Store) SetStockTrades(v []models.StockTrade) {
	replace(s, &s.stockTrades, models.CollectionStockTrades, v)
}

// SetFailureCases replaces the failure cases collection.
func (s *Store) SetFailureCases(v []models.FailureCase) {
	replace(s, &s.failureCases, models.CollectionFailureCases, v)
}

// SetDailyReviews replaces the daily reviews collection.
func (s *Store) SetDailyReviews(v []models.DailyReview) {
	replace(s, &s.dailyReviews, models.CollectionDailyReviews, v)
}

// SetDailyFunds replaces the daily funds collection.
func (s *Store) SetDailyFunds(v []models.DailyFund) {
	replace(s, &s.dailyFunds, models.CollectionDailyFunds, v)
}

// Snapshot copies every collection under one read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Categories:   clone(s.categories),
		StockTrades:  clone(s.stockTrades),
		FailureCases: clone(s.failureCases),
		DailyReviews: clone(s.dailyReviews),
		DailyFunds:   clone(s.dailyFunds),
	}
}

// Get returns a copy of the named collection.
func (s *Store) Get(c models.Collection) (interface{}, error) {
	switch c {
	case models.CollectionCategories:
		return s.Categories(), nil
	case models.CollectionStockTrades:
		return s.StockTrades(), nil
	case models.CollectionFailureCases:
		return s.FailureCases(), nil
	case models.CollectionDailyReviews:
		return s.DailyReviews(), nil
	case models.CollectionDailyFunds:
		return s.DailyFunds(), nil
	}
	return nil, fmt.Errorf("store: unknown collection %q", c)
}

// Count reports how many records a collection holds.
func (s *Store) Count(c models.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch c {
	case models.CollectionCategories:
		return len(s.categories)
	case models.CollectionStockTrades:
		return len(s.stockTrades)
	case models.CollectionFailureCases:
		return len(s.failureCases)
	case models.CollectionDailyReviews:
		return len(s.dailyReviews)
	case models.CollectionDailyFunds:
		return len(s.dailyFunds)
	}
	return 0
}

// Subscribe returns a channel of changes and a func that cancels the
// subscription. A subscriber that falls behind misses changes rather than
// blocking writers.
func (s *Store) Subscribe() (<-chan Change, func(), error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.closed {
		return nil, nil, ErrClosed
	}

	id := s.nextID
	s.nextID++
	ch := make(chan Change, s.buffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel, nil
}

// Close ends every subscription and empties the collections. Set* calls
// after Close are ignored.
func (s *Store) Close() error {
	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subMu.Unlock()

	s.mu.Lock()
	s.sealed = true
	s.reset()
	s.mu.Unlock()

	s.log.Info("store closed")
	return nil
}

func (s *Store) reset() {
	s.categories = []models.Category{}
	s.stockTrades = []models.StockTrade{}
	s.failureCases = []models.FailureCase{}
	s.dailyReviews = []models.DailyReview{}
	s.dailyFunds = []models.DailyFund{}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- c:
		default:
			s.log.Warn("subscriber behind, change dropped",
				applogger.Int("subscriber", id),
				applogger.String("collection", c.Collection.String()),
			)
		}
	}
}

func replace[T any](s *Store, slot *[]T, c models.Collection, v []T) {
	next := clone(v)

	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		s.metrics.RecordError("store_write_after_close")
		s.log.Warn("write after close ignored", applogger.String("collection", c.String()))
		return
	}
	*slot = next
	s.mu.Unlock()

	s.metrics.RecordMutation(c.String(), len(next))
	s.log.Debug("collection replaced", applogger.String("collection", c.String()), applogger.Int("count", len(next)))
	s.publish(Change{Collection: c, Count: len(next), At: s.now()})
}

// clone returns a non-nil copy of v.
func clone[T any](v []T) []T {
	out := make([]T, len(v))
	copy(out, v)
	return out
}
