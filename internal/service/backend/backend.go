package backend

import (
	"context"
	"net/url"
	"strconv"

	"PersonalQT/internal/domain/models"
	xhttp "PersonalQT/pkg/http"
)

// Backend is typed access to the journal API.
type Backend struct {
	client *xhttp.Client

	Categories   *Resource[models.Category, models.CategoryInput, models.CategoryInput]
	StockTrades  *StockTrades
	FailureCases *Resource[models.FailureCase, models.FailureCaseInput, models.FailureCaseUpdate]
	DailyReviews *DailyReviews
	DailyFunds   *DailyFunds
}

// New builds a Backend over client.
func New(client *xhttp.Client) *Backend {
	return &Backend{
		client:       client,
		Categories:   NewResource[models.Category, models.CategoryInput, models.CategoryInput](client, "/categories/"),
		StockTrades:  &StockTrades{NewResource[models.StockTrade, models.StockTradeInput, models.StockTradeUpdate](client, "/stock-trades/")},
		FailureCases: NewResource[models.FailureCase, models.FailureCaseInput, models.FailureCaseUpdate](client, "/failure-cases/"),
		DailyReviews: &DailyReviews{NewResource[models.DailyReview, models.DailyReviewInput, models.DailyReviewUpdate](client, "/daily-reviews/")},
		DailyFunds:   &DailyFunds{NewResource[models.DailyFund, models.DailyFundInput, models.DailyFundUpdate](client, "/daily-funds/")},
	}
}

// Health asks the backend for its own status.
func (b *Backend) Health(ctx context.Context) (models.Health, error) {
	var h models.Health
	err := b.client.Get(ctx, "/health", nil, &h)
	return h, err
}

// StockTrades adds filtering to the stock trade resource.
type StockTrades struct {
	*Resource[models.StockTrade, models.StockTradeInput, models.StockTradeUpdate]
}

// Filter lists trades by category, buy date window and sort order.
func (s *StockTrades) Filter(ctx context.Context, f models.StockTradeFilter) ([]models.StockTrade, error) {
	return s.list(ctx, s.path, checked(&f, func(o *xhttp.RequestOptions) {
		o.QueryParams = f.Values()
	}))
}

// DailyReviews adds date lookup to the daily review resource.
type DailyReviews struct {
	*Resource[models.DailyReview, models.DailyReviewInput, models.DailyReviewUpdate]
}

// ByDate reads the review written for day.
func (d *DailyReviews) ByDate(ctx context.Context, day models.Date) (models.DailyReview, error) {
	var out models.DailyReview
	err := d.client.Get(ctx, d.path+"by-date/"+day.String(), nil, &out)
	return out, err
}

// DailyFunds adds date and window lookups to the daily fund resource.
type DailyFunds struct {
	*Resource[models.DailyFund, models.DailyFundInput, models.DailyFundUpdate]
}

// recentWindow bounds Recent's days argument.
type recentWindow struct {
	Days int `json:"days" validate:"gt=0,lt=366"`
}

// ByDate reads the fund record for day.
func (d *DailyFunds) ByDate(ctx context.Context, day models.Date) (models.DailyFund, error) {
	var out models.DailyFund
	err := d.client.Get(ctx, d.path+"date/"+day.String(), nil, &out)
	return out, err
}

// Recent lists the last days of fund records, oldest first.
func (d *DailyFunds) Recent(ctx context.Context, days int) ([]models.DailyFund, error) {
	w := recentWindow{Days: days}
	return d.list(ctx, d.path+"recent", checked(&w, func(o *xhttp.RequestOptions) {
		o.QueryParams = url.Values{"days": {strconv.Itoa(w.Days)}}
	}))
}

// Filter lists fund records within a date window, newest first.
func (d *DailyFunds) Filter(ctx context.Context, f models.DailyFundFilter) ([]models.DailyFund, error) {
	return d.list(ctx, d.path, checked(&f, func(o *xhttp.RequestOptions) {
		o.QueryParams = f.Values()
	}))
}
