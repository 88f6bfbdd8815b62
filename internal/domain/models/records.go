package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups stock trades.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// StockTrade is one buy, optionally closed by a sell. Profit fields are
// computed by the backend for closed trades and carried through untouched.
type StockTrade struct {
	ID               uuid.UUID        `json:"id"`
	StockCode        string           `json:"stock_code"`
	StockName        string           `json:"stock_name"`
	BuyDate          Timestamp        `json:"buy_date"`
	BuyPrice         decimal.Decimal  `json:"buy_price"`
	BuyQuantity      int              `json:"buy_quantity"`
	BuyReason        string           `json:"buy_reason"`
	CategoryID       uuid.UUID        `json:"category_id"`
	SellDate         *Timestamp       `json:"sell_date"`
	SellPrice        *decimal.Decimal `json:"sell_price"`
	ScreenshotURL    []string         `json:"screenshot_url"`
	ProfitAmount     *decimal.Decimal `json:"profit_amount"`
	ProfitPercentage *decimal.Decimal `json:"profit_percentage"`
	CreatedAt        Timestamp        `json:"created_at"`
	UpdatedAt        Timestamp        `json:"updated_at"`
}

// Closed reports whether the trade has been sold.
func (t StockTrade) Closed() bool {
	return t.SellDate != nil && t.SellPrice != nil
}

// FailureCase records a failed trade or decision and what was learned.
type FailureCase struct {
	ID        uuid.UUID `json:"id"`
	StockCode string    `json:"stock_code"`
	StockName string    `json:"stock_name"`
	Images    []string  `json:"images"`
	Reason    string    `json:"reason"`
	Lessons   string    `json:"lessons"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// DailyReview is the market review written for one day.
type DailyReview struct {
	ID               uuid.UUID       `json:"id"`
	ReviewDate       Date            `json:"review_date"`
	MarketIndex      decimal.Decimal `json:"market_index"`
	TradingAmount    decimal.Decimal `json:"trading_amount"`
	MarketChangeRate decimal.Decimal `json:"market_change_rate"`
	LimitUpCount     int             `json:"limit_up_count"`
	LimitDownCount   int             `json:"limit_down_count"`
	RiseCount        int             `json:"rise_count"`
	FallCount        int             `json:"fall_count"`
	Content          string          `json:"content"`
	CreatedAt        Timestamp       `json:"created_at"`
	UpdatedAt        Timestamp       `json:"updated_at"`
}

// DailyFund is one point on the fund curve.
type DailyFund struct {
	ID          uuid.UUID       `json:"id"`
	FundDate    Date            `json:"fund_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Notes       *string         `json:"notes"`
	CreatedAt   Timestamp       `json:"created_at"`
	UpdatedAt   Timestamp       `json:"updated_at"`
}
