package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryInput creates or replaces a category.
type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=50"`
	Description *string `json:"description,omitempty"`
}

// StockTradeInput creates a stock trade.
type StockTradeInput struct {
	StockCode     string           `json:"stock_code" validate:"required,max=10"`
	StockName     string           `json:"stock_name" validate:"required,max=50"`
	BuyDate       Timestamp        `json:"buy_date" validate:"required"`
	BuyPrice      decimal.Decimal  `json:"buy_price" validate:"gt=0"`
	BuyQuantity   int              `json:"buy_quantity" validate:"gt=0"`
	BuyReason     string           `json:"buy_reason" validate:"required"`
	CategoryID    uuid.UUID        `json:"category_id" validate:"required"`
	SellDate      *Timestamp       `json:"sell_date,omitempty"`
	SellPrice     *decimal.Decimal `json:"sell_price,omitempty"`
	ScreenshotURL []string         `json:"screenshot_url,omitempty" validate:"omitempty,dive,required"`
}

// StockTradeUpdate patches a stock trade; nil fields are left unchanged.
type StockTradeUpdate struct {
	StockCode     *string          `json:"stock_code,omitempty" validate:"omitempty,max=10"`
	StockName     *string          `json:"stock_name,omitempty" validate:"omitempty,max=50"`
	BuyDate       *Timestamp       `json:"buy_date,omitempty"`
	BuyPrice      *decimal.Decimal `json:"buy_price,omitempty" validate:"omitempty,gt=0"`
	BuyQuantity   *int             `json:"buy_quantity,omitempty" validate:"omitempty,gt=0"`
	BuyReason     *string          `json:"buy_reason,omitempty"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	SellDate      *Timestamp       `json:"sell_date,omitempty"`
	SellPrice     *decimal.Decimal `json:"sell_price,omitempty"`
	ScreenshotURL []string         `json:"screenshot_url,omitempty"`
}

// FailureCaseInput creates a failure case.
type FailureCaseInput struct {
	StockCode string   `json:"stock_code" validate:"required,max=10"`
	StockName string   `json:"stock_name" validate:"required,max=50"`
	Images    []string `json:"images" validate:"required,dive,required"`
	Reason    string   `json:"reason" validate:"required"`
	Lessons   string   `json:"lessons" validate:"required"`
}

// FailureCaseUpdate patches a failure case.
type FailureCaseUpdate struct {
	StockCode *string  `json:"stock_code,omitempty" validate:"omitempty,max=10"`
	StockName *string  `json:"stock_name,omitempty" validate:"omitempty,max=50"`
	Images    []string `json:"images,omitempty"`
	Reason    *string  `json:"reason,omitempty"`
	Lessons   *string  `json:"lessons,omitempty"`
}

// DailyReviewInput creates a daily review.
type DailyReviewInput struct {
	ReviewDate       Date            `json:"review_date" validate:"required"`
	MarketIndex      decimal.Decimal `json:"market_index"`
	TradingAmount    decimal.Decimal `json:"trading_amount"`
	MarketChangeRate decimal.Decimal `json:"market_change_rate"`
	LimitUpCount     int             `json:"limit_up_count" validate:"gte=0"`
	LimitDownCount   int             `json:"limit_down_count" validate:"gte=0"`
	RiseCount        int             `json:"rise_count" validate:"gte=0"`
	FallCount        int             `json:"fall_count" validate:"gte=0"`
	Content          string          `json:"content" validate:"required"`
}

// DailyReviewUpdate patches a daily review.
type DailyReviewUpdate struct {
	ReviewDate       *Date            `json:"review_date,omitempty"`
	MarketIndex      *decimal.Decimal `json:"market_index,omitempty"`
	TradingAmount    *decimal.Decimal `json:"trading_amount,omitempty"`
	MarketChangeRate *decimal.Decimal `json:"market_change_rate,omitempty"`
	LimitUpCount     *int             `json:"limit_up_count,omitempty" validate:"omitempty,gte=0"`
	LimitDownCount   *int             `json:"limit_down_count,omitempty" validate:"omitempty,gte=0"`
	RiseCount        *int             `json:"rise_count,omitempty" validate:"omitempty,gte=0"`
	FallCount        *int             `json:"fall_count,omitempty" validate:"omitempty,gte=0"`
	Content          *string          `json:"content,omitempty"`
}

// DailyFundInput creates a daily fund record.
type DailyFundInput struct {
	FundDate    Date            `json:"fund_date" validate:"required"`
	TotalAmount decimal.Decimal `json:"total_amount" validate:"gte=0"`
	Notes       *string         `json:"notes,omitempty"`
}

// DailyFundUpdate patches a daily fund record.
type DailyFundUpdate struct {
	FundDate    *Date            `json:"fund_date,omitempty"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty" validate:"omitempty,gte=0"`
	Notes       *string          `json:"notes,omitempty"`
}
