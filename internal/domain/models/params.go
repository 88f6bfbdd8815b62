package models

import (
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ListParams pages a backend list endpoint.
type ListParams struct {
	Skip  int `json:"skip" query:"skip" default:"0" validate:"gte=0"`
	Limit int `json:"limit" query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// Values encodes the params as a query string.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	v.Set("skip", strconv.Itoa(p.Skip))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

// StockTradeFilter narrows the stock trade list.
type StockTradeFilter struct {
	ListParams
	CategoryID *uuid.UUID `json:"category_id,omitempty" query:"category_id"`
	StartDate  *time.Time `json:"start_date,omitempty" query:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty" query:"end_date"`
	SortBy     string     `json:"sort_by,omitempty" query:"sort_by" validate:"omitempty,oneof=buy_date profit_amount profit_percentage"`
	SortOrder  string     `json:"sort_order,omitempty" query:"sort_order" default:"desc" validate:"oneof=asc desc"`
}

// Values encodes the filter as a query string; unset filters are omitted.
func (f StockTradeFilter) Values() url.Values {
	v := f.ListParams.Values()
	if f.CategoryID != nil {
		v.Set("category_id", f.CategoryID.String())
	}
	if f.StartDate != nil {
		v.Set("start_date", f.StartDate.UTC().Format(time.RFC3339))
	}
	if f.EndDate != nil {
		v.Set("end_date", f.EndDate.UTC().Format(time.RFC3339))
	}
	if f.SortBy != "" {
		v.Set("sort_by", f.SortBy)
	}
	if f.SortOrder != "" {
		v.Set("sort_order", f.SortOrder)
	}
	return v
}

// DailyFundFilter narrows the daily fund list to a date window.
type DailyFundFilter struct {
	ListParams
	StartDate *Date `json:"start_date,omitempty"`
	EndDate   *Date `json:"end_date,omitempty"`
}

// Values encodes the filter as a query string.
func (f DailyFundFilter) Values() url.Values {
	v := f.ListParams.Values()
	if f.StartDate != nil {
		v.Set("start_date", f.StartDate.String())
	}
	if f.EndDate != nil {
		v.Set("end_date", f.EndDate.String())
	}
	return v
}

// Health is the backend health report.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
