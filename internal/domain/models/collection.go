package models

import "fmt"

// Collection names one of the five record sets held by the store.
type Collection string

const (
	CollectionCategories   Collection = "categories"
	CollectionStockTrades  Collection = "stockTrades"
	CollectionFailureCases Collection = "failureCases"
	CollectionDailyReviews Collection = "dailyReviews"
	CollectionDailyFunds   Collection = "dailyFunds"
)

// Collections lists every collection in display order.
func Collections() []Collection {
	return []Collection{
		CollectionCategories,
		CollectionStockTrades,
		CollectionFailureCases,
		CollectionDailyReviews,
		CollectionDailyFunds,
	}
}

// ParseCollection accepts a collection name.
func ParseCollection(s string) (Collection, error) {
	for _, c := range Collections() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

func (c Collection) String() string { return string(c) }
