package repository

import (
	"context"

	"PersonalQT/internal/domain/models"
)

// Lister reads one page of a backend collection.
type Lister[T any] interface {
	List(ctx context.Context, p models.ListParams) ([]T, error)
}

// Metrics records store and loader activity.
type Metrics interface {
	RecordMutation(collection string, size int)
	RecordFetch(collection string, seconds float64, err error)
	RecordCacheLookup(collection string, hit bool)
	RecordError(kind string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordMutation(string, int)         {}
func (NopMetrics) RecordFetch(string, float64, error) {}
func (NopMetrics) RecordCacheLookup(string, bool)     {}
func (NopMetrics) RecordError(string)                 {}
