package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/airbusgeo/sentinel-fetcher/catalog/entities"
	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/interface/catalog"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/airbusgeo/sentinel-fetcher/service/geometry"
	"github.com/airbusgeo/sentinel-fetcher/service/log"
)

// Done is returned by Iterator.Next when the search is exhausted
var Done = errors.New("no more products")

// InvalidQueryError is returned by Search before any network call
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return "invalid query: " + e.Reason
}

// UnavailableError is returned by Iterator.Next when the catalog retries are
// exhausted. The products already yielded stand, the iteration stops.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Engine searches the product catalog
type Engine struct {
	Provider catalog.ProductsProvider
}

// NewEngine creates an engine over the catalog provider
func NewEngine(provider catalog.ProductsProvider) *Engine {
	return &Engine{Provider: provider}
}

// Search validates the query and returns a lazy iterator over the matching
// products. Pages are fetched one at a time, a new Search restarts from the
// first page.
func (e *Engine) Search(ctx context.Context, query entities.Query) (*Iterator, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	log.Logger(ctx).Sugar().Debugf("search products from %v to %v (%d sensors)", query.StartTime, query.EndTime, len(query.Sensors))
	return &Iterator{
		provider: e.Provider,
		query:    query,
		seen:     service.StringSet{},
	}, nil
}

func validateQuery(q entities.Query) error {
	if len(q.Sensors) == 0 {
		return &InvalidQueryError{Reason: "at least one sensor is required"}
	}
	for _, sensor := range q.Sensors {
		if sensor == common.Unknown {
			return &InvalidQueryError{Reason: "unknown sensor"}
		}
	}
	if err := geometry.ValidAOI(q.AOI); err != nil {
		return &InvalidQueryError{Reason: fmt.Sprintf("area: %v", err)}
	}
	if q.StartTime.IsZero() || q.EndTime.IsZero() {
		return &InvalidQueryError{Reason: "start and end times are required"}
	}
	if q.StartTime.After(q.EndTime) {
		return &InvalidQueryError{Reason: "start time is after end time"}
	}
	if q.PageSize < 1 {
		return &InvalidQueryError{Reason: "page size must be at least 1"}
	}
	if q.MaxCloudCover > 100 {
		return &InvalidQueryError{Reason: "cloud cover must be a percentage"}
	}
	return nil
}
