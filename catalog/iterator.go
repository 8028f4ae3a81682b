package catalog

import (
	"context"
	"fmt"

	"github.com/airbusgeo/sentinel-fetcher/catalog/entities"
	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/interface/catalog"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/airbusgeo/sentinel-fetcher/service/log"
)

// Iterator iterates over the products matching a query, fetching one backend
// page at a time. Not safe for concurrent use.
type Iterator struct {
	provider  catalog.ProductsProvider
	query     entities.Query
	sensorIdx int
	page      int
	fetched   int
	buffer    []common.Product
	seen      service.StringSet
	truncated bool
	done      bool
	err       error
}

// Next returns the next product of the search.
// It returns Done when the search is exhausted and *UnavailableError when the
// catalog retries are exhausted; in both cases the iteration is over and the
// products already yielded stand.
func (it *Iterator) Next(ctx context.Context) (common.Product, error) {
	for len(it.buffer) == 0 {
		if it.err != nil {
			return common.Product{}, it.err
		}
		if it.done {
			return common.Product{}, Done
		}
		if err := it.fetchPage(ctx); err != nil {
			it.truncated = true
			it.err = &UnavailableError{Err: err}
			return common.Product{}, it.err
		}
	}
	product := it.buffer[0]
	it.buffer = it.buffer[1:]
	return product, nil
}

// Collect drains the iterator.
// On error, the products already fetched are returned along with the error.
func (it *Iterator) Collect(ctx context.Context) ([]common.Product, error) {
	var products []common.Product
	for {
		product, err := it.Next(ctx)
		if err == Done {
			return products, nil
		}
		if err != nil {
			return products, err
		}
		products = append(products, product)
	}
}

// Truncated returns whether the search ended before all the results were delivered
func (it *Iterator) Truncated() bool {
	return it.truncated
}

// fetchPage loads the next page into the buffer, skipping the products
// already yielded, and advances to the next sensor at the end of a collection.
func (it *Iterator) fetchPage(ctx context.Context) error {
	sensor := it.query.Sensors[it.sensorIdx]
	products, total, err := it.provider.SearchProducts(ctx, it.query, sensor, it.page)
	if err != nil {
		return fmt.Errorf("fetchPage[%s:%d]: %w", sensor, it.page, err)
	}
	log.Logger(ctx).Sugar().Debugf("%s page %d: %d products", sensor, it.page+1, len(products))

	it.page++
	it.fetched += len(products)
	for _, product := range products {
		if it.seen.Exists(product.ID) {
			continue
		}
		it.seen.Push(product.ID)
		it.buffer = append(it.buffer, product)
	}

	// End of the collection: short page or total count exhausted
	if len(products) < it.query.PageSize || (total >= 0 && it.fetched >= total) {
		it.sensorIdx++
		it.page = 0
		it.fetched = 0
		if it.sensorIdx >= len(it.query.Sensors) {
			it.done = true
		}
	}
	return nil
}
