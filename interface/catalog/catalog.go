package catalog

import (
	"context"

	"github.com/airbusgeo/sentinel-fetcher/catalog/entities"
	"github.com/airbusgeo/sentinel-fetcher/common"
)

// ProductsProvider is the interface of a paginated product catalog
type ProductsProvider interface {
	// SearchProducts returns one page of the products matching the query for the sensor.
	// Pages are indexed from 0. The total number of matching products is returned
	// when the catalog provides it, else a negative value.
	SearchProducts(ctx context.Context, query entities.Query, sensor common.Sensor, page int) ([]common.Product, int, error)
}

// TokenService delivers the bearer tokens of the remote services
type TokenService interface {
	Acquire(ctx context.Context, serviceID string) (string, error)
}
