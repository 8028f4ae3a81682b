package provider

import (
	"context"
	"fmt"

	"github.com/airbusgeo/sentinel-fetcher/common"
)

// Metadata of a product on the download service.
// The UID is the internal identifier the service downloads by.
type Metadata struct {
	UID          string
	Availability common.Availability
	SizeBytes    int64
	Checksum     string
}

// ProductProvider is the interface of the product download service
type ProductProvider interface {
	// Resolve fetches the current metadata of the product.
	// The availability is authoritative, unlike the catalog snapshot.
	Resolve(ctx context.Context, productID string) (Metadata, error)

	// Order asks for the restoration of an archived product
	Order(ctx context.Context, productID string) error

	// Download the product to localPath, resuming an existing partial file
	Download(ctx context.Context, productID, uid, localPath string) error
}

// TokenService delivers the bearer tokens of the remote services
type TokenService interface {
	Acquire(ctx context.Context, serviceID string) (string, error)
}

// NotFoundError is returned when the download service does not know the product
type NotFoundError struct {
	Product string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found or unavailable: %s", e.Product)
}

func (e *NotFoundError) Fatal() bool {
	return true
}

// RateLimitedError is returned when the service rejects a request because the
// account exceeds its request or concurrent-session ceiling. Retryable.
type RateLimitedError struct {
	Product string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by the download service (product %s)", e.Product)
}

func (e *RateLimitedError) Temporary() bool {
	return true
}
