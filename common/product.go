package common

import (
	"time"

	"github.com/go-spatial/geom/encoding/geojson"
)

//go:generate go run github.com/dmarkham/enumer -json -type Availability -trimprefix Availability

// Availability of a product on the download service.
// It is authoritative only at the instant it was fetched: archived products
// are restored asynchronously on the service side.
type Availability int

const (
	AvailabilityONLINE Availability = iota
	AvailabilityARCHIVED
)

// Product is one catalog entry. Immutable after creation.
type Product struct {
	ID              string           `json:"id"`
	Sensor          Sensor           `json:"sensor"`
	AcquisitionTime time.Time        `json:"acquisitionTime"`
	Footprint       geojson.Geometry `json:"footprint,omitempty"`
	SizeBytes       int64            `json:"sizeBytes"`
	Checksum        string           `json:"checksum,omitempty"` // MD5 hex, empty if the catalog has none
	Availability    Availability     `json:"availability"`

	// Optional attributes, filled when the catalog provides them
	ProductType string  `json:"productType,omitempty"`
	CloudCover  float64 `json:"cloudCover,omitempty"`
}

// FromID returns a product known only by its identifier (e.g. read from a product list).
// The remaining fields are filled by the download service at resolve time.
func FromID(productID string) Product {
	return Product{ID: productID, Sensor: GetSensorFromProductID(productID)}
}
