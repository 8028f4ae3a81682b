package entities

import (
	"time"

	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/go-spatial/geom"
)

// DefaultPageSize of the catalog queries
const DefaultPageSize = 100

// Query is the input of a catalog search.
// A query is never mutated: each page request derives its own parameters.
type Query struct {
	Sensors       []common.Sensor
	AOI           geom.Polygon
	StartTime     time.Time
	EndTime       time.Time
	ProductType   string            // per-sensor default if empty
	MaxCloudCover float64           // percentage in [0,100], negative disables the filter
	PageSize      int
	Parameters    map[string]string // extra raw query parameters
}

// NewQuery creates a query with the default page size and no cloud cover filter
func NewQuery(sensors ...common.Sensor) Query {
	return Query{Sensors: sensors, MaxCloudCover: -1, PageSize: DefaultPageSize}
}

// DefaultProductType returns the product type queried when the query does not provide one
func DefaultProductType(sensor common.Sensor) string {
	switch sensor {
	case common.Sentinel1:
		return "GRD"
	case common.Sentinel2:
		return "S2MSI1C"
	case common.Sentinel3:
		return "OL_1_EFR___"
	}
	return ""
}

// Collection returns the catalog collection holding the products of the sensor
func Collection(sensor common.Sensor) string {
	return sensor.String()
}
