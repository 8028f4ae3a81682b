package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/go-spatial/geom/encoding/geojson"
)

// WriteProductList writes the identifiers of the products to a text file, one per line
func WriteProductList(path string, products []common.Product) error {
	ids := make([]string, len(products))
	for i, product := range products {
		ids[i] = product.ID
	}
	if err := common.WriteProductListFile(path, ids); err != nil {
		return fmt.Errorf("WriteProductList: %w", err)
	}
	return nil
}

type footprintFeature struct {
	Type       string                 `json:"type"`
	Geometry   geojson.Geometry       `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type footprintCollection struct {
	Type     string             `json:"type"`
	Features []footprintFeature `json:"features"`
}

// WriteFootprints writes the products as a GeoJSON FeatureCollection
func WriteFootprints(path string, products []common.Product) error {
	collection := footprintCollection{Type: "FeatureCollection", Features: make([]footprintFeature, len(products))}
	for i, product := range products {
		collection.Features[i] = footprintFeature{
			Type:     "Feature",
			Geometry: product.Footprint,
			Properties: map[string]interface{}{
				"title":        product.ID,
				"startDate":    product.AcquisitionTime.UTC().Format(time.RFC3339),
				"productType":  product.ProductType,
				"size":         product.SizeBytes,
				"availability": product.Availability.String(),
				"cloudCover":   product.CloudCover,
			},
		}
	}
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("WriteFootprints.Marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("WriteFootprints.WriteFile: %w", err)
	}
	return nil
}
