package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/catalog/entities"
	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/interface/auth"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/go-spatial/geom/encoding/geojson"
	"github.com/go-spatial/geom/encoding/wkt"
)

// Client queries a resto-style product catalog
type Client struct {
	Endpoint  string
	Auth      TokenService
	NbRetries int
}

// NewClient creates a catalog client for the endpoint
func NewClient(endpoint string, tokens TokenService) *Client {
	return &Client{Endpoint: strings.TrimSuffix(endpoint, "/"), Auth: tokens, NbRetries: 3}
}

// SearchProducts implements ProductsProvider
func (c *Client) SearchProducts(ctx context.Context, query entities.Query, sensor common.Sensor, page int) ([]common.Product, int, error) {
	token, err := c.Auth.Acquire(ctx, auth.ServiceCatalog)
	if err != nil {
		return nil, 0, fmt.Errorf("SearchProducts.%w", err)
	}

	// Construct query
	productType := query.ProductType
	if productType == "" {
		productType = entities.DefaultProductType(sensor)
	}
	var parameters []string
	if productType != "" {
		parameters = append(parameters, "productType="+neturl.QueryEscape(productType))
	}
	if query.MaxCloudCover >= 0 {
		parameters = append(parameters, "cloudCover="+neturl.QueryEscape(fmt.Sprintf("[0,%g]", query.MaxCloudCover)))
	}
	for k, v := range query.Parameters {
		parameters = append(parameters, neturl.QueryEscape(k)+"="+neturl.QueryEscape(v))
	}

	// Append aoi
	parameters = append(parameters, "geometry="+neturl.QueryEscape(wkt.MustEncode(query.AOI)))

	// Append time
	parameters = append(parameters, fmt.Sprintf("startDate=%s&completionDate=%s",
		neturl.QueryEscape(query.StartTime.UTC().Format(time.RFC3339)),
		neturl.QueryEscape(query.EndTime.UTC().Format(time.RFC3339))))

	// Pagging
	parameters = append(parameters, fmt.Sprintf("maxRecords=%d&page=%d", query.PageSize, page+1))

	url := fmt.Sprintf("%s/collections/%s/search.json?%s", c.Endpoint, entities.Collection(sensor), strings.Join(parameters, "&"))

	// Load results
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("SearchProducts.NewRequest: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	jsonResults, err := service.GetBodyRetryReq(req, c.NbRetries)
	if err != nil {
		return nil, 0, fmt.Errorf("SearchProducts.GetBodyRetry: %w", err)
	}

	//JSON
	results := struct {
		Properties struct {
			TotalResults *int `json:"totalResults"`
		} `json:"properties"`
		Hits []productHit `json:"features"`
	}{}

	// Read results to retrieve products
	if err := json.Unmarshal(jsonResults, &results); err != nil {
		return nil, 0, fmt.Errorf("SearchProducts.Unmarshal: %w (response: %s)", err, jsonResults)
	}

	products := make([]common.Product, len(results.Hits))
	for i, hit := range results.Hits {
		if products[i], err = hit.toProduct(); err != nil {
			return nil, 0, fmt.Errorf("SearchProducts: %w", err)
		}
	}

	total := -1
	if results.Properties.TotalResults != nil {
		total = *results.Properties.TotalResults
	}
	return products, total, nil
}

type productHit struct {
	UID        string           `json:"id"`
	Footprint  geojson.Geometry `json:"geometry"`
	Properties struct {
		Identifier    string  `json:"title"`
		BeginPosition string  `json:"startDate"`
		ProductType   string  `json:"productType"`
		CloudCover    float64 `json:"cloudCover"`
		Status        string  `json:"status"`
		Size          int64   `json:"size"`
		Checksum      string  `json:"checksum"`
	} `json:"properties"`
}

// toProduct validates the record and maps it to a product
func (h productHit) toProduct() (common.Product, error) {
	if h.Properties.Identifier == "" {
		return common.Product{}, fmt.Errorf("record %s: missing title", h.UID)
	}
	id := strings.TrimSuffix(strings.TrimSuffix(h.Properties.Identifier, ".SAFE"), ".SEN3")
	date, err := time.Parse(time.RFC3339Nano, h.Properties.BeginPosition)
	if err != nil {
		return common.Product{}, fmt.Errorf("record %s: startDate: %w", id, err)
	}
	if h.Footprint.Geometry == nil {
		return common.Product{}, fmt.Errorf("record %s: missing geometry", id)
	}
	availability := common.AvailabilityONLINE
	if h.Properties.Status != "" {
		if availability, err = common.AvailabilityString(h.Properties.Status); err != nil {
			return common.Product{}, fmt.Errorf("record %s: %w", id, err)
		}
	}
	return common.Product{
		ID:              id,
		Sensor:          common.GetSensorFromProductID(id),
		AcquisitionTime: date,
		Footprint:       h.Footprint,
		SizeBytes:       h.Properties.Size,
		Checksum:        h.Properties.Checksum,
		Availability:    availability,
		ProductType:     h.Properties.ProductType,
		CloudCover:      h.Properties.CloudCover,
	}, nil
}
