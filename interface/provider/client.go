package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/interface/auth"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/airbusgeo/sentinel-fetcher/service/log"
	"github.com/cavaliercoder/grab"
	"golang.org/x/time/rate"
)

// Client is the product download service client.
// Every request waits on the service rate limiter, independently of the
// number of workers issuing requests.
type Client struct {
	Endpoint string
	Auth     TokenService
	Limiter  *rate.Limiter
	grab     *grab.Client
	http     *http.Client
}

// NewClient creates a download client for the endpoint.
// requestsPerSecond <= 0 disables the rate limiter.
func NewClient(endpoint string, tokens TokenService, requestsPerSecond float64) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	grabClient := grab.NewClient()
	grabClient.HTTPClient.CheckRedirect = checkRedirectAndCopyAuth
	return &Client{
		Endpoint: strings.TrimSuffix(endpoint, "/"),
		Auth:     tokens,
		Limiter:  rate.NewLimiter(limit, 1),
		grab:     grabClient,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Resolve implements ProductProvider
func (c *Client) Resolve(ctx context.Context, productID string) (Metadata, error) {
	url := fmt.Sprintf("%s/products/%s", c.Endpoint, neturl.PathEscape(productID))
	body, err := c.doGet(ctx, productID, url)
	if err != nil {
		return Metadata{}, fmt.Errorf("Resolve.%w", err)
	}

	metadata := struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Size     int64  `json:"size"`
		Checksum string `json:"checksum"`
	}{}
	if err := json.Unmarshal(body, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("Resolve.Unmarshal: %w (response: %s)", err, body)
	}
	if metadata.ID == "" {
		return Metadata{}, fmt.Errorf("Resolve[%s]: uid not found in %s", productID, body)
	}
	availability, err := common.AvailabilityString(metadata.Status)
	if err != nil {
		return Metadata{}, fmt.Errorf("Resolve[%s]: %w", productID, err)
	}
	return Metadata{
		UID:          metadata.ID,
		Availability: availability,
		SizeBytes:    metadata.Size,
		Checksum:     metadata.Checksum,
	}, nil
}

// Order implements ProductProvider
func (c *Client) Order(ctx context.Context, productID string) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("Order: %w", err)
	}
	token, err := c.Auth.Acquire(ctx, auth.ServiceDownload)
	if err != nil {
		return fmt.Errorf("Order.%w", err)
	}
	url := fmt.Sprintf("%s/order/%s", c.Endpoint, neturl.PathEscape(productID))
	resp, err := service.HTTPPostWithAuth(ctx, url, nil, "", "", token)
	if err != nil {
		return service.MakeTemporary(fmt.Errorf("Order: %w", err))
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if err := c.classifyStatus(productID, resp.StatusCode, http.StatusAccepted, resp.Status, body); err != nil {
		return fmt.Errorf("Order.%w", err)
	}
	log.Logger(ctx).Sugar().Debugf("%s: restoration ordered", productID)
	return nil
}

// Download implements ProductProvider.
// An existing partial file at localPath is resumed from its current offset.
func (c *Client) Download(ctx context.Context, productID, uid, localPath string) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("Download: %w", err)
	}
	token, err := c.Auth.Acquire(ctx, auth.ServiceDownload)
	if err != nil {
		return fmt.Errorf("Download.%w", err)
	}

	url := fmt.Sprintf("%s/download/%s", c.Endpoint, neturl.PathEscape(uid))
	req, err := grab.NewRequest(localPath, url)
	if err != nil {
		return fmt.Errorf("Download.NewRequest: %w", err)
	}
	req = req.WithContext(ctx)
	req.HTTPRequest.Header.Set("Authorization", "Bearer "+token)

	resp := c.grab.Do(req)
	displayProgress(ctx, productID, resp, 0.05)

	if err := resp.Err(); err != nil {
		err = fmt.Errorf("Download[%s]: %w", req.URL(), err)
		if resp.HTTPResponse == nil {
			return service.MakeTemporary(err)
		}
		switch resp.HTTPResponse.StatusCode {
		case 404:
			return &NotFoundError{Product: productID}
		case 409, 429:
			return &RateLimitedError{Product: productID}
		case 408, 500, 501, 502, 503, 504:
			return service.MakeTemporary(err)
		default:
			return service.MakeFatal(err)
		}
	}
	return nil
}

// doGet performs a rate-limited authenticated GET, classifying the status
func (c *Client) doGet(ctx context.Context, productID, url string) ([]byte, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("Wait: %w", err)
	}
	token, err := c.Auth.Acquire(ctx, auth.ServiceDownload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, service.MakeTemporary(fmt.Errorf("Get: %w", err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, service.MakeTemporary(fmt.Errorf("ReadAll: %w", err))
	}
	if err := c.classifyStatus(productID, resp.StatusCode, http.StatusOK, resp.Status, body); err != nil {
		return nil, err
	}
	return body, nil
}

// classifyStatus maps an unexpected http status to the error taxonomy
func (c *Client) classifyStatus(productID string, statusCode, expected int, status string, body []byte) error {
	switch {
	case statusCode == expected:
		return nil
	case statusCode == 404:
		return &NotFoundError{Product: productID}
	case statusCode == 409 || statusCode == 429:
		return &RateLimitedError{Product: productID}
	case service.TemporaryCode(statusCode):
		return service.MakeTemporary(fmt.Errorf("[%s] %s: %s", productID, status, body))
	default:
		return service.MakeFatal(fmt.Errorf("[%s] %s: %s", productID, status, body))
	}
}

func checkRedirectAndCopyAuth(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	if auth, ok := via[0].Header["Authorization"]; ok {
		req.Header.Add("Authorization", auth[0])
	}
	return nil
}

func fmtBytes(bytes int64) string {
	v := float64(bytes)
	switch {
	case v > 1<<30:
		return fmt.Sprintf("%.2fGo", v/(1<<30))
	case v > 1<<20:
		return fmt.Sprintf("%.2fMo", v/(1<<20))
	case v > 1<<10:
		return fmt.Sprintf("%.2fko", v/(1<<10))
	default:
		return fmt.Sprintf("%.2fo", v)
	}
}

// displayProgress logs the download progress every progressPeriod (ratio of the total size)
func displayProgress(ctx context.Context, productID string, resp *grab.Response, progressPeriod float64) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	progress, lastBytes, seconds := 0.0, int64(0), int64(0)
	for {
		select {
		case <-t.C:
			seconds++
			if resp.Progress() > progress {
				log.Logger(ctx).Sugar().Debugf("%s: %.2f%% %s/%s (%s/s)", productID, 100*resp.Progress(), fmtBytes(resp.BytesComplete()), fmtBytes(resp.Size), fmtBytes((resp.BytesComplete()-lastBytes)/seconds))
				seconds = 0
				progress += progressPeriod
				lastBytes = resp.BytesComplete()
			}

		case <-resp.Done:
			return
		}
	}
}
