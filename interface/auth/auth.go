package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/airbusgeo/sentinel-fetcher/service/log"
	"go.uber.org/zap"
)

const (
	// ServiceCatalog identifies the catalog search service
	ServiceCatalog = "catalog"
	// ServiceDownload identifies the product download service
	ServiceDownload = "download"

	// DefaultClientID is the public OpenID client of the data space
	DefaultClientID = "CLOUDFERRO_PUBLIC"
)

// safetyMargin is the remaining lifetime under which a token is no longer
// handed out and a refresh is triggered, so it cannot expire mid-request.
const safetyMargin = time.Minute

// Error is returned when no valid token can be acquired for a service
type Error struct {
	Service string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("authentication failed for service %s: %v", e.Service, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Fatal() bool {
	return true
}

// Config of the authentication endpoint of one service
type Config struct {
	Service     string
	TokenURL    string
	ClientID    string // DefaultClientID if empty
	Credentials Credentials
}

type endpoint struct {
	mutex    sync.Mutex
	tokenURL string
	clientID string
	creds    Credentials
	token    string
	expire   time.Time
}

// Manager acquires and caches the access tokens of the remote services.
// Each service authenticates independently and refreshes its token at most
// once at a time.
type Manager struct {
	endpoints map[string]*endpoint
	client    *http.Client
}

// NewManager creates a Manager for the given services
func NewManager(configs ...Config) *Manager {
	m := &Manager{endpoints: map[string]*endpoint{}, client: http.DefaultClient}
	for _, cfg := range configs {
		clientID := cfg.ClientID
		if clientID == "" {
			clientID = DefaultClientID
		}
		m.endpoints[cfg.Service] = &endpoint{
			tokenURL: cfg.TokenURL,
			clientID: clientID,
			creds:    cfg.Credentials,
		}
	}
	return m
}

// Acquire returns a bearer token for the service, refreshing it when it
// expires in less than safetyMargin. If the refresh fails while the current
// token is still valid, the current token is returned with a warning.
func (m *Manager) Acquire(ctx context.Context, serviceID string) (string, error) {
	ep, ok := m.endpoints[serviceID]
	if !ok {
		return "", &Error{Service: serviceID, Err: fmt.Errorf("service is not configured")}
	}

	ep.mutex.Lock()
	defer ep.mutex.Unlock()
	if ep.token != "" && time.Until(ep.expire) > safetyMargin {
		return ep.token, nil
	}
	if err := m.refreshToken(ctx, ep); err != nil {
		if ep.token != "" && time.Now().Before(ep.expire) {
			log.Logger(ctx).Warn("token refresh failed, reusing the current token",
				zap.String("service", serviceID), zap.Error(err))
			return ep.token, nil
		}
		return "", &Error{Service: serviceID, Err: err}
	}
	return ep.token, nil
}

// refreshToken asks the token endpoint for a new token (password grant).
// The endpoint mutex must be held.
func (m *Manager) refreshToken(ctx context.Context, ep *endpoint) error {
	form := url.Values{
		"client_id":  {ep.clientID},
		"username":   {ep.creds.username},
		"password":   {ep.creds.password},
		"grant_type": {"password"},
	}

	token := struct {
		AccessToken string `json:"access_token"`
		Expire      int    `json:"expires_in"`
	}{}

	err := service.Retriable(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return service.MakeFatal(fmt.Errorf("NewRequest: %w", err))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := m.client.Do(req)
		if err != nil {
			return fmt.Errorf("PostForm: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("ReadAll: %w", err)
		}
		if resp.StatusCode != 200 {
			err := fmt.Errorf("%s: %s", resp.Status, body)
			if service.TemporaryCode(resp.StatusCode) {
				return err
			}
			return service.MakeFatal(err)
		}
		if err := json.Unmarshal(body, &token); err != nil {
			return service.MakeFatal(fmt.Errorf("Unmarshal: %w", err))
		}
		if token.AccessToken == "" {
			return service.MakeFatal(fmt.Errorf("token not found in %s", string(body)))
		}
		return nil
	}, time.Second, 3)

	if err != nil {
		return fmt.Errorf("refreshToken.%w", err)
	}
	ep.token = token.AccessToken
	ep.expire = time.Now().Add(time.Duration(token.Expire) * time.Second)
	return nil
}
