package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

// StringSet is a set of strings (all elements are unique)
type StringSet map[string]struct{}

// Push adds the string to the set if not already exists
func (ss StringSet) Push(s string) {
	ss[s] = struct{}{}
}

// Pop removes the string from the set
func (ss StringSet) Pop(s string) {
	delete(ss, s)
}

// Slice returns a slice from the set
func (ss StringSet) Slice() []string {
	sl := make([]string, 0, len(ss))
	for k := range ss {
		sl = append(sl, k)
	}
	return sl
}

// Exists returns true if the string already exists in the Set
func (ss StringSet) Exists(s string) bool {
	_, ok := ss[s]
	return ok
}

// GetBodyRetry: simple GET with N retries in case of temporary errors
func GetBodyRetry(url string, nbRetries int) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	return GetBodyRetryReq(req, nbRetries)
}

// GetBodyRetryReq: performs the request with N retries in case of temporary errors.
// Transport errors that are not temporary and 4xx statuses are not retried.
func GetBodyRetryReq(req *http.Request, nbRetries int) ([]byte, error) {
	var body []byte
	client := &http.Client{}
	err := Retrier{MaxAttempts: nbRetries + 1, BaseDelay: time.Second}.Do(req.Context(), func() error {
		resp, err := client.Do(req)
		if err != nil {
			var e *neturl.Error
			if !errors.As(err, &e) || !e.Temporary() {
				return MakeFatal(err)
			}
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			b, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("%s: %s", resp.Status, b)
			if !TemporaryCode(resp.StatusCode) {
				return MakeFatal(err)
			}
			return err
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}
