package github

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultProbeURL is the address used to check internet connectivity.
const DefaultProbeURL = "https://www.github.com"

// Reachability checks that GitHub can be reached over the network.
type Reachability struct {
	httpClient *http.Client
	url        string
}

// NewReachability creates a probe for url using a client with the gateway's
// request timeout. An empty url selects DefaultProbeURL.
func NewReachability(url string) *Reachability {
	return NewReachabilityWithHTTPClient(&http.Client{Timeout: requestTimeout}, url)
}

// NewReachabilityWithHTTPClient creates a probe with a custom client.
func NewReachabilityWithHTTPClient(httpClient *http.Client, url string) *Reachability {
	if url == "" {
		url = DefaultProbeURL
	}
	return &Reachability{httpClient: httpClient, url: url}
}

// Check issues a HEAD request and succeeds on any 2xx or 3xx answer.
func (r *Reachability) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.url, nil)
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", r.url, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe %s: unexpected status %d after %s", r.url, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}

	return nil
}
