// Package github implements the NotificationGateway port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit/github_secondary_ratelimit"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.NotificationGateway = (*Client)(nil)
	_ driven.AccessValidator     = (*Client)(nil)
)

const (
	// DefaultBaseURL is the public GitHub REST API root.
	DefaultBaseURL = "https://api.github.com/"

	acceptHeader   = "application/vnd.github+json"
	apiVersion     = "2022-11-28"
	connectTimeout = 15 * time.Second
	requestTimeout = 30 * time.Second
)

// Client implements driven.NotificationGateway for one repository.
type Client struct {
	gh    *gh.Client
	repo  model.Repository
	state conditionalStore
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. net/http transport with a bounded connect timeout
//  2. go-github-ratelimit (primary and secondary rate limit detection)
//  3. go-github (GitHub REST API client with bearer token auth)
//
// Conditional-request state is kept in an in-memory httpcache.Cache and is
// lost on restart.
func NewClient(token string, repo model.Repository, baseURL string) (*Client, error) {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	return NewClientWithTransport(transport, baseURL, repo, token, httpcache.NewMemoryCache())
}

// NewClientWithTransport wraps base in the rate limit middleware and builds a
// Client on top of it.
//
// The secondary limiter never sleeps: a secondary rate limit response is
// handed back to go-github so the poll loop schedules the retry.
func NewClientWithTransport(base http.RoundTripper, baseURL string, repo model.Repository, token string, cache httpcache.Cache) (*Client, error) {
	rateLimitClient := github_ratelimit.NewClient(base,
		github_secondary_ratelimit.WithSingleSleepLimit(0, logSecondaryLimit),
	)
	rateLimitClient.Timeout = requestTimeout

	return NewClientWithHTTPClient(rateLimitClient, baseURL, repo, token, cache)
}

func logSecondaryLimit(cb *github_secondary_ratelimit.CallbackContext) {
	var resetIn time.Duration
	if cb.ResetTime != nil {
		resetIn = time.Until(*cb.ResetTime).Round(time.Second)
	}
	var path string
	if cb.Request != nil {
		path = cb.Request.URL.Path
	}
	slog.Warn("github secondary rate limit", "path", path, "reset_in", resetIn)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client, base URL
// and conditional-state cache. Tests use it to inject an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, repo model.Repository, token string, cache httpcache.Cache) (*Client, error) {
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:    client,
		repo:  repo,
		state: conditionalStore{cache: cache},
	}, nil
}

// Repository returns the repository this client is bound to.
func (c *Client) Repository() model.Repository {
	return c.repo
}

// FetchNotifications retrieves the repository's notification threads. A 304
// answer returns the last stored batch and hint.
func (c *Client) FetchNotifications(ctx context.Context) (model.NotificationBatch, error) {
	const op = "fetch notifications"
	key := notificationsKey(c.repo)

	req, err := c.newRequest(http.MethodGet, fmt.Sprintf("repos/%s/%s/notifications", c.repo.Owner, c.repo.Name))
	if err != nil {
		return model.NotificationBatch{}, err
	}

	entry, cached := c.state.load(key)
	if cached {
		entry.apply(req)
	}

	var threads []*gh.Notification
	resp, err := c.gh.Do(ctx, req, &threads)
	logRateLimit(resp, op)

	if isNotModified(resp) {
		if !cached {
			return model.NotificationBatch{}, nil
		}
		var batch model.NotificationBatch
		if err := entry.decode(&batch); err != nil {
			return model.NotificationBatch{}, &driven.GatewayError{Kind: driven.ErrorKindStateCorruption, Op: op, Err: err}
		}
		c.state.refresh(key, entry, resp)
		slog.Debug("notifications not modified", "repo", c.repo.FullName(), "threads", len(batch.Threads))
		return batch, nil
	}
	if err != nil {
		return model.NotificationBatch{}, classify(op, resp, err)
	}

	batch := model.NotificationBatch{
		Threads:      make([]model.NotificationThread, 0, len(threads)),
		PollInterval: pollInterval(resp),
	}
	for _, n := range threads {
		batch.Threads = append(batch.Threads, mapNotification(n))
	}

	c.state.store(key, resp, batch)

	return batch, nil
}

// FetchPullRequest retrieves a pull request's state. A 304 answer returns the
// cached value; closed pull requests are dropped from the cache.
func (c *Client) FetchPullRequest(ctx context.Context, number int) (model.PullRequestRef, error) {
	op := fmt.Sprintf("fetch pull request #%d", number)
	key := pullRequestKey(c.repo, number)

	req, err := c.newRequest(http.MethodGet, fmt.Sprintf("repos/%s/%s/pulls/%d", c.repo.Owner, c.repo.Name, number))
	if err != nil {
		return model.PullRequestRef{}, err
	}

	entry, cached := c.state.load(key)
	if cached {
		entry.apply(req)
	}

	var pr gh.PullRequest
	resp, err := c.gh.Do(ctx, req, &pr)
	logRateLimit(resp, op)

	if isNotModified(resp) {
		if !cached {
			return model.PullRequestRef{}, &driven.GatewayError{
				Kind:       driven.ErrorKindStateCorruption,
				Op:         op,
				StatusCode: http.StatusNotModified,
				Message:    "not modified but no cached pull request",
			}
		}
		var ref model.PullRequestRef
		if err := entry.decode(&ref); err != nil {
			return model.PullRequestRef{}, &driven.GatewayError{Kind: driven.ErrorKindStateCorruption, Op: op, Err: err}
		}
		c.state.refresh(key, entry, resp)
		return ref, nil
	}
	if err != nil {
		return model.PullRequestRef{}, classify(op, resp, err)
	}

	ref, err := mapPullRequest(&pr)
	if err != nil {
		return model.PullRequestRef{}, &driven.GatewayError{Kind: driven.ErrorKindDecode, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if ref.Number == 0 {
		ref.Number = number
	}

	if ref.IsClosed() {
		c.state.forget(key)
	} else {
		c.state.store(key, resp, ref)
	}

	return ref, nil
}

// MarkThreadRead marks a notification thread as read. 304 counts as success.
func (c *Client) MarkThreadRead(ctx context.Context, threadID string) error {
	op := fmt.Sprintf("mark thread %s read", threadID)

	resp, err := c.gh.Activity.MarkThreadRead(ctx, threadID)
	logRateLimit(resp, op)

	if isNotModified(resp) {
		return nil
	}
	if err != nil {
		return classify(op, resp, err)
	}

	return nil
}

// ValidateAccess checks that the token can list the repository's
// notifications and pull requests.
func (c *Client) ValidateAccess(ctx context.Context) error {
	_, resp, err := c.gh.Activity.ListRepositoryNotifications(ctx, c.repo.Owner, c.repo.Name,
		&gh.NotificationListOptions{ListOptions: gh.ListOptions{PerPage: 1}})
	if err != nil {
		return classify("validate notifications access", resp, err)
	}

	_, resp, err = c.gh.PullRequests.List(ctx, c.repo.Owner, c.repo.Name,
		&gh.PullRequestListOptions{ListOptions: gh.ListOptions{PerPage: 1}})
	if err != nil {
		return classify("validate pull requests access", resp, err)
	}

	return nil
}

func (c *Client) newRequest(method, path string) (*http.Request, error) {
	req, err := c.gh.NewRequest(method, path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	return req, nil
}

func isNotModified(resp *gh.Response) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotModified
}

// pollInterval reads the X-Poll-Interval header (seconds). Zero means absent.
func pollInterval(resp *gh.Response) time.Duration {
	if resp == nil || resp.Response == nil {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("X-Poll-Interval"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil || resp.Rate.Limit == 0 {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapNotification converts a go-github Notification to a domain thread.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapNotification(n *gh.Notification) model.NotificationThread {
	return model.NotificationThread{
		ID:          n.GetID(),
		Reason:      model.NotificationReason(n.GetReason()),
		SubjectURL:  n.GetSubject().GetURL(),
		SubjectType: n.GetSubject().GetType(),
		Title:       n.GetSubject().GetTitle(),
		Unread:      n.GetUnread(),
		UpdatedAt:   n.GetUpdatedAt().Time,
	}
}

// mapPullRequest converts a go-github PullRequest to a domain reference,
// rejecting states outside open/closed.
func mapPullRequest(pr *gh.PullRequest) (model.PullRequestRef, error) {
	state, err := model.ParsePRState(pr.GetState())
	if err != nil {
		return model.PullRequestRef{}, err
	}

	return model.PullRequestRef{
		Number:  pr.GetNumber(),
		State:   state,
		Author:  pr.GetUser().GetLogin(),
		HTMLURL: pr.GetHTMLURL(),
	}, nil
}
