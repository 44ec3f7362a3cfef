package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/ericfisherdev/gitnotify/internal/adapter/driven/github"
	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

var testRepo = model.Repository{Owner: "octo", Name: "hello"}

// newTestClient creates a Client backed by the given httptest handler. The
// server transport is wrapped in the same rate limit stack NewClient uses.
func newTestClient(t *testing.T, handler http.Handler) *ghAdapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithTransport(
		server.Client().Transport,
		server.URL+"/",
		testRepo,
		"test-token",
		httpcache.NewMemoryCache(),
	)
	require.NoError(t, err)

	return client
}

type subjectJSON struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

type notificationJSON struct {
	ID        string      `json:"id"`
	Reason    string      `json:"reason"`
	Unread    bool        `json:"unread"`
	UpdatedAt string      `json:"updated_at"`
	Subject   subjectJSON `json:"subject"`
}

type userJSON struct {
	Login string `json:"login"`
}

type prJSON struct {
	Number  int      `json:"number"`
	State   string   `json:"state"`
	HTMLURL string   `json:"html_url"`
	User    userJSON `json:"user"`
}

func reviewThread(id string, number int) notificationJSON {
	return notificationJSON{
		ID:        id,
		Reason:    "review_requested",
		Unread:    true,
		UpdatedAt: "2026-01-02T12:00:00Z",
		Subject: subjectJSON{
			Title: "Add feature",
			URL:   fmt.Sprintf("https://api.github.com/repos/octo/hello/pulls/%d", number),
			Type:  "PullRequest",
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchNotifications_MapsThreadsAndHint(t *testing.T) {
	var gotReq *http.Request

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("X-Poll-Interval", "120")
		writeJSON(w, http.StatusOK, []notificationJSON{
			reviewThread("101", 42),
			{ID: "102", Reason: "subscribed", Subject: subjectJSON{URL: "https://api.github.com/repos/octo/hello/issues/3", Type: "Issue"}},
		})
	}))

	batch, err := client.FetchNotifications(context.Background())
	require.NoError(t, err)

	require.NotNil(t, gotReq)
	assert.Equal(t, "/repos/octo/hello/notifications", gotReq.URL.Path)
	assert.Equal(t, "Bearer test-token", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.github+json", gotReq.Header.Get("Accept"))
	assert.Equal(t, "2022-11-28", gotReq.Header.Get("X-GitHub-Api-Version"))
	assert.Empty(t, gotReq.Header.Get("If-None-Match"))

	assert.Equal(t, 120*time.Second, batch.PollInterval)
	require.Len(t, batch.Threads, 2)

	first := batch.Threads[0]
	assert.Equal(t, "101", first.ID)
	assert.Equal(t, model.ReasonReviewRequested, first.Reason)
	assert.Equal(t, "https://api.github.com/repos/octo/hello/pulls/42", first.SubjectURL)
	assert.Equal(t, "PullRequest", first.SubjectType)
	assert.True(t, first.Unread)
	assert.Equal(t, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC), first.UpdatedAt.UTC())

	assert.Equal(t, model.NotificationReason("subscribed"), batch.Threads[1].Reason)
}

func TestFetchNotifications_NotModifiedReturnsCachedBatch(t *testing.T) {
	var calls atomic.Int32

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("ETag", `"v1"`)
			w.Header().Set("X-Poll-Interval", "60")
			writeJSON(w, http.StatusOK, []notificationJSON{reviewThread("101", 42)})
			return
		}
		assert.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
		w.WriteHeader(http.StatusNotModified)
	}))

	first, err := client.FetchNotifications(context.Background())
	require.NoError(t, err)

	second, err := client.FetchNotifications(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, first.PollInterval, second.PollInterval)
	require.Len(t, second.Threads, 1)
	assert.Equal(t, "101", second.Threads[0].ID)
}

func TestFetchNotifications_NotModifiedWithoutCacheReturnsEmpty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))

	batch, err := client.FetchNotifications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batch.Threads)
	assert.Zero(t, batch.PollInterval)
}

func TestFetchPullRequest_ConditionalReuseUpdatesToken(t *testing.T) {
	var calls atomic.Int32
	var thirdIfModified string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/hello/pulls/42", r.URL.Path)

		switch calls.Add(1) {
		case 1:
			w.Header().Set("Last-Modified", "Mon, 05 Jan 2026 10:00:00 GMT")
			writeJSON(w, http.StatusOK, prJSON{Number: 42, State: "open", HTMLURL: "https://github.com/octo/hello/pull/42", User: userJSON{Login: "alice"}})
		case 2:
			assert.Equal(t, "Mon, 05 Jan 2026 10:00:00 GMT", r.Header.Get("If-Modified-Since"))
			w.Header().Set("Last-Modified", "Tue, 06 Jan 2026 10:00:00 GMT")
			w.WriteHeader(http.StatusNotModified)
		default:
			thirdIfModified = r.Header.Get("If-Modified-Since")
			w.WriteHeader(http.StatusNotModified)
		}
	}))

	ctx := context.Background()

	first, err := client.FetchPullRequest(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, model.PullRequestRef{Number: 42, State: model.PRStateOpen, Author: "alice", HTMLURL: "https://github.com/octo/hello/pull/42"}, first)

	second, err := client.FetchPullRequest(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = client.FetchPullRequest(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Tue, 06 Jan 2026 10:00:00 GMT", thirdIfModified)
}

func TestFetchPullRequest_NotModifiedWithoutCacheIsStateCorruption(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))

	_, err := client.FetchPullRequest(context.Background(), 9)
	require.Error(t, err)

	gwErr, ok := driven.AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, driven.ErrorKindStateCorruption, gwErr.Kind)
}

func TestFetchPullRequest_ClosedIsEvictedFromCache(t *testing.T) {
	var calls atomic.Int32
	var secondIfModified string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			secondIfModified = r.Header.Get("If-Modified-Since")
		}
		w.Header().Set("Last-Modified", "Mon, 05 Jan 2026 10:00:00 GMT")
		writeJSON(w, http.StatusOK, prJSON{Number: 5, State: "closed", User: userJSON{Login: "bob"}})
	}))

	ref, err := client.FetchPullRequest(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ref.IsClosed())

	_, err = client.FetchPullRequest(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, secondIfModified, "closed pull requests must not be fetched conditionally")
}

func TestFetchPullRequest_UnknownStateIsDecodeError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, prJSON{Number: 5, State: "merged"})
	}))

	_, err := client.FetchPullRequest(context.Background(), 5)
	require.Error(t, err)

	gwErr, ok := driven.AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, driven.ErrorKindDecode, gwErr.Kind)
}

func TestMarkThreadRead(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"reset content", http.StatusResetContent},
		{"not modified", http.StatusNotModified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path string
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				path = r.URL.Path
				w.WriteHeader(tt.status)
			}))

			err := client.MarkThreadRead(context.Background(), "777")
			require.NoError(t, err)
			assert.Equal(t, http.MethodPatch, method)
			assert.Equal(t, "/notifications/threads/777", path)
		})
	}
}

func TestGatewayErrorClassification(t *testing.T) {
	reset := time.Now().Add(10 * time.Minute).Truncate(time.Second)

	tests := []struct {
		name           string
		status         int
		headers        map[string]string
		message        string
		wantKind       driven.ErrorKind
		wantRetryAfter time.Duration
		wantReset      bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, message: "Bad credentials", wantKind: driven.ErrorKindAuth},
		{
			name:      "primary rate limit",
			status:    http.StatusForbidden,
			headers:   map[string]string{"X-RateLimit-Remaining": "0", "X-RateLimit-Reset": strconv.FormatInt(reset.Unix(), 10)},
			message:   "API rate limit exceeded",
			wantKind:  driven.ErrorKindRateLimitPrimary,
			wantReset: true,
		},
		{
			name:           "secondary rate limit with retry-after",
			status:         http.StatusForbidden,
			headers:        map[string]string{"Retry-After": "30"},
			message:        "You have exceeded a secondary rate limit",
			wantKind:       driven.ErrorKindRateLimitSecondary,
			wantRetryAfter: 30 * time.Second,
		},
		{name: "secondary rate limit without header", status: http.StatusTooManyRequests, message: "rate limit", wantKind: driven.ErrorKindRateLimitSecondary},
		{name: "plain forbidden", status: http.StatusForbidden, message: "Resource not accessible", wantKind: driven.ErrorKindForbidden},
		{name: "not found", status: http.StatusNotFound, message: "Not Found", wantKind: driven.ErrorKindNotFound},
		{name: "validation failed", status: http.StatusUnprocessableEntity, message: "Validation Failed", wantKind: driven.ErrorKindClient},
		{name: "bad gateway", status: http.StatusBadGateway, message: "Server Error", wantKind: driven.ErrorKindServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				writeJSON(w, tt.status, map[string]string{"message": tt.message})
			}))

			_, err := client.FetchNotifications(context.Background())
			require.Error(t, err)

			gwErr, ok := driven.AsGatewayError(err)
			require.True(t, ok, "expected a GatewayError, got %T", err)
			assert.Equal(t, tt.wantKind, gwErr.Kind)
			assert.Equal(t, tt.status, gwErr.StatusCode)

			if tt.wantRetryAfter > 0 {
				assert.True(t, gwErr.HasRetryAfter)
				assert.Equal(t, tt.wantRetryAfter, gwErr.RetryAfter)
			}
			if tt.wantReset {
				assert.Equal(t, reset.Unix(), gwErr.ResetAt.Unix())
			}
		})
	}
}

func TestFetchNotifications_SecondaryRateLimitIsNotRetriedInTransport(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "3")
		writeJSON(w, http.StatusForbidden, map[string]string{
			"message":           "You have exceeded a secondary rate limit. Please wait a few minutes before you try again.",
			"documentation_url": "https://docs.github.com/rest/overview/rate-limits-for-the-rest-api#secondary-rate-limits",
		})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	start := time.Now()
	_, err := client.FetchNotifications(ctx)
	elapsed := time.Since(start)

	require.Error(t, err)
	gwErr, ok := driven.AsGatewayError(err)
	require.True(t, ok, "expected a GatewayError, got %T", err)
	assert.Equal(t, driven.ErrorKindRateLimitSecondary, gwErr.Kind)
	assert.True(t, gwErr.HasRetryAfter)
	assert.Equal(t, 3*time.Second, gwErr.RetryAfter.Round(time.Second))
	assert.Equal(t, int32(1), calls.Load())
	assert.Less(t, elapsed, 2*time.Second)
	assert.NoError(t, ctx.Err())
}

func TestFetchNotifications_PrimaryRateLimitBlocksFurtherRequests(t *testing.T) {
	reset := time.Now().Add(10 * time.Minute).Truncate(time.Second)

	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		w.Header().Set("X-RateLimit-Resource", "core")
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "API rate limit exceeded"})
	}))

	for range 2 {
		_, err := client.FetchNotifications(context.Background())
		require.Error(t, err)

		gwErr, ok := driven.AsGatewayError(err)
		require.True(t, ok, "expected a GatewayError, got %T", err)
		assert.Equal(t, driven.ErrorKindRateLimitPrimary, gwErr.Kind)
		assert.Equal(t, reset.Unix(), gwErr.ResetAt.Unix())
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransportErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/"
	server.Close()

	client, err := ghAdapter.NewClientWithHTTPClient(http.DefaultClient, baseURL, testRepo, "", httpcache.NewMemoryCache())
	require.NoError(t, err)

	_, err = client.FetchNotifications(context.Background())
	require.Error(t, err)

	gwErr, ok := driven.AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, driven.ErrorKindTransport, gwErr.Kind)
}

func TestValidateAccess(t *testing.T) {
	var paths []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, []any{})
	}))

	require.NoError(t, client.ValidateAccess(context.Background()))
	assert.Equal(t, []string{"/repos/octo/hello/notifications", "/repos/octo/hello/pulls"}, paths)
}

func TestValidateAccess_Unauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
	}))

	err := client.ValidateAccess(context.Background())
	gwErr, ok := driven.AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, driven.ErrorKindAuth, gwErr.Kind)
}

func TestNewClientWithHTTPClient_RejectsIncompleteRepository(t *testing.T) {
	_, err := ghAdapter.NewClientWithHTTPClient(http.DefaultClient, "", model.Repository{Owner: "octo"}, "", httpcache.NewMemoryCache())
	assert.Error(t, err)
}

func TestReachability(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ok.Close)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(failing.Close)

	assert.NoError(t, ghAdapter.NewReachabilityWithHTTPClient(ok.Client(), ok.URL).Check(context.Background()))
	assert.Error(t, ghAdapter.NewReachabilityWithHTTPClient(failing.Client(), failing.URL).Check(context.Background()))
}
