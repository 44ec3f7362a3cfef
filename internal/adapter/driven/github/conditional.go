package github

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

// conditionalEntry is the freshness token and last decoded value for one
// resource. It is stored JSON-encoded in an httpcache.Cache.
type conditionalEntry struct {
	ETag         string          `json:"etag,omitempty"`
	LastModified string          `json:"last_modified,omitempty"`
	Value        json.RawMessage `json:"value"`
}

// apply sets the conditional request headers for the entry's token.
func (e conditionalEntry) apply(req *http.Request) {
	if e.ETag != "" {
		req.Header.Set("If-None-Match", e.ETag)
	}
	if e.LastModified != "" {
		req.Header.Set("If-Modified-Since", e.LastModified)
	}
}

func (e conditionalEntry) decode(v any) error {
	if len(e.Value) == 0 {
		return fmt.Errorf("cached entry has no value")
	}
	return json.Unmarshal(e.Value, v)
}

// conditionalStore keeps per-resource conditional-request state.
type conditionalStore struct {
	cache httpcache.Cache
}

func notificationsKey(repo model.Repository) string {
	return "notifications:" + repo.FullName()
}

func pullRequestKey(repo model.Repository, number int) string {
	return fmt.Sprintf("pull:%s#%d", repo.FullName(), number)
}

func (s conditionalStore) load(key string) (conditionalEntry, bool) {
	raw, ok := s.cache.Get(key)
	if !ok {
		return conditionalEntry{}, false
	}

	var entry conditionalEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		slog.Warn("discarding unreadable conditional entry", "key", key, "error", err)
		s.cache.Delete(key)
		return conditionalEntry{}, false
	}

	return entry, entry.ETag != "" || entry.LastModified != ""
}

// store records the response's freshness token alongside the decoded value.
// Responses without a token are not stored.
func (s conditionalStore) store(key string, resp *gh.Response, value any) {
	entry := conditionalEntry{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
	if entry.ETag == "" && entry.LastModified == "" {
		s.cache.Delete(key)
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("encoding conditional value failed", "key", key, "error", err)
		return
	}
	entry.Value = raw

	s.save(key, entry)
}

// refresh replaces the entry's token when a 304 response carries a new one.
func (s conditionalStore) refresh(key string, entry conditionalEntry, resp *gh.Response) {
	changed := false
	if v := resp.Header.Get("ETag"); v != "" && v != entry.ETag {
		entry.ETag = v
		changed = true
	}
	if v := resp.Header.Get("Last-Modified"); v != "" && v != entry.LastModified {
		entry.LastModified = v
		changed = true
	}
	if changed {
		s.save(key, entry)
	}
}

func (s conditionalStore) forget(key string) {
	s.cache.Delete(key)
}

func (s conditionalStore) save(key string, entry conditionalEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("encoding conditional entry failed", "key", key, "error", err)
		return
	}
	s.cache.Set(key, raw)
}
