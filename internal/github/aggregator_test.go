package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/kortex/internal/config"
)

const (
	repoJSON = `{
		"full_name": "octo/widget",
		"stargazers_count": 42,
		"forks_count": 7,
		"watchers_count": 42,
		"open_issues_count": 3,
		"size": 1024,
		"language": "Go",
		"description": "A build tool for X",
		"homepage": "https://widget.dev",
		"topics": ["build", "tooling"],
		"license": {"name": "MIT License"},
		"visibility": "public",
		"default_branch": "main",
		"has_issues": true,
		"created_at": "2023-01-02T03:04:05Z",
		"updated_at": "2024-01-02T03:04:05Z",
		"pushed_at": "2024-02-02T03:04:05Z"
	}`

	commitsJSON = `[
		{"sha": "abc123", "html_url": "https://github.com/octo/widget/commit/abc123",
		 "commit": {"message": "fix build", "author": {"name": "Alice", "date": "2024-01-10T00:00:00Z"}}},
		{"sha": "def456", "html_url": "https://github.com/octo/widget/commit/def456",
		 "commit": {"message": "add docs", "author": {"name": "Bob", "date": "2024-01-09T00:00:00Z"}}}
	]`

	pullsJSON = `[
		{"number": 12, "title": "Add cache", "body": "caches things", "state": "closed",
		 "user": {"login": "alice"}, "merged_at": "2024-01-11T00:00:00Z",
		 "merged_by": {"login": "bob"},
		 "base": {"ref": "main"}, "head": {"ref": "feature/cache"},
		 "html_url": "https://github.com/octo/widget/pull/12"},
		{"number": 13, "title": "WIP refactor", "body": "", "state": "open",
		 "user": {"login": "carol"},
		 "base": {"ref": "main"}, "head": {"ref": "refactor"},
		 "html_url": "https://github.com/octo/widget/pull/13"}
	]`

	contributorsJSON = `[
		{"login": "alice", "contributions": 120},
		{"login": "bob", "contributions": 30},
		{"login": "carol", "contributions": 5}
	]`

	readmeJSON = `{"type": "file", "encoding": "base64", "name": "README.md",
		"content": "SGVsbG8gS29ydGV4"}`

	issuesJSON = `[
		{"number": 1, "title": "Crash on start", "body": "stack trace", "state": "open",
		 "html_url": "https://github.com/octo/widget/issues/1"},
		{"number": 12, "title": "Add cache", "state": "closed",
		 "pull_request": {"url": "https://api.github.com/repos/octo/widget/pulls/12"},
		 "html_url": "https://github.com/octo/widget/pull/12"}
	]`

	eventsJSON = `[
		{"id": "900", "type": "PushEvent", "actor": {"login": "alice"},
		 "created_at": "2024-01-12T00:00:00Z",
		 "payload": {"ref": "refs/heads/main", "size": 5, "commits": [
			{"sha": "c1", "message": "one"},
			{"sha": "c2", "message": "two"},
			{"sha": "c3", "message": "three"},
			{"sha": "c4", "message": "four"}
		 ]}},
		{"id": "901", "type": "WatchEvent", "actor": {"login": "bob"},
		 "created_at": "2024-01-12T01:00:00Z", "payload": {}}
	]`
)

// fullStubHandler serves a complete octo/widget repository.
func fullStubHandler() http.Handler {
	mux := http.NewServeMux()
	serve := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, body)
		})
	}
	serve("/repos/octo/widget", repoJSON)
	serve("/repos/octo/widget/commits", commitsJSON)
	serve("/repos/octo/widget/pulls", pullsJSON)
	serve("/repos/octo/widget/contributors", contributorsJSON)
	serve("/repos/octo/widget/readme", readmeJSON)
	serve("/repos/octo/widget/issues", issuesJSON)
	serve("/repos/octo/widget/events", eventsJSON)
	return mux
}

func newTestAggregator(t *testing.T, handler http.Handler) (*Aggregator, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	agg, err := NewAggregator(AggregatorConfig{
		Timeout:        5 * time.Second,
		PlaceholderTTL: 5 * time.Minute,
		BaseURL:        server.URL + "/",
	}, nil)
	require.NoError(t, err)
	return agg, server
}

func TestGetSnapshot_FullFetch(t *testing.T) {
	agg, _ := newTestAggregator(t, fullStubHandler())

	snap, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)

	assert.Equal(t, "octo/widget", snap.ProjectID)
	assert.True(t, snap.Stats.Fetched())
	assert.Equal(t, 42, snap.Stats.Stars)
	assert.Equal(t, 7, snap.Stats.Forks)
	assert.Equal(t, "Go", snap.Stats.Language)
	assert.Equal(t, "MIT License", snap.Stats.License)
	assert.Equal(t, []string{"build", "tooling"}, snap.Stats.Topics)
	assert.False(t, snap.Placeholder)

	require.Len(t, snap.Commits, 2)
	assert.Equal(t, "fix build", snap.Commits[0].Message)
	assert.Equal(t, "Alice", snap.Commits[0].Author)

	require.Len(t, snap.PullRequests, 2)
	assert.True(t, snap.PullRequests[0].Merged())
	assert.False(t, snap.PullRequests[1].Merged())

	// Merges keep merged PRs only.
	require.Len(t, snap.Merges, 1)
	assert.Equal(t, 12, snap.Merges[0].Number)
	assert.Equal(t, "alice", snap.Merges[0].Author)
	assert.Equal(t, "bob", snap.Merges[0].MergedBy)
	assert.Equal(t, "main", snap.Merges[0].BaseBranch)
	assert.Equal(t, "feature/cache", snap.Merges[0].HeadBranch)

	require.Len(t, snap.Contributors, 3)
	assert.Equal(t, "alice", snap.Contributors[0].Login)
	assert.Equal(t, 120, snap.Contributors[0].Contributions)

	// README is decoded from base64 transport encoding.
	assert.Equal(t, "Hello Kortex", snap.Readme)

	// Issues exclude pull requests.
	require.Len(t, snap.Issues, 1)
	assert.Equal(t, "Crash on start", snap.Issues[0].Title)

	// Events filtered to pushes, at most 3 embedded commits.
	require.Len(t, snap.Pushes, 1)
	push := snap.Pushes[0]
	assert.Equal(t, "alice", push.Actor)
	assert.Equal(t, "refs/heads/main", push.Ref)
	assert.Equal(t, 5, push.CommitCount)
	require.Len(t, push.Commits, 3)
	assert.Equal(t, "c1", push.Commits[0].SHA)
}

func TestGetSnapshot_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
	})
	agg, _ := newTestAggregator(t, mux)

	_, err := agg.GetSnapshot(context.Background(), "octo/missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSnapshot_BadProjectID(t *testing.T) {
	agg, _ := newTestAggregator(t, http.NewServeMux())

	for _, id := range []string{"", "noslash", "/x", "x/"} {
		_, err := agg.GetSnapshot(context.Background(), id, "")
		assert.ErrorIs(t, err, ErrBadProjectID, "id %q", id)
	}
}

func TestGetSnapshot_CategoryFailureDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/widget", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, repoJSON)
	})
	// Everything else fails hard.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
	})
	agg, _ := newTestAggregator(t, mux)

	snap, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)

	assert.Equal(t, 42, snap.Stats.Stars)
	assert.Empty(t, snap.Commits)
	assert.Empty(t, snap.Contributors)
	assert.Empty(t, snap.Readme)
	assert.False(t, snap.Placeholder)
}

func TestGetSnapshot_CachedEntryReused(t *testing.T) {
	var calls atomic.Int64
	counting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fullStubHandler().ServeHTTP(w, r)
	})
	agg, _ := newTestAggregator(t, counting)

	first, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)
	fetched := calls.Load()
	require.Greater(t, fetched, int64(0))

	second, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)

	assert.Same(t, first, second, "cache must return the memoized snapshot")
	assert.Equal(t, fetched, calls.Load(), "cache hit must not refetch")
}

func TestGetSnapshot_CachedEntryShadowsUpstream404(t *testing.T) {
	var broken atomic.Bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if broken.Load() {
			http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
			return
		}
		fullStubHandler().ServeHTTP(w, r)
	})
	agg, _ := newTestAggregator(t, handler)

	first, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)

	// Repository disappears upstream; the cache entry still wins.
	broken.Store(true)
	second, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGetSnapshot_PlaceholderWhenAllTiersEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "rate limited"}`, http.StatusForbidden)
	})
	agg, _ := newTestAggregator(t, mux)

	snap, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)

	assert.True(t, snap.Placeholder)
	assert.False(t, snap.HasData())
	assert.Contains(t, snap.Stats.Description, "not available")
	assert.Empty(t, snap.Commits)
}

func TestGetSnapshot_PlaceholderRetriedAfterTTL(t *testing.T) {
	var healthy atomic.Bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, `{"message": "rate limited"}`, http.StatusForbidden)
			return
		}
		fullStubHandler().ServeHTTP(w, r)
	})
	agg, _ := newTestAggregator(t, handler)

	base := time.Now()
	agg.now = func() time.Time { return base }

	snap, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)
	require.True(t, snap.Placeholder)

	// Upstream recovers, but within the TTL the placeholder is still served.
	healthy.Store(true)
	cached, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)
	assert.True(t, cached.Placeholder)

	// Past the TTL the next access refetches real data.
	agg.now = func() time.Time { return base.Add(6 * time.Minute) }
	fresh, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)
	assert.False(t, fresh.Placeholder)
	assert.Equal(t, 42, fresh.Stats.Stars)
}

func TestGetSnapshot_CredentialUpgradeRefetches(t *testing.T) {
	var sawToken atomic.Bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			sawToken.Store(true)
		}
		fullStubHandler().ServeHTTP(w, r)
	})
	agg, _ := newTestAggregator(t, handler)

	unauth, err := agg.GetSnapshot(context.Background(), "octo/widget", "")
	require.NoError(t, err)
	require.False(t, unauth.Authenticated)
	require.False(t, sawToken.Load())

	// Supplying a credential after a degraded fetch forces a refetch.
	auth, err := agg.GetSnapshot(context.Background(), "octo/widget", config.Secret("ghp_token"))
	require.NoError(t, err)
	assert.True(t, auth.Authenticated)
	assert.True(t, sawToken.Load())
	assert.NotSame(t, unauth, auth)

	// A further authenticated call hits the upgraded cache entry.
	again, err := agg.GetSnapshot(context.Background(), "octo/widget", config.Secret("ghp_token"))
	require.NoError(t, err)
	assert.Same(t, auth, again)
}

func TestGetSnapshot_PublicFallbackWhenTokenYieldsNothing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Authenticated requests are rate limited; anonymous ones work.
		if r.Header.Get("Authorization") != "" {
			http.Error(w, `{"message": "rate limited"}`, http.StatusForbidden)
			return
		}
		fullStubHandler().ServeHTTP(w, r)
	})
	agg, _ := newTestAggregator(t, handler)

	snap, err := agg.GetSnapshot(context.Background(), "octo/widget", config.Secret("ghp_bad"))
	require.NoError(t, err)

	assert.False(t, snap.Placeholder)
	assert.Equal(t, 42, snap.Stats.Stars)
	// The credential was present for the attempt, so the entry counts as
	// authenticated and is not refetched on later credentialed calls.
	assert.True(t, snap.Authenticated)
}
