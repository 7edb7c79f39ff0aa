// Package github aggregates repository data from the GitHub REST API into
// per-project snapshots.
//
// A snapshot is assembled from independently fallible upstream calls:
// repository metadata, commits, pull requests, contributors, README, issues,
// and activity events. Each call is classified success/failure on its own;
// a failed category degrades to its empty default instead of failing the
// whole snapshot. Only a confirmed 404 on the repository-metadata call is
// fatal.
//
// Snapshots are memoized per project id behind a singleflight group, with a
// credential-upgrade rule: entries fetched without a credential, and
// synthesized placeholder entries past their TTL, are refetched on the next
// access instead of being served forever.
package github

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v57/github"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/kortex/internal/config"
)

var aggregatorTracer = otel.Tracer("kortex.github.aggregator")

// Fetch sizes, matching the upstream dashboard semantics.
const (
	commitPageSize      = 15
	pullPageSize        = 15
	contributorPageSize = 10
	eventPageSize       = 30
	issuePageSize       = 50
	pushCommitLimit     = 3
)

// AggregatorConfig configures the Aggregator.
type AggregatorConfig struct {
	// Token is the server-wide fallback credential, used when a request
	// carries none of its own.
	Token config.Secret

	// Timeout applies to each upstream call independently.
	// Default: 10s.
	Timeout time.Duration

	// PlaceholderTTL is how long a placeholder snapshot is served before
	// the next access may refetch. Default: 5m.
	PlaceholderTTL time.Duration

	// BaseURL overrides the GitHub API endpoint. Used by tests.
	BaseURL string
}

// ApplyDefaults sets default values for unset fields.
func (c *AggregatorConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.PlaceholderTTL == 0 {
		c.PlaceholderTTL = 5 * time.Minute
	}
}

// Aggregator fetches and caches per-project snapshots.
type Aggregator struct {
	config  AggregatorConfig
	baseURL *url.URL
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Snapshot
	group singleflight.Group

	// now is injectable for tests.
	now func() time.Time
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg AggregatorConfig, logger *zap.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, err
		}
		base = u
	}

	return &Aggregator{
		config:  cfg,
		baseURL: base,
		logger:  logger,
		cache:   make(map[string]*Snapshot),
		now:     time.Now,
	}, nil
}

// GetSnapshot returns the snapshot for projectID, fetching it if the cache
// has no usable entry. Concurrent callers for the same uncached project
// share one fetch. The request token takes precedence over the configured
// server token.
//
// Returns ErrNotFound only when the root repository is confirmed missing
// and no cache entry exists; every other upstream failure degrades through
// the fallback chain down to a placeholder snapshot.
func (a *Aggregator) GetSnapshot(ctx context.Context, projectID string, token config.Secret) (*Snapshot, error) {
	owner, repo, err := splitProjectID(projectID)
	if err != nil {
		return nil, err
	}
	if !token.IsSet() {
		token = a.config.Token
	}

	if snap := a.cached(projectID, token); snap != nil {
		return snap, nil
	}

	v, err, _ := a.group.Do(projectID, func() (interface{}, error) {
		// Another caller may have populated the cache while we waited
		// on the group.
		if snap := a.cached(projectID, token); snap != nil {
			return snap, nil
		}

		snap, err := a.fetchWithFallback(ctx, owner, repo, projectID, token)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		a.cache[projectID] = snap
		a.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Cached returns the cached snapshot for projectID without fetching,
// or nil when none exists.
func (a *Aggregator) Cached(projectID string) *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cache[projectID]
}

// cached returns a cache entry that is still usable for the given token,
// or nil when a (re)fetch is needed.
func (a *Aggregator) cached(projectID string, token config.Secret) *Snapshot {
	a.mu.RLock()
	snap := a.cache[projectID]
	a.mu.RUnlock()
	if snap == nil {
		return nil
	}
	if snap.Placeholder && a.now().Sub(snap.FetchedAt) >= a.config.PlaceholderTTL {
		return nil
	}
	if token.IsSet() && !snap.Authenticated {
		// A credential showed up after a degraded fetch; upgrade.
		return nil
	}
	return snap
}

// fetchWithFallback walks the credential fallback chain:
// authenticated -> unauthenticated -> synthesized placeholder.
func (a *Aggregator) fetchWithFallback(ctx context.Context, owner, repo, projectID string, token config.Secret) (*Snapshot, error) {
	ctx, span := aggregatorTracer.Start(ctx, "Aggregator.fetchWithFallback")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", projectID))

	snap, err := a.fetch(ctx, owner, repo, projectID, token)
	if err != nil {
		return nil, err
	}

	if !snap.HasData() && token.IsSet() {
		a.logger.Warn("no meaningful data, retrying unauthenticated",
			zap.String("project_id", projectID))
		public, err := a.fetch(ctx, owner, repo, projectID, "")
		if err == nil && public.HasData() {
			snap = public
		}
		// A 404 on the public tier is not fatal: the authenticated tier
		// already confirmed the repository exists.
	}

	snap.Authenticated = token.IsSet()

	if !snap.HasData() {
		a.logger.Warn("all fetch tiers empty, synthesizing placeholder",
			zap.String("project_id", projectID))
		snap = newPlaceholderSnapshot(projectID, token.IsSet(), a.now())
		span.SetAttributes(attribute.Bool("placeholder", true))
	}

	return snap, nil
}

// fetch issues the upstream calls concurrently and combines their results.
// Category failures degrade to defaults; only a repository-metadata 404 is
// returned as an error.
func (a *Aggregator) fetch(ctx context.Context, owner, repo, projectID string, token config.Secret) (*Snapshot, error) {
	client := newClient(ctx, token, a.config.Timeout, a.baseURL)

	snap := &Snapshot{
		ProjectID: projectID,
		FetchedAt: a.now(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, a.config.Timeout)
		defer cancel()
		repository, _, err := client.Repositories.Get(cctx, owner, repo)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			a.logCategoryFailure(projectID, "repository", err)
			return nil
		}
		snap.Stats = convertStats(repository)
		return nil
	})

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, a.config.Timeout)
		defer cancel()
		commits, _, err := client.Repositories.ListCommits(cctx, owner, repo, &gh.CommitsListOptions{
			ListOptions: gh.ListOptions{PerPage: commitPageSize},
		})
		if err != nil {
			a.logCategoryFailure(projectID, "commits", err)
			return nil
		}
		snap.Commits = convertCommits(commits)
		return nil
	})

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, a.config.Timeout)
		defer cancel()
		pulls, _, err := client.PullRequests.List(cctx, owner, repo, &gh.PullRequestListOptions{
			State:       "all",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: gh.ListOptions{PerPage: pullPageSize},
		})
		if err != nil {
			a.logCategoryFailure(projectID, "pull_requests", err)
			return nil
		}
		snap.PullRequests = convertPulls(pulls)
		snap.Merges = convertMerges(pulls)
		return nil
	})

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, a.config.Timeout)
		defer cancel()
		contributors, _, err := client.Repositories.ListContributors(cctx, owner, repo, &gh.ListContributorsOptions{
			ListOptions: gh.ListOptions{PerPage: contributorPageSize},
		})
		if err != nil {
			a.logCategoryFailure(projectID, "contributors", err)
			return nil
		}
		snap.Contributors = convertContributors(contributors)
		return nil
	})

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, a.config.Timeout)
		defer cancel()
		readme, _, err := client.Repositories.GetReadme(cctx, owner, repo, nil)
		if err != nil {
			// A missing README is an empty string, never an error.
			if !isNotFound(err) {
				a.logCategoryFailure(projectID, "readme", err)
			}
			return nil
		}
		content, err := readme.GetContent()
		if err != nil {
			a.logCategoryFailure(projectID, "readme", err)
			return nil
		}
		snap.Readme = content
		return nil
	})

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, a.config.Timeout)
		defer cancel()
		issues, _, err := client.Issues.ListByRepo(cctx, owner, repo, &gh.IssueListByRepoOptions{
			State:       "all",
			ListOptions: gh.ListOptions{PerPage: issuePageSize},
		})
		if err != nil {
			a.logCategoryFailure(projectID, "issues", err)
			return nil
		}
		snap.Issues = convertIssues(issues)
		return nil
	})

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, a.config.Timeout)
		defer cancel()
		events, _, err := client.Activity.ListRepositoryEvents(cctx, owner, repo, &gh.ListOptions{
			PerPage: eventPageSize,
		})
		if err != nil {
			a.logCategoryFailure(projectID, "events", err)
			return nil
		}
		snap.Pushes = convertPushes(events)
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return snap, nil
}

func (a *Aggregator) logCategoryFailure(projectID, category string, err error) {
	a.logger.Warn("upstream category failed, degrading to default",
		zap.String("project_id", projectID),
		zap.String("category", category),
		zap.Error(err),
	)
}
