package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kortex/internal/config"
	"github.com/fyrsmithlabs/kortex/internal/ratelimit"
)

// SearchOpts carries common options for the qualifier-style search calls.
type SearchOpts struct {
	// Sort and Order follow the GitHub search API fields; empty means
	// best-match relevance ordering.
	Sort    string
	Order   string
	PerPage int
	Page    int
}

func (o SearchOpts) listOptions() gh.SearchOptions {
	perPage := o.PerPage
	if perPage == 0 {
		perPage = 30
	}
	page := o.Page
	if page == 0 {
		page = 1
	}
	return gh.SearchOptions{
		Sort:        o.Sort,
		Order:       o.Order,
		ListOptions: gh.ListOptions{PerPage: perPage, Page: page},
	}
}

// Search result shapes, normalized from the GitHub responses.
type (
	RepositoryResult struct {
		FullName    string `json:"full_name"`
		Description string `json:"description"`
		Stars       int    `json:"stars"`
		Language    string `json:"language"`
		URL         string `json:"url"`
	}

	CodeResult struct {
		Name       string `json:"name"`
		Path       string `json:"path"`
		Repository string `json:"repository"`
		URL        string `json:"url"`
	}

	UserResult struct {
		Login string `json:"login"`
		Type  string `json:"type"`
		URL   string `json:"url"`
	}

	IssueResult struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		State  string `json:"state"`
		URL    string `json:"url"`
	}

	CommitResult struct {
		SHA        string `json:"sha"`
		Message    string `json:"message"`
		Author     string `json:"author"`
		Repository string `json:"repository"`
		URL        string `json:"url"`
	}

	// SearchPage wraps one category's results with its total count.
	SearchPage[T any] struct {
		TotalCount int `json:"total_count"`
		Items      []T `json:"items"`
	}

	// CombinedResult is the bounded per-category overview from SearchAll.
	CombinedResult struct {
		Query        string                       `json:"query"`
		Repositories SearchPage[RepositoryResult] `json:"repositories"`
		Code         SearchPage[CodeResult]       `json:"code"`
		Users        SearchPage[UserResult]       `json:"users"`
		Issues       SearchPage[IssueResult]      `json:"issues"`
		Commits      SearchPage[CommitResult]     `json:"commits"`
	}
)

// SearchConfig configures the search service.
type SearchConfig struct {
	Token   config.Secret
	Timeout time.Duration
	// Window and Limit bound the fixed-window throttle. The GitHub search
	// API quota is 30 requests per minute.
	Window time.Duration
	Limit  int
	// BaseURL overrides the GitHub API endpoint. Used by tests.
	BaseURL string
}

// ApplyDefaults sets default values for unset fields.
func (c *SearchConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Window == 0 {
		c.Window = time.Minute
	}
	if c.Limit == 0 {
		c.Limit = 30
	}
}

// SearchService runs free-text, qualifier-style searches against GitHub.
// Every call first passes the fixed-window limiter; the per-project
// aggregation calls are not throttled here.
type SearchService struct {
	config  SearchConfig
	baseURL *url.URL
	limiter *ratelimit.FixedWindow
	logger  *zap.Logger
}

// NewSearchService creates a SearchService.
func NewSearchService(cfg SearchConfig, logger *zap.Logger) (*SearchService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	limiter, err := ratelimit.NewFixedWindow(cfg.Limit, cfg.Window)
	if err != nil {
		return nil, err
	}

	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, err
		}
		base = u
	}

	return &SearchService{
		config:  cfg,
		baseURL: base,
		limiter: limiter,
		logger:  logger,
	}, nil
}

func (s *SearchService) client(ctx context.Context, token config.Secret) *gh.Client {
	if !token.IsSet() {
		token = s.config.Token
	}
	return newClient(ctx, token, s.config.Timeout, s.baseURL)
}

// Repositories searches repositories across GitHub.
func (s *SearchService) Repositories(ctx context.Context, token config.Secret, query string, opts SearchOpts) (SearchPage[RepositoryResult], error) {
	var page SearchPage[RepositoryResult]
	if err := s.limiter.Wait(ctx); err != nil {
		return page, err
	}

	ghOpts := opts.listOptions()
	result, _, err := s.client(ctx, token).Search.Repositories(ctx, query, &ghOpts)
	if err != nil {
		return page, fmt.Errorf("searching repositories: %w", err)
	}

	page.TotalCount = result.GetTotal()
	page.Items = make([]RepositoryResult, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		page.Items = append(page.Items, RepositoryResult{
			FullName:    r.GetFullName(),
			Description: r.GetDescription(),
			Stars:       r.GetStargazersCount(),
			Language:    r.GetLanguage(),
			URL:         r.GetHTMLURL(),
		})
	}
	return page, nil
}

// Code searches code across GitHub.
func (s *SearchService) Code(ctx context.Context, token config.Secret, query string, opts SearchOpts) (SearchPage[CodeResult], error) {
	var page SearchPage[CodeResult]
	if err := s.limiter.Wait(ctx); err != nil {
		return page, err
	}

	ghOpts := opts.listOptions()
	result, _, err := s.client(ctx, token).Search.Code(ctx, query, &ghOpts)
	if err != nil {
		return page, fmt.Errorf("searching code: %w", err)
	}

	page.TotalCount = result.GetTotal()
	page.Items = make([]CodeResult, 0, len(result.CodeResults))
	for _, c := range result.CodeResults {
		page.Items = append(page.Items, CodeResult{
			Name:       c.GetName(),
			Path:       c.GetPath(),
			Repository: c.GetRepository().GetFullName(),
			URL:        c.GetHTMLURL(),
		})
	}
	return page, nil
}

// Users searches users across GitHub.
func (s *SearchService) Users(ctx context.Context, token config.Secret, query string, opts SearchOpts) (SearchPage[UserResult], error) {
	var page SearchPage[UserResult]
	if err := s.limiter.Wait(ctx); err != nil {
		return page, err
	}

	ghOpts := opts.listOptions()
	result, _, err := s.client(ctx, token).Search.Users(ctx, query, &ghOpts)
	if err != nil {
		return page, fmt.Errorf("searching users: %w", err)
	}

	page.TotalCount = result.GetTotal()
	page.Items = make([]UserResult, 0, len(result.Users))
	for _, u := range result.Users {
		page.Items = append(page.Items, UserResult{
			Login: u.GetLogin(),
			Type:  u.GetType(),
			URL:   u.GetHTMLURL(),
		})
	}
	return page, nil
}

// Issues searches issues and pull requests across GitHub.
func (s *SearchService) Issues(ctx context.Context, token config.Secret, query string, opts SearchOpts) (SearchPage[IssueResult], error) {
	var page SearchPage[IssueResult]
	if err := s.limiter.Wait(ctx); err != nil {
		return page, err
	}

	ghOpts := opts.listOptions()
	result, _, err := s.client(ctx, token).Search.Issues(ctx, query, &ghOpts)
	if err != nil {
		return page, fmt.Errorf("searching issues: %w", err)
	}

	page.TotalCount = result.GetTotal()
	page.Items = make([]IssueResult, 0, len(result.Issues))
	for _, i := range result.Issues {
		page.Items = append(page.Items, IssueResult{
			Number: i.GetNumber(),
			Title:  i.GetTitle(),
			State:  i.GetState(),
			URL:    i.GetHTMLURL(),
		})
	}
	return page, nil
}

// Commits searches commits across GitHub.
func (s *SearchService) Commits(ctx context.Context, token config.Secret, query string, opts SearchOpts) (SearchPage[CommitResult], error) {
	var page SearchPage[CommitResult]
	if err := s.limiter.Wait(ctx); err != nil {
		return page, err
	}

	ghOpts := opts.listOptions()
	result, _, err := s.client(ctx, token).Search.Commits(ctx, query, &ghOpts)
	if err != nil {
		return page, fmt.Errorf("searching commits: %w", err)
	}

	page.TotalCount = result.GetTotal()
	page.Items = make([]CommitResult, 0, len(result.Commits))
	for _, c := range result.Commits {
		page.Items = append(page.Items, CommitResult{
			SHA:        c.GetSHA(),
			Message:    c.GetCommit().GetMessage(),
			Author:     c.GetCommit().GetAuthor().GetName(),
			Repository: c.GetRepository().GetFullName(),
			URL:        c.GetHTMLURL(),
		})
	}
	return page, nil
}

// All runs a bounded search across every category for an overview page.
// Each category call consumes one slot in the rate-limit window.
func (s *SearchService) All(ctx context.Context, token config.Secret, query string, perPage int) (*CombinedResult, error) {
	if perPage <= 0 || perPage > 30 {
		perPage = 10
	}
	opts := SearchOpts{PerPage: perPage}

	combined := &CombinedResult{Query: query}

	// Category failures degrade to empty pages; one broken category must
	// not sink the overview.
	var err error
	if combined.Repositories, err = s.Repositories(ctx, token, query, opts); err != nil {
		s.logSearchFailure("repositories", err)
	}
	if combined.Code, err = s.Code(ctx, token, query, opts); err != nil {
		s.logSearchFailure("code", err)
	}
	if combined.Users, err = s.Users(ctx, token, query, opts); err != nil {
		s.logSearchFailure("users", err)
	}
	if combined.Issues, err = s.Issues(ctx, token, query, opts); err != nil {
		s.logSearchFailure("issues", err)
	}
	if combined.Commits, err = s.Commits(ctx, token, query, opts); err != nil {
		s.logSearchFailure("commits", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return combined, nil
}

func (s *SearchService) logSearchFailure(category string, err error) {
	s.logger.Warn("search category failed",
		zap.String("category", category),
		zap.Error(err),
	)
}
