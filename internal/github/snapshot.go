package github

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is the aggregated, normalized bundle of repository data for one
// project. Snapshots are immutable once built; the cache replaces them
// wholesale, never mutates them in place.
type Snapshot struct {
	ProjectID    string        `json:"project_id"`
	Stats        RepoStats     `json:"repository_stats"`
	Commits      []Commit      `json:"commits"`
	PullRequests []PullRequest `json:"pull_requests"`
	Contributors []Contributor `json:"contributors"`
	Issues       []Issue       `json:"issues"`
	Readme       string        `json:"documentation"`
	Pushes       []PushEvent   `json:"pushes"`
	Merges       []Merge       `json:"merges"`

	// Placeholder marks a synthesized snapshot built after all real fetch
	// attempts produced nothing.
	Placeholder bool `json:"placeholder,omitempty"`
	// Authenticated records whether a credential was available when this
	// snapshot was fetched. Cached unauthenticated entries are refetched
	// once a credential shows up.
	Authenticated bool      `json:"-"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// RepoStats holds repository-level statistics and flags.
type RepoStats struct {
	Stars            int       `json:"stars"`
	Forks            int       `json:"forks"`
	Watchers         int       `json:"watchers"`
	OpenIssues       int       `json:"open_issues"`
	SizeKB           int       `json:"size"`
	Language         string    `json:"language"`
	Description      string    `json:"description"`
	Homepage         string    `json:"homepage"`
	Topics           []string  `json:"topics"`
	License          string    `json:"license"`
	Visibility       string    `json:"visibility"`
	DefaultBranch    string    `json:"default_branch"`
	Archived         bool      `json:"archived"`
	Disabled         bool      `json:"disabled"`
	HasIssues        bool      `json:"has_issues"`
	HasProjects      bool      `json:"has_projects"`
	HasWiki          bool      `json:"has_wiki"`
	HasPages         bool      `json:"has_pages"`
	HasDownloads     bool      `json:"has_downloads"`
	NetworkCount     int       `json:"network_count"`
	SubscribersCount int       `json:"subscribers_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	PushedAt         time.Time `json:"pushed_at"`

	// fetched distinguishes a zero-valued stats block from a successful
	// metadata call that happened to return zeros.
	fetched bool
}

// Fetched reports whether the repository-metadata call succeeded.
func (s RepoStats) Fetched() bool { return s.fetched }

// Commit is one entry from the recent-commit list.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	URL     string    `json:"url"`
}

// PullRequest is one entry from the pull-request list.
type PullRequest struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	State    string     `json:"state"`
	Author   string     `json:"author"`
	MergedAt *time.Time `json:"merged_at,omitempty"`
	URL      string     `json:"url"`
}

// Merged reports whether the pull request was merged.
func (p PullRequest) Merged() bool { return p.MergedAt != nil }

// Contributor is one entry from the contributor list.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// Issue is one non-pull-request entry from the issue list.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	URL    string `json:"url"`
}

// PushEvent is a push-type activity event reshaped into a summary.
type PushEvent struct {
	ID          string       `json:"id"`
	Actor       string       `json:"actor"`
	Ref         string       `json:"ref"`
	CommitCount int          `json:"commits_count"`
	Commits     []PushCommit `json:"commits"`
	CreatedAt   time.Time    `json:"created_at"`
}

// PushCommit is one of the up-to-three commits embedded in a push summary.
type PushCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// Merge is a merged pull request reshaped into a merge summary.
type Merge struct {
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	MergedBy     string    `json:"merged_by"`
	MergedAt     time.Time `json:"merged_at"`
	BaseBranch   string    `json:"base_branch"`
	HeadBranch   string    `json:"head_branch"`
	Commits      int       `json:"commits"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	ChangedFiles int       `json:"changed_files"`
}

// HasData reports whether the snapshot carries any meaningful content.
// A snapshot with no stats, commits, contributors, or README is considered
// empty and triggers the next fallback tier.
func (s *Snapshot) HasData() bool {
	return s.Stats.Fetched() ||
		len(s.Commits) > 0 ||
		len(s.Contributors) > 0 ||
		s.Readme != ""
}

// newPlaceholderSnapshot synthesizes a default snapshot for a project whose
// real data could not be fetched through any tier. It is served as valid
// (never an error) but marked so the cache can retry it later.
func newPlaceholderSnapshot(projectID string, authenticated bool, now time.Time) *Snapshot {
	return &Snapshot{
		ProjectID: projectID,
		Stats: RepoStats{
			Description: "Repository information not available due to API rate limits",
			Language:    "Unknown",
		},
		Readme:        "",
		Placeholder:   true,
		Authenticated: authenticated,
		FetchedAt:     now,
	}
}

// splitProjectID splits "owner/name" into its parts.
func splitProjectID(projectID string) (owner, repo string, err error) {
	parts := strings.SplitN(projectID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadProjectID, projectID)
	}
	return parts[0], parts[1], nil
}
