// Package docs turns project snapshots into the bounded document sets fed
// to the vector index.
//
// Document ids are deterministic functions of project id and category, so
// rebuilding from an unchanged snapshot yields an identical set. Categories
// with no data produce no document, never an empty placeholder.
package docs

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/kortex/internal/github"
	"github.com/fyrsmithlabs/kortex/internal/vectorstore"
)

// Per-category bounds.
const (
	maxContributors  = 10
	maxCommits       = 15
	maxIssues        = 10
	maxPulls         = 10
	commitMsgLimit   = 100
	issueBodyLimit   = 200
	pullBodyLimit    = 200
	timestampLayout  = "2006-01-02"
	githubProjectURL = "https://github.com/"
)

// Category tags carried in document metadata.
const (
	TypeRepositoryInfo = "repository_info"
	TypeDocumentation  = "documentation"
	TypeContributors   = "contributors"
	TypeCommits        = "commits"
	TypeIssues         = "issues"
	TypePullRequests   = "pull_requests"
)

// Build produces the indexable documents for a snapshot.
func Build(projectID string, snap *github.Snapshot) []vectorstore.Document {
	var out []vectorstore.Document

	if doc, ok := basicInfoDoc(projectID, snap); ok {
		out = append(out, doc)
	}
	if doc, ok := readmeDoc(projectID, snap); ok {
		out = append(out, doc)
	}
	if doc, ok := contributorsDoc(projectID, snap); ok {
		out = append(out, doc)
	}
	if doc, ok := commitsDoc(projectID, snap); ok {
		out = append(out, doc)
	}
	if doc, ok := issuesDoc(projectID, snap); ok {
		out = append(out, doc)
	}
	if doc, ok := pullsDoc(projectID, snap); ok {
		out = append(out, doc)
	}

	return out
}

func basicInfoDoc(projectID string, snap *github.Snapshot) (vectorstore.Document, bool) {
	stats := snap.Stats
	// Placeholder snapshots carry a description and language, so they still
	// yield a basic-info document. A zero stats block means the metadata
	// call never succeeded.
	if !stats.Fetched() && stats.Description == "" && stats.Language == "" {
		return vectorstore.Document{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", projectID)
	if stats.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", stats.Description)
	}
	if stats.Language != "" {
		fmt.Fprintf(&b, "Primary Language: %s\n", stats.Language)
	}
	fmt.Fprintf(&b, "Stars: %d\n", stats.Stars)
	fmt.Fprintf(&b, "Forks: %d\n", stats.Forks)
	if stats.SizeKB > 0 {
		fmt.Fprintf(&b, "Size: %d KB\n", stats.SizeKB)
	}
	if !stats.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Created: %s\n", stats.CreatedAt.Format(timestampLayout))
	}
	if !stats.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Last Updated: %s\n", stats.UpdatedAt.Format(timestampLayout))
	}

	return vectorstore.Document{
		ID:      projectID + "_basic_info",
		Content: b.String(),
		Metadata: map[string]string{
			"source": githubProjectURL + projectID,
			"type":   TypeRepositoryInfo,
		},
	}, true
}

func readmeDoc(projectID string, snap *github.Snapshot) (vectorstore.Document, bool) {
	if snap.Readme == "" {
		return vectorstore.Document{}, false
	}
	return vectorstore.Document{
		ID:      projectID + "_readme",
		Content: "README Content:\n" + snap.Readme,
		Metadata: map[string]string{
			"source": githubProjectURL + projectID + "/blob/main/README.md",
			"type":   TypeDocumentation,
		},
	}, true
}

func contributorsDoc(projectID string, snap *github.Snapshot) (vectorstore.Document, bool) {
	if len(snap.Contributors) == 0 {
		return vectorstore.Document{}, false
	}

	var b strings.Builder
	b.WriteString("Contributors:\n")
	for i, c := range snap.Contributors {
		if i >= maxContributors {
			break
		}
		fmt.Fprintf(&b, "%d. %s: %d contributions\n", i+1, c.Login, c.Contributions)
	}

	return vectorstore.Document{
		ID:      projectID + "_contributors",
		Content: b.String(),
		Metadata: map[string]string{
			"source": githubProjectURL + projectID + "/graphs/contributors",
			"type":   TypeContributors,
		},
	}, true
}

func commitsDoc(projectID string, snap *github.Snapshot) (vectorstore.Document, bool) {
	if len(snap.Commits) == 0 {
		return vectorstore.Document{}, false
	}

	var b strings.Builder
	b.WriteString("Recent Commits:\n")
	for i, c := range snap.Commits {
		if i >= maxCommits {
			break
		}
		fmt.Fprintf(&b, "%d. %s (by %s on %s)\n",
			i+1, truncate(c.Message, commitMsgLimit), c.Author, c.Date.Format(timestampLayout))
	}

	return vectorstore.Document{
		ID:      projectID + "_commits",
		Content: b.String(),
		Metadata: map[string]string{
			"source": githubProjectURL + projectID + "/commits",
			"type":   TypeCommits,
		},
	}, true
}

func issuesDoc(projectID string, snap *github.Snapshot) (vectorstore.Document, bool) {
	if len(snap.Issues) == 0 {
		return vectorstore.Document{}, false
	}

	var b strings.Builder
	b.WriteString("Recent Issues:\n")
	for i, issue := range snap.Issues {
		if i >= maxIssues {
			break
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, strings.ToUpper(issue.State), issue.Title)
		if issue.Body != "" {
			fmt.Fprintf(&b, "   %s\n", truncate(issue.Body, issueBodyLimit))
		}
	}

	return vectorstore.Document{
		ID:      projectID + "_issues",
		Content: b.String(),
		Metadata: map[string]string{
			"source": githubProjectURL + projectID + "/issues",
			"type":   TypeIssues,
		},
	}, true
}

func pullsDoc(projectID string, snap *github.Snapshot) (vectorstore.Document, bool) {
	if len(snap.PullRequests) == 0 {
		return vectorstore.Document{}, false
	}

	var b strings.Builder
	b.WriteString("Recent Pull Requests:\n")
	for i, pr := range snap.PullRequests {
		if i >= maxPulls {
			break
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, strings.ToUpper(pr.State), pr.Title)
		if pr.Body != "" {
			fmt.Fprintf(&b, "   %s\n", truncate(pr.Body, pullBodyLimit))
		}
	}

	return vectorstore.Document{
		ID:      projectID + "_pull_requests",
		Content: b.String(),
		Metadata: map[string]string{
			"source": githubProjectURL + projectID + "/pulls",
			"type":   TypePullRequests,
		},
	}, true
}

// truncate cuts s at limit runes, appending an ellipsis when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
