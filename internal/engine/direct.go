package engine

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/kortex/internal/github"
)

const directContributorLimit = 5

// directAnswer renders a templated answer of the given kind from snapshot
// data. It never fails: missing data yields an honest "not available"
// sentence rather than an error.
func directAnswer(projectID string, kind DirectKind, snap *github.Snapshot) Answer {
	repoSource := Source{Source: "https://github.com/" + projectID, Type: "repository_info"}

	switch kind {
	case KindContributors:
		if len(snap.Contributors) == 0 {
			return Answer{
				Answer:  "No contributor data available.",
				Sources: []Source{{Source: "Direct GitHub API Call", Type: "contributors"}},
			}
		}
		entries := make([]string, 0, directContributorLimit)
		for i, c := range snap.Contributors {
			if i >= directContributorLimit {
				break
			}
			entries = append(entries, fmt.Sprintf("%s (%d contributions)", c.Login, c.Contributions))
		}
		return Answer{
			Answer: fmt.Sprintf("Top contributors to %s: %s", projectID, strings.Join(entries, ", ")),
			Sources: []Source{{
				Source: "https://github.com/" + projectID + "/graphs/contributors",
				Type:   "contributors",
			}},
		}

	case KindLanguage:
		language := snap.Stats.Language
		if language == "" {
			language = "Unknown"
		}
		return Answer{
			Answer:  fmt.Sprintf("The primary language for %s is %s.", projectID, language),
			Sources: []Source{repoSource},
		}

	case KindStars:
		return Answer{
			Answer:  fmt.Sprintf("%s has %d stars on GitHub.", projectID, snap.Stats.Stars),
			Sources: []Source{repoSource},
		}

	case KindForks:
		return Answer{
			Answer:  fmt.Sprintf("%s has %d forks on GitHub.", projectID, snap.Stats.Forks),
			Sources: []Source{repoSource},
		}

	case KindCommits:
		return Answer{
			Answer: fmt.Sprintf("%s has %d recent commits available.", projectID, len(snap.Commits)),
			Sources: []Source{{
				Source: "https://github.com/" + projectID + "/commits",
				Type:   "commits",
			}},
		}

	default:
		return Answer{
			Answer:  genericAnswer(projectID, snap),
			Sources: []Source{repoSource},
		}
	}
}

func genericAnswer(projectID string, snap *github.Snapshot) string {
	language := snap.Stats.Language
	if language == "" {
		language = "Unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s is a %s project", projectID, language)
	if snap.Stats.Description != "" {
		fmt.Fprintf(&b, " that %s", strings.ToLower(snap.Stats.Description))
	}
	if snap.Stats.Stars > 0 {
		fmt.Fprintf(&b, " with %d stars on GitHub", snap.Stats.Stars)
	}
	b.WriteString(".")
	return b.String()
}

// placeholderNotice is the description synthesized for projects whose data
// could not be fetched. The rule-based summary must not echo it as if it
// were a real description.
const placeholderNotice = "Repository information not available due to API rate limits"

// shortSummary derives a one-sentence summary from repository stats alone,
// with name-pattern heuristics when no usable description exists.
func shortSummary(projectID string, stats github.RepoStats) string {
	language := stats.Language
	if language == "" {
		language = "software"
	}

	if stats.Description != "" && stats.Description != placeholderNotice {
		return fmt.Sprintf("%s is a %s project that %s", projectID, language, strings.ToLower(stats.Description))
	}

	owner := projectID
	repoName := ""
	if i := strings.Index(projectID, "/"); i >= 0 {
		owner, repoName = projectID[:i], projectID[i+1:]
	}
	repoLower := strings.ToLower(repoName)

	switch {
	case strings.Contains(repoLower, "hack"):
		topic := strings.NewReplacer("hack", "", "ies", "", "-", " ", "_", " ").Replace(repoLower)
		topic = strings.TrimSpace(topic)
		if topic != "" {
			return fmt.Sprintf("%s is a hackathon project focused on %s", projectID, topic)
		}
		return fmt.Sprintf("%s is a hackathon project", projectID)

	case strings.Contains(repoLower, "adobe"):
		if strings.Contains(repoLower, "r1") {
			return fmt.Sprintf("%s is an Adobe R1 hackathon project", projectID)
		}
		return fmt.Sprintf("%s is an Adobe-related %s project", projectID, language)

	case strings.Contains(repoLower, "git") && strings.Contains(repoLower, "harbor"):
		return fmt.Sprintf("%s is a Git management tool project", projectID)

	case strings.Contains(repoLower, "summary"):
		return fmt.Sprintf("%s contains documentation and summaries", projectID)

	case strings.Contains(repoLower, "api"):
		return fmt.Sprintf("%s is an API-related %s project", projectID, language)

	case strings.Contains(repoLower, "web") || strings.Contains(repoLower, "app"):
		return fmt.Sprintf("%s is a web application project", projectID)

	case strings.Contains(repoLower, "mobile") || strings.Contains(repoLower, "ios") || strings.Contains(repoLower, "android"):
		return fmt.Sprintf("%s is a mobile application project", projectID)

	case strings.Contains(repoLower, "data") || strings.Contains(repoLower, "ml") || strings.Contains(repoLower, "ai"):
		return fmt.Sprintf("%s is a data science or AI project", projectID)

	default:
		if language != "software" && language != "Unknown" {
			return fmt.Sprintf("%s is a %s project by %s", projectID, language, owner)
		}
		return fmt.Sprintf("%s is a software project by %s", projectID, owner)
	}
}
