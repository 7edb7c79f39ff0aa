package github

import (
	"time"

	gh "github.com/google/go-github/v57/github"
)

// convertStats normalizes repository metadata.
func convertStats(r *gh.Repository) RepoStats {
	return RepoStats{
		Stars:            r.GetStargazersCount(),
		Forks:            r.GetForksCount(),
		Watchers:         r.GetWatchersCount(),
		OpenIssues:       r.GetOpenIssuesCount(),
		SizeKB:           r.GetSize(),
		Language:         r.GetLanguage(),
		Description:      r.GetDescription(),
		Homepage:         r.GetHomepage(),
		Topics:           r.Topics,
		License:          r.GetLicense().GetName(),
		Visibility:       r.GetVisibility(),
		DefaultBranch:    r.GetDefaultBranch(),
		Archived:         r.GetArchived(),
		Disabled:         r.GetDisabled(),
		HasIssues:        r.GetHasIssues(),
		HasProjects:      r.GetHasProjects(),
		HasWiki:          r.GetHasWiki(),
		HasPages:         r.GetHasPages(),
		HasDownloads:     r.GetHasDownloads(),
		NetworkCount:     r.GetNetworkCount(),
		SubscribersCount: r.GetSubscribersCount(),
		CreatedAt:        r.GetCreatedAt().Time,
		UpdatedAt:        r.GetUpdatedAt().Time,
		PushedAt:         r.GetPushedAt().Time,
		fetched:          true,
	}
}

func convertCommits(commits []*gh.RepositoryCommit) []Commit {
	out := make([]Commit, 0, len(commits))
	for _, c := range commits {
		out = append(out, Commit{
			SHA:     c.GetSHA(),
			Message: c.GetCommit().GetMessage(),
			Author:  c.GetCommit().GetAuthor().GetName(),
			Date:    c.GetCommit().GetAuthor().GetDate().Time,
			URL:     c.GetHTMLURL(),
		})
	}
	return out
}

func convertPulls(pulls []*gh.PullRequest) []PullRequest {
	out := make([]PullRequest, 0, len(pulls))
	for _, pr := range pulls {
		var mergedAt *time.Time
		if pr.MergedAt != nil {
			t := pr.MergedAt.Time
			mergedAt = &t
		}
		out = append(out, PullRequest{
			Number:   pr.GetNumber(),
			Title:    pr.GetTitle(),
			Body:     pr.GetBody(),
			State:    pr.GetState(),
			Author:   pr.GetUser().GetLogin(),
			MergedAt: mergedAt,
			URL:      pr.GetHTMLURL(),
		})
	}
	return out
}

// convertMerges reshapes merged-only pull requests into merge summaries.
func convertMerges(pulls []*gh.PullRequest) []Merge {
	var out []Merge
	for _, pr := range pulls {
		if pr.MergedAt == nil {
			continue
		}
		out = append(out, Merge{
			Number:       pr.GetNumber(),
			Title:        pr.GetTitle(),
			Author:       pr.GetUser().GetLogin(),
			MergedBy:     pr.GetMergedBy().GetLogin(),
			MergedAt:     pr.MergedAt.Time,
			BaseBranch:   pr.GetBase().GetRef(),
			HeadBranch:   pr.GetHead().GetRef(),
			Commits:      pr.GetCommits(),
			Additions:    pr.GetAdditions(),
			Deletions:    pr.GetDeletions(),
			ChangedFiles: pr.GetChangedFiles(),
		})
	}
	return out
}

func convertContributors(contributors []*gh.Contributor) []Contributor {
	out := make([]Contributor, 0, len(contributors))
	for _, c := range contributors {
		out = append(out, Contributor{
			Login:         c.GetLogin(),
			Contributions: c.GetContributions(),
		})
	}
	return out
}

// convertIssues keeps non-pull-request items only; GitHub's issue list
// includes pull requests.
func convertIssues(issues []*gh.Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.IsPullRequest() {
			continue
		}
		out = append(out, Issue{
			Number: i.GetNumber(),
			Title:  i.GetTitle(),
			Body:   i.GetBody(),
			State:  i.GetState(),
			URL:    i.GetHTMLURL(),
		})
	}
	return out
}

// convertPushes filters activity events to pushes and reshapes them into
// summaries carrying at most pushCommitLimit embedded commits.
func convertPushes(events []*gh.Event) []PushEvent {
	var out []PushEvent
	for _, e := range events {
		if e.GetType() != "PushEvent" {
			continue
		}
		payload, err := e.ParsePayload()
		if err != nil {
			continue
		}
		push, ok := payload.(*gh.PushEvent)
		if !ok {
			continue
		}

		count := push.GetSize()
		if count == 0 {
			count = len(push.Commits)
		}

		embedded := push.Commits
		if len(embedded) > pushCommitLimit {
			embedded = embedded[:pushCommitLimit]
		}
		commits := make([]PushCommit, 0, len(embedded))
		for _, c := range embedded {
			sha := c.GetSHA()
			if sha == "" {
				sha = c.GetID()
			}
			commits = append(commits, PushCommit{
				SHA:     sha,
				Message: c.GetMessage(),
			})
		}

		out = append(out, PushEvent{
			ID:          e.GetID(),
			Actor:       e.GetActor().GetLogin(),
			Ref:         push.GetRef(),
			CommitCount: count,
			Commits:     commits,
			CreatedAt:   e.GetCreatedAt().Time,
		})
	}
	return out
}
