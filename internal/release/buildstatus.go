package release

import (
	"sort"
	"strings"
)

const revertPrefix = "REVERT"

// Reconcile classifies every issue of a release from its commit history.
//
// The classification is a heuristic: it looks for the issue key in commit messages
// and treats a message starting with "Revert" as a removal. An unrelated commit that
// mentions the key will count as landing it. Treat the result as a hint for humans
// reviewing the release, not as ground truth.
//
// Precedence per issue: a manual override wins outright; an issue without the
// in-scope label is unknown; otherwise the newest commit per repository that
// mentions the key decides that repository, and any revert marks the issue removed.
func Reconcile(issues []Issue, overrides map[string]VersionIssue, prData map[string]PullRequestData, inScopeLabel string) []IssueStatus {
	results := make([]IssueStatus, 0, len(issues))
	repos := newestFirst(prData)
	if len(repos) == 0 || len(issues) == 0 {
		for _, issue := range issues {
			results = append(results, IssueStatus{Issue: issue, BuildStatus: BuildStatusUnknown})
		}
		return results
	}

	for _, issue := range issues {
		if override, ok := overrides[issue.Key]; ok && override.BuildStatus != nil {
			results = append(results, IssueStatus{
				Issue:            issue,
				BuildStatus:      *override.BuildStatus,
				StatusOverridden: true,
			})
			continue
		}
		if !issue.HasLabel(inScopeLabel) {
			results = append(results, IssueStatus{Issue: issue, BuildStatus: BuildStatusUnknown})
			continue
		}
		results = append(results, IssueStatus{Issue: issue, BuildStatus: classify(issue.Key, repos)})
	}
	return results
}

func classify(key string, repos [][]Commit) BuildStatus {
	needle := strings.ToUpper(key)
	landed := 0
	for _, commits := range repos {
		latest, ok := latestMention(needle, commits)
		if !ok {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(latest), revertPrefix) {
			return BuildStatusRemoved
		}
		landed++
	}

	switch {
	case landed == 0:
		return BuildStatusNotInBuild
	case landed == len(repos):
		return BuildStatusInBuild
	default:
		return BuildStatusPartiallyInBuild
	}
}

// latestMention returns the upper-cased message of the newest commit naming the key.
func latestMention(needle string, commits []Commit) (string, bool) {
	for _, commit := range commits {
		message := strings.ToUpper(commit.Message)
		if strings.Contains(message, needle) {
			return message, true
		}
	}
	return "", false
}

// newestFirst keeps repositories that have a release branch and orders each
// commit list by author date, newest first.
func newestFirst(prData map[string]PullRequestData) [][]Commit {
	names := make([]string, 0, len(prData))
	for name, data := range prData {
		if data.Exists {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	repos := make([][]Commit, 0, len(names))
	for _, name := range names {
		commits := append([]Commit(nil), prData[name].Commits...)
		sort.SliceStable(commits, func(i, j int) bool {
			return commits[i].AuthorDate.After(commits[j].AuthorDate)
		})
		repos = append(repos, commits)
	}
	return repos
}

// Summarize counts issues per status.
func Summarize(statuses []IssueStatus) map[BuildStatus]int {
	counts := map[BuildStatus]int{}
	for _, status := range statuses {
		counts[status.BuildStatus]++
	}
	return counts
}
